package scenario

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"screen-pilot/src/action"
	"screen-pilot/src/coords"
	"screen-pilot/src/overlay"
)

const (
	validatorMaxClicks = 6
	validatorMargin    = 50
	validatorHalfBox   = 15
)

func init() {
	Register(Validator(nil))
}

// Validator ignores the model and clicks random points, boxing each one,
// so coordinate mapping and overlay rendering can be checked by eye. A nil
// rng uses the global source.
func Validator(rng *rand.Rand) Definition {
	cfg := DefaultConfig()
	cfg.VLMTemperature = 0.4
	cfg.VLMTopP = 0.9
	cfg.VLMMaxTokens = 300
	cfg.CaptureDelaySeconds = 2.5
	cfg.ActionDelaySeconds = 0.5
	cfg.ShowCursor = true
	cfg.SystemPrompt = "You are a test dummy. Say anything. It does not matter."

	v := &validator{rng: rng}
	return Definition{
		Name:          "validator",
		Description:   "random clicks with matching boxes for calibration",
		Config:        cfg,
		Route:         v.route,
		RunCycle:      StandardCycle(v.route),
		BuildOverlays: PassThrough,
	}
}

type validator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// intn returns a value in [lo, hi].
func (v *validator) intn(lo, hi int) int {
	if v.rng == nil {
		return lo + rand.IntN(hi-lo+1)
	}
	return lo + v.rng.IntN(hi-lo+1)
}

func (v *validator) route(string) Result {
	v.mu.Lock()
	defer v.mu.Unlock()

	var res Result
	n := v.intn(1, validatorMaxClicks)
	for i := range n {
		x := v.intn(validatorMargin, coords.Norm-validatorMargin)
		y := v.intn(validatorMargin, coords.Norm-validatorMargin)
		color := fmt.Sprintf("#%02x%02x%02x", v.intn(0, 255), v.intn(0, 255), v.intn(0, 255))

		res.Actions = append(res.Actions, action.New(action.Click, coords.Rect{X1: x, Y1: y, X2: x, Y2: y}))
		res.Overlays = append(res.Overlays, overlay.Box(
			x-validatorHalfBox, y-validatorHalfBox, x+validatorHalfBox, y+validatorHalfBox,
			fmt.Sprintf("%d: [%d,%d]", i+1, x, y), color, ""))
	}
	res.Text = fmt.Sprintf("benchmark turn done, %d random clicks", n)
	return res
}
