// Package engine runs the turn loop: it drives a scenario's cycle with
// capture, action execution, annotation handoff and model calls, and keeps
// the shared session state current.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"screen-pilot/src/action"
	"screen-pilot/src/coords"
	"screen-pilot/src/frame"
	"screen-pilot/src/logutil"
	"screen-pilot/src/metrics"
	"screen-pilot/src/overlay"
	"screen-pilot/src/scenario"
	"screen-pilot/src/session"
	"screen-pilot/src/worker"
)

const (
	// DefaultAnnotationTimeout bounds the wait for the renderer.
	DefaultAnnotationTimeout = 30 * time.Second
	// EmptyResponseBackoff is the pause after the model returns nothing.
	EmptyResponseBackoff = time.Second
	// ErrorBackoff is the pause after a failed turn.
	ErrorBackoff = 2 * time.Second
)

// ErrEmptyResponse marks a turn whose model call returned no text.
var ErrEmptyResponse = errors.New("VLM returned empty response")

// Capturer grabs an encoded frame of region at width x height. An empty
// frame means nothing was captured.
type Capturer interface {
	Capture(region coords.Rect, width, height int) frame.Frame
}

// Actuator performs synthetic input in normalized coordinates.
type Actuator interface {
	Click(bbox coords.Rect)
	DoubleClick(bbox coords.Rect)
	RightClick(bbox coords.Rect)
	Drag(from, to coords.Rect)
	ScrollUp(bbox coords.Rect, clicks int)
	ScrollDown(bbox coords.Rect, clicks int)
	TypeText(text string)
	PressKey(name string)
	Hotkey(combo string)
	CursorPosition() coords.Point
}

// Model answers an image plus text with free-form text, or "" on failure.
type Model interface {
	Complete(ctx context.Context, imageB64, text string) string
}

// Options wires an Engine.
type Options struct {
	Scenario scenario.Definition
	State    *session.State
	Capturer Capturer
	Input    Actuator
	Model    Model
	// Native serializes capture and input calls. When nil they run on the
	// engine goroutine.
	Native  *worker.Pool
	Metrics *metrics.Metrics
	// AnnotationTimeout bounds each wait for the renderer. Zero selects
	// DefaultAnnotationTimeout; negative waits without limit.
	AnnotationTimeout time.Duration
	// EmptyBackoff and ErrorBackoff override the retry pauses.
	EmptyBackoff time.Duration
	ErrorBackoff time.Duration
}

// Engine owns the turn loop. Run must not be called concurrently.
type Engine struct {
	def      scenario.Definition
	cfg      scenario.Config
	region   coords.Rect
	state    *session.State
	capturer Capturer
	input    Actuator
	model    Model
	native   *worker.Pool
	metrics  *metrics.Metrics

	annotationTimeout time.Duration
	emptyBackoff      time.Duration
	errorBackoff      time.Duration

	prevText     string
	prevOverlays []overlay.Overlay
	prevFrame    frame.Frame
	cursor       []coords.Point
}

// New validates opts and builds an engine.
func New(opts Options) (*Engine, error) {
	if err := opts.Scenario.Validate(); err != nil {
		return nil, err
	}
	if opts.State == nil {
		return nil, errors.New("session state is required")
	}
	if opts.Capturer == nil {
		return nil, errors.New("capturer is required")
	}
	if opts.Input == nil {
		return nil, errors.New("input synthesizer is required")
	}
	if opts.Model == nil {
		return nil, errors.New("model client is required")
	}
	region, err := opts.Scenario.Config.Region()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		def:               opts.Scenario,
		cfg:               opts.Scenario.Config,
		region:            region,
		state:             opts.State,
		capturer:          opts.Capturer,
		input:             opts.Input,
		model:             opts.Model,
		native:            opts.Native,
		metrics:           opts.Metrics,
		annotationTimeout: opts.AnnotationTimeout,
		emptyBackoff:      opts.EmptyBackoff,
		errorBackoff:      opts.ErrorBackoff,
		prevText:          opts.Scenario.Config.SeedVLMText,
	}
	if e.annotationTimeout == 0 {
		e.annotationTimeout = DefaultAnnotationTimeout
	}
	if e.emptyBackoff <= 0 {
		e.emptyBackoff = EmptyResponseBackoff
	}
	if e.errorBackoff <= 0 {
		e.errorBackoff = ErrorBackoff
	}
	return e, nil
}

// Run loops until ctx ends. It never returns early on turn failures.
func (e *Engine) Run(ctx context.Context) error {
	log.Printf("ENGINE: scenario %s, region %q, %dx%d", e.def.Name, e.cfg.CaptureRegion, e.cfg.CaptureWidth, e.cfg.CaptureHeight)
	for {
		if err := ctx.Err(); err != nil {
			log.Printf("ENGINE: stopping after turn %d", e.state.Turn())
			return nil
		}
		e.Step(ctx)
	}
}

// Step runs one turn, including any backoff after a failure, and returns
// the turn's error.
func (e *Engine) Step(ctx context.Context) error {
	turn := e.state.BeginTurn()
	e.metrics.TurnStarted()

	next, overlays, err := e.runCycle(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil && next == "" {
		err = ErrEmptyResponse
	}
	if err != nil {
		e.metrics.TurnFailed()
		e.state.SetError(err.Error())
		backoff := e.errorBackoff
		if errors.Is(err, ErrEmptyResponse) {
			backoff = e.emptyBackoff
		}
		log.Printf("ENGINE: turn %d failed: %v, retrying in %v", turn, err, backoff)
		sleepCtx(ctx, backoff)
		return fmt.Errorf("turn %d: %w", turn, err)
	}

	e.prevText = next
	e.prevOverlays = overlays
	e.state.SetText(next)
	log.Printf("ENGINE: turn %d done: %s", turn, logutil.Sanitize(next))
	return nil
}

// runCycle turns a panic in the scenario or a hook into a turn error.
func (e *Engine) runCycle(ctx context.Context) (next string, overlays []overlay.Overlay, err error) {
	defer func() {
		if r := recover(); r != nil {
			next, overlays = "", nil
			err = fmt.Errorf("turn panicked: %v", r)
		}
	}()
	return e.def.RunCycle(e.prevText, e.prevOverlays, e.hooks(ctx))
}

func (e *Engine) hooks(ctx context.Context) scenario.Hooks {
	return scenario.Hooks{
		Capture:   func() string { return e.capture(ctx) },
		Execute:   func(actions []action.Action) { e.execute(ctx, actions) },
		Annotate:  func(shot string, overlays []overlay.Overlay) string { return e.annotate(ctx, shot, overlays) },
		CallModel: func(img, text string) string { return e.callModel(ctx, img, text) },
	}
}

func (e *Engine) capture(ctx context.Context) string {
	if !sleepCtx(ctx, e.cfg.CaptureDelay()) {
		return ""
	}
	e.state.SetPhase(session.PhaseCapturing)
	f, err := nativeValue(ctx, e.native, "capture", func() frame.Frame {
		return e.capturer.Capture(e.region, e.cfg.CaptureWidth, e.cfg.CaptureHeight)
	})
	if err != nil {
		log.Printf("ENGINE: capture failed: %v", err)
		return ""
	}
	if f.Empty() {
		return ""
	}
	b64 := f.Base64()
	e.state.SetRawFrame(b64)
	return b64
}

func (e *Engine) annotate(ctx context.Context, shot string, overlays []overlay.Overlay) string {
	if shot == "" {
		return ""
	}
	current := frame.FromBase64(shot)
	ratio := -1.0
	if !e.prevFrame.Empty() {
		ratio = frame.Diff(e.prevFrame, current)
	}
	e.prevFrame = current
	changed := ratio < 0 || ratio >= e.cfg.ChangeThreshold
	e.metrics.SetChangeRatio(ratio)

	final := e.def.BuildOverlays(e.state.DisplayActions(), changed, overlays)
	if e.cfg.ShowCursor && len(e.cursor) > 0 {
		last := e.cursor[len(e.cursor)-1]
		final = append(final, overlay.Cursor(last.X, last.Y))
	}

	seq := e.state.Publish(final)
	log.Printf("ENGINE: published seq %d with %d overlays (change %.4f)", seq, len(final), ratio)
	annotated, err := e.state.WaitAnnotated(ctx, seq, e.annotationTimeout)
	switch {
	case err == nil:
		return annotated
	case errors.Is(err, session.ErrAnnotationTimeout):
		e.metrics.AnnotationTimedOut()
		log.Printf("ENGINE: no annotation for seq %d within %v, using raw frame", seq, e.annotationTimeout)
		return shot
	default:
		log.Printf("ENGINE: annotation wait for seq %d: %v", seq, err)
		return ""
	}
}

func (e *Engine) callModel(ctx context.Context, img, text string) string {
	if ctx.Err() != nil {
		return ""
	}
	e.state.SetPhase(session.PhaseCallingVLM)
	start := time.Now()
	out := e.model.Complete(ctx, img, text)
	e.metrics.ObserveModelCall(time.Since(start))
	return out
}

// sleepCtx waits d or until ctx ends, and reports whether the full wait
// elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// nativeValue runs fn on the native worker when one is set.
func nativeValue[T any](ctx context.Context, pool *worker.Pool, name string, fn func() T) (T, error) {
	if pool == nil {
		return fn(), nil
	}
	out := make(chan T, 1)
	err := pool.Do(ctx, name, func() error {
		out <- fn()
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return <-out, nil
}
