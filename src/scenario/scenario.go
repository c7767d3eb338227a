// Package scenario holds the pluggable routers that turn model text into
// actions and overlays. Scenarios are linked in and registered by name;
// nothing is loaded at run time.
package scenario

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"screen-pilot/src/action"
	"screen-pilot/src/overlay"
)

// ErrUnknownScenario is returned by Lookup for unregistered names.
var ErrUnknownScenario = errors.New("unknown scenario")

// ErrNoFrame is returned by a cycle when the capture produced nothing.
var ErrNoFrame = errors.New("capture returned no frame")

// Result is what a router extracts from one model response.
type Result struct {
	Text     string
	Actions  []action.Action
	Overlays []overlay.Overlay
}

// RouteFunc parses model text. It must not have side effects.
type RouteFunc func(modelText string) Result

// Hooks are the engine operations a cycle sequences.
type Hooks struct {
	// Capture waits the configured delay and returns a base64 frame, or ""
	// when none is available.
	Capture func() string
	// Execute runs actions in order.
	Execute func(actions []action.Action)
	// Annotate publishes frame with overlays and returns the annotated
	// image, or the raw frame when no annotation arrives.
	Annotate func(frameB64 string, overlays []overlay.Overlay) string
	// CallModel returns the model's reply, or "" on failure.
	CallModel func(imageB64, text string) string
}

// RunCycleFunc runs one turn and returns the next model text and the
// overlays it used.
type RunCycleFunc func(prevText string, prevOverlays []overlay.Overlay, h Hooks) (string, []overlay.Overlay, error)

// BuildOverlaysFunc finalizes the overlays once the effect of the executed
// actions is known.
type BuildOverlaysFunc func(executed []action.Action, screenChanged bool, overlays []overlay.Overlay) []overlay.Overlay

// Definition is a complete scenario.
type Definition struct {
	Name          string
	Description   string
	Config        Config
	Route         RouteFunc
	RunCycle      RunCycleFunc
	BuildOverlays BuildOverlaysFunc
}

// Validate rejects a definition the engine cannot run.
func (d Definition) Validate() error {
	if d.Name == "" {
		return errors.New("scenario name is required")
	}
	if d.Route == nil {
		return fmt.Errorf("scenario %s: Route is required", d.Name)
	}
	if d.RunCycle == nil {
		return fmt.Errorf("scenario %s: RunCycle is required", d.Name)
	}
	if d.BuildOverlays == nil {
		return fmt.Errorf("scenario %s: BuildOverlays is required", d.Name)
	}
	if err := d.Config.Validate(); err != nil {
		return fmt.Errorf("scenario %s: %w", d.Name, err)
	}
	return nil
}

// StandardCycle is route, execute, capture, annotate the new frame with the
// route's overlays, then call the model.
func StandardCycle(route RouteFunc) RunCycleFunc {
	return func(prevText string, _ []overlay.Overlay, h Hooks) (string, []overlay.Overlay, error) {
		res := route(prevText)
		h.Execute(res.Actions)
		frame := h.Capture()
		if frame == "" {
			return "", res.Overlays, ErrNoFrame
		}
		annotated := h.Annotate(frame, res.Overlays)
		next := h.CallModel(annotated, res.Text)
		return next, res.Overlays, nil
	}
}

// PassThrough returns the route's overlays unchanged.
func PassThrough(_ []action.Action, _ bool, overlays []overlay.Overlay) []overlay.Overlay {
	return append([]overlay.Overlay{}, overlays...)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Definition{}
)

// Register adds d to the registry. It panics on an invalid or duplicate
// definition, since registration happens at init time.
func Register(d Definition) {
	if err := d.Validate(); err != nil {
		panic(err)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[d.Name]; dup {
		panic("scenario: Register called twice for " + d.Name)
	}
	registry[d.Name] = d
}

// Lookup returns the named scenario.
func Lookup(name string) (Definition, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q (available: %v)", ErrUnknownScenario, name, namesLocked())
	}
	return d, nil
}

// Names lists registered scenarios in order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return namesLocked()
}

func namesLocked() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
