package engine

import (
	"context"
	"log"

	"screen-pilot/src/action"
	"screen-pilot/src/coords"
	"screen-pilot/src/session"
)

// execute runs a batch in order. drag_start only records its bbox; the
// next drag_end performs the drag. Unknown kinds are skipped. Cursor
// positions are sampled before the batch and after every input. An empty
// batch makes no input calls at all.
func (e *Engine) execute(ctx context.Context, actions []action.Action) {
	e.state.SetDisplayActions(actions)
	e.state.SetPhase(session.PhaseExecuting)

	e.cursor = e.cursor[:0]
	if len(actions) == 0 {
		return
	}
	e.cursor = append(e.cursor, e.cursorPosition(ctx))

	var dragFrom *coords.Rect
	executed := 0
	for _, a := range actions {
		switch a.Kind {
		case action.DragStart:
			from := a.BBox
			dragFrom = &from
			continue
		case action.DragEnd:
			if dragFrom != nil {
				from, to := *dragFrom, a.BBox
				e.inject(ctx, a, func() { e.input.Drag(from, to) })
				dragFrom = nil
				e.cursor = append(e.cursor, e.cursorPosition(ctx))
			}
			continue
		case action.Unknown:
			continue
		}

		if executed > 0 {
			sleepCtx(ctx, e.cfg.ActionDelay())
		}
		e.inject(ctx, a, func() { e.perform(a) })
		executed++
		e.cursor = append(e.cursor, e.cursorPosition(ctx))
	}
}

func (e *Engine) perform(a action.Action) {
	switch a.Kind {
	case action.Click:
		e.input.Click(a.BBox)
	case action.DoubleClick:
		e.input.DoubleClick(a.BBox)
	case action.RightClick:
		e.input.RightClick(a.BBox)
	case action.Type:
		e.input.TypeText(a.Params)
	case action.Key:
		e.input.PressKey(a.Params)
	case action.Hotkey:
		e.input.Hotkey(a.Params)
	case action.ScrollUp:
		e.input.ScrollUp(a.BBox, a.ScrollClicks())
	case action.ScrollDown:
		e.input.ScrollDown(a.BBox, a.ScrollClicks())
	}
}

func (e *Engine) inject(ctx context.Context, a action.Action, fn func()) {
	_, err := nativeValue(ctx, e.native, a.Kind.String(), func() struct{} {
		fn()
		return struct{}{}
	})
	if err != nil {
		log.Printf("ENGINE: %s failed: %v", a.Kind, err)
		return
	}
	e.metrics.ActionExecuted(a.Kind.String())
}

func (e *Engine) cursorPosition(ctx context.Context) coords.Point {
	p, err := nativeValue(ctx, e.native, "cursor", e.input.CursorPosition)
	if err != nil {
		return coords.Point{X: coords.Norm / 2, Y: coords.Norm / 2}
	}
	return p
}
