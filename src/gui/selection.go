package gui

import (
	"image"

	"screen-pilot/src/coords"
)

// MinSelectionSpan is the smallest accepted drag, in pixels, on each axis.
// Shorter drags are ignored and the selector keeps waiting.
const MinSelectionSpan = 5

// Phase is the state of an interactive selection.
type Phase int

const (
	Idle Phase = iota
	Dragging
	Selected
	Cancelled
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Selected:
		return "selected"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Selection tracks one rubber-band drag over a surface of the given size.
// It holds no window state, so the overlay window procedure only translates
// messages into these calls.
type Selection struct {
	phase      Phase
	start, end image.Point
	surface    image.Point
}

// NewSelection starts an idle selection over a w x h surface.
func NewSelection(w, h int) *Selection {
	return &Selection{surface: image.Pt(w, h)}
}

// Phase returns the current state.
func (s *Selection) Phase() Phase { return s.phase }

// Done reports whether the selection reached a terminal state.
func (s *Selection) Done() bool {
	return s.phase == Selected || s.phase == Cancelled
}

// Press begins a drag at p.
func (s *Selection) Press(p image.Point) {
	if s.Done() {
		return
	}
	s.phase = Dragging
	s.start, s.end = p, p
}

// Move updates the drag end point and reports whether a repaint is needed.
func (s *Selection) Move(p image.Point) bool {
	if s.phase != Dragging {
		return false
	}
	s.end = p
	return true
}

// Release ends the drag at p. A drag no wider or taller than
// MinSelectionSpan returns to Idle.
func (s *Selection) Release(p image.Point) Phase {
	if s.phase != Dragging {
		return s.phase
	}
	s.end = p
	r := s.Rect()
	if r.Dx() > MinSelectionSpan && r.Dy() > MinSelectionSpan {
		s.phase = Selected
	} else {
		s.phase = Idle
	}
	return s.phase
}

// Cancel abandons the selection.
func (s *Selection) Cancel() {
	if s.phase != Selected {
		s.phase = Cancelled
	}
}

// Rect returns the current drag rectangle in window pixels.
func (s *Selection) Rect() image.Rectangle {
	return image.Rectangle{Min: s.start, Max: s.end}.Canon()
}

// Result converts the selected rectangle to normalized space. ok is false
// unless the selection completed.
func (s *Selection) Result() (coords.Rect, bool) {
	if s.phase != Selected {
		return coords.Rect{}, false
	}
	return coords.PixelRectToNorm(s.Rect(), s.surface.X, s.surface.Y), true
}
