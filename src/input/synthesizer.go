// Package input issues synthetic pointer and keyboard events at positions
// given in normalized space.
package input

import (
	"image"
	"log"
	"time"
	"unicode/utf8"

	"screen-pilot/src/coords"
	"screen-pilot/src/screenshot"
)

// Button identifies a pointer button.
type Button int

const (
	Left Button = iota
	Right
)

// WheelDelta is one wheel notch.
const WheelDelta = 120

// DefaultScrollClicks is used when a scroll action names no count.
const DefaultScrollClicks = 3

// Device is the raw injection surface. Implementations are fire-and-forget.
type Device interface {
	MoveTo(x, y int)
	Button(b Button, up bool)
	Wheel(delta int)
	Key(vk uint16, up bool)
	// KeyScan resolves a character to a virtual key plus the modifiers the
	// current keyboard layout needs to produce it.
	KeyScan(r rune) (vk uint16, mods Modifier, ok bool)
	CursorPos() (image.Point, bool)
}

// Timing holds the settle delays between events. The zero value sends
// events back to back.
type Timing struct {
	ClickSettle    time.Duration
	DoubleClickGap time.Duration
	KeySettle      time.Duration
	TypeDown       time.Duration
	TypeInterKey   time.Duration
	HotkeyInter    time.Duration
	ScrollClick    time.Duration
	DragStep       time.Duration
	DragSteps      int
}

// DefaultTiming returns delays that let typical UIs register each event.
func DefaultTiming() Timing {
	return Timing{
		ClickSettle:    30 * time.Millisecond,
		DoubleClickGap: 50 * time.Millisecond,
		KeySettle:      30 * time.Millisecond,
		TypeDown:       10 * time.Millisecond,
		TypeInterKey:   20 * time.Millisecond,
		HotkeyInter:    20 * time.Millisecond,
		ScrollClick:    30 * time.Millisecond,
		DragStep:       8 * time.Millisecond,
		DragSteps:      25,
	}
}

// Options configures a Synthesizer.
type Options struct {
	Device Device
	// Region is the active capture region; empty means the whole surface.
	Region coords.Rect
	Timing Timing
	// Surface reports the physical surface size. Defaults to the primary
	// display.
	Surface func() (int, int)
}

// Synthesizer resolves normalized targets and drives a Device.
type Synthesizer struct {
	dev     Device
	region  coords.Rect
	timing  Timing
	surface func() (int, int)
}

// New builds a Synthesizer. A nil Device selects the platform device.
func New(opts Options) *Synthesizer {
	dev := opts.Device
	if dev == nil {
		dev = NewDevice()
	}
	surface := opts.Surface
	if surface == nil {
		surface = screenshot.SurfaceSize
	}
	return &Synthesizer{
		dev:     dev,
		region:  opts.Region,
		timing:  opts.Timing,
		surface: surface,
	}
}

func sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// resolve maps the center of a normalized bbox to an absolute pixel.
func (s *Synthesizer) resolve(bbox coords.Rect) image.Point {
	w, h := s.surface()
	return coords.NormToPixel(bbox.Center(), s.region, w, h)
}

func (s *Synthesizer) press(b Button) {
	s.dev.Button(b, false)
	sleep(s.timing.ClickSettle)
	s.dev.Button(b, true)
}

// Click moves to the center of bbox and clicks the left button.
func (s *Synthesizer) Click(bbox coords.Rect) {
	p := s.resolve(bbox)
	s.dev.MoveTo(p.X, p.Y)
	sleep(s.timing.ClickSettle)
	s.press(Left)
}

// DoubleClick clicks twice with a short gap.
func (s *Synthesizer) DoubleClick(bbox coords.Rect) {
	p := s.resolve(bbox)
	s.dev.MoveTo(p.X, p.Y)
	sleep(s.timing.ClickSettle)
	s.press(Left)
	sleep(s.timing.DoubleClickGap)
	s.press(Left)
}

// RightClick clicks the right button.
func (s *Synthesizer) RightClick(bbox coords.Rect) {
	p := s.resolve(bbox)
	s.dev.MoveTo(p.X, p.Y)
	sleep(s.timing.ClickSettle)
	s.press(Right)
}

// Drag presses at from, moves through interpolated points to to, and
// releases. Many UIs ignore a drag made of a single jump.
func (s *Synthesizer) Drag(from, to coords.Rect) {
	a, b := s.resolve(from), s.resolve(to)
	steps := s.timing.DragSteps
	if steps < 1 {
		steps = 1
	}
	s.dev.MoveTo(a.X, a.Y)
	sleep(s.timing.ClickSettle)
	s.dev.Button(Left, false)
	sleep(s.timing.ClickSettle)
	for i := 1; i <= steps; i++ {
		s.dev.MoveTo(a.X+(b.X-a.X)*i/steps, a.Y+(b.Y-a.Y)*i/steps)
		sleep(s.timing.DragStep)
	}
	sleep(s.timing.ClickSettle)
	s.dev.Button(Left, true)
}

// ScrollUp emits clicks wheel notches away from the user at bbox.
func (s *Synthesizer) ScrollUp(bbox coords.Rect, clicks int) { s.scroll(bbox, clicks, 1) }

// ScrollDown emits clicks wheel notches toward the user at bbox.
func (s *Synthesizer) ScrollDown(bbox coords.Rect, clicks int) { s.scroll(bbox, clicks, -1) }

func (s *Synthesizer) scroll(bbox coords.Rect, clicks, direction int) {
	p := s.resolve(bbox)
	s.dev.MoveTo(p.X, p.Y)
	sleep(s.timing.ClickSettle)
	if clicks < 1 {
		clicks = 1
	}
	for i := 0; i < clicks; i++ {
		s.dev.Wheel(direction * WheelDelta)
		sleep(s.timing.ScrollClick)
	}
}

// TypeText types each character using the layout's key mapping. Characters
// the layout cannot produce are skipped.
func (s *Synthesizer) TypeText(text string) {
	for _, r := range text {
		if r == utf8.RuneError {
			continue
		}
		vk, mods, ok := s.dev.KeyScan(r)
		if !ok {
			log.Printf("INPUT: no key for %q, skipped", r)
			continue
		}
		if mods&ModCtrl != 0 {
			s.dev.Key(VKControl, false)
		}
		if mods&ModAlt != 0 {
			s.dev.Key(VKMenu, false)
		}
		if mods&ModShift != 0 {
			s.dev.Key(VKShift, false)
		}
		s.dev.Key(vk, false)
		sleep(s.timing.TypeDown)
		s.dev.Key(vk, true)
		if mods&ModShift != 0 {
			s.dev.Key(VKShift, true)
		}
		if mods&ModAlt != 0 {
			s.dev.Key(VKMenu, true)
		}
		if mods&ModCtrl != 0 {
			s.dev.Key(VKControl, true)
		}
		sleep(s.timing.TypeInterKey)
	}
}

// PressKey taps a named key. Unknown names do nothing.
func (s *Synthesizer) PressKey(name string) {
	vk, ok := LookupKey(name)
	if !ok {
		log.Printf("INPUT: unknown key %q ignored", name)
		return
	}
	s.dev.Key(vk, false)
	sleep(s.timing.KeySettle)
	s.dev.Key(vk, true)
}

// Hotkey presses every key of combo in order and releases them in reverse.
// Names that are neither in the key table nor a single typeable character
// are dropped.
func (s *Synthesizer) Hotkey(combo string) {
	var vks []uint16
	for _, name := range SplitCombo(combo) {
		if vk, ok := LookupKey(name); ok {
			vks = append(vks, vk)
			continue
		}
		if utf8.RuneCountInString(name) == 1 {
			r, _ := utf8.DecodeRuneInString(name)
			if vk, _, ok := s.dev.KeyScan(r); ok {
				vks = append(vks, vk)
				continue
			}
		}
		log.Printf("INPUT: unknown hotkey part %q ignored", name)
	}
	for _, vk := range vks {
		s.dev.Key(vk, false)
		sleep(s.timing.HotkeyInter)
	}
	for i := len(vks) - 1; i >= 0; i-- {
		s.dev.Key(vks[i], true)
		sleep(s.timing.HotkeyInter)
	}
}

// CursorPosition returns the pointer position in normalized space, or the
// center when it cannot be read.
func (s *Synthesizer) CursorPosition() coords.Point {
	p, ok := s.dev.CursorPos()
	if !ok {
		return coords.Point{X: coords.Norm / 2, Y: coords.Norm / 2}
	}
	w, h := s.surface()
	return coords.PixelToNorm(p, s.region, w, h)
}
