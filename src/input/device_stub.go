//go:build !windows

package input

import (
	"image"
	"log"
	"sync"
)

// stubDevice logs what would have been injected on non-Windows hosts.
type stubDevice struct {
	mu  sync.Mutex
	pos image.Point
}

// NewDevice returns a logging device; synthetic input is Windows-only.
func NewDevice() Device { return &stubDevice{} }

func (d *stubDevice) MoveTo(x, y int) {
	d.mu.Lock()
	d.pos = image.Pt(x, y)
	d.mu.Unlock()
}

func (d *stubDevice) Button(b Button, up bool) {
	log.Printf("INPUT: button %d up=%v not injected on this platform", b, up)
}

func (d *stubDevice) Wheel(delta int) {
	log.Printf("INPUT: wheel %d not injected on this platform", delta)
}

func (d *stubDevice) Key(vk uint16, up bool) {
	log.Printf("INPUT: key 0x%02X up=%v not injected on this platform", vk, up)
}

func (d *stubDevice) KeyScan(r rune) (uint16, Modifier, bool) {
	return usLayoutKeyScan(r)
}

func (d *stubDevice) CursorPos() (image.Point, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pos, true
}
