// Package hotkey watches a global key combination and fires a callback. The
// run command uses it as a kill switch that stops the engine.
package hotkey

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"

	"screen-pilot/src/input"
)

// modifierRawcodes lists the left and right virtual-key codes the hook
// reports for each modifier.
var modifierRawcodes = map[string][]uint16{
	"ctrl":  {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":   {164, 165}, // VK_LMENU, VK_RMENU
	"shift": {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":   {91, 92},   // VK_LWIN, VK_RWIN
}

type keyState struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

// Matcher tracks which keys of a combination are held down.
type Matcher struct {
	mu   sync.Mutex
	spec string
	keys []keyState
}

// NewMatcher parses a combination such as "Ctrl+Alt+Q".
func NewMatcher(spec string) (*Matcher, error) {
	m := &Matcher{spec: spec}
	for _, name := range parseHotkey(spec) {
		rawcodes := keyNameToRawcodes(name)
		if len(rawcodes) == 0 {
			return nil, fmt.Errorf("hotkey %q: unknown key %q", spec, name)
		}
		m.keys = append(m.keys, keyState{name: name, rawcodes: rawcodes})
	}
	if len(m.keys) == 0 {
		return nil, fmt.Errorf("hotkey %q has no keys", spec)
	}
	return m, nil
}

// KeyDown records a press and reports whether the full combination is now
// held. A completed combination resets so it fires once per press.
func (m *Matcher) KeyDown(rawcode uint16) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(rawcode, true)
	for i := range m.keys {
		if !m.keys[i].pressed {
			return false
		}
	}
	for i := range m.keys {
		m.keys[i].pressed = false
	}
	return true
}

// KeyUp records a release.
func (m *Matcher) KeyUp(rawcode uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(rawcode, false)
}

func (m *Matcher) set(rawcode uint16, pressed bool) {
	for i := range m.keys {
		for _, rc := range m.keys[i].rawcodes {
			if rc == rawcode {
				m.keys[i].pressed = pressed
				break
			}
		}
	}
}

// Watch hooks the keyboard until ctx ends, calling onFire each time the
// combination is pressed. It returns once the hook is torn down.
func Watch(ctx context.Context, spec string, onFire func()) error {
	m, err := NewMatcher(spec)
	if err != nil {
		return err
	}

	events := gohook.Start()
	if events == nil {
		return fmt.Errorf("hotkey %q: keyboard hook unavailable", spec)
	}
	defer gohook.End()
	log.Printf("HOTKEY: watching %s", spec)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				log.Printf("HOTKEY: event channel closed")
				return nil
			}
			switch ev.Kind {
			case gohook.KeyDown, gohook.KeyHold:
				if m.KeyDown(ev.Rawcode) {
					log.Printf("HOTKEY: %s pressed", spec)
					if onFire != nil {
						onFire()
					}
				}
			case gohook.KeyUp:
				m.KeyUp(ev.Rawcode)
			}
		}
	}
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(hotkeyConfig), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "control":
			keys = append(keys, "ctrl")
		case "win", "cmd", "super":
			keys = append(keys, "cmd")
		default:
			keys = append(keys, part)
		}
	}
	return keys
}

// keyNameToRawcodes maps a key name to the virtual-key codes the hook
// reports for it.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))
	if codes, ok := modifierRawcodes[keyName]; ok {
		return codes
	}
	if vk, ok := input.LookupKey(keyName); ok {
		return []uint16{vk}
	}
	return nil
}
