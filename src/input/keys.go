package input

import "strings"

// Virtual-key codes used directly by the synthesizer.
const (
	VKShift   uint16 = 0x10
	VKControl uint16 = 0x11
	VKMenu    uint16 = 0x12 // Alt
)

// Modifier bits returned by a character-to-key lookup (VkKeyScan layout).
type Modifier uint8

const (
	ModShift Modifier = 1 << iota
	ModCtrl
	ModAlt
)

// keyTable maps symbolic key names to Windows virtual-key codes.
var keyTable = map[string]uint16{
	"enter":     0x0D,
	"return":    0x0D,
	"tab":       0x09,
	"escape":    0x1B,
	"esc":       0x1B,
	"backspace": 0x08,
	"delete":    0x2E,
	"del":       0x2E,
	"insert":    0x2D,
	"home":      0x24,
	"end":       0x23,
	"pageup":    0x21,
	"pagedown":  0x22,
	"up":        0x26,
	"down":      0x28,
	"left":      0x25,
	"right":     0x27,
	"ctrl":      VKControl,
	"control":   VKControl,
	"alt":       VKMenu,
	"shift":     VKShift,
	"win":       0x5B,
	"windows":   0x5B,
	"space":     0x20,
}

func init() {
	for i := 0; i < 12; i++ {
		keyTable["f"+itoa(i+1)] = uint16(0x70 + i)
	}
	for c := 'a'; c <= 'z'; c++ {
		keyTable[string(c)] = uint16(c - 'a' + 'A')
	}
	for c := '0'; c <= '9'; c++ {
		keyTable[string(c)] = uint16(c)
	}
}

func itoa(n int) string {
	if n < 10 {
		return string(rune('0' + n))
	}
	return string(rune('0'+n/10)) + string(rune('0'+n%10))
}

// LookupKey resolves a symbolic key name (case-insensitive) to its
// virtual-key code.
func LookupKey(name string) (uint16, bool) {
	vk, ok := keyTable[strings.ToLower(strings.TrimSpace(name))]
	return vk, ok
}

// extended keys need KEYEVENTF_EXTENDEDKEY to be told apart from the
// numeric keypad.
var extended = map[uint16]bool{
	0x21: true, 0x22: true, 0x23: true, 0x24: true,
	0x25: true, 0x26: true, 0x27: true, 0x28: true,
	0x2D: true, 0x2E: true,
}

// IsExtended reports whether vk is an extended key.
func IsExtended(vk uint16) bool { return extended[vk] }

// usShifted maps shifted US-layout characters to their unshifted key.
var usShifted = map[rune]rune{
	'!': '1', '@': '2', '#': '3', '$': '4', '%': '5',
	'^': '6', '&': '7', '*': '8', '(': '9', ')': '0',
	'_': '-', '+': '=', '{': '[', '}': ']', '|': '\\',
	':': ';', '"': '\'', '<': ',', '>': '.', '?': '/', '~': '`',
}

// usOEM maps unshifted US-layout punctuation to VK_OEM codes.
var usOEM = map[rune]uint16{
	';': 0xBA, '=': 0xBB, ',': 0xBC, '-': 0xBD, '.': 0xBE,
	'/': 0xBF, '`': 0xC0, '[': 0xDB, '\\': 0xDC, ']': 0xDD, '\'': 0xDE,
}

// usLayoutKeyScan resolves a character against a fixed US layout. It backs
// the non-Windows device, where no layout query is available.
func usLayoutKeyScan(r rune) (uint16, Modifier, bool) {
	var mods Modifier
	if base, ok := usShifted[r]; ok {
		r, mods = base, ModShift
	}
	switch {
	case r >= 'a' && r <= 'z':
		return uint16(r - 'a' + 'A'), mods, true
	case r >= 'A' && r <= 'Z':
		return uint16(r), ModShift, true
	case r >= '0' && r <= '9':
		return uint16(r), mods, true
	case r == ' ':
		return 0x20, mods, true
	case r == '\n':
		return 0x0D, mods, true
	case r == '\t':
		return 0x09, mods, true
	}
	if vk, ok := usOEM[r]; ok {
		return vk, mods, true
	}
	return 0, 0, false
}

// SplitCombo splits a combo such as "Ctrl+Shift+S" or "ctrl, a" into
// lower-case key names. '+', ',' and spaces all separate keys.
func SplitCombo(combo string) []string {
	fields := strings.FieldsFunc(strings.ToLower(combo), func(r rune) bool {
		return r == '+' || r == ',' || r == ' '
	})
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			names = append(names, f)
		}
	}
	return names
}
