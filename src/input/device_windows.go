//go:build windows

package input

import (
	"image"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

var (
	user32        = windows.NewLazySystemDLL("user32.dll")
	procVkKeyScan = user32.NewProc("VkKeyScanW")
)

// windowsDevice injects events with SendInput.
type windowsDevice struct{}

// NewDevice returns the SendInput-backed device.
func NewDevice() Device { return windowsDevice{} }

func (windowsDevice) MoveTo(x, y int) {
	win.SetCursorPos(int32(x), int32(y))
}

func (windowsDevice) Button(b Button, up bool) {
	var flags uint32
	switch b {
	case Left:
		flags = win.MOUSEEVENTF_LEFTDOWN
		if up {
			flags = win.MOUSEEVENTF_LEFTUP
		}
	case Right:
		flags = win.MOUSEEVENTF_RIGHTDOWN
		if up {
			flags = win.MOUSEEVENTF_RIGHTUP
		}
	}
	sendMouse(flags, 0)
}

func (windowsDevice) Wheel(delta int) {
	sendMouse(win.MOUSEEVENTF_WHEEL, uint32(int32(delta)))
}

func sendMouse(flags, data uint32) {
	in := win.MOUSE_INPUT{
		Type: win.INPUT_MOUSE,
		Mi:   win.MOUSEINPUT{MouseData: data, DwFlags: flags},
	}
	win.SendInput(1, unsafe.Pointer(&in), int32(unsafe.Sizeof(in)))
}

func (windowsDevice) Key(vk uint16, up bool) {
	var flags uint32
	if up {
		flags |= win.KEYEVENTF_KEYUP
	}
	if IsExtended(vk) {
		flags |= win.KEYEVENTF_EXTENDEDKEY
	}
	in := win.KEYBD_INPUT{
		Type: win.INPUT_KEYBOARD,
		Ki:   win.KEYBDINPUT{WVk: vk, DwFlags: flags},
	}
	win.SendInput(1, unsafe.Pointer(&in), int32(unsafe.Sizeof(in)))
}

func (windowsDevice) KeyScan(r rune) (uint16, Modifier, bool) {
	if r > 0xFFFF {
		return 0, 0, false
	}
	ret, _, _ := procVkKeyScan.Call(uintptr(r))
	code := int16(ret)
	if code == -1 {
		return 0, 0, false
	}
	var mods Modifier
	if code&0x100 != 0 {
		mods |= ModShift
	}
	if code&0x200 != 0 {
		mods |= ModCtrl
	}
	if code&0x400 != 0 {
		mods |= ModAlt
	}
	return uint16(code & 0xFF), mods, true
}

func (windowsDevice) CursorPos() (image.Point, bool) {
	var pt win.POINT
	if !win.GetCursorPos(&pt) {
		return image.Point{}, false
	}
	return image.Pt(int(pt.X), int(pt.Y)), true
}
