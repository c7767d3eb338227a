//go:build windows

package gui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"os"
	"runtime"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"

	"screen-pilot/src/coords"
)

const (
	overlayAlpha = 90
	lwaAlpha     = 0x2
	psSolid      = 0
	psDash       = 1

	colorWhite = 0x00FFFFFF
	colorGreen = 0x0000FF00 // COLORREF is 0x00BBGGRR
)

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	gdi32                        = windows.NewLazySystemDLL("gdi32.dll")
	procSetLayeredWindowAttrs    = user32.NewProc("SetLayeredWindowAttributes")
	procFillRect                 = user32.NewProc("FillRect")
	procAllowSetForegroundWindow = user32.NewProc("AllowSetForegroundWindow")
	procCreatePen                = gdi32.NewProc("CreatePen")
)

// Only one overlay can be on screen; the window procedure reaches its
// selection through this.
var (
	activeMu  sync.Mutex
	active    *Selection
	activeWnd win.HWND
	// closeWanted is set when ctx ends before the window exists.
	closeWanted bool
)

var errBusy = errors.New("region selection already in progress")

type windowsSelector struct{}

func newPlatformSelector() Selector { return windowsSelector{} }

// Select runs the overlay on a dedicated, locked OS thread so the window
// and its message loop share a thread.
func (windowsSelector) Select(ctx context.Context) (coords.Rect, bool, error) {
	activeMu.Lock()
	if active != nil {
		activeMu.Unlock()
		return coords.Rect{}, false, errBusy
	}
	w := int(win.GetSystemMetrics(win.SM_CXSCREEN))
	h := int(win.GetSystemMetrics(win.SM_CYSCREEN))
	sel := NewSelection(w, h)
	active = sel
	activeMu.Unlock()

	defer func() {
		activeMu.Lock()
		active, activeWnd, closeWanted = nil, 0, false
		activeMu.Unlock()
	}()

	type outcome struct {
		region coords.Rect
		ok     bool
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		region, ok, err := runOverlay(sel, w, h)
		done <- outcome{region, ok, err}
	}()

	select {
	case out := <-done:
		return out.region, !out.ok && out.err == nil, out.err
	case <-ctx.Done():
		activeMu.Lock()
		hwnd := activeWnd
		closeWanted = true
		activeMu.Unlock()
		if hwnd != 0 {
			win.PostMessage(hwnd, win.WM_CLOSE, 0, 0)
		}
		<-done
		return coords.Rect{}, false, ctx.Err()
	}
}

func runOverlay(sel *Selection, w, h int) (coords.Rect, bool, error) {
	log.Printf("SELECTOR: overlay %dx%d", w, h)

	cursor := win.LoadCursor(0, win.MAKEINTRESOURCE(win.IDC_CROSS))
	className := syscall.StringToUTF16Ptr(fmt.Sprintf("RegionOverlay_%d", time.Now().UnixNano()))
	wndClass := win.WNDCLASSEX{
		CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
		Style:         win.CS_HREDRAW | win.CS_VREDRAW,
		LpfnWndProc:   syscall.NewCallback(overlayWndProc),
		HInstance:     win.GetModuleHandle(nil),
		HCursor:       cursor,
		LpszClassName: className,
	}
	if win.RegisterClassEx(&wndClass) == 0 {
		return coords.Rect{}, false, fmt.Errorf("failed to register overlay window class")
	}
	defer win.UnregisterClass(className)

	hwnd := win.CreateWindowEx(
		win.WS_EX_LAYERED|win.WS_EX_TOPMOST|win.WS_EX_TOOLWINDOW,
		className,
		syscall.StringToUTF16Ptr("Select capture region"),
		win.WS_POPUP|win.WS_VISIBLE,
		0, 0, int32(w), int32(h),
		0, 0, win.GetModuleHandle(nil), nil,
	)
	if hwnd == 0 {
		return coords.Rect{}, false, fmt.Errorf("failed to create overlay window")
	}
	activeMu.Lock()
	activeWnd = hwnd
	if closeWanted {
		win.PostMessage(hwnd, win.WM_CLOSE, 0, 0)
	}
	activeMu.Unlock()

	procSetLayeredWindowAttrs.Call(uintptr(hwnd), 0, overlayAlpha, lwaAlpha)
	win.ShowWindow(hwnd, win.SW_SHOW)
	procAllowSetForegroundWindow.Call(uintptr(os.Getpid()))
	win.SetForegroundWindow(hwnd)
	win.SetFocus(hwnd)
	win.UpdateWindow(hwnd)

	// WM_DESTROY posts WM_QUIT, and the loop drains it here so none is left
	// in the thread queue for the next overlay.
	var msg win.MSG
	for {
		ret := win.GetMessage(&msg, 0, 0, 0)
		if ret == 0 {
			break
		}
		if ret == -1 {
			log.Printf("SELECTOR: GetMessage error")
			win.DestroyWindow(hwnd)
			return coords.Rect{}, false, fmt.Errorf("overlay message loop failed")
		}
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}

	region, ok := sel.Result()
	return region, ok, nil
}

func lParamPoint(lParam uintptr) image.Point {
	// Coordinates are signed 16-bit values.
	return image.Pt(int(int16(win.LOWORD(uint32(lParam)))), int(int16(win.HIWORD(uint32(lParam)))))
}

func overlayWndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	activeMu.Lock()
	sel := active
	activeMu.Unlock()
	if sel == nil {
		return win.DefWindowProc(hwnd, msg, wParam, lParam)
	}

	switch msg {
	case win.WM_ERASEBKGND:
		return 1

	case win.WM_KEYDOWN:
		if wParam == win.VK_ESCAPE {
			sel.Cancel()
			win.DestroyWindow(hwnd)
		}
		return 0

	case win.WM_RBUTTONDOWN, win.WM_CLOSE:
		sel.Cancel()
		win.DestroyWindow(hwnd)
		return 0

	case win.WM_LBUTTONDOWN:
		sel.Press(lParamPoint(lParam))
		win.SetCapture(hwnd)
		win.InvalidateRect(hwnd, nil, false)
		return 0

	case win.WM_MOUSEMOVE:
		if sel.Move(lParamPoint(lParam)) {
			win.InvalidateRect(hwnd, nil, false)
		}
		return 0

	case win.WM_LBUTTONUP:
		win.ReleaseCapture()
		if sel.Release(lParamPoint(lParam)) == Selected {
			log.Printf("SELECTOR: released at %v", sel.Rect())
			win.DestroyWindow(hwnd)
		} else {
			log.Printf("SELECTOR: selection too small, ignoring")
			win.InvalidateRect(hwnd, nil, false)
		}
		return 0

	case win.WM_PAINT:
		var ps win.PAINTSTRUCT
		hdc := win.BeginPaint(hwnd, &ps)
		paintOverlay(hwnd, hdc, sel)
		win.EndPaint(hwnd, &ps)
		return 0

	case win.WM_DESTROY:
		win.PostQuitMessage(0)
		return 0
	}

	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}

func paintOverlay(hwnd win.HWND, hdc win.HDC, sel *Selection) {
	var client win.RECT
	win.GetClientRect(hwnd, &client)
	procFillRect.Call(uintptr(hdc), uintptr(unsafe.Pointer(&client)), uintptr(win.GetStockObject(win.BLACK_BRUSH)))

	if sel.Phase() != Dragging {
		return
	}
	r := sel.Rect()

	oldBrush := win.SelectObject(hdc, win.GetStockObject(win.NULL_BRUSH))
	win.SetBkMode(hdc, win.TRANSPARENT)

	white, _, _ := procCreatePen.Call(psSolid, 3, colorWhite)
	oldPen := win.SelectObject(hdc, win.HGDIOBJ(white))
	win.Rectangle_(hdc, int32(r.Min.X), int32(r.Min.Y), int32(r.Max.X), int32(r.Max.Y))

	green, _, _ := procCreatePen.Call(psDash, 1, colorGreen)
	win.SelectObject(hdc, win.HGDIOBJ(green))
	win.Rectangle_(hdc, int32(r.Min.X+2), int32(r.Min.Y+2), int32(r.Max.X-2), int32(r.Max.Y-2))

	win.SelectObject(hdc, oldPen)
	win.SelectObject(hdc, oldBrush)
	win.DeleteObject(win.HGDIOBJ(white))
	win.DeleteObject(win.HGDIOBJ(green))
}
