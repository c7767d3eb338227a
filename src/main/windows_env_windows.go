//go:build windows

package main

import (
	"log"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

const processPerMonitorDPIAware = 2

var (
	procSetProcessDpiAwareness = windows.NewLazySystemDLL("Shcore.dll").NewProc("SetProcessDpiAwareness")
	procSetProcessDPIAware     = windows.NewLazySystemDLL("user32.dll").NewProc("SetProcessDPIAware")
)

// enableDPIAwareness makes capture and SendInput agree on physical pixels.
// Per-monitor awareness needs Windows 8.1; older systems get system
// awareness.
func enableDPIAwareness() {
	if procSetProcessDpiAwareness.Find() == nil {
		ret, _, _ := procSetProcessDpiAwareness.Call(processPerMonitorDPIAware)
		// E_ACCESSDENIED means a manifest already set it.
		if ret == 0 || uint32(ret) == 0x80070005 {
			log.Printf("DPI: per-monitor awareness enabled")
			return
		}
		log.Printf("DPI: SetProcessDpiAwareness failed: 0x%08x", uint32(ret))
	}
	if procSetProcessDPIAware.Find() != nil {
		log.Printf("DPI: no awareness API available, coordinates may be scaled")
		return
	}
	if ret, _, _ := procSetProcessDPIAware.Call(); ret != 0 {
		log.Printf("DPI: system awareness enabled (fallback)")
	} else {
		log.Printf("DPI: SetProcessDPIAware failed")
	}
}

func logMonitorConfiguration() {
	const smCMonitors = 80
	monitors := win.GetSystemMetrics(smCMonitors)
	vx := win.GetSystemMetrics(win.SM_XVIRTUALSCREEN)
	vy := win.GetSystemMetrics(win.SM_YVIRTUALSCREEN)
	vw := win.GetSystemMetrics(win.SM_CXVIRTUALSCREEN)
	vh := win.GetSystemMetrics(win.SM_CYVIRTUALSCREEN)
	pw := win.GetSystemMetrics(win.SM_CXSCREEN)
	ph := win.GetSystemMetrics(win.SM_CYSCREEN)

	log.Printf("MONITOR: %d monitor(s), virtual screen %dx%d at (%d,%d)", monitors, vw, vh, vx, vy)
	if monitors > 1 {
		log.Printf("MONITOR: only the primary %dx%d display is captured", pw, ph)
	} else {
		log.Printf("MONITOR: primary %dx%d", pw, ph)
	}
}
