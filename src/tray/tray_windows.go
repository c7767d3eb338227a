//go:build windows

package tray

import (
	"context"
	"log"
	"runtime"
	"time"

	"github.com/getlantern/systray"

	"screen-pilot/src/clipboard"
)

const refreshInterval = 500 * time.Millisecond

// Run shows the icon until ctx ends.
func Run(ctx context.Context, opts Options) error {
	icon, err := Icon()
	if err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(done)
		systray.Run(func() { onReady(ctx, opts, icon) }, func() { log.Printf("TRAY: exited") })
	}()

	select {
	case <-ctx.Done():
		systray.Quit()
		<-done
	case <-done:
	}
	return nil
}

func onReady(ctx context.Context, opts Options, icon []byte) {
	systray.SetIcon(icon)
	systray.SetTitle("screen-pilot")
	systray.SetTooltip(Tooltip(opts.Scenario, opts.State.Snapshot()))

	mCopy := systray.AddMenuItem("Copy state URL", opts.StateURL)
	mQuit := systray.AddMenuItem("Quit", "Stop the engine and exit")

	go func() {
		tick := time.NewTicker(refreshInterval)
		defer tick.Stop()
		last := ""
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				if tip := Tooltip(opts.Scenario, opts.State.Snapshot()); tip != last {
					systray.SetTooltip(tip)
					last = tip
				}
			case <-mCopy.ClickedCh:
				if err := clipboard.Write(opts.StateURL); err != nil {
					log.Printf("TRAY: copy state URL: %v", err)
				}
			case <-mQuit.ClickedCh:
				log.Printf("TRAY: quit requested")
				if opts.OnQuit != nil {
					opts.OnQuit()
				}
				return
			}
		}
	}()
}
