//go:build !windows

package tray

import (
	"context"
	"log"
)

// Run logs that no icon is available and waits for ctx.
func Run(ctx context.Context, opts Options) error {
	log.Printf("TRAY: not available on this platform, state at %s", opts.StateURL)
	<-ctx.Done()
	return nil
}
