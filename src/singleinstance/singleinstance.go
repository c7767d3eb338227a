// Package singleinstance keeps two pilots from driving the same desktop.
// The handoff address doubles as the ownership token: whoever listens on it
// is the resident.
package singleinstance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
)

// ErrResident is returned when another pilot already serves the address.
var ErrResident = errors.New("screen-pilot already running")

// Check claims addr briefly and releases it. When the address is busy it
// asks the owner for its state to tell a resident pilot from an unrelated
// process.
func Check(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err == nil {
		_ = ln.Close()
		log.Printf("Pre-flight: %s free", addr)
		return nil
	}
	if r, ok := Detect(ctx, addr); ok {
		log.Printf("Pre-flight: %s owned by run %s (turn %d, %s)", addr, r.RunID, r.Turn, r.Phase)
		return fmt.Errorf("%w: run %s on %s", ErrResident, r.RunID, addr)
	}
	return fmt.Errorf("handoff address %s unavailable: %w", addr, err)
}
