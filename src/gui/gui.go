// Package gui hosts the interactive region selector: a translucent
// full-screen overlay on which the user drags out the capture region.
package gui

import (
	"context"
	"errors"
	"log"

	"screen-pilot/src/coords"
)

// ErrUnsupported is returned where no interactive overlay is available.
var ErrUnsupported = errors.New("interactive region selection not supported on this platform")

// Selector runs a blocking region selection.
// Returns (region, cancelled, error). If cancelled is true, region is
// undefined and err is nil.
type Selector interface {
	Select(ctx context.Context) (coords.Rect, bool, error)
}

// NewSelector returns the platform implementation.
func NewSelector() Selector {
	return newPlatformSelector()
}

// SelectRegion shows the overlay and waits for the user. ok is false when
// the user cancelled.
func SelectRegion(ctx context.Context) (region coords.Rect, ok bool, err error) {
	log.Printf("SELECTOR: starting interactive region selection")
	region, cancelled, err := NewSelector().Select(ctx)
	if err != nil {
		log.Printf("SELECTOR: selection failed: %v", err)
		return coords.Rect{}, false, err
	}
	if cancelled {
		log.Printf("SELECTOR: selection cancelled")
		return coords.Rect{}, false, nil
	}
	log.Printf("SELECTOR: region selected: %s", region)
	return region, true, nil
}
