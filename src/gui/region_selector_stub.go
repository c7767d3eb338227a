//go:build !windows

package gui

import (
	"context"

	"screen-pilot/src/coords"
)

type stubSelector struct{}

func newPlatformSelector() Selector { return stubSelector{} }

func (stubSelector) Select(ctx context.Context) (coords.Rect, bool, error) {
	return coords.Rect{}, false, ErrUnsupported
}
