package gui

import (
	"context"
	"image"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screen-pilot/src/coords"
)

func TestSelectionCompletes(t *testing.T) {
	s := NewSelection(2000, 1000)
	assert.Equal(t, Idle, s.Phase())

	s.Press(image.Pt(1000, 500))
	assert.Equal(t, Dragging, s.Phase())
	assert.True(t, s.Move(image.Pt(200, 100)))

	// Dragging up and to the left still yields a canonical rectangle.
	assert.Equal(t, Selected, s.Release(image.Pt(200, 100)))
	assert.True(t, s.Done())

	region, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, coords.Rect{X1: 100, Y1: 100, X2: 500, Y2: 500}, region)
}

func TestSelectionTooSmallStaysIdle(t *testing.T) {
	tests := []struct {
		name string
		to   image.Point
	}{
		{"zero size", image.Pt(100, 100)},
		{"exactly min span", image.Pt(105, 105)},
		{"narrow", image.Pt(103, 300)},
		{"flat", image.Pt(300, 104)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSelection(1000, 1000)
			s.Press(image.Pt(100, 100))
			assert.Equal(t, Idle, s.Release(tt.to))
			assert.False(t, s.Done())
			_, ok := s.Result()
			assert.False(t, ok)

			// The user can try again.
			s.Press(image.Pt(0, 0))
			assert.Equal(t, Selected, s.Release(image.Pt(50, 50)))
		})
	}
}

func TestSelectionCancel(t *testing.T) {
	s := NewSelection(1000, 1000)
	s.Press(image.Pt(10, 10))
	s.Cancel()
	assert.Equal(t, Cancelled, s.Phase())
	assert.False(t, s.Move(image.Pt(20, 20)))

	s.Press(image.Pt(30, 30))
	assert.Equal(t, Cancelled, s.Phase(), "terminal state ignores new drags")
	_, ok := s.Result()
	assert.False(t, ok)
}

func TestCancelAfterSelectKeepsResult(t *testing.T) {
	s := NewSelection(1000, 1000)
	s.Press(image.Pt(0, 0))
	s.Release(image.Pt(1000, 1000))
	s.Cancel()
	region, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, coords.Full, region)
}

func TestMoveWithoutPressIsIgnored(t *testing.T) {
	s := NewSelection(1000, 1000)
	assert.False(t, s.Move(image.Pt(5, 5)))
	assert.Equal(t, Idle, s.Release(image.Pt(500, 500)))
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "dragging", Dragging.String())
	assert.Equal(t, "selected", Selected.String())
	assert.Equal(t, "cancelled", Cancelled.String())
}

func TestSelectReturnsWhenCancelledEarly(t *testing.T) {
	if runtime.GOOS != "windows" {
		t.Skip("overlay window requires Windows")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	type outcome struct {
		ok  bool
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		_, ok, err := SelectRegion(ctx)
		done <- outcome{ok, err}
	}()

	select {
	case out := <-done:
		assert.False(t, out.ok)
		assert.ErrorIs(t, out.err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("selection did not close after its context ended")
	}
}

func TestSelectRegionInteractive(t *testing.T) {
	if runtime.GOOS != "windows" {
		_, ok, err := SelectRegion(context.Background())
		assert.ErrorIs(t, err, ErrUnsupported)
		assert.False(t, ok)
		return
	}
	if os.Getenv("SCREEN_PILOT_INTERACTIVE_TESTS") != "1" {
		t.Skip("set SCREEN_PILOT_INTERACTIVE_TESTS=1 to run interactive region selection test")
	}

	region, ok, err := SelectRegion(context.Background())
	require.NoError(t, err)
	if ok {
		assert.Less(t, region.X1, region.X2)
		assert.Less(t, region.Y1, region.Y2)
	}
}
