package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"screen-pilot/src/action"
	"screen-pilot/src/coords"
	"screen-pilot/src/overlay"
)

var img = strings.Repeat("A", MinAnnotatedLen)

func TestNewState(t *testing.T) {
	s := New()
	snap := s.Snapshot()
	assert.NotEmpty(t, snap.RunID)
	assert.Equal(t, PhaseInit, snap.Phase)
	assert.Equal(t, 0, snap.Turn)
	assert.Equal(t, -1, snap.AnnotatedSeq)
	assert.NotNil(t, snap.Display.Actions)
	assert.NotNil(t, s.Frame().Overlays)
}

func TestSubmitBeforePublishRejected(t *testing.T) {
	s := New()
	assert.ErrorIs(t, s.SubmitAnnotated(0, img), ErrSeqMismatch)
}

func TestPublishSubmitWait(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := New()
	turn := s.BeginTurn()
	seq := s.Publish([]overlay.Overlay{overlay.Dot(1, 2, "x", "")})
	assert.Equal(t, turn, seq)
	assert.Equal(t, PhaseWaitingAnnotated, s.Phase())

	done := make(chan string, 1)
	go func() {
		got, err := s.WaitAnnotated(context.Background(), seq, time.Second)
		if err != nil {
			done <- "error: " + err.Error()
			return
		}
		done <- got
	}()

	require.NoError(t, s.SubmitAnnotated(seq, img))
	assert.Equal(t, img, <-done)
	assert.Equal(t, seq, s.Snapshot().AnnotatedSeq)

	// A second submission for the same turn is a conflict.
	assert.ErrorIs(t, s.SubmitAnnotated(seq, img+"B"), ErrSeqMismatch)
}

func TestStaleSubmissionFenced(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := New()
	s.BeginTurn()
	s.Publish(nil)
	s.BeginTurn()
	seq := s.Publish(nil)
	require.Equal(t, 2, seq)

	waitErr := make(chan error, 1)
	go func() {
		_, err := s.WaitAnnotated(context.Background(), seq, 100*time.Millisecond)
		waitErr <- err
	}()

	assert.ErrorIs(t, s.SubmitAnnotated(seq-1, img), ErrSeqMismatch)
	assert.ErrorIs(t, <-waitErr, ErrAnnotationTimeout, "stale submission must not unblock the engine")

	snap := s.Snapshot()
	assert.Equal(t, -1, snap.AnnotatedSeq)
	assert.Equal(t, 2, snap.PendingSeq)
}

func TestShortImageRejected(t *testing.T) {
	s := New()
	s.BeginTurn()
	seq := s.Publish(nil)
	assert.ErrorIs(t, s.SubmitAnnotated(seq, "short"), ErrImageTooShort)
	assert.Equal(t, -1, s.Snapshot().AnnotatedSeq)

	// The turn can still be answered.
	assert.NoError(t, s.SubmitAnnotated(seq, img))
}

func TestWaitHonorsContext(t *testing.T) {
	defer goleak.VerifyNone(t)
	s := New()
	s.BeginTurn()
	seq := s.Publish(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.WaitAnnotated(ctx, seq, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaitForSupersededSeq(t *testing.T) {
	s := New()
	s.BeginTurn()
	old := s.Publish(nil)
	s.BeginTurn()
	s.Publish(nil)
	_, err := s.WaitAnnotated(context.Background(), old, time.Second)
	assert.ErrorIs(t, err, ErrSeqMismatch)
}

func TestRawFrameAndDisplay(t *testing.T) {
	s := New()
	v0 := s.Version()
	assert.Equal(t, 1, s.SetRawFrame("abc"))
	assert.Equal(t, 2, s.SetRawFrame("def"))
	assert.Greater(t, s.Version(), v0)

	f := s.Frame()
	assert.Equal(t, 2, f.Seq)
	assert.Equal(t, "def", f.RawB64)

	acts := []action.Action{action.New(action.Click, coords.Full)}
	s.SetDisplayActions(acts)
	acts[0].Kind = action.Hotkey
	assert.Equal(t, action.Click, s.DisplayActions()[0].Kind, "state keeps its own copy")

	s.SetText("moved e2e4")
	s.SetError("boom")
	snap := s.Snapshot()
	assert.Equal(t, "moved e2e4", snap.Text)
	assert.Equal(t, "moved e2e4", snap.Display.Text)
	assert.Equal(t, PhaseError, snap.Phase)
	assert.Equal(t, "boom", snap.Error)
}
