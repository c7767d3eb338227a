// Package session holds the process-wide state shared between the engine
// loop and the handoff endpoints. All access goes through State's methods,
// which serialize on a single mutex.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"screen-pilot/src/action"
	"screen-pilot/src/overlay"
)

// Phase names the engine's current activity.
type Phase string

const (
	PhaseInit             Phase = "init"
	PhaseRunning          Phase = "running"
	PhaseCapturing        Phase = "capturing"
	PhaseExecuting        Phase = "executing"
	PhaseWaitingAnnotated Phase = "waiting_annotated"
	PhaseCallingVLM       Phase = "calling_vlm"
	PhaseError            Phase = "error"
)

// MinAnnotatedLen is the shortest base64 image accepted as an annotation.
const MinAnnotatedLen = 100

var (
	// ErrSeqMismatch rejects a submission for a sequence that is not pending,
	// or that was already answered.
	ErrSeqMismatch = errors.New("seq mismatch")
	// ErrImageTooShort rejects a submission whose image cannot be a frame.
	ErrImageTooShort = errors.New("image too short")
	// ErrAnnotationTimeout is returned when no annotation arrives in time.
	ErrAnnotationTimeout = errors.New("annotation wait timed out")
)

// Display is the text and actions shown to the operator for the turn.
type Display struct {
	Text    string          `json:"text"`
	Actions []action.Action `json:"actions"`
}

// Snapshot is the externally visible state document.
type Snapshot struct {
	RunID        string  `json:"run_id"`
	Phase        Phase   `json:"phase"`
	Turn         int     `json:"turn"`
	PendingSeq   int     `json:"pending_seq"`
	AnnotatedSeq int     `json:"annotated_seq"`
	RawSeq       int     `json:"raw_seq"`
	Error        string  `json:"error"`
	Text         string  `json:"text"`
	Display      Display `json:"display"`
	MsgID        int     `json:"msg_id"`
}

// Frame is the latest raw frame plus the overlays the renderer should draw.
type Frame struct {
	Seq      int               `json:"seq"`
	RawB64   string            `json:"raw_b64"`
	Overlays []overlay.Overlay `json:"overlays"`
}

// State is the single owner of session data.
type State struct {
	mu sync.Mutex

	runID        string
	phase        Phase
	turn         int
	errText      string
	vlmText      string
	display      Display
	rawB64       string
	rawSeq       int
	overlays     []overlay.Overlay
	pendingSeq   int
	annotatedSeq int
	annotatedB64 string
	ready        chan struct{}
	version      uint64
}

// New returns an idle state with a fresh run id.
func New() *State {
	return &State{
		runID:        uuid.NewString(),
		phase:        PhaseInit,
		annotatedSeq: -1,
		overlays:     []overlay.Overlay{},
		display:      Display{Actions: []action.Action{}},
		ready:        make(chan struct{}),
	}
}

// RunID identifies this process run.
func (s *State) RunID() string { return s.runID }

// touch records a mutation; callers hold mu.
func (s *State) touch() { s.version++ }

// Version increases on every mutation. Watchers poll it to detect change.
func (s *State) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// BeginTurn advances the turn counter and returns the new turn.
func (s *State) BeginTurn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turn++
	s.phase = PhaseRunning
	s.touch()
	return s.turn
}

// Turn returns the current turn.
func (s *State) Turn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turn
}

// SetPhase records the engine's phase.
func (s *State) SetPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = p
	s.touch()
}

// Phase returns the engine's phase.
func (s *State) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// SetError moves to the error phase with a message.
func (s *State) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseError
	s.errText = msg
	s.touch()
}

// SetRawFrame stores a freshly captured frame and bumps raw_seq.
func (s *State) SetRawFrame(b64 string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawB64 = b64
	s.rawSeq++
	s.touch()
	return s.rawSeq
}

// SetDisplayActions publishes the actions about to run.
func (s *State) SetDisplayActions(actions []action.Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.display.Actions = append([]action.Action{}, actions...)
	s.touch()
}

// DisplayActions returns a copy of the actions last published.
func (s *State) DisplayActions() []action.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]action.Action{}, s.display.Actions...)
}

// SetText records the model response shown for the turn.
func (s *State) SetText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vlmText = text
	s.display.Text = text
	s.touch()
}

// Publish makes overlays pending for the current turn and returns the
// sequence number the renderer must answer with. Any earlier pending
// sequence is superseded.
func (s *State) Publish(overlays []overlay.Overlay) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if overlays == nil {
		overlays = []overlay.Overlay{}
	}
	s.overlays = overlays
	s.pendingSeq = s.turn
	s.annotatedSeq = -1
	s.annotatedB64 = ""
	s.ready = make(chan struct{})
	s.phase = PhaseWaitingAnnotated
	s.touch()
	return s.pendingSeq
}

// SubmitAnnotated accepts the annotated image for seq. Only the pending
// sequence is accepted, and only once. Nothing is pending before the first
// Publish. Rejected submissions leave state untouched.
func (s *State) SubmitAnnotated(seq int, imageB64 string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingSeq < 1 || seq != s.pendingSeq || s.annotatedSeq == s.pendingSeq {
		return ErrSeqMismatch
	}
	if len(imageB64) < MinAnnotatedLen {
		return ErrImageTooShort
	}
	s.annotatedB64 = imageB64
	s.annotatedSeq = seq
	close(s.ready)
	s.touch()
	return nil
}

// WaitAnnotated blocks until the annotation for seq arrives, the timeout
// elapses, or ctx ends. A non-positive timeout waits without limit.
func (s *State) WaitAnnotated(ctx context.Context, seq int, timeout time.Duration) (string, error) {
	s.mu.Lock()
	if seq != s.pendingSeq {
		s.mu.Unlock()
		return "", fmt.Errorf("wait for seq %d: %w", seq, ErrSeqMismatch)
	}
	ready := s.ready
	s.mu.Unlock()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-ready:
	case <-expired:
		return "", ErrAnnotationTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.annotatedSeq != seq {
		return "", fmt.Errorf("wait for seq %d: %w", seq, ErrSeqMismatch)
	}
	return s.annotatedB64, nil
}

// Snapshot returns the state document.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		RunID:        s.runID,
		Phase:        s.phase,
		Turn:         s.turn,
		PendingSeq:   s.pendingSeq,
		AnnotatedSeq: s.annotatedSeq,
		RawSeq:       s.rawSeq,
		Error:        s.errText,
		Text:         s.display.Text,
		Display: Display{
			Text:    s.display.Text,
			Actions: append([]action.Action{}, s.display.Actions...),
		},
		MsgID: s.turn,
	}
}

// Frame returns the latest raw frame and pending overlays.
func (s *State) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Frame{
		Seq:      s.rawSeq,
		RawB64:   s.rawB64,
		Overlays: append([]overlay.Overlay{}, s.overlays...),
	}
}
