// Package handoff serves the session state to the external renderer and
// accepts its annotated frames, fenced by sequence number.
package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"screen-pilot/src/metrics"
	"screen-pilot/src/session"
)

const (
	maxBodyBytes      = 64 << 20
	defaultPollPeriod = 250 * time.Millisecond
	wsWriteWait       = 10 * time.Second
	shutdownGrace     = 5 * time.Second
)

// Options configures the server.
type Options struct {
	Host string
	Port int
	// PollInterval is how often /ws checks the state for changes.
	PollInterval time.Duration
	Metrics      *metrics.Metrics
}

// Server exposes /state, /frame, /annotated, /ws and /metrics.
type Server struct {
	state    *session.State
	opts     Options
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
}

// New builds a server over state.
func New(state *session.State, opts Options) (*Server, error) {
	if state == nil {
		return nil, errors.New("session state is required")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollPeriod
	}
	return &Server{
		state:   state,
		opts:    opts,
		metrics: opts.Metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 64 * 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
	}, nil
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleNotFound)
	mux.HandleFunc("/state", s.handleState)
	mux.HandleFunc("/frame", s.handleFrame)
	mux.HandleFunc("/annotated", s.handleAnnotated)
	mux.HandleFunc("/ws", s.handleWS)
	mux.Handle("/metrics", promhttp.Handler())
	return withCORS(mux)
}

// Run serves until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("HANDOFF: serving on http://%s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("HANDOFF: shutdown: %v", err)
		}
		<-errCh
		return nil
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.handleNotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, s.state.Snapshot())
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.handleNotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, s.state.Frame())
}

func (s *Server) handleAnnotated(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.handleNotFound(w, r)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.reject(w, http.StatusBadRequest, "bad json")
		return
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		s.reject(w, http.StatusBadRequest, "bad json")
		return
	}

	seq := seqValue(fields["seq"])
	var image string
	if raw, ok := fields["image_b64"]; ok {
		_ = json.Unmarshal(raw, &image)
	}

	switch err := s.state.SubmitAnnotated(seq, image); {
	case errors.Is(err, session.ErrSeqMismatch):
		s.metrics.Submission("conflict")
		log.Printf("HANDOFF: rejected annotated frame for seq %d", seq)
		writeJSON(w, http.StatusConflict, map[string]any{"ok": false, "err": "seq mismatch"})
	case errors.Is(err, session.ErrImageTooShort):
		s.reject(w, http.StatusBadRequest, "image too short")
	case err != nil:
		s.reject(w, http.StatusBadRequest, err.Error())
	default:
		s.metrics.Submission("accepted")
		log.Printf("HANDOFF: accepted annotated frame for seq %d (%d chars)", seq, len(image))
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "seq": seq})
	}
}

func (s *Server) reject(w http.ResponseWriter, status int, msg string) {
	s.metrics.Submission("rejected")
	writeJSON(w, status, map[string]any{"ok": false, "err": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// seqValue reads seq as a JSON number with an integral value, so 3 and 3.0
// are the same sequence. Anything else is -1, which never matches.
func seqValue(raw json.RawMessage) int {
	var n *float64
	if len(raw) == 0 || json.Unmarshal(raw, &n) != nil || n == nil {
		return -1
	}
	f := *n
	if f != math.Trunc(f) || f < 0 || f > math.MaxInt32 {
		return -1
	}
	return int(f)
}
