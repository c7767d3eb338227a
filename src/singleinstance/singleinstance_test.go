package singleinstance

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCheckFreeAddress(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("loopback unavailable: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	if err := Check(context.Background(), addr); err != nil {
		t.Fatalf("Check(%s) = %v, want nil", addr, err)
	}
}

func TestCheckDetectsResident(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/state" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"run_id":"abc-123","phase":"calling_vlm","turn":4}`))
	}))
	defer srv.Close()
	addr := strings.TrimPrefix(srv.URL, "http://")

	r, ok := Detect(context.Background(), addr)
	if !ok {
		t.Fatal("expected resident")
	}
	if r.RunID != "abc-123" || r.Turn != 4 || r.Phase != "calling_vlm" {
		t.Errorf("unexpected resident %+v", r)
	}

	err := Check(context.Background(), addr)
	if !errors.Is(err, ErrResident) {
		t.Fatalf("Check() = %v, want ErrResident", err)
	}
	if !strings.Contains(err.Error(), "abc-123") {
		t.Errorf("error should name the run: %v", err)
	}
}

func TestCheckForeignOwner(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("loopback unavailable: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err = Check(ctx, ln.Addr().String())
	if err == nil {
		t.Fatal("expected error for busy address")
	}
	if errors.Is(err, ErrResident) {
		t.Errorf("a non-pilot owner is not a resident: %v", err)
	}
}

func TestDetectIgnoresOtherServices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	if _, ok := Detect(context.Background(), strings.TrimPrefix(srv.URL, "http://")); ok {
		t.Error("a service without run_id is not a pilot")
	}
}
