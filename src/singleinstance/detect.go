package singleinstance

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

const probeTimeout = 300 * time.Millisecond

// Resident describes the pilot found on an address.
type Resident struct {
	RunID string `json:"run_id"`
	Phase string `json:"phase"`
	Turn  int    `json:"turn"`
}

// Detect reports whether a pilot answers GET /state on addr.
func Detect(ctx context.Context, addr string) (Resident, bool) {
	deadline := probeTimeout
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < deadline {
			deadline = d
		}
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/state", nil)
	if err != nil {
		return Resident{}, false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Resident{}, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Resident{}, false
	}

	var r Resident
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&r); err != nil || r.RunID == "" {
		return Resident{}, false
	}
	return r, true
}
