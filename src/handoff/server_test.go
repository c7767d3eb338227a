package handoff

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"screen-pilot/src/overlay"
	"screen-pilot/src/session"
)

var img = strings.Repeat("Q", session.MinAnnotatedLen)

func newTestServer(t *testing.T) (*session.State, *httptest.Server) {
	t.Helper()
	state := session.New()
	srv, err := New(state, Options{PollInterval: 10 * time.Millisecond})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return state, ts
}

func post(t *testing.T, url, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func get(t *testing.T, url string, into any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if into != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	}
	return resp
}

func TestNewRequiresState(t *testing.T) {
	_, err := New(nil, Options{})
	assert.Error(t, err)
}

func TestStateEndpoint(t *testing.T) {
	state, ts := newTestServer(t)
	state.BeginTurn()
	state.SetText("hello")

	var snap session.Snapshot
	resp := get(t, ts.URL+"/state", &snap)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, 1, snap.Turn)
	assert.Equal(t, "hello", snap.Text)
	assert.Equal(t, state.RunID(), snap.RunID)
	assert.Equal(t, 1, snap.MsgID)
}

func TestFrameEndpoint(t *testing.T) {
	state, ts := newTestServer(t)
	state.BeginTurn()
	state.SetRawFrame("cmF3")
	state.Publish([]overlay.Overlay{overlay.Cursor(10, 20)})

	var f session.Frame
	get(t, ts.URL+"/frame", &f)
	assert.Equal(t, 1, f.Seq)
	assert.Equal(t, "cmF3", f.RawB64)
	require.Len(t, f.Overlays, 1)
	assert.Equal(t, "[10,20]", f.Overlays[0].Label)
}

func TestAnnotatedFencing(t *testing.T) {
	state, ts := newTestServer(t)
	state.BeginTurn()
	state.Publish(nil)
	state.BeginTurn()
	seq := state.Publish(nil)

	code, body := post(t, ts.URL+"/annotated", `{"seq":1,"image_b64":"`+img+`"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "seq mismatch", body["err"])
	assert.Equal(t, -1, state.Snapshot().AnnotatedSeq)

	code, body = post(t, ts.URL+"/annotated", `{"seq":2,"image_b64":"`+img+`"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(seq), body["seq"])

	got, err := state.WaitAnnotated(context.Background(), seq, time.Second)
	require.NoError(t, err)
	assert.Equal(t, img, got)
}

func TestAnnotatedAcceptsIntegralFloatSeq(t *testing.T) {
	state, ts := newTestServer(t)
	state.BeginTurn()
	state.Publish(nil)
	state.BeginTurn()
	seq := state.Publish(nil)

	code, body := post(t, ts.URL+"/annotated", `{"seq":2.0,"image_b64":"`+img+`"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(seq), body["seq"])
	assert.Equal(t, seq, state.Snapshot().AnnotatedSeq)
}

func TestSeqValue(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"3", 3},
		{"3.0", 3},
		{"3e0", 3},
		{"3.5", -1},
		{"-1", -1},
		{`"3"`, -1},
		{"null", -1},
		{"1e300", -1},
		{"", -1},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, seqValue(json.RawMessage(tt.raw)))
		})
	}
}

func TestAnnotatedBadRequests(t *testing.T) {
	state, ts := newTestServer(t)
	state.BeginTurn()
	state.Publish(nil)

	tests := []struct {
		name string
		body string
		code int
		err  string
	}{
		{"not json", `{{{`, http.StatusBadRequest, "bad json"},
		{"array", `[1,2]`, http.StatusBadRequest, "bad json"},
		{"missing seq", `{"image_b64":"` + img + `"}`, http.StatusConflict, "seq mismatch"},
		{"string seq", `{"seq":"1","image_b64":"` + img + `"}`, http.StatusConflict, "seq mismatch"},
		{"fractional seq", `{"seq":1.5,"image_b64":"` + img + `"}`, http.StatusConflict, "seq mismatch"},
		{"short image", `{"seq":1,"image_b64":"abc"}`, http.StatusBadRequest, "image too short"},
		{"image not string", `{"seq":1,"image_b64":5}`, http.StatusBadRequest, "image too short"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := post(t, ts.URL+"/annotated", tt.body)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.err, body["err"])
		})
	}
	assert.Equal(t, -1, state.Snapshot().AnnotatedSeq)
}

func TestOptionsAndNotFound(t *testing.T) {
	_, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/annotated", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "GET,POST,OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", resp.Header.Get("Access-Control-Allow-Headers"))

	var body map[string]any
	resp = get(t, ts.URL+"/nope", &body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not found", body["error"])

	resp = get(t, ts.URL+"/annotated", &body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), "go_goroutines")
}

func TestWebsocketPushesChanges(t *testing.T) {
	state, ts := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var snap session.Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, 0, snap.Turn)

	state.BeginTurn()
	for snap.Turn != 1 {
		require.NoError(t, conn.ReadJSON(&snap))
	}
	assert.Equal(t, session.PhaseRunning, snap.Phase)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	srv, err := New(session.New(), Options{Host: "127.0.0.1"})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/state")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	http.DefaultClient.CloseIdleConnections()
}
