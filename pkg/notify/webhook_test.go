package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPayload() Payload {
	return Payload{
		Type:     "update",
		Username: "alice",
		Service:  "api",
		Params:   map[string]any{"image": "myapp"},
		Time:     1700000000000,
	}
}

func TestWebhookDispatcher_PostsPayload(t *testing.T) {
	var (
		gotBody        []byte
		gotContentType string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	d := NewWebhookDispatcher([]string{srv.URL}, time.Second, nil)
	d.Send(context.Background(), testPayload())

	assert.Equal(t, "application/json", gotContentType)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	assert.Equal(t, "update", decoded["type"])
	assert.Equal(t, "alice", decoded["username"])
	assert.Equal(t, "api", decoded["service"])
	assert.Equal(t, float64(1700000000000), decoded["time"])
	assert.Equal(t, map[string]any{"image": "myapp"}, decoded["params"])
}

func TestWebhookDispatcher_TargetsAreIndependent(t *testing.T) {
	var okHits, failHits atomic.Int32

	okSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		okHits.Add(1)
	}))
	defer okSrv.Close()

	failSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		failHits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failSrv.Close()

	// The failing target comes first and must not stop the healthy one.
	d := NewWebhookDispatcher([]string{failSrv.URL, okSrv.URL}, time.Second, nil)
	d.Send(context.Background(), testPayload())

	assert.Equal(t, int32(1), failHits.Load())
	assert.Equal(t, int32(1), okHits.Load())
}

func TestWebhookDispatcher_NoURLsIsNoop(t *testing.T) {
	d := NewWebhookDispatcher(nil, time.Second, nil)
	// Must not panic or block.
	d.Send(context.Background(), testPayload())
}

func TestWebhookDispatcher_UnreachableTargetDoesNotError(t *testing.T) {
	d := NewWebhookDispatcher([]string{"http://127.0.0.1:1/hook"}, 50*time.Millisecond, nil)
	// Delivery failure is swallowed.
	d.Send(context.Background(), testPayload())
}
