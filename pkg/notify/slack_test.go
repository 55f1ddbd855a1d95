package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlackDispatcher_PostsMessage(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	d := NewSlackDispatcher(srv.URL, time.Second, nil)
	d.Send(context.Background(), SlackMessage{
		Fallback: "Scaled the api service to 3 container(s)",
		Text:     "Scaled the api service to 3 container(s)\n\n---",
		Color:    ColorExecuted,
		Fields: []SlackField{
			{Title: "User", Value: "alice", Short: true},
		},
	})

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	assert.Equal(t, "Scaled the api service to 3 container(s)", decoded["fallback"])
	assert.Equal(t, "good", decoded["color"])
	assert.Contains(t, decoded["text"], "---")

	fields, ok := decoded["fields"].([]any)
	require.True(t, ok)
	require.Len(t, fields, 1)
	field := fields[0].(map[string]any)
	assert.Equal(t, "User", field["title"])
	assert.Equal(t, "alice", field["value"])
	assert.Equal(t, true, field["short"])
}

func TestSlackDispatcher_EmptyURLIsNoop(t *testing.T) {
	d := NewSlackDispatcher("", time.Second, nil)
	d.Send(context.Background(), SlackMessage{Text: "hello"})
}

func TestSlackColors(t *testing.T) {
	assert.Equal(t, "danger", ColorBlocked)
	assert.Equal(t, "good", ColorExecuted)
}
