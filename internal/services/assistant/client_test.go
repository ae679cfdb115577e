package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svcErr "aigyoo-backend/internal/errors"
	"aigyoo-backend/internal/models"
)

type fakeProvider struct {
	mu       sync.Mutex
	tried    []string
	headers  http.Header
	messages []map[string]string
	// replies maps a model to the chunks it streams; a missing model gets 429.
	replies map[string][]string
}

func (f *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Model    string              `json:"model"`
		Messages []map[string]string `json:"messages"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.tried = append(f.tried, body.Model)
	f.headers = r.Header.Clone()
	f.messages = body.Messages
	chunks, ok := f.replies[body.Model]
	f.mu.Unlock()

	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit","code":429}}`))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	for _, c := range chunks {
		payload, _ := json.Marshal(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion.chunk",
			"created": 1,
			"model":   body.Model,
			"choices": []map[string]any{{"index": 0, "delta": map[string]string{"content": c}}},
		})
		fmt.Fprintf(w, "data: %s\n\n", payload)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func newTestClient(t *testing.T, p *fakeProvider, modelList ...string) *Client {
	t.Helper()
	srv := httptest.NewServer(p)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		BaseURL:     srv.URL + "/v1",
		APIKey:      "test-key",
		Models:      modelList,
		Temperature: 0.7,
		MaxTokens:   2000,
		SiteURL:     "https://app.example.com",
	})
}

var transcript = []models.ChatMessage{{Role: "user", Content: "I have a headache"}}

func TestStream_FallsBackToNextModel(t *testing.T) {
	p := &fakeProvider{replies: map[string][]string{
		"second": {"Drink ", "water."},
	}}
	c := newTestClient(t, p, "first", "second", "third")

	var got strings.Builder
	reply, err := c.Stream(context.Background(), "", transcript, func(d Delta) error {
		got.WriteString(d.Content)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "second", reply.Model)
	assert.Equal(t, "Drink water.", reply.Message.Content)
	assert.Equal(t, "assistant", reply.Message.Role)
	assert.Equal(t, "Drink water.", got.String())
	assert.Equal(t, []string{"first", "second"}, p.tried)

	assert.Equal(t, "Bearer test-key", p.headers.Get("Authorization"))
	assert.Equal(t, "https://app.example.com", p.headers.Get("HTTP-Referer"))
	assert.Equal(t, "AI Doctor Assistant", p.headers.Get("X-Title"))

	require.Len(t, p.messages, 2)
	assert.Equal(t, "system", p.messages[0]["role"])
	assert.Equal(t, "I have a headache", p.messages[1]["content"])
}

func TestStream_EmptyReplyFallsBack(t *testing.T) {
	p := &fakeProvider{replies: map[string][]string{
		"first":  {},
		"second": {"ok"},
	}}
	c := newTestClient(t, p, "first", "second")

	reply, err := c.Stream(context.Background(), "", transcript, func(Delta) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "second", reply.Model)
}

func TestStream_AllModelsFail(t *testing.T) {
	p := &fakeProvider{}
	c := newTestClient(t, p, "first", "second")

	_, err := c.Stream(context.Background(), "", transcript, func(Delta) error { return nil })
	require.Error(t, err)
	assert.True(t, svcErr.Is(err, svcErr.KindExternalService))
	assert.Equal(t, []string{"first", "second"}, p.tried)
}

func TestStream_CallbackErrorStops(t *testing.T) {
	p := &fakeProvider{replies: map[string][]string{
		"first":  {"a", "b"},
		"second": {"c"},
	}}
	c := newTestClient(t, p, "first", "second")

	gone := errors.New("client gone")
	_, err := c.Stream(context.Background(), "", transcript, func(Delta) error { return gone })
	require.ErrorIs(t, err, gone)
	assert.Equal(t, []string{"first"}, p.tried)
}

func TestStream_Validation(t *testing.T) {
	c := NewClient(Options{BaseURL: "http://localhost", Models: []string{"m"}})

	_, err := c.Stream(context.Background(), "", transcript, func(Delta) error { return nil })
	assert.True(t, svcErr.Is(err, svcErr.KindExternalService))

	_, err = c.Stream(context.Background(), "key", nil, func(Delta) error { return nil })
	assert.True(t, svcErr.Is(err, svcErr.KindValidation))
}

func TestFailureReply(t *testing.T) {
	msg := FailureReply("")
	assert.Contains(t, msg, EmergencyNotice)
	assert.Contains(t, msg, "Connection failed")
}
