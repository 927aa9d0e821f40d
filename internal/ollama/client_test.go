package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func streamServer(t *testing.T, lines ...string) (*httptest.Server, *ChatRequest) {
	t.Helper()
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, l := range lines {
			w.Write([]byte(l + "\n"))
			w.(http.Flusher).Flush()
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestClientChat(t *testing.T) {
	t.Run("streams chunks until done", func(t *testing.T) {
		srv, got := streamServer(t,
			`{"message":{"role":"assistant","content":"Hel"},"done":false}`,
			`{"message":{"role":"assistant","content":"lo"},"done":false}`,
			`{"message":{"role":"assistant","content":""},"done":true}`,
			`{"message":{"role":"assistant","content":"ignored"},"done":false}`,
		)

		var chunks []string
		reply, err := NewClient(srv.URL+"/").Chat(context.Background(), ChatRequest{
			Model:    "gemma3",
			Messages: []Message{{Role: RoleSystem, Content: "be brief"}, {Role: RoleUser, Content: "hi"}},
		}, func(c string) { chunks = append(chunks, c) })

		require.NoError(t, err)
		assert.Equal(t, "Hello", reply)
		assert.Equal(t, []string{"Hel", "lo"}, chunks)
		assert.Equal(t, "gemma3", got.Model)
		assert.True(t, got.Stream, "stream is always requested")
		assert.Len(t, got.Messages, 2)
	})

	t.Run("skips undecodable lines", func(t *testing.T) {
		srv, _ := streamServer(t,
			`not json`,
			``,
			`{"message":{"role":"assistant","content":"ok"},"done":true}`,
		)

		reply, err := NewClient(srv.URL).Chat(context.Background(), ChatRequest{Model: "m"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "ok", reply)
	})

	t.Run("stream without done returns what arrived", func(t *testing.T) {
		srv, _ := streamServer(t, `{"message":{"role":"assistant","content":"partial"}}`)

		reply, err := NewClient(srv.URL).Chat(context.Background(), ChatRequest{Model: "m"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "partial", reply)
	})

	t.Run("error line is returned", func(t *testing.T) {
		srv, _ := streamServer(t, `{"error":"model 'nope' not found"}`)

		_, err := NewClient(srv.URL).Chat(context.Background(), ChatRequest{Model: "nope"}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("non-2xx status is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).Chat(context.Background(), ChatRequest{Model: "m"}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "500")
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("unreachable server is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := NewClient(url).Chat(context.Background(), ChatRequest{Model: "m"}, nil)
		assert.Error(t, err)
	})
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("")
	assert.Equal(t, DefaultBaseURL, c.BaseURL)
	assert.NotNil(t, c.HTTP)
}
