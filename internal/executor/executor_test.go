package executor

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "gatekeeper/pkg/domain-errors"
)

func TestHTTPExecutor(t *testing.T) {
	t.Run("round trips query and response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/execute", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"response":"the course starts Monday"}`))
		}))
		defer server.Close()

		exec, err := NewHTTPExecutor(server.URL, time.Second)
		require.NoError(t, err)

		out, err := exec.Execute(context.Background(), "when does the course start", "alice")
		require.NoError(t, err)
		assert.Equal(t, "the course starts Monday", out)
	})

	t.Run("non-200 status maps to executor failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer server.Close()

		exec, err := NewHTTPExecutor(server.URL, time.Second)
		require.NoError(t, err)

		_, err = exec.Execute(context.Background(), "q", "alice")
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeExecutorFailure, dErrors.CodeOf(err))
	})

	t.Run("engine-reported error maps to executor failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"error":"model overloaded"}`))
		}))
		defer server.Close()

		exec, err := NewHTTPExecutor(server.URL, time.Second)
		require.NoError(t, err)

		_, err = exec.Execute(context.Background(), "q", "alice")
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeExecutorFailure, dErrors.CodeOf(err))
	})

	t.Run("cancelled context aborts the call", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Drain the body so the server can detect the client
			// disconnect and cancel the request context; otherwise
			// this handler never unblocks and Close deadlocks.
			io.Copy(io.Discard, r.Body)
			<-r.Context().Done()
		}))
		defer server.Close()

		exec, err := NewHTTPExecutor(server.URL, 10*time.Second)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err = exec.Execute(ctx, "q", "alice")
		require.Error(t, err)
	})

	t.Run("empty url rejected", func(t *testing.T) {
		_, err := NewHTTPExecutor("", time.Second)
		require.Error(t, err)
	})
}

func TestStatic(t *testing.T) {
	out, err := Static{Response: "ok"}.Execute(context.Background(), "anything", "alice")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}
