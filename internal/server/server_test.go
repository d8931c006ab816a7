package server

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion(t *testing.T) {
	assert.Equal(t, "dev", Version)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Handler: http.NotFoundHandler()})
	assert.Error(t, err)

	_, err = New(Config{Address: ":0"})
	assert.Error(t, err)

	s, err := New(Config{Address: ":0", Handler: http.NotFoundHandler()})
	require.NoError(t, err)
	assert.Equal(t, defaultShutdownTimeout, s.shutdownTimeout)
}

func TestServe_ServesUntilCancelled(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})
	s, err := New(Config{Address: "127.0.0.1:0", Handler: handler, ShutdownTimeout: time.Second})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	select {
	case <-s.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("server never became ready")
	}

	resp, err := http.Get("http://" + s.Addr().String() + "/ping")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "pong", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServe_ListenError(t *testing.T) {
	s, err := New(Config{Address: "256.0.0.1:99999", Handler: http.NotFoundHandler()})
	require.NoError(t, err)
	assert.ErrorContains(t, s.Serve(context.Background()), "listening on")
}
