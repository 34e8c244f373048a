package api

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/homeledger/incident-engine/internal/logger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestServer_RecoversFromPanic(t *testing.T) {
	s := NewServer(logger.Nop(), 0)
	s.Echo().GET("/boom", func(echo.Context) error { panic("kaboom") })

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", http.NoBody))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_SetsRequestDeadline(t *testing.T) {
	s := NewServer(logger.Nop(), 250*time.Millisecond)
	var remaining time.Duration
	s.Echo().GET("/deadline", func(c echo.Context) error {
		deadline, ok := c.Request().Context().Deadline()
		require.True(t, ok)
		remaining = time.Until(deadline)
		return c.NoContent(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/deadline", http.NoBody))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Greater(t, remaining, time.Duration(0))
	assert.LessOrEqual(t, remaining, 250*time.Millisecond)
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := NewServer(logger.Nop(), 0)
	s.Echo().GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	client := &http.Client{Timeout: 2 * time.Second}
	url := "http://" + ln.Addr().String() + "/ping"
	require.Eventually(t, func() bool {
		resp, err := client.Get(url)
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	client.CloseIdleConnections()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
