package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T, f *fixture) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(f.server.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = f.server.Shutdown(ctx)
		srv.Close()
	})

	return srv
}

func dialWatch(t *testing.T, srv *httptest.Server, doc string) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/watch?path=" + url.QueryEscape(doc)
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{srv.URL}},
	})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn, within time.Duration) (UpdateMessage, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), within)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		return UpdateMessage{}, err
	}

	var msg UpdateMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg, nil
}

func waitForSessions(t *testing.T, s *PreviewServer, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return s.SessionCount() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestWatchSendsReload(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "doc.md", "# v1\n")
	srv := startTestServer(t, f)

	conn := dialWatch(t, srv, "doc.md")
	waitForSessions(t, f.server, 1)

	require.NoError(t, os.WriteFile(path, []byte("# version two\n"), 0o644))

	msg, err := readMessage(t, conn, 3*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "reload", msg.Type)
	assert.Equal(t, "doc.md", msg.Path)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestWatchOneMessagePerBurst(t *testing.T) {
	f := newFixture(t)
	f.cfg.Watch.Debounce = 150 * time.Millisecond
	path := f.write(t, "doc.md", "start")
	srv := startTestServer(t, f)

	conn := dialWatch(t, srv, "doc.md")
	waitForSessions(t, f.server, 1)

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", i+10)), 0o644))
		time.Sleep(20 * time.Millisecond)
	}

	msg, err := readMessage(t, conn, 3*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "reload", msg.Type)

	_, err = readMessage(t, conn, 400*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWatchSessionsAreIndependent(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "doc.md", "v1")
	srv := startTestServer(t, f)

	first := dialWatch(t, srv, "doc.md")
	second := dialWatch(t, srv, "doc.md")
	waitForSessions(t, f.server, 2)

	// one tab closes; the other keeps watching
	require.NoError(t, first.Close(websocket.StatusNormalClosure, "tab closed"))
	waitForSessions(t, f.server, 1)

	require.NoError(t, os.WriteFile(path, []byte("v2 with more"), 0o644))

	msg, err := readMessage(t, second, 3*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "reload", msg.Type)
}

func TestWatchDisconnectTearsDownSession(t *testing.T) {
	f := newFixture(t)
	f.write(t, "doc.md", "v1")
	srv := startTestServer(t, f)

	conn := dialWatch(t, srv, "doc.md")
	waitForSessions(t, f.server, 1)

	require.NoError(t, conn.Close(websocket.StatusGoingAway, "navigated away"))
	waitForSessions(t, f.server, 0)
}

func TestWatchLostDocument(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "doc.md", "v1")
	srv := startTestServer(t, f)

	conn := dialWatch(t, srv, "doc.md")
	waitForSessions(t, f.server, 1)

	require.NoError(t, os.Remove(path))

	msg, err := readMessage(t, conn, 3*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "lost", msg.Type)

	_, err = readMessage(t, conn, 3*time.Second)
	assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))
	waitForSessions(t, f.server, 0)
}

func TestWatchRejectsForeignOrigin(t *testing.T) {
	f := newFixture(t)
	f.write(t, "doc.md", "v1")
	srv := startTestServer(t, f)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/watch?path=doc.md"
	_, res, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{"http://evil.example"}},
	})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Equal(t, 0, f.server.SessionCount())
}

func TestWatchRejectsPathOutsideRoot(t *testing.T) {
	f := newFixture(t)
	srv := startTestServer(t, f)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/watch?path=" + url.QueryEscape("../x.md")
	_, res, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{srv.URL}},
	})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestShutdownClosesSessions(t *testing.T) {
	f := newFixture(t)
	f.write(t, "doc.md", "v1")
	srv := startTestServer(t, f)

	conn := dialWatch(t, srv, "doc.md")
	waitForSessions(t, f.server, 1)

	// keep reading so the close handshake completes
	readErr := make(chan error, 1)
	go func() {
		_, _, err := conn.Read(context.Background())
		readErr <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.server.Shutdown(ctx))

	select {
	case err := <-readErr:
		assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
	case <-time.After(5 * time.Second):
		t.Fatal("client was not disconnected")
	}
	assert.Equal(t, 0, f.server.SessionCount())

	// new watch connections are refused once shut down
	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dialCancel()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/watch?path=doc.md"
	_, res, err := websocket.Dial(dialCtx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{srv.URL}},
	})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
}

func TestCheckOrigin(t *testing.T) {
	f := newFixture(t)
	f.cfg.Server.Port = 8080
	f.cfg.Server.AllowedOrigins = []string{"https://preview.example:8443"}

	tests := []struct {
		name     string
		host     string
		origin   string
		expected bool
	}{
		{"same origin", "127.0.0.1:8080", "http://127.0.0.1:8080", true},
		{"same origin other host", "box:9000", "http://box:9000", true},
		{"localhost alias", "127.0.0.1:8080", "http://localhost:8080", true},
		{"ipv6 loopback alias", "127.0.0.1:8080", "http://[::1]:8080", true},
		{"configured origin", "127.0.0.1:8080", "https://preview.example:8443", true},
		{"https same origin", "127.0.0.1:8080", "https://127.0.0.1:8080", true},
		{"missing origin", "127.0.0.1:8080", "", false},
		{"other port", "127.0.0.1:8080", "http://localhost:3000", false},
		{"foreign host", "127.0.0.1:8080", "http://evil.example", false},
		{"bad scheme", "127.0.0.1:8080", "file://127.0.0.1:8080", false},
		{"javascript scheme", "127.0.0.1:8080", "javascript:alert(1)", false},
		{"unparseable", "127.0.0.1:8080", "http://[::1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/watch", nil)
			req.Host = tt.host
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}

			_, ok := f.server.checkOrigin(req)
			assert.Equal(t, tt.expected, ok)
		})
	}
}
