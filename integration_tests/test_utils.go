//go:build integration
// +build integration

package integration_tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/conneroisu/tatum/internal/config"
	"github.com/conneroisu/tatum/internal/scaffolding"
	"github.com/conneroisu/tatum/internal/server"
	"github.com/stretchr/testify/require"
)

// TestServerConfig contains configuration for test server setup
type TestServerConfig struct {
	ReadinessTimeout time.Duration
	PollInterval     time.Duration
}

// DefaultTestConfig returns a default test configuration
func DefaultTestConfig() *TestServerConfig {
	return &TestServerConfig{
		ReadinessTimeout: 10 * time.Second,
		PollInterval:     50 * time.Millisecond,
	}
}

// WaitForServerReadiness polls target until it answers 200 OK.
func WaitForServerReadiness(ctx context.Context, target string, cfg *TestServerConfig) error {
	if cfg == nil {
		cfg = DefaultTestConfig()
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ReadinessTimeout)
	defer cancel()

	client := &http.Client{Timeout: time.Second}
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return err
		}
		if resp, err := client.Do(req); err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("server at %s not ready: %w", target, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Project is a scaffolded project with a running preview server.
type Project struct {
	Dir    string
	Server *server.PreviewServer
}

// NewProject scaffolds the builtin templates into a temporary directory
// and starts a preview server using the named template.
func NewProject(t *testing.T, template string) *Project {
	t.Helper()

	dir := t.TempDir()
	_, err := scaffolding.Init(dir)
	require.NoError(t, err)

	cfg := &config.Config{
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: 0, Root: dir},
		Template: config.TemplateConfig{Path: filepath.Join(dir, scaffolding.Dir, template)},
		Watch:    config.WatchConfig{Debounce: 50 * time.Millisecond, PollInterval: 200 * time.Millisecond},
		Log:      config.LogConfig{Level: "error", Format: "text"},
	}

	srv, err := server.New(cfg, nil, nil)
	require.NoError(t, err)
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	t.Cleanup(func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
		cancel()
		<-errCh
	})

	return &Project{Dir: dir, Server: srv}
}

// Write creates or replaces a document inside the project.
func (p *Project) Write(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(p.Dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

// DocumentURL returns the page URL for a document relative to the root.
func (p *Project) DocumentURL(doc string) string {
	return p.Server.URL() + "/?path=" + url.QueryEscape(doc)
}

// Watch opens a reload session for doc.
func (p *Project) Watch(t *testing.T, doc string) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(p.Server.URL(), "http") + "/watch?path=" + url.QueryEscape(doc)
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"Origin": []string{p.Server.URL()}},
	})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	require.Eventually(t, func() bool { return p.Server.SessionCount() > 0 }, 2*time.Second, 10*time.Millisecond)

	return conn
}

// NextMessage reads one update from conn.
func NextMessage(t *testing.T, conn *websocket.Conn, within time.Duration) (server.UpdateMessage, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), within)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		return server.UpdateMessage{}, err
	}

	var msg server.UpdateMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg, nil
}
