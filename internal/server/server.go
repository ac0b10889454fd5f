// Package server runs the live preview: it renders documents on request
// and keeps one watch session per browser connection so open pages reload
// when their document changes.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/conneroisu/tatum/internal/config"
	terrors "github.com/conneroisu/tatum/internal/errors"
	"github.com/conneroisu/tatum/internal/logging"
	"github.com/conneroisu/tatum/internal/renderer"
	"github.com/conneroisu/tatum/internal/watcher"
)

// UpdateMessage is sent to the browser over the watch connection.
type UpdateMessage struct {
	Type      string    `json:"type"`
	Path      string    `json:"path,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PreviewServer serves rendered documents with live reload.
type PreviewServer struct {
	config   *config.Config
	renderer *renderer.Renderer
	logger   logging.Logger
	root     string

	httpServer  *http.Server
	listener    net.Listener
	serverMutex sync.RWMutex

	sessions      map[*watcher.Session]struct{}
	sessionsMutex sync.Mutex
	sessionsWG    sync.WaitGroup

	// baseCtx parents every watch session and is cancelled on shutdown.
	baseCtx      context.Context
	cancelBase   context.CancelFunc
	shutdownOnce sync.Once
	isShutdown   atomic.Bool
}

// New creates a preview server. A nil renderer gets a fresh one.
func New(cfg *config.Config, r *renderer.Renderer, logger logging.Logger) (*PreviewServer, error) {
	if cfg == nil {
		return nil, terrors.NewConfigError("preview server needs a configuration", nil)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.WithComponent("server")
	if r == nil {
		r = renderer.New(nil, nil, logger)
	}

	root := cfg.Server.Root
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, terrors.NewConfigError("invalid document root", err)
	}

	baseCtx, cancel := context.WithCancel(context.Background())

	return &PreviewServer{
		config:     cfg,
		renderer:   r,
		logger:     logger,
		root:       root,
		sessions:   make(map[*watcher.Session]struct{}),
		baseCtx:    baseCtx,
		cancelBase: cancel,
	}, nil
}

// Handler returns the server's routes wrapped in middleware.
func (s *PreviewServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRender)
	mux.HandleFunc("/render", s.handleRender)
	mux.HandleFunc("/watch", s.handleWatch)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/static/", s.staticHandler())

	return s.addMiddleware(mux)
}

// Listen binds the configured address. Port 0 picks a free port; Addr
// reports the result.
func (s *PreviewServer) Listen() error {
	ln, err := net.Listen("tcp", s.config.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.Addr(), err)
	}

	s.serverMutex.Lock()
	s.listener = ln
	s.serverMutex.Unlock()

	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *PreviewServer) Addr() string {
	s.serverMutex.RLock()
	defer s.serverMutex.RUnlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Server.Addr()
}

// URL returns the base URL of the running server.
func (s *PreviewServer) URL() string {
	return "http://" + s.Addr()
}

// Start serves until Shutdown. It calls Listen first when needed.
func (s *PreviewServer) Start(ctx context.Context) error {
	if s.isShutdown.Load() {
		return http.ErrServerClosed
	}

	s.serverMutex.RLock()
	ln := s.listener
	s.serverMutex.RUnlock()
	if ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	s.serverMutex.Lock()
	ln = s.listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	s.logger.Info(ctx, "Preview server listening",
		"url", s.URL(),
		"root", s.root,
		"template", s.config.Template.Path)

	if s.config.Server.Open != "" {
		go s.openBrowser(ctx, s.documentURL(s.config.Server.Open))
	}

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

func (s *PreviewServer) documentURL(doc string) string {
	return s.URL() + "/?path=" + url.QueryEscape(doc)
}

func (s *PreviewServer) openBrowser(ctx context.Context, target string) {
	time.Sleep(100 * time.Millisecond) // Give server time to start

	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", target).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", target).Start()
	case "darwin":
		err = exec.Command("open", target).Start()
	default:
		err = fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}

	if err != nil {
		s.logger.Warn(ctx, err, "Failed to open browser", "url", target)
	}
}

// SessionCount returns the number of open watch sessions.
func (s *PreviewServer) SessionCount() int {
	s.sessionsMutex.Lock()
	defer s.sessionsMutex.Unlock()

	return len(s.sessions)
}

func (s *PreviewServer) track(session *watcher.Session) bool {
	s.sessionsMutex.Lock()
	defer s.sessionsMutex.Unlock()

	if s.isShutdown.Load() {
		return false
	}
	s.sessions[session] = struct{}{}
	s.sessionsWG.Add(1)

	return true
}

func (s *PreviewServer) untrack(session *watcher.Session) {
	s.sessionsMutex.Lock()
	delete(s.sessions, session)
	s.sessionsMutex.Unlock()
	s.sessionsWG.Done()
}

// Shutdown stops accepting requests, ends every watch session and waits
// for them to finish or for ctx to expire.
func (s *PreviewServer) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")

		s.sessionsMutex.Lock()
		s.isShutdown.Store(true)
		s.sessionsMutex.Unlock()

		s.cancelBase()

		s.serverMutex.RLock()
		server := s.httpServer
		ln := s.listener
		s.serverMutex.RUnlock()

		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		} else if ln != nil {
			shutdownErr = ln.Close()
		}

		done := make(chan struct{})
		go func() {
			s.sessionsWG.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			if shutdownErr == nil {
				shutdownErr = ctx.Err()
			}
		}
	})

	return shutdownErr
}
