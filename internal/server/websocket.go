package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	terrors "github.com/conneroisu/tatum/internal/errors"
	"github.com/conneroisu/tatum/internal/watcher"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 54 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// handleWatch upgrades to a websocket and runs one watch session for the
// lifetime of the connection.
func (s *PreviewServer) handleWatch(w http.ResponseWriter, r *http.Request) {
	originHost, ok := s.checkOrigin(r)
	if !ok {
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	raw := r.URL.Query().Get("path")
	path, err := s.resolveDocument(raw)
	if err != nil {
		http.Error(w, err.Error(), terrors.HTTPStatus(err))
		return
	}

	if s.isShutdown.Load() {
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}

	session, err := watcher.NewSession(path, watcher.Options{
		Debounce:     s.config.Watch.Debounce,
		PollInterval: s.config.Watch.PollInterval,
		Logger:       s.logger,
	})
	if err != nil {
		http.Error(w, err.Error(), terrors.HTTPStatus(err))
		return
	}
	if !s.track(session) {
		session.Close()
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer s.untrack(session)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{originHost},
	})
	if err != nil {
		session.Close()
		s.logger.Warn(r.Context(), err, "WebSocket upgrade failed", "path", raw)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	// The session ends when the client goes away or the server shuts down.
	readCtx := conn.CloseRead(context.Background())
	ctx, cancel := context.WithCancel(s.baseCtx)
	defer cancel()
	stop := context.AfterFunc(readCtx, cancel)
	defer stop()

	go s.keepAlive(ctx, cancel, conn)

	display := s.displayPath(path)
	s.logger.Debug(ctx, "Watch session opened", "path", display, "sessions", s.SessionCount())

	err = session.Run(ctx, func(ctx context.Context, n watcher.Notification) error {
		data, err := json.Marshal(UpdateMessage{
			Type:      string(n.Type),
			Path:      display,
			Timestamp: n.Timestamp,
		})
		if err != nil {
			return err
		}

		writeCtx, cancel := context.WithTimeout(ctx, writeWait)
		defer cancel()
		return conn.Write(writeCtx, websocket.MessageText, data)
	})

	switch {
	case terrors.Is(err, terrors.ErrWatchTargetLost):
		conn.Close(websocket.StatusNormalClosure, "document removed")
	case s.isShutdown.Load():
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	case err != nil:
		s.logger.Debug(ctx, "Watch session ended", "path", display, "error", err.Error())
		conn.Close(websocket.StatusInternalError, "")
	default:
		conn.Close(websocket.StatusNormalClosure, "")
	}

	s.logger.Debug(context.Background(), "Watch session closed", "path", display)
}

// keepAlive pings the client and cancels the session when it stops
// answering.
func (s *PreviewServer) keepAlive(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, writeWait)
			err := conn.Ping(pingCtx)
			pingCancel()
			if err != nil {
				cancel()
				return
			}
		}
	}
}

// checkOrigin validates the request origin and returns its host. Pages
// served by this server are same-origin; configured allowed origins and
// loopback aliases of the listening port are also accepted.
func (s *PreviewServer) checkOrigin(r *http.Request) (string, bool) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Reject connections without origin header for security
		return "", false
	}

	originURL, err := url.Parse(origin)
	if err != nil || originURL.Host == "" {
		return "", false
	}

	// First check scheme - only allow http/https
	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return "", false
	}

	if strings.EqualFold(originURL.Host, r.Host) {
		return originURL.Host, true
	}

	for _, allowed := range s.config.Server.AllowedOrigins {
		if strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin) {
			return originURL.Host, true
		}
	}

	port := s.listenPort()
	if port != "" {
		for _, host := range []string{"localhost", "127.0.0.1", "[::1]"} {
			if strings.EqualFold(originURL.Host, host+":"+port) {
				return originURL.Host, true
			}
		}
	}

	return "", false
}

func (s *PreviewServer) listenPort() string {
	if _, port, err := net.SplitHostPort(s.Addr()); err == nil && port != "0" {
		return port
	}
	if s.config.Server.Port > 0 {
		return strconv.Itoa(s.config.Server.Port)
	}
	return ""
}
