// Package watcher implements watch sessions: one per live preview
// connection, each watching a single document and sending a reload
// notification per settled change.
//
// A session owns its fsnotify watcher, poll ticker and debounce timer, and
// all three are driven from the single goroutine running Session.Run.
// Nothing is shared between sessions, so cancelling one never affects
// another watching the same file.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	terrors "github.com/conneroisu/tatum/internal/errors"
	"github.com/conneroisu/tatum/internal/logging"
	"github.com/fsnotify/fsnotify"
)

const (
	DefaultDebounce     = 150 * time.Millisecond
	DefaultPollInterval = time.Second
)

var errAlreadyRunning = errors.New("watch session already started")

// State is the lifecycle position of a session.
type State int32

const (
	// StateRegistered is a session that has captured its baseline but is
	// not yet running.
	StateRegistered State = iota
	// StatePolling is a running session that has not yet notified.
	StatePolling
	// StateNotified is a running session that has sent at least one
	// reload and is still watching.
	StateNotified
	// StateCancelled is a session stopped by its context or by a failed
	// notification.
	StateCancelled
	// StateLost is a session whose document disappeared.
	StateLost
)

// String returns the string representation of the State
func (s State) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StatePolling:
		return "polling"
	case StateNotified:
		return "notified"
	case StateCancelled:
		return "cancelled"
	case StateLost:
		return "lost"
	default:
		return "unknown"
	}
}

// EventType classifies a raw filesystem event for logging.
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	case EventTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

func eventTypeOf(op fsnotify.Op) EventType {
	switch {
	case op.Has(fsnotify.Create):
		return EventTypeCreated
	case op.Has(fsnotify.Write):
		return EventTypeModified
	case op.Has(fsnotify.Remove):
		return EventTypeDeleted
	case op.Has(fsnotify.Rename):
		return EventTypeRenamed
	default:
		return EventTypeModified
	}
}

// Signature is the observable state of the watched file.
type Signature struct {
	Exists  bool
	ModTime time.Time
	Size    int64
}

// Equal reports whether two signatures describe the same file state.
func (s Signature) Equal(o Signature) bool {
	return s.Exists == o.Exists && s.Size == o.Size && s.ModTime.Equal(o.ModTime)
}

// NotificationType is the message sent to the client.
type NotificationType string

const (
	NotifyReload NotificationType = "reload"
	NotifyLost   NotificationType = "lost"
)

// Notification is delivered to the session's NotifyFunc.
type Notification struct {
	Type      NotificationType
	Path      string
	Timestamp time.Time
}

// NotifyFunc delivers a notification. A non-nil error ends the session.
type NotifyFunc func(ctx context.Context, n Notification) error

// StatFunc reads file metadata.
type StatFunc func(path string) (os.FileInfo, error)

// Options tunes a session.
type Options struct {
	// Debounce is how long the file must stay quiet before a change is
	// reported.
	Debounce time.Duration
	// PollInterval is the fallback check period. Zero disables polling.
	PollInterval time.Duration
	// DisableFSNotify forces poll-only operation.
	DisableFSNotify bool
	Stat            StatFunc
	Logger          logging.Logger
}

// Session watches one document for one client.
type Session struct {
	path     string
	opts     Options
	logger   logging.Logger
	baseline Signature
	fsw      *fsnotify.Watcher

	state     atomic.Int32
	started   atomic.Bool
	notified  atomic.Int64
	closeOnce sync.Once
}

// NewSession captures path's current signature and registers the
// filesystem watch. The document need not exist yet.
func NewSession(path string, opts Options) (*Session, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, terrors.NewValidationError(terrors.CodeInternal, "invalid watch path: "+err.Error())
	}

	if opts.Stat == nil {
		opts.Stat = os.Stat
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Debounce < 0 {
		opts.Debounce = 0
	}

	s := &Session{
		path:   abs,
		opts:   opts,
		logger: opts.Logger.WithComponent("watcher").With("path", abs),
	}
	s.baseline = s.signature()

	if !opts.DisableFSNotify {
		s.fsw = s.register()
	}
	if s.fsw == nil && s.opts.PollInterval <= 0 {
		s.opts.PollInterval = DefaultPollInterval
	}

	return s, nil
}

// register watches the parent directory, which keeps the watch alive
// across editors that save by rename.
func (s *Session) register() *fsnotify.Watcher {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn(context.Background(), err, "fsnotify unavailable, polling only")
		return nil
	}

	if err := fsw.Add(filepath.Dir(s.path)); err != nil {
		s.logger.Warn(context.Background(), err, "Cannot watch directory, polling only")
		_ = fsw.Close()
		return nil
	}

	return fsw
}

// Path returns the absolute path being watched.
func (s *Session) Path() string {
	return s.path
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Notifications returns how many reloads have been delivered.
func (s *Session) Notifications() int64 {
	return s.notified.Load()
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

func (s *Session) signature() Signature {
	info, err := s.opts.Stat(s.path)
	if err != nil {
		return Signature{}
	}

	return Signature{Exists: true, ModTime: info.ModTime(), Size: info.Size()}
}

// Close releases the session's resources. Run calls it on exit; calling it
// on a session that never ran is also fine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.fsw != nil {
			_ = s.fsw.Close()
		}
	})
}

// Run watches until ctx is cancelled, the document disappears, or notify
// fails. Cancellation returns nil; a lost document returns a
// WatchTargetLost error after sending a lost notification. A session can
// run only once.
func (s *Session) Run(ctx context.Context, notify NotifyFunc) error {
	if !s.started.CompareAndSwap(false, true) {
		return errAlreadyRunning
	}
	defer s.Close()

	s.setState(StatePolling)
	s.logger.Debug(ctx, "Watch session started",
		"debounce", s.opts.Debounce.String(),
		"poll_interval", s.opts.PollInterval.String(),
		"fsnotify", s.fsw != nil)

	var (
		events  <-chan fsnotify.Event
		errs    <-chan error
		tick    <-chan time.Time
		fire    <-chan time.Time
		timer   *time.Timer
		pending bool
	)
	if s.fsw != nil {
		events, errs = s.fsw.Events, s.fsw.Errors
	}
	if s.opts.PollInterval > 0 {
		ticker := time.NewTicker(s.opts.PollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	arm := func() {
		if timer == nil {
			timer = time.NewTimer(s.opts.Debounce)
		} else {
			timer.Reset(s.opts.Debounce)
		}
		fire = timer.C
		pending = true
	}

	for {
		select {
		case <-ctx.Done():
			s.setState(StateCancelled)
			s.logger.Debug(ctx, "Watch session cancelled")
			return nil

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) != s.path {
				continue
			}
			s.logger.Debug(ctx, "File event", "event", eventTypeOf(ev.Op).String())
			arm()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.logger.Warn(ctx, err, "File watcher error")

		case <-tick:
			if !pending && !s.signature().Equal(s.baseline) {
				arm()
			}

		case <-fire:
			fire, pending = nil, false

			current := s.signature()
			if current.Equal(s.baseline) {
				continue
			}

			if s.baseline.Exists && !current.Exists {
				s.setState(StateLost)
				lost := terrors.NewWatchTargetLost(s.path)
				if err := notify(ctx, Notification{Type: NotifyLost, Path: s.path, Timestamp: time.Now()}); err != nil {
					s.logger.Warn(ctx, err, "Lost notification not delivered")
				}
				s.logger.Info(ctx, "Watched document disappeared")
				return lost
			}

			s.baseline = current
			if err := notify(ctx, Notification{Type: NotifyReload, Path: s.path, Timestamp: time.Now()}); err != nil {
				s.setState(StateCancelled)
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			s.notified.Add(1)
			s.setState(StateNotified)
			s.logger.Debug(ctx, "Reload sent", "count", s.notified.Load())
		}
	}
}
