package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	terrors "github.com/conneroisu/tatum/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type recorder struct {
	ch chan Notification
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan Notification, 32)}
}

func (r *recorder) notify(_ context.Context, n Notification) error {
	r.ch <- n
	return nil
}

func (r *recorder) next(t *testing.T) Notification {
	t.Helper()

	select {
	case n := <-r.ch:
		return n
	case <-time.After(waitFor):
		t.Fatal("no notification received")
		return Notification{}
	}
}

func (r *recorder) none(t *testing.T, within time.Duration) {
	t.Helper()

	select {
	case n := <-r.ch:
		t.Fatalf("unexpected notification %+v", n)
	case <-time.After(within):
	}
}

type running struct {
	cancel context.CancelFunc
	done   chan error
}

func run(t *testing.T, s *Session, notify NotifyFunc) *running {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	r := &running{cancel: cancel, done: make(chan error, 1)}
	go func() { r.done <- s.Run(ctx, notify) }()
	t.Cleanup(func() {
		cancel()
		<-r.done
	})

	return r
}

func (r *running) wait(t *testing.T) error {
	t.Helper()

	select {
	case err := <-r.done:
		r.done <- err
		return err
	case <-time.After(waitFor):
		t.Fatal("session did not stop")
		return nil
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestStateString(t *testing.T) {
	testCases := []struct {
		state    State
		expected string
	}{
		{StateRegistered, "registered"},
		{StatePolling, "polling"},
		{StateNotified, "notified"},
		{StateCancelled, "cancelled"},
		{StateLost, "lost"},
		{State(99), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.state.String())
		})
	}
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "created", EventTypeCreated.String())
	assert.Equal(t, "modified", EventTypeModified.String())
	assert.Equal(t, "deleted", EventTypeDeleted.String())
	assert.Equal(t, "renamed", EventTypeRenamed.String())
}

func TestNewSessionCapturesBaseline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	writeFile(t, path, "hello")

	s, err := NewSession(path, Options{Debounce: 10 * time.Millisecond})
	require.NoError(t, err)
	defer s.Close()

	assert.True(t, s.baseline.Exists)
	assert.Equal(t, int64(5), s.baseline.Size)
	assert.Equal(t, StateRegistered, s.State())
	assert.True(t, filepath.IsAbs(s.Path()))
}

func TestSessionDebouncesBurst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	writeFile(t, path, "v0")

	s, err := NewSession(path, Options{Debounce: 150 * time.Millisecond})
	require.NoError(t, err)

	rec := newRecorder()
	run(t, s, rec.notify)

	writeFile(t, path, "v1 ")
	time.Sleep(20 * time.Millisecond)
	writeFile(t, path, "v2  ")
	time.Sleep(20 * time.Millisecond)
	writeFile(t, path, "v3   ")

	n := rec.next(t)
	assert.Equal(t, NotifyReload, n.Type)
	assert.Equal(t, s.Path(), n.Path)
	rec.none(t, 400*time.Millisecond)

	assert.Equal(t, int64(1), s.Notifications())
	assert.Equal(t, StateNotified, s.State())
}

func TestSessionRearmsAfterReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	writeFile(t, path, "one")

	s, err := NewSession(path, Options{Debounce: 30 * time.Millisecond})
	require.NoError(t, err)

	rec := newRecorder()
	run(t, s, rec.notify)

	writeFile(t, path, "two!")
	assert.Equal(t, NotifyReload, rec.next(t).Type)

	writeFile(t, path, "three")
	assert.Equal(t, NotifyReload, rec.next(t).Type)
	assert.Equal(t, int64(2), s.Notifications())
}

func TestSessionIgnoresUnchangedSignature(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	writeFile(t, path, "same")

	s, err := NewSession(path, Options{Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	rec := newRecorder()
	run(t, s, rec.notify)

	// chmod raises an event without touching size or mtime
	require.NoError(t, os.Chmod(path, 0o600))
	rec.none(t, 200*time.Millisecond)
	assert.Equal(t, StatePolling, s.State())
}

func TestSessionIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	writeFile(t, path, "doc")

	s, err := NewSession(path, Options{Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	rec := newRecorder()
	run(t, s, rec.notify)

	writeFile(t, filepath.Join(dir, "other.md"), "noise")
	rec.none(t, 200*time.Millisecond)
}

func TestSessionsAreIsolated(t *testing.T) {
	dir := t.TempDir()
	shared := filepath.Join(dir, "shared.md")
	other := filepath.Join(dir, "other.md")
	writeFile(t, shared, "shared")
	writeFile(t, other, "other")

	opts := Options{Debounce: 30 * time.Millisecond}
	first, err := NewSession(shared, opts)
	require.NoError(t, err)
	second, err := NewSession(shared, opts)
	require.NoError(t, err)
	third, err := NewSession(other, opts)
	require.NoError(t, err)

	firstRec, secondRec, thirdRec := newRecorder(), newRecorder(), newRecorder()
	firstRun := run(t, first, firstRec.notify)
	run(t, second, secondRec.notify)
	run(t, third, thirdRec.notify)

	// closing one tab must not stop the other tab on the same file
	firstRun.cancel()
	require.NoError(t, firstRun.wait(t))
	assert.Equal(t, StateCancelled, first.State())

	writeFile(t, shared, "shared, edited")

	assert.Equal(t, NotifyReload, secondRec.next(t).Type)
	firstRec.none(t, 100*time.Millisecond)
	thirdRec.none(t, 100*time.Millisecond)
}

func TestSessionCancellationStopsPolling(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	writeFile(t, path, "doc")

	var stats atomic.Int64
	s, err := NewSession(path, Options{
		Debounce:        10 * time.Millisecond,
		PollInterval:    5 * time.Millisecond,
		DisableFSNotify: true,
		Stat: func(p string) (os.FileInfo, error) {
			stats.Add(1)
			return os.Stat(p)
		},
	})
	require.NoError(t, err)

	r := run(t, s, newRecorder().notify)
	time.Sleep(50 * time.Millisecond)
	require.Greater(t, stats.Load(), int64(1))

	start := time.Now()
	r.cancel()
	require.NoError(t, r.wait(t))
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	after := stats.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, stats.Load())
	assert.Equal(t, StateCancelled, s.State())
}

func TestSessionPollOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	writeFile(t, path, "a")

	s, err := NewSession(path, Options{
		Debounce:        10 * time.Millisecond,
		PollInterval:    20 * time.Millisecond,
		DisableFSNotify: true,
	})
	require.NoError(t, err)
	assert.Nil(t, s.fsw)

	rec := newRecorder()
	run(t, s, rec.notify)

	writeFile(t, path, "ab")
	assert.Equal(t, NotifyReload, rec.next(t).Type)
}

func TestSessionPollOnlyGetsDefaultInterval(t *testing.T) {
	s, err := NewSession(filepath.Join(t.TempDir(), "doc.md"), Options{DisableFSNotify: true})
	require.NoError(t, err)
	assert.Equal(t, DefaultPollInterval, s.opts.PollInterval)
}

func TestSessionTargetLost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	writeFile(t, path, "doc")

	s, err := NewSession(path, Options{Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	rec := newRecorder()
	r := run(t, s, rec.notify)

	require.NoError(t, os.Remove(path))

	assert.Equal(t, NotifyLost, rec.next(t).Type)
	err = r.wait(t)
	require.Error(t, err)
	assert.True(t, terrors.Is(err, terrors.ErrWatchTargetLost))
	assert.Equal(t, StateLost, s.State())
}

func TestSessionSurvivesRenameSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	writeFile(t, path, "before")

	s, err := NewSession(path, Options{Debounce: 100 * time.Millisecond})
	require.NoError(t, err)

	rec := newRecorder()
	r := run(t, s, rec.notify)

	// editors often write a temp file and rename it over the original
	tmp := filepath.Join(dir, ".doc.md.swp")
	writeFile(t, tmp, "after the save")
	require.NoError(t, os.Rename(tmp, path))

	assert.Equal(t, NotifyReload, rec.next(t).Type)
	select {
	case err := <-r.done:
		t.Fatalf("session ended: %v", err)
	default:
	}
}

func TestSessionDocumentCreatedLater(t *testing.T) {
	path := filepath.Join(t.TempDir(), "later.md")

	s, err := NewSession(path, Options{Debounce: 20 * time.Millisecond})
	require.NoError(t, err)
	assert.False(t, s.baseline.Exists)

	rec := newRecorder()
	run(t, s, rec.notify)

	writeFile(t, path, "now it exists")
	assert.Equal(t, NotifyReload, rec.next(t).Type)
}

func TestSessionNotifyFailureEndsSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	writeFile(t, path, "doc")

	s, err := NewSession(path, Options{Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	boom := errors.New("connection reset")
	r := run(t, s, func(context.Context, Notification) error { return boom })

	writeFile(t, path, "changed")

	assert.ErrorIs(t, r.wait(t), boom)
	assert.Equal(t, StateCancelled, s.State())
}

func TestSessionRunsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	writeFile(t, path, "doc")

	s, err := NewSession(path, Options{})
	require.NoError(t, err)

	r := run(t, s, newRecorder().notify)
	time.Sleep(10 * time.Millisecond)

	assert.ErrorIs(t, s.Run(context.Background(), newRecorder().notify), errAlreadyRunning)
	r.cancel()
	require.NoError(t, r.wait(t))
}

func TestSignatureEqual(t *testing.T) {
	now := time.Now()
	a := Signature{Exists: true, ModTime: now, Size: 3}

	assert.True(t, a.Equal(Signature{Exists: true, ModTime: now.UTC(), Size: 3}))
	assert.False(t, a.Equal(Signature{Exists: true, ModTime: now, Size: 4}))
	assert.False(t, a.Equal(Signature{}))
}
