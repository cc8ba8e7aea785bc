package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hlemont/stream-automate/internal/config"
	"github.com/hlemont/stream-automate/internal/obs"
	"github.com/hlemont/stream-automate/internal/protocol"
)

type stubSession struct {
	onClose func()
	closed  atomic.Bool
}

func (s *stubSession) Call(context.Context, string, protocol.Fields) (protocol.Response, error) {
	return protocol.Response{Envelope: protocol.Envelope{Status: protocol.StatusOK}, Raw: []byte(`{"status":"ok"}`)}, nil
}

func (s *stubSession) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.onClose()
	}
	return nil
}

type stubDialer struct {
	mu       sync.Mutex
	sessions []*stubSession
	configs  []config.OBSConfig
}

func (d *stubDialer) factory(cfg config.OBSConfig, _ *slog.Logger, _ func(protocol.Event)) obs.DialFunc {
	d.mu.Lock()
	d.configs = append(d.configs, cfg)
	d.mu.Unlock()
	return func(_ context.Context, onClose func()) (obs.Session, error) {
		s := &stubSession{onClose: onClose}
		d.mu.Lock()
		d.sessions = append(d.sessions, s)
		d.mu.Unlock()
		return s, nil
	}
}

type nopBackend struct{}

func (nopBackend) TapKey(string, []string) error { return nil }
func (nopBackend) TypeText(string) error         { return nil }

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func writeConfig(t *testing.T, path string, port int, allowed bool, macroName string) {
	t.Helper()
	content := fmt.Sprintf(`{
  "general": {"serverPort": %d, "host": "127.0.0.1"},
  "obs": {"address": "127.0.0.1", "port": 4444, "password": "secret"},
  "remote": {"allowed": %t, "macros": [
    {"name": %q, "macro": [{"type": "key", "key": "f9"}]}
  ]}
}`, port, allowed, macroName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newApp(t *testing.T, port int, opts ...Option) (*App, *stubDialer, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	writeConfig(t, path, port, false, "brb")

	mgr, err := config.NewManager(path)
	require.NoError(t, err)
	_, err = mgr.Load()
	require.NoError(t, err)

	d := &stubDialer{}
	opts = append([]Option{WithDialer(d.factory), WithSleep(func(time.Duration) {})}, opts...)
	a, err := New(mgr, nopBackend{}, opts...)
	require.NoError(t, err)
	return a, d, path
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestReloadSwapsComponents(t *testing.T) {
	a, d, path := newApp(t, freePort(t))
	before := a.Current()

	assert.Equal(t, http.StatusUnauthorized, get(t, a.Handler(), "/remote/macro").Code)

	_, err := before.Guard.EnsureConnected(context.Background())
	require.NoError(t, err)

	writeConfig(t, path, before.Config.General.ServerPort, true, "scene-change")
	require.NoError(t, a.Reload(context.Background()))

	after := a.Current()
	assert.NotSame(t, before, after)
	assert.True(t, after.Remote.Allowed())
	assert.Equal(t, []string{"scene-change"}, after.Remote.Names())

	rec := get(t, a.Handler(), "/remote/macro")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scene-change")

	assert.Equal(t, obs.Disconnected, before.Guard.State())
	_, err = before.Guard.EnsureConnected(context.Background())
	assert.ErrorIs(t, err, obs.ErrClosed)

	d.mu.Lock()
	assert.Len(t, d.configs, 2)
	assert.True(t, d.sessions[0].closed.Load())
	d.mu.Unlock()
}

func TestReloadFailureKeepsComponents(t *testing.T) {
	a, _, path := newApp(t, freePort(t))
	before := a.Current()

	require.NoError(t, os.WriteFile(path, []byte(`{"general": {"serverPort": 0}}`), 0o644))
	assert.Error(t, a.Reload(context.Background()))
	assert.Same(t, before, a.Current())

	require.NoError(t, os.WriteFile(path, []byte(`{"remote": {"macros": [{"name": "x", "macro": []}]}}`), 0o644))
	assert.Error(t, a.Reload(context.Background()))
	assert.Same(t, before, a.Current())

	_, err := before.Guard.EnsureConnected(context.Background())
	assert.NoError(t, err, "running guard untouched")
}

func TestReloadBindFailureKeepsSnapshot(t *testing.T) {
	a, _, path := newApp(t, freePort(t))
	before := a.Current()
	require.Same(t, before.Config, a.configs.Get())

	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	writeConfig(t, path, busy.Addr().(*net.TCPAddr).Port, true, "brb")
	require.Error(t, a.Reload(context.Background()))

	assert.Same(t, before, a.Current())
	assert.Same(t, before.Config, a.configs.Get())
	assert.False(t, a.configs.Get().Remote.Allowed)

	writeConfig(t, path, before.Config.General.ServerPort, true, "brb")
	require.NoError(t, a.Reload(context.Background()))
	assert.Same(t, a.Current().Config, a.configs.Get())
	assert.True(t, a.configs.Get().Remote.Allowed)
}

type stateLog struct {
	mu     sync.Mutex
	states []obs.State
}

func (l *stateLog) record(s obs.State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, s)
}

func (l *stateLog) get() []obs.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]obs.State(nil), l.states...)
}

func TestStateReportsFollowLiveGuard(t *testing.T) {
	log := &stateLog{}
	a, _, path := newApp(t, freePort(t), WithStateListener(log.record))
	before := a.Current()

	_, err := before.Guard.EnsureConnected(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []obs.State{obs.Connecting, obs.Connected}, log.get())

	writeConfig(t, path, before.Config.General.ServerPort, true, "brb")
	require.NoError(t, a.Reload(context.Background()))

	after := a.Current()
	require.Eventually(t, func() bool { return after.Guard.State() == obs.Connected }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, obs.Disconnected, before.Guard.State())

	assert.Equal(t, []obs.State{
		obs.Connecting, obs.Connected,
		obs.Disconnected,
		obs.Connecting, obs.Connected,
	}, log.get(), "closing the replaced guard reports nothing")
}

func TestStartAndRebind(t *testing.T) {
	first := freePort(t)
	a, _, path := newApp(t, first)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx))
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })

	require.NotNil(t, a.Addr())
	assert.Equal(t, first, a.Addr().(*net.TCPAddr).Port)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", first))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	second := freePort(t)
	writeConfig(t, path, second, false, "brb")
	require.NoError(t, a.Reload(ctx))
	assert.Equal(t, second, a.Addr().(*net.TCPAddr).Port)

	resp, err = http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", second))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", first), 100*time.Millisecond)
		if err != nil {
			return true
		}
		conn.Close()
		return false
	}, 2*time.Second, 20*time.Millisecond, "old listener closed")
}

func TestConsoleCommands(t *testing.T) {
	a, _, path := newApp(t, freePort(t))
	writeConfig(t, path, a.Current().Config.General.ServerPort, true, "brb")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	a.Console(ctx, strings.NewReader("bogus\nrestart\nstop\n"))

	assert.True(t, a.Current().Remote.Allowed(), "restart reloaded")
	select {
	case <-a.Stopped():
	default:
		t.Fatal("stop not requested")
	}
}

func TestRunReturnsOnStop(t *testing.T) {
	a, _, _ := newApp(t, freePort(t))

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	require.Eventually(t, func() bool { return a.Addr() != nil }, 2*time.Second, 10*time.Millisecond)
	a.Stop()
	a.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	_, err := a.Current().Guard.EnsureConnected(context.Background())
	assert.ErrorIs(t, err, obs.ErrClosed)
}
