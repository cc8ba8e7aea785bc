package obs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hlemont/stream-automate/internal/protocol"
)

type fakeSession struct {
	onClose func()
	closed  atomic.Bool
}

func (s *fakeSession) Call(context.Context, string, protocol.Fields) (protocol.Response, error) {
	if s.closed.Load() {
		return protocol.Response{}, ErrClosed
	}
	return protocol.Response{Envelope: protocol.Envelope{Status: protocol.StatusOK}, Raw: []byte(`{"status":"ok"}`)}, nil
}

func (s *fakeSession) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.onClose()
	}
	return nil
}

type fakeDialer struct {
	mu       sync.Mutex
	dials    int
	err      error
	sessions []*fakeSession
	gate     chan struct{}
	during   func(onClose func())
}

func (d *fakeDialer) Dial(ctx context.Context, onClose func()) (Session, error) {
	d.mu.Lock()
	d.dials++
	gate, during, err := d.gate, d.during, d.err
	d.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if during != nil {
		during(onClose)
	}
	if err != nil {
		return nil, err
	}
	s := &fakeSession{onClose: onClose}
	d.mu.Lock()
	d.sessions = append(d.sessions, s)
	d.mu.Unlock()
	return s, nil
}

func (d *fakeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) last() *fakeSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessions[len(d.sessions)-1]
}

func TestEnsureConnectedIdempotent(t *testing.T) {
	d := &fakeDialer{}
	g := NewGuard(d.Dial)
	ctx := context.Background()

	already, err := g.EnsureConnected(ctx)
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, Connected, g.State())

	for i := 0; i < 2; i++ {
		already, err = g.EnsureConnected(ctx)
		require.NoError(t, err)
		assert.True(t, already)
	}
	assert.Equal(t, 1, d.Dials())
	assert.Equal(t, 1, g.Attempts())
}

func TestEnsureConnectedFailure(t *testing.T) {
	boom := errors.New("connection refused")
	d := &fakeDialer{err: boom}
	g := NewGuard(d.Dial)

	already, err := g.EnsureConnected(context.Background())
	assert.False(t, already)
	assert.Same(t, boom, err)
	assert.Equal(t, Disconnected, g.State())

	// No retry on its own; the next call attempts again.
	_, _ = g.EnsureConnected(context.Background())
	assert.Equal(t, 2, d.Dials())
}

func TestReconnectAfterClose(t *testing.T) {
	d := &fakeDialer{}
	g := NewGuard(d.Dial)
	ctx := context.Background()

	_, err := g.EnsureConnected(ctx)
	require.NoError(t, err)

	require.NoError(t, d.last().Close())
	assert.Equal(t, Disconnected, g.State())

	already, err := g.EnsureConnected(ctx)
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, 2, d.Dials())
}

func TestConcurrentCallersShareAttempt(t *testing.T) {
	d := &fakeDialer{gate: make(chan struct{})}
	g := NewGuard(d.Dial)

	const callers = 10
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.EnsureConnected(context.Background())
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return d.Dials() == 1 && g.State() == Connecting }, time.Second, time.Millisecond)
	close(d.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, d.Dials())
	assert.Equal(t, Connected, g.State())
}

func TestCloseDuringAttemptInvalidatesIt(t *testing.T) {
	// The channel reports a close while the attempt is in flight.
	d := &fakeDialer{during: func(onClose func()) { onClose() }}
	g := NewGuard(d.Dial)

	already, err := g.EnsureConnected(context.Background())
	assert.False(t, already)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, Disconnected, g.State())
	assert.True(t, d.last().closed.Load())
}

func TestWaitingCallerCancellation(t *testing.T) {
	d := &fakeDialer{gate: make(chan struct{})}
	g := NewGuard(d.Dial)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := g.EnsureConnected(ctx)
		done <- err
	}()
	require.Eventually(t, func() bool { return d.Dials() == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	// The shared attempt still completes.
	close(d.gate)
	require.Eventually(t, func() bool { return g.State() == Connected }, time.Second, time.Millisecond)
}

func TestGuardCloseStopsConnecting(t *testing.T) {
	d := &fakeDialer{}
	var states []State
	g := NewGuard(d.Dial, WithStateObserver(func(s State) { states = append(states, s) }))

	_, err := g.EnsureConnected(context.Background())
	require.NoError(t, err)
	require.NoError(t, g.Close())

	assert.Equal(t, Disconnected, g.State())
	assert.True(t, d.last().closed.Load())
	_, err = g.EnsureConnected(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, []State{Connecting, Connected, Disconnected}, states)
}

func TestGuardCall(t *testing.T) {
	d := &fakeDialer{}
	g := NewGuard(d.Dial)

	resp, err := g.Call(context.Background(), protocol.GetCurrentScene, nil)
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusOK, resp.Status)
	assert.Equal(t, 1, d.Dials())
}

func TestGuardWithClient(t *testing.T) {
	srv := newFakeOBS(t, "supersecretpassword", "Intro")
	g := NewGuard(ClientDialer(srv.options()))
	defer g.Close()

	already, err := g.EnsureConnected(context.Background())
	require.NoError(t, err)
	assert.False(t, already)

	srv.dropAll()
	require.Eventually(t, func() bool { return g.State() == Disconnected }, 2*time.Second, 5*time.Millisecond)

	resp, err := g.Call(context.Background(), protocol.GetCurrentScene, nil)
	require.NoError(t, err)
	var cur protocol.CurrentScene
	require.NoError(t, resp.Decode(&cur))
	assert.Equal(t, "Intro", cur.Name)
}
