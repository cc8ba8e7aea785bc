package macro

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hlemont/stream-automate/internal/apperr"
)

type call struct {
	Kind string
	Arg  string
	Mods []string
}

type fakeBackend struct {
	mu      sync.Mutex
	calls   []call
	failKey string
	active  int32
	overlap atomic.Bool
	hold    time.Duration
}

func (f *fakeBackend) enter() func() {
	if atomic.AddInt32(&f.active, 1) > 1 {
		f.overlap.Store(true)
	}
	if f.hold > 0 {
		time.Sleep(f.hold)
	}
	return func() { atomic.AddInt32(&f.active, -1) }
}

func (f *fakeBackend) TapKey(key string, modifiers []string) error {
	defer f.enter()()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Kind: "key", Arg: key, Mods: modifiers})
	if key == f.failKey {
		return errors.New("invalid key code specified")
	}
	return nil
}

func (f *fakeBackend) TypeText(text string) error {
	defer f.enter()()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Kind: "string", Arg: text})
	return nil
}

func (f *fakeBackend) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

type sleepRecorder struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (s *sleepRecorder) Sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slept = append(s.slept, d)
}

func (s *sleepRecorder) Slept() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.slept...)
}

func TestExecutorRunsInOrder(t *testing.T) {
	backend := &fakeBackend{}
	sleeper := &sleepRecorder{}
	e := NewExecutor(backend, WithSleep(sleeper.Sleep))

	res := e.Run(Macro{
		{"type": "key", "key": "a", "modifiers": []any{"control"}},
		{"type": "delay", "delay": 100},
		{"type": "string", "string": "hi"},
	})

	assert.Equal(t, Completed, res.Outcome)
	assert.NoError(t, res.Err(false))
	assert.Equal(t, []call{
		{Kind: "key", Arg: "a", Mods: []string{"control"}},
		{Kind: "string", Arg: "hi"},
	}, backend.Calls())
	assert.Equal(t, []time.Duration{100 * time.Millisecond}, sleeper.Slept())
}

func TestExecutorRejectsWithoutSideEffects(t *testing.T) {
	backend := &fakeBackend{}
	sleeper := &sleepRecorder{}
	e := NewExecutor(backend, WithSleep(sleeper.Sleep))

	res := e.Run(Macro{
		{"type": "delay", "delay": 10},
		{"type": "string", "string": "x"},
		{"type": "delay", "delay": -1},
		{"type": "bogus"},
	})

	assert.Equal(t, Rejected, res.Outcome)
	assert.Equal(t, []apperr.Invalid{{Index: 2, Type: "delay"}, {Index: 3, Type: "bogus"}}, res.Invalid)
	assert.Empty(t, backend.Calls())
	assert.Empty(t, sleeper.Slept())

	err := res.Err(false)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperr.Status(err))
	assert.True(t, apperr.Is(err, apperr.KindValidationFailed))
	assert.Contains(t, err.Error(), "#2 delay")
}

func TestExecutorRejectsOverlongDelay(t *testing.T) {
	backend := &fakeBackend{}
	sleeper := &sleepRecorder{}
	e := NewExecutor(backend, WithSleep(sleeper.Sleep))

	res := e.Run(Macro{
		{"type": "string", "string": "x"},
		{"type": "delay", "delay": 1e300},
	})

	assert.Equal(t, Rejected, res.Outcome)
	assert.Equal(t, []apperr.Invalid{{Index: 1, Type: "delay"}}, res.Invalid)
	assert.Empty(t, backend.Calls())
	assert.Empty(t, sleeper.Slept())
	assert.Equal(t, http.StatusBadRequest, apperr.Status(res.Err(false)))
}

func TestExecutorRejectsEmptyMacro(t *testing.T) {
	backend := &fakeBackend{}
	e := NewExecutor(backend)

	res := e.Run(nil)
	assert.Equal(t, Rejected, res.Outcome)
	assert.Empty(t, res.Invalid)
	assert.Equal(t, http.StatusBadRequest, apperr.Status(res.Err(true)))
	assert.Empty(t, backend.Calls())
}

func TestExecutorFailsFast(t *testing.T) {
	backend := &fakeBackend{failKey: "nope"}
	sleeper := &sleepRecorder{}
	e := NewExecutor(backend, WithSleep(sleeper.Sleep))

	res := e.Run(Macro{
		{"type": "string", "string": "first"},
		{"type": "key", "key": "nope"},
		{"type": "delay", "delay": 50},
		{"type": "string", "string": "never"},
	})

	assert.Equal(t, Failed, res.Outcome)
	assert.Equal(t, 1, res.FailedAt)
	assert.Len(t, backend.Calls(), 2)
	assert.Empty(t, sleeper.Slept())

	adhoc := res.Err(false)
	assert.Equal(t, http.StatusBadRequest, apperr.Status(adhoc))
	named := res.Err(true)
	assert.Equal(t, http.StatusInternalServerError, apperr.Status(named))

	var ae *apperr.Error
	require.ErrorAs(t, named, &ae)
	assert.Equal(t, 1, ae.Index)
	assert.Contains(t, named.Error(), "invalid key code specified")
}

func TestExecutorSerializesRuns(t *testing.T) {
	backend := &fakeBackend{hold: 2 * time.Millisecond}
	e := NewExecutor(backend, WithSleep(func(time.Duration) {}))

	m := Macro{
		{"type": "key", "key": "a"},
		{"type": "string", "string": "b"},
		{"type": "key", "key": "c"},
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, Completed, e.Run(m).Outcome)
		}()
	}
	wg.Wait()

	assert.False(t, backend.overlap.Load())
	calls := backend.Calls()
	require.Len(t, calls, 24)
	// Runs never interleave, so every run appears as a contiguous block.
	for i := 0; i < len(calls); i += 3 {
		assert.Equal(t, "a", calls[i].Arg)
		assert.Equal(t, "b", calls[i+1].Arg)
		assert.Equal(t, "c", calls[i+2].Arg)
	}
}

func TestExecutorObserver(t *testing.T) {
	var seen []Outcome
	e := NewExecutor(&fakeBackend{failKey: "x"},
		WithSleep(func(time.Duration) {}),
		WithObserver(func(r Result, _ time.Duration) { seen = append(seen, r.Outcome) }),
	)

	e.Run(Macro{{"type": "key", "key": "a"}})
	e.Run(Macro{{"type": "key"}})
	e.Run(Macro{{"type": "key", "key": "x"}})

	assert.Equal(t, []Outcome{Completed, Rejected, Failed}, seen)
}
