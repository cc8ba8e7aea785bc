package obs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hlemont/stream-automate/internal/logging"
	"github.com/hlemont/stream-automate/internal/protocol"
)

// State is the connection state of the guard.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type event int

const (
	eventConnect event = iota
	eventOpened
	eventFailed
	eventClosed
)

func (e event) String() string {
	return [...]string{"connect", "opened", "failed", "closed"}[e]
}

// transitions is the only way the guard state changes. Pairs not listed
// are ignored.
var transitions = map[State]map[event]State{
	Disconnected: {
		eventConnect: Connecting,
	},
	Connecting: {
		eventOpened: Connected,
		eventFailed: Disconnected,
		eventClosed: Disconnected,
	},
	Connected: {
		eventClosed: Disconnected,
	},
}

// Session is an open control-channel session.
type Session interface {
	Call(ctx context.Context, requestType string, fields protocol.Fields) (protocol.Response, error)
	Close() error
}

// DialFunc opens a session. onClose must be called once when the
// session ends.
type DialFunc func(ctx context.Context, onClose func()) (Session, error)

// Guard keeps at most one session open and connects lazily.
type Guard struct {
	dial    DialFunc
	timeout time.Duration
	logger  *slog.Logger
	observe func(State)

	group singleflight.Group

	mu       sync.Mutex
	state    State
	session  Session
	epoch    uint64
	shutdown bool
	attempts int
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithGuardLogger sets the guard logger.
func WithGuardLogger(logger *slog.Logger) GuardOption {
	return func(g *Guard) {
		g.logger = logger
	}
}

// WithStateObserver registers a callback for every state change. It is
// called with the guard lock held and must not call back into the guard.
func WithStateObserver(fn func(State)) GuardOption {
	return func(g *Guard) {
		g.observe = fn
	}
}

// WithConnectTimeout bounds a single connect attempt.
func WithConnectTimeout(d time.Duration) GuardOption {
	return func(g *Guard) {
		g.timeout = d
	}
}

// NewGuard creates a disconnected guard.
func NewGuard(dial DialFunc, opts ...GuardOption) *Guard {
	g := &Guard{
		dial:    dial,
		timeout: 10 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ClientDialer returns a DialFunc opening Client sessions.
func ClientDialer(opts ClientOptions) DialFunc {
	return func(ctx context.Context, onClose func()) (Session, error) {
		o := opts
		o.OnClose = func(error) { onClose() }
		c, err := Dial(ctx, o)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// State returns the current connection state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Attempts returns how many connect attempts were made.
func (g *Guard) Attempts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attempts
}

// EnsureConnected connects unless a session is already open, and
// reports whether it was. Callers arriving during an attempt share its
// outcome. The attempt itself is not cancelled by ctx.
func (g *Guard) EnsureConnected(ctx context.Context) (bool, error) {
	g.mu.Lock()
	if g.shutdown {
		g.mu.Unlock()
		return false, ErrClosed
	}
	if g.state == Connected {
		g.mu.Unlock()
		return true, nil
	}
	g.mu.Unlock()

	attemptCtx := context.WithoutCancel(ctx)
	ch := g.group.DoChan("connect", func() (any, error) {
		return g.attempt(attemptCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (g *Guard) attempt(ctx context.Context) (bool, error) {
	g.mu.Lock()
	if g.shutdown {
		g.mu.Unlock()
		return false, ErrClosed
	}
	if g.state == Connected {
		g.mu.Unlock()
		return true, nil
	}
	g.epoch++
	epoch := g.epoch
	g.attempts++
	g.fire(eventConnect)
	g.mu.Unlock()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	session, err := g.dial(ctx, func() { g.closed(epoch) })

	g.mu.Lock()
	if err != nil {
		g.fire(eventFailed)
		g.mu.Unlock()
		g.logger.Warn("connect failed", "error", err)
		return false, err
	}
	if g.epoch != epoch || g.state != Connecting {
		// Closed while the attempt was in flight.
		g.mu.Unlock()
		_ = session.Close()
		return false, ErrClosed
	}
	g.session = session
	g.fire(eventOpened)
	g.mu.Unlock()
	return false, nil
}

func (g *Guard) closed(epoch uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if epoch != g.epoch {
		return
	}
	g.session = nil
	g.fire(eventClosed)
}

// fire applies ev through the transition table. g.mu must be held.
func (g *Guard) fire(ev event) {
	next, ok := transitions[g.state][ev]
	if !ok {
		g.logger.Debug("ignored transition", "state", g.state, "event", ev)
		return
	}
	if next == g.state {
		return
	}
	g.logger.Debug("state change", "from", g.state, "to", next, "event", ev)
	g.state = next
	if g.observe != nil {
		g.observe(next)
	}
}

// Call connects if needed and sends one request on the session.
func (g *Guard) Call(ctx context.Context, requestType string, fields protocol.Fields) (protocol.Response, error) {
	if _, err := g.EnsureConnected(ctx); err != nil {
		return protocol.Response{}, err
	}
	g.mu.Lock()
	session := g.session
	g.mu.Unlock()
	if session == nil {
		return protocol.Response{}, ErrNotConnected
	}
	return session.Call(ctx, requestType, fields)
}

// Close abandons the session. Later calls fail with ErrClosed.
func (g *Guard) Close() error {
	g.mu.Lock()
	g.shutdown = true
	g.epoch++
	session := g.session
	g.session = nil
	g.fire(eventClosed)
	g.mu.Unlock()

	if session != nil {
		return session.Close()
	}
	return nil
}
