// Package app wires configuration snapshots into running components and
// owns the HTTP listener.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hlemont/stream-automate/internal/api"
	"github.com/hlemont/stream-automate/internal/config"
	"github.com/hlemont/stream-automate/internal/logging"
	"github.com/hlemont/stream-automate/internal/macro"
	"github.com/hlemont/stream-automate/internal/metrics"
	"github.com/hlemont/stream-automate/internal/obs"
	"github.com/hlemont/stream-automate/internal/protocol"
	"github.com/hlemont/stream-automate/internal/remote"
)

// Components is the immutable set of services built from one snapshot.
type Components struct {
	Config *config.Config
	Guard  *obs.Guard
	OBS    *obs.Service
	Remote *remote.Service
}

// DialerFactory builds the obs-websocket dialer for a snapshot.
type DialerFactory func(cfg config.OBSConfig, logger *slog.Logger, onEvent func(protocol.Event)) obs.DialFunc

// DefaultDialer dials real obs-websocket sessions.
func DefaultDialer(cfg config.OBSConfig, logger *slog.Logger, onEvent func(protocol.Event)) obs.DialFunc {
	return obs.ClientDialer(obs.ClientOptions{
		Address:  cfg.Address,
		Port:     cfg.Port,
		Password: cfg.Password,
		Logger:   logger,
		OnEvent:  onEvent,
	})
}

// App is the long-running service.
type App struct {
	configs  *config.Manager
	executor *macro.Executor
	hub      *api.Hub
	metrics  *metrics.Metrics
	logger   *slog.Logger
	dialer   DialerFactory
	handler  http.Handler
	sleep    func(time.Duration)
	onState  func(obs.State)

	current atomic.Pointer[Components]

	// stateMu orders state reports against the component swap.
	stateMu sync.Mutex

	reloadMu sync.Mutex

	srvMu    sync.Mutex
	server   *http.Server
	listener net.Listener

	stopOnce sync.Once
	stop     chan struct{}
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithDialer replaces the obs-websocket dialer.
func WithDialer(f DialerFactory) Option {
	return func(a *App) {
		a.dialer = f
	}
}

// WithSleep replaces time.Sleep for macro delays.
func WithSleep(sleep func(time.Duration)) Option {
	return func(a *App) {
		a.sleep = sleep
	}
}

// WithStateListener is told about every connection state change of the
// live guard.
func WithStateListener(fn func(obs.State)) Option {
	return func(a *App) {
		a.onState = fn
	}
}

// New builds the first component set from the manager's current
// snapshot. backend performs macro input for the whole process lifetime.
func New(configs *config.Manager, backend macro.Backend, opts ...Option) (*App, error) {
	a := &App{
		configs: configs,
		metrics: metrics.New(),
		logger:  logging.NewNop(),
		dialer:  DefaultDialer,
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}

	execOpts := []macro.Option{
		macro.WithLogger(a.logger.With("component", "macro")),
		macro.WithObserver(func(r macro.Result, d time.Duration) {
			a.metrics.ObserveMacro(r.Outcome.String(), d)
		}),
	}
	if a.sleep != nil {
		execOpts = append(execOpts, macro.WithSleep(a.sleep))
	}
	a.executor = macro.NewExecutor(backend, execOpts...)
	a.hub = api.NewHub(a.logger, a.metrics.SetEventClients)

	comps, err := a.build(configs.Get())
	if err != nil {
		return nil, err
	}
	a.current.Store(comps)

	srv := api.NewServer(a.Services,
		api.WithHub(a.hub),
		api.WithMetrics(a.metrics),
		api.WithLogger(a.logger),
	)
	a.handler = srv.Handler()
	return a, nil
}

// build creates a component set for cfg. The executor and hub are shared.
func (a *App) build(cfg *config.Config) (*Components, error) {
	aliases, err := cfg.Aliases()
	if err != nil {
		return nil, fmt.Errorf("scene aliases: %w", err)
	}
	registry, err := cfg.Macros()
	if err != nil {
		return nil, fmt.Errorf("macros: %w", err)
	}

	obsLogger := a.logger.With("component", "obs")
	var svc *obs.Service
	onEvent := func(ev protocol.Event) {
		if msg, ok := svc.TranslateEvent(ev); ok {
			a.notify(api.NoticeOBS, msg)
		}
	}
	var guard *obs.Guard
	guard = obs.NewGuard(
		a.dialer(cfg.OBS, obsLogger, onEvent),
		obs.WithGuardLogger(obsLogger),
		obs.WithConnectTimeout(cfg.Timeout()),
		obs.WithStateObserver(func(s obs.State) {
			a.stateMu.Lock()
			defer a.stateMu.Unlock()
			// A swapped-out guard no longer speaks for the connection.
			if cur := a.current.Load(); cur != nil && cur.Guard != guard {
				return
			}
			a.publishState(s)
		}),
	)
	svc = obs.NewService(guard, aliases, cfg.Timeout(), a.notifier(api.NoticeAction), a.logger)

	return &Components{
		Config: cfg,
		Guard:  guard,
		OBS:    svc,
		Remote: remote.NewService(cfg.Remote.Allowed, registry, a.executor, a.notifier(api.NoticeAction), a.logger),
	}, nil
}

// publishState reports the live connection state. stateMu must be held.
func (a *App) publishState(s obs.State) {
	a.metrics.SetOBSState(s.String(), s == obs.Connected)
	a.hub.Publish(api.NoticeStatus, "OBS "+s.String())
	if a.onState != nil {
		a.onState(s)
	}
}

func (a *App) notify(kind, msg string) {
	a.logger.Info(msg, "component", "events", "kind", kind)
	a.hub.Publish(kind, msg)
}

func (a *App) notifier(kind string) func(string) {
	return func(msg string) { a.notify(kind, msg) }
}

// Current returns the live component set.
func (a *App) Current() *Components {
	return a.current.Load()
}

// Services adapts the live component set for the API.
func (a *App) Services() api.Services {
	c := a.current.Load()
	return api.Services{
		OBS:            c.OBS,
		Remote:         c.Remote,
		MetricsEnabled: c.Config.General.Metrics,
	}
}

// Handler returns the HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Addr returns the bound listener address, nil before Start.
func (a *App) Addr() net.Addr {
	a.srvMu.Lock()
	defer a.srvMu.Unlock()
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Start runs the event hub, binds the listener and makes an initial
// connect attempt. It returns once the listener is bound.
func (a *App) Start(ctx context.Context) error {
	go a.hub.Run(ctx)

	comps := a.Current()
	a.logConfig(comps.Config)
	if err := a.listen(comps.Config.Addr()); err != nil {
		return err
	}
	go a.connect(ctx, comps)
	return nil
}

func (a *App) connect(ctx context.Context, comps *Components) {
	if _, err := comps.Guard.EnsureConnected(ctx); err != nil {
		a.logger.Warn("initial connection to obs-websocket failed", "error", err)
	}
}

func (a *App) logConfig(cfg *config.Config) {
	masked := cfg.Masked()
	data, err := json.Marshal(masked)
	if err != nil {
		return
	}
	a.logger.Info("effective configuration",
		"config", string(data),
		"path", a.configs.Path(),
		"scene_aliases", len(cfg.OBS.SceneAliases),
		"macros", len(cfg.Remote.Macros),
	)
}

// listen binds addr and serves on it, replacing any previous listener
// only after the new one is bound.
func (a *App) listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	server := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.srvMu.Lock()
	old := a.server
	a.server = server
	a.listener = ln
	a.srvMu.Unlock()

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server stopped", "error", err)
		}
	}()
	a.logger.Info("listening", "addr", ln.Addr().String())

	if old != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := old.Shutdown(ctx); err != nil {
			a.logger.Warn("previous listener shutdown", "error", err)
		}
	}
	return nil
}

// Reload loads a new snapshot and swaps in a fresh component set. On
// any error the running set and the manager's current snapshot are kept.
func (a *App) Reload(ctx context.Context) error {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	cfg, err := a.configs.Reload()
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}
	comps, err := a.build(cfg)
	if err != nil {
		return err
	}

	old := a.Current()
	if addr := cfg.Addr(); addr != old.Config.Addr() {
		if err := a.listen(addr); err != nil {
			return err
		}
	}

	a.stateMu.Lock()
	a.current.Store(comps)
	// A fresh guard starts disconnected; its own reports queue behind this one.
	a.publishState(obs.Disconnected)
	a.stateMu.Unlock()
	a.configs.Commit(cfg)

	if err := old.Guard.Close(); err != nil {
		a.logger.Debug("closing previous obs session", "error", err)
	}
	a.logConfig(cfg)
	a.notify(api.NoticeStatus, "Configuration reloaded")
	go a.connect(ctx, comps)
	return nil
}

// Stop asks Run to return.
func (a *App) Stop() {
	a.stopOnce.Do(func() { close(a.stop) })
}

// Stopped is closed once Stop was called.
func (a *App) Stopped() <-chan struct{} {
	return a.stop
}

// Run starts the app and blocks until ctx is done or Stop is called.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.Start(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-a.stop:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return a.Shutdown(shutdownCtx)
}

// Shutdown stops the listener and closes the obs session.
func (a *App) Shutdown(ctx context.Context) error {
	a.srvMu.Lock()
	server := a.server
	a.srvMu.Unlock()

	var errs []error
	if server != nil {
		if err := server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.Current().Guard.Close(); err != nil {
		errs = append(errs, err)
	}
	a.logger.Info("stopped")
	return errors.Join(errs...)
}
