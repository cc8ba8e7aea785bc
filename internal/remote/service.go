// Package remote exposes macro and control execution behind the
// remote.allowed switch.
package remote

import (
	"log/slog"

	"github.com/hlemont/stream-automate/internal/apperr"
	"github.com/hlemont/stream-automate/internal/logging"
	"github.com/hlemont/stream-automate/internal/macro"
)

// Notifier receives human-readable notices about remote activity.
type Notifier func(message string)

// Service runs named and ad-hoc macros for one configuration snapshot.
// The executor is shared between snapshots.
type Service struct {
	allowed  bool
	registry *macro.Registry
	executor *macro.Executor
	notify   Notifier
	logger   *slog.Logger
}

// NewService creates a remote service. A nil registry means no named
// macros; a nil notifier drops notices.
func NewService(allowed bool, registry *macro.Registry, executor *macro.Executor, notify Notifier, logger *slog.Logger) *Service {
	if registry == nil {
		registry, _ = macro.NewRegistry(nil)
	}
	if notify == nil {
		notify = func(string) {}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		allowed:  allowed,
		registry: registry,
		executor: executor,
		notify:   notify,
		logger:   logger.With("component", "remote"),
	}
}

// Allowed reports whether remote control is enabled.
func (s *Service) Allowed() bool { return s.allowed }

// Authorize returns an Unauthorized error when remote control is disabled.
func (s *Service) Authorize() error {
	if !s.allowed {
		return apperr.Unauthorized("remote control is not allowed")
	}
	return nil
}

// Macros returns every named macro.
func (s *Service) Macros() map[string]macro.Macro {
	return s.registry.All()
}

// Names returns the sorted macro names.
func (s *Service) Names() []string {
	return s.registry.Names()
}

// Macro returns the named macro or a NotFound error.
func (s *Service) Macro(name string) (macro.Macro, error) {
	m, ok := s.registry.Get(name)
	if !ok {
		return nil, apperr.NotFound("macro does not exist")
	}
	return m, nil
}

// RunNamed executes a configured macro. Backend failures are server faults.
func (s *Service) RunNamed(name string) error {
	m, err := s.Macro(name)
	if err != nil {
		return err
	}
	s.logger.Info("running macro", "name", name, "controls", len(m))
	if err := s.executor.Run(m).Err(true); err != nil {
		return err
	}
	s.notify("Remote Macro: " + name)
	return nil
}

// RunMacro executes a caller-supplied macro.
func (s *Service) RunMacro(m macro.Macro) error {
	s.logger.Info("running ad-hoc macro", "controls", len(m))
	if err := s.executor.Run(m).Err(false); err != nil {
		return err
	}
	s.notify("Remote Macro: (ad-hoc)")
	return nil
}

// RunControl executes a single caller-supplied control.
func (s *Service) RunControl(c macro.Control) error {
	if c == nil {
		return apperr.ValidationFailed(nil, "invalid control")
	}
	if err := s.executor.Run(macro.Macro{c}).Err(false); err != nil {
		return err
	}
	s.notify("Remote Control: " + string(c.Type()))
	return nil
}
