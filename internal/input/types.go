// Package input injects keyboard input into the host operating system.
package input

import (
	"errors"
	"time"
)

// ErrUnsupportedPlatform is returned when no injection backend exists
// for the running OS.
var ErrUnsupportedPlatform = errors.New("input injection not supported on this platform")

// InputInjector defines the interface for injecting keyboard events.
// Implementations are synchronous: a call returns once the OS accepted
// (or rejected) the events.
type InputInjector interface {
	// TapKey presses and releases key while holding modifiers.
	TapKey(key string, modifiers []string) error

	// TypeText types text as if entered on a keyboard. Empty text is a no-op.
	TypeText(text string) error
}

// DefaultKeyDelay is the pause after each injected event group, so the
// target application sees distinct keystrokes.
const DefaultKeyDelay = time.Millisecond

var _ InputInjector = (*Injector)(nil)
