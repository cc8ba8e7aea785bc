//go:build linux

package input

import (
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Linux implementation of input injection through xdotool (X11/XWayland)

// Injector represents a Linux input injector
type Injector struct {
	delay time.Duration
	run   func(name string, args ...string) ([]byte, error)
}

// NewInjector creates a new xdotool-backed injector
func NewInjector() *Injector {
	return &Injector{
		delay: DefaultKeyDelay,
		run: func(name string, args ...string) ([]byte, error) {
			path, err := exec.LookPath(name)
			if err != nil {
				return nil, fmt.Errorf("%w: %s not found in PATH", ErrUnsupportedPlatform, name)
			}
			return exec.Command(path, args...).CombinedOutput()
		},
	}
}

func (i *Injector) xdotool(args ...string) error {
	out, err := i.run("xdotool", args...)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("xdotool %s: %w: %s", args[0], err, msg)
		}
		return fmt.Errorf("xdotool %s: %w", args[0], err)
	}
	return nil
}

// TapKey sends a single key chord, e.g. "ctrl+shift+a".
func (i *Injector) TapKey(key string, modifiers []string) error {
	k, err := LookupKey(key)
	if err != nil {
		return err
	}
	mods, err := ParseModifiers(modifiers)
	if err != nil {
		return err
	}

	parts := make([]string, 0, len(mods)+1)
	for _, m := range mods {
		parts = append(parts, m.Key().X11)
	}
	parts = append(parts, k.X11)

	if err := i.xdotool("key", "--clearmodifiers", strings.Join(parts, "+")); err != nil {
		return err
	}
	time.Sleep(i.delay)
	return nil
}

// TypeText types text with the configured per-key delay.
func (i *Injector) TypeText(text string) error {
	if text == "" {
		return nil
	}
	ms := int(i.delay / time.Millisecond)
	return i.xdotool("type", "--delay", fmt.Sprint(ms), "--", text)
}
