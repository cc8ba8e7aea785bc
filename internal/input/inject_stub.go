//go:build !darwin && !windows && !linux

package input

// Stub implementation for platforms without an injection backend

// Injector represents a stub input injector
type Injector struct{}

// NewInjector creates a new stub injector
func NewInjector() *Injector {
	return &Injector{}
}

// TapKey validates the key names, then fails with ErrUnsupportedPlatform.
func (i *Injector) TapKey(key string, modifiers []string) error {
	if _, err := LookupKey(key); err != nil {
		return err
	}
	if _, err := ParseModifiers(modifiers); err != nil {
		return err
	}
	return ErrUnsupportedPlatform
}

// TypeText injects text (stub)
func (i *Injector) TypeText(text string) error {
	if text == "" {
		return nil
	}
	return ErrUnsupportedPlatform
}
