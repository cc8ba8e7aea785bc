//go:build !windows

package autostart

func enableWindows(Entry) error { return ErrUnsupported }

func disableWindows() error { return ErrUnsupported }

func isEnabledWindows() bool { return false }
