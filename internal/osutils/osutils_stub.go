//go:build !windows

package osutils

import (
	"log/slog"
	"os"
)

// IsAdmin reports whether the process runs as root.
func IsAdmin() bool {
	return os.Geteuid() == 0
}

// EnsureFirewallRule only manages rules on Windows.
func EnsureFirewallRule(port int, logger *slog.Logger) error {
	logger.Info("automatic firewall rules are only supported on Windows", "port", port)
	return nil
}
