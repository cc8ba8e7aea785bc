package app

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// Console reads operator commands from r, one per line, until r is
// exhausted or ctx is done. "restart" reloads the configuration and
// "stop" stops the app.
func (a *App) Console(ctx context.Context, r io.Reader) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			a.command(ctx, line)
		}
	}
}

func (a *App) command(ctx context.Context, line string) {
	switch cmd := strings.ToLower(strings.TrimSpace(line)); cmd {
	case "":
	case "restart", "reload":
		a.logger.Info("reloading configuration")
		if err := a.Reload(ctx); err != nil {
			a.logger.Error("reload failed, keeping previous configuration", "error", err)
		}
	case "stop", "quit", "exit":
		a.logger.Info("stop requested")
		a.Stop()
	default:
		a.logger.Warn("unknown command, expected restart or stop", "command", cmd)
	}
}
