package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hlemont/stream-automate/internal/app"
	"github.com/hlemont/stream-automate/internal/config"
	"github.com/hlemont/stream-automate/internal/input"
	"github.com/hlemont/stream-automate/internal/obs"
	"github.com/hlemont/stream-automate/internal/osutils"
	"github.com/hlemont/stream-automate/internal/tray"
)

type serveOptions struct {
	tray         bool
	openFirewall bool
	console      bool
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Starts the HTTP API. Type "restart" on stdin or send SIGHUP to reload the
configuration, "stop" to exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, root, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.tray, "tray", false, "show a system tray icon")
	cmd.Flags().BoolVar(&opts.openFirewall, "open-firewall", false, "create an inbound firewall rule for the server port (Windows)")
	cmd.Flags().BoolVar(&opts.console, "console", true, "read restart/stop commands from stdin")
	return cmd
}

func runServe(cmd *cobra.Command, root *rootOptions, opts *serveOptions) error {
	mgr, err := root.load()
	if err != nil {
		return err
	}
	cfg := mgr.Get()
	logger, err := root.logger(cfg)
	if err != nil {
		return err
	}
	logger.Info("stream-automate starting", "version", version)

	if opts.openFirewall {
		go func() {
			if err := osutils.EnsureFirewallRule(cfg.General.ServerPort, logger); err != nil {
				logger.Warn("firewall rule not created", "error", err)
			}
		}()
	}

	var t *tray.Tray
	appOpts := []app.Option{app.WithLogger(logger)}
	if opts.tray {
		t = tray.New(config.AppName, "stream-automate: OBS remote control")
		status := t.AddMenuItem("OBS: "+obs.Disconnected.String(), nil)
		appOpts = append(appOpts, app.WithStateListener(func(s obs.State) {
			t.SetItemTitle(status, "OBS: "+s.String())
			t.SetItemChecked(status, s == obs.Connected)
		}))
	}

	a, err := app.New(mgr, input.NewInjector(), appOpts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go reloadOnHangup(ctx, a, logger)
	if opts.console {
		go a.Console(ctx, cmd.InOrStdin())
	}

	if t == nil {
		return a.Run(ctx)
	}

	t.AddSeparator()
	t.AddMenuItem("Reload configuration", func() {
		if err := a.Reload(ctx); err != nil {
			logger.Error("reload failed, keeping previous configuration", "error", err)
		}
	})
	t.AddMenuItem("Quit", a.Stop)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx)
		t.Stop()
	}()
	t.Run()
	a.Stop()
	return <-errCh
}

func reloadOnHangup(ctx context.Context, a *app.App, logger *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			logger.Info("SIGHUP received, reloading configuration")
			if err := a.Reload(ctx); err != nil {
				logger.Error("reload failed, keeping previous configuration", "error", err)
			}
		}
	}
}
