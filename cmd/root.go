package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hlemont/stream-automate/internal/config"
	"github.com/hlemont/stream-automate/internal/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           config.AppName,
		Short:         "Remote control for OBS Studio and keyboard macros",
		Long:          `stream-automate serves an HTTP API that drives OBS Studio through obs-websocket and replays keyboard macros on the host.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (json, jsonc, yaml or toml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file with environment overrides")

	cmd.AddCommand(
		newServeCmd(opts),
		newCheckCmd(opts),
		newMacroCmd(opts),
		newAutostartCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// load reads the configuration the flags point at.
func (o *rootOptions) load() (*config.Manager, error) {
	if err := config.LoadDotEnv(o.envFile); err != nil {
		return nil, err
	}
	mgr, err := config.NewManager(o.configPath)
	if err != nil {
		return nil, err
	}
	if _, err := mgr.Load(); err != nil {
		return nil, err
	}
	return mgr, nil
}

// logger builds the process logger; the flag wins over the config.
func (o *rootOptions) logger(cfg *config.Config) (*slog.Logger, error) {
	level := cfg.General.LogLevel
	if o.logLevel != "" {
		level = o.logLevel
	}
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return logging.New(lvl), nil
}
