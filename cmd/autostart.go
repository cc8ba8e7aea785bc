package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hlemont/stream-automate/internal/autostart"
)

func newAutostartCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autostart",
		Short: "Manage starting the server on login",
	}

	var withTray bool
	enable := &cobra.Command{
		Use:   "enable",
		Short: "Start the server on login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entryArgs := []string{"serve"}
			if opts.configPath != "" {
				abs, err := filepath.Abs(opts.configPath)
				if err != nil {
					return err
				}
				entryArgs = append(entryArgs, "--config", abs)
			}
			if withTray {
				entryArgs = append(entryArgs, "--tray")
			}
			entry, err := autostart.CurrentEntry(entryArgs...)
			if err != nil {
				return err
			}
			if err := autostart.Enable(entry); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "autostart enabled: %s\n", entry.CommandLine())
			return nil
		},
	}
	enable.Flags().BoolVar(&withTray, "tray", true, "start with the tray icon")

	disable := &cobra.Command{
		Use:   "disable",
		Short: "Stop starting the server on login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := autostart.Disable(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "autostart disabled")
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Report whether autostart is enabled",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			state := "disabled"
			if autostart.IsEnabled() {
				state = "enabled"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "autostart %s\n", state)
		},
	}

	cmd.AddCommand(enable, disable, status)
	return cmd
}
