package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hlemont/stream-automate/internal/input"
	"github.com/hlemont/stream-automate/internal/macro"
)

func newMacroCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "macro",
		Short: "Inspect and run the configured macros",
	}
	cmd.AddCommand(
		newMacroListCmd(opts),
		newMacroShowCmd(opts),
		newMacroRunCmd(opts),
	)
	return cmd
}

func registry(opts *rootOptions) (*macro.Registry, error) {
	mgr, err := opts.load()
	if err != nil {
		return nil, err
	}
	return mgr.Get().Macros()
}

func newMacroListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List macro names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry(opts)
			if err != nil {
				return err
			}
			for _, name := range reg.Names() {
				m, _ := reg.Get(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d controls\n", name, len(m))
			}
			return nil
		},
	}
}

func newMacroShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Print a macro as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry(opts)
			if err != nil {
				return err
			}
			m, ok := reg.Get(args[0])
			if !ok {
				return fmt.Errorf("macro %q does not exist", args[0])
			}
			data, err := json.MarshalIndent(m, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
			return nil
		},
	}
}

func newMacroRunCmd(opts *rootOptions) *cobra.Command {
	var (
		dryRun bool
		wait   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run NAME",
		Short: "Run a macro on this machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := opts.load()
			if err != nil {
				return err
			}
			logger, err := opts.logger(mgr.Get())
			if err != nil {
				return err
			}
			reg, err := mgr.Get().Macros()
			if err != nil {
				return err
			}
			m, ok := reg.Get(args[0])
			if !ok {
				return fmt.Errorf("macro %q does not exist", args[0])
			}

			var backend macro.Backend = input.NewInjector()
			execOpts := []macro.Option{macro.WithLogger(logger.With("component", "macro"))}
			if dryRun {
				p := printBackend{cmd: cmd}
				backend = p
				execOpts = append(execOpts, macro.WithSleep(p.Delay))
			}
			exec := macro.NewExecutor(backend, execOpts...)

			if wait > 0 && !dryRun {
				fmt.Fprintf(cmd.ErrOrStderr(), "running %q in %s\n", args[0], wait)
				time.Sleep(wait)
			}
			if err := exec.Run(m).Err(true); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "macro %q completed\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the controls instead of injecting input")
	cmd.Flags().DurationVar(&wait, "wait", 3*time.Second, "pause before running, to focus the target window")
	return cmd
}

// printBackend writes controls instead of injecting them.
type printBackend struct {
	cmd *cobra.Command
}

func (p printBackend) TapKey(key string, modifiers []string) error {
	fmt.Fprintf(p.cmd.OutOrStdout(), "key %s %v\n", key, modifiers)
	return nil
}

func (p printBackend) TypeText(text string) error {
	fmt.Fprintf(p.cmd.OutOrStdout(), "string %q\n", text)
	return nil
}

func (p printBackend) Delay(d time.Duration) {
	fmt.Fprintf(p.cmd.OutOrStdout(), "delay %s\n", d)
}
