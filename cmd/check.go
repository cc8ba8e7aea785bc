package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and print it with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := opts.load()
			if err != nil {
				return err
			}
			cfg := mgr.Get()

			out := cmd.OutOrStdout()
			source := mgr.Path()
			if source == "" {
				source = "(defaults)"
			}
			fmt.Fprintf(out, "config: %s\n", source)

			masked := cfg.Masked()
			data, err := json.MarshalIndent(masked, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\n", data)

			fmt.Fprintf(out, "scene aliases: %d\n", len(cfg.OBS.SceneAliases))
			reg, err := cfg.Macros()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "macros: %d\n", len(reg.Names()))
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
}
