package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	var rules ruleFlags

	cmd := &cobra.Command{
		Use:   "check <file.class>",
		Short: "Report whether a single class file references a target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rules.load(cmd)
			if err != nil {
				return err
			}
			mode, err := cfg.MatchMode()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read class file: %w", err)
			}

			found, err := cfg.Scanner().Find(data, mode)
			if err != nil {
				return fmt.Errorf("scan %s: %w", args[0], err)
			}
			if found {
				fmt.Fprintln(cmd.OutOrStdout(), "match")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "no match")
			}
			return nil
		},
	}

	rules.register(cmd)
	return cmd
}
