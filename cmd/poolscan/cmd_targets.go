package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhamidi/poolscan/classfile"
)

func newTargetsCmd() *cobra.Command {
	var rules ruleFlags

	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Print the effective target list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rules.load(cmd)
			if err != nil {
				return err
			}
			mode, err := cfg.MatchMode()
			if err != nil {
				return err
			}
			sc := cfg.Scanner()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# mode=%s max_major_version=%d\n", mode, sc.MaxMajorVersion())
			for _, t := range sc.Targets() {
				if isInternalClassName(t) {
					fmt.Fprintf(out, "%s\t%s\n", t, classfile.InternalToSourceName(t))
				} else {
					fmt.Fprintln(out, t)
				}
			}
			return nil
		},
	}

	rules.register(cmd)
	return cmd
}

// isInternalClassName reports whether t looks like pkg/Name rather than a
// descriptor or a plain string.
func isInternalClassName(t string) bool {
	return strings.Contains(t, "/") && !strings.ContainsAny(t, ";()[ ")
}
