package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhamidi/poolscan/classfile"
)

func newVersionOfCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version-of <file.class>...",
		Short: "Print the class-file major version and Java release",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read class file: %w", err)
				}
				major, err := classfile.MajorVersion(data)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				supported := ""
				if major > classfile.DefaultMaxMajorVersion {
					supported = "\t(newer than supported)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s%s\n", path, major, classfile.JavaVersion(major), supported)
			}
			return nil
		},
	}
}
