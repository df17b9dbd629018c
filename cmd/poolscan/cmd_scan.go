package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/dhamidi/poolscan/report"
	"github.com/dhamidi/poolscan/scan"
)

func newScanCmd() *cobra.Command {
	var rules ruleFlags
	var include, exclude []string
	var workers int
	var nested, matchesOnly, strict bool
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "scan <path>...",
		Short: "Scan directories, class files and jars",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rules.load(cmd)
			if err != nil {
				return err
			}
			cfg.Include = append(cfg.Include, include...)
			cfg.Exclude = append(cfg.Exclude, exclude...)
			if cmd.Flags().Changed("workers") {
				cfg.Workers = &workers
			}
			if cmd.Flags().Changed("nested") {
				cfg.NestedArchives = &nested
			}

			sc := cfg.Scanner()
			if sc.Len() == 0 {
				return fmt.Errorf("no targets: pass --target, --class or a rules file")
			}
			mode, err := cfg.MatchMode()
			if err != nil {
				return err
			}

			enc, err := report.ForFormat(outputFormat, cmd.OutOrStdout(), matchesOnly)
			if err != nil {
				return err
			}

			runner := scan.New(sc, scan.Options{
				Mode:           mode,
				Include:        cfg.Include,
				Exclude:        cfg.Exclude,
				Workers:        cfg.WorkerCount(runtime.NumCPU()),
				NestedArchives: cfg.Nested(),
				MaxEntryBytes:  cfg.EntryLimit(),
			})

			var encErr error
			sum, err := runner.Run(cmd.Context(), args, func(res scan.Result) {
				if encErr == nil {
					encErr = enc.Encode(res)
				}
			})
			if err != nil {
				return err
			}
			if encErr != nil {
				return fmt.Errorf("write report: %w", encErr)
			}
			if err := enc.Close(sum); err != nil {
				return fmt.Errorf("write report: %w", err)
			}

			if strict && sum.Errors > 0 {
				return fmt.Errorf("%d class files could not be scanned", sum.Errors)
			}
			if sum.Matched == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "no matches")
			}
			return nil
		},
	}

	rules.register(cmd)
	cmd.Flags().StringArrayVar(&include, "include", nil, "only scan entries matching this glob (repeatable)")
	cmd.Flags().StringArrayVar(&exclude, "exclude", nil, "skip entries matching this glob (repeatable)")
	cmd.Flags().IntVarP(&workers, "workers", "j", 0, "parallel scans (default: number of CPUs)")
	cmd.Flags().BoolVar(&nested, "nested", false, "descend into jars inside jars")
	cmd.Flags().BoolVar(&matchesOnly, "matches-only", false, "only report matching class files")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail if any class file could not be decoded")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "line", "output format (line, json)")

	return cmd
}
