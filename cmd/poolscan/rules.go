package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/dhamidi/poolscan/config"
)

var log = commonlog.GetLogger("poolscan")

// ruleFlags are the flags shared by every command that builds a scanner.
type ruleFlags struct {
	configPath string
	targets    []string
	classes    []string
	prefix     bool
	maxVersion uint16
}

func (f *ruleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "rules file (.yml, .yaml or .toml); defaults to ./.poolscan.yml if present")
	cmd.Flags().StringArrayVarP(&f.targets, "target", "t", nil, "string to look for in Utf8 constants (repeatable)")
	cmd.Flags().StringArrayVarP(&f.classes, "class", "c", nil, "class name to look for, dotted or internal form (repeatable)")
	cmd.Flags().BoolVar(&f.prefix, "prefix", false, "match constants that start with a target")
	cmd.Flags().Uint16Var(&f.maxVersion, "max-version", 0, "newest class-file major version to scan (default 68)")
}

// load merges the rules file, if any, with the command line.
func (f *ruleFlags) load(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	var err error

	if f.configPath != "" {
		cfg, err = config.LoadFile(f.configPath)
		if err != nil {
			return cfg, err
		}
	} else {
		var path string
		cfg, path, err = config.LoadLocal(".")
		switch {
		case errors.Is(err, config.ErrNoLocalConfig):
		case err != nil:
			return cfg, err
		default:
			log.Infof("using rules from %s", path)
		}
	}

	override := config.Config{Targets: f.targets, Classes: f.classes}
	if cmd.Flags().Changed("prefix") {
		mode := "exact"
		if f.prefix {
			mode = "prefix"
		}
		override.Mode = &mode
	}
	if cmd.Flags().Changed("max-version") {
		override.MaxMajorVersion = &f.maxVersion
	}
	cfg = cfg.Merge(override)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid rules: %w", err)
	}
	return cfg, nil
}
