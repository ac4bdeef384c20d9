package main

import (
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kobe-finance/voice-orchestrate-hub-sub003/internal/config"
	"github.com/kobe-finance/voice-orchestrate-hub-sub003/internal/errors"
)

func initCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default optimist.json",
		Long: `Write optimist.json with the default settings to dir, or to the
current directory.

Examples:
  optimist init
  optimist init ./deploy --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(cmd.OutOrStdout(), dir, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing optimist.json")

	return cmd
}

func runInit(out io.Writer, dir string, force bool) error {
	path := filepath.Join(dir, config.ConfigFileName)
	if config.Exists(dir) && !force {
		return errors.New("C009").
			WithDetailf("%s already exists", path).
			WithSuggestion("Use --force to overwrite it")
	}

	cfg := config.New()
	if err := cfg.SaveTo(path); err != nil {
		return err
	}

	success(out, "Wrote %s", cfg.Path())
	info(out, "Run optimist simulate --config %s", cfg.Path())
	return nil
}
