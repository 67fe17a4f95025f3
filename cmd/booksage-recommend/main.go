// Package main is the entry point for the booksage-recommend CLI.
package main

import (
	"fmt"
	"os"

	"github.com/booksage/booksage-recommend/internal/config"
	"github.com/booksage/booksage-recommend/internal/logging"
	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

// cfg is loaded once in PersistentPreRunE and shared by every subcommand.
var cfg *config.Config

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "booksage-recommend",
		Short:   "Natural-language book recommendations over a local catalog",
		Version: version,
		Long: `booksage-recommend resolves free-text queries into author or topic
lookups against the book catalog, ranks the candidates with an LLM and
answers with a validated recommendation list.

Settings come from an optional YAML file and SAGE_* environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			loaded, err := config.Load(path)
			if err != nil {
				return err
			}
			cfg = loaded
			logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
			return nil
		},
	}
	root.PersistentFlags().String("config", "", "config file (yaml, toml or json)")

	root.AddCommand(newServeCmd(), newQueryCmd(), newImportCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
