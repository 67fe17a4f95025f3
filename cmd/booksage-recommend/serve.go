package main

import (
	"github.com/booksage/booksage-recommend/internal/infrastructure/server"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API until SIGINT or SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return server.New(cfg).Run(cmd.Context())
		},
	}
}
