package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/booksage/booksage-recommend/internal/domain/models"
	"github.com/booksage/booksage-recommend/internal/infrastructure/server"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newQueryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Answer one recommendation query and print the JSON response",
		Example: `  booksage-recommend query "我想看鲁迅的书" --limit 5
  booksage-recommend query "books by Haruki Murakami"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := server.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			resp := app.Pipeline.ResolveAndRecommend(cmd.Context(), strings.Join(args, " "), limit)
			return writeResponse(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of recommendations (0 uses the configured default)")
	return cmd
}

func writeResponse(w io.Writer, resp *models.Response) error {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
