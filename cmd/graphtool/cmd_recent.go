package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/colinandrus/StravaRouter/store"
)

func newRecentCmd() *cobra.Command {
	var (
		databaseURL string
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently planned routes from the route archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(cmd)
			if err != nil {
				return err
			}
			if databaseURL == "" {
				databaseURL = os.Getenv("DATABASE_URL")
			}
			if databaseURL == "" {
				return fmt.Errorf("--database-url or DATABASE_URL is required")
			}
			if limit < 1 || limit > 100 {
				return fmt.Errorf("--limit must be between 1 and 100")
			}

			ctx := cmd.Context()
			routes, err := store.Open(ctx, databaseURL, log)
			if err != nil {
				return err
			}
			defer routes.Close()

			recent, err := routes.Recent(ctx, limit)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(recent); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL (env: DATABASE_URL)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of routes to list")

	return cmd
}
