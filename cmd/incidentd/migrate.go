package main

import (
	"github.com/homeledger/incident-engine/internal/logger"
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, log, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			store, err := openStore(settings)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.Initialize(); err != nil {
				return err
			}
			log.Info("schema migrated", logger.String("driver", store.Driver()))
			return nil
		},
	}
}
