package main

import (
	"fmt"
	"time"

	"github.com/homeledger/incident-engine/internal/logger"
	"github.com/spf13/cobra"
)

func newExpireCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "expire",
		Short: "Expire open incidents not observed within engine.stale_after",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, log, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			rt, err := newRuntime(settings, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			cutoff := settings.Engine.StaleCutoff(time.Now().UTC())
			n, err := rt.engine.ExpireStale(cmd.Context(), cutoff, limit)
			if err != nil {
				return err
			}
			log.Info("stale sweep finished",
				logger.Time("cutoff", cutoff),
				logger.Int("expired", n))
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "expired %d incident(s) not observed since %s\n", n, cutoff.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 500, "maximum incidents to expire in one run")
	return cmd
}
