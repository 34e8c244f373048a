package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/homeledger/incident-engine/internal/api"
	apiv2 "github.com/homeledger/incident-engine/internal/api/v2"
	"github.com/homeledger/incident-engine/internal/logger"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, log, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if listen != "" {
				settings.HTTP.Listen = listen
			}
			rt, err := newRuntime(settings, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, rt)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "override http.listen")
	return cmd
}

func serve(ctx context.Context, rt *runtime) error {
	server := api.NewServer(rt.log, rt.settings.HTTP.RequestTimeout.Std())
	apiv2.New(server.Echo(), rt.engine, rt.snoozes, rt.resolver, rt.store, rt.log, apiv2.Options{
		RateLimit:      rt.settings.HTTP.RateLimit,
		RateBurst:      rt.settings.HTTP.RateBurst,
		MetricsHandler: rt.metrics.Handler(),
	})

	rt.log.Info("incidentd starting",
		logger.String("version", version),
		logger.String("driver", rt.store.Driver()),
		logger.Int("surfacing_threshold", rt.engine.Threshold()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx, rt.settings.HTTP.Listen)
	})
	g.Go(func() error {
		<-gctx.Done()
		rt.log.Info("shutting down")
		return nil
	})
	return g.Wait()
}
