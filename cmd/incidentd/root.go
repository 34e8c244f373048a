package main

import (
	"fmt"
	"io"
	"os"

	"github.com/homeledger/incident-engine/internal/conf"
	"github.com/homeledger/incident-engine/internal/logger"
	"github.com/spf13/cobra"
)

var version = "dev"

type rootOptions struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "incidentd",
		Short:         "Incident lifecycle and severity orchestration engine",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "path to config file (default: ./incidentd.yaml or /etc/incidentd/incidentd.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")

	cmd.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newExpireCmd(opts),
		newTraceCmd(opts),
	)
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetVersionTemplate(fmt.Sprintf("incidentd version %s\n", version))
	return cmd
}

// load reads settings and builds the process logger.
func (o *rootOptions) load(w io.Writer) (*conf.Settings, logger.Logger, error) {
	settings, err := conf.Load(o.configFile)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		settings.Logging.Level = o.logLevel
	}
	if w == nil {
		w = os.Stderr
	}
	log := logger.NewSlogLoggerWithOptions(w, logger.ParseLevel(settings.Logging.Level), logger.Options{
		JSON: settings.Logging.Format == "json",
	})
	return settings, log, nil
}
