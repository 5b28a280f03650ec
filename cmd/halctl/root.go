package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/kbukum/hyperdata/config"
	"github.com/kbukum/hyperdata/logger"
	"github.com/kbukum/hyperdata/observability"
)

const serviceName = "halctl"

type rootOptions struct {
	configFile string
	envFile    string
	baseURL    string
	logLevel   string
	policy     string

	cfg config.Config
	log *logger.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          serviceName,
		Short:        "Inspect a HAL API through the hyperdata cache",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load()
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "path to a .env file")
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "API root; overrides the config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.policy, "cache-policy", "", "stale-while-revalidate or refetch")

	cmd.AddCommand(newGetCmd(opts), newVersionCmd())
	return cmd
}

func (o *rootOptions) load() error {
	var loaderOpts []config.LoaderOption
	if o.configFile != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(o.configFile))
	}
	if o.envFile != "" {
		loaderOpts = append(loaderOpts, config.WithEnvFile(o.envFile))
	}
	if err := config.LoadConfig(serviceName, &o.cfg, loaderOpts...); err != nil {
		return err
	}
	if o.baseURL != "" {
		o.cfg.BaseURL = o.baseURL
	}
	if o.logLevel != "" {
		o.cfg.Logging.Level = o.logLevel
	}
	if o.policy != "" {
		o.cfg.Cache.Policy = config.CachePolicy(o.policy)
	}
	if o.cfg.BaseURL == "" {
		return errors.New("no API root: set --base-url or base_url in the config")
	}
	o.cfg.ApplyDefaults()
	if o.cfg.Logging.Output == "stdout" {
		// stdout carries the snapshots
		o.cfg.Logging.Output = "stderr"
	}
	o.log = logger.New(&o.cfg.Logging, serviceName)
	return nil
}

// startTelemetry installs OTLP exporters when metrics are enabled. The
// returned func flushes and stops them.
func (o *rootOptions) startTelemetry(ctx context.Context) (func(), error) {
	if !o.cfg.Metrics.Enabled {
		return func() {}, nil
	}
	ec := observability.DefaultExportConfig(serviceName)
	ec.Environment = o.cfg.Environment
	ec.Endpoint = o.cfg.Metrics.Endpoint
	ec.Insecure = o.cfg.Metrics.Insecure
	ec.Interval = o.cfg.Metrics.Interval
	ec.SampleRate = o.cfg.Metrics.SampleRate
	providers, err := observability.Init(ctx, ec)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := providers.Shutdown(context.WithoutCancel(ctx)); err != nil {
			o.log.Warn("telemetry shutdown failed", logger.Fields(logger.FieldError, err.Error()))
		}
	}, nil
}
