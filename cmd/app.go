package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"airdemand/config"
	"airdemand/internal/metrics"
	"airdemand/logger"
	"airdemand/provider"
)

// app is the wiring shared by every command.
type app struct {
	cfg       *config.Config
	log       *logger.Log
	collector *metrics.Collector
	sink      *metrics.CloudWatchSink
	provider  *provider.Provider
	session   *provider.Session
}

// newApp loads configuration, configures logging and metrics, and builds the
// market data provider. logOutput, when set, replaces a stdout log output so
// that command output stays clean.
func newApp(ctx context.Context, v *viper.Viper, logOutput string) (*app, error) {
	log := logger.GetLogger()

	cfg, err := config.LoadConfig(v.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	output := cfg.Logging.Output
	if logOutput != "" && (output == "" || output == "stdout") {
		output = logOutput
	}
	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, output, cfg.Logging.MaxAge); err != nil {
		return nil, fmt.Errorf("failed to configure logger: %w", err)
	}

	a := &app{cfg: cfg, log: log}

	opts := []provider.Option{provider.WithLogger(log)}
	if cfg.Metrics.Prometheus {
		a.collector = metrics.NewCollector(log)
		opts = append(opts, provider.WithRecorder(a.collector))
	}

	if cfg.Metrics.CloudWatch.Enabled {
		sink, err := metrics.NewCloudWatchSink(ctx, cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create cloudwatch sink: %w", err)
		}
		sink.Attach()
		a.sink = sink
	}

	pcfg := provider.ConfigFrom(cfg)
	p, err := provider.New(ctx, pcfg, opts...)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create market data provider: %w", err)
	}
	a.provider = p
	a.session = provider.NewSession(p, log)

	a.warnOnMock(pcfg)
	return a, nil
}

func (a *app) warnOnMock(pcfg provider.Config) {
	if !pcfg.UsesMock() {
		return
	}
	env := config.AppEnvironment()
	entry := a.log.WithComponent("main").WithField("environment", env)
	if config.IsProductionLike(env) {
		entry.Error("no API key configured in a production environment; serving mock market data")
		return
	}
	entry.Warn("no API key configured; serving mock market data")
}

func (a *app) close() {
	if a.sink != nil {
		a.sink.Detach()
	}
}
