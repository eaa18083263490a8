package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"airdemand/internal/dashboard"
	"airdemand/logger"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   ServeCmdName,
		Short: ServeCmdShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, v, "")
			if err != nil {
				return err
			}
			defer a.close()

			dashCfg := a.cfg.Dashboard
			if addr := v.GetString("address"); addr != "" {
				dashCfg.Address = addr
			}
			if !dashCfg.Enabled {
				return errors.New("dashboard is disabled in configuration; nothing to serve")
			}

			srv, err := dashboard.NewServer(dashCfg, dashboard.Options{
				AppName:   a.cfg.App.Name,
				Query:     a.cfg.Query,
				Session:   a.session,
				Collector: a.collector,
				Logger:    a.log,
			})
			if err != nil {
				return err
			}

			a.log.WithFields(logger.Fields{
				"service": a.cfg.App.Name,
				"version": a.cfg.App.Version,
				"source":  a.provider.Source(),
			}).Info("starting airdemand")

			return srv.Run(ctx)
		},
	}
	cmd.Flags().String("address", "", "dashboard listen address (overrides dashboard.address)")
	_ = v.BindPFlag("address", cmd.Flags().Lookup("address"))
	return cmd
}
