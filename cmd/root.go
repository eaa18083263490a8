package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"airdemand/config"
	"airdemand/logger"
)

const (
	RootCmdName  = "airdemand"
	RootCmdShort = "Simulated airline route demand and pricing"
	RootCmdLong  = `airdemand produces route demand and pricing data for an origin and
destination airport, either from a generative model or from built-in mock
data when no API key is configured, and serves it as a dashboard.`

	ServeCmdName  = "serve"
	ServeCmdShort = "Run the market dashboard"

	FetchCmdName  = "fetch ORIGIN DESTINATION"
	FetchCmdShort = "Print market data for one origin/destination pair"

	envPrefix = "AIRDEMAND"
)

// NewRootCmd builds the command tree with its own viper instance so flags
// and AIRDEMAND_* environment variables resolve per invocation.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           RootCmdName,
		Short:         RootCmdShort,
		Long:          RootCmdLong,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", config.DefaultConfigPath, "path to configuration file")
	_ = v.BindPFlag("config", root.PersistentFlags().Lookup("config"))

	root.AddCommand(newServeCmd(v), newFetchCmd(v))
	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		logger.GetLogger().WithComponent("main").WithError(err).Error("command failed")
		os.Exit(1)
	}
}
