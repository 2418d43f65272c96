package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	CustomConfigLocation = "config"
	defaultConfigPath    = "./config/memcload"
)

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memcload",
		Short: "memcload loads gzipped tsv shards of installed apps into memcached or redis.",
		// Errors are logged by main
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringSlice(CustomConfigLocation, []string{},
		"Fully qualified path to application configuration file (for multiple config files repeat this arg or separate paths with commas)")
	cmd.PersistentFlags().Bool("verbose", false, "Log at debug level")
	cmd.PersistentFlags().String("log", "", "Write logs to this file instead of stdout")
	_ = viper.BindPFlag("verbose", cmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("logFile", cmd.PersistentFlags().Lookup("log"))

	cmd.AddCommand(
		loadCmd(),
		checkCmd(),
	)

	return cmd
}
