package cmd

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/G-Research/memcload/internal/common"
	"github.com/G-Research/memcload/internal/common/app"
	commonconfig "github.com/G-Research/memcload/internal/common/config"
	"github.com/G-Research/memcload/internal/common/serve"
	"github.com/G-Research/memcload/internal/memcload"
	"github.com/G-Research/memcload/internal/memcload/configuration"
)

var errFailedLoad = errors.New("error rate above threshold")

func loadCmd() *cobra.Command {
	defaults := configuration.Default()

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load every shard matching the pattern",
		Long: `Load every gzipped tsv shard matching the pattern into the cache of its device type.
Shards that were loaded completely are renamed to a dot file so that a rerun skips them.
The command fails if the share of bad lines is not below the error threshold.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runLoad(config)
		},
	}

	cmd.Flags().String("pattern", defaults.Pattern, "Glob matching the shards to load")
	cmd.Flags().Bool("dry", false, "Log what would be written instead of writing it")
	_ = viper.BindPFlag("pattern", cmd.Flags().Lookup("pattern"))
	_ = viper.BindPFlag("dry", cmd.Flags().Lookup("dry"))
	for _, devType := range configuration.DefaultDeviceTypes {
		cmd.Flags().String(devType, defaults.Partitions[devType].Address,
			"Cache for "+devType+" devices, as host:port or redis://host:port")
	}

	return cmd
}

func loadConfig(cmd *cobra.Command) (configuration.MemcLoadConfiguration, error) {
	config := configuration.Default()
	userSpecifiedConfigs, err := cmd.Flags().GetStringSlice(CustomConfigLocation)
	if err != nil {
		return config, err
	}
	err = common.LoadConfig(&config, defaultConfigPath, userSpecifiedConfigs,
		commonconfig.StringToTypeHookFunc(configuration.ParseTarget))
	if err != nil {
		return config, err
	}

	if err := applyTargetFlags(cmd.Flags(), &config); err != nil {
		return config, err
	}

	common.ConfigureLogOutput(config.Verbose || config.Dry, config.LogFile)
	if err := config.Validate(); err != nil {
		commonconfig.LogValidationErrors(err)
		return config, errors.New("invalid configuration")
	}
	return config, nil
}

// applyTargetFlags lets the device type flags win over config files, but only when given explicitly
func applyTargetFlags(flags *pflag.FlagSet, config *configuration.MemcLoadConfiguration) error {
	if config.Partitions == nil {
		config.Partitions = map[string]configuration.TargetConfig{}
	}
	for _, devType := range configuration.DefaultDeviceTypes {
		if !flags.Changed(devType) {
			continue
		}
		value, err := flags.GetString(devType)
		if err != nil {
			return err
		}
		target, err := configuration.ParseTarget(value)
		if err != nil {
			return errors.WithMessagef(err, "invalid --%s", devType)
		}
		config.Partitions[devType] = target
	}
	return nil
}

func runLoad(config configuration.MemcLoadConfiguration) error {
	log.Infof("Memc loader started with options: pattern=%s dry=%t", config.Pattern, config.Dry)
	for devType, target := range config.Partitions {
		log.Infof("Writing %s devices to %s", devType, target)
	}

	if out, err := yaml.Marshal(config); err == nil {
		log.Debugf("Effective configuration:\n%s", out)
	}

	if config.MetricsPort > 0 {
		common.ExportLogMetrics()
		stopMetrics, err := serve.ServeMetrics(config.MetricsPort)
		if err != nil {
			return err
		}
		defer stopMetrics()
	}

	ctx, cancel := app.CreateContextWithShutdown()
	defer cancel()

	report, err := memcload.NewLoader(config).Run(ctx)
	if err != nil {
		return err
	}
	if !report.Acceptable {
		return errFailedLoad
	}
	return nil
}
