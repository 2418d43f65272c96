package common

import (
	"io"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/weaveworks/promrus"
	"gopkg.in/natefinch/lumberjack.v2"

	commonconfig "github.com/G-Research/memcload/internal/common/config"
	"github.com/G-Research/memcload/internal/common/logging"
)

const (
	envPrefix       = "MEMCLOAD"
	configName      = "config"
	maxLogFileSizeM = 100
	maxLogBackups   = 5
)

// LoadConfig reads the config.yaml found in defaultPath (if any), merges the given override files on top of
// it and unmarshals the result into config.  Values already held by config are kept unless overridden.
// Environment variables prefixed with MEMCLOAD_ override keys present in a config file.
func LoadConfig(config interface{}, defaultPath string, overrideConfigs []string, hooks ...mapstructure.DecodeHookFunc) error {
	viper.SetConfigName(configName)
	viper.AddConfigPath(defaultPath)
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errors.WithMessagef(err, "error reading base config from %s", defaultPath)
		}
		log.Debugf("No base config found in %s", defaultPath)
	} else {
		log.Infof("Read base config from %s", viper.ConfigFileUsed())
	}

	for _, overrideConfig := range overrideConfigs {
		viper.SetConfigFile(overrideConfig)
		if err := viper.MergeInConfig(); err != nil {
			return errors.WithMessagef(err, "error reading config from %s", overrideConfig)
		}
		log.Infof("Read config from %s", viper.ConfigFileUsed())
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	if err := viper.Unmarshal(config, commonconfig.CustomHooks(hooks...)); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// ExportLogMetrics counts log messages per level in the default prometheus registry
func ExportLogMetrics() {
	hook, err := promrus.NewPrometheusHook()
	if err != nil {
		log.WithError(err).Warn("Failed to export log metrics")
		return
	}
	log.AddHook(hook)
}

func ConfigureLogging() {
	log.SetFormatter(&log.TextFormatter{ForceColors: true, FullTimestamp: true})
	log.SetOutput(os.Stdout)
}

// ConfigureLogOutput sets the log level and, when logFile is set, sends logs to a rotated file instead of stdout
func ConfigureLogOutput(debug bool, logFile string) {
	if debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
	if logFile == "" {
		return
	}
	log.SetFormatter(&log.TextFormatter{DisableColors: true, FullTimestamp: true})
	log.SetOutput(newLogFileWriter(logFile))
}

func newLogFileWriter(logFile string) io.Writer {
	return &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    maxLogFileSizeM,
		MaxBackups: maxLogBackups,
	}
}

// ConfigureCommandLineLogging prints bare messages to stdout, for commands whose output is meant for people
func ConfigureCommandLineLogging() {
	commandLineFormatter := new(logging.CommandLineFormatter)
	log.SetFormatter(commandLineFormatter)
	log.SetOutput(os.Stdout)
}
