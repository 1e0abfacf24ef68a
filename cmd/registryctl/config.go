package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/noema-protocol/registry-client/pkg/metrics"
)

// Config is the command line configuration, sourced from flags, the
// environment and an optional .env file, in that order of precedence.
type Config struct {
	LogLevel string `mapstructure:"log_level"`
	AppName  string `mapstructure:"app_name"`

	Cluster     string `mapstructure:"cluster"`
	RPCEndpoint string `mapstructure:"rpc_endpoint"`
	Keypair     string `mapstructure:"keypair"`

	// Requests per second per RPC method. Zero disables limiting.
	RPCRateLimit float64 `mapstructure:"rpc_rate_limit"`

	NewRelicLicenseKey string `mapstructure:"new_relic_license_key"`
}

var defaultConfig = Config{
	LogLevel: "warn",
	AppName:  "registryctl",
	Cluster:  "devnet",
	Keypair:  filepath.Join("~", ".config", "solana", "id.json"),
}

func init() {
	_ = viper.BindEnv("log_level", "LOG_LEVEL")
	_ = viper.BindEnv("app_name", "APP_NAME")

	_ = viper.BindEnv("cluster", "AGENT_REGISTRY_CLUSTER")
	_ = viper.BindEnv("rpc_endpoint", "SOLANA_RPC_ENDPOINT")
	_ = viper.BindEnv("keypair", "SOLANA_KEYPAIR")
	_ = viper.BindEnv("rpc_rate_limit", "SOLANA_RPC_RATE_LIMIT")

	_ = viper.BindEnv("new_relic_license_key", "NEW_RELIC_LICENSE_KEY")
}

func loadConfig() (Config, error) {
	config := defaultConfig
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, err
	}

	if strings.HasPrefix(config.Keypair, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, err
		}
		config.Keypair = filepath.Join(home, strings.TrimPrefix(config.Keypair, "~"))
	}

	return config, nil
}

func configureLogger(config Config, metricsProvider *newrelic.Application) {
	if metricsProvider != nil {
		logrus.SetFormatter(metrics.NewCustomNewRelicLogFormatter(metricsProvider, &logrus.JSONFormatter{}))
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{})
	}

	level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		logrus.StandardLogger().WithField("log_level", config.LogLevel).Warn("unknown log level, ignoring")
	} else {
		logrus.SetLevel(level)
	}

	logrus.SetOutput(os.Stderr)
}
