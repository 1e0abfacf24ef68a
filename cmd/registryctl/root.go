package main

import (
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	xrate "golang.org/x/time/rate"

	"github.com/noema-protocol/registry-client/pkg/agentregistry"
	"github.com/noema-protocol/registry-client/pkg/metrics"
	"github.com/noema-protocol/registry-client/pkg/rate"
	"github.com/noema-protocol/registry-client/pkg/solana"
	"github.com/noema-protocol/registry-client/pkg/submitter"
)

var rootCmd = &cobra.Command{
	Use:          "registryctl",
	Short:        "Agent registry program client",
	Long:         "Register agents, submit attestations and validations, and read registry accounts.",
	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return errors.Wrap(err, "failed to load config")
		}

		var metricsProvider *newrelic.Application
		if len(config.NewRelicLicenseKey) > 0 {
			metricsProvider, err = newrelic.NewApplication(
				newrelic.ConfigFromEnvironment(),
				newrelic.ConfigAppName(config.AppName),
				newrelic.ConfigLicense(config.NewRelicLicenseKey),
				newrelic.ConfigAppLogForwardingEnabled(true),
			)
			if err != nil {
				return errors.Wrap(err, "error connecting to new relic")
			}
		}

		configureLogger(config, metricsProvider)

		env = &environment{config: config, metricsProvider: metricsProvider}

		ctx := metrics.WithApplication(cmd.Context(), metricsProvider)
		ctx, env.endTransaction = metrics.StartTransaction(ctx, cmd.CommandPath())
		cmd.SetContext(ctx)
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("cluster", defaultConfig.Cluster, "Cluster the programs are deployed to (localnet, devnet, testnet, mainnet-beta)")
	flags.String("rpc", "", "JSON-RPC endpoint, defaults to the cluster's public endpoint")
	flags.String("keypair", defaultConfig.Keypair, "Signing keypair file")
	flags.String("log-level", defaultConfig.LogLevel, "Log level")

	_ = viper.BindPFlag("cluster", flags.Lookup("cluster"))
	_ = viper.BindPFlag("rpc_endpoint", flags.Lookup("rpc"))
	_ = viper.BindPFlag("keypair", flags.Lookup("keypair"))
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
}

// environment holds the state shared by every command of one invocation.
type environment struct {
	config          Config
	metricsProvider *newrelic.Application
	endTransaction  func(err error)

	client *agentregistry.Client
	signer *submitter.KeypairSigner
}

var env *environment

// close ends the command's transaction and flushes New Relic.
func (e *environment) close(err error) {
	if e.endTransaction != nil {
		e.endTransaction(err)
	}
	if e.metricsProvider != nil {
		e.metricsProvider.Shutdown(5 * time.Second)
	}
}

func (e *environment) registry() (*agentregistry.Client, error) {
	if e.client != nil {
		return e.client, nil
	}

	endpoint := e.config.RPCEndpoint
	if endpoint == "" {
		environment, err := solana.EnvironmentForCluster(e.config.Cluster)
		if err != nil {
			return nil, err
		}
		endpoint = string(environment)
	}

	var opts []solana.Option
	if e.config.RPCRateLimit > 0 {
		opts = append(opts, solana.WithRateLimiter(rate.NewLocalRateLimiter(xrate.Limit(e.config.RPCRateLimit))))
	}

	client, err := agentregistry.New(solana.New(endpoint, opts...), agentregistry.WithCluster(e.config.Cluster))
	if err != nil {
		return nil, err
	}

	e.client = client
	return client, nil
}

func (e *environment) keypairSigner() (*submitter.KeypairSigner, error) {
	if e.signer != nil {
		return e.signer, nil
	}

	key, err := loadKeypair(e.config.Keypair)
	if err != nil {
		return nil, err
	}

	e.signer = submitter.NewKeypairSigner(key)
	return e.signer, nil
}
