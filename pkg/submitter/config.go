package submitter

import (
	"time"

	"github.com/noema-protocol/registry-client/pkg/config"
	"github.com/noema-protocol/registry-client/pkg/config/env"
	"github.com/noema-protocol/registry-client/pkg/config/memory"
	"github.com/noema-protocol/registry-client/pkg/config/wrapper"
	"github.com/noema-protocol/registry-client/pkg/solana"
)

const (
	envConfigPrefix = "SUBMITTER_"

	ConfirmationTimeoutConfigEnvName = envConfigPrefix + "CONFIRMATION_TIMEOUT"
	defaultConfirmationTimeout       = 60 * time.Second

	PollIntervalConfigEnvName = envConfigPrefix + "POLL_INTERVAL"
	defaultPollInterval       = solana.PollRate

	CommitmentConfigEnvName = envConfigPrefix + "COMMITMENT"
	defaultCommitment       = "confirmed"

	SimulateBeforeSendConfigEnvName = envConfigPrefix + "SIMULATE_BEFORE_SEND"
	defaultSimulateBeforeSend       = true

	ComputeUnitLimitConfigEnvName = envConfigPrefix + "COMPUTE_UNIT_LIMIT"
	defaultComputeUnitLimit       = 0

	ComputeUnitPriceConfigEnvName = envConfigPrefix + "COMPUTE_UNIT_PRICE"
	defaultComputeUnitPrice       = 0

	// When set, a memo of the form "<memo>:<submission id>" is appended to
	// every transaction.
	MemoConfigEnvName = envConfigPrefix + "MEMO"
	defaultMemo       = ""
)

type conf struct {
	confirmationTimeout config.Duration
	pollInterval        config.Duration
	commitment          config.String
	simulateBeforeSend  config.Bool
	computeUnitLimit    config.Uint64
	computeUnitPrice    config.Uint64
	memo                config.String
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			confirmationTimeout: env.NewDurationConfig(ConfirmationTimeoutConfigEnvName, defaultConfirmationTimeout),
			pollInterval:        env.NewDurationConfig(PollIntervalConfigEnvName, defaultPollInterval),
			commitment:          env.NewStringConfig(CommitmentConfigEnvName, defaultCommitment),
			simulateBeforeSend:  env.NewBoolConfig(SimulateBeforeSendConfigEnvName, defaultSimulateBeforeSend),
			computeUnitLimit:    env.NewUint64Config(ComputeUnitLimitConfigEnvName, defaultComputeUnitLimit),
			computeUnitPrice:    env.NewUint64Config(ComputeUnitPriceConfigEnvName, defaultComputeUnitPrice),
			memo:                env.NewStringConfig(MemoConfigEnvName, defaultMemo),
		}
	}
}

// Overrides are fixed configuration values, for callers that configure the
// submitter in code rather than through the environment.
type Overrides struct {
	ConfirmationTimeout time.Duration
	PollInterval        time.Duration
	Commitment          string
	SkipSimulation      bool
	ComputeUnitLimit    uint64
	ComputeUnitPrice    uint64
	Memo                string
}

// WithOverrides returns configuration backed by fixed values. Zero values
// fall back to the defaults.
func WithOverrides(overrides *Overrides) ConfigProvider {
	return func() *conf {
		return &conf{
			confirmationTimeout: wrapper.NewDurationConfig(optional(overrides.ConfirmationTimeout), defaultConfirmationTimeout),
			pollInterval:        wrapper.NewDurationConfig(optional(overrides.PollInterval), defaultPollInterval),
			commitment:          wrapper.NewStringConfig(optional(overrides.Commitment), defaultCommitment),
			simulateBeforeSend:  wrapper.NewBoolConfig(memory.NewConfig(!overrides.SkipSimulation), defaultSimulateBeforeSend),
			computeUnitLimit:    wrapper.NewUint64Config(memory.NewConfig(overrides.ComputeUnitLimit), defaultComputeUnitLimit),
			computeUnitPrice:    wrapper.NewUint64Config(memory.NewConfig(overrides.ComputeUnitPrice), defaultComputeUnitPrice),
			memo:                wrapper.NewStringConfig(optional(overrides.Memo), defaultMemo),
		}
	}
}

// positive returns d, or fallback when d is zero or negative.
func positive(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

func optional[T comparable](v T) config.Config {
	var zero T
	if v == zero {
		return config.NoopConfig
	}
	return memory.NewConfig(v)
}
