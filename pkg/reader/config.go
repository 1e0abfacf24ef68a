package reader

import (
	"time"

	"github.com/noema-protocol/registry-client/pkg/config"
	"github.com/noema-protocol/registry-client/pkg/config/env"
	"github.com/noema-protocol/registry-client/pkg/config/memory"
	"github.com/noema-protocol/registry-client/pkg/config/wrapper"
)

const (
	envConfigPrefix = "READER_"

	CommitmentConfigEnvName = envConfigPrefix + "COMMITMENT"
	defaultCommitment       = "confirmed"

	MaxConcurrencyConfigEnvName = envConfigPrefix + "MAX_CONCURRENCY"
	defaultMaxConcurrency       = 8

	VerifyOwnerConfigEnvName = envConfigPrefix + "VERIFY_OWNER"
	defaultVerifyOwner       = true

	TimeoutConfigEnvName = envConfigPrefix + "TIMEOUT"
	defaultTimeout       = 30 * time.Second
)

type conf struct {
	commitment     config.String
	maxConcurrency config.Uint64
	verifyOwner    config.Bool
	timeout        config.Duration
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			commitment:     env.NewStringConfig(CommitmentConfigEnvName, defaultCommitment),
			maxConcurrency: env.NewUint64Config(MaxConcurrencyConfigEnvName, defaultMaxConcurrency),
			verifyOwner:    env.NewBoolConfig(VerifyOwnerConfigEnvName, defaultVerifyOwner),
			timeout:        env.NewDurationConfig(TimeoutConfigEnvName, defaultTimeout),
		}
	}
}

type testOverrides struct {
	commitment     string
	maxConcurrency uint64
	skipOwnerCheck bool
	timeout        time.Duration
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		commitment := config.Config(config.NoopConfig)
		if overrides.commitment != "" {
			commitment = memory.NewConfig(overrides.commitment)
		}

		maxConcurrency := config.Config(config.NoopConfig)
		if overrides.maxConcurrency > 0 {
			maxConcurrency = memory.NewConfig(overrides.maxConcurrency)
		}

		timeout := config.Config(config.NoopConfig)
		if overrides.timeout > 0 {
			timeout = memory.NewConfig(overrides.timeout)
		}

		return &conf{
			commitment:     wrapper.NewStringConfig(commitment, defaultCommitment),
			maxConcurrency: wrapper.NewUint64Config(maxConcurrency, defaultMaxConcurrency),
			verifyOwner:    wrapper.NewBoolConfig(memory.NewConfig(!overrides.skipOwnerCheck), defaultVerifyOwner),
			timeout:        wrapper.NewDurationConfig(timeout, defaultTimeout),
		}
	}
}
