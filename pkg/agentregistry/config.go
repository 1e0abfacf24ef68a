package agentregistry

import (
	"github.com/noema-protocol/registry-client/pkg/config"
	"github.com/noema-protocol/registry-client/pkg/config/env"
	"github.com/noema-protocol/registry-client/pkg/config/memory"
	"github.com/noema-protocol/registry-client/pkg/config/wrapper"
)

const (
	envConfigPrefix = "AGENT_REGISTRY_"

	ClusterConfigEnvName = envConfigPrefix + "CLUSTER"
	defaultCluster       = "devnet"
)

type conf struct {
	cluster config.String
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			cluster: env.NewStringConfig(ClusterConfigEnvName, defaultCluster),
		}
	}
}

// WithCluster returns configuration pinned to the named cluster.
func WithCluster(cluster string) ConfigProvider {
	return func() *conf {
		var c config.Config = memory.NewConfig(cluster)
		if cluster == "" {
			c = config.NoopConfig
		}
		return &conf{
			cluster: wrapper.NewStringConfig(c, defaultCluster),
		}
	}
}
