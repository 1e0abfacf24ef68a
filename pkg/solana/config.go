package solana

import (
	"strings"

	"github.com/pkg/errors"
)

// Environment is the JSON-RPC endpoint of a cluster.
type Environment string

const (
	EnvironmentLocal Environment = "http://127.0.0.1:8899"
	EnvironmentDev   Environment = "https://api.devnet.solana.com"
	EnvironmentTest  Environment = "https://api.testnet.solana.com"
	EnvironmentProd  Environment = "https://api.mainnet-beta.solana.com"
)

// EnvironmentForCluster returns the public endpoint for a cluster name, as
// used by the Solana CLI.
func EnvironmentForCluster(cluster string) (Environment, error) {
	switch strings.ToLower(cluster) {
	case "localnet", "localhost", "local":
		return EnvironmentLocal, nil
	case "devnet":
		return EnvironmentDev, nil
	case "testnet":
		return EnvironmentTest, nil
	case "mainnet-beta", "mainnet":
		return EnvironmentProd, nil
	}
	return "", errors.Errorf("unknown cluster: %q", cluster)
}
