// Package env provides configs backed by environment variables.
package env

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/noema-protocol/registry-client/pkg/config"
	"github.com/noema-protocol/registry-client/pkg/config/wrapper"
)

type variable struct {
	key string
}

// NewConfig returns a config that reads the upper-cased key from the
// environment on every Get. Empty variables yield config.ErrNoValue.
func NewConfig(key string) config.Config {
	return &variable{key: strings.ToUpper(key)}
}

// Get implements Config.Get
func (v *variable) Get(_ context.Context) (interface{}, error) {
	val := os.Getenv(v.key)
	if len(val) == 0 {
		return nil, config.ErrNoValue
	}
	return []byte(val), nil
}

// Shutdown implements Config.Shutdown
func (v *variable) Shutdown() {}

// NewBoolConfig creates an env-based bool config
func NewBoolConfig(key string, defaultValue bool) config.Bool {
	return wrapper.NewBoolConfig(NewConfig(key), defaultValue)
}

// NewDurationConfig creates an env-based duration config
func NewDurationConfig(key string, defaultValue time.Duration) config.Duration {
	return wrapper.NewDurationConfig(NewConfig(key), defaultValue)
}

// NewStringConfig creates an env-based string config
func NewStringConfig(key string, defaultValue string) config.String {
	return wrapper.NewStringConfig(NewConfig(key), defaultValue)
}

// NewUint64Config creates an env-based uint64 config
func NewUint64Config(key string, defaultValue uint64) config.Uint64 {
	return wrapper.NewUint64Config(NewConfig(key), defaultValue)
}
