package config

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrNoValue indicates no value was set for the config
	ErrNoValue = errors.New("config: no value set")

	// ErrShutdown indicates the use of a Config after calling Shutdown
	ErrShutdown = errors.New("config: shutdown")
)

// Config is a source of untyped configuration values. Sources that read text,
// such as the environment, yield []byte.
type Config interface {
	// Get returns the latest config value
	Get(ctx context.Context) (interface{}, error)

	// Shutdown signals the config to stop all underlying resources
	Shutdown()
}

// NoopConfig is a config that does not yield any values.
var NoopConfig Config = noopConfig{}

type noopConfig struct{}

func (noopConfig) Get(_ context.Context) (interface{}, error) {
	return nil, ErrNoValue
}

func (noopConfig) Shutdown() {}

// Value is a Config converted to T.
//
// GetSafe propagates source and conversion errors alongside the last known
// good value. Get swallows them.
type Value[T any] interface {
	Get(ctx context.Context) T
	GetSafe(ctx context.Context) (T, error)
	Shutdown()
}

// Bool provides a boolean typed config.Config.
type Bool interface{ Value[bool] }

// Duration provides a time.Duration typed config.Config.
type Duration interface{ Value[time.Duration] }

// Uint64 provides a uint64 typed config.Config.
type Uint64 interface{ Value[uint64] }

// String provides a string typed config.Config.
type String interface{ Value[string] }
