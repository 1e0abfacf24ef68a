// Package wrapper converts untyped config.Config sources into typed values
// with a default.
package wrapper

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/noema-protocol/registry-client/pkg/config"
)

// ErrUnsupportedConversion indicates the wrapper does not implement conversion
// from the source type
var ErrUnsupportedConversion = errors.New("config: wrapper conversion from source type not implemented")

type converter[T any] func(v interface{}) (T, error)

type value[T any] struct {
	override     config.Config
	defaultValue T
	convert      converter[T]

	stateMu   sync.RWMutex
	lastValue T
}

func newValue[T any](override config.Config, defaultValue T, convert converter[T]) *value[T] {
	return &value[T]{
		override:     override,
		defaultValue: defaultValue,
		convert:      convert,
		lastValue:    defaultValue,
	}
}

// GetSafe gets a config value and propagates any errors that arise. A
// best-effort attempt is made to return the last known value.
func (c *value[T]) GetSafe(ctx context.Context) (T, error) {
	raw, err := c.override.Get(ctx)
	if errors.Is(err, config.ErrNoValue) {
		c.store(c.defaultValue)
		return c.defaultValue, nil
	} else if err != nil {
		return c.last(), err
	}

	converted, err := c.convert(raw)
	if err != nil {
		return c.last(), err
	}
	c.store(converted)
	return converted, nil
}

// Get is a wrapper for GetSafe that ignores the returned error
func (c *value[T]) Get(ctx context.Context) T {
	val, _ := c.GetSafe(ctx)
	return val
}

// Shutdown signals the config to stop all underlying resources
func (c *value[T]) Shutdown() {
	c.override.Shutdown()
}

func (c *value[T]) last() T {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.lastValue
}

func (c *value[T]) store(v T) {
	c.stateMu.Lock()
	c.lastValue = v
	c.stateMu.Unlock()
}

// NewBoolConfig returns a bool config accepting bool or text sources
func NewBoolConfig(override config.Config, defaultValue bool) config.Bool {
	return newValue(override, defaultValue, func(v interface{}) (bool, error) {
		switch v := v.(type) {
		case bool:
			return v, nil
		case []byte:
			return strconv.ParseBool(string(v))
		}
		return false, ErrUnsupportedConversion
	})
}

// NewUint64Config returns a uint64 config accepting unsigned integer or text
// sources
func NewUint64Config(override config.Config, defaultValue uint64) config.Uint64 {
	return newValue(override, defaultValue, func(v interface{}) (uint64, error) {
		switch v := v.(type) {
		case uint64:
			return v, nil
		case uint:
			return uint64(v), nil
		case uint32:
			return uint64(v), nil
		case []byte:
			return strconv.ParseUint(string(v), 10, 64)
		}
		return 0, ErrUnsupportedConversion
	})
}

// NewStringConfig returns a string config accepting string or text sources
func NewStringConfig(override config.Config, defaultValue string) config.String {
	return newValue(override, defaultValue, func(v interface{}) (string, error) {
		switch v := v.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		}
		return "", ErrUnsupportedConversion
	})
}

// NewDurationConfig returns a duration config accepting time.Duration or text
// sources in time.ParseDuration format
func NewDurationConfig(override config.Config, defaultValue time.Duration) config.Duration {
	return newValue(override, defaultValue, func(v interface{}) (time.Duration, error) {
		switch v := v.(type) {
		case time.Duration:
			return v, nil
		case []byte:
			return time.ParseDuration(string(v))
		}
		return 0, ErrUnsupportedConversion
	})
}
