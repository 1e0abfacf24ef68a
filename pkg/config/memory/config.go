// Package memory provides a mutable in-process config source for overrides
// and tests.
package memory

import (
	"context"
	"sync"

	"github.com/noema-protocol/registry-client/pkg/config"
)

// Config holds a single value in memory. A nil value means no value is set.
type Config struct {
	mu       sync.RWMutex
	value    interface{}
	err      error
	shutdown bool
}

// NewConfig returns a new in memory config holding value
func NewConfig(value interface{}) *Config {
	return &Config{value: value}
}

// Get implements Config.Get
func (c *Config) Get(_ context.Context) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch {
	case c.shutdown:
		return nil, config.ErrShutdown
	case c.err != nil:
		return nil, c.err
	case c.value == nil:
		return nil, config.ErrNoValue
	}
	return c.value, nil
}

// Shutdown implements Config.Shutdown
func (c *Config) Shutdown() {
	c.mu.Lock()
	c.shutdown = true
	c.mu.Unlock()
}

// SetValue replaces the value returned by subsequent Get calls. Setting nil
// clears it.
func (c *Config) SetValue(value interface{}) {
	c.mu.Lock()
	c.value = value
	c.mu.Unlock()
}

// SetError makes subsequent Get calls fail with err until it is reset with nil
func (c *Config) SetError(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}
