package wrapper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noema-protocol/registry-client/pkg/config"
	"github.com/noema-protocol/registry-client/pkg/config/memory"
)

func TestBoolConfig(t *testing.T) {
	ctx := context.Background()
	source := memory.NewConfig(nil)
	c := NewBoolConfig(source, true)

	assert.True(t, c.Get(ctx))

	source.SetValue(false)
	assert.False(t, c.Get(ctx))

	source.SetValue([]byte("true"))
	assert.True(t, c.Get(ctx))

	source.SetValue([]byte("maybe"))
	v, err := c.GetSafe(ctx)
	assert.Error(t, err)
	assert.True(t, v)
}

func TestUint64Config(t *testing.T) {
	ctx := context.Background()
	source := memory.NewConfig(nil)
	c := NewUint64Config(source, 8)

	assert.EqualValues(t, 8, c.Get(ctx))

	for _, v := range []interface{}{uint64(5), uint(5), uint32(5), []byte("5")} {
		source.SetValue(v)
		actual, err := c.GetSafe(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 5, actual)
	}

	source.SetValue([]byte("-1"))
	v, err := c.GetSafe(ctx)
	assert.Error(t, err)
	assert.EqualValues(t, 5, v)

	source.SetValue(-1)
	_, err = c.GetSafe(ctx)
	assert.Equal(t, ErrUnsupportedConversion, err)
}

func TestStringConfig(t *testing.T) {
	ctx := context.Background()
	source := memory.NewConfig(nil)
	c := NewStringConfig(source, "devnet")

	assert.Equal(t, "devnet", c.Get(ctx))

	source.SetValue("testnet")
	assert.Equal(t, "testnet", c.Get(ctx))

	source.SetValue([]byte("localnet"))
	assert.Equal(t, "localnet", c.Get(ctx))

	source.SetValue(42)
	v, err := c.GetSafe(ctx)
	assert.Equal(t, ErrUnsupportedConversion, err)
	assert.Equal(t, "localnet", v)
}

func TestDurationConfig(t *testing.T) {
	ctx := context.Background()
	source := memory.NewConfig(nil)
	c := NewDurationConfig(source, time.Minute)

	assert.Equal(t, time.Minute, c.Get(ctx))

	source.SetValue(5 * time.Second)
	assert.Equal(t, 5*time.Second, c.Get(ctx))

	source.SetValue([]byte("1m30s"))
	assert.Equal(t, 90*time.Second, c.Get(ctx))

	source.SetValue([]byte("90"))
	v, err := c.GetSafe(ctx)
	assert.Error(t, err)
	assert.Equal(t, 90*time.Second, v)
}

func TestSourceErrors(t *testing.T) {
	ctx := context.Background()
	source := memory.NewConfig("confirmed")
	c := NewStringConfig(source, "finalized")

	assert.Equal(t, "confirmed", c.Get(ctx))

	induced := errors.New("unavailable")
	source.SetError(induced)
	v, err := c.GetSafe(ctx)
	assert.Equal(t, induced, err)
	assert.Equal(t, "confirmed", v)

	source.SetError(nil)
	source.SetValue(nil)
	assert.Equal(t, "finalized", c.Get(ctx))

	c.Shutdown()
	_, err = c.GetSafe(ctx)
	assert.Equal(t, config.ErrShutdown, err)

	assert.Equal(t, "finalized", NewStringConfig(config.NoopConfig, "finalized").Get(ctx))
}
