package env

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noema-protocol/registry-client/pkg/config"
)

func TestConfig_ReadsOnEveryGet(t *testing.T) {
	const key = "ENV_CONFIG_TEST_VAR"
	ctx := context.Background()

	c := NewConfig("env_config_test_var")

	_, err := c.Get(ctx)
	assert.Equal(t, config.ErrNoValue, err)

	t.Setenv(key, "value")
	v, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), v)
}

func TestTypedConfigs(t *testing.T) {
	ctx := context.Background()

	t.Setenv("ENV_TEST_BOOL", "false")
	t.Setenv("ENV_TEST_DURATION", "250ms")
	t.Setenv("ENV_TEST_UINT64", "42")
	t.Setenv("ENV_TEST_STRING", "mainnet-beta")

	assert.False(t, NewBoolConfig("ENV_TEST_BOOL", true).Get(ctx))
	assert.Equal(t, 250*time.Millisecond, NewDurationConfig("ENV_TEST_DURATION", time.Second).Get(ctx))
	assert.EqualValues(t, 42, NewUint64Config("ENV_TEST_UINT64", 1).Get(ctx))
	assert.Equal(t, "mainnet-beta", NewStringConfig("ENV_TEST_STRING", "devnet").Get(ctx))

	assert.Equal(t, "devnet", NewStringConfig("ENV_TEST_UNSET", "devnet").Get(ctx))
}
