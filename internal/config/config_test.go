package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromOverridesDefaults(t *testing.T) {
	config = nil
	t.Cleanup(func() { config = nil })

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[mainConfig]
port = 9100

[dmConfig]
policy = "friends_only"
`), 0o644))

	require.NoError(t, LoadConfigFrom(filepath.Join(t.TempDir(), "missing.toml"), path))
	conf := GetConfig()
	assert.Equal(t, 9100, conf.MainConfig.Port)
	assert.Equal(t, "friends_only", conf.DMConfig.Policy)
	// 未配置的字段保持默认值
	assert.Equal(t, "sqlite", conf.DatabaseConfig.Driver)
	assert.Equal(t, 64, conf.BusConfig.SubscriberBuffer)
}

func TestLoadConfigFromMissing(t *testing.T) {
	config = nil
	t.Cleanup(func() { config = nil })
	assert.Error(t, LoadConfigFrom(filepath.Join(t.TempDir(), "nope.toml")))
}

func TestInstanceGroupIDIsPerMachine(t *testing.T) {
	k := defaults().KafkaConfig
	assert.Equal(t, "nexus_bus_1", k.InstanceGroupID(1))
	assert.NotEqual(t, k.InstanceGroupID(1), k.InstanceGroupID(2))
}
