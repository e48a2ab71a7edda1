package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	viper.Reset()
	setDefaults()

	var config Config
	require.NoError(t, viper.Unmarshal(&config))

	assert.Equal(t, 8080, config.App.Port)
	assert.Equal(t, "release", config.App.Mode)

	assert.Equal(t, "https://api.deepseek.com/v1", config.AI.APIEndpoint)
	assert.Equal(t, "deepseek-chat", config.AI.Model)
	assert.InDelta(t, 0.6, config.AI.Temperature, 0.001)
	assert.Equal(t, 60*time.Second, config.AI.ConnectTimeout)
	assert.Equal(t, 55*time.Second, config.AI.StreamTimeout)
	assert.Equal(t, 2000, config.AI.SoftCompleteChars)
	assert.Equal(t, 8192, config.AI.MaxTokensCap)

	assert.Equal(t, 120*time.Second, config.Worker.InvocationBudget)
	assert.Equal(t, 25*time.Second, config.Worker.YieldThreshold)
	assert.Equal(t, 180, config.Worker.LeaseSeconds)
	assert.Equal(t, 30*time.Second, config.Worker.HeartbeatPeriod)
	assert.Equal(t, 1, config.Worker.YieldedLeaseSeconds)

	assert.False(t, config.Database.Redis.Enabled)
}

func TestPreflight(t *testing.T) {
	config := &Config{}
	config.Database.Postgres.DSN = "postgres://worker:pw@localhost:5432/liftor"
	config.AI.APIKey = "sk-test"
	assert.NoError(t, config.Preflight())

	missingDSN := &Config{}
	missingDSN.AI.APIKey = "sk-test"
	assert.Error(t, missingDSN.Preflight())

	missingKey := &Config{}
	missingKey.Database.Postgres.DSN = "postgres://worker:pw@localhost:5432/liftor"
	assert.Error(t, missingKey.Preflight())
}
