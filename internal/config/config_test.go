package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "decks/race-to-agi", cfg.Deck.Dir)
	assert.Equal(t, 300, cfg.Deck.DebounceMS)
	assert.Equal(t, 8, cfg.Deck.CacheSize)
	assert.Equal(t, "output/cards", cfg.Export.OutputDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "localhost:3000", cfg.Addr())
}

func TestLoadOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("server.port", 8123)
	viper.Set("deck.dir", "decks/other")
	viper.Set("deck.cache_size", 0)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8123, cfg.Server.Port)
	assert.Equal(t, "decks/other", cfg.Deck.Dir)
	assert.Equal(t, 0, cfg.Deck.CacheSize, "explicit zero disables the cache")
}

func TestValidateRejectsBadPort(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("server.port", 70000)
	_, err := Load()
	assert.Error(t, err)
}

func TestValidateRejectsTraversal(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("deck.dir", "../../etc")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidateRejectsDangerousHost(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("server.host", "localhost;rm -rf /")
	_, err := Load()
	assert.Error(t, err)
}
