package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestDurationUnmarshal(t *testing.T) {
	assert := assert.New(t)

	var d Duration
	assert.NoError(json.Unmarshal([]byte(`"25s"`), &d))
	assert.Equal(25*time.Second, d.Duration)

	assert.NoError(json.Unmarshal([]byte(`2000000000`), &d))
	assert.Equal(2*time.Second, d.Duration)

	assert.Error(json.Unmarshal([]byte(`true`), &d))
	assert.Error(json.Unmarshal([]byte(`"soon"`), &d))
}

func TestParseConfigurationMergesDefaults(t *testing.T) {
	assert := assert.New(t)
	path := writeConfig(t, `{
		"Port": 9090,
		"WsBaseUrl": "wss://shop.example.com",
		"ReconnectStep": "1s",
		"PaymentTimeout": "2m",
		"TracingEndpoint": "collector:4318"
	}`)

	cfg, err := ParseConfiguration(path)
	require.NoError(t, err)

	assert.Equal(9090, cfg.Port)
	assert.Equal("wss://shop.example.com", cfg.SessionConfig.WsBaseUrl)
	assert.Equal(time.Second, cfg.SessionConfig.ReconnectStep)
	assert.Equal(2*time.Minute, cfg.SessionConfig.PaymentTimeout)
	assert.Equal(3, cfg.SessionConfig.MaxReconnectAttempts)
	assert.Equal(25*time.Second, cfg.SessionConfig.KeepAliveInterval)
	assert.Equal(ReconnectLinear, cfg.SessionConfig.ReconnectStrategy)
	assert.Equal(apiBaseUrl, cfg.ApiConfig.BaseUrl)
	require.NotNil(t, cfg.TracingConfig)
	assert.Equal(tracingServiceName, cfg.TracingConfig.ServiceName)
}

func TestParseConfigurationZeroReconnectAttempts(t *testing.T) {
	path := writeConfig(t, `{"MaxReconnectAttempts": 0}`)
	cfg, err := ParseConfiguration(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.SessionConfig.MaxReconnectAttempts)

	path = writeConfig(t, `{"MaxReconnectAttempts": -1}`)
	_, err = ParseConfiguration(path)
	assert.Error(t, err)
}

func TestParseConfigurationRejectsUnknownStrategy(t *testing.T) {
	path := writeConfig(t, `{"ReconnectStrategy": "fibonacci"}`)

	_, err := ParseConfiguration(path)
	assert.Error(t, err)
}

func TestParseConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := ParseConfig(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultCfg(), cfg)
}
