package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"DB_ENABLED", "DB_HOST", "DB_PORT", "DB_NAME", "LOG_LEVEL", "LOG_FORMAT", "LOG_OUTPUT", "DB_CONNECT_TIMEOUT", "EVENTS_ENABLED", "EVENTS_STREAM", "MQTT_ENABLED"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.True(t, cfg.DBEnabled)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "rentflow", cfg.Database.Database)
	assert.Equal(t, LogConfig{Level: "info", Format: "json", Output: "stdout"}, cfg.Log)
	assert.Equal(t, 5*time.Second, cfg.Database.ConnectTimeout)
	assert.False(t, cfg.Events.Enabled)
	assert.Equal(t, "rentflow:events", cfg.Events.Stream)
	assert.False(t, cfg.MQTT.Enabled)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("EVENTS_ENABLED", "true")
	t.Setenv("MQTT_QOS", "0")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_OUTPUT", "stderr")

	cfg := Load()

	assert.False(t, cfg.DBEnabled)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.True(t, cfg.Events.Enabled)
	assert.Equal(t, byte(0), cfg.MQTT.QoS)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "stderr", cfg.Log.Output)
}

func TestParseInt_FallsBack(t *testing.T) {
	assert.Equal(t, 7, parseInt("x", 7))
	assert.Equal(t, 12, parseInt("12", 7))
}

func TestGetDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "rentflow", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=rentflow sslmode=disable", c.GetDSN())
}
