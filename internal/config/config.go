package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
	// ConnectTimeout bounds the startup ping; zero waits on the caller's context.
	ConnectTimeout time.Duration
}

// GetDSN returns a lib/pq keyword/value connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// LogConfig selects the zap encoder, minimum level and sink.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or console
	Output string // stdout, stderr or a file path
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MQTTConfig struct {
	Enabled     bool
	Broker      string
	ClientID    string
	Username    string
	Password    string
	QoS         byte
	TopicPrefix string
}

// Config is the rentflow process configuration.
type Config struct {
	// DBEnabled=false runs against the in-memory store (local dev, demos).
	DBEnabled bool
	Database  DatabaseConfig
	Redis     RedisConfig
	MQTT      MQTTConfig
	Log       LogConfig
	Events    struct {
		Enabled bool
		Stream  string
	}
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present; real env vars win.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "rentflow")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)
	cfg.Database.ConnectTimeout = time.Duration(parseInt(getEnv("DB_CONNECT_TIMEOUT", "5"), 5)) * time.Second

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "rentflow")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(parseInt(getEnv("MQTT_QOS", "1"), 1))
	cfg.MQTT.TopicPrefix = getEnv("MQTT_TOPIC_PREFIX", "rentflow")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")
	cfg.Log.Output = getEnv("LOG_OUTPUT", "stdout")

	cfg.Events.Enabled = getEnv("EVENTS_ENABLED", "false") == "true"
	cfg.Events.Stream = getEnv("EVENTS_STREAM", "rentflow:events")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
