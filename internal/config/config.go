// Package config loads board, transport, and admin-API configuration from
// a YAML file, environment variables, and built-in defaults, layered
// through viper.
package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Board    BoardConfig
	Server   ServerConfig
	Redis    RedisConfig
	Transport TransportConfig
	Metrics  MetricsConfig
	Auth     AuthConfig
	LogLevel string
}

// BoardConfig configures the in-process task board itself.
type BoardConfig struct {
	Secondaries       int           // number of secondary executors (capped at board.MaxSecondaries)
	MaxConcurrentTasks int          // override for MAX_TASKS, mainly a test knob
	StackSize         int           // informational coroutine stack size, see coroutine.Descriptor
	ShutdownTimeout   time.Duration
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	RateLimitRPS int
}

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// TransportConfig configures the demo Redis-backed remote-task transport.
type TransportConfig struct {
	Enabled             bool
	StreamPrefix        string
	ConsumerGroup       string
	BlockTimeout        time.Duration
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryBackoffFactor  float64
	RetryMaxAttempts    int
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

type AuthConfig struct {
	Enabled   bool
	JWTSecret string
	APIKeys   []string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/taskboard")

	setDefaults()

	viper.SetEnvPrefix("TASKBOARD")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	// Board defaults
	viper.SetDefault("board.secondaries", 4)
	viper.SetDefault("board.maxconcurrenttasks", 0) // 0 = use MAX_TASKS
	viper.SetDefault("board.stacksize", 57344)
	viper.SetDefault("board.shutdowntimeout", 30*time.Second)

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readtimeout", 30*time.Second)
	viper.SetDefault("server.writetimeout", 30*time.Second)
	viper.SetDefault("server.idletimeout", 120*time.Second)
	viper.SetDefault("server.ratelimitrps", 100)

	// Redis defaults
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.poolsize", 50)
	viper.SetDefault("redis.minidleconns", 5)
	viper.SetDefault("redis.maxretries", 3)
	viper.SetDefault("redis.dialtimeout", 5*time.Second)
	viper.SetDefault("redis.readtimeout", 3*time.Second)
	viper.SetDefault("redis.writetimeout", 3*time.Second)

	// Transport defaults
	viper.SetDefault("transport.enabled", false)
	viper.SetDefault("transport.streamprefix", "taskboard:remote")
	viper.SetDefault("transport.consumergroup", "transport")
	viper.SetDefault("transport.blocktimeout", 5*time.Second)
	viper.SetDefault("transport.retryinitialbackoff", 250*time.Millisecond)
	viper.SetDefault("transport.retrymaxbackoff", 10*time.Second)
	viper.SetDefault("transport.retrybackofffactor", 2.0)
	viper.SetDefault("transport.retrymaxattempts", 5)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	// Auth defaults
	viper.SetDefault("auth.enabled", false)
	viper.SetDefault("auth.jwtsecret", "")
	viper.SetDefault("auth.apikeys", []string{})

	// Logging defaults
	viper.SetDefault("loglevel", "info")
}
