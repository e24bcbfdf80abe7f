package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	SeedFile string // path to the seed services.yaml (optional, empty = seeding disabled)

	HarvestInterval time.Duration // interval between scheduled harvest sweeps (default: 1h)
	HarvestTimeout  time.Duration // per-service harvest deadline (default: 2m)
	HarvestWorkers  int           // max harvests in flight at once (default: 4)
	HarvestLogLimit int           // harvest messages kept per service (default: 20)

	PingInterval    time.Duration // interval between ping sweeps (default: 15m)
	PingTimeout     time.Duration // per-probe deadline (default: 10s)
	PingConcurrency int           // max probes in flight at once (default: 20)
	PingKeepCount   int           // ping records kept per service (default: 168)
	PingMaxAge      time.Duration // ping records older than this are pruned (default: 168h)
	PruneInterval   time.Duration // interval between retention sweeps (default: 1h)

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("SEAMARK_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("SEAMARK_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("SEAMARK_LOG_LEVEL", "info"),
		PrettyLog: mustBool("SEAMARK_PRETTY_LOG", true),

		// Seed file
		SeedFile: getenv("SEAMARK_SEED_FILE", ""), // Optional, empty = seeding disabled

		// Harvest scheduling
		HarvestInterval: mustDuration("SEAMARK_HARVEST_INTERVAL", time.Hour),
		HarvestTimeout:  mustDuration("SEAMARK_HARVEST_TIMEOUT", 2*time.Minute),
		HarvestWorkers:  getenvInt("SEAMARK_HARVEST_WORKERS", 4),
		HarvestLogLimit: getenvInt("SEAMARK_HARVEST_LOG_LIMIT", 20),

		// Ping monitoring
		PingInterval:    mustDuration("SEAMARK_PING_INTERVAL", 15*time.Minute),
		PingTimeout:     mustDuration("SEAMARK_PING_TIMEOUT", 10*time.Second),
		PingConcurrency: getenvInt("SEAMARK_PING_CONCURRENCY", 20),
		PingKeepCount:   getenvInt("SEAMARK_PING_KEEP_COUNT", 168),
		PingMaxAge:      mustDuration("SEAMARK_PING_MAX_AGE", 168*time.Hour),
		PruneInterval:   mustDuration("SEAMARK_PRUNE_INTERVAL", time.Hour),

		// Redis settings
		RedisAddr:             requireEnv("SEAMARK_REDIS_ADDR"),
		RedisUser:             getenv("SEAMARK_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("SEAMARK_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("SEAMARK_REDIS_PASSWORD", ""),
		RedisDB:               requireEnvInt("SEAMARK_REDIS_DB"),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),
	}

	// Validate Redis password configuration
	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: SEAMARK_REDIS_PASSWORD is required when SEAMARK_REDIS_PASSWORD_REQUIRED=true")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func requireEnvInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid integer value for %s: %s", key, v))
	}
	return i
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
