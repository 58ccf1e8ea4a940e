package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"refund-intake/intake"
	"refund-intake/intake/application"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

type config struct {
	listenAddr string
	logLevel   string

	backend       string
	redisURL      string
	redisHost     string
	redisPort     int
	redisUser     string
	redisPassword string
	redisPrefix   string
	redisScan     int64
	badgerPath    string

	facade application.Config

	cleanupSchedule string
	sessionHeader   string
	trustXFF        bool
	addHeaders      bool

	burstRPS           float64
	burstSize          int
	concurrencyMax     int
	concurrencyTimeout time.Duration

	redisStats bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LISTEN_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("STORE_BACKEND", "memory")
	v.SetDefault("REDISHOST", "localhost")
	v.SetDefault("REDISPORT", 6379)
	v.SetDefault("REDIS_KEY_PREFIX", "")
	v.SetDefault("REDIS_SCAN_COUNT", 100)
	v.SetDefault("BADGER_PATH", "")

	v.SetDefault("REDIS_RATE_LIMIT_MAX", 10)
	v.SetDefault("REDIS_RATE_LIMIT_WINDOW", 60)
	v.SetDefault("REDIS_FORM_CACHE_TTL", 60)
	v.SetDefault("REDIS_ANALYTICS_TTL", 300)
	v.SetDefault("REDIS_QUEUE_NAME", application.DefaultQueueName)
	v.SetDefault("ANALYTICS_BATCH_SIZE", application.DefaultBatchMaxSize)
	v.SetDefault("ANALYTICS_BATCH_WAIT", int(application.DefaultBatchMaxWait/time.Second))

	v.SetDefault("CLEANUP_SCHEDULE", "@every 1m")
	v.SetDefault("SESSION_HEADER", intake.DefaultSessionHeader)
	v.SetDefault("TRUST_XFF", false)
	v.SetDefault("ADD_RATELIMIT_HEADERS", true)

	v.SetDefault("BURST_RPS", 20.0)
	v.SetDefault("BURST_SIZE", 40)
	v.SetDefault("CONCURRENCY_MAX", 100)
	v.SetDefault("CONCURRENCY_TIMEOUT", time.Duration(0))
	v.SetDefault("RATE_STATS_REDIS", false)
}

func seconds(v *viper.Viper, key string) time.Duration {
	return time.Duration(v.GetInt(key)) * time.Second
}

// readConfig lê a configuração do ambiente (viper.AutomaticEnv) com defaults.
func readConfig(v *viper.Viper) (config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	cfg := config{
		listenAddr: v.GetString("LISTEN_ADDR"),
		logLevel:   v.GetString("LOG_LEVEL"),

		backend:       strings.ToLower(strings.TrimSpace(v.GetString("STORE_BACKEND"))),
		redisURL:      v.GetString("REDIS_URL"),
		redisHost:     v.GetString("REDISHOST"),
		redisPort:     v.GetInt("REDISPORT"),
		redisUser:     v.GetString("REDISUSER"),
		redisPassword: v.GetString("REDISPASSWORD"),
		redisPrefix:   v.GetString("REDIS_KEY_PREFIX"),
		redisScan:     v.GetInt64("REDIS_SCAN_COUNT"),
		badgerPath:    v.GetString("BADGER_PATH"),

		facade: application.Config{
			RateLimitMax:    v.GetInt("REDIS_RATE_LIMIT_MAX"),
			RateLimitWindow: seconds(v, "REDIS_RATE_LIMIT_WINDOW"),
			FormCacheTTL:    seconds(v, "REDIS_FORM_CACHE_TTL"),
			AnalyticsTTL:    seconds(v, "REDIS_ANALYTICS_TTL"),
			BatchMaxSize:    v.GetInt("ANALYTICS_BATCH_SIZE"),
			BatchMaxWait:    seconds(v, "ANALYTICS_BATCH_WAIT"),
			QueueName:       v.GetString("REDIS_QUEUE_NAME"),
			ClientContext:   clientContext(),
		},

		cleanupSchedule: v.GetString("CLEANUP_SCHEDULE"),
		sessionHeader:   v.GetString("SESSION_HEADER"),
		trustXFF:        v.GetBool("TRUST_XFF"),
		addHeaders:      v.GetBool("ADD_RATELIMIT_HEADERS"),

		burstRPS:           v.GetFloat64("BURST_RPS"),
		burstSize:          v.GetInt("BURST_SIZE"),
		concurrencyMax:     v.GetInt("CONCURRENCY_MAX"),
		concurrencyTimeout: v.GetDuration("CONCURRENCY_TIMEOUT"),

		redisStats: v.GetBool("RATE_STATS_REDIS"),
	}

	switch cfg.backend {
	case "memory", "redis", "badger":
	default:
		return config{}, fmt.Errorf("STORE_BACKEND must be memory, redis or badger, got %q", cfg.backend)
	}
	if cfg.facade.RateLimitMax <= 0 {
		return config{}, errors.New("REDIS_RATE_LIMIT_MAX must be > 0")
	}
	if cfg.facade.RateLimitWindow <= 0 {
		return config{}, errors.New("REDIS_RATE_LIMIT_WINDOW must be > 0")
	}
	if cfg.facade.BatchMaxWait <= 0 {
		return config{}, errors.New("ANALYTICS_BATCH_WAIT must be > 0 (seconds)")
	}
	if cfg.redisScan <= 0 {
		return config{}, errors.New("REDIS_SCAN_COUNT must be > 0")
	}
	if cfg.burstRPS < 0 || cfg.burstSize < 0 {
		return config{}, errors.New("BURST_RPS and BURST_SIZE must be >= 0")
	}
	if cfg.burstRPS > 0 && cfg.burstSize == 0 {
		return config{}, errors.New("BURST_SIZE must be > 0 when BURST_RPS is set")
	}
	if cfg.concurrencyMax < 0 {
		return config{}, errors.New("CONCURRENCY_MAX must be >= 0")
	}
	if cfg.redisStats && cfg.backend != "redis" {
		return config{}, errors.New("RATE_STATS_REDIS requires STORE_BACKEND=redis")
	}
	return cfg, nil
}

// redisOptions prefere REDIS_URL; sem ela monta a partir de host/porta/credenciais.
func (c config) redisOptions() (*redis.Options, error) {
	if c.redisURL != "" {
		opts, err := redis.ParseURL(c.redisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{
		Addr:     net.JoinHostPort(c.redisHost, strconv.Itoa(c.redisPort)),
		Username: c.redisUser,
		Password: c.redisPassword,
	}, nil
}

func clientContext() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "refund-intake"
	}
	return "refund-intake/" + host
}
