package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Store drivers.
const (
	StorePostgres  = "postgres"
	StoreFirestore = "firestore"
)

// Cache drivers.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Rate limiter drivers.
const (
	LimiterMemory = "memory"
	LimiterRedis  = "redis"
)

// Config holds the complete application configuration, loadable from
// environment variables (VITRINE_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string        `default:"0.0.0.0:8080" usage:"API server listen address"`
	Store        string        `default:"postgres" usage:"Authoritative store driver: postgres or firestore"`
	DatabaseURL  string        `usage:"PostgreSQL connection URL (VITRINE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	APIKeyPepper string        `usage:"HMAC pepper for API key hashing (VITRINE_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Timeout      time.Duration `default:"10s" usage:"Per-request deadline"`
	Firestore    FirestoreConfig
	Redis        RedisConfig
	Cache        CacheConfig
	Kafka        KafkaConfig
	Analytics    AnalyticsConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// FirestoreConfig selects the Firestore project.
type FirestoreConfig struct {
	Project     string `usage:"Google Cloud project id"`
	Credentials string `usage:"Service account JSON file; empty uses application default credentials"`
}

// RedisConfig holds the session cart store.
type RedisConfig struct {
	URL     string        `usage:"Redis URL (VITRINE_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	CartTTL time.Duration `default:"168h" usage:"Idle lifetime of a session cart"`
}

// CacheConfig selects where catalog bundles are cached.
type CacheConfig struct {
	Driver    string        `default:"file" usage:"Bundle cache driver: file or redis"`
	Dir       string        `default:"var/bundles" usage:"Directory of the file bundle cache"`
	BundleTTL time.Duration `default:"24h" usage:"Lifetime of a bundle in redis"`
}

// KafkaConfig enables publishing order hand-offs. Without brokers hand-offs
// are only logged.
type KafkaConfig struct {
	Brokers []string `usage:"Kafka bootstrap brokers"`
	Topic   string   `default:"vitrine.orders" usage:"Order hand-off topic"`
	Buffer  int      `default:"256" usage:"Hand-off messages buffered before rejecting"`
}

// AnalyticsConfig controls the detached analytics recorder.
type AnalyticsConfig struct {
	Workers   int           `default:"2" usage:"Analytics writer goroutines"`
	QueueSize int           `default:"1024" usage:"Events queued before dropping"`
	Attempts  int           `default:"3" usage:"Write attempts per event"`
	Backoff   time.Duration `default:"100ms" usage:"Linear backoff step between attempts"`
	Timezone  string        `default:"America/Sao_Paulo" usage:"Time zone of daily and hourly buckets"`
}

// RateLimitConfig controls the per store and client rate limiter.
type RateLimitConfig struct {
	Driver string        `default:"memory" usage:"Rate limiter driver: memory (per replica) or redis (shared)"`
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m" usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "VITRINE",
		Files:     []string{"config.yaml", "/etc/vitrine/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the selected drivers have what they need.
func (c *Config) Validate() error {
	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required: set VITRINE_DATABASE_URL or DATABASE_URL")
		}
	case StoreFirestore:
		if c.Firestore.Project == "" {
			return errors.New("firestore project is required: set VITRINE_FIRESTORE_PROJECT")
		}
	default:
		return errors.Errorf("unknown store driver %q", c.Store)
	}

	switch c.Cache.Driver {
	case CacheFile, CacheRedis:
	default:
		return errors.Errorf("unknown cache driver %q", c.Cache.Driver)
	}
	switch c.RateLimit.Driver {
	case LimiterMemory, LimiterRedis:
	default:
		return errors.Errorf("unknown rate limiter driver %q", c.RateLimit.Driver)
	}
	if c.Redis.URL == "" {
		return errors.New("redis URL is required: set VITRINE_REDIS_URL or REDIS_URL")
	}
	if _, err := time.LoadLocation(c.Analytics.Timezone); err != nil {
		return errors.Wrap(err, "analytics timezone")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's VITRINE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if c.Redis.URL == "" {
		if v := os.Getenv("REDIS_URL"); v != "" {
			c.Redis.URL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
