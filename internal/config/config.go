package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"server"`
	Store struct {
		Driver string `yaml:"driver"`
	} `yaml:"store"`
	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Live struct {
		PollInterval string `yaml:"pollInterval"`
	} `yaml:"live"`
	Auth struct {
		Secret   string `yaml:"secret"`
		Issuer   string `yaml:"issuer"`
		Audience string `yaml:"audience"`
	} `yaml:"auth"`
	AI struct {
		Endpoint string `yaml:"endpoint"`
		APIKey   string `yaml:"apiKey"`
		Model    string `yaml:"model"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"ai"`
	S3 struct {
		Bucket          string `yaml:"bucket"`
		Region          string `yaml:"region"`
		Endpoint        string `yaml:"endpoint"`
		AccessKeyID     string `yaml:"accessKeyId"`
		SecretAccessKey string `yaml:"secretAccessKey"`
	} `yaml:"s3"`
}

// Load reads YAML config from path, then applies environment overrides.
// A .env file in the working directory is loaded first when present, and a
// missing YAML file is not an error so the service can run from env alone.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return cfg, err
	}

	applyEnv(&cfg)
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = DriverMemory
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "quiz"
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = envOrDefault("PORT", cfg.Server.Port)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.Server.AllowedOrigins = splitList(origins)
	}
	cfg.Store.Driver = envOrDefault("STORE_DRIVER", cfg.Store.Driver)
	cfg.Mongo.URI = envOrDefault("MONGO_URI", cfg.Mongo.URI)
	cfg.Mongo.Database = envOrDefault("MONGO_DATABASE", cfg.Mongo.Database)
	cfg.Postgres.URL = envOrDefault("POSTGRES_URL", cfg.Postgres.URL)
	cfg.Redis.Addr = envOrDefault("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envOrDefault("REDIS_PASSWORD", cfg.Redis.Password)
	if db, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil {
		cfg.Redis.DB = db
	}
	cfg.Live.PollInterval = envOrDefault("LIVE_POLL_INTERVAL", cfg.Live.PollInterval)
	cfg.Auth.Secret = envOrDefault("AUTH_JWT_SECRET", cfg.Auth.Secret)
	cfg.Auth.Issuer = envOrDefault("AUTH_JWT_ISSUER", cfg.Auth.Issuer)
	cfg.Auth.Audience = envOrDefault("AUTH_JWT_AUDIENCE", cfg.Auth.Audience)
	cfg.AI.Endpoint = envOrDefault("AI_ENDPOINT", cfg.AI.Endpoint)
	cfg.AI.APIKey = envOrDefault("AI_API_KEY", cfg.AI.APIKey)
	cfg.AI.Model = envOrDefault("AI_MODEL", cfg.AI.Model)
	cfg.S3.Bucket = envOrDefault("S3_BUCKET", cfg.S3.Bucket)
	cfg.S3.Region = envOrDefault("S3_REGION", cfg.S3.Region)
	cfg.S3.Endpoint = envOrDefault("S3_ENDPOINT", cfg.S3.Endpoint)
	cfg.S3.AccessKeyID = envOrDefault("S3_ACCESS_KEY_ID", cfg.S3.AccessKeyID)
	cfg.S3.SecretAccessKey = envOrDefault("S3_SECRET_ACCESS_KEY", cfg.S3.SecretAccessKey)
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
