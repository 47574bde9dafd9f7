package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/R-Akshay-Kumar/coding-tracker/internal/logger"
)

const (
	DefaultPort              = "8000"
	DefaultStoreDriver       = "memory"
	DefaultRedisAddr         = "localhost:6379"
	DefaultMaxJobs           = 4
	DefaultJobRetention      = 24 * time.Hour
	DefaultPacingDelay       = time.Second
	DefaultRequestTimeout    = 15 * time.Second
	DefaultCodeforcesURL     = "https://codeforces.com"
	DefaultLeetCodeURL       = "https://leetcode.com"
	DefaultCodeChefURL       = "https://www.codechef.com"
	DefaultCFSubmissionCount = 100
	DefaultS3Region          = "us-east-1"
	defaultConfigPath        = "config.yaml"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Jobs      JobsConfig      `yaml:"jobs"`
	Platforms PlatformsConfig `yaml:"platforms"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	APIKey          string        `yaml:"api_key"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type StoreConfig struct {
	Driver        string `yaml:"driver"`
	DatabaseURL   string `yaml:"database_url"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

type JobsConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent"`
	Retention     time.Duration `yaml:"retention"`
	PacingDelay   time.Duration `yaml:"pacing_delay"`
}

type PlatformsConfig struct {
	RequestTimeout       time.Duration `yaml:"request_timeout"`
	CodeforcesURL        string        `yaml:"codeforces_url"`
	LeetCodeURL          string        `yaml:"leetcode_url"`
	CodeChefURL          string        `yaml:"codechef_url"`
	CodeforcesSubmission int           `yaml:"codeforces_submission_count"`
}

// ArchiveConfig enables uploading report exports to S3 when Bucket is set.
type ArchiveConfig struct {
	Bucket    string `yaml:"bucket"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Load reads .env (when present), the optional YAML file named by CONFIG_PATH,
// and then environment overrides. Unset values fall back to defaults.
func Load() (*Config, error) {
	log := logger.NewNamedLogger("config")

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat .env file: %w", err)
	}

	cfg := &Config{}
	var inFile fileKeys
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config %s: %w", configPath, err)
		}
		if err := yaml.Unmarshal(data, &inFile); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config %s: %w", configPath, err)
		}
	case errors.Is(err, os.ErrNotExist):
		log.Infof("config file %s not found, using environment only", configPath)
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cfg.applyEnv(log, inFile); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fileKeys records which keys the YAML file set, so an explicit zero there is
// kept instead of being replaced by the default.
type fileKeys map[string]map[string]any

func (f fileKeys) has(section, key string) bool {
	_, ok := f[section][key]
	return ok
}

func (c *Config) applyEnv(log *zap.SugaredLogger, inFile fileKeys) error {
	var err error

	c.Server.Port = stringValue(log, "PORT", c.Server.Port, DefaultPort)
	c.Server.APIKey = optionalString("API_KEY", c.Server.APIKey)
	if c.Server.ShutdownTimeout, err = durationValue(log, "SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout, inFile.has("server", "shutdown_timeout"), 30*time.Second); err != nil {
		return err
	}

	c.Store.Driver = stringValue(log, "STORE_DRIVER", c.Store.Driver, DefaultStoreDriver)
	c.Store.DatabaseURL = optionalString("DATABASE_URL", c.Store.DatabaseURL)
	c.Store.RedisAddr = stringValue(log, "REDIS_ADDR", c.Store.RedisAddr, DefaultRedisAddr)
	c.Store.RedisPassword = optionalString("REDIS_PASSWORD", c.Store.RedisPassword)
	if c.Store.RedisDB, err = intValue(log, "REDIS_DB", c.Store.RedisDB, inFile.has("store", "redis_db"), 0); err != nil {
		return err
	}

	if c.Jobs.MaxConcurrent, err = intValue(log, "MAX_JOBS", c.Jobs.MaxConcurrent, inFile.has("jobs", "max_concurrent"), DefaultMaxJobs); err != nil {
		return err
	}
	if c.Jobs.Retention, err = durationValue(log, "JOB_RETENTION", c.Jobs.Retention, inFile.has("jobs", "retention"), DefaultJobRetention); err != nil {
		return err
	}
	if c.Jobs.PacingDelay, err = durationValue(log, "PACING_DELAY", c.Jobs.PacingDelay, inFile.has("jobs", "pacing_delay"), DefaultPacingDelay); err != nil {
		return err
	}

	if c.Platforms.RequestTimeout, err = durationValue(log, "REQUEST_TIMEOUT", c.Platforms.RequestTimeout, inFile.has("platforms", "request_timeout"), DefaultRequestTimeout); err != nil {
		return err
	}
	c.Platforms.CodeforcesURL = stringValue(log, "CODEFORCES_URL", c.Platforms.CodeforcesURL, DefaultCodeforcesURL)
	c.Platforms.LeetCodeURL = stringValue(log, "LEETCODE_URL", c.Platforms.LeetCodeURL, DefaultLeetCodeURL)
	c.Platforms.CodeChefURL = stringValue(log, "CODECHEF_URL", c.Platforms.CodeChefURL, DefaultCodeChefURL)
	if c.Platforms.CodeforcesSubmission, err = intValue(log, "CODEFORCES_SUBMISSION_COUNT",
		c.Platforms.CodeforcesSubmission, inFile.has("platforms", "codeforces_submission_count"), DefaultCFSubmissionCount); err != nil {
		return err
	}

	c.Archive.Bucket = optionalString("S3_BUCKET", c.Archive.Bucket)
	c.Archive.Endpoint = optionalString("S3_ENDPOINT", c.Archive.Endpoint)
	c.Archive.Region = optionalString("S3_REGION", c.Archive.Region)
	if c.Archive.Region == "" {
		c.Archive.Region = DefaultS3Region
	}
	c.Archive.AccessKey = optionalString("S3_ACCESS_KEY", c.Archive.AccessKey)
	c.Archive.SecretKey = optionalString("S3_SECRET_KEY", c.Archive.SecretKey)

	switch c.Store.Driver {
	case "memory", "redis":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	if c.Jobs.MaxConcurrent < 1 {
		return fmt.Errorf("MAX_JOBS must be positive, got %d", c.Jobs.MaxConcurrent)
	}
	return nil
}

func optionalString(key, current string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return current
}

func stringValue(log *zap.SugaredLogger, key, current, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if current != "" {
		return current
	}
	log.Warnf("%s is not set, using default value %s", key, def)
	return def
}

// intValue prefers the environment, then a value set in the file (zero
// included), then def.
func intValue(log *zap.SugaredLogger, key string, current int, fromFile bool, def int) (int, error) {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("failed to parse %s: %w", key, err)
		}
		return n, nil
	}
	if fromFile {
		return current, nil
	}
	if def != 0 {
		log.Warnf("%s is not set, using default value %d", key, def)
	}
	return def, nil
}

func durationValue(log *zap.SugaredLogger, key string, current time.Duration, fromFile bool, def time.Duration) (time.Duration, error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("failed to parse %s: %w", key, err)
		}
		return d, nil
	}
	if fromFile {
		return current, nil
	}
	log.Warnf("%s is not set, using default value %s", key, def)
	return def, nil
}
