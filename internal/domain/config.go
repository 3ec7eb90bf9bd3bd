package domain

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Persistence backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Config holds service configuration loaded from iacscan.yaml and the
// IACSCAN_* environment.
type Config struct {
	Server      ServerConfig      `yaml:"server"      envconfig:"SERVER"`
	Scan        ScanConfig        `yaml:"scan"        envconfig:"SCAN"`
	Persistence PersistenceConfig `yaml:"persistence" envconfig:"PERSISTENCE"`
	Retention   RetentionConfig   `yaml:"retention"   envconfig:"RETENTION"`
	Tools       ToolsConfig       `yaml:"tools"       envconfig:"TOOLS"`
	Log         LogConfig         `yaml:"log"         envconfig:"LOG"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"          envconfig:"ADDR"          validate:"required"`
	ReadTimeout  time.Duration `yaml:"read_timeout"  envconfig:"READ_TIMEOUT"  validate:"gt=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit" envconfig:"RATE_LIMIT" validate:"gte=0"`
	// MaxUploadBytes caps the size of uploaded archives and config files.
	MaxUploadBytes int64 `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" validate:"gt=0"`
}

type ScanConfig struct {
	WorkDir      string        `yaml:"work_dir"      envconfig:"WORK_DIR"      validate:"required"`
	OutputsDir   string        `yaml:"outputs_dir"   envconfig:"OUTPUTS_DIR"   validate:"required"`
	Workers      int           `yaml:"workers"       envconfig:"WORKERS"       validate:"min=1"`
	CheckTimeout time.Duration `yaml:"check_timeout" envconfig:"CHECK_TIMEOUT" validate:"gt=0"`
	// UsersEnabled turns on project scoping (checklists, bound configurations).
	UsersEnabled bool `yaml:"users_enabled" envconfig:"USERS_ENABLED"`
}

type PersistenceConfig struct {
	Enabled bool        `yaml:"enabled" envconfig:"ENABLED"`
	Backend string      `yaml:"backend" envconfig:"BACKEND" validate:"oneof=file redis"`
	Dir     string      `yaml:"dir"     envconfig:"DIR"     validate:"required_if=Backend file"`
	Redis   RedisConfig `yaml:"redis"   envconfig:"REDIS"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"     envconfig:"ADDR"`
	Password string `yaml:"password" envconfig:"PASSWORD"`
	DB       int    `yaml:"db"       envconfig:"DB" validate:"gte=0"`
	Prefix   string `yaml:"prefix"   envconfig:"PREFIX"`
}

type RetentionConfig struct {
	Interval   time.Duration `yaml:"interval"     envconfig:"INTERVAL"     validate:"gt=0"`
	MaxAgeDays int           `yaml:"max_age_days" envconfig:"MAX_AGE_DAYS" validate:"min=1"`
}

type ToolsConfig struct {
	// ConfigDir stores uploaded check configuration files.
	ConfigDir string `yaml:"config_dir" envconfig:"CONFIG_DIR" validate:"required"`
	// Paths overrides the binary of a check, keyed by check name.
	Paths map[string]string `yaml:"paths" envconfig:"PATHS"`
}

type LogConfig struct {
	Level  string `yaml:"level"  envconfig:"LEVEL"  validate:"oneof=trace debug info warn warning error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=text json"`
}

// DefaultConfig returns a configuration that works out of the box with the
// file backend under ./outputs.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Minute,
			RateLimit:      20,
			MaxUploadBytes: 100 << 20,
		},
		Scan: ScanConfig{
			WorkDir:      "work",
			OutputsDir:   "outputs",
			Workers:      4,
			CheckTimeout: 10 * time.Minute,
			UsersEnabled: true,
		},
		Persistence: PersistenceConfig{
			Enabled: true,
			Backend: BackendFile,
			Dir:     "outputs/results",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "iacscan",
			},
		},
		Retention: RetentionConfig{
			Interval:   24 * time.Hour,
			MaxAgeDays: 14,
		},
		Tools: ToolsConfig{
			ConfigDir: "config",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

var validate = validator.New()

// Validate checks struct constraints plus the rules that span sections.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	// Rule 1: the redis backend needs an address.
	if c.Persistence.Backend == BackendRedis && c.Persistence.Redis.Addr == "" {
		return fmt.Errorf("persistence.redis.addr is required for the redis backend")
	}

	// Rule 2: tool path overrides must name a binary.
	for name, path := range c.Tools.Paths {
		if path == "" {
			return fmt.Errorf("tools.paths.%s is empty", name)
		}
	}

	return nil
}

// BinaryFor resolves the binary of a check, honoring Tools.Paths overrides.
func (c ToolsConfig) BinaryFor(def CheckDefinition) string {
	if p, ok := c.Paths[def.Name]; ok {
		return p
	}
	return def.Binary
}
