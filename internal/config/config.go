package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/Veraticus/spice-ml/internal/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

const (
	defaultStoragePath     = "$HOME/.local/share/spiceml/models"
	defaultMinTransactions = 50
)

// DefaultCategories is the fallback label set offered when a user has no
// trained categorizer. It is never enforced on training labels.
var DefaultCategories = []string{
	"Food",
	"Transportation",
	"Shopping",
	"Entertainment",
	"Bills",
	"Healthcare",
	"Education",
	"Travel",
	"Salary",
	"Investment",
	"Other",
}

// Config holds every setting the ML core and the CLI consume.
type Config struct {
	StorageBackend    string
	StoragePath       string
	SQLitePath        string
	LogLevel          string
	LogFormat         string
	DefaultCategories []string
	MinTransactions   int
	MaxParallelFits   int
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.path", defaultStoragePath)
	v.SetDefault("storage.sqlite_path", "$HOME/.local/share/spiceml/models.db")
	v.SetDefault("training.min_transactions", defaultMinTransactions)
	v.SetDefault("training.max_parallel_fits", 4)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("categories.defaults", DefaultCategories)
}

// LoadDotEnv loads variables from a .env file in the working directory when
// one exists. Variables already present in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the configuration from v. Explicit viper values take precedence,
// then the MODEL_PATH and MIN_TRANSACTIONS_FOR_TRAINING environment variables,
// then defaults.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{
		StorageBackend:    strings.ToLower(v.GetString("storage.backend")),
		StoragePath:       v.GetString("storage.path"),
		SQLitePath:        v.GetString("storage.sqlite_path"),
		MinTransactions:   v.GetInt("training.min_transactions"),
		MaxParallelFits:   v.GetInt("training.max_parallel_fits"),
		LogLevel:          v.GetString("logging.level"),
		LogFormat:         v.GetString("logging.format"),
		DefaultCategories: v.GetStringSlice("categories.defaults"),
	}

	if cfg.StoragePath == defaultStoragePath || cfg.StoragePath == "" {
		if p := os.Getenv("MODEL_PATH"); p != "" {
			cfg.StoragePath = p
		}
	}
	if cfg.MinTransactions == defaultMinTransactions {
		if raw := os.Getenv("MIN_TRANSACTIONS_FOR_TRAINING"); raw != "" {
			var n int
			if _, err := fmt.Sscanf(raw, "%d", &n); err != nil {
				return nil, fmt.Errorf("%w: MIN_TRANSACTIONS_FOR_TRAINING=%q", common.ErrInvalidConfig, raw)
			}
			cfg.MinTransactions = n
		}
	}

	cfg.StoragePath = ExpandPath(cfg.StoragePath)
	cfg.SQLitePath = ExpandPath(cfg.SQLitePath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the core cannot work with.
func (c *Config) Validate() error {
	var problems []string

	switch c.StorageBackend {
	case BackendFile:
		if c.StoragePath == "" {
			problems = append(problems, "storage.path is required for the file backend")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			problems = append(problems, "storage.sqlite_path is required for the sqlite backend")
		}
	case BackendMemory:
	default:
		problems = append(problems, fmt.Sprintf("unknown storage backend %q", c.StorageBackend))
	}

	if c.MinTransactions < 1 {
		problems = append(problems, fmt.Sprintf("training.min_transactions must be positive, got %d", c.MinTransactions))
	}
	if c.MaxParallelFits < 1 {
		problems = append(problems, fmt.Sprintf("training.max_parallel_fits must be positive, got %d", c.MaxParallelFits))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", common.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
