package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Veraticus/spice-ml/internal/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MODEL_PATH", "")
	t.Setenv("MIN_TRANSACTIONS_FOR_TRAINING", "")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, BackendFile, cfg.StorageBackend)
	assert.Equal(t, 50, cfg.MinTransactions)
	assert.Equal(t, 4, cfg.MaxParallelFits)
	assert.Equal(t, DefaultCategories, cfg.DefaultCategories)
	assert.NotContains(t, cfg.StoragePath, "$HOME")
}

func TestLoad_EnvironmentFallbacks(t *testing.T) {
	t.Setenv("MODEL_PATH", "/tmp/spiceml-models")
	t.Setenv("MIN_TRANSACTIONS_FOR_TRAINING", "20")

	v := viper.New()
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.MinTransactions)
	assert.Equal(t, "/tmp/spiceml-models", cfg.StoragePath)
}

func TestLoad_ViperWinsOverEnvironment(t *testing.T) {
	t.Setenv("MIN_TRANSACTIONS_FOR_TRAINING", "20")

	v := viper.New()
	v.Set("training.min_transactions", 75)
	v.Set("storage.path", "/srv/models")

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 75, cfg.MinTransactions)
	assert.Equal(t, "/srv/models", cfg.StoragePath)
}

func TestLoad_InvalidEnvironmentValue(t *testing.T) {
	t.Setenv("MIN_TRANSACTIONS_FOR_TRAINING", "lots")

	_, err := Load(viper.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid file backend",
			cfg:  Config{StorageBackend: BackendFile, StoragePath: "/tmp/m", MinTransactions: 50, MaxParallelFits: 1},
		},
		{
			name: "valid memory backend",
			cfg:  Config{StorageBackend: BackendMemory, MinTransactions: 1, MaxParallelFits: 2},
		},
		{
			name:    "file backend without path",
			cfg:     Config{StorageBackend: BackendFile, MinTransactions: 50, MaxParallelFits: 1},
			wantErr: true,
		},
		{
			name:    "sqlite backend without path",
			cfg:     Config{StorageBackend: BackendSQLite, MinTransactions: 50, MaxParallelFits: 1},
			wantErr: true,
		},
		{
			name:    "unknown backend",
			cfg:     Config{StorageBackend: "s3", MinTransactions: 50, MaxParallelFits: 1},
			wantErr: true,
		},
		{
			name:    "zero threshold",
			cfg:     Config{StorageBackend: BackendMemory, MinTransactions: 0, MaxParallelFits: 1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SPICEML_DOTENV_PROBE=loaded\n"), 0o600))

	t.Setenv("SPICEML_DOTENV_PROBE", "")
	require.NoError(t, os.Unsetenv("SPICEML_DOTENV_PROBE"))

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "loaded", os.Getenv("SPICEML_DOTENV_PROBE"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("SPICEML_TEST_DIR", "/data")

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, filepath.Join(home, "models"), ExpandPath("~/models"))
	assert.Equal(t, "/data/models", ExpandPath("$SPICEML_TEST_DIR/models"))
}
