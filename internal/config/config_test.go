package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/profitfirst/internal/common"
	"github.com/Veraticus/profitfirst/internal/sheets"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("PF_TEST_DIR", "/data")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{":memory:", ":memory:"},
		{"~", home},
		{"~/pf/db.sqlite", filepath.Join(home, "pf/db.sqlite")},
		{"$PF_TEST_DIR/pf.db", "/data/pf.db"},
		{"/abs/path", "/abs/path"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpandPath(tt.in), tt.in)
	}
}

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("database.path", "/var/lib/pf/profitfirst.db")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/pf/profitfirst.db", cfg.DatabasePath)
	assert.Equal(t, "/var/lib/pf/local.db", cfg.LocalCachePath)
	assert.Equal(t, "profit-first", cfg.CacheNamespace)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.OwnerID)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]string
		want error
	}{
		{name: "no database", set: map[string]string{"database.path": ""}, want: common.ErrMissingConfig},
		{name: "blank namespace", set: map[string]string{"local.namespace": " "}, want: common.ErrInvalidConfig},
		{name: "bad level", set: map[string]string{"logging.level": "loud"}, want: common.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := Load(v)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestInit_ReadsFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("owner:\n  id: file-owner\nlocal:\n  namespace: custom\n"), 0600))
	t.Setenv("PROFITFIRST_DATABASE_PATH", filepath.Join(dir, "pf.db"))

	v := viper.New()
	require.NoError(t, Init(v, cfgFile))

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "file-owner", cfg.OwnerID)
	assert.Equal(t, "custom", cfg.CacheNamespace)
	assert.Equal(t, filepath.Join(dir, "pf.db"), cfg.DatabasePath)
}

func TestInit_MissingExplicitFile(t *testing.T) {
	err := Init(viper.New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadSheetsConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "")
	t.Setenv("GOOGLE_SHEETS_CLIENT_SECRET", "")
	t.Setenv("GOOGLE_SHEETS_REFRESH_TOKEN", "")
	t.Setenv("GOOGLE_SHEETS_TOKEN_FILE", "")
	t.Setenv("GOOGLE_SHEETS_RANGE", "")
	t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "env-sheet")
	t.Setenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "/keys/env.json")

	viper.Set("sheets.service_account_path", "/keys/viper.json")
	viper.Set("sheets.range", "2024!A:I")

	cfg, err := LoadSheetsConfig()
	require.NoError(t, err)
	assert.Equal(t, "/keys/viper.json", cfg.ServiceAccountPath, "viper wins over the environment")
	assert.Equal(t, "env-sheet", cfg.SpreadsheetID)
	assert.Equal(t, "2024!A:I", cfg.Range)
}

func TestLoadSheetsConfig_Invalid(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	for _, key := range []string{
		"GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH",
		"GOOGLE_SHEETS_CLIENT_ID",
		"GOOGLE_SHEETS_CLIENT_SECRET",
		"GOOGLE_SHEETS_REFRESH_TOKEN",
		"GOOGLE_SHEETS_TOKEN_FILE",
		"GOOGLE_SHEETS_SPREADSHEET_ID",
	} {
		t.Setenv(key, "")
	}

	_, err := LoadSheetsConfig()
	assert.Error(t, err)
}

func TestDefaultTokenFile(t *testing.T) {
	assert.True(t, filepath.IsAbs(DefaultTokenFile()))
	assert.Equal(t, "sheets-token.json", filepath.Base(DefaultTokenFile()))
	assert.Equal(t, sheets.DefaultRange, sheets.DefaultConfig().Range)
}
