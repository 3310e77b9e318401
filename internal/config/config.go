package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Veraticus/profitfirst/internal/common"
)

// EnvPrefix namespaces environment overrides, e.g. PROFITFIRST_DATABASE_PATH.
const EnvPrefix = "PROFITFIRST"

// Config is the resolved application configuration.
type Config struct {
	DatabasePath    string
	LocalCachePath  string
	CacheNamespace  string
	OwnerID         string
	DefaultCurrency string
	LogLevel        string
	LogFormat       string
}

// SetDefaults registers every default with v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "~/.local/share/profitfirst/profitfirst.db")
	v.SetDefault("local.path", "")
	v.SetDefault("local.namespace", "profit-first")
	v.SetDefault("owner.id", "")
	v.SetDefault("currency.default", "USD")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Init wires v to the environment, an optional .env file and the config
// file. A missing config file is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	// .env only fills variables that are not already set
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(ExpandPath(cfgFile))
	} else {
		v.AddConfigPath(ExpandPath("~/.config/profitfirst"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// Load resolves a Config from v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		DatabasePath:    ExpandPath(v.GetString("database.path")),
		LocalCachePath:  ExpandPath(v.GetString("local.path")),
		CacheNamespace:  strings.TrimSpace(v.GetString("local.namespace")),
		OwnerID:         strings.TrimSpace(v.GetString("owner.id")),
		DefaultCurrency: strings.TrimSpace(v.GetString("currency.default")),
		LogLevel:        v.GetString("logging.level"),
		LogFormat:       v.GetString("logging.format"),
	}

	if cfg.DatabasePath == "" {
		return Config{}, fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}
	if cfg.LocalCachePath == "" {
		cfg.LocalCachePath = filepath.Join(filepath.Dir(cfg.DatabasePath), "local.db")
	}
	if cfg.CacheNamespace == "" {
		return Config{}, fmt.Errorf("%w: local.namespace must not be empty", common.ErrInvalidConfig)
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "USD"
	}
	if _, err := common.ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
