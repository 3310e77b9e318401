package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/profitfirst/internal/common"
	"github.com/Veraticus/profitfirst/internal/config"
	"github.com/Veraticus/profitfirst/internal/identity"
	"github.com/Veraticus/profitfirst/internal/ledger"
	"github.com/Veraticus/profitfirst/internal/localcache"
	"github.com/Veraticus/profitfirst/internal/migration"
	"github.com/Veraticus/profitfirst/internal/storage"
)

// app holds the collaborators every ledger command needs.
type app struct {
	cfg      config.Config
	store    *storage.SQLiteStorage
	cache    *localcache.Cache
	identity identity.Provider
	sync     *migration.Orchestrator
}

// openApp resolves configuration, opens and migrates the database, and opens
// the local cache.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	store, err := initStorage(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	cache, err := localcache.Open(cfg.LocalCachePath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to open local cache: %w", err)
	}

	provider := identity.NewConfigProvider(viper.GetViper())
	return &app{
		cfg:      cfg,
		store:    store,
		cache:    cache,
		identity: provider,
		sync: migration.New(store, provider, cache, cfg.CacheNamespace).
			WithDefaultCurrency(cfg.DefaultCurrency),
	}, nil
}

// Close releases the database and the local cache.
func (a *app) Close() error {
	return errors.Join(a.cache.Close(), a.store.Close())
}

// owner returns the signed-in owner or a user error explaining how to set one.
func (a *app) owner(ctx context.Context) (string, error) {
	owner, err := a.identity.Owner(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve owner: %w", err)
	}
	if owner == "" {
		return "", common.NewUserError(
			"no owner configured; set owner.id in the config file or PROFITFIRST_OWNER_ID",
			common.ErrNoOwner)
	}
	return owner, nil
}

// session runs the sync pass every mutating command starts with and returns
// a session over the loaded state.
func (a *app) session(ctx context.Context) (*ledger.Session, error) {
	owner, err := a.owner(ctx)
	if err != nil {
		return nil, err
	}

	state, err := a.sync.Run(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, common.NewUserError("no owner configured", common.ErrNoOwner)
	}
	return ledger.NewSession(a.store, a.sync, owner, *state), nil
}

// initStorage opens the database at dbPath and brings its schema up to date.
func initStorage(ctx context.Context, dbPath string) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// inputFormat is how a file handed to import or validate is decoded.
type inputFormat int

const (
	formatJSON inputFormat = iota
	formatCSV
)

// detectFormat picks CSV for .csv files and for anything that does not
// start with a JSON object.
func detectFormat(path string, data []byte) inputFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return formatCSV
	case ".json":
		return formatJSON
	}
	trimmed := strings.TrimLeft(strings.TrimPrefix(string(data), "\ufeff"), " \t\r\n")
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return formatJSON
	}
	return formatCSV
}

// readInput reads path, or stdin when path is "-".
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
