// Package config loads the ambient configuration for the admin CLI and
// any host process embedding the store: where the durable file lives,
// the per-connection page-cache override, and tunables left to the
// implementer's choice (max listing rows, GC batch size).
//
// Uses a viper-based loader with the familiar discovery order:
// project-local directory walk, then XDG config dir, then home
// directory, with env-var precedence over file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DefaultMaxListRows is the reference tunable for the maximum rows a
// single listing call may return.
const DefaultMaxListRows = 10000

// DefaultGCBatchSize bounds how many superseded/orphaned blobs
// HandleNextSupersededBlobs returns per call.
const DefaultGCBatchSize = 64

// DefaultPageCacheKiB is the per-connection SQLite page cache size,
// reduced from the driver default to roughly 0.5 MiB.
const DefaultPageCacheKiB = 512

// Config is the resolved ambient configuration.
type Config struct {
	// StoreDir is the directory containing persistent.sqlite.
	StoreDir string
	// PageCacheKiB overrides SQLite's page cache size per connection.
	PageCacheKiB int
	// MaxListRows bounds listing-call result sizes.
	MaxListRows int
	// GCBatchSize bounds HandleNextSupersededBlobs batch size.
	GCBatchSize int
}

// Load resolves configuration from layered sources:
// project-local ".keyvault/config.yaml" found by walking up from the
// current directory, then $XDG_CONFIG_HOME/keyvaultd/config.yaml, then
// ~/.keyvaultd/config.yaml. Environment variables prefixed KEYVAULT_ take
// precedence over the file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	configFileSet := false
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			candidate := filepath.Join(dir, ".keyvault", "config.yaml")
			if _, statErr := os.Stat(candidate); statErr == nil {
				v.SetConfigFile(candidate)
				configFileSet = true
				break
			}
		}
	}
	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			candidate := filepath.Join(configDir, "keyvaultd", "config.yaml")
			if _, statErr := os.Stat(candidate); statErr == nil {
				v.SetConfigFile(candidate)
				configFileSet = true
			}
		}
	}
	if !configFileSet {
		if home, err := os.UserHomeDir(); err == nil {
			candidate := filepath.Join(home, ".keyvaultd", "config.yaml")
			if _, statErr := os.Stat(candidate); statErr == nil {
				v.SetConfigFile(candidate)
				configFileSet = true
			}
		}
	}

	v.SetEnvPrefix("KEYVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("store-dir", defaultStoreDir())
	v.SetDefault("page-cache-kib", DefaultPageCacheKiB)
	v.SetDefault("max-list-rows", DefaultMaxListRows)
	v.SetDefault("gc-batch-size", DefaultGCBatchSize)

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return &Config{
		StoreDir:     v.GetString("store-dir"),
		PageCacheKiB: v.GetInt("page-cache-kib"),
		MaxListRows:  v.GetInt("max-list-rows"),
		GCBatchSize:  v.GetInt("gc-batch-size"),
	}, nil
}

func defaultStoreDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".keyvaultd")
	}
	return "."
}
