// Package where implements a cross-platform resolver for application-specific filesystem paths.
package where

import (
	"os"
	"path/filepath"

	"github.com/bmevideo/bmevideo/constant"
	"github.com/bmevideo/bmevideo/filesystem"
	"github.com/bmevideo/bmevideo/key"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// EnvConfigPath overrides the default configuration directory.
const EnvConfigPath = "BMEVIDEO_CONFIG_PATH"

func ensureDir(path string) string {
	lo.Must0(filesystem.API().MkdirAll(path, os.ModePerm))
	return path
}

// Config resolves the configuration directory.
// The path can be pinned with the BMEVIDEO_CONFIG_PATH environment variable.
func Config() string {
	if custom, ok := os.LookupEnv(EnvConfigPath); ok {
		return ensureDir(custom)
	}

	base := lo.Must(os.UserConfigDir())
	return ensureDir(filepath.Join(base, constant.App))
}

// Cache resolves the application's cache root, following XDG_CACHE_HOME or the platform equivalent.
func Cache() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = filepath.Join(".", "cache")
	}
	return ensureDir(filepath.Join(base, constant.App))
}

// Media resolves the content-addressed media store.
// cache.directory overrides the location.
func Media() string {
	if custom := viper.GetString(key.CacheDirectory); custom != "" {
		return ensureDir(custom)
	}
	return ensureDir(filepath.Join(Cache(), constant.MediaCacheDir))
}

// Recency resolves the file recording when each media entry was last resolved.
func Recency() string {
	return filepath.Join(Cache(), "recency.json")
}

// Logs resolves the diagnostic log directory.
func Logs() string {
	return ensureDir(filepath.Join(Config(), "logs"))
}

// Temp resolves a volatile directory for transient artifacts such as decoder IPC sockets.
func Temp() string {
	return ensureDir(filepath.Join(os.TempDir(), constant.App))
}
