package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "jonas-chat"

// Paths holds the per-user locations the client reads and writes
type Paths struct {
	ConfigDir string // config.yaml lives here
	DataDir   string // state.db lives here
	CacheDir  string // session shadow cache
}

// DetectPaths resolves the client directories based on the operating system
func DetectPaths() (Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, fmt.Errorf("failed to get home directory: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		base := filepath.Join(home, "Library/Application Support", appName)
		return Paths{
			ConfigDir: filepath.Join(home, ".config", appName),
			DataDir:   base,
			CacheDir:  filepath.Join(home, "Library/Caches", appName),
		}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return Paths{
			ConfigDir: xdgDir("XDG_CONFIG_HOME", filepath.Join(home, ".config")),
			DataDir:   xdgDir("XDG_DATA_HOME", filepath.Join(home, ".local/share")),
			CacheDir:  xdgDir("XDG_CACHE_HOME", filepath.Join(home, ".cache")),
		}, nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		base := filepath.Join(appData, appName)
		return Paths{
			ConfigDir: base,
			DataDir:   base,
			CacheDir:  filepath.Join(base, "cache"),
		}, nil
	default:
		return Paths{}, fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}
}

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, appName)
	}
	return filepath.Join(fallback, appName)
}

// ConfigFile returns the default config file path
func (p Paths) ConfigFile() string {
	return filepath.Join(p.ConfigDir, "config.yaml")
}

// StateDBPath returns the path to the client state database
func StateDBPath(dataDir string) string {
	return filepath.Join(dataDir, "state.db")
}

// EnsureDir creates dir if it does not exist
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &StorageError{Path: dir, Op: "mkdir", Err: err}
	}
	return nil
}
