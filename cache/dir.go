package cache

import (
	"os"
	"os/user"
	"path/filepath"
)

// DefaultDir returns ~/.tba_cache, or .tba_cache in the working directory
// when the home directory is unknown.
func DefaultDir() string {
	usr, err := user.Current()
	if err != nil || usr.HomeDir == "" {
		return ".tba_cache"
	}
	return filepath.Join(usr.HomeDir, ".tba_cache")
}

// ResolveDir returns preferred (DefaultDir when empty) if it exists or can be
// created, and the current working directory otherwise.
func ResolveDir(preferred string) string {
	return resolveDir(preferred, os.Getwd)
}

func resolveDir(preferred string, fallback func() (string, error)) string {
	if preferred == "" {
		preferred = DefaultDir()
	}
	if err := os.MkdirAll(preferred, 0o700); err == nil {
		return preferred
	}
	if wd, err := fallback(); err == nil {
		return wd
	}
	return "."
}
