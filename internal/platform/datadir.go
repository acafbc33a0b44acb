package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DataDir returns the per-user data directory for appName:
// $XDG_DATA_HOME/<app> or ~/.local/share/<app>.
func DataDir(appName string) (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve data dir: %w", err)
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, dirName(appName)), nil
}

func dirName(appName string) string {
	name := strings.TrimSpace(appName)
	if name == "" {
		name = "feedfloat"
	}
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}
