package config

import (
	"os"
	"path/filepath"
	"strings"
)

const homeEnv = "FAKEGPT_PATH"

// HomePath is the directory holding config.jsonc, .env and logs: $FAKEGPT_PATH
// with a leading ~ expanded, or ~/.fakegpt. The result is absolute when the
// working directory is known.
func HomePath() string {
	dir := strings.TrimSpace(os.Getenv(homeEnv))
	switch {
	case dir == "":
		dir = filepath.Join(userHome(), ".fakegpt")
	case dir == "~":
		dir = userHome()
	case strings.HasPrefix(dir, "~/"):
		dir = filepath.Join(userHome(), dir[2:])
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return filepath.Clean(dir)
}

func userHome() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

func ConfigPath() string { return filepath.Join(HomePath(), "config.jsonc") }
func DotenvPath() string { return filepath.Join(HomePath(), ".env") }

// LogPath is where a command that owns the terminal writes its log.
func LogPath(command string) string {
	return filepath.Join(HomePath(), "logs", command+".log")
}
