package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/docsync/internal/logfields"
)

var envFileNames = []string{".env", ".env.local"}

// loadEnvFiles loads .env and .env.local from dir and from the working directory.
// Variables already present in the environment are never overwritten.
func loadEnvFiles(dir string) {
	seen := map[string]struct{}{}
	dirs := []string{dir}
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	for _, d := range dirs {
		for _, name := range envFileNames {
			p := filepath.Join(d, name)
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			if _, err := os.Stat(p); err != nil {
				continue
			}
			if err := godotenv.Load(p); err != nil {
				slog.Warn("Failed to load env file", logfields.Path(p), logfields.Error(err))
				continue
			}
			slog.Debug("Loaded environment variables", logfields.Path(p))
		}
	}
}
