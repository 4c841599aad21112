package git

import (
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/logfields"
)

// removeWorkingCopy deletes path entirely. A missing path is not an error.
func removeWorkingCopy(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := os.RemoveAll(path); err != nil {
		return errors.FileSystemError("failed to remove working copy").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	slog.Info("Working copy removed", logfields.Path(path))
	return nil
}

// hasGitDir reports whether path contains a .git entry (directory or gitfile).
func hasGitDir(path string) (bool, error) {
	_, err := os.Stat(filepath.Join(path, ".git"))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.FileSystemError("failed to inspect working copy").
		WithCause(err).
		WithContext("path", path).
		Build()
}

// ensureCloneTarget creates the parent of path and verifies path is absent or empty.
func ensureCloneTarget(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return errors.FileSystemError("failed to create parent directory").
			WithCause(err).
			WithContext("path", filepath.Dir(path)).
			Build()
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.FileSystemError("failed to read clone target").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	if len(entries) > 0 {
		return ErrPathNotEmpty
	}
	return nil
}
