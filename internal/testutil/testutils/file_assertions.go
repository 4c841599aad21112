package helpers

import (
	"os"
	"path/filepath"
	"testing"
)

// FileAssertions checks working copy contents in tests.
type FileAssertions struct {
	t       *testing.T
	baseDir string
}

// NewFileAssertions creates a new file assertions helper rooted at baseDir.
func NewFileAssertions(t *testing.T, baseDir string) *FileAssertions {
	return &FileAssertions{t: t, baseDir: baseDir}
}

// AssertContent validates that a file exists with exactly the expected content.
func (fa *FileAssertions) AssertContent(relativePath, expected string) *FileAssertions {
	fa.t.Helper()
	fullPath := filepath.Join(fa.baseDir, relativePath)
	// #nosec G304 - test helper, paths are controlled by test code
	content, err := os.ReadFile(fullPath)
	if err != nil {
		fa.t.Errorf("Failed to read file %s: %v", fullPath, err)
		return fa
	}
	if string(content) != expected {
		fa.t.Errorf("File %s: expected %q, got %q", relativePath, expected, string(content))
	}
	return fa
}

// AssertMissing validates that a file does not exist.
func (fa *FileAssertions) AssertMissing(relativePath string) *FileAssertions {
	fa.t.Helper()
	fullPath := filepath.Join(fa.baseDir, relativePath)
	if _, err := os.Stat(fullPath); err == nil {
		fa.t.Errorf("Expected file to be absent: %s", fullPath)
	} else if !os.IsNotExist(err) {
		fa.t.Errorf("Stat %s: %v", fullPath, err)
	}
	return fa
}
