package versioning

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docsync/internal/config"
	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/logfields"
)

// DefaultCommand evaluates the version script.
const DefaultCommand = "cmake"

// Runner executes a command in dir and returns its standard output.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%w: %s", err, msg)
		}
		return out, err
	}
	return out, nil
}

// Request locates the version script and the directories reported alongside it.
type Request struct {
	File       string // version script, e.g. <source>/cmake/version.cmake
	WorkingDir string // directory the command runs in; defaults to the script's directory
	SourceDir  string
	BuildDir   string
}

// Resolver runs `<Command> -P <File>` and parses the version it prints.
type Resolver struct {
	Command string
	Runner  Runner
}

// NewResolver returns a resolver for the configured command.
func NewResolver(cfg config.VersionConfig) Resolver {
	return Resolver{Command: cfg.Command, Runner: ExecRunner{}}
}

// RequestFor builds the request for a source tree from configuration.
func RequestFor(cfg config.VersionConfig, sourceDir string) Request {
	file := cfg.File
	if file != "" && !filepath.IsAbs(file) {
		file = filepath.Join(sourceDir, file)
	}
	return Request{File: file, SourceDir: sourceDir, BuildDir: cfg.BuildDir}
}

// Resolve evaluates the version script.
func (r Resolver) Resolve(ctx context.Context, req Request) (Info, error) {
	if req.File == "" {
		return Info{}, errors.VersionError("version script not configured").Build()
	}
	command := r.Command
	if command == "" {
		command = DefaultCommand
	}
	runner := r.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	dir := req.WorkingDir
	if dir == "" {
		dir = filepath.Dir(req.File)
	}

	slog.Debug("Evaluating version script", logfields.Path(req.File), slog.String("command", command))
	out, err := runner.Run(ctx, dir, command, "-P", req.File)
	if err != nil {
		return Info{}, errors.VersionError("version script failed").
			WithCause(err).
			WithContext("file", req.File).
			WithContext("command", command).
			Build()
	}
	full, err := ParseOutput(string(out))
	if err != nil {
		return Info{}, errors.VersionError("unexpected version script output").
			WithCause(err).
			WithContext("file", req.File).
			Build()
	}
	info := Info{Full: full, Major: Major(full), SourceDir: req.SourceDir, BuildDir: req.BuildDir}
	slog.Info("Resolved project version", logfields.Version(info.Full), slog.String("major", info.Major))
	return info, nil
}

// ParseOutput extracts the version from script output of the form
// "<label>: <version>". The version is the text after the first colon, up to
// any further colon, trimmed.
func ParseOutput(out string) (string, error) {
	chunks := strings.Split(out, ":")
	if len(chunks) < 2 {
		return "", fmt.Errorf("no version in output %q", strings.TrimSpace(out))
	}
	v := strings.TrimSpace(chunks[1])
	if v == "" {
		return "", fmt.Errorf("empty version in output %q", strings.TrimSpace(out))
	}
	return v, nil
}

// Major drops the last dot-separated component: 0.7.1 -> 0.7, 2 -> "".
func Major(full string) string {
	i := strings.LastIndexByte(full, '.')
	if i < 0 {
		return ""
	}
	return full[:i]
}
