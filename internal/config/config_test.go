package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadAppliesDefaultsAndResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	p := writeConfig(t, dir, `
source:
  url: https://github.com/napframework/nap.git
  path: ../nap
publish:
  enabled: true
  path: ..
history:
  path: state/history.db
`)

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(filepath.Dir(dir), "nap"), cfg.Source.Path)
	assert.Equal(t, "origin", cfg.Source.Remote)
	assert.Equal(t, filepath.Dir(dir), cfg.Publish.Path)
	assert.Equal(t, defaultPublishMessage, cfg.Publish.Message)
	assert.Equal(t, filepath.Join(cfg.Source.Path, "cmake", "version.cmake"), cfg.Version.File)
	assert.Equal(t, filepath.Join(dir, "build"), cfg.Version.BuildDir)
	assert.Equal(t, "NAP", cfg.Version.Prefix)
	assert.Equal(t, filepath.Join(dir, "state", "history.db"), cfg.History.Path)
	assert.Equal(t, RetryBackoffLinear, cfg.Retry.Backoff)
	assert.Equal(t, 0, cfg.Retry.MaxRetries)
	assert.Equal(t, 5*time.Minute, cfg.Watch.IntervalDuration())
	assert.False(t, cfg.Notify.Enabled())
	assert.Equal(t, dir, cfg.BaseDir)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("DOCSYNC_TEST_TOKEN", "s3cret")
	dir := t.TempDir()
	p := writeConfig(t, dir, `
source:
  url: https://example.com/repo.git
  path: src
  auth:
    type: token
    token: ${DOCSYNC_TEST_TOKEN}
`)

	cfg, err := Load(p)
	require.NoError(t, err)
	require.NotNil(t, cfg.Source.Auth)
	assert.Equal(t, "s3cret", cfg.Source.Auth.Token)
}

func TestLoadReadsEnvFileWithoutOverriding(t *testing.T) {
	t.Setenv("DOCSYNC_TEST_PRESET", "from-env")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("DOCSYNC_TEST_SUBJECT=from-dotenv\nDOCSYNC_TEST_PRESET=from-dotenv\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("DOCSYNC_TEST_SUBJECT") })

	p := writeConfig(t, dir, `
source:
  path: src
notify:
  nats_url: nats://localhost:4222
  subject: ${DOCSYNC_TEST_SUBJECT}.${DOCSYNC_TEST_PRESET}
`)

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv.from-env", cfg.Notify.Subject)
	assert.True(t, cfg.Notify.Enabled())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader("source:\n  path: x\n  colour: blue\n"), t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestValidation(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"bad backoff", "source: {path: s}\nretry: {backoff: random}\n", "retry.backoff"},
		{"bad delay", "source: {path: s}\nretry: {initial_delay: soon}\n", "retry.initial_delay"},
		{"bad interval", "source: {path: s}\nwatch: {interval: often}\n", "watch.interval"},
		{"short interval", "source: {path: s}\nwatch: {interval: 10ms}\n", "watch.interval"},
		{"token without token", "source: {path: s, auth: {type: token}}\n", "source.auth.token"},
		{"unknown auth", "source: {path: s, auth: {type: kerberos}}\n", "source.auth.type"},
		{"basic missing password", "source: {path: s}\npublish: {enabled: true, path: p, auth: {type: basic, username: u}}\n", "publish.auth"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.body), t.TempDir())
			require.Error(t, err)
			classified, ok := errors.AsClassified(err)
			require.True(t, ok)
			assert.Equal(t, errors.CategoryValidation, classified.Category())
			field, _ := classified.Context().GetString("field")
			assert.Equal(t, tc.field, field)
		})
	}
}

func TestNormalizeRetryBackoff(t *testing.T) {
	assert.Equal(t, RetryBackoffExponential, NormalizeRetryBackoff(" Exponential "))
	assert.Equal(t, RetryBackoffFixed, NormalizeRetryBackoff("FIXED"))
	assert.Equal(t, RetryBackoffMode(""), NormalizeRetryBackoff("jitter"))
}

func TestInitWritesLoadableConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "conf", DefaultFile)

	require.NoError(t, Init(p, false))
	err := Init(p, false)
	require.Error(t, err, "second init without force must refuse")
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	require.NoError(t, Init(p, true))

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/napframework/nap.git", cfg.Source.URL)
	assert.Equal(t, RetryBackoffExponential, cfg.Retry.Backoff)
	assert.Equal(t, 2, cfg.Retry.MaxRetries)
	assert.False(t, cfg.Publish.Enabled)
}
