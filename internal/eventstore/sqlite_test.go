package eventstore

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/docsync/internal/foundation/errors"
)

func TestAppendAndRecent(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := t.Context()
	run := NewRunID()
	require.NoError(t, store.Append(ctx, Record{RunID: run, Operation: "pull", Outcome: OutcomeChanged, Repository: "/srv/a",
		HeadBefore: "aaa", HeadAfter: "bbb", Commits: 2, Duration: 1500 * time.Millisecond}))
	require.NoError(t, store.Append(ctx, Record{RunID: run, Operation: "push", Outcome: OutcomeFailed, Repository: "/srv/a",
		Error: "rejected"}))

	recs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "push", recs[0].Operation, "newest first")
	assert.Equal(t, "rejected", recs[0].Error)
	assert.Equal(t, "pull", recs[1].Operation)
	assert.Equal(t, 2, recs[1].Commits)
	assert.Equal(t, "bbb", recs[1].HeadAfter)
	assert.Equal(t, 1500*time.Millisecond, recs[1].Duration)
	assert.Equal(t, run, recs[1].RunID)
	assert.WithinDuration(t, time.Now(), recs[1].Timestamp, time.Minute)
	assert.Empty(t, recs[1].URL)
}

func TestByRepositoryAndLimit(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state", "history.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := t.Context()
	for i := range 5 {
		repo := "/srv/a"
		if i%2 == 1 {
			repo = "/srv/b"
		}
		require.NoError(t, store.Append(ctx, Record{Operation: "pull", Outcome: OutcomeUnchanged, Repository: repo}))
	}

	a, err := store.ByRepository(ctx, "/srv/a", 0)
	require.NoError(t, err)
	assert.Len(t, a, 3)
	for _, r := range a {
		assert.Equal(t, "/srv/a", r.Repository)
		assert.NotEmpty(t, r.RunID, "run id assigned when missing")
	}

	limited, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Greater(t, limited[0].ID, limited[1].ID)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(t.Context(), Record{Operation: "checkout", Outcome: OutcomeChanged, Repository: "/srv/a"}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	recs, err := reopened.Recent(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "checkout", recs[0].Operation)
}

func TestOpenEmptyPathIsNop(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	assert.IsType(t, NopStore{}, s)
	require.NoError(t, s.Append(t.Context(), Record{}))
	recs, err := s.Recent(t.Context(), 5)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestErrorsCarryStoreCategory(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	err = store.Append(t.Context(), Record{Operation: "pull", Outcome: OutcomeFailed, Repository: "/x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAppendFailed))
	assert.Equal(t, ferrors.CategoryStore, ferrors.GetCategory(err))
}
