package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/docsync/internal/foundation/errors"
	helpers "git.home.luguber.info/inful/docsync/internal/testutil/testutils"
)

func cloneRemote(t *testing.T, remote *helpers.Remote, opts ...Option) *Repository {
	t.Helper()
	local := filepath.Join(t.TempDir(), "work")
	repo, err := Open(context.Background(), local, remote.BarePath, opts...)
	require.NoError(t, err)
	return repo
}

func TestOpenClonesMissingWorkingCopy(t *testing.T) {
	remote := helpers.NewRemote(t)
	repo := cloneRemote(t, remote)

	assert.True(t, filepath.IsAbs(repo.Path()))
	assert.Equal(t, remote.BarePath, repo.URL())
	assert.Equal(t, DefaultRemote, repo.Remote())
	helpers.NewFileAssertions(t, repo.Path()).AssertContent("README.md", "# docs\n")

	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, remote.BranchHead(helpers.DefaultBranch).String(), head.String())
}

func TestOpenBindsExistingWorkingCopy(t *testing.T) {
	remote := helpers.NewRemote(t)
	first := cloneRemote(t, remote)

	bound, err := Open(context.Background(), first.Path(), "")
	require.NoError(t, err)
	assert.Equal(t, remote.BarePath, bound.URL(), "URL is read from the bound remote")

	// Existing copy with a URL given is reused, not recloned.
	require.NoError(t, os.WriteFile(filepath.Join(first.Path(), "local.txt"), []byte("keep"), 0o600))
	again, err := Open(context.Background(), first.Path(), remote.BarePath)
	require.NoError(t, err)
	helpers.NewFileAssertions(t, again.Path()).AssertContent("local.txt", "keep")
}

func TestOpenCleanReclones(t *testing.T) {
	remote := helpers.NewRemote(t)
	first := cloneRemote(t, remote)
	require.NoError(t, os.WriteFile(filepath.Join(first.Path(), "junk.txt"), []byte("x"), 0o600))

	repo, err := Open(context.Background(), first.Path(), remote.BarePath, WithClean(true))
	require.NoError(t, err)
	helpers.NewFileAssertions(t, repo.Path()).
		AssertMissing("junk.txt").
		AssertContent("README.md", "# docs\n")
}

func TestOpenBindingErrors(t *testing.T) {
	t.Run("not a repository", func(t *testing.T) {
		_, err := Open(context.Background(), t.TempDir(), "")
		var bindErr *BindingError
		require.ErrorAs(t, err, &bindErr)
		assert.ErrorIs(t, err, git.ErrRepositoryNotExists)
	})

	t.Run("missing origin", func(t *testing.T) {
		dir := t.TempDir()
		_, err := git.PlainInit(dir, false)
		require.NoError(t, err)
		_, err = Open(context.Background(), dir, "")
		var bindErr *BindingError
		require.ErrorAs(t, err, &bindErr)
		assert.ErrorIs(t, err, git.ErrRemoteNotFound)
		assert.Equal(t, ferrors.CategoryGit, ferrors.GetCategory(err))
	})
}

func TestOpenCloneFailures(t *testing.T) {
	t.Run("remote does not exist", func(t *testing.T) {
		local := filepath.Join(t.TempDir(), "work")
		_, err := Open(context.Background(), local, filepath.Join(t.TempDir(), "missing.git"))
		var cloneErr *CloneError
		require.ErrorAs(t, err, &cloneErr)
		assert.Equal(t, local, cloneErr.Path)
	})

	t.Run("target not empty", func(t *testing.T) {
		remote := helpers.NewRemote(t)
		local := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(local, "stray.txt"), []byte("x"), 0o600))
		_, err := Open(context.Background(), local, remote.BarePath)
		var cloneErr *CloneError
		require.ErrorAs(t, err, &cloneErr)
		assert.ErrorIs(t, err, ErrPathNotEmpty)
		assert.Equal(t, ferrors.CategoryFileSystem, cloneErr.Category())
	})
}

func TestOpenWithBranch(t *testing.T) {
	remote := helpers.NewRemote(t)
	base := remote.BranchHead(helpers.DefaultBranch)
	remote.PushBranch("docs", base)
	remote.CommitAndPush("later.md", "later", "later on master")

	repo := cloneRemote(t, remote, WithBranch("docs"))
	st, err := repo.Status(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "docs", st.Branch)
	assert.Equal(t, base.String(), st.Head.String())
	helpers.NewFileAssertions(t, repo.Path()).AssertMissing("later.md")
}

func TestErrorCategories(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ferrors.ErrorCategory
	}{
		{"diverged", &SyncConflictError{Err: ErrDiverged}, ferrors.CategoryConflict},
		{"dirty checkout", &CheckoutError{Err: ErrUncommittedChanges}, ferrors.CategoryConflict},
		{"unknown ref", &CheckoutError{Err: ErrRefNotFound}, ferrors.CategoryNotFound},
		{"clone auth", &CloneError{Err: &AuthError{Op: "clone", Err: errors.New("denied")}}, ferrors.CategoryAuth},
		{"fetch timeout", &FetchError{Err: &NetworkTimeoutError{Op: "fetch", Err: errors.New("slow")}}, ferrors.CategoryNetwork},
		{"push rejected", &PushError{Err: errors.New("non-fast-forward update: refs/heads/master")}, ferrors.CategoryConflict},
		{"push plain", &PushError{Err: errors.New("boom")}, ferrors.CategoryGit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ferrors.GetCategory(tc.err))
		})
	}
}
