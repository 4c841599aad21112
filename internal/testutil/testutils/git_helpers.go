package helpers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// DefaultBranch is the branch go-git initializes repositories with.
const DefaultBranch = "master"

// Remote is a bare repository plus a seed working copy that publishes to it.
// Tests use Seed to simulate other contributors pushing upstream.
type Remote struct {
	t        *testing.T
	BarePath string
	SeedPath string
	Seed     *git.Repository
}

// NewRemote creates a bare remote seeded with a single commit adding README.md.
func NewRemote(t *testing.T) *Remote {
	t.Helper()
	tmp := t.TempDir()
	r := &Remote{t: t, BarePath: filepath.Join(tmp, "remote.git"), SeedPath: filepath.Join(tmp, "seed")}

	if _, err := git.PlainInit(r.BarePath, true); err != nil {
		t.Fatalf("init bare: %v", err)
	}
	seed, err := git.PlainInit(r.SeedPath, false)
	if err != nil {
		t.Fatalf("init seed: %v", err)
	}
	if _, err := seed.CreateRemote(&ggitcfg.RemoteConfig{Name: "origin", URLs: []string{r.BarePath}}); err != nil {
		t.Fatalf("create remote: %v", err)
	}
	r.Seed = seed
	r.CommitAndPush("README.md", "# docs\n", "initial")
	return r
}

// CommitAndPush commits filename with content in the seed and pushes it.
func (r *Remote) CommitAndPush(filename, content, msg string) plumbing.Hash {
	r.t.Helper()
	h := CommitFile(r.t, r.Seed, r.SeedPath, filename, content, msg)
	if err := r.Seed.Push(&git.PushOptions{RemoteName: "origin"}); err != nil {
		r.t.Fatalf("push %s: %v", msg, err)
	}
	return h
}

// Tag creates a tag in the seed at hash and pushes it. annotated adds a tag object.
func (r *Remote) Tag(name string, hash plumbing.Hash, annotated bool) {
	r.t.Helper()
	var opts *git.CreateTagOptions
	if annotated {
		opts = &git.CreateTagOptions{Tagger: Signature(), Message: name}
	}
	if _, err := r.Seed.CreateTag(name, hash, opts); err != nil {
		r.t.Fatalf("create tag %s: %v", name, err)
	}
	spec := ggitcfg.RefSpec("refs/tags/" + name + ":refs/tags/" + name)
	if err := r.Seed.Push(&git.PushOptions{RemoteName: "origin", RefSpecs: []ggitcfg.RefSpec{spec}}); err != nil {
		r.t.Fatalf("push tag %s: %v", name, err)
	}
}

// PushBranch creates branch at hash in the seed and pushes it.
func (r *Remote) PushBranch(branch string, hash plumbing.Hash) {
	r.t.Helper()
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(branch), hash)
	if err := r.Seed.Storer.SetReference(ref); err != nil {
		r.t.Fatalf("create branch %s: %v", branch, err)
	}
	spec := ggitcfg.RefSpec("refs/heads/" + branch + ":refs/heads/" + branch)
	if err := r.Seed.Push(&git.PushOptions{RemoteName: "origin", RefSpecs: []ggitcfg.RefSpec{spec}}); err != nil {
		r.t.Fatalf("push branch %s: %v", branch, err)
	}
}

// BranchHead returns the hash of branch in the bare remote.
func (r *Remote) BranchHead(branch string) plumbing.Hash {
	r.t.Helper()
	bare, err := git.PlainOpen(r.BarePath)
	if err != nil {
		r.t.Fatalf("open bare: %v", err)
	}
	ref, err := bare.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		r.t.Fatalf("resolve %s in bare: %v", branch, err)
	}
	return ref.Hash()
}

// CommitObject loads a commit from the bare remote.
func (r *Remote) CommitObject(h plumbing.Hash) *object.Commit {
	r.t.Helper()
	bare, err := git.PlainOpen(r.BarePath)
	if err != nil {
		r.t.Fatalf("open bare: %v", err)
	}
	c, err := bare.CommitObject(h)
	if err != nil {
		r.t.Fatalf("commit %s: %v", h, err)
	}
	return c
}

// CommitFile writes filename under repoPath, stages it and commits.
func CommitFile(t *testing.T, repo *git.Repository, repoPath, filename, content, msg string) plumbing.Hash {
	t.Helper()
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	full := filepath.Join(repoPath, filename)
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", filename, err)
	}
	if _, err := wt.Add(filename); err != nil {
		t.Fatalf("add %s: %v", filename, err)
	}
	h, err := wt.Commit(msg, &git.CommitOptions{Author: Signature()})
	if err != nil {
		t.Fatalf("commit %s: %v", msg, err)
	}
	return h
}

// Signature returns a fixed test identity stamped with the current time.
func Signature() *object.Signature {
	return &object.Signature{Name: "tester", Email: "t@example.com", When: time.Now()}
}

// OpenRepo opens the repository at path or fails the test.
func OpenRepo(t *testing.T, path string) *git.Repository {
	t.Helper()
	repo, err := git.PlainOpen(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	return repo
}

// HeadHash returns the commit HEAD of the repository at path points at.
func HeadHash(t *testing.T, path string) plumbing.Hash {
	t.Helper()
	head, err := OpenRepo(t, path).Head()
	if err != nil {
		t.Fatalf("head of %s: %v", path, err)
	}
	return head.Hash()
}
