package git

import (
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// switchTree rewrites the tracked files that differ between the commits from
// and to, and the matching index entries. Paths outside the diff, including
// untracked and ignored files, are left as they are. A zero from means an
// unborn branch.
func (r *Repository) switchTree(from, to plumbing.Hash) error {
	fromTree, err := r.treeAt(from)
	if err != nil {
		return err
	}
	toTree, err := r.treeAt(to)
	if err != nil {
		return err
	}
	changes, err := object.DiffTree(fromTree, toTree)
	if err != nil {
		return fmt.Errorf("diff %s..%s: %w", ref(from), ref(to), err)
	}

	idx, err := r.repo.Storer.Index()
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}

	// Deletions first so a file can be replaced by a directory of the same name.
	var writes []*object.Change
	for _, ch := range changes {
		action, aerr := ch.Action()
		if aerr != nil {
			return aerr
		}
		switch action {
		case merkletrie.Delete:
			if err := r.removeTracked(idx, ch.From.Name); err != nil {
				return err
			}
		case merkletrie.Modify:
			if ch.From.Name != ch.To.Name {
				if err := r.removeTracked(idx, ch.From.Name); err != nil {
					return err
				}
			}
			writes = append(writes, ch)
		default:
			writes = append(writes, ch)
		}
	}
	for _, ch := range writes {
		if err := r.writeTracked(idx, ch.To); err != nil {
			return err
		}
	}

	// The cached tree extension describes the old tree.
	idx.Cache = nil
	if err := r.repo.Storer.SetIndex(idx); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

func (r *Repository) treeAt(h plumbing.Hash) (*object.Tree, error) {
	if h.IsZero() {
		return nil, nil
	}
	c, err := r.repo.CommitObject(h)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", h, err)
	}
	t, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("read tree of %s: %w", h, err)
	}
	return t, nil
}

// removeTracked deletes name from disk and index, then prunes parent
// directories left empty.
func (r *Repository) removeTracked(idx *index.Index, name string) error {
	fs := r.wt.Filesystem
	if err := fs.Remove(name); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	_, _ = idx.Remove(name)
	for dir := path.Dir(name); dir != "." && dir != "/"; dir = path.Dir(dir) {
		entries, err := fs.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			break
		}
		if err := fs.Remove(dir); err != nil {
			break
		}
	}
	return nil
}

// writeTracked materializes entry on disk and records it in the index.
// Submodule entries are skipped.
func (r *Repository) writeTracked(idx *index.Index, entry object.ChangeEntry) error {
	mode := entry.TreeEntry.Mode
	if mode == filemode.Submodule {
		return nil
	}
	name := entry.Name
	blob, err := r.repo.BlobObject(entry.TreeEntry.Hash)
	if err != nil {
		return fmt.Errorf("read blob for %s: %w", name, err)
	}
	rd, err := blob.Reader()
	if err != nil {
		return fmt.Errorf("read blob for %s: %w", name, err)
	}
	defer func() { _ = rd.Close() }()

	fs := r.wt.Filesystem
	if err := fs.Remove(name); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	if dir := path.Dir(name); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory for %s: %w", name, err)
		}
	}

	if mode == filemode.Symlink {
		target, rerr := io.ReadAll(rd)
		if rerr != nil {
			return fmt.Errorf("read link %s: %w", name, rerr)
		}
		if err := fs.Symlink(string(target), name); err != nil {
			return fmt.Errorf("write link %s: %w", name, err)
		}
	} else {
		perm, merr := mode.ToOSFileMode()
		if merr != nil {
			return fmt.Errorf("mode of %s: %w", name, merr)
		}
		f, oerr := fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm.Perm())
		if oerr != nil {
			return fmt.Errorf("write %s: %w", name, oerr)
		}
		if _, err := io.Copy(f, rd); err != nil {
			_ = f.Close()
			return fmt.Errorf("write %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	modTime, size := time.Now(), uint32(0)
	if fi, err := fs.Lstat(name); err == nil {
		modTime, size = fi.ModTime(), uint32(fi.Size()) //nolint:gosec // index entries store 32-bit sizes
	}
	e, err := idx.Entry(name)
	if err != nil {
		e = idx.Add(name)
	}
	e.Hash = entry.TreeEntry.Hash
	e.Mode = mode
	e.ModifiedAt = modTime
	e.Size = size
	return nil
}
