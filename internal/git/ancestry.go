package git

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// reachable walks the history of tip breadth-first and returns every commit
// hash it can load. Parents missing from the object store (shallow boundary)
// end the walk along that line.
func (r *Repository) reachable(ctx context.Context, tip plumbing.Hash) (map[plumbing.Hash]struct{}, error) {
	seen := make(map[plumbing.Hash]struct{})
	if tip.IsZero() {
		return seen, nil
	}
	queue := []plumbing.Hash{tip}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h := queue[0]
		queue = queue[1:]
		if _, ok := seen[h]; ok {
			continue
		}
		c, err := r.repo.CommitObject(h)
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		seen[h] = struct{}{}
		queue = append(queue, c.ParentHashes...)
	}
	return seen, nil
}

// commitsBetween returns the commits reachable from tip but not from base
// (git log base..tip), newest first.
func (r *Repository) commitsBetween(ctx context.Context, base, tip plumbing.Hash) ([]*object.Commit, error) {
	if tip.IsZero() || base == tip {
		return nil, nil
	}
	excluded, err := r.reachable(ctx, base)
	if err != nil {
		return nil, err
	}
	var out []*object.Commit
	visited := make(map[plumbing.Hash]struct{})
	queue := []plumbing.Hash{tip}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h := queue[0]
		queue = queue[1:]
		if _, ok := excluded[h]; ok {
			continue
		}
		if _, ok := visited[h]; ok {
			continue
		}
		visited[h] = struct{}{}
		c, err := r.repo.CommitObject(h)
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		queue = append(queue, c.ParentHashes...)
	}
	return dateOrder(out), nil
}

// dateOrder sorts commits newest first while never listing a parent before
// its child (git log --date-order). Commit times only have second precision.
func dateOrder(cs []*object.Commit) []*object.Commit {
	children := make(map[plumbing.Hash]int, len(cs))
	inSet := make(map[plumbing.Hash]*object.Commit, len(cs))
	for _, c := range cs {
		inSet[c.Hash] = c
	}
	for _, c := range cs {
		for _, p := range c.ParentHashes {
			if _, ok := inSet[p]; ok {
				children[p]++
			}
		}
	}
	var ready []*object.Commit
	for _, c := range cs {
		if children[c.Hash] == 0 {
			ready = append(ready, c)
		}
	}
	out := make([]*object.Commit, 0, len(cs))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			ti, tj := ready[i].Committer.When, ready[j].Committer.When
			if !ti.Equal(tj) {
				return ti.After(tj)
			}
			return ready[i].Hash.String() < ready[j].Hash.String()
		})
		c := ready[0]
		ready = ready[1:]
		out = append(out, c)
		for _, p := range c.ParentHashes {
			if pc, ok := inSet[p]; ok {
				children[p]--
				if children[p] == 0 {
					ready = append(ready, pc)
				}
			}
		}
	}
	return out
}

// divergence counts commits only in local (ahead) and only in upstream (behind).
// behind is returned in full for reporting.
func (r *Repository) divergence(ctx context.Context, local, upstream plumbing.Hash) (int, []*object.Commit, error) {
	aheadCommits, err := r.commitsBetween(ctx, upstream, local)
	if err != nil {
		return 0, nil, err
	}
	behind, err := r.commitsBetween(ctx, local, upstream)
	if err != nil {
		return 0, nil, err
	}
	return len(aheadCommits), behind, nil
}

func summarize(cs []*object.Commit) []Commit {
	out := make([]Commit, 0, len(cs))
	for _, c := range cs {
		out = append(out, Commit{
			Hash:    CommitRef(c.Hash.String()),
			Summary: summary(c.Message),
			Author:  c.Author.Name,
			When:    c.Author.When,
		})
	}
	return out
}

// summary returns the first line of a commit message.
func summary(msg string) string {
	msg = strings.TrimSpace(msg)
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		return strings.TrimSpace(msg[:i])
	}
	return msg
}
