// Package git binds a local working copy to its remote and keeps the two in
// sync for docsync.
//
// This package handles:
//   - Cloning (optionally clean) and binding existing working copies
//   - Fast-forward pulls with explicit divergence and dirty-tree errors
//   - Committing and pushing all working copy changes
//   - Checkout of branches, remote-tracking branches, tags and revisions
//   - Retry of transient clone/fetch failures
//   - Typed errors carrying a category for exit code mapping
package git
