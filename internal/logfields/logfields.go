package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRepo       = "repository"
	KeyPath       = "path"
	KeyURL        = "url"
	KeyName       = "name"
	KeyRemote     = "remote"
	KeyBranch     = "branch"
	KeyUpstream   = "upstream"
	KeyRef        = "ref"
	KeyCommit     = "commit"
	KeyFrom       = "from"
	KeyTo         = "to"
	KeyCount      = "count"
	KeyAhead      = "ahead"
	KeyBehind     = "behind"
	KeyOperation  = "operation"
	KeyAttempt    = "attempt"
	KeyJobID      = "job_id"
	KeyRunID      = "run_id"
	KeyDurationMS = "duration_ms"
	KeyInterval   = "interval"
	KeySubject    = "subject"
	KeyVersion    = "version"
	KeyTrigger    = "trigger"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Repository(r string) slog.Attr   { return slog.String(KeyRepo, r) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Name(n string) slog.Attr         { return slog.String(KeyName, n) }
func Remote(r string) slog.Attr       { return slog.String(KeyRemote, r) }
func Branch(b string) slog.Attr       { return slog.String(KeyBranch, b) }
func Upstream(u string) slog.Attr     { return slog.String(KeyUpstream, u) }
func Ref(r string) slog.Attr          { return slog.String(KeyRef, r) }
func From(h string) slog.Attr         { return slog.String(KeyFrom, short(h)) }
func To(h string) slog.Attr           { return slog.String(KeyTo, short(h)) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Ahead(n int) slog.Attr           { return slog.Int(KeyAhead, n) }
func Behind(n int) slog.Attr          { return slog.Int(KeyBehind, n) }
func Operation(op string) slog.Attr   { return slog.String(KeyOperation, op) }
func Attempt(n int) slog.Attr         { return slog.Int(KeyAttempt, n) }
func JobID(id string) slog.Attr       { return slog.String(KeyJobID, id) }
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Interval(d string) slog.Attr     { return slog.String(KeyInterval, d) }
func Subject(s string) slog.Attr      { return slog.String(KeySubject, s) }
func Version(v string) slog.Attr      { return slog.String(KeyVersion, v) }
func Trigger(t string) slog.Attr      { return slog.String(KeyTrigger, t) }

// Commit logs an abbreviated commit hash.
func Commit(h string) slog.Attr { return slog.String(KeyCommit, short(h)) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

func short(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
