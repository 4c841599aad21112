package git

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"git.home.luguber.info/inful/docsync/internal/auth"
	"git.home.luguber.info/inful/docsync/internal/logfields"
)

// Adaptive delay multipliers keyed by transient error type.
const (
	multRateLimit      = 3.0
	multNetworkTimeout = 1.0
)

// withRetry runs fn under the repository retry policy. Permanent failures
// (auth, missing repository, unsupported protocol, cancellation) stop immediately.
func (r *Repository) withRetry(ctx context.Context, op string, fn func() error) error {
	return r.opts.policy.Do(ctx,
		func(attempt int) error {
			if attempt > 0 {
				slog.Warn("Retrying git operation", logfields.Operation(op), logfields.URL(r.url), logfields.Attempt(attempt))
			}
			return fn()
		},
		classifyRetry,
		func(_ int, delay time.Duration, err error) {
			r.opts.recorder.IncRetry(op)
			slog.Debug("Transient git failure", logfields.Operation(op), slog.Duration("delay", delay), logfields.Error(err))
		},
	)
}

func classifyRetry(err error) (bool, float64) {
	if isPermanentGitError(err) {
		return false, 0
	}
	switch classifyTransientType(err) {
	case transientTypeRateLimit:
		return true, multRateLimit
	case transientTypeNetworkTimeout:
		return true, multNetworkTimeout
	}
	return true, 1
}

func isPermanentGitError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch {
	case errors.As(err, new(*AuthError)),
		errors.As(err, new(*NotFoundError)),
		errors.As(err, new(*UnsupportedProtocolError)),
		errors.As(err, new(*auth.Error)),
		errors.Is(err, ErrPathNotEmpty):
		return true
	case errors.As(err, new(*RateLimitError)), errors.As(err, new(*NetworkTimeoutError)):
		return false
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "auth") || strings.Contains(msg, "permission") || strings.Contains(msg, "denied") {
		return true
	}
	if strings.Contains(msg, "not found") || strings.Contains(msg, "no such remote") || strings.Contains(msg, "invalid reference") {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return !nerr.Timeout()
	}
	return false
}

const (
	transientTypeRateLimit      = "rate_limit"
	transientTypeNetworkTimeout = "network_timeout"
)

// classifyTransientType returns a short key for known transient typed errors; empty if unknown.
func classifyTransientType(err error) string {
	switch {
	case errors.As(err, new(*RateLimitError)):
		return transientTypeRateLimit
	case errors.As(err, new(*NetworkTimeoutError)):
		return transientTypeNetworkTimeout
	}
	return ""
}
