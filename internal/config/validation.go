package config

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
)

// ValidateConfig checks a defaulted configuration and returns the first problem found
// as a validation-category error.
func ValidateConfig(cfg *Config) error {
	v := &configurationValidator{config: cfg}
	return v.validate()
}

type configurationValidator struct {
	config *Config
}

func (cv *configurationValidator) validate() error {
	for _, check := range []func() error{
		cv.validateSource,
		cv.validatePublish,
		cv.validateRetry,
		cv.validateWatch,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (cv *configurationValidator) validateSource() error {
	s := cv.config.Source
	if s.Path == "" || s.Path == "." {
		return invalid("source.path", "must name a directory")
	}
	return validateAuth("source.auth", s.Auth)
}

func (cv *configurationValidator) validatePublish() error {
	p := cv.config.Publish
	if !p.Enabled {
		return nil
	}
	if p.Path == "" {
		return invalid("publish.path", "is required when publish is enabled")
	}
	return validateAuth("publish.auth", p.Auth)
}

func (cv *configurationValidator) validateRetry() error {
	r := cv.config.Retry
	if NormalizeRetryBackoff(string(r.Backoff)) == "" {
		return invalid("retry.backoff", fmt.Sprintf("unsupported mode %q (fixed, linear, exponential)", r.Backoff))
	}
	for field, raw := range map[string]string{"retry.initial_delay": r.InitialDelay, "retry.max_delay": r.MaxDelay} {
		if d, err := time.ParseDuration(raw); err != nil || d <= 0 {
			return invalid(field, fmt.Sprintf("invalid duration %q", raw))
		}
	}
	return nil
}

func (cv *configurationValidator) validateWatch() error {
	raw := cv.config.Watch.Interval
	d, err := time.ParseDuration(raw)
	if err != nil {
		return invalid("watch.interval", fmt.Sprintf("invalid duration %q", raw))
	}
	if d < time.Second {
		return invalid("watch.interval", "must be at least 1s")
	}
	return nil
}

func validateAuth(field string, a *AuthConfig) error {
	if a == nil {
		return nil
	}
	if !a.Type.valid() {
		return invalid(field+".type", fmt.Sprintf("unsupported auth type %q", a.Type))
	}
	switch a.Type {
	case AuthTypeToken:
		if a.Token == "" {
			return invalid(field+".token", "is required for token auth")
		}
	case AuthTypeBasic:
		if a.Username == "" || a.Password == "" {
			return invalid(field, "basic auth requires username and password")
		}
	}
	return nil
}

func invalid(field, msg string) error {
	return errors.ValidationError(fmt.Sprintf("%s %s", field, msg)).
		WithContext("field", field).
		Build()
}
