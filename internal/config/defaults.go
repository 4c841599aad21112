package config

const (
	defaultRemote         = "origin"
	defaultSourcePath     = "source"
	defaultPublishMessage = "Update documentation"
	defaultAuthorName     = "docsync"
	defaultAuthorEmail    = "docsync@localhost"
	defaultVersionFile    = "cmake/version.cmake"
	defaultVersionCommand = "cmake"
	defaultVersionPrefix  = "NAP"
	defaultBuildDir       = "build"
	defaultWatchInterval  = "5m"
	defaultNotifySubject  = "docsync.events"
	defaultNotifyBucket   = "docsync_state"
	defaultInitialDelay   = "1s"
	defaultMaxDelay       = "30s"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

type sourceDefaults struct{}

func (sourceDefaults) Domain() string { return "source" }

func (sourceDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Source.Path == "" {
		cfg.Source.Path = defaultSourcePath
	}
	if cfg.Source.Remote == "" {
		cfg.Source.Remote = defaultRemote
	}
	if cfg.Source.Depth < 0 {
		cfg.Source.Depth = 0
	}
	return nil
}

type publishDefaults struct{}

func (publishDefaults) Domain() string { return "publish" }

func (publishDefaults) ApplyDefaults(cfg *Config) error {
	p := &cfg.Publish
	if p.Remote == "" {
		p.Remote = defaultRemote
	}
	if p.Message == "" {
		p.Message = defaultPublishMessage
	}
	if p.AuthorName == "" {
		p.AuthorName = defaultAuthorName
	}
	if p.AuthorEmail == "" {
		p.AuthorEmail = defaultAuthorEmail
	}
	return nil
}

type versionDefaults struct{}

func (versionDefaults) Domain() string { return "version" }

func (versionDefaults) ApplyDefaults(cfg *Config) error {
	v := &cfg.Version
	if v.File == "" {
		v.File = defaultVersionFile
	}
	if v.Command == "" {
		v.Command = defaultVersionCommand
	}
	if v.Prefix == "" {
		v.Prefix = defaultVersionPrefix
	}
	if v.BuildDir == "" {
		v.BuildDir = defaultBuildDir
	}
	return nil
}

type retryDefaults struct{}

func (retryDefaults) Domain() string { return "retry" }

func (retryDefaults) ApplyDefaults(cfg *Config) error {
	r := &cfg.Retry
	if r.MaxRetries < 0 {
		r.MaxRetries = 0
	}
	if r.Backoff == "" {
		r.Backoff = RetryBackoffLinear
	} else if m := NormalizeRetryBackoff(string(r.Backoff)); m != "" {
		r.Backoff = m
	}
	if r.InitialDelay == "" {
		r.InitialDelay = defaultInitialDelay
	}
	if r.MaxDelay == "" {
		r.MaxDelay = defaultMaxDelay
	}
	return nil
}

type runtimeDefaults struct{}

func (runtimeDefaults) Domain() string { return "runtime" }

func (runtimeDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Watch.Interval == "" {
		cfg.Watch.Interval = defaultWatchInterval
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = defaultNotifySubject
	}
	if cfg.Notify.KVBucket == "" {
		cfg.Notify.KVBucket = defaultNotifyBucket
	}
	return nil
}

var defaultAppliers = []DefaultApplier{
	sourceDefaults{},
	publishDefaults{},
	versionDefaults{},
	retryDefaults{},
	runtimeDefaults{},
}

func applyDefaults(cfg *Config) error {
	for _, a := range defaultAppliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}
