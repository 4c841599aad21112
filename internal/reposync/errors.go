package reposync

import "git.home.luguber.info/inful/docsync/internal/foundation/errors"

// ErrPublishDisabled is returned when a push is requested without a publish working copy.
var ErrPublishDisabled = errors.ValidationError("publish is not enabled (set publish.enabled and publish.path)").Build()
