package goalarm

import "errors"

var (
	// ErrInvalidArgument is returned for a nil callback or an out-of-range
	// delay. Nothing is scheduled or removed.
	ErrInvalidArgument = errors.New("goalarm: invalid argument")

	// ErrNotFound is returned by Cancel when no pending or running alarm
	// matched the callback/argument pair.
	ErrNotFound = errors.New("goalarm: no matching alarm")

	// ErrInProgress is returned by Cancel when a matching alarm is being
	// executed by the calling thread itself, i.e. a callback cancelling its
	// own in-flight invocation. The entry is cleaned up normally once the
	// callback returns; waiting for it here would deadlock.
	ErrInProgress = errors.New("goalarm: alarm executing on calling thread")

	// ErrArmFailed wraps a timerfd_settime failure. The alarm stays
	// scheduled; arming is retried on the next Set or dispatch pass.
	ErrArmFailed = errors.New("goalarm: timer arm failed")

	// ErrClosed is returned by Set after Close/Cleanup.
	ErrClosed = errors.New("goalarm: service closed")

	// ErrNotInitialized is returned by the package-level Set/Cancel before
	// Init has been called.
	ErrNotInitialized = errors.New("goalarm: Init has not been called")
)
