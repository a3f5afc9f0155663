package domain

import "errors"

// Domain errors represent error conditions in the lazyload domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrNoAsyncLoader is returned when the loader is configured without a fetch mechanism.
	ErrNoAsyncLoader = errors.New("lazyload: no async loader configured")

	// ErrModuleNotConfigured is returned when a bare module name is loaded but
	// neither the host nor the registry knows it.
	ErrModuleNotConfigured = errors.New("lazyload: module is not configured")

	// ErrInvalidModuleRef is returned when a module reference carries no name.
	ErrInvalidModuleRef = errors.New("lazyload: invalid module reference")

	// ErrModuleNotFound is the host's "unknown module" signal. Hosts wrap it so
	// the existence prober can tell absence from other faults.
	ErrModuleNotFound = errors.New("lazyload: module not found")

	// ErrUnsupportedProvider is returned when a queued declaration targets a
	// provider key outside the fixed collaborator set.
	ErrUnsupportedProvider = errors.New("lazyload: unsupported provider")

	// ErrFetchFailed is returned when the async loader fails or times out.
	ErrFetchFailed = errors.New("lazyload: fetch failed")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("lazyload: invalid configuration")
)

// Lifecycle errors for loaders that run plugins.
var (
	// ErrAlreadyStarted is returned when Start is called on a running loader.
	ErrAlreadyStarted = errors.New("lazyload: already started")

	// ErrNotStarted is returned when Stop is called on a loader that is not running.
	ErrNotStarted = errors.New("lazyload: not started")
)
