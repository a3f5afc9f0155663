package lazyload

import "github.com/bft-labs/lazyload/internal/domain"

// Errors returned by the loader. Check them with errors.Is.
var (
	ErrNoAsyncLoader       = domain.ErrNoAsyncLoader
	ErrModuleNotConfigured = domain.ErrModuleNotConfigured
	ErrInvalidModuleRef    = domain.ErrInvalidModuleRef
	ErrModuleNotFound      = domain.ErrModuleNotFound
	ErrUnsupportedProvider = domain.ErrUnsupportedProvider
	ErrFetchFailed         = domain.ErrFetchFailed
	ErrInvalidConfig       = domain.ErrInvalidConfig
	ErrAlreadyStarted      = domain.ErrAlreadyStarted
	ErrNotStarted          = domain.ErrNotStarted
)
