package script

import "errors"

var (
	// ErrUnknownHandler is returned when a manifest names a handler the
	// catalog does not have.
	ErrUnknownHandler = errors.New("script: unknown handler")

	// ErrUnsupportedFile is returned for files without a known extension.
	ErrUnsupportedFile = errors.New("script: unsupported file type")

	// ErrClosed is returned after the Lua runtime was closed.
	ErrClosed = errors.New("script: runtime closed")
)
