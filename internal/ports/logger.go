package ports

import "github.com/bft-labs/lazyload/pkg/log"

// Logger is the structured logging port.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

// Field constructors re-exported for internal packages.
var (
	String   = log.String
	Strings  = log.Strings
	Module   = log.Module
	Int      = log.Int
	Bool     = log.Bool
	Duration = log.Duration
	Err      = log.Err
	Any      = log.Any
)
