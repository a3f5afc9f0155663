package host

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bft-labs/lazyload/internal/domain"
)

// Error codes carried by ModuleError.
const (
	CodeNoModule  = "nomod"
	CodeBadModule = "badmod"
)

var (
	// ErrModuleNotFound is wrapped by ModuleError with CodeNoModule.
	ErrModuleNotFound = domain.ErrModuleNotFound

	// ErrUnknownService is returned when a dependency has no provider.
	ErrUnknownService = errors.New("host: unknown service")

	// ErrCircularDependency is returned when service instantiation loops.
	ErrCircularDependency = errors.New("host: circular dependency")

	// ErrDigestInProgress is returned by a digest started from inside another.
	ErrDigestInProgress = errors.New("host: digest already in progress")

	// ErrDigestTTL is returned when watchers keep changing past the TTL.
	ErrDigestTTL = errors.New("host: digest iterations exceeded")

	// ErrBadArguments is returned when a declaration's arguments do not fit its method.
	ErrBadArguments = errors.New("host: bad declaration arguments")
)

// ModuleError reports a module lookup failure.
type ModuleError struct {
	Code   string
	Module string
	Reason string
}

func (e *ModuleError) Error() string {
	switch e.Code {
	case CodeNoModule:
		return fmt.Sprintf("[$injector:%s] No module: %s", e.Code, e.Module)
	default:
		return fmt.Sprintf("[$injector:%s] Module %q is malformed: %s", e.Code, e.Module, e.Reason)
	}
}

// Unwrap lets errors.Is(err, ErrModuleNotFound) identify unknown modules.
// Malformed modules deliberately do not unwrap to it.
func (e *ModuleError) Unwrap() error {
	if e.Code == CodeNoModule {
		return ErrModuleNotFound
	}
	return nil
}

func circularError(path []string, name string) error {
	return fmt.Errorf("%w: %s <- %s", ErrCircularDependency, name, strings.Join(reverse(path), " <- "))
}

func reverse(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[len(in)-1-i] = s
	}
	return out
}
