package lazyload

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bft-labs/lazyload/internal/ports"
)

// bridge calls the configured AsyncLoader with a per-call timeout.
type bridge struct {
	loader  AsyncLoader
	timeout time.Duration
	logger  Logger
}

func (b *bridge) fetch(ctx context.Context, module string, files []string) error {
	if len(files) == 0 {
		return nil
	}
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := b.loader.Load(ctx, files); err != nil {
		return fmt.Errorf("%w: module %s [%s]: %w", ErrFetchFailed, module, strings.Join(files, ", "), err)
	}
	b.logger.Debug("module files fetched",
		ports.Module(module),
		ports.Strings("files", files),
		ports.Duration("elapsed", time.Since(start)))
	return nil
}

// CallbackLoader adapts a loader that reports completion through a callback,
// such as a script-tag injector. done must be called once all files are
// available; a loader that never calls it is bounded by the context.
type CallbackLoader func(files []string, done func())

// Load implements AsyncLoader.
func (f CallbackLoader) Load(ctx context.Context, files []string) error {
	finished := make(chan struct{})
	var once sync.Once
	f(files, func() { once.Do(func() { close(finished) }) })

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
