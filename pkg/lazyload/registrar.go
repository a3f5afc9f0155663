package lazyload

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bft-labs/lazyload/internal/domain"
	"github.com/bft-labs/lazyload/internal/ports"
)

// registrar replays queued declarations of freshly loaded modules into the
// running injector. Batches from concurrent loads are applied one at a time.
type registrar struct {
	mu         sync.Mutex
	fw         Framework
	registered *moduleSet
	logger     Logger
}

// register drains list from the most recently discovered module to the
// first, so requirements are applied before the modules that need them.
// Run blocks of the whole batch are invoked once every declaration applied.
// Declarations applied before a failure stay applied.
func (r *registrar) register(list *domain.LoadList) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	collaborators := r.fw.Collaborators()
	var (
		runBlocks []any
		applied   []string
	)
	for {
		name, ok := list.Pop()
		if !ok {
			break
		}
		if r.registered.Has(name) {
			continue
		}

		def, err := r.fw.Module(name)
		if errors.Is(err, ErrModuleNotFound) {
			r.logger.Warn("required module unknown to host, skipped", ports.Module(name))
			continue
		}
		if err != nil {
			return r.fail(name, err)
		}

		for _, d := range def.InvokeQueue() {
			if err := dispatch(collaborators, d); err != nil {
				return r.fail(name, err)
			}
		}
		runBlocks = append(runBlocks, def.RunBlocks()...)
		r.registered.Add(name)
		applied = append(applied, name)
	}

	if len(runBlocks) > 0 {
		if collaborators.Injector == nil {
			return r.fail(applied[len(applied)-1], fmt.Errorf("%w %s", ErrUnsupportedProvider, domain.Injector))
		}
		for i, fn := range runBlocks {
			if _, err := collaborators.Injector.Invoke(fn); err != nil {
				err = fmt.Errorf("run block %d: %w", i, err)
				r.logger.Error("run block failed", ports.Err(err))
				return err
			}
		}
	}

	if len(applied) > 0 {
		r.logger.Debug("modules registered",
			ports.Strings("modules", applied),
			ports.Int("run_blocks", len(runBlocks)))
	}
	return nil
}

func dispatch(c ports.Collaborators, d Declaration) error {
	target, err := c.For(d.Provider)
	if err != nil {
		return err
	}
	if err := target.Apply(d.Method, d.Args...); err != nil {
		return fmt.Errorf("%s.%s: %w", d.Provider, d.Method, err)
	}
	return nil
}

// fail appends the module name to err, logs it and returns it.
func (r *registrar) fail(module string, err error) error {
	err = fmt.Errorf("%w from module %s", err, module)
	r.logger.Error("module registration failed", ports.Module(module), ports.Err(err))
	return err
}
