package lazyload

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/lazyload/internal/domain"
	"github.com/bft-labs/lazyload/internal/ports"
)

// walker discovers the transitive requirements of a fetched module, fetching
// the files of every newly configured dependency and walking it in turn.
type walker struct {
	fw         Framework
	probe      prober
	registry   *registry
	registered *moduleSet
	bridge     *bridge
	logger     Logger
}

// walk pushes every requirement of name that still needs registering onto
// list. Dependencies with files are fetched and walked concurrently; walk
// returns once all of them finished, or with the first error. Tasks already
// started are cancelled and joined when the walk fails.
func (w *walker) walk(ctx context.Context, name string, list *domain.LoadList) error {
	def, err := w.fw.Module(name)
	if err != nil {
		return fmt.Errorf("walk module %s: %w", name, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	var loopErr error
	for _, req := range def.Requires() {
		dep := req.ModuleName()
		if dep == "" {
			loopErr = fmt.Errorf("%w: module %s requires an unnamed module", ErrInvalidModuleRef, name)
			break
		}
		if w.registered.Has(dep) {
			continue
		}

		var cfg ModuleConfig
		if req.Inline() {
			cfg = req.Config.Clone()
		} else {
			known, ok := w.registry.Get(dep)
			if !ok {
				// Something else may define it; the registrar skips it if not.
				list.Push(dep)
				continue
			}
			cfg = known
		}

		exists, err := w.probe.exists(dep)
		if err != nil {
			loopErr = fmt.Errorf("probe module %s required by %s: %w", dep, name, err)
			break
		}
		if exists || list.Contains(dep) {
			if req.Inline() {
				w.warnRedefined(name, cfg)
			}
			continue
		}

		stored, conflict := w.registry.Claim(cfg)
		if conflict {
			w.logger.Warn("dependency configuration redefined",
				ports.Module(name),
				ports.String("dependency", dep),
				ports.Strings("existing_files", stored.Files),
				ports.Strings("ignored_files", cfg.Files))
		}
		if !list.Push(dep) {
			continue
		}
		if !stored.HasFiles() {
			continue
		}

		g.Go(func() error {
			if err := w.bridge.fetch(gctx, dep, stored.Files); err != nil {
				return err
			}
			return w.walk(gctx, dep, list)
		})
	}
	if loopErr != nil {
		cancel()
		_ = g.Wait()
		return loopErr
	}
	return g.Wait()
}

func (w *walker) warnRedefined(requirer string, ignored ModuleConfig) {
	existing, ok := w.registry.Get(ignored.Name)
	if ok && existing.Equal(ignored) {
		return
	}
	w.logger.Warn("dependency configuration redefined",
		ports.Module(requirer),
		ports.String("dependency", ignored.Name),
		ports.Strings("existing_files", existing.Files),
		ports.Strings("ignored_files", ignored.Files))
}
