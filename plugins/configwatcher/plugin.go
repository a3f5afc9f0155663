// Package configwatcher watches a TOML file of module configurations and
// registers every entry with the loader whenever the file changes.
//
// The file uses the same layout as the CLI configuration:
//
//	[[modules]]
//	name  = "charts"
//	files = ["charts.lua"]
package configwatcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/lazyload/pkg/lazyload"
	"github.com/bft-labs/lazyload/pkg/log"
)

// Plugin implements module config watching.
type Plugin struct {
	mu sync.Mutex

	path          string
	debounceDelay time.Duration

	registry lazyload.ConfigRegistry
	logger   lazyload.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
	reloads  int
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the TOML file holding [[modules]] entries.
	Path string

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config watching path with default settings.
func DefaultConfig(path string) Config {
	return Config{
		Path:          path,
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize loads the file once and starts watching it.
func (p *Plugin) Initialize(ctx context.Context, cfg lazyload.PluginConfig) error {
	p.mu.Lock()
	p.registry = cfg.Registry
	p.logger = cfg.Logger
	p.mu.Unlock()
	if p.logger == nil {
		p.logger = log.NewNoopLogger()
	}

	if p.path == "" {
		p.logger.Warn("config watcher disabled: no path configured")
		return nil
	}
	if p.registry == nil {
		return fmt.Errorf("%w: config watcher needs a registry", lazyload.ErrInvalidConfig)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	// Watch the directory; editors often replace the file instead of writing it.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("config watcher: watch %s: %w", filepath.Dir(p.path), err)
	}

	p.reload()

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	p.logger.Info("config watcher plugin initialized", log.String("path", p.path))
	return nil
}

// Shutdown stops the config watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

// Reloads returns how many times the file was applied.
func (p *Plugin) Reloads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloads
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.reload()
	})
}

type modulesFile struct {
	Modules []lazyload.ModuleConfig `toml:"modules"`
}

// reload applies every entry of the file. A broken file leaves the registry
// as it was.
func (p *Plugin) reload() {
	data, err := os.ReadFile(p.path)
	if err != nil {
		p.logger.Warn("config watcher: read failed", log.String("path", p.path), log.Err(err))
		return
	}
	var f modulesFile
	if err := toml.Unmarshal(data, &f); err != nil {
		p.logger.Warn("config watcher: parse failed", log.String("path", p.path), log.Err(err))
		return
	}
	for i, cfg := range f.Modules {
		if err := cfg.Validate(); err != nil {
			p.logger.Warn("config watcher: parse failed",
				log.String("path", p.path),
				log.Err(fmt.Errorf("modules[%d]: %w", i, err)))
			return
		}
	}

	names := make([]string, 0, len(f.Modules))
	for _, cfg := range f.Modules {
		if _, err := p.registry.SetModuleConfig(cfg); err != nil {
			p.logger.Warn("config watcher: module rejected", log.Module(cfg.Name), log.Err(err))
			continue
		}
		names = append(names, cfg.Name)
	}

	p.mu.Lock()
	p.reloads++
	p.mu.Unlock()
	p.logger.Info("module configuration reloaded",
		log.String("path", p.path),
		log.Strings("modules", names))
}

// Ensure Plugin implements lazyload.Plugin.
var _ lazyload.Plugin = (*Plugin)(nil)
