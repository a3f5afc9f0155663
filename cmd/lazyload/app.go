package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/bft-labs/lazyload/internal/cliconfig"
	"github.com/bft-labs/lazyload/internal/ports"
	"github.com/bft-labs/lazyload/pkg/host"
	"github.com/bft-labs/lazyload/pkg/lazyload"
	"github.com/bft-labs/lazyload/pkg/log"
	"github.com/bft-labs/lazyload/pkg/script"
	"github.com/bft-labs/lazyload/pkg/source"
)

// app wires a host framework, the script loader and the lazy loader.
type app struct {
	logger  log.Logger
	fw      *host.Framework
	scripts *script.Loader
	loader  *lazyload.Loader
}

func newApp(cfg cliconfig.Config, opts ...lazyload.Option) (*app, error) {
	logger := log.NewZerologAdapterWithLogger(cliconfig.Logger(os.Stderr, cfg.LogLevel, cfg.Pretty))

	masked := cfg
	if masked.AuthToken != "" {
		masked.AuthToken = "*****"
	}
	logger.Debug("configuration", log.Any("config", masked))

	src, err := newSource(cfg, logger)
	if err != nil {
		return nil, err
	}

	fw := host.NewFramework()
	if err := fw.Bootstrap(); err != nil {
		return nil, fmt.Errorf("bootstrap host: %w", err)
	}

	scripts := script.NewLoader(fw, src,
		script.WithLogger(logger),
		script.WithCatalog(builtinCatalog(logger)),
		script.WithConcurrency(cfg.Concurrency))

	loader, err := lazyload.New(fw, lazyload.Config{
		AsyncLoader:  scripts,
		Modules:      cfg.Modules,
		Bootstrap:    cfg.Bootstrap,
		FetchTimeout: cfg.FetchTimeout,
	}, append([]lazyload.Option{
		lazyload.WithLogger(logger),
		lazyload.WithTemplateSource(src),
	}, opts...)...)
	if err != nil {
		scripts.Close()
		return nil, fmt.Errorf("create loader: %w", err)
	}

	return &app{logger: logger, fw: fw, scripts: scripts, loader: loader}, nil
}

func newSource(cfg cliconfig.Config, logger log.Logger) (ports.Source, error) {
	if cfg.BaseURL != "" {
		opts := []source.HTTPOption{
			source.WithRetry(3, source.DefaultBackoffInitial, source.DefaultBackoffMax),
		}
		if cfg.AuthToken != "" {
			opts = append(opts, source.WithAuthToken(cfg.AuthToken))
		}
		return source.NewHTTP(cfg.BaseURL, &http.Client{Timeout: cfg.FetchTimeout}, logger, opts...)
	}
	return source.NewDir(os.DirFS(cfg.BaseDir)), nil
}

// builtinCatalog holds the handlers manifests can use from the CLI.
func builtinCatalog(logger log.Logger) *script.Catalog {
	c := script.NewCatalog()
	c.Register("log", func(args []any) (any, error) {
		logger.Info("manifest log", log.Any("args", args))
		return nil, nil
	})
	c.Register("identity", func(args []any) (any, error) {
		if len(args) == 0 {
			return nil, nil
		}
		return args[0], nil
	})
	c.Register("join", func(args []any) (any, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = fmt.Sprint(a)
		}
		return strings.Join(parts, " "), nil
	})
	return c
}

func (a *app) Close() {
	if err := a.scripts.Close(); err != nil {
		a.logger.Warn("script runtime close failed", log.Err(err))
	}
}

// settle digests the host until no other digest is running.
func (a *app) settle() error {
	for {
		err := a.fw.Digest()
		if !errors.Is(err, host.ErrDigestInProgress) {
			return err
		}
		time.Sleep(5 * time.Millisecond)
	}
}
