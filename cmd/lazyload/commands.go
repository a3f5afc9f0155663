package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bft-labs/lazyload/internal/cliconfig"
	"github.com/bft-labs/lazyload/pkg/host"
	"github.com/bft-labs/lazyload/pkg/lazyload"
	"github.com/bft-labs/lazyload/pkg/log"
	"github.com/bft-labs/lazyload/plugins/configwatcher"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newLoadCmd(cfg *cliconfig.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "load <module>...",
		Short: "Load modules and their dependencies, then list registered modules",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext()
			defer cancel()

			results := make([]<-chan lazyload.Result, len(args))
			for i, name := range args {
				results[i] = a.loader.LoadAsync(ctx, lazyload.NameRef(name))
			}
			var errs []error
			for i, ch := range results {
				res := <-ch
				if res.Err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", args[i], res.Err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "loaded %s\n", args[i])
			}
			if err := errors.Join(errs...); err != nil {
				return err
			}

			for _, name := range a.loader.Modules() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newRenderCmd(cfg *cliconfig.Config) *cobra.Command {
	var vars map[string]string
	cmd := &cobra.Command{
		Use:   "render <module>",
		Short: "Load a module and print its rendered template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			name := args[0]
			if mc, ok := a.loader.ModuleConfig(name); !ok || mc.Template == "" {
				return fmt.Errorf("module %s has no configured template", name)
			}

			ctx, cancel := signalContext()
			defer cancel()
			ctx, cancelWait := context.WithTimeout(ctx, 2*cfg.FetchTimeout)
			defer cancelWait()

			scope := a.fw.RootScope()
			for k, v := range vars {
				if err := scope.Set(k, v); err != nil {
					return err
				}
			}
			if err := scope.Set("view", name); err != nil {
				return err
			}

			done := make(chan error, 1)
			scope.On(lazyload.ContentLoadedEvent, func(...any) {
				select {
				case done <- nil:
				default:
				}
			})
			scope.On(lazyload.LoadErrorEvent, func(args ...any) {
				err, _ := args[len(args)-1].(error)
				if err == nil {
					err = fmt.Errorf("load %s failed", name)
				}
				select {
				case done <- err:
				default:
				}
			})

			element := host.NewElement()
			outlet, err := lazyload.NewOutlet(ctx, a.loader, scope, element, "view",
				lazyload.WithCompiler(host.TemplateCompiler{}))
			if err != nil {
				return err
			}
			defer outlet.Close()

			if err := a.settle(); err != nil {
				return err
			}
			select {
			case err := <-done:
				if err != nil {
					return err
				}
			case <-ctx.Done():
				return fmt.Errorf("render %s: %w", name, ctx.Err())
			}
			if err := a.settle(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), element.Content())
			return nil
		},
	}
	cmd.Flags().StringToStringVar(&vars, "set", nil, "scope variables for the template (key=value)")
	return cmd
}

func newWatchCmd(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [module]...",
		Short: "Keep module configuration in sync with the config file until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if *cfgPath == "" {
				return fmt.Errorf("watch needs a config file")
			}
			a, err := newApp(*cfg, configwatcher.WithConfigWatcher(configwatcher.DefaultConfig(*cfgPath)))
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext()
			defer cancel()

			if err := a.loader.Start(ctx); err != nil {
				return fmt.Errorf("start loader: %w", err)
			}
			for _, name := range args {
				if _, err := a.loader.Load(ctx, name); err != nil {
					a.logger.Error("initial load failed", log.Module(name), log.Err(err))
				}
			}

			<-ctx.Done()
			a.logger.Info("received signal, stopping...",
				log.Strings("configured", a.loader.ConfiguredModules()),
				log.Strings("registered", a.loader.Modules()))

			if err := a.loader.Stop(context.Background()); err != nil {
				return fmt.Errorf("stop loader: %w", err)
			}
			return nil
		},
	}
}

