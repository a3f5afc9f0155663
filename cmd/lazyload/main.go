package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/lazyload/internal/cliconfig"
)

const helpDescription = `
Load modules into a running dependency-injection host on demand.

Highlights:
  - Fetches a module's files only when something asks for it, dependencies first.
  - Lua scripts and HCL manifests define modules; templates render through outlets.
  - Serves files from a local directory or an HTTP base URL.
  - Configure via file, env (LAZYLOAD_*), or flags.
`

var exampleUsage = strings.TrimSpace(`
  lazyload load charts --base-dir ./static
  lazyload render dashboard --set user=ada --base-url https://cdn.example.com/app/
  lazyload watch --config ./lazyload.toml
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "lazyload",
		Short:         "Load modules into a dependency-injection host on demand",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfig(cmd, &cfg, cfgPath)
			if err != nil {
				return err
			}
			cfgPath = path
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.lazyload/config.toml)")
	flags.StringVar(&cfg.BaseDir, "base-dir", cfg.BaseDir, "directory module files are read from")
	flags.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "base URL module files are fetched from")
	flags.StringVar(&cfg.AuthToken, "auth-token", cfg.AuthToken, "bearer token sent with HTTP fetches")
	flags.DurationVar(&cfg.FetchTimeout, "timeout", cfg.FetchTimeout, "per-module fetch timeout")
	flags.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "parallel file fetches per load (0 for unbounded)")
	flags.StringSliceVar(&cfg.Bootstrap, "bootstrap", cfg.Bootstrap, "modules already bootstrapped in the host")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flags.BoolVar(&cfg.Pretty, "pretty", cfg.Pretty, "human readable console logs")

	root.AddCommand(
		newLoadCmd(&cfg),
		newRenderCmd(&cfg),
		newWatchCmd(&cfg, &cfgPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "lazyload: %v\n", err)
		os.Exit(1)
	}
}

// resolveConfig applies file, then env, under explicitly set flags, and
// validates. It returns the config file actually read, if any.
func resolveConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) (string, error) {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	used := ""
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return "", fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return "", err
		}
		used = cfgFile
	} else if cfgPath != "" {
		return "", fmt.Errorf("config file %s not found", cfgPath)
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return "", err
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	return used, nil
}
