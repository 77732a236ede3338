package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/arena-labs/scorebridge/internal/app"
	"github.com/arena-labs/scorebridge/internal/cliconfig"
)

const longHelp = `Bridge an arena scoreboard console to a browser overlay.

scorebridge listens for the console's serial-over-TCP feed, decodes its
framed messages into a live game snapshot, and serves that snapshot to the
overlay as JSON (polled via /api/state or pushed via /ws).

By default every console connection is also captured raw to data_log/ for
later replay; pass --dev (or the bare "dev" argument) to turn capture off.`

const exampleUsage = `  scorebridge
  scorebridge --dev --http-addr 127.0.0.1:8080
  scorebridge --config $HOME/.scorebridge/config.toml`

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "scorebridge [dev]",
		Short:   "Bridge an arena scoreboard console to a browser overlay",
		Long:    longHelp,
		Example: exampleUsage,
		Args:    cobra.MaximumNArgs(1),
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load config file first (default $HOME/.scorebridge/config.toml),
			// then env, then flag overrides.
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// Apply environment variables (SCOREBRIDGE_*)
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			// The original console tooling was started as "scorebridge dev";
			// keep that spelling working alongside --dev.
			if len(args) == 1 {
				if args[0] != "dev" {
					return fmt.Errorf("unknown argument %q", args[0])
				}
				cfg.DevMode = true
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			if cfg.DevMode {
				log.Info().Msg("dev mode: session bytes will not be captured to disk")
			}
			log.Info().Interface("config", cfg).Msg("configuration")

			bridge := app.New(cfg, log)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if err := bridge.Start(ctx); err != nil {
				return fmt.Errorf("start scorebridge: %w", err)
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh
			log.Info().Msg("received signal, stopping...")

			bridge.Stop()
			return nil
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.scorebridge/config.toml)")
	root.Flags().StringVar(&cfg.IngestAddr, "ingest-addr", cfg.IngestAddr, "TCP address the scoreboard console connects to")
	root.Flags().StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP address serving the overlay and state API")
	root.Flags().StringVar(&cfg.DataLogDir, "data-log-dir", cfg.DataLogDir, "directory for per-connection session capture files")
	root.Flags().StringVar(&cfg.OverlayPath, "overlay", cfg.OverlayPath, "overlay HTML file served to the browser")
	root.Flags().BoolVar(&cfg.DevMode, "dev", cfg.DevMode, "dev mode: disable session capture")
	root.Flags().IntVar(&cfg.MaxConns, "max-conns", cfg.MaxConns, "maximum concurrent ingest connections")
	root.Flags().DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "per-connection read timeout")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("scorebridge")
		os.Exit(1)
	}
}
