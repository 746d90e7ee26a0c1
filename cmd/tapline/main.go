// Package main is the entry point for the tapline CLI.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tapline-dev/tapline/internal/agent"
	"github.com/tapline-dev/tapline/internal/bridge"
	"github.com/tapline-dev/tapline/internal/config"
	"github.com/tapline-dev/tapline/internal/core"
	"github.com/tapline-dev/tapline/internal/gateway"
	"github.com/tapline-dev/tapline/internal/heartbeat"
	"github.com/tapline-dev/tapline/internal/intercept"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tapline",
		Short:         "A message-interception layer between your terminal and an AI agent",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(versionCmd(), startCmd(), configCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and compiled interceptor modules",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("tapline %s (commit: %s, built: %s)\n", version, commit, date)
			mods := core.GetModules()
			if len(mods) == 0 {
				fmt.Println("\nNo compiled interceptor modules.")
				return
			}
			fmt.Println("\nCompiled interceptor modules:")
			for _, mod := range mods {
				fmt.Printf("  %s\n", mod.ID)
			}
		},
	}
}

func startCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Connect the terminal to the agent through the interceptor pipelines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			if cfgPath == "" {
				resolved, err := resolveConfigPath()
				if err != nil {
					return err
				}
				cfgPath = resolved
			}

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			verbose, _ := cmd.Flags().GetBool("verbose")
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			}))

			return run(cmd.Context(), cfg, logger)
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	cmd.Flags().BoolP("verbose", "v", false, "Enable debug diagnostics")
	return cmd
}

// run wires one session: modules → registry → gateway/heartbeat/bridge.
func run(parent context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionID, err := newSessionID()
	if err != nil {
		return err
	}
	logger.Info("session starting", "session_id", sessionID)

	appCtx := core.NewAppContext(logger, defaultDataDir()).
		WithModuleConfigs(cfg.Interceptors)
	app := core.NewApp(appCtx)
	if err := app.LoadModules(config.Resolve(cfg)); err != nil {
		return err
	}
	defer app.Stop()

	registry := intercept.NewRegistry(sessionID, logger)
	app.Install(registry)

	gw := gateway.New(cfg.Gateway, registry, logger)
	registry.Observe(gw.Metrics())
	if err := gw.Start(); err != nil {
		return err
	}
	defer func() { _ = gw.Stop(context.Background()) }()

	client, err := agent.Dial(ctx, cfg.Agent.URL, cfg.Agent.Token, sessionID, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	b := bridge.New(registry, client, bridge.NewConsole(os.Stdout), cfg.Session.Model, logger)

	hb := heartbeat.New(cfg.Heartbeat.Schedule, cfg.Heartbeat.Message, func(ctx context.Context, msg string) error {
		return b.SubmitInput(ctx, msg, false)
	}, logger)
	if err := hb.Start(); err != nil {
		return err
	}
	defer hb.Stop()

	go b.PumpEvents(ctx)

	if err := b.ReadLines(ctx, os.Stdin); err != nil {
		return err
	}
	logger.Info("session ended", "session_id", sessionID)
	return nil
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}

			ids := config.Resolve(cfg)
			fmt.Printf("Configuration OK (%d interceptor modules)\n", len(ids))
			for _, id := range ids {
				fmt.Printf("  %s\n", id)
			}
			return nil
		},
	})
	return cmd
}

// newSessionID generates a 16-byte hex session identifier.
func newSessionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// resolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/tapline/tapline.yaml → ./tapline.yaml
func resolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "tapline", "tapline.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "tapline", "tapline.yaml"))
	}

	candidates = append(candidates, "tapline.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}

func defaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok {
		return filepath.Join(dir, "tapline")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "tapline")
}
