// tarsy-agent runs the autonomous agent execution runtime: the HTTP/
// WebSocket API (serve), and filesystem-local inspection of the Agent
// Registry (agents export/import) for operators working against a
// config/agents directory directly rather than through the API.
//
// Grounded on cmd/tarsy/main.go's flag/godotenv/gin.SetMode bootstrap,
// restructured as cobra subcommands per this spec's CLI surface.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/codeready-toolchain/tarsy/pkg/agentrun"
	"github.com/codeready-toolchain/tarsy/pkg/api"
	"github.com/codeready-toolchain/tarsy/pkg/cleanup"
	"github.com/codeready-toolchain/tarsy/pkg/config"
	"github.com/codeready-toolchain/tarsy/pkg/events"
	"github.com/codeready-toolchain/tarsy/pkg/jobs"
	"github.com/codeready-toolchain/tarsy/pkg/registry"
	"github.com/codeready-toolchain/tarsy/pkg/tracing"
)

func main() {
	var configDir string

	root := &cobra.Command{
		Use:   "tarsy-agent",
		Short: "Autonomous agent execution runtime",
	}
	root.PersistentFlags().StringVar(&configDir, "config-dir", envOr("CONFIG_DIR", "./deploy/config"), "path to configuration directory")

	root.AddCommand(serveCmd(&configDir), agentsCmd(&configDir))

	if err := root.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func serveCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP/WebSocket API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configDir)
		},
	}
}

func runServe(ctx context.Context, configDir string) error {
	envPath := filepath.Join(configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	}

	cfg, err := config.Initialize(ctx, configDir)
	if err != nil {
		return fmt.Errorf("initialize configuration: %w", err)
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	if envOr("GIN_MODE", "") != "" {
		gin.SetMode(os.Getenv("GIN_MODE"))
	}

	reg, err := registry.Open(cfg.Server.AgentsDir, registry.DefaultRefreshWindow)
	if err != nil {
		return fmt.Errorf("open agent registry: %w", err)
	}

	conns := events.NewConnectionManager(0)
	publisher := events.NewPublisher(conns)

	factory := agentrun.NewFactory(cfg, reg, publisher)
	jobMgr := jobs.New(agentrun.NewJobExecutor(factory, cfg.Runtime), publisher, 0, 0)
	jobMgr.Start(ctx)
	defer jobMgr.Stop()

	sweep := cleanup.NewService(cfg.Retention, reg, jobMgr)
	sweep.Start(ctx)
	defer sweep.Stop()

	server := api.NewServer(cfg, reg, jobMgr, factory, conns)

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("tarsy-agent listening", "addr", cfg.Server.ListenAddr)
	return server.Run(runCtx, cfg.Server.ListenAddr)
}

func agentsCmd(configDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Inspect the Agent Registry directly on disk",
	}
	cmd.AddCommand(agentsExportCmd(configDir), agentsImportCmd(configDir))
	return cmd
}

func agentsExportCmd(configDir *string) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <agent-id>",
		Short: "Export an agent's manifest and working directory to a zip archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Initialize(cmd.Context(), *configDir)
			if err != nil {
				return err
			}
			reg, err := registry.Open(cfg.Server.AgentsDir, registry.DefaultRefreshWindow)
			if err != nil {
				return err
			}
			if out == "" {
				out = args[0] + ".zip"
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := reg.Export(args[0], f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s\n", args[0], out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output archive path (default <agent-id>.zip)")
	return cmd
}

func agentsImportCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <archive.zip>",
		Short: "Import an agent from a zip archive produced by export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Initialize(cmd.Context(), *configDir)
			if err != nil {
				return err
			}
			reg, err := registry.Open(cfg.Server.AgentsDir, registry.DefaultRefreshWindow)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			info, err := f.Stat()
			if err != nil {
				return err
			}
			rec, err := reg.Import(f, info.Size())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported agent %s (%s)\n", rec.ID, rec.Name)
			return nil
		},
	}
}
