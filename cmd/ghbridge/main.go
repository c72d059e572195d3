package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ghbridge/internal/bootstrap"
	"ghbridge/internal/config"
	"ghbridge/internal/dispatch"
	"ghbridge/internal/domain"
	"ghbridge/internal/gateway"
)

// version is injectable via ldflags.
var version = "dev"

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "ghbridge",
		Short: "Tool-dispatch bridge to Rhino.Compute",
		Long:  "ghbridge exposes schema-described tools over MCP and forwards compute-backed calls to a Rhino.Compute server.",
		RunE:  runServe,
	}
	root.PersistentFlags().StringP("config", "c", "ghbridge.yaml", "path to config file")
	root.Flags().Bool("stdio", false, "serve JSON-RPC over stdin/stdout instead of HTTP")
	root.Flags().BoolP("version", "V", false, "print version and build metadata")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the config file",
		RunE:  runCheck,
	}
	checkCmd.Flags().Bool("fix", false, "write a default config if missing")
	root.AddCommand(checkCmd)

	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools the configured server would expose",
		RunE:  runTools,
	}
	root.AddCommand(toolsCmd)

	return root
}

func loadConfig(cmd *cobra.Command) (*domain.Config, error) {
	// .env first so its values are visible to the env overrides.
	_ = godotenv.Load()
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg domain.InfraConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
		fmt.Fprintf(cmd.OutOrStdout(), "ghbridge %s %s/%s\n", version, runtime.GOOS, runtime.GOARCH)
		return nil
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Infra)

	registry, err := bootstrap.BuildRegistry(cfg, logger)
	if err != nil {
		return err
	}
	dispatcher := dispatch.New(registry, dispatch.WithLogger(logger))
	handler := gateway.NewHandler(dispatcher, "ghbridge", version)

	if stdio, _ := cmd.Flags().GetBool("stdio"); stdio {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return gateway.NewStdioTransport(handler, os.Stdin, os.Stdout, logger).Run(ctx)
	}

	server, err := gateway.NewServer(&cfg.Server, handler, gateway.WithLogger(logger))
	if err != nil {
		return err
	}
	shutdown := make(chan struct{})
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		logger.Info("shutting down")
		close(shutdown)
	}()
	return server.Run(shutdown)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	if fix, _ := cmd.Flags().GetBool("fix"); fix {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote default config to %s\n", path)
		}
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "config ok: compute=%s definitions=%d\n",
		cfg.Compute.URL, len(cfg.Definitions))
	return nil
}

func runTools(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	registry, err := bootstrap.BuildRegistry(cfg, newLogger(cfg.Infra))
	if err != nil {
		return err
	}
	for _, def := range registry.Definitions() {
		fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", def.Name, def.Description)
	}
	return nil
}

func main() {
	ctx := context.Background()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
