// Command vapi-mcp-server runs the Vapi MCP server over stdio or SSE.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	vapimcp "github.com/ageborn-dev/vapi-mcp-server"
	"github.com/ageborn-dev/vapi-mcp-server/config"
	"github.com/spf13/pflag"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("vapi-mcp-server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return runStdio(ctx)
	}

	switch args[0] {
	case "http":
		return runHTTP(ctx, args[1:])
	case "help", "-h", "--help":
		printHelp(os.Stdout)
		return nil
	case "version", "-v", "--version":
		fmt.Printf("vapi-mcp-server %s\n", version)
		return nil
	default:
		printHelp(os.Stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// setup loads settings and builds the stderr logger at the configured level.
func setup() (vapimcp.Config, *slog.Logger, error) {
	settings, err := config.Load()
	if err != nil {
		return vapimcp.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: settings.Level()}))
	return vapimcp.Config{Settings: &settings, Logger: logger, Version: version}, logger, nil
}

func runStdio(ctx context.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	logger.Info("starting", "transport", "stdio")
	err = vapimcp.RunStdio(ctx, cfg)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runHTTP(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("http", pflag.ContinueOnError)
	addr := flags.String("addr", "127.0.0.1:8080", "Listen address for the SSE endpoint")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	handler, err := vapimcp.NewHTTPHandler(cfg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting", "transport", "sse", "addr", *addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func printHelp(w io.Writer) {
	_, _ = fmt.Fprintln(w, "vapi-mcp-server - MCP server for the Vapi voice assistant API")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  vapi-mcp-server                       Start MCP server over stdio (default)")
	_, _ = fmt.Fprintln(w, "  vapi-mcp-server http [--addr ADDR]    Start MCP server over SSE")
	_, _ = fmt.Fprintln(w, "  vapi-mcp-server help                  Show this help")
	_, _ = fmt.Fprintln(w, "  vapi-mcp-server version               Show version")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "Environment:")
	_, _ = fmt.Fprintln(w, "  VAPI_API_KEY          API key (required)")
	_, _ = fmt.Fprintln(w, "  VAPI_BASE_URL         API base URL (default https://api.vapi.ai)")
	_, _ = fmt.Fprintln(w, "  VAPI_TIMEOUT          Request timeout, e.g. 30s (default 60s)")
	_, _ = fmt.Fprintln(w, "  VAPI_MCP_LOG_LEVEL    debug, info, warn or error (default info)")
	_, _ = fmt.Fprintln(w, "  VAPI_MCP_CATALOG_DIR  Extra operation files merged over the built-in catalog")
}
