// Package vapimcp is an MCP server exposing the Vapi voice-assistant API as tools.
package vapimcp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ageborn-dev/vapi-mcp-server/catalog"
	"github.com/ageborn-dev/vapi-mcp-server/config"
	"github.com/ageborn-dev/vapi-mcp-server/server"
	"github.com/ageborn-dev/vapi-mcp-server/vapi"
)

type Config struct {
	// Settings is the loaded user configuration. If nil, config.Load is called.
	Settings *config.Config

	// Operations is the tool catalog. If nil, the embedded catalog is loaded
	// and Settings.CatalogDir, when set, is merged over it.
	Operations map[string]*catalog.Operation

	// Client is the API backend. If nil, a vapi.Client is built from Settings;
	// a missing VAPI_API_KEY then fails New with a vapi.ConfigurationError.
	Client server.Caller

	// HTTPClient is used by the default vapi.Client. If nil, one with the
	// configured timeout is created.
	HTTPClient *http.Client

	// Logger is the structured logger passed to Core. If nil, a discard logger is used.
	Logger *slog.Logger

	// Name overrides the MCP server implementation name (default: "vapi-mcp-server").
	Name string

	// Version overrides the MCP server implementation version (default: "1.0.0").
	Version string
}

// New builds a Core from cfg, loading settings and the catalog as needed.
func New(cfg Config) (*server.Core, error) {
	settings := cfg.Settings
	if settings == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("load user config: %w", err)
		}
		settings = &loaded
	}

	registry := cfg.Operations
	if registry == nil {
		var err error
		registry, err = catalog.LoadEmbedded()
		if err != nil {
			return nil, fmt.Errorf("load embedded catalog: %w", err)
		}
		if settings.CatalogDir != nil {
			overlay, err := catalog.LoadDir(*settings.CatalogDir)
			if err != nil {
				return nil, fmt.Errorf("load catalog overlay: %w", err)
			}
			registry = catalog.Merge(registry, overlay)
		}
	}

	client := cfg.Client
	if client == nil {
		var opts []vapi.Option
		if settings.BaseURL != nil {
			opts = append(opts, vapi.WithBaseURL(*settings.BaseURL))
		}
		if cfg.HTTPClient != nil {
			opts = append(opts, vapi.WithHTTPClient(cfg.HTTPClient))
		}
		if d := settings.TimeoutDuration(); d > 0 {
			opts = append(opts, vapi.WithTimeout(d))
		}
		c, err := vapi.New(settings.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		client = c
	}

	return server.NewCore(registry, client, cfg.Logger), nil
}

func (c Config) serverOptions() server.ServerOptions {
	return server.ServerOptions{Name: c.Name, Version: c.Version}
}

// RunStdio creates a server from cfg and runs it over stdin/stdout.
func RunStdio(ctx context.Context, cfg Config) error {
	core, err := New(cfg)
	if err != nil {
		return err
	}
	return server.RunStdio(ctx, core, cfg.serverOptions())
}

// NewHTTPHandler creates a server from cfg and returns an SSE handler for it.
func NewHTTPHandler(cfg Config) (http.Handler, error) {
	core, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return server.NewHTTPHandler(core, cfg.serverOptions()), nil
}
