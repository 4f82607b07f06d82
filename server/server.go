// Package server registers the operation catalog as MCP tools and bridges
// each call to the Vapi API.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ageborn-dev/vapi-mcp-server/catalog"
	"github.com/ageborn-dev/vapi-mcp-server/validator"
	"github.com/ageborn-dev/vapi-mcp-server/vapi"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Caller performs one authenticated API call. *vapi.Client implements it.
type Caller interface {
	Do(ctx context.Context, method, path string, body any) (json.RawMessage, error)
}

// UnknownToolError reports a call to a name missing from the catalog.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// Request is a fully resolved API call.
type Request struct {
	Method string
	Path   string
	Body   any
}

type Core struct {
	Registry map[string]*catalog.Operation
	Client   Caller

	Validate func(*catalog.Operation, validator.Arguments) error

	logger *slog.Logger
}

type CoreOption func(*Core)

// WithValidator replaces the argument validator.
func WithValidator(fn func(*catalog.Operation, validator.Arguments) error) CoreOption {
	return func(c *Core) { c.Validate = fn }
}

func NewCore(registry map[string]*catalog.Operation, client Caller, logger *slog.Logger, opts ...CoreOption) *Core {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Core{
		Registry: registry,
		Client:   client,
		Validate: validator.ValidateArguments,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Logger returns the core's logger.
func (c *Core) Logger() *slog.Logger {
	return c.logger
}

// BuildRequest validates raw arguments for op and resolves the HTTP call.
// No network activity happens here.
func (c *Core) BuildRequest(op *catalog.Operation, raw json.RawMessage) (Request, error) {
	args, err := validator.Decode(op.Name, raw)
	if err != nil {
		return Request{}, err
	}
	if err := c.Validate(op, args); err != nil {
		return Request{}, err
	}

	params := make(map[string]string)
	for _, p := range op.PathParams() {
		params[p] = args.String(p)
	}
	path, err := op.ResolvePath(params)
	if err != nil {
		return Request{}, err
	}

	req := Request{Method: op.Method, Path: path}
	switch op.Body {
	case catalog.BodyData:
		req.Body = args[catalog.DataField]
	case catalog.BodyFields:
		body := make(map[string]json.RawMessage, len(args))
		for name, v := range args {
			if op.IsPathParam(name) || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
				continue
			}
			body[name] = v
		}
		req.Body = body
	}
	return req, nil
}

// Invoke runs the named operation and returns the API's JSON response.
func (c *Core) Invoke(ctx context.Context, name string, raw json.RawMessage) (json.RawMessage, error) {
	op, ok := c.Registry[name]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}

	start := time.Now()
	invocationID := uuid.NewString()

	req, err := c.BuildRequest(op, raw)
	if err != nil {
		c.logger.InfoContext(ctx, "invoke",
			"tool", name,
			"invocation_id", invocationID,
			"outcome", "rejected",
			"stage", "validate",
			"error", err.Error(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	out, err := c.Client.Do(ctx, req.Method, req.Path, req.Body)
	if err != nil {
		attrs := []any{
			"tool", name,
			"invocation_id", invocationID,
			"method", req.Method,
			"path", req.Path,
			"outcome", "error",
			"stage", "call",
			"error", err.Error(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		var upErr *vapi.UpstreamError
		if errors.As(err, &upErr) {
			attrs = append(attrs, "status", upErr.StatusCode)
		}
		c.logger.InfoContext(ctx, "invoke", attrs...)
		return nil, err
	}

	c.logger.InfoContext(ctx, "invoke",
		"tool", name,
		"invocation_id", invocationID,
		"method", req.Method,
		"path", req.Path,
		"outcome", "success",
		"response_bytes", len(out),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

type ServerOptions struct {
	// Name is the MCP server implementation name. Default: "vapi-mcp-server".
	Name string
	// Version is the MCP server implementation version. Default: "1.0.0".
	Version string
}

// NewMCPServer registers one tool per catalog operation.
func NewMCPServer(core *Core, opts ...ServerOptions) *mcp.Server {
	name := "vapi-mcp-server"
	version := "1.0.0"
	if len(opts) > 0 {
		if opts[0].Name != "" {
			name = opts[0].Name
		}
		if opts[0].Version != "" {
			version = opts[0].Version
		}
	}
	srv := mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, &mcp.ServerOptions{Logger: core.Logger()})

	for _, opName := range catalog.Names(core.Registry) {
		op := core.Registry[opName]
		srv.AddTool(&mcp.Tool{
			Name:        op.Name,
			Description: op.Description,
			InputSchema: op.InputSchema(),
			Annotations: annotations(op),
		}, toolHandler(core, op.Name))
	}

	return srv
}

func toolHandler(core *Core, name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var raw json.RawMessage
		if req != nil && req.Params != nil {
			raw = req.Params.Arguments
		}
		out, err := core.Invoke(ctx, name, raw)
		if err != nil {
			return errorResult(err), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(out)}},
		}, nil
	}
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}

func annotations(op *catalog.Operation) *mcp.ToolAnnotations {
	openWorld := true
	a := &mcp.ToolAnnotations{
		Title:         op.Description,
		ReadOnlyHint:  op.ReadOnly(),
		OpenWorldHint: &openWorld,
	}
	if !op.ReadOnly() {
		destructive := op.Destructive()
		a.DestructiveHint = &destructive
		a.IdempotentHint = op.Method == http.MethodDelete || op.Method == http.MethodPatch
	}
	return a
}

func RunStdio(ctx context.Context, core *Core, opts ...ServerOptions) error {
	server := NewMCPServer(core, opts...)
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("run mcp stdio server: %w", err)
	}
	return nil
}

// NewHTTPHandler returns an http.Handler serving MCP over SSE.
func NewHTTPHandler(core *Core, opts ...ServerOptions) http.Handler {
	srv := NewMCPServer(core, opts...)
	return mcp.NewSSEHandler(func(_ *http.Request) *mcp.Server {
		return srv
	}, nil)
}
