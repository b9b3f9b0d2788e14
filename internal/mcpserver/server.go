package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"kubeask/internal/api"
	"kubeask/internal/config"
	"kubeask/internal/tools"
	"kubeask/pkg/logging"
)

const serverName = "kubeask"

// Registry is the part of the tool registry exposed over MCP.
type Registry interface {
	Specs() []api.ToolSpec
	InputSchema(name string) (map[string]interface{}, error)
	Execute(ctx context.Context, call api.ToolCall) api.ToolResult
}

// Config configures the MCP server.
type Config struct {
	Transport   string
	Host        string
	Port        int
	ToolTimeout time.Duration
	Version     string
}

// Server serves the tool registry over MCP.
type Server struct {
	cfg      Config
	registry Registry
	server   *server.MCPServer

	stdin  io.Reader
	stdout io.Writer
}

// New creates the MCP server and registers every tool of registry.
func New(cfg Config, registry Registry) (*Server, error) {
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	s := &Server{
		cfg:      cfg,
		registry: registry,
		server: server.NewMCPServer(
			serverName,
			cfg.Version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}

	serverTools, err := s.createTools()
	if err != nil {
		return nil, err
	}
	s.server.AddTools(serverTools...)
	logging.Debug("MCPServer", "Registered %d tools", len(serverTools))
	return s, nil
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.server
}

// Addr returns the listen address of the streamable-http transport.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
}

// Serve runs the configured transport until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	switch s.cfg.Transport {
	case config.MCPTransportStdio:
		logging.Info("MCPServer", "Serving MCP over stdio")
		err := server.NewStdioServer(s.server).Listen(ctx, s.stdin, s.stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("mcp stdio server: %w", err)
		}
		return nil

	case config.MCPTransportStreamableHTTP, "":
		addr := s.Addr()
		httpServer := server.NewStreamableHTTPServer(s.server)
		errCh := make(chan error, 1)
		go func() {
			logging.Info("MCPServer", "Serving MCP over streamable-http on %s", addr)
			errCh <- httpServer.Start(addr)
		}()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("mcp streamable-http server: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logging.Error("MCPServer", err, "Error shutting down streamable-http server")
		}
		return nil

	default:
		return fmt.Errorf("unsupported MCP transport %q", s.cfg.Transport)
	}
}

func (s *Server) createTools() ([]server.ServerTool, error) {
	specs := s.registry.Specs()
	out := make([]server.ServerTool, 0, len(specs))
	for _, spec := range specs {
		schema, err := s.registry.InputSchema(spec.Name)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(schema)
		if err != nil {
			return nil, fmt.Errorf("encoding input schema of %s: %w", spec.Name, err)
		}

		tool := mcp.NewToolWithRawSchema(spec.Name, spec.Description, raw)
		tool.Annotations = annotationsFor(spec)
		out = append(out, server.ServerTool{
			Tool:    tool,
			Handler: s.createToolHandler(spec.Name),
		})
	}
	return out, nil
}

func annotationsFor(spec api.ToolSpec) mcp.ToolAnnotation {
	mutating := spec.Mutating()
	return mcp.ToolAnnotation{
		Title:           spec.Name,
		ReadOnlyHint:    mcp.ToBoolPtr(!mutating),
		DestructiveHint: mcp.ToBoolPtr(false),
		IdempotentHint:  mcp.ToBoolPtr(true),
		OpenWorldHint:   mcp.ToBoolPtr(false),
	}
}

func (s *Server) createToolHandler(toolName string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := make(map[string]interface{})
		if req.Params.Arguments != nil {
			if argsMap, ok := req.Params.Arguments.(map[string]interface{}); ok {
				args = argsMap
			}
		}

		if s.cfg.ToolTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.cfg.ToolTimeout)
			defer cancel()
		}
		if cs := server.ClientSessionFromContext(ctx); cs != nil {
			ctx = tools.ContextWithSessionID(ctx, "mcp-"+cs.SessionID())
		}

		result := s.registry.Execute(ctx, api.ToolCall{
			CallID:    "mcp_" + uuid.NewString(),
			ToolName:  toolName,
			Arguments: args,
		})
		if result.IsError() {
			logging.Debug("MCPServer", "Tool %s failed: %s %s", toolName, result.ErrorKind, result.Message)
		}
		return convertToMCPResult(result), nil
	}
}

func convertToMCPResult(result api.ToolResult) *mcp.CallToolResult {
	if result.IsError() {
		return mcp.NewToolResultError(result.Render())
	}
	return mcp.NewToolResultText(result.Render())
}
