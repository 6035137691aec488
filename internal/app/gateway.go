package app

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"tooldeck/internal/domain"
	"tooldeck/internal/infra/registry"
	"tooldeck/internal/infra/telemetry"
)

// Gateway exposes the tool registry over the MCP stdio transport. Every tool
// call is answered with a JSON envelope inside a single text content block;
// protocol-level errors are reserved for transport failures.
type Gateway struct {
	registry *registry.Registry
	logger   *zap.Logger
	version  string
}

func NewGateway(reg *registry.Registry, version string, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		registry: reg,
		logger:   logger.Named("gateway"),
		version:  version,
	}
}

// Run serves MCP over stdio until ctx is cancelled or the client hangs up.
func (g *Gateway) Run(ctx context.Context) error {
	server := g.buildServer()
	g.logger.Info("gateway starting (stdio transport)", zap.Int("tools", g.registry.Len()))
	return server.Run(ctx, &mcp.StdioTransport{})
}

func (g *Gateway) buildServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "tooldeck",
		Version: g.version,
	}, &mcp.ServerOptions{
		HasTools: true,
	})
	server.AddReceivingMiddleware(requestStamper())

	for _, summary := range g.registry.List() {
		server.AddTool(&mcp.Tool{
			Name:        string(summary.Name),
			Description: summary.Description,
			InputSchema: summary.Schema,
		}, g.toolHandler(summary.Name))
	}
	return server
}

func (g *Gateway) toolHandler(name domain.ToolName) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := json.RawMessage(req.Params.Arguments)
		result := g.registry.Dispatch(ctx, name, args)

		payload, err := json.Marshal(envelopeFor(result))
		if err != nil {
			g.logger.Error("encode tool result failed", telemetry.ToolField(name), zap.Error(err))
			payload = []byte(`{"success":false,"error":{"code":"INTERNAL","message":"encode tool result failed"}}`)
			result.OK = false
		}
		return &mcp.CallToolResult{
			IsError: !result.OK,
			Content: []mcp.Content{&mcp.TextContent{Text: string(payload)}},
		}, nil
	}
}

// requestStamper gives every inbound MCP request a request id and, when a
// span is active, the trace ids, so all logs from one call correlate.
func requestStamper() mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			ctx, _ = telemetry.WithRequest(ctx)
			return next(ctx, method, req)
		}
	}
}

type callEnvelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Message string         `json:"message,omitempty"`
	Error   *errorEnvelope `json:"error,omitempty"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func envelopeFor(result domain.ToolResult) callEnvelope {
	if result.OK {
		return callEnvelope{Success: true, Data: result.Data, Message: result.Message}
	}
	env := callEnvelope{Success: false}
	if result.Err != nil {
		env.Error = &errorEnvelope{Code: string(result.Err.Code), Message: result.Err.Message}
	}
	return env
}
