package app

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tooldeck/internal/domain"
	"tooldeck/internal/infra/middleware"
	"tooldeck/internal/infra/registry"
)

func echoDescriptor() domain.ToolDescriptor {
	return domain.ToolDescriptor{
		Name:        "echo",
		Description: "Echo the given text back.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required":             []string{"text"},
			"additionalProperties": false,
		},
		Handler: func(ctx context.Context, args domain.Args) (domain.ToolOutput, error) {
			return domain.ToolOutput{
				Data:    map[string]any{"echo": args.String("text")},
				Message: "echoed",
			}, nil
		},
		Meta: domain.ToolMeta{Category: domain.CategoryAgent},
	}
}

func failingDescriptor() domain.ToolDescriptor {
	return domain.ToolDescriptor{
		Name:        "always_fails",
		Description: "Fail with a structured error.",
		Schema:      map[string]any{"type": "object"},
		Handler: func(ctx context.Context, args domain.Args) (domain.ToolOutput, error) {
			return domain.ToolOutput{}, domain.E(domain.CodeNotFound, "apptest", "no such thing", nil)
		},
		Meta: domain.ToolMeta{Category: domain.CategoryAgent},
	}
}

func newTestGateway(t *testing.T, descriptors ...domain.ToolDescriptor) *Gateway {
	t.Helper()
	reg := registry.New(registry.Options{
		Chain: middleware.Builtin(middleware.Options{}),
	})
	require.NoError(t, reg.RegisterAll(descriptors...))
	return NewGateway(reg, "test", zap.NewNop())
}

func connectClient(t *testing.T, ctx context.Context, server *mcp.Server) *mcp.ClientSession {
	t.Helper()
	ct, st := mcp.NewInMemoryTransports()
	_, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "0.1.0"}, nil)
	session, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	return session
}

func decodeEnvelope(t *testing.T, res *mcp.CallToolResult) callEnvelope {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)

	var env callEnvelope
	require.NoError(t, json.Unmarshal([]byte(text.Text), &env))
	return env
}

func TestGateway_ListToolsAdvertisesCatalog(t *testing.T) {
	ctx := context.Background()
	gateway := newTestGateway(t, echoDescriptor(), failingDescriptor())

	session := connectClient(t, ctx, gateway.buildServer())
	defer session.Close()

	res, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	require.NoError(t, err)
	require.Len(t, res.Tools, 2)

	names := []string{res.Tools[0].Name, res.Tools[1].Name}
	assert.Contains(t, names, "echo")
	assert.Contains(t, names, "always_fails")
}

func TestGateway_CallToolWrapsSuccessInEnvelope(t *testing.T) {
	ctx := context.Background()
	gateway := newTestGateway(t, echoDescriptor())

	session := connectClient(t, ctx, gateway.buildServer())
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "echo",
		Arguments: map[string]any{"text": "hello"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	env := decodeEnvelope(t, res)
	assert.True(t, env.Success)
	assert.Equal(t, "echoed", env.Message)
	assert.Nil(t, env.Error)

	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello", data["echo"])
}

func TestGateway_CallToolWrapsFailureInEnvelope(t *testing.T) {
	ctx := context.Background()
	gateway := newTestGateway(t, failingDescriptor())

	session := connectClient(t, ctx, gateway.buildServer())
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "always_fails",
		Arguments: map[string]any{},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	env := decodeEnvelope(t, res)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
	assert.Equal(t, "no such thing", env.Error.Message)
}

func TestGateway_HandlerPanicsBecomeErrorEnvelopes(t *testing.T) {
	ctx := context.Background()
	desc := echoDescriptor()
	desc.Name = "panics"
	desc.Handler = func(ctx context.Context, args domain.Args) (domain.ToolOutput, error) {
		panic("wiring bug")
	}
	gateway := newTestGateway(t, desc)

	session := connectClient(t, ctx, gateway.buildServer())
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "panics",
		Arguments: map[string]any{"text": "x"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	env := decodeEnvelope(t, res)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INTERNAL", env.Error.Code)
	assert.Contains(t, env.Error.Message, "wiring bug")
}

func TestBuildLogger_LevelsAndEncodings(t *testing.T) {
	logger, err := BuildLogger(domain.LoggingConfig{Level: "debug", Encoding: "json"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = BuildLogger(domain.LoggingConfig{Level: "warn", Encoding: "console"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestBuildLogger_RejectsUnknownLevel(t *testing.T) {
	_, err := BuildLogger(domain.LoggingConfig{Level: "shouting", Encoding: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}
