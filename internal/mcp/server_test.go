package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannvm/engai/internal/mock"
)

func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()
	srv, err := NewServer(&ServerConfig{Handlers: newTestHandlers(t, mock.EchoGenerator())})
	require.NoError(t, err)

	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := srv.mcpServer.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func structured(t *testing.T, res *mcp.CallToolResult, target any) {
	t.Helper()
	data, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target))
}

func TestNewServerRequiresHandlers(t *testing.T) {
	_, err := NewServer(nil)
	assert.Error(t, err)
	_, err = NewServer(&ServerConfig{})
	assert.Error(t, err)
}

func TestToolsRegistered(t *testing.T) {
	cs := connect(t)

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, ToolNames(), names)

	for _, tool := range res.Tools {
		require.NotNil(t, tool.Annotations, tool.Name)
		readOnly := tool.Name == "get_usage" || tool.Name == "list_agents"
		assert.Equal(t, readOnly, tool.Annotations.ReadOnlyHint, tool.Name)
		require.NotNil(t, tool.Annotations.OpenWorldHint, tool.Name)
		assert.Equal(t, !readOnly, *tool.Annotations.OpenWorldHint, tool.Name)
	}
}

func TestHealthCheck(t *testing.T) {
	srv, err := NewServer(&ServerConfig{Version: "1.2.3", Handlers: newTestHandlers(t, mock.EchoGenerator())})
	require.NoError(t, err)

	mux := http.NewServeMux()
	srv.addHealthCheck(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, ServerName, body.Service)
	assert.Equal(t, "1.2.3", body.Version)
	assert.Equal(t, []string{"generate_software", "get_usage", "list_agents", "run_stage"}, body.Tools)
}

func TestCallGenerateSoftwareOverSession(t *testing.T) {
	cs := connect(t)
	ctx := context.Background()

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "generate_software",
		Arguments: map[string]any{"description": "a todo list app", "save_files": false},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var out GenerateSoftwareOutput
	structured(t, res, &out)
	assert.True(t, out.Success)
	assert.NotEmpty(t, out.Code)

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{Name: "get_usage", Arguments: map[string]any{}})
	require.NoError(t, err)
	var snap GetUsageOutput
	structured(t, res, &snap)
	assert.Equal(t, int64(5), snap.TotalAPICalls)
}

func TestCallGenerateSoftwareBlankDescription(t *testing.T) {
	cs := connect(t)

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "generate_software",
		Arguments: map[string]any{"description": " "},
	})
	if err == nil {
		assert.True(t, res.IsError)
	}
}

func TestCallListAgentsOverSession(t *testing.T) {
	cs := connect(t)

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: "list_agents", Arguments: map[string]any{}})
	require.NoError(t, err)

	var out ListAgentsOutput
	structured(t, res, &out)
	assert.Len(t, out.Agents, 6)
	assert.Len(t, out.Stages, 5)
}
