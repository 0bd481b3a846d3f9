package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func connectMCP(t *testing.T, baseURL string) *mcp.ClientSession {
	t.Helper()
	client := mcp.NewClient(&mcp.Implementation{
		Name:    "trainhub-test-client",
		Version: "test",
	}, nil)

	session, err := client.Connect(context.Background(), &mcp.StreamableClientTransport{
		Endpoint:   baseURL + "/mcp",
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}, nil)
	if err != nil {
		t.Fatalf("connect mcp client: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestMCPToolsFlow(t *testing.T) {
	env := setupTestServer(t)
	seed(env.upstream)
	session := connectMCP(t, env.server.URL)
	ctx := context.Background()

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	wantTools := map[string]bool{
		"trainhub_list_trainings":  false,
		"trainhub_create_training": false,
		"trainhub_update_training": false,
		"trainhub_delete_training": false,
	}
	for _, tool := range tools.Tools {
		if _, ok := wantTools[tool.Name]; ok {
			wantTools[tool.Name] = true
		}
	}
	for tool, ok := range wantTools {
		if !ok {
			t.Fatalf("missing tool %q", tool)
		}
	}

	listRes, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "trainhub_list_trainings",
		Arguments: map[string]any{"agent": "hm"},
	})
	if err != nil {
		t.Fatalf("call trainhub_list_trainings: %v", err)
	}
	var listPayload struct {
		Trainings []struct {
			ID string `json:"id"`
		} `json:"trainings"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal([]byte(firstTextContent(t, listRes)), &listPayload); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if listPayload.Total != 3 || listPayload.Trainings[0].ID != "t1" {
		t.Fatalf("unexpected list payload %+v", listPayload)
	}

	createRes, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name: "trainhub_create_training",
		Arguments: map[string]any{
			"agent": "bm",
			"text":  "hello from mcp",
		},
	})
	if err != nil {
		t.Fatalf("call trainhub_create_training: %v", err)
	}
	var created struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(firstTextContent(t, createRes)), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.ID == "" || created.Type != "TEXT" || created.Text != "hello from mcp" {
		t.Fatalf("unexpected created record %+v", created)
	}

	updateRes, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name: "trainhub_update_training",
		Arguments: map[string]any{
			"training_id": created.ID,
			"text":        "edited",
		},
	})
	if err != nil {
		t.Fatalf("call trainhub_update_training: %v", err)
	}
	if !strings.Contains(firstTextContent(t, updateRes), "edited") {
		t.Fatalf("update response missing new text")
	}

	deleteRes, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "trainhub_delete_training",
		Arguments: map[string]any{"training_id": created.ID},
	})
	if err != nil {
		t.Fatalf("call trainhub_delete_training: %v", err)
	}
	if !strings.Contains(firstTextContent(t, deleteRes), created.ID) {
		t.Fatalf("delete response should echo the id")
	}
}

func TestMCPRejectsUnknownAgent(t *testing.T) {
	env := setupTestServer(t)
	session := connectMCP(t, env.server.URL)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "trainhub_list_trainings",
		Arguments: map[string]any{"agent": "zz"},
	})
	if err == nil && (res == nil || !res.IsError) {
		t.Fatalf("expected tool error for unknown agent")
	}
	if env.upstream.Count() != 0 {
		t.Fatalf("expected no upstream calls, got %d", env.upstream.Count())
	}
}

func firstTextContent(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("expected tool content")
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return text.Text
}
