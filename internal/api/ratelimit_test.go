package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestWriteRateLimit(t *testing.T) {
	env := setupTestServerWithLimit(t, 1)

	first := doReq(t, env.server.URL, http.MethodPost, "/api/trainings", map[string]any{
		"agent": "hm",
		"text":  "one",
	})
	if first.StatusCode != http.StatusCreated {
		t.Fatalf("expected first create 201, got %d", first.StatusCode)
	}
	if first.Header.Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("remaining = %q", first.Header.Get("X-RateLimit-Remaining"))
	}
	_ = first.Body.Close()

	second := doReq(t, env.server.URL, http.MethodPost, "/api/trainings", map[string]any{
		"agent": "hm",
		"text":  "two",
	})
	if second.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected second create 429, got %d", second.StatusCode)
	}
	if second.Header.Get("X-RateLimit-Limit") == "" || second.Header.Get("Retry-After") == "" {
		t.Fatalf("expected rate limit headers to be present")
	}
	_ = second.Body.Close()

	if env.upstream.Count() != 1 {
		t.Fatalf("rejected write must not reach upstream, got %d calls", env.upstream.Count())
	}

	read := doReq(t, env.server.URL, http.MethodGet, "/api/trainings?agent=hm&type=TEXT", nil)
	if read.StatusCode != http.StatusOK {
		t.Fatalf("reads are not limited, got %d", read.StatusCode)
	}
	_ = read.Body.Close()
}

func TestMCPWriteToolsShareWriteLimit(t *testing.T) {
	env := setupTestServerWithLimit(t, 1)
	session := connectMCP(t, env.server.URL)
	ctx := context.Background()

	if _, err := session.ListTools(ctx, nil); err != nil {
		t.Fatalf("list tools: %v", err)
	}

	first, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "trainhub_create_training",
		Arguments: map[string]any{"agent": "hm", "text": "one"},
	})
	if err != nil || first.IsError {
		t.Fatalf("first create should pass: %v", err)
	}

	accepted := 1
	for i := 0; i < 4; i++ {
		res, err := session.CallTool(ctx, &mcp.CallToolParams{
			Name:      "trainhub_create_training",
			Arguments: map[string]any{"agent": "hm", "text": "more"},
		})
		if err == nil && res != nil && !res.IsError {
			accepted++
		}
	}
	if accepted != 1 {
		t.Fatalf("expected one MCP create within the limit, %d accepted", accepted)
	}
	if env.upstream.Count() != 1 {
		t.Fatalf("rejected MCP writes must not reach upstream, got %d calls", env.upstream.Count())
	}

	read := doReq(t, env.server.URL, http.MethodGet, "/api/trainings?agent=hm&type=TEXT", nil)
	if read.StatusCode != http.StatusOK {
		t.Fatalf("reads are not limited, got %d", read.StatusCode)
	}
	_ = read.Body.Close()
}

func TestMCPWriteBudgetIsSharedWithREST(t *testing.T) {
	env := setupTestServerWithLimit(t, 1)

	created := doReq(t, env.server.URL, http.MethodPost, "/api/trainings", map[string]any{"agent": "hm", "text": "rest"})
	if created.StatusCode != http.StatusCreated {
		t.Fatalf("REST create status = %d", created.StatusCode)
	}
	_ = created.Body.Close()

	session := connectMCP(t, env.server.URL)
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "trainhub_create_training",
		Arguments: map[string]any{"agent": "hm", "text": "mcp"},
	})
	if err == nil && res != nil && !res.IsError {
		t.Fatalf("MCP create should be refused once REST spent the budget")
	}
}

func TestCountMCPWrites(t *testing.T) {
	cases := []struct {
		body string
		want int
	}{
		{`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`, 0},
		{`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"trainhub_list_trainings"}}`, 0},
		{`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"trainhub_delete_training"}}`, 1},
		{`[{"method":"tools/call","params":{"name":"trainhub_create_training"}},{"method":"tools/list"}]`, 1},
		{`not json`, 0},
	}
	for _, tc := range cases {
		if got := countMCPWrites([]byte(tc.body)); got != tc.want {
			t.Fatalf("countMCPWrites(%s) = %d, want %d", tc.body, got, tc.want)
		}
	}
}
