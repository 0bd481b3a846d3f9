package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"trainhub/internal/config"
)

func TestServeWithoutTokenFailsPerCall(t *testing.T) {
	t.Setenv(config.EnvToken, "")
	t.Setenv(config.EnvAgentHM, "HM-1")
	t.Setenv(config.EnvAgentBM, "")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	serverT, clientT := mcp.NewInMemoryTransports()
	var logs bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, nil, &logs, serverT)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "trainhub-test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "trainhub_list_trainings",
		Arguments: map[string]any{"agent": "hm"},
	})
	if err == nil {
		if res == nil || !res.IsError {
			t.Fatalf("expected tool error without a token")
		}
		if len(res.Content) > 0 {
			if text, ok := res.Content[0].(*mcp.TextContent); ok && !strings.Contains(text.Text, config.EnvToken) {
				t.Fatalf("tool error should name %s, got %q", config.EnvToken, text.Text)
			}
		}
	}

	_ = session.Close()
	cancel()
	<-done

	if !strings.Contains(logs.String(), config.EnvToken) {
		t.Fatalf("expected a startup warning naming %s, got %q", config.EnvToken, logs.String())
	}
}

func TestServeRejectsBadFlags(t *testing.T) {
	serverT, _ := mcp.NewInMemoryTransports()
	if err := serve(context.Background(), []string{"--nope"}, &bytes.Buffer{}, serverT); err == nil {
		t.Fatalf("expected flag error")
	}
}
