package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"trainhub/internal/training"
)

type mcpListTrainingsArgs struct {
	Agent string `json:"agent"`
	Type  string `json:"type,omitempty"`
}

type mcpCreateTrainingArgs struct {
	Agent       string `json:"agent"`
	Text        string `json:"text"`
	Image       string `json:"image,omitempty"`
	CallbackURL string `json:"callbackUrl,omitempty"`
}

type mcpUpdateTrainingArgs struct {
	TrainingID string `json:"training_id"`
	Text       string `json:"text"`
	Image      string `json:"image,omitempty"`
}

type mcpDeleteTrainingArgs struct {
	TrainingID string `json:"training_id"`
}

// NewMCPServer exposes the training operations as MCP tools. It backs both
// the /mcp endpoint and the stdio binary.
func NewMCPServer(svc Trainings, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "trainhub",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "trainhub_list_trainings",
		Description: "List an agent's training records (agent: hm or bm; type: TEXT, WEBSITE, VIDEO or DOCUMENT, omit for all)",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args mcpListTrainingsArgs) (*mcp.CallToolResult, any, error) {
		agent, err := training.ParseAgent(strings.TrimSpace(args.Agent))
		if err != nil {
			return nil, nil, err
		}
		recs, err := svc.List(ctx, agent, strings.TrimSpace(args.Type))
		if err != nil {
			return nil, nil, err
		}
		out, err := toJSONText(map[string]any{"trainings": recs, "total": len(recs)})
		if err != nil {
			return nil, nil, err
		}
		return textToolResult(out), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "trainhub_create_training",
		Description: "Create a TEXT training record for an agent. Links, videos and documents are sent as TEXT whose text is the URL",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args mcpCreateTrainingArgs) (*mcp.CallToolResult, any, error) {
		agent, err := training.ParseAgent(strings.TrimSpace(args.Agent))
		if err != nil {
			return nil, nil, err
		}
		rec, err := svc.Create(ctx, agent, training.CreateInput{
			Text:        args.Text,
			Image:       args.Image,
			CallbackURL: args.CallbackURL,
		})
		if err != nil {
			return nil, nil, err
		}
		out, err := toJSONText(rec)
		if err != nil {
			return nil, nil, err
		}
		return textToolResult(out), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "trainhub_update_training",
		Description: "Replace the text and image of a training record. The record becomes TEXT",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args mcpUpdateTrainingArgs) (*mcp.CallToolResult, any, error) {
		id := strings.TrimSpace(args.TrainingID)
		if id == "" {
			return nil, nil, errors.New("training_id is required")
		}
		rec, err := svc.Update(ctx, id, training.UpdateInput{Text: args.Text, Image: args.Image})
		if err != nil {
			return nil, nil, err
		}
		out, err := toJSONText(rec)
		if err != nil {
			return nil, nil, err
		}
		return textToolResult(out), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "trainhub_delete_training",
		Description: "Delete a training record by id",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args mcpDeleteTrainingArgs) (*mcp.CallToolResult, any, error) {
		id := strings.TrimSpace(args.TrainingID)
		if id == "" {
			return nil, nil, errors.New("training_id is required")
		}
		raw, err := svc.Delete(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		return textToolResult(string(raw)), nil, nil
	})

	return server
}

func mcpHandler(svc Trainings, version string) http.Handler {
	server := NewMCPServer(svc, version)
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)
}

func textToolResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func toJSONText(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
