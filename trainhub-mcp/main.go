package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"trainhub/internal/api"
	"trainhub/internal/config"
	"trainhub/internal/observe"
	"trainhub/internal/training"
)

const version = "0.1.0-dev"

// trainhub-mcp serves the training tools over stdio. Stdout carries the
// protocol, so logs go to stderr.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, os.Args[1:], os.Stderr, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "trainhub-mcp:", err)
		os.Exit(1)
	}
}

// serve runs one MCP session on transport. Missing upstream settings are
// logged and left for the tool calls to report.
func serve(ctx context.Context, args []string, logOut io.Writer, transport mcp.Transport) error {
	fs := flag.NewFlagSet("trainhub-mcp", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to YAML config file")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	obs := observe.New(logOut, *verbose)
	for _, key := range cfg.Upstream.Missing() {
		obs.Log().Warn().Str("key", key).Msg("upstream setting missing, affected tool calls will fail")
	}
	proxy := training.NewProxy(cfg.Upstream, nil, obs)

	obs.Log().Debug().Int("agents", len(cfg.Upstream.ConfiguredAgents())).Msg("trainhub-mcp starting")
	return api.NewMCPServer(proxy, version).Run(ctx, transport)
}
