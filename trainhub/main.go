package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"trainhub/internal/cli/client"
	"trainhub/internal/cli/config"
	"trainhub/internal/cli/output"
	"trainhub/internal/training"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type outputFlags struct {
	format string
	quiet  bool
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.format, "format", "", "output format: table, json, plain or quiet (default depends on terminal)")
	cmd.Flags().BoolVarP(&o.quiet, "quiet", "q", false, "print ids only")
}

func (o *outputFlags) print(w io.Writer, v any) error {
	payload, err := output.ToPayload(v)
	if err != nil {
		return err
	}
	return output.Print(w, payload, o.format, o.quiet)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "trainhub",
		Short:         "Manage GPT Maker training records for the hm and bm agents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newConnectCmd(),
		newDisconnectCmd(),
		newStatusCmd(),
		newTrainingsCmd(),
		newChatsCmd(),
	)
	return root
}

func newConnectCmd() *cobra.Command {
	var (
		agent string
		inDir bool
	)
	cmd := &cobra.Command{
		Use:   "connect <url>",
		Short: "Validate a trainhub server and save it as the default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawURL := strings.TrimSpace(args[0])
			if _, err := url.ParseRequestURI(rawURL); err != nil {
				return fmt.Errorf("invalid url: %w", err)
			}
			if agent != "" {
				if _, err := training.ParseAgent(agent); err != nil {
					return err
				}
			}
			if _, err := client.New(rawURL).Status(cmd.Context()); err != nil {
				return fmt.Errorf("validate server: %w", err)
			}

			cfgPath, err := config.Path()
			if err != nil {
				return err
			}
			if inDir {
				cwd, err := os.Getwd()
				if err != nil {
					return err
				}
				cfgPath = filepath.Join(cwd, ".trainhub", "config.yaml")
			}
			cfg, err := config.LoadFromPath(cfgPath)
			if err != nil {
				return err
			}
			cfg.SetDefault(rawURL, agent)
			if err := config.SaveToPath(cfg, cfgPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "connected to %s\n", rawURL)
			return nil
		},
	}
	cmd.Flags().StringVar(&agent, "agent", "", "default agent for training commands (hm or bm)")
	cmd.Flags().BoolVar(&inDir, "in-dir", false, "write config to ./.trainhub/config.yaml in the current directory")
	return cmd
}

func newDisconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Forget the default server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if _, ok := cfg.Default(); !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "no active connection")
				return nil
			}
			cfg.ClearDefault()
			if err := config.Save(cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "disconnected")
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the server status and configured agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, _, err := defaultClient()
			if err != nil {
				return err
			}
			st, err := cl.Status(cmd.Context())
			if err != nil {
				return err
			}
			return out.print(cmd.OutOrStdout(), st)
		},
	}
	out.register(cmd)
	return cmd
}

func newTrainingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "trainings",
		Aliases: []string{"training"},
		Short:   "List, create, update and delete training records",
	}
	cmd.AddCommand(
		newTrainingsListCmd(),
		newTrainingsCreateCmd(),
		newTrainingsUpdateCmd(),
		newTrainingsDeleteCmd(),
	)
	return cmd
}

func newTrainingsListCmd() *cobra.Command {
	var (
		agent      string
		typeFilter string
		out        outputFlags
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an agent's trainings, all types merged unless --type is set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, srv, err := defaultClient()
			if err != nil {
				return err
			}
			a, err := resolveAgent(agent, srv)
			if err != nil {
				return err
			}
			recs, err := cl.ListTrainings(cmd.Context(), string(a), strings.ToUpper(strings.TrimSpace(typeFilter)))
			if err != nil {
				return err
			}
			return out.print(cmd.OutOrStdout(), map[string]any{"trainings": recs, "total": len(recs)})
		},
	}
	cmd.Flags().StringVar(&agent, "agent", "", "agent (hm or bm)")
	cmd.Flags().StringVar(&typeFilter, "type", "", "TEXT, WEBSITE, VIDEO or DOCUMENT")
	out.register(cmd)
	return cmd
}

func newTrainingsCreateCmd() *cobra.Command {
	var (
		agent       string
		text        string
		image       string
		callbackURL string
		out         outputFlags
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a TEXT training (links, videos and documents go in --text as a URL)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(text) == "" {
				return errors.New("missing --text")
			}
			cl, srv, err := defaultClient()
			if err != nil {
				return err
			}
			a, err := resolveAgent(agent, srv)
			if err != nil {
				return err
			}
			rec, err := cl.CreateTraining(cmd.Context(), client.CreateTraining{
				Agent:       string(a),
				Text:        text,
				Image:       image,
				CallbackURL: callbackURL,
			})
			if err != nil {
				return err
			}
			return out.print(cmd.OutOrStdout(), rec)
		},
	}
	cmd.Flags().StringVar(&agent, "agent", "", "agent (hm or bm)")
	cmd.Flags().StringVar(&text, "text", "", "training text or URL")
	cmd.Flags().StringVar(&image, "image", "", "optional image URL")
	cmd.Flags().StringVar(&callbackURL, "callback-url", "", "optional callback URL")
	out.register(cmd)
	return cmd
}

func newTrainingsUpdateCmd() *cobra.Command {
	var (
		text  string
		image string
		out   outputFlags
	)
	cmd := &cobra.Command{
		Use:   "update <training-id>",
		Short: "Replace a training's text and image; the record becomes TEXT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, _, err := defaultClient()
			if err != nil {
				return err
			}
			rec, err := cl.UpdateTraining(cmd.Context(), args[0], client.UpdateTraining{Text: text, Image: image})
			if err != nil {
				return err
			}
			return out.print(cmd.OutOrStdout(), rec)
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "new training text")
	cmd.Flags().StringVar(&image, "image", "", "optional image URL")
	out.register(cmd)
	return cmd
}

func newTrainingsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <training-id>",
		Short: "Delete a training record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, _, err := defaultClient()
			if err != nil {
				return err
			}
			raw, err := cl.DeleteTraining(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return nil
		},
	}
}

func newChatsCmd() *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "List the chat widgets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, _, err := defaultClient()
			if err != nil {
				return err
			}
			chats, err := cl.Chats(cmd.Context())
			if err != nil {
				return err
			}
			return out.print(cmd.OutOrStdout(), map[string]any{"chats": chats, "total": len(chats)})
		},
	}
	out.register(cmd)
	return cmd
}

func defaultClient() (*client.Client, config.Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Server{}, err
	}
	srv, ok := cfg.Default()
	if !ok {
		return nil, config.Server{}, errors.New("not connected. run: trainhub connect <url>")
	}
	return client.New(srv.URL), srv, nil
}

func resolveAgent(flagValue string, srv config.Server) (training.Agent, error) {
	v := strings.TrimSpace(flagValue)
	if v == "" {
		v = srv.Agent
	}
	if v == "" {
		return "", errors.New("missing --agent (hm or bm)")
	}
	return training.ParseAgent(v)
}
