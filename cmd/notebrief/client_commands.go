package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"notebrief/internal/client"
	"notebrief/internal/mcpserver"
)

type clientFlags struct {
	server string
	token  string
	mcp    string
}

func (f *clientFlags) api(ctx *commandContext) (*client.API, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	base := strings.TrimSpace(f.server)
	if base == "" {
		base = client.BaseURLFromBind(cfg.Server.APIBind)
	}
	token := strings.TrimSpace(f.token)
	if token == "" {
		token = cfg.Server.APIToken
	}
	return client.NewAPI(base, client.WithToken(token)), nil
}

func (f *clientFlags) mcpEndpoint(ctx *commandContext) (string, error) {
	if endpoint := strings.TrimSpace(f.mcp); endpoint != "" {
		return endpoint, nil
	}
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return "", err
	}
	return client.BaseURLFromBind(cfg.Server.MCPBind) + mcpserver.Path, nil
}

func newClientCommand(ctx *commandContext) *cobra.Command {
	flags := &clientFlags{}
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Call a running notebrief server",
	}
	cmd.PersistentFlags().StringVar(&flags.server, "server", "", "HTTP API base URL (defaults to server.api_bind)")
	cmd.PersistentFlags().StringVar(&flags.token, "token", "", "Bearer token (defaults to server.api_token)")
	cmd.PersistentFlags().StringVar(&flags.mcp, "mcp", "", "MCP endpoint URL (defaults to server.mcp_bind)")

	cmd.AddCommand(newClientUploadCommand(ctx, flags))
	cmd.AddCommand(newClientRemoteFileCommand(ctx, flags))
	cmd.AddCommand(newClientURLCommand(ctx, flags))
	cmd.AddCommand(newClientToolsCommand(ctx, flags))
	cmd.AddCommand(newClientCallCommand(ctx, flags))
	return cmd
}

func newClientUploadCommand(ctx *commandContext, flags *clientFlags) *cobra.Command {
	var prompt string
	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a local file to /analyze/upload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := flags.api(ctx)
			if err != nil {
				return err
			}
			answer, err := api.Upload(cmd.Context(), args[0], prompt)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Custom prompt")
	return cmd
}

func newClientRemoteFileCommand(ctx *commandContext, flags *clientFlags) *cobra.Command {
	var prompt string
	cmd := &cobra.Command{
		Use:   "remote-file <url>",
		Short: "Ask the server to download and analyze a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := flags.api(ctx)
			if err != nil {
				return err
			}
			answer, err := api.RemoteFile(cmd.Context(), args[0], prompt)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Custom prompt")
	return cmd
}

func newClientURLCommand(ctx *commandContext, flags *clientFlags) *cobra.Command {
	var prompt, title string
	cmd := &cobra.Command{
		Use:   "url <url>",
		Short: "Ask the server to analyze a web page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := flags.api(ctx)
			if err != nil {
				return err
			}
			answer, err := api.URL(cmd.Context(), args[0], title, prompt)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Custom prompt")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Workspace title")
	return cmd
}

func newClientToolsCommand(ctx *commandContext, flags *clientFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the MCP tools offered by the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint, err := flags.mcpEndpoint(ctx)
			if err != nil {
				return err
			}
			session, err := client.DialMCP(cmd.Context(), endpoint, version)
			if err != nil {
				return err
			}
			defer session.Close()

			tools, err := session.Tools(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(tools))
			for _, tool := range tools {
				rows = append(rows, []string{tool.Name, tool.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Tool", "Description"}, rows, nil))
			return nil
		},
	}
}

func newClientCallCommand(ctx *commandContext, flags *clientFlags) *cobra.Command {
	var pairs []string
	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Call an MCP tool with key=value arguments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs, err := parseToolArgs(pairs)
			if err != nil {
				return err
			}
			endpoint, err := flags.mcpEndpoint(ctx)
			if err != nil {
				return err
			}
			session, err := client.DialMCP(cmd.Context(), endpoint, version)
			if err != nil {
				return err
			}
			defer session.Close()

			text, err := session.Call(cmd.Context(), args[0], toolArgs)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&pairs, "arg", "a", nil, "Tool argument as key=value (repeatable)")
	return cmd
}

func parseToolArgs(pairs []string) (map[string]any, error) {
	args := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --arg %q: expected key=value", pair)
		}
		args[key] = value
	}
	return args, nil
}
