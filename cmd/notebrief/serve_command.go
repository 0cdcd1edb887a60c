package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"notebrief/internal/daemon"
	"notebrief/internal/httpapi"
	"notebrief/internal/logging"
	"notebrief/internal/mcpserver"
	"notebrief/internal/preflight"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var stdio bool
	var apiBind, mcpBind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipeline over the HTTP API and MCP",
		Long: `Serve runs the HTTP API and the MCP streamable HTTP endpoint together until
interrupted. Pass an empty --api-bind or --mcp-bind to disable a listener.
With --stdio the MCP tools are served over stdin/stdout instead and no
listener is opened.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.buildApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			mcp := mcpserver.New(a.pipeline, a.budgets, version, a.logger)
			if stdio {
				return mcp.ServeStdio(cmd.Context())
			}

			for _, result := range preflight.RunAll(cmd.Context(), a.cfg, a.backend) {
				if result.Passed {
					continue
				}
				logging.WarnWithContext(a.logger, "preflight check failed", "preflight_failed",
					logging.String("check", result.Name),
					logging.String("detail", result.Detail),
					logging.String(logging.FieldImpact, "requests depending on this check will fail"),
					logging.String(logging.FieldErrorHint, "run `notebrief status` for details"),
				)
			}

			cfg := *a.cfg
			if cmd.Flags().Changed("api-bind") {
				cfg.Server.APIBind = apiBind
			}
			if cmd.Flags().Changed("mcp-bind") {
				cfg.Server.MCPBind = mcpBind
			}
			handlers := daemon.Handlers{MCP: mcp.Handler()}
			if cfg.Server.APIBind != "" {
				handlers.API = httpapi.NewRouter(a.pipeline, a.stager, a.budgets, httpapi.Options{
					CORSOrigins: cfg.Server.CORSOrigins,
					Token:       cfg.Server.APIToken,
				}, a.logger)
			}
			if cfg.Server.MCPBind == "" {
				handlers.MCP = nil
			}

			d, err := daemon.New(&cfg, handlers, a.logger)
			if err != nil {
				return err
			}
			stopped := make(chan struct{})
			defer close(stopped)
			go func() {
				select {
				case <-d.Ready():
					status := d.Status()
					out := cmd.OutOrStdout()
					if status.APIAddress != "" {
						fmt.Fprintf(out, "HTTP API listening on http://%s\n", status.APIAddress)
					}
					if status.MCPAddress != "" {
						fmt.Fprintf(out, "MCP listening on http://%s%s\n", status.MCPAddress, mcpserver.Path)
					}
				case <-stopped:
				}
			}()
			return d.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&stdio, "stdio", false, "Serve MCP over stdin/stdout")
	cmd.Flags().StringVar(&apiBind, "api-bind", "", "Override server.api_bind")
	cmd.Flags().StringVar(&mcpBind, "mcp-bind", "", "Override server.mcp_bind")
	return cmd
}
