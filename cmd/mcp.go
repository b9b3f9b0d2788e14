package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kubeask/internal/app"
	"kubeask/internal/config"
)

var (
	mcpTransport string
	mcpPort      int
	mcpCluster   clusterFlags
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the Kubernetes tool catalog to MCP clients",
		Long: `Serves the kubeask tool catalog over the Model Context Protocol so that
an external assistant can call the same guarded tools the agent uses.

The stdio transport (default) is meant to be launched by an MCP client:

  {
    "mcpServers": {
      "kubeask": {"command": "kubeask", "args": ["mcp", "--read-only"]}
    }
  }

Use --transport streamable-http to listen on --port instead. Logs are
written to stderr so stdout stays reserved for the protocol.`,
		Args: cobra.NoArgs,
		RunE: runMCP,
	}

	cmd.Flags().StringVar(&mcpTransport, "transport", config.MCPTransportStdio, "MCP transport: stdio or streamable-http")
	cmd.Flags().IntVar(&mcpPort, "port", config.DefaultMCPPort, "Port for the streamable-http transport")
	mcpCluster.register(cmd)
	return cmd
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := newAppConfig(func(c *config.KubeaskConfig) {
		c.MCP.Enabled = true
		c.MCP.Transport = mcpTransport
		if cmd.Flags().Changed("port") {
			c.MCP.Port = mcpPort
		}
		mcpCluster.apply(cmd, c)
	})
	if err != nil {
		return err
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	application.CheckCluster(ctx)
	return application.ServeMCP(ctx, GetVersion())
}

func init() {
	rootCmd.AddCommand(newMCPCmd())
}
