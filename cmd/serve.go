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
	serveHost          string
	servePort          int
	serveStream        bool
	serveMaxIterations int
	serveProvider      string
	serveModel         string
	serveMCP           bool
	serveCluster       clusterFlags
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the kubeask HTTP server",
	Long: `Starts the kubeask agent behind an HTTP API.

Endpoints:
  POST   /ask                   Ask a question (JSON, or SSE with Accept: text/event-stream)
  GET    /tools                 List the tool catalog
  GET    /sessions/{id}         Inspect a conversation
  POST   /sessions/{id}/cancel  Cancel the request running in a session
  DELETE /sessions/{id}         Forget a conversation
  GET    /healthz, /readyz      Liveness and readiness probes
  GET    /metrics               Prometheus metrics

Configuration is read from config.yaml in --config-path. Flags given on the
command line take precedence over the file. The model API key is read from
ANTHROPIC_API_KEY or OPENAI_API_KEY depending on the provider.

With --mcp the tool catalog is also offered over MCP on the configured
streamable HTTP port.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := newAppConfig(func(c *config.KubeaskConfig) {
		applyServeFlags(cmd, c)
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
	return application.Serve(ctx, GetVersion())
}

func applyServeFlags(cmd *cobra.Command, c *config.KubeaskConfig) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		c.Server.Host = serveHost
	}
	if flags.Changed("port") {
		c.Server.Port = servePort
	}
	if flags.Changed("stream") {
		c.Server.DeliveryMode = config.DeliverySync
		if serveStream {
			c.Server.DeliveryMode = config.DeliveryStream
		}
	}
	if flags.Changed("max-iterations") {
		c.Agent.MaxIterations = serveMaxIterations
	}
	if flags.Changed("provider") {
		c.Model.Provider = serveProvider
		if !flags.Changed("model") {
			c.Model.Name = config.DefaultModelName(serveProvider)
		}
	}
	if flags.Changed("model") {
		c.Model.Name = serveModel
	}
	if flags.Changed("mcp") {
		c.MCP.Enabled = serveMCP
		if serveMCP {
			c.MCP.Transport = config.MCPTransportStreamableHTTP
		}
	}
	serveCluster.apply(cmd, c)
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Address to listen on (default all interfaces)")
	serveCmd.Flags().IntVar(&servePort, "port", config.DefaultServerPort, "HTTP port")
	serveCmd.Flags().BoolVar(&serveStream, "stream", false, "Always answer /ask with server-sent events")
	serveCmd.Flags().IntVar(&serveMaxIterations, "max-iterations", config.DefaultMaxIterations, "Maximum tool rounds per request")
	serveCmd.Flags().StringVar(&serveProvider, "provider", config.ProviderAnthropic, "Model provider: anthropic or openai")
	serveCmd.Flags().StringVar(&serveModel, "model", "", "Model name (default depends on the provider)")
	serveCmd.Flags().BoolVar(&serveMCP, "mcp", false, "Also serve the tool catalog over MCP (streamable HTTP)")
	serveCluster.register(serveCmd)
}
