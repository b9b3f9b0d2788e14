package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"kubeask/internal/api"
	"kubeask/internal/app"
	"kubeask/internal/config"
	"kubeask/internal/tools"
)

var (
	callArgsJSON string
	callOutput   string
	callCluster  clusterFlags
)

// toolExecutor runs a single validated tool call.
type toolExecutor interface {
	Execute(ctx context.Context, call api.ToolCall) api.ToolResult
}

// toolCallError reports a tool call that ended with an ERROR result. It
// carries the result's kind so the exit code matches the failure.
type toolCallError struct {
	result api.ToolResult
}

func (e *toolCallError) Error() string {
	return fmt.Sprintf("tool %s failed: %s", e.result.ToolName, e.result.Message)
}

func (e *toolCallError) Kind() api.ErrorKind { return e.result.ErrorKind }

func newCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <tool> [key=value ...]",
		Short: "Run one catalog tool directly against the cluster",
		Long: `Runs a single tool from the catalog without involving the model. The
call goes through the same validation and blast-radius policy as calls
made by the agent.

Arguments are given as key=value pairs. Values that parse as JSON
(numbers, booleans, quoted strings) keep their JSON type, anything else is
passed as a string. --args accepts a JSON object instead.

Examples:
  kubeask call list_pods namespace=default
  kubeask call get_pod_logs namespace=shop name=web-1 tail_lines=50
  kubeask call scale_deployment --args '{"namespace":"shop","name":"web","replicas":3}'`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCall,
	}
	cmd.Flags().StringVar(&callArgsJSON, "args", "", "Tool arguments as a JSON object")
	cmd.Flags().StringVarP(&callOutput, "output", "o", outputYAML, "Output format: yaml or json")
	callCluster.register(cmd)
	return cmd
}

func runCall(cmd *cobra.Command, args []string) error {
	arguments, err := parseCallArgs(args[1:], callArgsJSON)
	if err != nil {
		return err
	}

	cfg, err := newAppConfig(func(c *config.KubeaskConfig) {
		callCluster.apply(cmd, c)
	})
	if err != nil {
		return err
	}
	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return callTool(cmd.Context(), application.Services().Registry, application.Settings().Agent.ToolTimeout,
		args[0], arguments, cmd.OutOrStdout(), callOutput)
}

// parseCallArgs merges a JSON object with key=value pairs. Pairs win.
func parseCallArgs(pairs []string, jsonArgs string) (map[string]interface{}, error) {
	arguments := map[string]interface{}{}
	if jsonArgs != "" {
		if err := json.Unmarshal([]byte(jsonArgs), &arguments); err != nil {
			return nil, fmt.Errorf("--args must be a JSON object: %w", err)
		}
	}
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid argument %q: expected key=value", pair)
		}
		var value interface{}
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		arguments[key] = value
	}
	return arguments, nil
}

func callTool(ctx context.Context, exec toolExecutor, timeout time.Duration, tool string, arguments map[string]interface{}, w io.Writer, format string) error {
	if format != outputYAML && format != outputJSON {
		return fmt.Errorf("unsupported output format %q (use yaml or json)", format)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	ctx = tools.ContextWithSessionID(ctx, "cli")

	result := exec.Execute(ctx, api.ToolCall{
		CallID:    "cli_" + uuid.NewString(),
		ToolName:  tool,
		Arguments: arguments,
	})

	var (
		data []byte
		err  error
	)
	if format == outputJSON {
		data, err = json.MarshalIndent(result, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = yaml.Marshal(result)
	}
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return err
	}

	if result.IsError() {
		return &toolCallError{result: result}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(newCallCmd())
}
