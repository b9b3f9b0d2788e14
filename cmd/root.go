package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kubeask/internal/api"
	"kubeask/internal/app"
	"kubeask/internal/config"
	"kubeask/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeBudgetExceeded indicates the agent ran out of tool rounds.
	ExitCodeBudgetExceeded = 2
	// ExitCodeUnavailable indicates the model, the cluster or the kubeask
	// server could not be reached.
	ExitCodeUnavailable = 3
)

var (
	rootConfigPath string
	rootDebug      bool
	rootLogFormat  string
)

// rootCmd represents the base command for the kubeask application.
var rootCmd = &cobra.Command{
	Use:   "kubeask",
	Short: "Ask questions about a Kubernetes cluster in plain language",
	Long: `kubeask runs an agent that answers operational questions about a
Kubernetes cluster. The agent uses a language model to pick from a fixed
catalog of read-only and guarded mutating tools, executes them against the
cluster and replies once it has enough evidence.

Run 'kubeask serve' to expose the agent over HTTP, 'kubeask ask' to query a
running server and 'kubeask mcp' to offer the tool catalog to MCP clients.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "kubeask version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error kind.
func getExitCode(err error) int {
	var kinded api.KindedError
	if !errors.As(err, &kinded) {
		return ExitCodeError
	}
	switch kinded.Kind() {
	case api.KindStepBudgetExceeded:
		return ExitCodeBudgetExceeded
	case api.KindTransportFault, api.KindCluster:
		return ExitCodeUnavailable
	default:
		return ExitCodeError
	}
}

// newAppConfig builds the application configuration shared by the commands
// that bootstrap services locally.
func newAppConfig(override func(*config.KubeaskConfig)) (*app.Config, error) {
	cfg := app.NewConfig(rootDebug, rootConfigPath)
	switch logging.Format(rootLogFormat) {
	case logging.FormatText, logging.FormatJSON:
		cfg.LogFormat = logging.Format(rootLogFormat)
	default:
		return nil, fmt.Errorf("unsupported log format %q (use text or json)", rootLogFormat)
	}
	cfg.Override = override
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config-path", "", "Configuration directory containing config.yaml (default $HOME/.config/kubeask)")
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&rootLogFormat, "log-format", string(logging.FormatText), "Log format: text or json")

	rootCmd.AddCommand(newVersionCmd())
}
