package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"kubeask/internal/api"
	"kubeask/internal/tools"
	kstrings "kubeask/pkg/strings"
)

// Output formats accepted by -o.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

var (
	toolsOutput string
	toolsWide   bool
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools the agent can call",
		Long: `Lists the fixed tool catalog with each tool's effect class and
parameters. Required parameters are marked with '*'.

Use -o json or -o yaml for the full parameter specifications.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printTools(cmd.OutOrStdout(), tools.NewCatalog(nil), toolsOutput, toolsWide)
		},
	}
	cmd.Flags().StringVarP(&toolsOutput, "output", "o", outputTable, "Output format: table, json or yaml")
	cmd.Flags().BoolVar(&toolsWide, "wide", false, "Do not truncate descriptions")
	return cmd
}

func printTools(w io.Writer, specs []api.ToolSpec, format string, wide bool) error {
	switch format {
	case outputTable:
		printToolTable(w, specs, wide)
		return nil
	case outputJSON:
		data, err := json.MarshalIndent(specs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode tools: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case outputYAML:
		data, err := yaml.Marshal(specs)
		if err != nil {
			return fmt.Errorf("failed to encode tools: %w", err)
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unsupported output format %q (use table, json or yaml)", format)
	}
}

func printToolTable(w io.Writer, specs []api.ToolSpec, wide bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("NAME"),
		text.FgHiCyan.Sprint("EFFECT"),
		text.FgHiCyan.Sprint("PARAMETERS"),
		text.FgHiCyan.Sprint("DESCRIPTION"),
	})

	for _, spec := range specs {
		description := kstrings.SingleLine(spec.Description)
		if !wide {
			description = kstrings.Ellipsize(description, kstrings.DefaultColumnWidth)
		}
		t.AppendRow(table.Row{
			text.FgHiWhite.Sprint(spec.Name),
			effectLabel(spec.Effect),
			parameterSummary(spec.Parameters),
			description,
		})
	}
	t.Render()
}

func effectLabel(effect api.EffectClass) string {
	if effect == api.EffectMutating {
		return text.FgYellow.Sprint(string(effect))
	}
	return text.FgGreen.Sprint(string(effect))
}

func parameterSummary(params []api.ParameterSpec) string {
	if len(params) == 0 {
		return "-"
	}
	names := make([]string, 0, len(params))
	for _, p := range params {
		name := p.Name
		if p.Required {
			name += "*"
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

func init() {
	rootCmd.AddCommand(newToolsCmd())
}
