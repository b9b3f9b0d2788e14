package agent

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"

	"kubeask/internal/api"
)

// DefaultSystemPrompt is used when no template is configured.
const DefaultSystemPrompt = `You are kubeask, a Kubernetes troubleshooting assistant with live, read access to a cluster through tools.

Work step by step: call exactly one tool at a time, read its result, then decide the next step. Base every statement on tool results, never on assumptions. If a tool returns an error, read the error kind and message and adjust your call instead of repeating it unchanged.

You may call at most {{ .MaxIterations }} tools for this request.
{{- if .ReadOnly }}
The cluster is in read-only mode: restart and scale tools will be refused, so only suggest such changes.
{{- else }}
Tools that change the cluster ({{ .MutatingTools | join ", " }}) are only to be used when the operator explicitly asks for that change.
{{- if .ProtectedNamespaces }} Namespaces {{ .ProtectedNamespaces | join ", " }} are protected and cannot be changed.{{ end }}
{{- end }}

When you have enough information, answer concisely in Markdown. Name the pods, deployments or nodes involved and the evidence you found.

Current time: {{ .Now | date "2006-01-02 15:04 MST" }}.`

// PromptData is available to the system prompt template.
type PromptData struct {
	MaxIterations       int
	ReadOnly            bool
	ProtectedNamespaces []string
	Tools               []string
	MutatingTools       []string
	Now                 time.Time
}

// Prompt renders the system prompt.
type Prompt struct {
	tmpl *template.Template
}

// ParsePrompt parses a system prompt template. Sprig functions are available.
// An empty text selects DefaultSystemPrompt.
func ParsePrompt(text string) (*Prompt, error) {
	if text == "" {
		text = DefaultSystemPrompt
	}
	tmpl, err := template.New("system").Funcs(sprig.TxtFuncMap()).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid system prompt template: %w", err)
	}
	return &Prompt{tmpl: tmpl}, nil
}

// Render executes the template with data.
func (p *Prompt) Render(data PromptData) (string, error) {
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering system prompt: %w", err)
	}
	return buf.String(), nil
}

// NewPromptData collects template data from the tool catalog.
func NewPromptData(specs []api.ToolSpec, maxIterations int, readOnly bool, protected []string) PromptData {
	data := PromptData{
		MaxIterations:       maxIterations,
		ReadOnly:            readOnly,
		ProtectedNamespaces: protected,
		Now:                 time.Now(),
	}
	for _, s := range specs {
		data.Tools = append(data.Tools, s.Name)
		if s.Mutating() {
			data.MutatingTools = append(data.MutatingTools, s.Name)
		}
	}
	return data
}
