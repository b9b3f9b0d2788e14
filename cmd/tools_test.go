package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"kubeask/internal/api"
	"kubeask/internal/tools"
)

func TestPrintTools_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printTools(&buf, tools.NewCatalog(nil), outputTable, false))

	out := buf.String()
	for _, name := range []string{"NAME", "EFFECT", "list_pods", "restart_deployment", "scale_deployment", "namespace*"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, string(api.EffectMutating))
	assert.Contains(t, out, "...", "long descriptions are truncated")
}

func TestPrintTools_Wide(t *testing.T) {
	specs := []api.ToolSpec{{
		Name:        "describe_node",
		Description: strings.Repeat("conditions and taints ", 6),
		Effect:      api.EffectReadOnly,
	}}

	var buf bytes.Buffer
	require.NoError(t, printTools(&buf, specs, outputTable, true))
	assert.Contains(t, buf.String(), strings.TrimSpace(strings.Repeat("conditions and taints ", 6)))
	assert.NotContains(t, buf.String(), "...")
}

func TestPrintTools_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printTools(&buf, tools.NewCatalog(nil), outputJSON, false))

	var specs []api.ToolSpec
	require.NoError(t, json.Unmarshal(buf.Bytes(), &specs))
	require.Len(t, specs, len(tools.NewCatalog(nil)))
	assert.Equal(t, "list_pods", specs[0].Name)
	assert.NotEmpty(t, specs[0].Parameters)
}

func TestPrintTools_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printTools(&buf, tools.NewCatalog(nil), outputYAML, false))

	var specs []map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &specs))
	require.NotEmpty(t, specs)
	assert.Equal(t, "list_pods", specs[0]["name"])
	assert.Equal(t, "READ_ONLY", specs[0]["effect"])
}

func TestPrintTools_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := printTools(&buf, nil, "xml", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}

func TestParameterSummary(t *testing.T) {
	assert.Equal(t, "-", parameterSummary(nil))
	assert.Equal(t, "namespace*, label_selector", parameterSummary([]api.ParameterSpec{
		{Name: "namespace", Required: true},
		{Name: "label_selector"},
	}))
}
