package tools

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"kubeask/internal/api"
)

// propertySchema renders the JSON Schema of a single parameter.
func propertySchema(p api.ParameterSpec) map[string]interface{} {
	prop := map[string]interface{}{
		"type": string(p.Type),
	}
	if p.Description != "" {
		prop["description"] = p.Description
	}
	if p.Default != nil {
		prop["default"] = p.Default
	}
	if len(p.Enum) > 0 {
		prop["enum"] = p.Enum
	}
	if p.Minimum != nil {
		prop["minimum"] = *p.Minimum
	}
	if p.Maximum != nil {
		prop["maximum"] = *p.Maximum
	}
	if p.Pattern != "" {
		prop["pattern"] = p.Pattern
	}
	if p.MaxLength > 0 {
		prop["maxLength"] = p.MaxLength
	}
	return prop
}

// inputSchema renders the object schema of a tool's parameters.
func inputSchema(spec api.ToolSpec) map[string]interface{} {
	properties := make(map[string]interface{}, len(spec.Parameters))
	required := make([]string, 0)
	for _, p := range spec.Parameters {
		properties[p.Name] = propertySchema(p)
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]interface{}{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

// compileParameters compiles one validator per parameter so values can be
// checked individually in declaration order.
func compileParameters(spec api.ToolSpec) (map[string]*gojsonschema.Schema, error) {
	compiled := make(map[string]*gojsonschema.Schema, len(spec.Parameters))
	for _, p := range spec.Parameters {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(propertySchema(p)))
		if err != nil {
			return nil, fmt.Errorf("invalid schema for parameter %s of tool %s: %w", p.Name, spec.Name, err)
		}
		compiled[p.Name] = schema
	}
	return compiled, nil
}

// checkValue validates value against a compiled parameter schema and returns
// a human readable reason on failure.
func checkValue(schema *gojsonschema.Schema, value interface{}) (string, error) {
	result, err := schema.Validate(gojsonschema.NewGoLoader(value))
	if err != nil {
		return "", err
	}
	if result.Valid() {
		return "", nil
	}
	reasons := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		reasons = append(reasons, e.Description())
	}
	return strings.Join(reasons, "; "), nil
}
