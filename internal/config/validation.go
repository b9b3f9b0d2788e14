package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidatePort checks that a TCP port is in range.
func ValidatePort(field string, port int) error {
	if port < 1 || port > 65535 {
		return ValidationError{Field: field, Value: port, Message: "must be between 1 and 65535"}
	}
	return nil
}

// Validate checks the whole configuration and reports every problem at once.
func (c KubeaskConfig) Validate() error {
	var errs ValidationErrors
	add := func(err error) {
		if ve, ok := err.(ValidationError); ok {
			errs = append(errs, ve)
		}
	}

	add(ValidatePort("server.port", c.Server.Port))
	add(ValidateOneOf("server.deliveryMode", string(c.Server.DeliveryMode),
		[]string{string(DeliverySync), string(DeliveryStream)}))
	if c.Server.RequestTimeout < 0 {
		errs.Add("server.requestTimeout", "must not be negative", c.Server.RequestTimeout)
	}

	if c.Agent.MaxIterations < 1 {
		errs.Add("agent.maxIterations", "must be at least 1", c.Agent.MaxIterations)
	}
	if c.Agent.ModelTimeout <= 0 {
		errs.Add("agent.modelTimeout", "must be positive", c.Agent.ModelTimeout)
	}
	if c.Agent.ToolTimeout <= 0 {
		errs.Add("agent.toolTimeout", "must be positive", c.Agent.ToolTimeout)
	}

	add(ValidateOneOf("model.provider", c.Model.Provider, []string{ProviderAnthropic, ProviderOpenAI}))
	if strings.TrimSpace(c.Model.Name) == "" {
		errs.Add("model.name", "is required")
	}
	if c.Model.MaxTokens < 1 {
		errs.Add("model.maxTokens", "must be at least 1", c.Model.MaxTokens)
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		errs.Add("model.temperature", "must be between 0 and 2", c.Model.Temperature)
	}

	if c.Cluster.Timeout <= 0 {
		errs.Add("cluster.timeout", "must be positive", c.Cluster.Timeout)
	}
	for _, ns := range c.Cluster.ProtectedNamespaces {
		if strings.TrimSpace(ns) == "" {
			errs.Add("cluster.protectedNamespaces", "must not contain empty names")
			break
		}
	}

	if c.Session.IdleTTL <= 0 {
		errs.Add("session.idleTTL", "must be positive", c.Session.IdleTTL)
	}

	if c.MCP.Enabled {
		add(ValidateOneOf("mcp.transport", c.MCP.Transport, []string{MCPTransportStreamableHTTP, MCPTransportStdio}))
		if c.MCP.Transport == MCPTransportStreamableHTTP {
			add(ValidatePort("mcp.port", c.MCP.Port))
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
