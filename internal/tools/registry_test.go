package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kubeask/internal/api"
)

func echoSpec(name string) api.ToolSpec {
	return api.ToolSpec{
		Name:   name,
		Effect: api.EffectReadOnly,
		Parameters: []api.ParameterSpec{
			{Name: "b", Type: api.ParamString, Required: true},
			{Name: "a", Type: api.ParamString, Required: true},
			{Name: "count", Type: api.ParamInteger, Default: 5, Minimum: bound(1), Maximum: bound(10)},
			{Name: "mode", Type: api.ParamString, Enum: []string{"fast", "slow"}},
		},
		Handler: func(ctx context.Context, args api.Arguments) (interface{}, error) {
			return args, nil
		},
	}
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	r := NewRegistry(DefaultPolicy())
	require.NoError(t, r.Register(echoSpec("echo")))
	require.NoError(t, r.Register(echoSpec("echo2")))

	spec, err := r.Resolve("echo")
	require.NoError(t, err)
	assert.Equal(t, "echo", spec.Name)

	_, err = r.Resolve("missing")
	var unknown *api.UnknownToolError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "missing", unknown.ToolName)

	names := []string{}
	for _, s := range r.Specs() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"echo", "echo2"}, names)
}

func TestRegistry_DuplicateName(t *testing.T) {
	r := NewRegistry(DefaultPolicy())
	require.NoError(t, r.Register(echoSpec("echo")))

	err := r.Register(echoSpec("echo"))
	assert.Equal(t, api.KindDuplicateTool, api.KindOf(err))
}

func TestRegistry_RejectsBrokenSpecs(t *testing.T) {
	r := NewRegistry(DefaultPolicy())

	assert.Error(t, r.Register(api.ToolSpec{Name: "", Handler: echoSpec("x").Handler}))
	assert.Error(t, r.Register(api.ToolSpec{Name: "nohandler"}))

	dup := echoSpec("dup_params")
	dup.Parameters = append(dup.Parameters, api.ParameterSpec{Name: "a", Type: api.ParamString})
	assert.Error(t, r.Register(dup))
}

func TestRegistry_Frozen(t *testing.T) {
	r := NewRegistry(DefaultPolicy())
	r.Freeze()
	assert.ErrorIs(t, r.Register(echoSpec("late")), ErrRegistryFrozen)
}

func TestRegistry_ValidateOrder(t *testing.T) {
	r := NewRegistry(DefaultPolicy())
	require.NoError(t, r.Register(echoSpec("echo")))

	tests := []struct {
		name      string
		args      map[string]interface{}
		wantParam string
	}{
		{
			name:      "required checked in declaration order",
			args:      map[string]interface{}{"zzz": 1},
			wantParam: "b",
		},
		{
			name:      "second required parameter",
			args:      map[string]interface{}{"b": "x", "mode": 42},
			wantParam: "a",
		},
		{
			name:      "undeclared before type errors, sorted",
			args:      map[string]interface{}{"a": "x", "b": "y", "zeta": 1, "alpha": 2, "count": "many"},
			wantParam: "alpha",
		},
		{
			name:      "type errors in declaration order",
			args:      map[string]interface{}{"a": "x", "b": "y", "mode": "medium", "count": 99.0},
			wantParam: "count",
		},
		{
			name:      "enum violation",
			args:      map[string]interface{}{"a": "x", "b": "y", "mode": "medium"},
			wantParam: "mode",
		},
		{
			name:      "wrong type for string",
			args:      map[string]interface{}{"a": 1.0, "b": "y"},
			wantParam: "a",
		},
		{
			name:      "null required counts as missing",
			args:      map[string]interface{}{"a": "x", "b": nil},
			wantParam: "b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Validate(call("echo", tt.args))
			var invalid *api.InvalidArgumentsError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.wantParam, invalid.Parameter)
		})
	}
}

func TestRegistry_ValidateAppliesDefaults(t *testing.T) {
	r := NewRegistry(DefaultPolicy())
	require.NoError(t, r.Register(echoSpec("echo")))

	args, err := r.Validate(call("echo", map[string]interface{}{"a": "x", "b": "y"}))
	require.NoError(t, err)
	assert.Equal(t, 5, args["count"])
	_, hasMode := args["mode"]
	assert.False(t, hasMode)

	args, err = r.Validate(call("echo", map[string]interface{}{"a": "x", "b": "y", "count": 7.0}))
	require.NoError(t, err)
	assert.Equal(t, 7.0, args["count"])
}

func TestRegistry_ValidateRejectsFractionalInteger(t *testing.T) {
	r := NewRegistry(DefaultPolicy())
	require.NoError(t, r.Register(echoSpec("echo")))

	_, err := r.Validate(call("echo", map[string]interface{}{"a": "x", "b": "y", "count": 2.5}))
	assert.Equal(t, api.KindInvalidArguments, api.KindOf(err))
}

func TestRegistry_InputSchema(t *testing.T) {
	r := NewRegistry(DefaultPolicy())
	require.NoError(t, r.Register(echoSpec("echo")))

	schema, err := r.InputSchema("echo")
	require.NoError(t, err)
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])
	assert.Equal(t, []string{"b", "a"}, schema["required"])

	props := schema["properties"].(map[string]interface{})
	count := props["count"].(map[string]interface{})
	assert.Equal(t, "integer", count["type"])
	assert.Equal(t, 10.0, count["maximum"])

	_, err = r.InputSchema("missing")
	assert.Error(t, err)
}

func TestRegistry_ExecuteRecoversPanics(t *testing.T) {
	r := NewRegistry(DefaultPolicy())
	require.NoError(t, r.Register(api.ToolSpec{
		Name:   "boom",
		Effect: api.EffectReadOnly,
		Handler: func(ctx context.Context, args api.Arguments) (interface{}, error) {
			panic("kaboom")
		},
	}))

	res := r.Execute(context.Background(), call("boom", nil))
	assert.True(t, res.IsError())
	assert.Equal(t, api.KindInternal, res.ErrorKind)
	assert.Contains(t, res.Message, "kaboom")
	assert.Equal(t, "call-boom", res.CallID)
}

func TestRegistry_ExecuteTimesOutStuckHandler(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	r := NewRegistry(DefaultPolicy())
	require.NoError(t, r.Register(api.ToolSpec{
		Name:   "stuck",
		Effect: api.EffectReadOnly,
		Handler: func(ctx context.Context, args api.Arguments) (interface{}, error) {
			<-release
			return nil, nil
		},
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	res := r.Execute(ctx, call("stuck", nil))
	assert.Equal(t, api.KindTimeout, res.ErrorKind)
}

func TestRegistry_ExecuteNormalizesHandlerErrors(t *testing.T) {
	r := NewRegistry(DefaultPolicy())
	require.NoError(t, r.Register(api.ToolSpec{
		Name:   "fails",
		Effect: api.EffectReadOnly,
		Handler: func(ctx context.Context, args api.Arguments) (interface{}, error) {
			return nil, &api.TransportFault{Source: "cluster", Err: errors.New("connection refused")}
		},
	}))

	res := r.Execute(context.Background(), call("fails", nil))
	assert.Equal(t, api.StatusError, res.Status)
	assert.Equal(t, api.KindTransportFault, res.ErrorKind)

	res = r.Execute(context.Background(), call("nope", nil))
	assert.Equal(t, api.KindUnknownTool, res.ErrorKind)
}

func TestSessionIDContext(t *testing.T) {
	ctx := ContextWithSessionID(context.Background(), "abc")
	assert.Equal(t, "abc", SessionIDFromContext(ctx))
	assert.Empty(t, SessionIDFromContext(context.Background()))
}
