package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"kubeask/internal/api"
	"kubeask/internal/cluster"
	"kubeask/internal/llm"
	"kubeask/internal/session"
	"kubeask/internal/tools"
)

// stepFunc produces one scripted model response.
type stepFunc func(ctx context.Context, req llm.Request) (llm.Step, error)

// scriptedModel replays steps in order and repeats the last one forever.
type scriptedModel struct {
	mu       sync.Mutex
	steps    []stepFunc
	requests []llm.Request
}

func newScriptedModel(steps ...stepFunc) *scriptedModel {
	return &scriptedModel{steps: steps}
}

func (m *scriptedModel) Name() string { return "scripted/test" }

func (m *scriptedModel) Next(ctx context.Context, req llm.Request) (llm.Step, error) {
	m.mu.Lock()
	i := len(m.requests)
	m.requests = append(m.requests, req)
	if i >= len(m.steps) {
		i = len(m.steps) - 1
	}
	fn := m.steps[i]
	m.mu.Unlock()
	return fn(ctx, req)
}

func (m *scriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func answer(text string) stepFunc {
	return func(context.Context, llm.Request) (llm.Step, error) {
		return llm.Step{Kind: llm.StepFinal, Text: text}, nil
	}
}

var callCounter atomic.Int64

func toolCall(name string, args map[string]interface{}) stepFunc {
	return func(context.Context, llm.Request) (llm.Step, error) {
		id := fmt.Sprintf("call_%d", callCounter.Add(1))
		return llm.Step{Kind: llm.StepToolCall, Call: api.ToolCall{CallID: id, ToolName: name, Arguments: args}}, nil
	}
}

func malformed() stepFunc {
	return func(context.Context, llm.Request) (llm.Step, error) {
		return llm.Interpret("", []llm.RawCall{{ID: "bad", Name: "list_pods", Arguments: "{not json"}}), nil
	}
}

// echoLastToolResult answers with the content of the most recent tool message.
func echoLastToolResult(prefix string) stepFunc {
	return func(_ context.Context, req llm.Request) (llm.Step, error) {
		for i := len(req.Messages) - 1; i >= 0; i-- {
			if req.Messages[i].Role == api.RoleTool {
				return llm.Step{Kind: llm.StepFinal, Text: prefix + req.Messages[i].Content}, nil
			}
		}
		return llm.Step{Kind: llm.StepFinal, Text: prefix}, nil
	}
}

// countingRegistry counts executions on top of a real registry.
type countingRegistry struct {
	*tools.Registry
	executions atomic.Int32
}

func (c *countingRegistry) Execute(ctx context.Context, call api.ToolCall) api.ToolResult {
	c.executions.Add(1)
	return c.Registry.Execute(ctx, call)
}

func demoClientset() *fake.Clientset {
	replicas := int32(2)
	return fake.NewClientset(
		&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "demo"}},
		&corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "web-1", Namespace: "demo"}},
		&corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "web-2", Namespace: "demo"}},
		&appsv1.Deployment{
			ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "demo"},
			Spec:       appsv1.DeploymentSpec{Replicas: &replicas},
		},
	)
}

type fixture struct {
	client   *fake.Clientset
	registry *countingRegistry
	store    *session.Store
}

func newFixture(t *testing.T, policy tools.Policy) *fixture {
	t.Helper()
	client := demoClientset()
	registry, err := tools.NewCatalogRegistry(cluster.NewAdapter(client, 5*time.Second), policy)
	require.NoError(t, err)
	return &fixture{
		client:   client,
		registry: &countingRegistry{Registry: registry},
		store:    session.NewStore(3, time.Minute),
	}
}

func (f *fixture) loop(t *testing.T, model llm.Model, cfg Config) *Loop {
	t.Helper()
	l, err := NewLoop(model, f.registry, cfg)
	require.NoError(t, err)
	return l
}

func (f *fixture) session(t *testing.T) *session.Session {
	t.Helper()
	sess, err := f.store.Acquire("")
	require.NoError(t, err)
	return sess
}

func toolMessages(sess *session.Session) []api.Message {
	var out []api.Message
	for _, m := range sess.Messages {
		if m.Role == api.RoleTool {
			out = append(out, m)
		}
	}
	return out
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
