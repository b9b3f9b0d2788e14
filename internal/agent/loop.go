package agent

import (
	"context"
	"errors"
	"time"

	"kubeask/internal/api"
	"kubeask/internal/llm"
	"kubeask/internal/metrics"
	"kubeask/internal/session"
	"kubeask/internal/tools"
	"kubeask/pkg/logging"
)

// State is the loop state of a run.
type State string

const (
	StateAwaitingModel State = "AWAITING_MODEL"
	StateExecutingTool State = "EXECUTING_TOOL"
	StateDone          State = "DONE"
	StateAborted       State = "ABORTED"
)

// BudgetExhaustedAnswer is returned when the step budget runs out.
const BudgetExhaustedAnswer = "Unable to complete the request within the step budget."

const (
	DefaultMaxIterations = 10
	DefaultModelTimeout  = 60 * time.Second
	DefaultToolTimeout   = 20 * time.Second
)

// Registry is the part of the tool registry the loop needs. *tools.Registry
// implements it.
type Registry interface {
	Specs() []api.ToolSpec
	InputSchema(name string) (map[string]interface{}, error)
	Execute(ctx context.Context, call api.ToolCall) api.ToolResult
	Policy() tools.Policy
}

// Config bounds a run.
type Config struct {
	ModelTimeout time.Duration
	ToolTimeout  time.Duration
	// SystemPrompt is a text/template; empty selects DefaultSystemPrompt.
	SystemPrompt string
}

// Result is the outcome of a run.
type Result struct {
	Answer     string
	State      State
	Iterations int
}

// Loop drives sessions through the model and tool registry.
type Loop struct {
	model    llm.Model
	registry Registry
	cfg      Config
	prompt   *Prompt
	defs     []llm.ToolDefinition
	metrics  *metrics.Metrics
}

// Option configures a Loop.
type Option func(*Loop)

// WithMetrics records model and tool metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Loop) { l.metrics = m }
}

// NewLoop creates a Loop. Tool definitions are computed once, the registry
// being read-only after startup.
func NewLoop(model llm.Model, registry Registry, cfg Config, opts ...Option) (*Loop, error) {
	if model == nil {
		return nil, errors.New("agent: model is required")
	}
	if registry == nil {
		return nil, errors.New("agent: tool registry is required")
	}
	if cfg.ModelTimeout <= 0 {
		cfg.ModelTimeout = DefaultModelTimeout
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = DefaultToolTimeout
	}

	prompt, err := ParsePrompt(cfg.SystemPrompt)
	if err != nil {
		return nil, err
	}

	l := &Loop{model: model, registry: registry, cfg: cfg, prompt: prompt}
	for _, spec := range registry.Specs() {
		schema, err := registry.InputSchema(spec.Name)
		if err != nil {
			return nil, err
		}
		l.defs = append(l.defs, llm.ToolDefinition{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: schema,
		})
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Tools returns the tool definitions presented to the model.
func (l *Loop) Tools() []llm.ToolDefinition {
	return l.defs
}

// ModelName returns the configured model's name.
func (l *Loop) ModelName() string {
	return l.model.Name()
}

// Run answers query within sess. The caller must hold the session lease.
//
// On success the final answer is returned with StateDone. A spent step budget
// returns BudgetExhaustedAnswer together with *api.StepBudgetExceededError.
// Cancellation returns *api.CancelledError and an unreachable model
// *api.TransportFault; in both cases the session history ends on the last
// complete call/result pair.
func (l *Loop) Run(ctx context.Context, sess *session.Session, query string, obs Observer) (Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sess.SetCancelFunc(cancel)
	ctx = tools.ContextWithSessionID(ctx, sess.ID)

	l.metrics.RunStarted()
	sid := logging.TruncateSessionID(sess.ID)

	system, err := l.systemPrompt(sess.MaxIterations)
	if err != nil {
		return l.finish(sess, obs, Result{State: StateAborted}, &api.InternalError{Err: err})
	}

	sess.Status = session.StatusActive
	sess.Append(api.UserMessage(query))
	state := StateAwaitingModel
	logging.Info("Agent", "Session %s: starting run with budget of %d tool calls", sid, sess.MaxIterations)

	for {
		if cancelled(ctx, sess) {
			return l.abortCancelled(ctx, sess, obs)
		}

		step, err := l.nextStep(ctx, system, sess)
		if err != nil {
			if cancelled(ctx, sess) {
				return l.abortCancelled(ctx, sess, obs)
			}
			if !isModelTimeout(err) {
				logging.Error("Agent", err, "Session %s: model call failed", sid)
				return l.finish(sess, obs, Result{State: StateAborted, Iterations: sess.IterationCount},
					&api.TransportFault{Source: "model", Err: err})
			}
			if sess.IterationCount >= sess.MaxIterations {
				return l.abortBudget(sess, obs)
			}
			sess.IterationCount++
			logging.Warn("Agent", "Session %s: model timed out after %s, retrying (%d/%d)",
				sid, l.cfg.ModelTimeout, sess.IterationCount, sess.MaxIterations)
			continue
		}

		if step.Kind == llm.StepFinal {
			sess.Append(api.AnswerMessage(step.Text))
			state = StateDone
			return l.finish(sess, obs, Result{Answer: step.Text, State: state, Iterations: sess.IterationCount}, nil)
		}

		if sess.IterationCount >= sess.MaxIterations {
			return l.abortBudget(sess, obs)
		}

		call := step.Call
		var result api.ToolResult
		if step.Kind == llm.StepMalformed {
			logging.Warn("Agent", "Session %s: malformed model output: %s", sid, step.Problem)
			result = api.ErrorResult(call, api.NewInvalidArgumentsError(call.ToolName, "", step.Problem))
		} else {
			state = StateExecutingTool
			emit(obs, Event{
				Type:      EventToolStarted,
				SessionID: sess.ID,
				Iteration: sess.IterationCount + 1,
				CallID:    call.CallID,
				ToolName:  call.ToolName,
				Arguments: call.Arguments,
			})
			result = l.executeTool(ctx, call)
			if result.IsError() && cancelled(ctx, sess) {
				// The call was cut short; drop it so the history ends on a
				// complete pair.
				return l.abortCancelled(ctx, sess, obs)
			}
		}

		sess.Append(api.ToolCallMessage(step.Text, call))
		sess.Append(api.ToolResultMessage(result))
		sess.IterationCount++
		state = StateAwaitingModel

		emit(obs, Event{
			Type:      EventToolFinished,
			SessionID: sess.ID,
			Iteration: sess.IterationCount,
			CallID:    call.CallID,
			ToolName:  call.ToolName,
			Status:    result.Status,
			ErrorKind: result.ErrorKind,
			Message:   result.Message,
		})
		logging.Debug("Agent", "Session %s: %s -> %s %s (%d/%d, state %s)",
			sid, call.ToolName, result.Status, result.ErrorKind, sess.IterationCount, sess.MaxIterations, state)

		if result.ErrorKind == api.KindTransportFault {
			return l.abortUnreachable(sess, obs, result)
		}
	}
}

func (l *Loop) systemPrompt(maxIterations int) (string, error) {
	policy := l.registry.Policy()
	return l.prompt.Render(NewPromptData(l.registry.Specs(), maxIterations, policy.ReadOnly, policy.ProtectedNamespaces))
}

func (l *Loop) nextStep(ctx context.Context, system string, sess *session.Session) (llm.Step, error) {
	modelCtx, cancel := context.WithTimeout(ctx, l.cfg.ModelTimeout)
	defer cancel()

	started := time.Now()
	step, err := l.model.Next(modelCtx, llm.Request{
		System:   system,
		Messages: sess.Messages,
		Tools:    l.defs,
	})

	outcome := "ok"
	switch {
	case err != nil && isModelTimeout(err):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	}
	l.metrics.ObserveModelCall(l.model.Name(), outcome, time.Since(started))
	return step, err
}

func (l *Loop) executeTool(ctx context.Context, call api.ToolCall) api.ToolResult {
	toolCtx, cancel := context.WithTimeout(ctx, l.cfg.ToolTimeout)
	defer cancel()

	started := time.Now()
	result := l.registry.Execute(toolCtx, call)
	l.metrics.ObserveToolCall(call.ToolName, string(result.Status), string(result.ErrorKind), time.Since(started))
	return result
}

func (l *Loop) abortBudget(sess *session.Session, obs Observer) (Result, error) {
	logging.Warn("Agent", "Session %s: step budget of %d exhausted", logging.TruncateSessionID(sess.ID), sess.MaxIterations)
	sess.Append(api.AnswerMessage(BudgetExhaustedAnswer))
	return l.finish(sess, obs,
		Result{Answer: BudgetExhaustedAnswer, State: StateAborted, Iterations: sess.IterationCount},
		&api.StepBudgetExceededError{MaxIterations: sess.MaxIterations})
}

// abortUnreachable ends a run whose tool could not reach the cluster at all.
// The failed pair stays in the history.
func (l *Loop) abortUnreachable(sess *session.Session, obs Observer, result api.ToolResult) (Result, error) {
	var fault *api.TransportFault
	if !errors.As(result.Err, &fault) {
		fault = &api.TransportFault{Source: "cluster", Err: errors.New(result.Message)}
	}
	logging.Error("Agent", fault, "Session %s: aborting run", logging.TruncateSessionID(sess.ID))
	return l.finish(sess, obs, Result{State: StateAborted, Iterations: sess.IterationCount}, fault)
}

// abortCancelled ends a run stopped from outside. An expired request
// deadline is reported as a timeout rather than a cancellation.
func (l *Loop) abortCancelled(ctx context.Context, sess *session.Session, obs Observer) (Result, error) {
	logging.Info("Agent", "Session %s: run stopped after %d tool calls", logging.TruncateSessionID(sess.ID), sess.IterationCount)
	var err error = &api.CancelledError{SessionID: sess.ID}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !sess.Cancelled() {
		err = &api.TimeoutError{Operation: "request", Timeout: requestTimeout(ctx)}
	}
	return l.finish(sess, obs, Result{State: StateAborted, Iterations: sess.IterationCount}, err)
}

func requestTimeout(ctx context.Context) time.Duration {
	if v, ok := ctx.Value(requestTimeoutKey{}).(time.Duration); ok {
		return v
	}
	return 0
}

type requestTimeoutKey struct{}

// WithRequestTimeout bounds ctx by d and remembers d for error reporting.
func WithRequestTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, requestTimeoutKey{}, d)
	return context.WithTimeout(ctx, d)
}

// finish records the terminal state and notifies the observer.
func (l *Loop) finish(sess *session.Session, obs Observer, res Result, err error) (Result, error) {
	kind := api.KindOf(err)
	if res.State == StateDone {
		sess.Status = session.StatusCompleted
		emit(obs, Event{Type: EventAnswer, SessionID: sess.ID, Iteration: res.Iterations, Answer: res.Answer})
	} else {
		sess.Status = session.StatusAborted
		emit(obs, Event{
			Type:      EventAborted,
			SessionID: sess.ID,
			Iteration: res.Iterations,
			ErrorKind: kind,
			Message:   errorMessage(err),
			Answer:    res.Answer,
		})
	}
	l.metrics.RunFinished(string(res.State), string(kind), res.Iterations)
	return res, err
}

func cancelled(ctx context.Context, sess *session.Session) bool {
	return ctx.Err() != nil || sess.Cancelled()
}

func isModelTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || api.IsTimeout(err)
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
