package cmd

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kubeask/internal/agent"
	"kubeask/internal/api"
	"kubeask/internal/session"
	"kubeask/internal/tools"
	"kubeask/internal/transport"
)

type runFunc func(ctx context.Context, sess *session.Session, query string, obs agent.Observer) (agent.Result, error)

func (f runFunc) Run(ctx context.Context, sess *session.Session, query string, obs agent.Observer) (agent.Result, error) {
	return f(ctx, sess, query, obs)
}

func newAskServer(t *testing.T, stream bool, runner runFunc) (*askClient, *session.Store) {
	t.Helper()
	store := session.NewStore(5, time.Minute)
	srv := transport.NewServer(transport.Config{Stream: stream}, runner, store, tools.NewRegistry(tools.DefaultPolicy()))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return newAskClient(ts.URL+"/", 5*time.Second), store
}

func podsAnswer(_ context.Context, sess *session.Session, query string, obs agent.Observer) (agent.Result, error) {
	obs.OnEvent(agent.Event{Type: agent.EventToolStarted, SessionID: sess.ID, ToolName: "list_pods", Iteration: 1})
	obs.OnEvent(agent.Event{Type: agent.EventToolFinished, SessionID: sess.ID, ToolName: "list_pods", Iteration: 1, Status: api.StatusOK})
	sess.Append(api.UserMessage(query))
	sess.Append(api.AnswerMessage("**2 pods** are running."))
	return agent.Result{Answer: "**2 pods** are running.", State: agent.StateDone}, nil
}

func TestAskClient_Stream(t *testing.T) {
	client, _ := newAskServer(t, false, podsAnswer)

	var mu sync.Mutex
	var events []agent.Event
	resp, err := client.Ask(context.Background(), "how many pods?", "", func(e agent.Event) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
	})
	require.NoError(t, err)
	assert.Equal(t, "**2 pods** are running.", resp.Response)
	assert.NotEmpty(t, resp.SessionID)

	require.Len(t, events, 2)
	assert.Equal(t, agent.EventToolStarted, events[0].Type)
	assert.Equal(t, "list_pods", events[0].ToolName)
	assert.Equal(t, agent.EventToolFinished, events[1].Type)
}

func TestAskClient_ContinuesSession(t *testing.T) {
	client, _ := newAskServer(t, false, podsAnswer)

	first, err := client.Ask(context.Background(), "how many pods?", "", nil)
	require.NoError(t, err)
	second, err := client.Ask(context.Background(), "and now?", first.SessionID, nil)
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)
}

func TestAskClient_ErrorBeforeStream(t *testing.T) {
	client, _ := newAskServer(t, false, podsAnswer)

	_, err := client.Ask(context.Background(), "hi", "no-such-session", nil)
	require.Error(t, err)

	var remote *remoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, http.StatusNotFound, remote.StatusCode)
	assert.Equal(t, api.KindNotFound, remote.Kind())
}

func TestAskClient_ErrorEvent(t *testing.T) {
	client, _ := newAskServer(t, true, func(context.Context, *session.Session, string, agent.Observer) (agent.Result, error) {
		return agent.Result{State: agent.StateAborted}, &api.StepBudgetExceededError{MaxIterations: 2}
	})

	_, err := client.Ask(context.Background(), "loop forever", "", nil)
	require.Error(t, err)

	var remote *remoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, api.KindStepBudgetExceeded, remote.Kind())
	assert.NotEmpty(t, remote.SessionID)
	assert.Equal(t, ExitCodeBudgetExceeded, getExitCode(err))
}

func TestAskClient_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := newAskClient(url, time.Second).Ask(context.Background(), "hi", "", nil)
	require.Error(t, err)
	assert.Equal(t, api.KindTransportFault, api.KindOf(err))
}

func TestAskClient_Cancel(t *testing.T) {
	started := make(chan string, 1)
	client, _ := newAskServer(t, false, func(ctx context.Context, sess *session.Session, _ string, _ agent.Observer) (agent.Result, error) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		sess.SetCancelFunc(cancel)
		started <- sess.ID
		<-ctx.Done()
		if sess.Cancelled() {
			return agent.Result{State: agent.StateAborted}, &api.CancelledError{SessionID: sess.ID}
		}
		return agent.Result{State: agent.StateAborted}, ctx.Err()
	})

	errs := make(chan error, 1)
	go func() {
		_, err := client.Ask(context.Background(), "slow", "", nil)
		errs <- err
	}()

	id := <-started
	require.NoError(t, client.Cancel(context.Background(), id))

	err := <-errs
	require.Error(t, err)
	assert.Equal(t, api.KindCancelled, api.KindOf(err))

	err = client.Cancel(context.Background(), "missing")
	assert.Equal(t, api.KindNotFound, api.KindOf(err))
}

func TestReadAskStream(t *testing.T) {
	stream := "event: tool\ndata: {\"type\":\"tool_started\",\"tool_name\":\"list_nodes\"}\n\n" +
		": keep-alive\n\n" +
		"event: answer\ndata: {\"response\":\"all nodes ready\",\"session_id\":\"s1\"}\n\n"

	var names []string
	resp, err := readAskStream(strings.NewReader(stream), func(e agent.Event) { names = append(names, e.ToolName) })
	require.NoError(t, err)
	assert.Equal(t, "all nodes ready", resp.Response)
	assert.Equal(t, "s1", resp.SessionID)
	assert.Equal(t, []string{"list_nodes"}, names)
}

func TestReadAskStream_Truncated(t *testing.T) {
	_, err := readAskStream(strings.NewReader("event: tool\ndata: {}\n\n"), nil)
	require.Error(t, err)
	assert.Equal(t, api.KindTransportFault, api.KindOf(err))
}

func TestAskOnce_PrintsAnswer(t *testing.T) {
	client, _ := newAskServer(t, false, podsAnswer)

	var out, errOut bytes.Buffer
	id, err := askOnce(context.Background(), client, "how many pods?", "", newAnswerRenderer(true), &out, &errOut)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, "**2 pods** are running.\n", out.String())
}

func TestAskOnce_PrintsError(t *testing.T) {
	client, _ := newAskServer(t, false, podsAnswer)

	var out, errOut bytes.Buffer
	_, err := askOnce(context.Background(), client, "hi", "gone", newAnswerRenderer(true), &out, &errOut)
	require.Error(t, err)
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "Unknown or expired session")
}

func TestAnswerRenderer_Markdown(t *testing.T) {
	rendered := newAnswerRenderer(false)("# Pods\n\n- web-1 is **Running**")
	assert.Contains(t, rendered, "web-1")
}
