package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"kubeask/internal/agent"
	"kubeask/internal/api"
	"kubeask/pkg/logging"
)

// SSE event names.
const (
	EventTool   = "tool"
	EventAnswer = "answer"
	EventError  = "error"
)

type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &sseWriter{w: w, flusher: flusher}, true
}

func (s *sseWriter) send(event string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error("Transport", err, "Failed to encode %s event", event)
		return
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		logging.Debug("Transport", "SSE client went away: %v", err)
		return
	}
	s.flusher.Flush()
}

// streamAsk runs the request and forwards tool progress as it happens. The
// observer is invoked on the handler goroutine, so writes never race.
func (s *Server) streamAsk(ctx context.Context, w http.ResponseWriter, sessionID string, run func(agent.Observer) (agent.Result, error)) {
	stream, ok := newSSEWriter(w)
	if !ok {
		writeError(w, &api.InternalError{Err: fmt.Errorf("streaming not supported")}, sessionID)
		return
	}

	obs := agent.ObserverFunc(func(e agent.Event) {
		switch e.Type {
		case agent.EventToolStarted, agent.EventToolFinished:
			if ctx.Err() == nil {
				stream.send(EventTool, e)
			}
		}
	})

	res, err := run(obs)
	if err != nil {
		stream.send(EventError, errorResponse(err, sessionID))
		return
	}
	stream.send(EventAnswer, AskResponse{Response: res.Answer, SessionID: sessionID})
}
