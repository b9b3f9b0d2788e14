package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"kubeask/internal/agent"
	"kubeask/internal/api"
	"kubeask/pkg/logging"
)

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// AskResponse is the successful reply to POST /ask.
type AskResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// ErrorBody describes a failure.
type ErrorBody struct {
	Kind    api.ErrorKind `json:"kind"`
	Message string        `json:"message"`
}

// ErrorResponse is the reply for any failed request.
type ErrorResponse struct {
	Error     ErrorBody `json:"error"`
	SessionID string    `json:"session_id,omitempty"`
}

// ToolInfo describes one tool in GET /tools.
type ToolInfo struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Effect      api.EffectClass        `json:"effect"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAsk(w, r)
	if err != nil {
		writeError(w, err, "")
		return
	}

	sess, err := s.store.Acquire(req.SessionID)
	if err != nil {
		writeError(w, err, req.SessionID)
		return
	}
	defer s.store.Release(sess)

	ctx := r.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = agent.WithRequestTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	if s.wantsStream(r) {
		s.streamAsk(ctx, w, sess.ID, func(obs agent.Observer) (agent.Result, error) {
			return s.runner.Run(ctx, sess, req.Query, obs)
		})
		return
	}

	res, err := s.runner.Run(ctx, sess, req.Query, nil)
	if err != nil {
		writeError(w, err, sess.ID)
		return
	}
	writeJSON(w, http.StatusOK, AskResponse{Response: res.Answer, SessionID: sess.ID})
}

func decodeAsk(w http.ResponseWriter, r *http.Request) (AskRequest, error) {
	var req AskRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, &api.BadRequestError{Reason: "request body is empty"}
		}
		return req, &api.BadRequestError{Reason: "invalid JSON body: " + err.Error()}
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return req, &api.BadRequestError{Reason: "query must not be empty"}
	}
	return req, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			logging.Warn("Transport", "Readiness check failed: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	specs := s.catalog.Specs()
	out := make([]ToolInfo, 0, len(specs))
	for _, spec := range specs {
		schema, err := s.catalog.InputSchema(spec.Name)
		if err != nil {
			writeError(w, &api.InternalError{Err: err}, "")
			return
		}
		out = append(out, ToolInfo{
			Name:        spec.Name,
			Description: spec.Description,
			Effect:      spec.Effect,
			InputSchema: schema,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.store.Get(id)
	if err != nil {
		writeError(w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(id); err != nil {
		writeError(w, err, id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	running, err := s.store.Cancel(id)
	if err != nil {
		writeError(w, err, id)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"session_id": id, "cancelled": running})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("Transport", err, "Failed to encode response")
	}
}

func errorResponse(err error, sessionID string) ErrorResponse {
	return ErrorResponse{
		Error:     ErrorBody{Kind: api.KindOf(err), Message: err.Error()},
		SessionID: sessionID,
	}
}

func writeError(w http.ResponseWriter, err error, sessionID string) {
	kind := api.KindOf(err)
	status := api.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		logging.Error("Transport", err, "Request failed with %s", kind)
	}
	writeJSON(w, status, errorResponse(err, sessionID))
}
