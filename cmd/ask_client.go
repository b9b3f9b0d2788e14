package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"kubeask/internal/agent"
	"kubeask/internal/api"
	"kubeask/internal/transport"
)

const maxEventBytes = 1 << 20

// remoteError is a failure reported by a kubeask server.
type remoteError struct {
	StatusCode int
	Body       transport.ErrorBody
	SessionID  string
}

func (e *remoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Body.Kind, e.Body.Message)
}

func (e *remoteError) Kind() api.ErrorKind { return e.Body.Kind }

// askClient talks to the HTTP transport of a running kubeask server.
type askClient struct {
	baseURL string
	http    *http.Client
}

func newAskClient(baseURL string, timeout time.Duration) *askClient {
	return &askClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Ask posts query and waits for the answer. Tool progress is passed to
// onTool when the server streams it.
func (c *askClient) Ask(ctx context.Context, query, sessionID string, onTool func(agent.Event)) (transport.AskResponse, error) {
	body, err := json.Marshal(transport.AskRequest{Query: query, SessionID: sessionID})
	if err != nil {
		return transport.AskResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ask", bytes.NewReader(body))
	if err != nil {
		return transport.AskResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return transport.AskResponse{}, &api.TransportFault{Source: "kubeask server", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return transport.AskResponse{}, decodeRemoteError(resp)
	}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		return readAskStream(resp.Body, onTool)
	}

	var out transport.AskResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return transport.AskResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}

// Cancel asks the server to stop the request running in sessionID.
func (c *askClient) Cancel(ctx context.Context, sessionID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sessions/"+sessionID+"/cancel", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &api.TransportFault{Source: "kubeask server", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return decodeRemoteError(resp)
	}
	return nil
}

func decodeRemoteError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxEventBytes))
	var er transport.ErrorResponse
	if err := json.Unmarshal(data, &er); err != nil || er.Error.Kind == "" {
		return &remoteError{
			StatusCode: resp.StatusCode,
			Body: transport.ErrorBody{
				Kind:    api.KindInternal,
				Message: fmt.Sprintf("unexpected response %s: %s", resp.Status, strings.TrimSpace(string(data))),
			},
		}
	}
	return &remoteError{StatusCode: resp.StatusCode, Body: er.Error, SessionID: er.SessionID}
}

// readAskStream consumes server-sent events until an answer or error event.
func readAskStream(r io.Reader, onTool func(agent.Event)) (transport.AskResponse, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventBytes)

	var event string
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		case line == "":
			if event == "" && data.Len() == 0 {
				continue
			}
			payload := []byte(data.String())
			switch event {
			case transport.EventTool:
				var e agent.Event
				if err := json.Unmarshal(payload, &e); err == nil && onTool != nil {
					onTool(e)
				}
			case transport.EventAnswer:
				var out transport.AskResponse
				if err := json.Unmarshal(payload, &out); err != nil {
					return transport.AskResponse{}, fmt.Errorf("failed to decode answer: %w", err)
				}
				return out, nil
			case transport.EventError:
				var er transport.ErrorResponse
				if err := json.Unmarshal(payload, &er); err != nil {
					return transport.AskResponse{}, fmt.Errorf("failed to decode error event: %w", err)
				}
				return transport.AskResponse{}, &remoteError{StatusCode: http.StatusOK, Body: er.Error, SessionID: er.SessionID}
			}
			event = ""
			data.Reset()
		}
	}
	if err := scanner.Err(); err != nil {
		return transport.AskResponse{}, &api.TransportFault{Source: "kubeask server", Err: err}
	}
	return transport.AskResponse{}, &api.TransportFault{Source: "kubeask server", Err: io.ErrUnexpectedEOF}
}
