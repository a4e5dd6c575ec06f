// Package client talks to a dtree server over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"dtree/advisor"
	"dtree/communication"
	"dtree/solver"
)

const defaultTimeout = 30 * time.Second

var ErrUnexpectedStatus = errors.New("unexpected status")

type ClientCommunicator struct {
	serverURL  string
	httpClient *http.Client
}

// NewClientCommunicator initializes and returns a new ClientCommunicator.
func NewClientCommunicator(serverURL string) *ClientCommunicator {
	return &ClientCommunicator{
		serverURL:  strings.TrimSuffix(serverURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

func (cc *ClientCommunicator) GetView(ctx context.Context) (communication.View, error) {
	var view communication.View
	err := cc.do(ctx, http.MethodGet, "/api/view", nil, &view)
	return view, err
}

func (cc *ClientCommunicator) SendAction(ctx context.Context, action communication.Action) (communication.Result, error) {
	var method, path string
	var body any

	switch action.Kind {
	case communication.ActionStep, communication.ActionAuto, communication.ActionCancel, communication.ActionReset:
		method, path = http.MethodPost, "/api/"+string(action.Kind)
	case communication.ActionAddChild:
		method, path = http.MethodPost, nodePath(action.NodeID)+"/children"
		body = map[string]any{"type": action.NodeType}
	case communication.ActionUpdate:
		if action.Patch == nil {
			return communication.Result{}, fmt.Errorf("%w: update without patch", communication.ErrBadRequest)
		}
		method, path, body = http.MethodPatch, nodePath(action.NodeID), action.Patch
	case communication.ActionDelete:
		method, path = http.MethodDelete, nodePath(action.NodeID)
	case communication.ActionLoad:
		if action.Tree == nil {
			return communication.Result{}, fmt.Errorf("%w: load without tree", communication.ErrBadRequest)
		}
		method, path, body = http.MethodPut, "/api/tree", action.Tree
	default:
		return communication.Result{}, fmt.Errorf("%w: %q", communication.ErrUnknownAction, action.Kind)
	}

	var result communication.Result
	err := cc.do(ctx, method, path, body, &result)
	return result, err
}

func (cc *ClientCommunicator) Advise(ctx context.Context) (string, error) {
	var resp struct {
		Analysis string `json:"analysis"`
	}
	if err := cc.do(ctx, http.MethodPost, "/api/advise", nil, &resp); err != nil {
		return "", err
	}
	return resp.Analysis, nil
}

// Stream subscribes to the server's view stream. The channel is closed when
// the connection ends or ctx is done.
func (cc *ClientCommunicator) Stream(ctx context.Context) (<-chan communication.View, error) {
	u, err := url.Parse(cc.serverURL + "/api/stream")
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	views := make(chan communication.View)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()
	go func() {
		defer close(views)
		defer close(done)
		for {
			var view communication.View
			if err := conn.ReadJSON(&view); err != nil {
				log.Debug().Err(err).Msg("stream ended")
				return
			}
			select {
			case views <- view:
			case <-ctx.Done():
				return
			}
		}
	}()
	return views, nil
}

func (cc *ClientCommunicator) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, cc.serverURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := cc.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var failure struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&failure)
		return fmt.Errorf("%w: %s", errorOf(resp.StatusCode), failure.Error)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func nodePath(id string) string {
	return "/api/nodes/" + url.PathEscape(id)
}

// errorOf turns a status code back into the error the server reported.
func errorOf(status int) error {
	switch status {
	case http.StatusNotFound:
		return solver.ErrNotFound
	case http.StatusConflict:
		return solver.ErrInvalidTopology
	case http.StatusBadRequest:
		return communication.ErrBadRequest
	case http.StatusBadGateway:
		return advisor.ErrServiceFailure
	case http.StatusServiceUnavailable:
		return advisor.ErrMissingKey
	case http.StatusGone:
		return communication.ErrClosed
	default:
		return fmt.Errorf("%w %d", ErrUnexpectedStatus, status)
	}
}
