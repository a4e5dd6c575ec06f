package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"dtree/advisor"
	"dtree/communication"
	"dtree/solver"
	"dtree/tree"
)

type ChildRequest struct {
	Type tree.NodeType `json:"type"`
}

type AdviceResponse struct {
	Analysis string `json:"analysis"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Streams int    `json:"streams"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (sc *ServerCommunicator) handleGetView(w http.ResponseWriter, r *http.Request) {
	view, err := sc.engine.GetView(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (sc *ServerCommunicator) handleSimpleAction(kind communication.ActionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc.act(w, r, communication.Action{Kind: kind})
	}
}

func (sc *ServerCommunicator) handleAddChild(w http.ResponseWriter, r *http.Request) {
	var req ChildRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	sc.act(w, r, communication.Action{
		Kind:     communication.ActionAddChild,
		NodeID:   chi.URLParam(r, "nodeID"),
		NodeType: req.Type,
	})
}

func (sc *ServerCommunicator) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch tree.Patch
	if err := decode(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}
	sc.act(w, r, communication.Action{
		Kind:   communication.ActionUpdate,
		NodeID: chi.URLParam(r, "nodeID"),
		Patch:  &patch,
	})
}

func (sc *ServerCommunicator) handleDelete(w http.ResponseWriter, r *http.Request) {
	sc.act(w, r, communication.Action{
		Kind:   communication.ActionDelete,
		NodeID: chi.URLParam(r, "nodeID"),
	})
}

// handleLoad accepts a JSON snapshot, or YAML when the content type says so.
func (sc *ServerCommunicator) handleLoad(w http.ResponseWriter, r *http.Request) {
	format := tree.JSON
	if mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil {
		switch mediaType {
		case "application/yaml", "application/x-yaml", "text/yaml":
			format = tree.YAML
		}
	}

	root, err := tree.Decode(http.MaxBytesReader(w, r.Body, maxBodySize), format)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %w", communication.ErrBadRequest, err))
		return
	}
	sc.act(w, r, communication.Action{Kind: communication.ActionLoad, Tree: root})
}

func (sc *ServerCommunicator) handleAdvise(w http.ResponseWriter, r *http.Request) {
	text, err := sc.engine.Advise(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AdviceResponse{Analysis: text})
}

func (sc *ServerCommunicator) act(w http.ResponseWriter, r *http.Request, action communication.Action) {
	result, err := sc.engine.SendAction(r.Context(), action)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if action.Kind == communication.ActionAuto {
		status = http.StatusAccepted
	}
	writeJSON(w, status, result)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", communication.ErrBadRequest, err)
	}
	return nil
}

// StatusOf maps engine errors to HTTP status codes.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, solver.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, solver.ErrInvalidTopology):
		return http.StatusConflict
	case errors.Is(err, communication.ErrBadRequest),
		errors.Is(err, communication.ErrUnknownAction),
		errors.Is(err, tree.ErrUnknownNodeType),
		errors.Is(err, tree.ErrDuplicateID),
		errors.Is(err, tree.ErrTerminalParent),
		errors.Is(err, tree.ErrEmptyTree),
		errors.Is(err, tree.ErrNilChild):
		return http.StatusBadRequest
	case errors.Is(err, communication.ErrClosed):
		return http.StatusGone
	case errors.Is(err, advisor.ErrMissingKey):
		return http.StatusServiceUnavailable
	case errors.Is(err, advisor.ErrServiceFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}
