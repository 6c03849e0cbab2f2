package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/querydesk/querydesk/internal/engine"
	"github.com/querydesk/querydesk/internal/llm"
)

type queryRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

type queryResponse struct {
	SessionID   string              `json:"session_id"`
	SQL         string              `json:"sql"`
	Columns     []string            `json:"columns"`
	Rows        [][]any             `json:"rows"`
	Truncated   bool                `json:"truncated"`
	Analysis    engine.Analysis     `json:"analysis"`
	Suggestions []engine.Suggestion `json:"suggestions"`
	Warnings    []string            `json:"warnings,omitempty"`
	Attempts    int                 `json:"attempts"`
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Engine == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ENGINE_NOT_CONFIGURED", "query engine is not configured", false, nil)
		return
	}

	var request queryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.SessionID) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SESSION_REQUIRED", "session_id is required", false, nil)
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	response, err := deps.Engine.ProcessQuery(r.Context(), request.SessionID, request.Question)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	rows := response.Result.Rows
	if rows == nil {
		rows = [][]any{}
	}
	writeJSON(w, http.StatusOK, queryResponse{
		SessionID:   request.SessionID,
		SQL:         response.SQL,
		Columns:     response.Result.Columns,
		Rows:        rows,
		Truncated:   response.Result.Truncated,
		Analysis:    response.Analysis,
		Suggestions: suggestionsOrEmpty(response.Suggestions),
		Warnings:    response.Warnings,
		Attempts:    response.Attempts,
	})
}

func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	if errors.Is(err, engine.ErrSessionBusy) {
		writeError(ctx, w, http.StatusConflict, "SESSION_BUSY", "another query is already running for this session", true, nil)
		return
	}

	var contextErr *engine.ContextError
	if errors.As(err, &contextErr) {
		writeError(ctx, w, http.StatusBadRequest, "INVALID_REQUEST", contextErr.Reason, false, nil)
		return
	}

	var validationErr *engine.ValidationError
	if errors.As(err, &validationErr) {
		writeError(ctx, w, http.StatusUnprocessableEntity, "SQL_REJECTED", "the generated sql was rejected", false, map[string]any{
			"reason": validationErr.Reason,
			"detail": validationErr.Detail,
		})
		return
	}

	var generationErr *engine.GenerationError
	if errors.As(err, &generationErr) {
		writeError(ctx, w, http.StatusBadGateway, "GENERATION_FAILED", generationErr.Reason, llm.IsTransient(err), map[string]any{
			"attempts": generationErr.Attempts,
		})
		return
	}

	var executionErr *engine.ExecutionError
	if errors.As(err, &executionErr) {
		writeError(ctx, w, http.StatusInternalServerError, "EXECUTION_FAILED", executionErr.Reason, false, nil)
		return
	}

	writeError(ctx, w, http.StatusInternalServerError, "INTERNAL", "internal error", true, nil)
}

func suggestionsOrEmpty(suggestions []engine.Suggestion) []engine.Suggestion {
	if suggestions == nil {
		return []engine.Suggestion{}
	}
	return suggestions
}
