package api

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/querydesk/querydesk/internal/engine"
	"github.com/querydesk/querydesk/internal/export"
	"github.com/querydesk/querydesk/internal/storage"
)

func handleReset(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Engine == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ENGINE_NOT_CONFIGURED", "query engine is not configured", false, nil)
		return
	}
	sessionID := r.PathValue("session")
	if strings.TrimSpace(sessionID) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SESSION_REQUIRED", "session id is required", false, nil)
		return
	}

	deps.Engine.ResetSession(sessionID)
	writeJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "status": "reset"})
}

func handleSuggestions(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Engine == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ENGINE_NOT_CONFIGURED", "query engine is not configured", false, nil)
		return
	}
	sessionID := r.PathValue("session")
	if strings.TrimSpace(sessionID) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SESSION_REQUIRED", "session id is required", false, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":  sessionID,
		"suggestions": suggestionsOrEmpty(deps.Engine.Suggestions(sessionID)),
	})
}

// handleExport encodes the session's last successful result in the
// requested format. When an archive store is configured the encoded
// bytes are also uploaded; an upload failure is logged and does not
// fail the download.
func handleExport(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Engine == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ENGINE_NOT_CONFIGURED", "query engine is not configured", false, nil)
		return
	}
	sessionID := r.PathValue("session")
	if strings.TrimSpace(sessionID) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SESSION_REQUIRED", "session id is required", false, nil)
		return
	}

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_FORMAT", err.Error(), false, nil)
		return
	}

	stored, err := deps.Engine.LastResult(sessionID)
	if err != nil {
		if errors.Is(err, engine.ErrNoResult) {
			writeError(r.Context(), w, http.StatusNotFound, "NO_RESULT", "session has no result to export", false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "INTERNAL", "internal error", true, nil)
		return
	}

	meta := export.Metadata{SessionID: sessionID, SQL: stored.SQL, GeneratedAt: stored.GeneratedAt}
	var buf bytes.Buffer
	if err := export.Encode(&buf, format, stored.Result, meta); err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "EXPORT_FAILED", "failed to encode export", false, map[string]any{"details": err.Error()})
		return
	}

	if deps.Archive != nil {
		key := export.ObjectKey(meta, format)
		_, putErr := deps.Archive.Put(r.Context(), key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), storage.PutOptions{ContentType: format.ContentType()})
		if putErr != nil && deps.Logger != nil {
			deps.Logger.WarnContext(r.Context(), "export archive upload failed",
				slog.String("session_id", sessionID),
				slog.String("key", key),
				slog.String("error", putErr.Error()),
			)
		}
	}

	filename := fmt.Sprintf("%s.%s", sessionID, format.Extension())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
