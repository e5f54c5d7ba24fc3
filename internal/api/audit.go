package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/homie-device/internal/audit"
)

// recordAudit stores a change made through the API. Failures are logged;
// the change itself has already been published.
func (s *Server) recordAudit(r *http.Request, entry *audit.AuditLog) {
	if s.audit == nil {
		return
	}

	entry.Source = audit.SourceAPI
	if id, ok := r.Context().Value(ctxKeyRequestID).(string); ok {
		if entry.Details == nil {
			entry.Details = make(map[string]any)
		}
		entry.Details["request_id"] = id
	}

	if err := s.audit.Create(r.Context(), entry); err != nil {
		s.logger.Error("recording audit log", "error", err, "device", entry.DeviceID)
	}
}

// handleListAudit returns audit logs, newest first.
//
// Query parameters: device, action, source, limit, offset.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.Filter{
		DeviceID: q.Get("device"),
		Action:   q.Get("action"),
		Source:   q.Get("source"),
	}

	var err error
	if v := q.Get("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil {
			writeBadRequest(w, "offset must be an integer")
			return
		}
	}

	res, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing audit logs", "error", err)
		writeInternalError(w, "failed to list audit logs")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
