package api

import (
	"net/http"
	"strconv"

	"github.com/mrweisheng/wscontroller/internal/journal"
)

// handleListEvents returns journaled connection events, newest first.
//
// Query parameters: deviceId, kind, limit, offset.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := journal.Filter{
		DeviceID: q.Get("deviceId"),
		Kind:     q.Get("kind"),
	}

	var err error
	if v := q.Get("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil || filter.Limit < 0 {
			writeFailure(w, http.StatusBadRequest, "limit 参数无效")
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil || filter.Offset < 0 {
			writeFailure(w, http.StatusBadRequest, "offset 参数无效")
			return
		}
	}

	result, err := s.journal.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing connection events", "error", err)
		writeFailure(w, http.StatusInternalServerError, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
