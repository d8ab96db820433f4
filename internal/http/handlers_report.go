package http

import (
	"net/http"
	"strconv"
	"strings"

	"finman/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleMonthlyReport streams the month's workbook as an XLSX download.
func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid user id")
		return
	}
	// The month segment may carry the download extension, e.g. 2025-06.xlsx.
	month, err := parseMonth(strings.TrimSuffix(r.PathValue("month"), ".xlsx"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	data, err := s.deps.Reports.Build(r.Context(), userID, month)
	if err != nil {
		respondStorageError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename(userID, month)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to write report body", "error", err)
	}
}
