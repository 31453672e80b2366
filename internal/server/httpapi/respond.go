package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/server/services"
)

const maxBodyBytes = 1 << 20

type errorDetail struct {
	Detail string `json:"detail"`
}

type errorList struct {
	Errors []errorDetail `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorDetail{Detail: detail})
}

func writeErrors(w http.ResponseWriter, status int, details []string) {
	body := errorList{Errors: make([]errorDetail, 0, len(details))}
	for _, d := range details {
		body.Errors = append(body.Errors, errorDetail{Detail: d})
	}
	writeJSON(w, status, body)
}

// decodeJSON reads the request body into v. On failure it has already
// written a 400 response.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error - "+err.Error())
		return false
	}
	return true
}

// fail maps service errors onto responses.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeErrors(w, http.StatusBadRequest, verr.Details)
	case errors.Is(err, common.ErrorAlreadyExists):
		writeErrors(w, http.StatusBadRequest, []string{"A user with that username already exists."})
	case errors.Is(err, common.ErrorNotFound):
		writeDetail(w, http.StatusNotFound, "Not found.")
	case errors.Is(err, common.ErrorUnauthorized):
		unauthorized(w, "Authentication credentials were not provided.")
	default:
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeDetail(w, http.StatusInternalServerError, "A server error occurred.")
	}
}
