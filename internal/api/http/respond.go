package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/mind-engage/mindengage-classroom/internal/auth/users"
	"github.com/mind-engage/mindengage-classroom/internal/curriculum"
	"github.com/mind-engage/mindengage-classroom/internal/grading"
	"github.com/mind-engage/mindengage-classroom/internal/progress"
	"github.com/mind-engage/mindengage-classroom/internal/submission"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorStatus maps domain errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, grading.ErrIncompleteSubmission),
		errors.Is(err, grading.ErrInvalidProblem),
		errors.Is(err, curriculum.ErrInvalidContent),
		errors.Is(err, submission.ErrInvalidGrade),
		errors.Is(err, users.ErrInvalidUser):
		return http.StatusBadRequest
	case errors.Is(err, curriculum.ErrNotFound),
		errors.Is(err, progress.ErrNotFound),
		errors.Is(err, users.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, submission.ErrAlreadyCompleted),
		errors.Is(err, progress.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	http.Error(w, msg, status)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
