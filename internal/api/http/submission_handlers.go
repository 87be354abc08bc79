package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-classroom/internal/grading"
	"github.com/mind-engage/mindengage-classroom/internal/progress"
	"github.com/mind-engage/mindengage-classroom/internal/rbac"
	"github.com/mind-engage/mindengage-classroom/internal/submission"
)

func problemIndex(r *http.Request) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	return i, err == nil && i >= 0
}

// POST /contents/{contentID}/problems/{index}/submissions
// Body: {"text": "..."} or {"index": 2}. The student is the token subject.
func SubmitAnswerHandler(svc *submission.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idx, ok := problemIndex(r)
		if !ok {
			http.Error(w, "bad problem index", http.StatusBadRequest)
			return
		}
		var a grading.Answer
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		out, err := svc.Submit(r.Context(), submission.Request{
			StudentID:    rbac.SubjectFromContext(r.Context()),
			ContentID:    chi.URLParam(r, "contentID"),
			ProblemIndex: idx,
			Answer:       a,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

// scopedStudent returns the student a request may look at. Callers without
// the view-all permission only ever see themselves.
func scopedStudent(r *http.Request, viewAll string) string {
	if rbac.Can(r.Context(), viewAll) {
		return strings.TrimSpace(r.URL.Query().Get("student_id"))
	}
	return rbac.SubjectFromContext(r.Context())
}

// GET /contents/{contentID}/problems/{index}/progress?student_id=...
func ProgressHandler(svc *submission.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idx, ok := problemIndex(r)
		if !ok {
			http.Error(w, "bad problem index", http.StatusBadRequest)
			return
		}
		student := scopedStudent(r, "progress:view-all")
		if student == "" {
			http.Error(w, "student_id required", http.StatusBadRequest)
			return
		}
		v, err := svc.Progress(r.Context(), progress.Key{
			StudentID:    student,
			ContentID:    chi.URLParam(r, "contentID"),
			ProblemIndex: idx,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// GET /submissions?student_id=...&content_id=...&limit=50&offset=0
func ListSubmissionsHandler(svc *submission.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		list, err := svc.List(r.Context(), progress.ListOpts{
			StudentID: scopedStudent(r, "submission:view-all"),
			ContentID: strings.TrimSpace(q.Get("content_id")),
			Limit:     parseIntDefault(q.Get("limit"), 50),
			Offset:    parseIntDefault(q.Get("offset"), 0),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /submissions/{submissionID}/grade
// Body: {"score": 7, "comment": "..."} or {"rubric": {...}, "awarded": {...}}
func GradeSubmissionHandler(svc *submission.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var g submission.Grade
		if err := decodeValid(r, &g); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sub, err := svc.Regrade(r.Context(), chi.URLParam(r, "submissionID"), g, rbac.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}
