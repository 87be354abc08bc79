package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-classroom/internal/curriculum"
	"github.com/mind-engage/mindengage-classroom/internal/rbac"
	syncx "github.com/mind-engage/mindengage-classroom/internal/sync"
)

type lessonReq struct {
	ID       string `json:"id" validate:"omitempty,max=64"`
	Title    string `json:"title" validate:"required,max=200"`
	Position int    `json:"position" validate:"gte=0"`
}

// POST /lessons
func CreateLessonHandler(store curriculum.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req lessonReq
		if err := decodeValid(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		out, err := store.PutLesson(r.Context(), curriculum.Lesson{
			ID:        req.ID,
			Title:     strings.TrimSpace(req.Title),
			Position:  req.Position,
			CreatedBy: rbac.SubjectFromContext(r.Context()),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

// GET /lessons
func ListLessonsHandler(store curriculum.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListLessons(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /lessons/{lessonID}/contents
func ListLessonContentsHandler(store curriculum.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListContents(r.Context(), chi.URLParam(r, "lessonID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type EventAppender interface {
	Append(ctx context.Context, typ, key string, data any) error
}

// PUT /contents/{contentID}
func PutContentHandler(store curriculum.Store, events EventAppender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c curriculum.Content
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		c.ID = chi.URLParam(r, "contentID")
		out, err := store.PutContent(r.Context(), c)
		if err != nil {
			writeError(w, err)
			return
		}
		if events != nil {
			_ = events.Append(r.Context(), syncx.TypeContentPublished, out.ID,
				map[string]any{"content_id": out.ID, "lesson_id": out.LessonID, "problems": len(out.Problems)})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// GET /contents/{contentID}
// Answer keys are only returned to roles that may edit content.
func GetContentHandler(store curriculum.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "contentID")
		var (
			c   curriculum.Content
			err error
		)
		if rbac.Can(r.Context(), "content:write") {
			c, err = store.GetContentAdmin(r.Context(), id)
		} else {
			c, err = store.GetContent(r.Context(), id)
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

// DELETE /contents/{contentID}
func DeleteContentHandler(store curriculum.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteContent(r.Context(), chi.URLParam(r, "contentID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
