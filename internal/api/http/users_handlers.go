package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mind-engage/mindengage-classroom/internal/auth/users"
)

type UserStore interface {
	Upsert(ctx context.Context, rows []users.Input) (inserted, updated int, err error)
	List(ctx context.Context, role string) ([]users.User, error)
}

// POST /users
// Accepts either multipart file= (CSV/JSON) or a raw JSON array in the body.
func BulkUpsertUsersHandler(store UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows []users.Input
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			f, _, err := r.FormFile("file")
			if err != nil {
				http.Error(w, "file required", http.StatusBadRequest)
				return
			}
			defer f.Close()
			br := bufio.NewReader(f)
			// sniff CSV vs JSON by the first byte
			first, err := br.Peek(1)
			if err != nil {
				http.Error(w, "empty file", http.StatusBadRequest)
				return
			}
			if first[0] == '[' {
				if err := json.NewDecoder(br).Decode(&rows); err != nil {
					http.Error(w, "bad json", http.StatusBadRequest)
					return
				}
			} else {
				rows, err = users.ParseCSV(br)
				if err != nil {
					http.Error(w, "bad csv: "+err.Error(), http.StatusBadRequest)
					return
				}
			}
		} else if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			http.Error(w, "expected JSON array or multipart file", http.StatusBadRequest)
			return
		}
		if len(rows) == 0 {
			writeJSON(w, http.StatusOK, map[string]any{"inserted": 0, "updated": 0})
			return
		}

		ins, upd, err := store.Upsert(r.Context(), rows)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"inserted": ins, "updated": upd})
	}
}

// GET /users?role=student
func ListUsersHandler(store UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("role")))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
