package http

import (
	"context"
	"net/http"
	"strconv"

	syncx "github.com/mind-engage/mindengage-classroom/internal/sync"
)

type EventFeed interface {
	EventAppender
	ListSince(ctx context.Context, since int64, limit int) ([]syncx.Event, error)
}

// GET /events?since=0&limit=100
// Dashboards poll with the last seq they saw.
func ListEventsHandler(feed EventFeed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var since int64
		if s := r.URL.Query().Get("since"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil || v < 0 {
				http.Error(w, "bad since", http.StatusBadRequest)
				return
			}
			since = v
		}
		list, err := feed.ListSince(r.Context(), since, parseIntDefault(r.URL.Query().Get("limit"), 100))
		if err != nil {
			writeError(w, err)
			return
		}
		next := since
		if n := len(list); n > 0 {
			next = list[n-1].Seq
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": list, "next": next})
	}
}
