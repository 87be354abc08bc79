package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	auth "github.com/mind-engage/mindengage-classroom/internal/auth/middleware"
	"github.com/mind-engage/mindengage-classroom/internal/curriculum"
	"github.com/mind-engage/mindengage-classroom/internal/logging"
	"github.com/mind-engage/mindengage-classroom/internal/metrics"
	"github.com/mind-engage/mindengage-classroom/internal/rbac"
	"github.com/mind-engage/mindengage-classroom/internal/submission"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

// UserDirectory is everything the API needs from the user store.
type UserDirectory interface {
	UserStore
	auth.Authenticator
	auth.RoleLookup
}

type Deps struct {
	Auth        *auth.AuthService
	Users       UserDirectory
	Curriculum  curriculum.Store
	Submissions *submission.Service
	Events      EventFeed
	Metrics     *metrics.Metrics // nil disables /metrics
	Log         *zap.Logger
	DB          Pinger

	CORSOrigins     []string
	EnableLocalAuth bool
	// TrustTokenRole keeps the token's role for subjects missing from the
	// user store. Offline classrooms only.
	TrustTokenRole     bool
	LoginRatePerMinute int // 0 disables
	Timeout            time.Duration
}

func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Timeout <= 0 {
		d.Timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logging.Middleware(d.Log), middleware.Recoverer)
	r.Use(middleware.Timeout(d.Timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.DB != nil {
			if err := d.DB.PingContext(r.Context()); err != nil {
				http.Error(w, "db unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	if d.EnableLocalAuth {
		r.With(RateLimit(d.LoginRatePerMinute)).
			Post("/auth/login", auth.LoginHandler(d.Auth, d.Users))
	}

	// Protected API (JWT → role from user store → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))
		pr.Use(auth.AttachRoleFromDB(d.Users, d.TrustTokenRole))

		pr.With(rbac.Require("users:create")).
			Post("/users", BulkUpsertUsersHandler(d.Users))
		pr.With(rbac.Require("users:list")).
			Get("/users", ListUsersHandler(d.Users))

		pr.With(rbac.Require("lesson:write")).
			Post("/lessons", CreateLessonHandler(d.Curriculum))
		pr.With(rbac.Require("lesson:view")).
			Get("/lessons", ListLessonsHandler(d.Curriculum))
		pr.With(rbac.Require("content:view")).
			Get("/lessons/{lessonID}/contents", ListLessonContentsHandler(d.Curriculum))

		pr.With(rbac.Require("content:write")).
			Put("/contents/{contentID}", PutContentHandler(d.Curriculum, d.Events))
		pr.With(rbac.Require("content:view")).
			Get("/contents/{contentID}", GetContentHandler(d.Curriculum))
		pr.With(rbac.Require("content:delete")).
			Delete("/contents/{contentID}", DeleteContentHandler(d.Curriculum))

		// Student flow
		pr.With(rbac.Require("submission:create")).
			Post("/contents/{contentID}/problems/{index}/submissions", SubmitAnswerHandler(d.Submissions))
		pr.With(rbac.RequireAny("progress:view-own", "progress:view-all")).
			Get("/contents/{contentID}/problems/{index}/progress", ProgressHandler(d.Submissions))

		pr.With(rbac.RequireAny("submission:view-own", "submission:view-all")).
			Get("/submissions", ListSubmissionsHandler(d.Submissions))
		pr.With(rbac.Require("submission:grade")).
			Post("/submissions/{submissionID}/grade", GradeSubmissionHandler(d.Submissions))

		pr.With(rbac.Require("events:view")).
			Get("/events", ListEventsHandler(d.Events))
	})

	return r
}
