package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	api "github.com/mind-engage/mindengage-classroom/internal/api/http"
	auth "github.com/mind-engage/mindengage-classroom/internal/auth/middleware"
	"github.com/mind-engage/mindengage-classroom/internal/auth/users"
	"github.com/mind-engage/mindengage-classroom/internal/config"
	"github.com/mind-engage/mindengage-classroom/internal/curriculum"
	"github.com/mind-engage/mindengage-classroom/internal/db"
	"github.com/mind-engage/mindengage-classroom/internal/grading"
	"github.com/mind-engage/mindengage-classroom/internal/logging"
	"github.com/mind-engage/mindengage-classroom/internal/metrics"
	"github.com/mind-engage/mindengage-classroom/internal/progress"
	"github.com/mind-engage/mindengage-classroom/internal/submission"
	syncx "github.com/mind-engage/mindengage-classroom/internal/sync"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log, err := logging.New(logging.Options{
			Level: cfg.LogLevel,
			JSON:  cfg.Mode == config.ModeOnline,
			File:  cfg.LogFile,
		})
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, log)
	},
}

func serve(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	// --- DB ---
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return err
	}
	defer dbh.Close()

	userStore := users.NewStore(dbh)
	created, err := userStore.EnsureAdmin(ctx, cfg.AdminUser, cfg.AdminPassHash)
	if err != nil {
		return err
	}
	if created {
		log.Info("bootstrap admin created", zap.String("username", cfg.AdminUser))
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}
	cur := curriculum.NewSQLStore(dbh)
	events := syncx.NewEventRepo(dbh, cfg.SiteID)
	engine := grading.NewEngine(grading.WithDefaultTolerance(cfg.MathTolerance))
	svc := submission.New(cur, progress.NewSQLStore(dbh), engine,
		submission.WithEvents(events),
		submission.WithLogger(log.Named("submission")),
		submission.WithMetrics(m),
	)

	// --- Router ---
	h := api.NewRouter(api.Deps{
		Auth:               auth.NewAuthService(cfg.AuthHMACSecret, cfg.TokenTTL),
		Users:              userStore,
		Curriculum:         cur,
		Submissions:        svc,
		Events:             events,
		Metrics:            m,
		Log:                log.Named("http"),
		DB:                 dbh,
		CORSOrigins:        cfg.CORSOrigins(),
		EnableLocalAuth:    cfg.EnableLocalAuth,
		TrustTokenRole:     cfg.Mode == config.ModeOffline,
		LoginRatePerMinute: cfg.LoginRatePerMinute,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("mode", string(cfg.Mode)),
			zap.String("db", cfg.DBDriver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
