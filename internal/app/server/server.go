package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"appraisal/internal/domain/audit"
	"appraisal/internal/domain/auth"
	"appraisal/internal/domain/notifications"
	"appraisal/internal/domain/performance"
	"appraisal/internal/domain/reports"
	"appraisal/internal/platform/config"
	"appraisal/internal/platform/db"
	"appraisal/internal/platform/email"
	"appraisal/internal/platform/jobs"
	"appraisal/internal/platform/lov"
	"appraisal/internal/platform/metrics"
	"appraisal/internal/transport/http/api"
	audithandler "appraisal/internal/transport/http/handlers/audit"
	authhandler "appraisal/internal/transport/http/handlers/auth"
	notificationshandler "appraisal/internal/transport/http/handlers/notifications"
	performancehandler "appraisal/internal/transport/http/handlers/performance"
	reportshandler "appraisal/internal/transport/http/handlers/reports"
	"appraisal/internal/transport/http/middleware"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	Config      config.Config
	DB          *db.Pool
	Router      http.Handler
	Queue       *jobs.Queue
	Performance *performance.Service
	Metrics     *metrics.Collector

	stopQueue context.CancelFunc
}

// Pinger reports database readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps is everything the router needs; tests fill it with fakes.
type Deps struct {
	Config        config.Config
	DB            Pinger
	Auth          *auth.Service
	Performance   *performance.Service
	Notifications *notifications.Service
	Audit         audithandler.EventLister
	Reports       reportshandler.Reporter
	Metrics       *metrics.Collector
	Perms         middleware.PermissionStore
}

// New connects to the database, prepares the schema and wires every service.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	values, err := lov.Load(cfg.LOVFile)
	if err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	queueCtx, stopQueue := context.WithCancel(context.Background())
	queue := jobs.New(cfg.NotifyQueueSize)
	queue.Start(queueCtx)

	collector := metrics.New()
	auditService := audit.New(pool)
	notifyService := notifications.New(notifications.NewStore(pool), email.New(cfg), queue, cfg.EmailFrom)

	store := performance.NewStore(pool)
	perf := performance.NewService(store, store, values)
	perf.Audit = auditService
	perf.Notify = notifyService
	perf.Metrics = collector

	router := NewRouter(Deps{
		Config:        cfg,
		DB:            pool,
		Auth:          auth.NewService(auth.NewStore(pool), cfg.JWTSecret, cfg.TokenTTL),
		Performance:   perf,
		Notifications: notifyService,
		Audit:         auditService,
		Reports:       reports.NewService(reports.NewStore(pool)),
		Metrics:       collector,
		Perms:         auth.StaticPermissions{},
	})

	return &App{
		Config:      cfg,
		DB:          pool,
		Router:      router,
		Queue:       queue,
		Performance: perf,
		Metrics:     collector,
		stopQueue:   stopQueue,
	}, nil
}

func NewRouter(d Deps) http.Handler {
	var recorder middleware.RequestRecorder
	if d.Metrics != nil {
		recorder = d.Metrics
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(recorder))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(d.Config.Environment == "production"))
	router.Use(middleware.Auth(d.Config.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if d.DB == nil || d.DB.Ping(ctx) != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if d.Config.MetricsEnabled && d.Metrics != nil {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, d.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(d.Auth).RegisterRoutes(r)
		performancehandler.NewHandler(d.Performance, d.Perms, d.Config.MaxBodyBytes, d.Config.MaxImportBytes).RegisterRoutes(r)
		notificationshandler.NewHandler(d.Notifications, d.Perms).RegisterRoutes(r)
		audithandler.NewHandler(d.Audit, d.Perms).RegisterRoutes(r)
		reportshandler.NewHandler(d.Reports, d.Perms).RegisterRoutes(r)
	})

	return router
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("appraisal server listening", "addr", a.Config.Addr, "env", a.Config.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	slog.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// Close lets queued notifications finish and releases the pool.
func (a *App) Close() {
	if a.Queue != nil {
		a.Queue.Wait()
	}
	if a.stopQueue != nil {
		a.stopQueue()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
