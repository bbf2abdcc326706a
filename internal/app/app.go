// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/bissquit/barber-queue/internal/auth"
	"github.com/bissquit/barber-queue/internal/config"
	"github.com/bissquit/barber-queue/internal/domain"
	"github.com/bissquit/barber-queue/internal/feed"
	"github.com/bissquit/barber-queue/internal/notifications"
	"github.com/bissquit/barber-queue/internal/notifications/sms"
	"github.com/bissquit/barber-queue/internal/notifications/whatsapp"
	"github.com/bissquit/barber-queue/internal/pkg/ctxlog"
	"github.com/bissquit/barber-queue/internal/pkg/httputil"
	"github.com/bissquit/barber-queue/internal/pkg/metrics"
	"github.com/bissquit/barber-queue/internal/pkg/postgres"
	"github.com/bissquit/barber-queue/internal/queue"
	"github.com/bissquit/barber-queue/internal/queue/memory"
	queuepostgres "github.com/bissquit/barber-queue/internal/queue/postgres"
	"github.com/bissquit/barber-queue/internal/version"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// store is what a storage backend provides to the queue and the change feed.
type store interface {
	queue.Repository
	queue.BarberRepository
}

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	redis         *redis.Client
	broker        *feed.Broker
	queue         *queue.Service
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc
	streamsCtx    context.Context
	streamsCancel context.CancelFunc
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := InitLogger(cfg.Log)

	metricsCtx, metricsCancel := context.WithCancel(context.Background())
	streamsCtx, streamsCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		metricsCancel: metricsCancel,
		streamsCtx:    streamsCtx,
		streamsCancel: streamsCancel,
	}

	router, err := app.setup(metricsCtx)
	if err != nil {
		app.closeResources()
		return nil, err
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
	// Open queue streams never finish on their own.
	app.server.RegisterOnShutdown(streamsCancel)

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// setup connects backing services and builds the API router.
func (a *App) setup(ctx context.Context) (*chi.Mux, error) {
	st, err := a.openStore()
	if err != nil {
		return nil, err
	}

	var bus feed.Bus
	if a.config.Redis.Enabled {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		client, err := feed.NewRedisClient(connectCtx, feed.RedisConfig{
			Address:  a.config.Redis.Address,
			Password: a.config.Redis.Password,
			DB:       a.config.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		bus = feed.NewRedisBus(client, a.config.Redis.ChannelPrefix, uuid.NewString())
	}

	go a.collectPoolMetrics(ctx)

	a.broker = feed.NewBroker(st, bus)
	a.broker.Start(ctx)

	notifier, err := a.newNotifier()
	if err != nil {
		return nil, err
	}

	authenticator, err := auth.NewAuthenticator(auth.Config{
		SecretKey:     a.config.JWT.SecretKey,
		TokenDuration: a.config.JWT.TokenDuration,
	})
	if err != nil {
		return nil, fmt.Errorf("create authenticator: %w", err)
	}

	a.queue = queue.NewService(st, st, a.broker, notifier, queue.Config{
		AverageServiceMinutes: a.config.Queue.AverageServiceMinutes,
		NotifyTimeout:         a.config.Queue.NotifyTimeout,
	})

	return a.setupRouter(queue.NewHandler(a.queue), authenticator), nil
}

func (a *App) openStore() (store, error) {
	switch a.config.Queue.Storage {
	case config.StorageMemory:
		mem := memory.NewStore()
		now := time.Now().UTC()
		for _, seed := range a.config.Queue.SeedBarbers {
			mem.PutBarber(domain.Barber{
				ID:             seed.ID,
				Name:           seed.Name,
				SalonName:      seed.SalonName,
				AcceptsWalkIns: true,
				IsAvailable:    true,
				CreatedAt:      now,
				UpdatedAt:      now,
			})
		}
		a.logger.Warn("using in-memory queue storage: queues are lost on restart",
			"seeded_barbers", len(a.config.Queue.SeedBarbers),
		)
		return mem, nil

	default:
		db, err := Connect(a.config.Database)
		if err != nil {
			return nil, err
		}
		a.db = db
		return queuepostgres.NewRepository(db), nil
	}
}

// Connect opens the PostgreSQL pool described by cfg.
func Connect(cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.URL,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnectAttempts: cfg.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

// newNotifier returns nil when notifications are disabled.
func (a *App) newNotifier() (queue.Notifier, error) {
	cfg := a.config.Notifications

	slog.Info("notifications configured",
		"enabled", cfg.Enabled,
		"primary_channel", cfg.PrimaryChannel,
		"fallback_channel", cfg.FallbackChannel,
		"whatsapp_enabled", cfg.WhatsApp.Enabled,
		"sms_enabled", cfg.SMS.Enabled,
	)

	if !cfg.Enabled {
		return nil, nil
	}

	whatsappSender, err := whatsapp.NewSender(whatsapp.Config{
		Enabled:       cfg.WhatsApp.Enabled,
		APIURL:        cfg.WhatsApp.APIURL,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		AccessToken:   cfg.WhatsApp.AccessToken,
		Timeout:       cfg.WhatsApp.Timeout,
		RateLimit:     cfg.WhatsApp.RateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("create whatsapp sender: %w", err)
	}
	if !cfg.WhatsApp.Enabled {
		slog.Warn("whatsapp sender is disabled: whatsapp messages will not be sent")
	}

	smsSender, err := sms.NewSender(sms.Config{
		Enabled:   cfg.SMS.Enabled,
		APIURL:    cfg.SMS.APIURL,
		APIKey:    cfg.SMS.APIKey,
		From:      cfg.SMS.From,
		Timeout:   cfg.SMS.Timeout,
		RateLimit: cfg.SMS.RateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("create sms sender: %w", err)
	}
	if !cfg.SMS.Enabled {
		slog.Warn("sms sender is disabled: sms messages will not be sent")
	}

	renderer, err := notifications.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("create notification renderer: %w", err)
	}

	dispatcher := notifications.NewDispatcher(
		renderer,
		domain.ChannelType(cfg.PrimaryChannel),
		domain.ChannelType(cfg.FallbackChannel),
		whatsappSender,
		smsSender,
	)

	return notifications.NewNotifier(dispatcher), nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	// Start metrics server in background
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
		"storage", a.config.Queue.Storage,
		"redis_bridge", a.config.Redis.Enabled,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.metricsCancel()

	// Shutdown both servers in parallel
	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	if a.queue != nil {
		if err := a.queue.Drain(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain notifications: %w", err))
		}
	}

	a.closeResources()

	return errors.Join(errs...)
}

func (a *App) closeResources() {
	a.metricsCancel()
	a.streamsCancel()

	if a.broker != nil {
		a.broker.Stop()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("failed to close redis client", "error", err)
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}

func (a *App) collectPoolMetrics(ctx context.Context) {
	a.recordPoolMetrics()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.recordPoolMetrics()
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) recordPoolMetrics() {
	if a.db != nil {
		metrics.RecordDBPoolMetrics(a.db)
	}
	if a.redis != nil {
		metrics.RecordRedisPoolMetrics(a.redis)
	}
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

func (a *App) setupRouter(queueHandler *queue.Handler, tokens httputil.TokenValidator) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		http.ServeFile(w, r, "api/openapi/openapi.yaml")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httputil.AuthMiddleware(tokens))

		r.Group(func(r chi.Router) {
			r.Use(a.endWithShutdown)
			queueHandler.RegisterStreamRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(a.requestTimeout()))
			queueHandler.RegisterPublicRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(httputil.RequireBarber)
				queueHandler.RegisterBarberRoutes(r)
			})
		})
	})

	return r
}

func (a *App) requestTimeout() time.Duration {
	if a.config.Server.RequestTimeout > 0 {
		return a.config.Server.RequestTimeout
	}
	return 60 * time.Second
}

// endWithShutdown cancels long-lived requests when the server shuts down.
func (a *App) endWithShutdown(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		stop := context.AfterFunc(a.streamsCtx, cancel)
		defer stop()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if a.db != nil {
		if err := a.db.Ping(ctx); err != nil {
			ctxlog.FromContext(r.Context()).Error("readiness check failed", "dependency", "database", "error", err)
			httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
	}

	if a.redis != nil {
		if err := feed.Ping(ctx, a.redis); err != nil {
			ctxlog.FromContext(r.Context()).Error("readiness check failed", "dependency", "redis", "error", err)
			httputil.Text(w, http.StatusServiceUnavailable, "Redis unavailable")
			return
		}
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

// InitLogger builds the process logger and installs it as the slog default.
func InitLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
