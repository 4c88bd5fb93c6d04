package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-cleaning-booking/config"
	deliveryHttp "go-cleaning-booking/internal/delivery/http"
	"go-cleaning-booking/internal/delivery/http/handler"
	"go-cleaning-booking/internal/delivery/http/middleware"
	domainRepo "go-cleaning-booking/internal/domain/repository"
	"go-cleaning-booking/internal/infrastructure/cache"
	"go-cleaning-booking/internal/infrastructure/database"
	"go-cleaning-booking/internal/infrastructure/metrics"
	"go-cleaning-booking/internal/infrastructure/queue"
	"go-cleaning-booking/internal/repository"
	"go-cleaning-booking/internal/service"
	"go-cleaning-booking/internal/usecase"
	"go-cleaning-booking/internal/worker"
	"go-cleaning-booking/pkg/jwt"
	"go-cleaning-booking/pkg/validator"

	"github.com/hibiken/asynq"
	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	Server      *http.Server
	QueueClient *asynq.Client
	QueueServer *asynq.Server
	QueueMux    *asynq.ServeMux
	Allocator   *service.ProviderAllocator
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	// Setup logger
	app.Log = setupLogger(cfg.App)
	app.Log.Info("Configuration loaded successfully")

	// Initialize database
	db, err := database.NewConnection(cfg.DB, cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	app.Log.Infof("Database connected successfully (driver=%s)", cfg.DB.Driver)

	if cfg.DB.MigrateOnStart {
		if err := database.Migrate(db, cfg.DB); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	// Initialize Redis when something needs it
	if cfg.Capacity.Backend == config.CapacityBackendRedis {
		redisClient, err := cache.NewRedisClient(cfg.Redis, app.Log)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		app.RedisClient = redisClient
		app.Log.Info("Redis connected successfully")
	}

	// Initialize all layers
	if err := app.initialize(); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger(cfg config.AppConfig) *logrus.Logger {
	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

// initialize wires repositories, services, usecases and the HTTP server
func (app *App) initialize() error {
	cfg := app.Config
	log := app.Log
	db := app.DB
	clk := clock.WallClock

	rule, err := cfg.Booking.Rule()
	if err != nil {
		return fmt.Errorf("invalid booking rule: %w", err)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(registry)

	// Initialize repositories
	providerRepo := repository.NewProviderRepository()
	bookingRepo := repository.NewBookingRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	var ledger domainRepo.CapacityLedger
	if app.RedisClient != nil {
		ledger = repository.NewRedisCapacityLedger(app.RedisClient, clk)
	} else {
		ledger = repository.NewMemoryCapacityLedger()
	}

	// Rebuild the capacity ledger before accepting traffic
	if cfg.Capacity.SyncOnStartup {
		syncCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		synced, err := service.NewCapacitySyncService(db, log, clk, rule, bookingRepo, ledger).SyncOnStartup(syncCtx)
		if err != nil {
			return fmt.Errorf("failed to sync capacity: %w", err)
		}
		log.Infof("Capacity ledger synced: %d provider-days", synced)
	}

	// Event publishing
	var publisher service.EventPublisher
	if cfg.Queue.Enabled {
		connOpt := queue.RedisConnOpt(cfg.Redis, cfg.Queue)
		app.QueueClient = queue.NewClient(connOpt)
		app.QueueServer = queue.NewServer(connOpt, cfg.Queue, log)
		app.QueueMux = asynq.NewServeMux()
		worker.NewBookingEventWorker(worker.NewLogNotifier(log), log).Register(app.QueueMux)
		publisher = service.NewAsynqEventPublisher(app.QueueClient, cfg.Queue.Queue, log)
	} else {
		publisher = service.NewLogEventPublisher(log)
	}

	// Initialize services
	auditService := service.NewAuditService(log, auditLogRepo)
	store := service.NewAvailabilityStore(db, log, providerRepo, ledger)
	matcher := service.NewAvailabilityMatcher(store, clk, log, recorder, cfg.Capacity.MatchConcurrency)
	app.Allocator = service.NewProviderAllocator(store, clk, log, recorder, service.AllocatorOptions{
		LockCleanupInterval: cfg.Capacity.LockCleanupInterval,
		LockStaleThreshold:  cfg.Capacity.LockStaleThreshold,
	})
	lifecycle := service.NewBookingLifecycle(db, log, clk, rule, bookingRepo, matcher, app.Allocator, auditService, publisher, recorder)

	// Initialize usecases
	bookingUsecase := usecase.NewBookingUsecase(db, log, clk, rule, bookingRepo, matcher, lifecycle, service.NewPostalCodeResolver())
	providerUsecase := usecase.NewProviderUsecase(db, log, clk, rule, providerRepo, bookingRepo, store, app.Allocator, auditService)
	auditLogUsecase := usecase.NewAuditLogUsecase(db, log, auditLogRepo)

	// Initialize JWT service and validator
	jwtService := jwt.NewJWTService(cfg.JWT)
	customValidator := validator.NewValidator()

	// Initialize handlers
	availabilityHandler := handler.NewAvailabilityHandler(bookingUsecase)
	bookingHandler := handler.NewBookingHandler(bookingUsecase, customValidator)
	providerHandler := handler.NewProviderHandler(providerUsecase, customValidator)
	auditLogHandler := handler.NewAuditLogHandler(auditLogUsecase)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	corsMiddleware := middleware.NewCORSMiddleware(cfg.App.CORSOrigins...)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, clk)

	// Initialize router
	router := deliveryHttp.NewRouter(
		availabilityHandler,
		bookingHandler,
		providerHandler,
		auditLogHandler,
		authMiddleware,
		corsMiddleware,
		rateLimitMiddleware,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	)

	// Create server
	app.Server = &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.App.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Run starts the HTTP server and the event worker, then blocks until a
// signal arrives or one of them fails
func (app *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if app.QueueServer != nil {
		if err := app.QueueServer.Start(app.QueueMux); err != nil {
			return fmt.Errorf("failed to start event worker: %w", err)
		}
		app.Log.Infof("Event worker consuming queue %q", app.Config.Queue.Queue)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.Log.Infof("Server starting on port %s", app.Config.App.Port)
		app.Log.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		app.shutdown()
		return nil
	})

	err := g.Wait()
	app.Close()
	app.Log.Info("Server shutdown complete")
	return err
}

// shutdown stops accepting work; connections are closed by Close
func (app *App) shutdown() {
	app.Log.Info("Shutting down server...")

	timeout := app.Config.App.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		app.Log.Errorf("Server forced to shutdown: %v", err)
	}

	if app.QueueServer != nil {
		app.QueueServer.Shutdown()
	}
}

// Close releases background goroutines and connections (database, redis, queue)
func (app *App) Close() {
	if app.Allocator != nil {
		app.Allocator.Stop()
	}

	if app.QueueClient != nil {
		if err := app.QueueClient.Close(); err != nil {
			app.Log.Warnf("Failed to close queue client: %v", err)
		}
	}

	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
