package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/fleetsync/server/internal/client"
	"github.com/fleetsync/server/internal/config"
	"github.com/fleetsync/server/internal/handlers"
	custommw "github.com/fleetsync/server/internal/middleware"
	"github.com/fleetsync/server/internal/observability"
	"github.com/fleetsync/server/internal/repository"
	"github.com/fleetsync/server/internal/services"
)

const serviceVersion = "1.0.0"

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	telemetry, err := observability.InitTelemetry(ctx,
		observability.NewTelemetryConfig("fleetsync-server", serviceVersion))
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	var db *sql.DB
	if cfg.UsePostgres() {
		observability.Info("Using PostgreSQL database")
		db, err = repository.NewPostgresDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL database: %v", err)
		}
	} else {
		observability.Info("Using SQLite database")
		db, err = repository.NewSQLiteDB(cfg.DatabasePath)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite database: %v", err)
		}
	}
	defer db.Close()

	deviceRepo := repository.NewDeviceRepository(db)
	alarmRepo := repository.NewAlarmRepository(db)
	positionRepo := repository.NewPositionRepository(db)

	apiClient := client.New(client.Config{
		BaseURL:       cfg.API.BaseURL,
		Username:      cfg.API.Username,
		Password:      cfg.API.Password,
		Timeout:       time.Duration(cfg.API.TimeoutSeconds) * time.Second,
		RetryAttempts: cfg.API.RetryAttempts,
		RetryDelay:    time.Duration(cfg.API.RetryDelaySeconds) * time.Second,
	})

	deviceSvc := services.NewDeviceSyncService(apiClient, deviceRepo)
	alarmSvc := services.NewAlarmSyncService(apiClient, deviceRepo, alarmRepo, services.AlarmSyncConfig{
		Lookback:      time.Duration(cfg.Sync.AlarmLookbackMinutes) * time.Minute,
		BatchSize:     cfg.Sync.AlarmBatchSize,
		BatchDelay:    time.Duration(cfg.Sync.AlarmBatchDelayMS) * time.Millisecond,
		RetentionDays: cfg.Sync.AlarmRetentionDays,
	})
	gpsSvc := services.NewGPSTrackingService(apiClient, deviceRepo, positionRepo)

	schedulers := map[string]*services.Scheduler{
		"device": services.NewScheduler(deviceSvc, time.Duration(cfg.Sync.DeviceIntervalMinutes)*time.Minute),
		"alarm":  services.NewScheduler(alarmSvc, time.Duration(cfg.Sync.AlarmIntervalMinutes)*time.Minute),
		"gps":    services.NewScheduler(gpsSvc, time.Duration(cfg.Sync.GPSIntervalSeconds)*time.Second),
	}

	// Device roster first: the alarm and GPS services read it.
	for _, name := range []string{"device", "alarm", "gps"} {
		if !schedulers[name].Start() {
			observability.Warnf("%s scheduler did not start, continuing without it", name)
		}
	}

	healthHandler := handlers.NewHealthHandler(db)
	deviceHandler := handlers.NewDeviceHandler(deviceRepo)
	alarmHandler := handlers.NewAlarmHandler(alarmRepo, deviceRepo)
	positionHandler := handlers.NewPositionHandler(positionRepo)
	syncHandler := handlers.NewSyncHandler(schedulers, alarmSvc)

	httpMetrics, err := observability.NewHTTPMetrics()
	if err != nil {
		log.Fatalf("Failed to create HTTP metrics: %v", err)
	}

	r := chi.NewRouter()

	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(observability.TracingMiddleware("fleetsync-server"))
	r.Use(observability.MetricsMiddleware(httpMetrics))
	r.Use(custommw.APIKeyAuth(cfg.Security.APIKey, cfg.Security.APIKeyHeader))

	r.Get("/health", healthHandler.HealthCheck)
	r.Get("/api/health", healthHandler.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", deviceHandler.ListDevices)
			r.Get("/{terid}", deviceHandler.GetDevice)
			r.Post("/{terid}/alarms/refresh", syncHandler.RefreshDeviceAlarms)
		})
		r.Route("/alarms", func(r chi.Router) {
			r.Get("/", alarmHandler.ListAlarms)
			r.Get("/range", alarmHandler.ListAlarmsByRange)
			r.Get("/{id}", alarmHandler.GetAlarm)
		})
		r.Get("/alarm-types", alarmHandler.ListAlarmTypes)
		r.Get("/stats", alarmHandler.GetStats)
		r.Route("/gps", func(r chi.Router) {
			r.Get("/positions", positionHandler.ListPositions)
			r.Get("/positions/{terid}", positionHandler.GetPosition)
		})
		r.Route("/sync", func(r chi.Router) {
			r.Get("/status", syncHandler.GetStatus)
			r.Post("/{service}/force", syncHandler.ForceSync)
		})
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		observability.Infof("FleetSync server starting on %s", cfg.ServerAddress)
		observability.Infof("Vendor API: %s", cfg.API.BaseURL)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	observability.Info("Shutting down server...")

	for name, sched := range schedulers {
		if !sched.Stop() {
			observability.Warnf("%s scheduler did not stop cleanly", name)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		observability.Warnf("Telemetry shutdown error: %v", err)
	}

	observability.Info("Server stopped")
}
