package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/japanesestudent/course-authoring/internal/authoring"
	"github.com/japanesestudent/course-authoring/internal/config"
	"github.com/japanesestudent/course-authoring/internal/handlers"
	"github.com/japanesestudent/course-authoring/internal/logger"
	"github.com/japanesestudent/course-authoring/internal/middleware"
	"github.com/japanesestudent/course-authoring/internal/probe"
	"github.com/japanesestudent/course-authoring/internal/repositories"
	"github.com/japanesestudent/course-authoring/internal/services"
	"github.com/japanesestudent/course-authoring/internal/storage"
	"go.uber.org/zap"
)

// fileStore is a persistent store that can also serve its files
type fileStore interface {
	services.FileStore
	handlers.FileReader
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting course authoring service")

	// Connect to database
	db, err := connectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := runMigrations(db); err != nil {
		logger.Logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize storage
	store, err := newFileStore(cfg)
	if err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	stager, err := storage.NewStager(cfg.Storage.StagingDir, logger.Logger)
	if err != nil {
		logger.Logger.Fatal("Failed to initialize staging directory", zap.Error(err))
	}
	if err := stager.Clean(); err != nil {
		logger.Logger.Warn("Failed to clean staging directory", zap.Error(err))
	}

	// Duration probing degrades to zero durations without ffprobe
	prober := probe.NewFFProbe(cfg.Probe.FFProbePath, logger.Logger)
	if err := prober.AssertReady(); err != nil {
		logger.Logger.Warn("ffprobe is not available, durations will be zero", zap.Error(err))
	}
	pipeline := authoring.NewDurationPipeline(prober, cfg.Probe.Concurrency, cfg.Probe.Timeout, logger.Logger)

	// Initialize repositories and services
	courseRepo := repositories.NewCourseEditorRepository(db, logger.Logger)
	updater := services.NewCourseUpdater(courseRepo, store, logger.Logger)
	editorService := services.NewCourseEditorService(courseRepo, updater, pipeline, cfg.Session.IdleTimeout, logger.Logger)

	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	go editorService.RunCleanup(cleanupCtx, cfg.Session.CleanupInterval)

	// Initialize handlers
	authoringHandler := handlers.NewAuthoringHandler(editorService, stager, logger.Logger)
	fileHandler := handlers.NewFileHandler(store, logger.Logger)

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggerMiddleware(logger.Logger))
	r.Use(middleware.RecoveryMiddleware(logger.Logger))
	r.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(httprate.LimitByIP(300, time.Minute))
	r.Use(middleware.RequestSizeLimitMiddleware(cfg.Server.MaxBodySize, cfg.Server.MaxUploadSize))

	r.Route("/api/v1", authoringHandler.RegisterRoutes)
	if cfg.Storage.Type == config.StorageTypeLocal {
		fileHandler.RegisterRoutes(r)
	}

	// Start server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// Video uploads and commits stream large bodies
		ReadTimeout:  30 * time.Minute,
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}
	stopCleanup()
	editorService.Shutdown()

	logger.Logger.Info("Server exited")
}

// newFileStore creates the configured persistent store for course assets
func newFileStore(cfg *config.Config) (fileStore, error) {
	if cfg.Storage.Type == config.StorageTypeMinIO {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := storage.NewMinIOStorage(ctx, storage.MinIOConfig{
			Endpoint:        cfg.MinIO.Endpoint,
			AccessKeyID:     cfg.MinIO.AccessKeyID,
			SecretAccessKey: cfg.MinIO.SecretAccessKey,
			BucketName:      cfg.MinIO.BucketName,
			UseSSL:          cfg.MinIO.UseSSL,
			PublicURL:       cfg.MinIO.PublicURL,
		}, logger.Logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return storage.NewLocalStorage(cfg.Storage.MediaBasePath, cfg.Storage.MediaBaseURL, logger.Logger), nil
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// runMigrations runs database migrations
func runMigrations(db *sql.DB) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{
		MigrationsTable: "authoring_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Running from cmd/api during development finds the migrations two levels up
	migrationPath := "file://migrations"
	if _, err := os.Stat("migrations"); os.IsNotExist(err) {
		if _, err := os.Stat("../../migrations"); err == nil {
			migrationPath = "file://../../migrations"
		}
	}

	m, err := migrate.NewWithDatabaseInstance(migrationPath, "mysql", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
