package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"

	"patientportal/docs"
	"patientportal/internal/config"
	"patientportal/internal/database"
	"patientportal/internal/database/migration"
	handlers "patientportal/internal/http/handler"
	"patientportal/internal/http/middleware"
	"patientportal/internal/logging"
	"patientportal/internal/otel"
	"patientportal/internal/repository"
	"patientportal/internal/repository/memory"
	"patientportal/internal/repository/postgres"
	"patientportal/internal/service"
	"patientportal/internal/storage"
)

// @title Patient Portal API
// @version 1.0
// @description Upload, list, view, download and delete patient PDF documents.
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.LogLevel).With("env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		logger.Fatal("failed to initialize tracing", "error", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	db, docRepo, err := openMetadataStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize metadata store", "driver", cfg.MetadataDriver, "error", err)
	}
	var pinger handlers.Pinger
	if db != nil {
		defer db.Close()
		pinger = db
	}

	blobs, err := openBlobStore(cfg)
	if err != nil {
		logger.Fatal("failed to initialize file storage", "driver", cfg.Storage.Driver, "error", err)
	}
	if err := blobs.EnsureRoot(ctx); err != nil {
		logger.Fatal("failed to prepare file storage", "root", cfg.Storage.Root, "error", err)
	}

	writer := storage.NewWriter(blobs, cfg.Storage.Root, storage.Rules{
		MaxBytes:            cfg.Storage.MaxUploadBytes,
		AllowedExtensions:   cfg.Storage.AllowedExtensions,
		AllowedContentTypes: cfg.Storage.AllowedContentTypes,
	})
	docSvc := service.NewDocumentService(writer, blobs, docRepo, logger)

	app := fiber.New(fiber.Config{
		AppName:      "patient-portal-api",
		ErrorHandler: handlers.ErrorHandler(),
		// Headroom above the upload limit so oversized files reach validation.
		BodyLimit: int(2*cfg.Storage.MaxUploadBytes) + 1<<20,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		logger.Fatal("failed to register metrics", "error", err)
	}

	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(logger))
	app.Use(promMiddleware.Handler())
	app.Use(middleware.CORS(cfg.CORSOrigins))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	handlers.RegisterRoutes(app, pinger, docSvc)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			"addr", addr,
			"metadata_driver", cfg.MetadataDriver,
			"storage_driver", cfg.Storage.Driver,
		)
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped", "error", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}
}

// openMetadataStore returns the document repository for the configured
// driver. db is nil unless the driver is backed by SQL.
func openMetadataStore(ctx context.Context, cfg *config.AppConfig, logger *log.Logger) (*sql.DB, repository.DocumentRepository, error) {
	switch cfg.MetadataDriver {
	case "memory":
		logger.Warn("using in-memory metadata store; records are lost on restart")
		return nil, memory.NewDocumentMemory(), nil
	case "postgres", "":
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := migration.EnsureMigrated(ctx, db, logger, database.HostOf(cfg.Database)); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
		}
		return db, postgres.NewDocumentPostgres(db), nil
	default:
		return nil, nil, fmt.Errorf("unknown METADATA_DRIVER %q", cfg.MetadataDriver)
	}
}

func openBlobStore(cfg *config.AppConfig) (storage.Storage, error) {
	switch cfg.Storage.Driver {
	case "local", "":
		return storage.NewLocal(afero.NewOsFs(), cfg.Storage.Root), nil
	case "minio":
		return storage.NewMinIO(cfg.MinIO)
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Storage.Driver)
	}
}
