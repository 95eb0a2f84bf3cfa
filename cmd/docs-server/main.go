package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/clinicaldocs/internal/config"
	"github.com/ehr/clinicaldocs/internal/domain/documents"
	"github.com/ehr/clinicaldocs/internal/domain/encounter"
	"github.com/ehr/clinicaldocs/internal/domain/followup"
	"github.com/ehr/clinicaldocs/internal/domain/identity"
	"github.com/ehr/clinicaldocs/internal/platform/blobstore"
	"github.com/ehr/clinicaldocs/internal/platform/db"
	"github.com/ehr/clinicaldocs/internal/platform/logging"
	"github.com/ehr/clinicaldocs/internal/platform/metrics"
	"github.com/ehr/clinicaldocs/internal/platform/middleware"
	"github.com/ehr/clinicaldocs/internal/platform/notification"
	"github.com/ehr/clinicaldocs/internal/platform/render"
	"github.com/ehr/clinicaldocs/migrations"
)

const (
	artifactPrefix    = "/artifacts"
	maxImageBytes     = 2 << 20
	imageCacheTTL     = 24 * time.Hour
	healthPingTimeout = 3 * time.Second
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "docs-server",
		Short: "Clinical document issuance API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(brandingCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the document API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, migrations.FS).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	// migrate status
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrations.FS).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	})

	return cmd
}

func brandingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branding",
		Short: "Inspect institution letterheads",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the letterheads the renderer resolves",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			table, err := loadBrandings(file)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-40s %s\n", "KEY", "NAME", "LOGO")
			for _, b := range table.All() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-40s %s\n", b.Key, b.Name, b.LogoURL)
			}
			return nil
		},
	}
	listCmd.Flags().String("file", os.Getenv("BRANDING_FILE"), "Path to a branding YAML file")

	cmd.AddCommand(listCmd)
	return cmd
}

func loadBrandings(path string) (*render.BrandingTable, error) {
	if path == "" {
		return render.NewBrandingTable(), nil
	}
	return render.LoadBrandingFile(path)
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Logger
	logger := logging.New(logging.Options{
		Level:          cfg.LogLevel,
		Development:    cfg.IsDev(),
		File:           cfg.LogFile,
		FileMaxSizeMB:  cfg.LogFileMaxSizeMB,
		FileMaxBackups: cfg.LogFileMaxBackups,
		FileMaxAgeDays: cfg.LogFileMaxAgeDays,
	})

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	count, err := db.NewMigrator(pool, migrations.FS).Up(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to apply migrations")
	}
	logger.Info().Int("applied", count).Msg("migrations up to date")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.BodyLimit("2M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost},
		AllowHeaders:  []string{"Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"X-Artifact-Source", echo.HeaderContentDisposition},
	}))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout, artifactPrefix))

	m := metrics.New()

	// Artifact store
	var store blobstore.Store
	switch cfg.ArtifactStore {
	case "s3":
		s3Store, err := blobstore.NewS3Store(ctx, blobstore.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Bucket:          cfg.S3Bucket,
			PublicBaseURL:   cfg.ArtifactPublicBaseURL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure artifact bucket")
		}
		store = s3Store
	default:
		baseURL := cfg.ArtifactPublicBaseURL
		if baseURL == "" {
			baseURL = cfg.PublicBaseURL + artifactPrefix
		}
		mem := blobstore.NewMemoryStore(baseURL)
		blobstore.NewBlobHandler(mem).RegisterRoutes(e, artifactPrefix)
		store = mem
	}

	// Renderer
	brandings, err := loadBrandings(cfg.BrandingFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load branding file")
	}
	var fetcher render.ImageFetcher = render.NewHTTPFetcher(&http.Client{Timeout: cfg.SignatureTimeout}, maxImageBytes)
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		rdb := redis.NewClient(opt)
		defer rdb.Close()
		fetcher = render.NewCachedFetcher(fetcher, rdb, imageCacheTTL, logger)
		logger.Info().Msg("image cache enabled")
	}
	renderer := render.New(brandings,
		render.WithImageFetcher(fetcher, cfg.SignatureTimeout),
		render.WithCompression(cfg.RenderCompress),
		render.WithLogger(logger),
	)

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure notifications")
	}

	// Domain services
	encSvc := encounter.NewService(encounter.NewRepo(pool), db.PoolTx(pool))
	followUpSvc := followup.NewService(followup.NewRepo(pool))
	docSvc := documents.NewService(documents.Deps{
		Tx:         db.PoolTx(pool),
		Repo:       documents.NewRepo(pool),
		Encounters: encSvc,
		Patients:   identity.NewPatientRepo(pool),
		Clinicians: identity.NewClinicianRepo(pool),
		Renderer:   renderer,
		Store:      store,
		Notifier:   notifier,
		FollowUps:  followUpSvc,
		Metrics:    m,
		Logger:     logger,
	}, documents.Config{
		LookupTimeout: cfg.LookupTimeout,
		UploadTimeout: cfg.UploadTimeout,
		NotifyTimeout: cfg.NotifyTimeout,
	})

	// API routes
	apiV1 := e.Group("/api/v1")
	documents.NewHandler(docSvc).RegisterRoutes(apiV1)
	encounter.NewHandler(encSvc).RegisterRoutes(apiV1)
	followup.NewHandler(followUpSvc).RegisterRoutes(apiV1)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool, healthPingTimeout))
	e.GET("/metrics", m.Handler())

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("artifact_store", cfg.ArtifactStore).Str("notify_channel", cfg.NotifyChannel).
			Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newNotifier(cfg *config.Config, logger zerolog.Logger) (notification.Notifier, error) {
	templates := notification.NewTemplateEngine()
	switch cfg.NotifyChannel {
	case "sms":
		return notification.NewSMSNotifier(cfg.SMSIRAPIKey, cfg.SMSIRSecretKey, map[string]string{
			notification.TemplateReferralCreated: cfg.SMSIRReferralTemplateID,
		}, cfg.NotifyDefaultRegion), nil
	case "email":
		return notification.NewEmailNotifier(notification.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, templates), nil
	case "log":
		return notification.NewLogNotifier(templates, logger), nil
	}
	return nil, fmt.Errorf("unknown notification channel %q", cfg.NotifyChannel)
}

// errorHandler writes every error as {"error": ...}. Bodies already shaped by
// handlers are passed through; anything unrecognised is logged and hidden
// behind a 500.
func errorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		var body interface{} = map[string]string{"error": http.StatusText(code)}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			switch msg := he.Message.(type) {
			case string:
				body = map[string]string{"error": msg}
			case map[string]interface{}:
				body = msg
			case error:
				body = map[string]string{"error": msg.Error()}
			default:
				body = map[string]string{"error": http.StatusText(code)}
			}
		} else {
			logger.Error().Err(err).Str("path", c.Request().URL.Path).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).Msg("unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			logger.Error().Err(err).Msg("failed to write error response")
		}
	}
}
