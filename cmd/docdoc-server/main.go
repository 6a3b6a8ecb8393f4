package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cuinc99/docdoc/internal/config"
	"github.com/cuinc99/docdoc/internal/domain/billing"
	"github.com/cuinc99/docdoc/internal/domain/medrecord"
	"github.com/cuinc99/docdoc/internal/domain/patient"
	"github.com/cuinc99/docdoc/internal/domain/prescription"
	"github.com/cuinc99/docdoc/internal/domain/queue"
	"github.com/cuinc99/docdoc/internal/domain/scheduling"
	"github.com/cuinc99/docdoc/internal/platform/auth"
	"github.com/cuinc99/docdoc/internal/platform/clock"
	"github.com/cuinc99/docdoc/internal/platform/db"
	"github.com/cuinc99/docdoc/internal/platform/middleware"
	"github.com/cuinc99/docdoc/internal/platform/sequence"
	"github.com/cuinc99/docdoc/internal/platform/settings"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "docdoc-server",
		Short: "Clinic operations API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the clinic API server",
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

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

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

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

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

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
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
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// sweepCmd runs the record lock sweep once and exits, for cron-style setups
// where the long-running in-process sweeper is not wanted.
func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Lock stale medical records once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			clk, err := clock.New(cfg.ClinicTZ)
			if err != nil {
				return err
			}

			recordSvc := medrecord.NewService(
				medrecord.NewRepoPG(pool),
				queue.NewRepoPG(pool),
				queue.NewVitalSignRepoPG(pool),
				clk,
				db.NewRunner(pool),
				time.Duration(cfg.RecordLockHrs)*time.Hour,
			)

			locked, err := recordSvc.LockStale(ctx)
			if err != nil {
				return fmt.Errorf("lock sweep failed: %w", err)
			}
			fmt.Printf("Locked %d record(s).\n", locked)
			return nil
		},
	}
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	clk, err := clock.New(cfg.ClinicTZ)
	if err != nil {
		logger.Fatal().Err(err).Str("timezone", cfg.ClinicTZ).Msg("invalid clinic timezone")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(echomw.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	if cfg.IsDev() {
		logger.Warn().Msg("running with dev auth; every request is an admin")
		e.Use(auth.DevMiddleware())
	} else {
		e.Use(auth.Middleware(cfg.JWTSecret))
	}

	e.GET("/healthz", db.HealthHandler(pool))

	api := e.Group("/api/v1")

	// Shared infrastructure
	runner := db.NewRunner(pool)
	seq := sequence.NewPG(pool)
	settingsStore := settings.NewPG(pool)

	// Repositories
	patientRepo := patient.NewRepoPG(pool)
	scheduleRepo := scheduling.NewRepoPG(pool)
	queueRepo := queue.NewRepoPG(pool)
	vitalRepo := queue.NewVitalSignRepoPG(pool)
	recordRepo := medrecord.NewRepoPG(pool)
	rxRepo := prescription.NewRepoPG(pool)
	invoiceRepo := billing.NewRepoPG(pool)

	// Services. The schedule service consults the queue repo to gate edits on
	// dependent entries; the queue service consults the schedule service for
	// availability.
	patientSvc := patient.NewService(patientRepo, seq, clk, runner)
	schedSvc := scheduling.NewService(scheduleRepo, queueRepo, runner)
	queueSvc := queue.NewService(queueRepo, vitalRepo, schedSvc, seq, clk, runner)
	recordSvc := medrecord.NewService(recordRepo, queueRepo, vitalRepo, clk, runner,
		time.Duration(cfg.RecordLockHrs)*time.Hour)
	rxSvc := prescription.NewService(rxRepo, recordRepo, seq, clk, runner)
	billingSvc := billing.NewService(invoiceRepo, seq, settingsStore, clk, runner)

	// Handlers
	patient.NewHandler(patientSvc).RegisterRoutes(api)
	scheduling.NewHandler(schedSvc).RegisterRoutes(api)
	queue.NewHandler(queueSvc).RegisterRoutes(api)
	medrecord.NewHandler(recordSvc).RegisterRoutes(api)
	prescription.NewHandler(rxSvc).RegisterRoutes(api)
	billing.NewHandler(billingSvc).RegisterRoutes(api)
	settings.NewHandler(settingsStore).RegisterRoutes(api)

	// Background sweep that locks stale records.
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go runLockSweep(sweepCtx, recordSvc, time.Duration(cfg.SweepMinutes)*time.Minute, logger)

	// Start server with graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	stopSweep()
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}
	return nil
}

// runLockSweep periodically locks records older than the editing window. One
// immediate pass at startup, then on the ticker.
func runLockSweep(ctx context.Context, svc *medrecord.Service, interval time.Duration, logger zerolog.Logger) {
	sweep := func() {
		locked, err := svc.LockStale(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("record lock sweep failed")
			return
		}
		if locked > 0 {
			logger.Info().Int("locked", locked).Msg("locked stale medical records")
		}
	}

	sweep()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
