package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/tutoria/tutoria-backend/internal/config"
	"github.com/tutoria/tutoria-backend/internal/database"
	"github.com/tutoria/tutoria-backend/internal/handler"
	"github.com/tutoria/tutoria-backend/internal/logger"
	"github.com/tutoria/tutoria-backend/internal/notifier"
	"github.com/tutoria/tutoria-backend/internal/repository"
	"github.com/tutoria/tutoria-backend/internal/router"
	"github.com/tutoria/tutoria-backend/internal/service"
	"github.com/tutoria/tutoria-backend/internal/timezone"
	"github.com/tutoria/tutoria-backend/internal/validator"
	"github.com/tutoria/tutoria-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Tutoria Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	// ─── Canonical Timezone ────────────────────────────────────────────
	// All administrator-entered wall clocks are interpreted in this zone.
	zone := cfg.CanonicalTimezone
	if zone == "" {
		log.Warn().Msg("CANONICAL_TIMEZONE not set, falling back to UTC")
		zone = "UTC"
	}
	tz, err := timezone.New(zone)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load canonical timezone")
	}
	log.Info().Str("timezone", tz.Zone()).Msg("Canonical timezone loaded")

	if cfg.DefaultMeetingLink == "" {
		log.Warn().Msg("DEFAULT_MEETING_LINK not set, sessions scheduled without a link get none")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Outbound Notifications ────────────────────────────────────────
	notif := notifier.FromConfig(cfg, log)

	// ─── Initialize Repositories ───────────────────────────────────────
	txRunner := repository.NewTxRunner(pool)
	studentRepo := repository.NewStudentRepository(pool)
	groupRepo := repository.NewGroupRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	attendanceRepo := repository.NewAttendanceRepository(pool)
	creditRepo := repository.NewCreditRepository(pool)
	settingRepo := repository.NewSettingRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	studentService := service.NewStudentService(studentRepo, tz, log)
	groupService := service.NewGroupService(groupRepo, studentRepo, tz, log)
	schedulingService := service.NewSchedulingService(
		txRunner, sessionRepo, studentRepo, groupRepo, attendanceRepo, creditRepo, settingRepo,
		tz, notif, rdb, cfg.DefaultMeetingLink, log,
	)
	lifecycleService := service.NewLifecycleService(
		txRunner, sessionRepo, studentRepo, groupRepo, attendanceRepo, creditRepo,
		tz, notif, rdb, cfg.ParentCancelLead, log,
	)
	ledgerService := service.NewLedgerService(txRunner, creditRepo, studentRepo, log)
	agendaService := service.NewAgendaService(sessionRepo, studentRepo, groupRepo, tz, rdb, log)
	settingService := service.NewSettingService(settingRepo, log)
	dashboardService := service.NewDashboardService(dashboardRepo)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Student:   handler.NewStudentHandler(studentService),
		Group:     handler.NewGroupHandler(groupService),
		Session:   handler.NewSessionHandler(schedulingService, lifecycleService, agendaService),
		Credit:    handler.NewCreditHandler(ledgerService),
		Setting:   handler.NewSettingHandler(settingService),
		Dashboard: handler.NewDashboardHandler(dashboardService),
		System:    handler.NewSystemHandler(rdb, log),
	}

	// ─── Start Reminder Worker ────────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	reminderWorker := worker.NewReminderWorker(
		sessionRepo, studentRepo, groupRepo, tz, notif, rdb, cfg.DayAheadReminderTime, log,
	)
	if err := reminderWorker.Start(workerCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start reminder worker")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the reminder worker and wait for any running pass.
	workerCancel()
	reminderWorker.Stop()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
