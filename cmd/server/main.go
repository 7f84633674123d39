package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"data_quest/internal/api"
	"data_quest/internal/app/grader"
	"data_quest/internal/app/hooks"
	"data_quest/internal/app/service"
	"data_quest/internal/app/worker"
	"data_quest/internal/common/security"
	"data_quest/internal/domain/repository"
	"data_quest/internal/platform/cache"
	"data_quest/internal/platform/config"
	"data_quest/internal/platform/database"
	"data_quest/internal/platform/events"
	"data_quest/internal/platform/leaderboard"
	"data_quest/internal/platform/lock"
	"data_quest/internal/platform/logger"

	"go.uber.org/zap"
)

// requestOverhead is the request time allowed beyond grading.
const requestOverhead = 30 * time.Second

func main() {
	// 1. Load Configuration
	config.Load()
	cfg := config.AppConfig
	fmt.Println("Configuration loaded.")

	// 2. Initialize Logger
	zl, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("Could not build logger: %v", err)
	}
	defer zl.Sync()

	// 3. Initialize JWT
	security.InitJWT()
	zl.Info("JWT initialized.")

	// 4. Initialize Database
	database.Connect()
	defer database.Close()
	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(migrateCtx, database.DB); err != nil {
		migrateCancel()
		zl.Fatal("Schema migration failed", zap.Error(err))
	}
	migrateCancel()
	store := repository.NewPgStore(database.DB)

	// 5. Initialize Redis-backed leaderboard, locks and verdict cache
	var (
		board        leaderboard.Store
		locker       lock.Locker
		verdictCache grader.VerdictCache
	)
	if cfg.LeaderboardBackend == "redis" {
		cache.ConnectRedis()
		defer cache.CloseRedis()
		board = leaderboard.NewRedisStore(cache.RDB, cfg.LeaderboardKey)
		locker = lock.NewRedisLocker(cache.RDB)
		verdictCache = grader.NewRedisVerdictCache(cache.RDB)
	} else {
		zl.Warn("Running without Redis: leaderboard and verdict cache are process-local")
		board = leaderboard.NewMemoryStore()
		locker = lock.Noop{}
		verdictCache = grader.NewMemoryVerdictCache()
	}

	// 6. Initialize Grader
	strategy := grader.New(grader.Options{
		APIKey:      cfg.GeminiAPIKey,
		BaseURL:     cfg.GeminiBaseURL,
		Model:       cfg.GeminiModel,
		Timeout:     cfg.GraderTimeout(),
		MaxAttempts: cfg.GraderMaxAttempts,
		CacheTTL:    cfg.VerdictCacheTTL(),
	}, verdictCache, &http.Client{}, zl.Named("grader"))

	// 7. Initialize Event Publisher
	var publisher events.Publisher = events.Noop{}
	if cfg.NatsURL != "" {
		nats, err := events.Connect(cfg.NatsURL)
		if err != nil {
			zl.Fatal("Could not connect to NATS", zap.Error(err))
		}
		defer nats.Close()
		publisher = nats
		zl.Info("NATS connected.", zap.String("url", cfg.NatsURL))
	}

	// 8. Initialize Services
	dispatcher := hooks.NewDispatcher(zl.Named("hooks"), cfg.HooksAsync, 30*time.Second)
	ledger := service.NewXPLedger(board, zl.Named("xp"))
	streakService := service.NewStreakService(store, ledger, dispatcher, zl)
	achievementService := service.NewAchievementService(store, ledger, dispatcher, zl)
	submissionService := service.NewSubmissionService(store, strategy.Grader, strategy.Hinter, ledger, dispatcher, zl)
	pvpService := service.NewPvPService(store, strategy.Grader, ledger, dispatcher, service.PvPConfig{
		WinXP:      cfg.PvPWinXP,
		PendingTTL: cfg.PvPPendingTTL(),
		ActiveTTL:  cfg.PvPActiveTTL(),
	}, zl)
	leaderboardService := service.NewLeaderboardService(store, board, zl)
	notificationService := service.NewNotificationService(store)
	authService := service.NewAuthService(store, streakService, achievementService, dispatcher, zl)
	registerHooks(dispatcher, achievementService, publisher)

	// 9. Initialize Maintenance Worker (as a goroutine)
	maintenance := worker.NewMaintenanceWorker(locker, cfg.MaintenanceLockTTL(), zl.Named("maintenance"))
	mustRegister(zl, maintenance, worker.Task{Name: "leaderboard-rebuild", Schedule: cfg.RebuildSchedule, Run: func(ctx context.Context) error {
		_, err := leaderboardService.Rebuild(ctx)
		return err
	}})
	mustRegister(zl, maintenance, worker.Task{Name: "match-expiry", Schedule: cfg.ExpirySchedule, Run: func(ctx context.Context) error {
		n, err := pvpService.ExpireStale(ctx)
		if n > 0 {
			zl.Info("Expired stale matches", zap.Int64("count", n))
		}
		return err
	}})
	if err := maintenance.RunOnce(context.Background(), "leaderboard-rebuild"); err != nil {
		zl.Warn("Initial leaderboard rebuild failed", zap.Error(err))
	}
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	workerDone := make(chan struct{})
	go func() {
		maintenance.Start(workerCtx)
		close(workerDone)
	}()

	// 10. Initialize Router & HTTP Server
	// A submission may spend the whole grading budget before it touches the
	// database, so the request deadline sits on top of it.
	requestTimeout := strategy.Budget + requestOverhead
	router := api.NewRouter(api.Services{
		Auth:          authService,
		Submissions:   submissionService,
		PvP:           pvpService,
		Achievements:  achievementService,
		Streaks:       streakService,
		Notifications: notificationService,
		Leaderboard:   leaderboardService,
		Users:         service.NewUserService(store, streakService, board),
	}, requestTimeout)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 11. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		zl.Info("Server starting", zap.String("port", cfg.APIPort), zap.Bool("remote_grader", strategy.Remote))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zl.Fatal("Could not listen", zap.String("port", cfg.APIPort), zap.Error(err))
		}
	}()

	<-stop

	zl.Info("Shutting down server...")
	workerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("Server shutdown failed", zap.Error(err))
	}
	<-workerDone
	dispatcher.Wait()

	zl.Info("Server, worker and hooks stopped gracefully.")
}

func mustRegister(zl *zap.Logger, w *worker.MaintenanceWorker, t worker.Task) {
	if err := w.Register(t); err != nil {
		zl.Fatal("Invalid maintenance task", zap.String("task", t.Name), zap.Error(err))
	}
}
