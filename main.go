package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/gommon/log"

	"bus-checkin/bot"
	"bus-checkin/config"
	"bus-checkin/internal/handlers"
	"bus-checkin/internal/repository"
	"bus-checkin/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.SetLevel(cfg.GommonLevel())
	log.Infof("Config loaded (store=%s, timezone=%s)", cfg.StoreDriver, cfg.Location)

	// Create application context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize application dependencies
	app := initApplication(cfg)

	// Initialize Telegram Bot
	if err := initBot(cfg, app); err != nil {
		log.Warnf("Telegram Bot disabled: %v", err)
	}

	e := handlers.NewServer(
		handlers.NewAttendanceHandler(app.attendance, cfg.Location),
		handlers.NewUserHandler(app.users),
		cfg.RequestTimeout,
	)
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 10 * time.Second
	e.Server.IdleTimeout = 60 * time.Second

	// Start server in a goroutine
	go func() {
		log.Infof("Server starting on %s", cfg.HTTPAddr)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Server failed: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info("Shutdown signal received, initiating graceful shutdown...")
	bot.StopPolling()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server shutdown error: %v", err)
	}

	log.Info("Server stopped gracefully")
}

type application struct {
	users      *services.UserService
	attendance *services.AttendanceService
}

// botBackend serves the bot's read-only commands
type botBackend struct {
	*services.UserService
	*services.AttendanceService
}

// initBot initializes the Telegram bot
func initBot(cfg *config.Config, app *application) error {
	if err := bot.Init(cfg.TelegramBotToken, cfg.AuthorizedChatID); err != nil {
		return err
	}

	bot.SetBackend(botBackend{app.users, app.attendance})
	bot.SetLocation(cfg.Location)
	bot.StartPolling()

	log.Info("Telegram Bot Initialized")
	return nil
}

// openRepositories picks the store driver
func openRepositories(cfg *config.Config) (repository.UserRepository, repository.AttendanceRepository) {
	if cfg.StoreDriver == config.DriverMemory {
		log.Warn("Using in-memory store, data is lost on restart")
		store := repository.NewMemoryStore()
		return store.Users(), store.Attendance()
	}

	// Initialize repositories with PocketBase REST API
	userRepo := repository.NewPocketBaseRESTUserRepository(cfg.PocketBaseURL, cfg.PocketBaseToken, cfg.RequestTimeout)
	attendanceRepo := repository.NewPocketBaseRESTAttendanceRepository(cfg.PocketBaseURL, cfg.PocketBaseToken, cfg.RequestTimeout)
	return userRepo, attendanceRepo
}

// initApplication initializes all application dependencies
func initApplication(cfg *config.Config) *application {
	userRepo, attendanceRepo := openRepositories(cfg)

	// Create bot notifier wrapper
	botNotifier := bot.NewNotifier()

	return &application{
		users: services.NewUserService(userRepo),
		attendance: services.NewAttendanceService(
			userRepo,
			attendanceRepo,
			botNotifier,
			services.WithLocation(cfg.Location),
		),
	}
}
