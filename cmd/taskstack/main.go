package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskstack/internal/auth"
	"taskstack/internal/bot"
	"taskstack/internal/config"
	"taskstack/internal/repository"
	"taskstack/internal/service"
	"taskstack/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	sessions := session.NewManager(
		func(sessionID string) auth.Store { return repository.NewAccountRepository(db, sessionID) },
		repository.DeleteSession(db),
	)

	authSvc := service.NewAuthService(sessions)
	taskSvc := service.NewTaskService(sessions)
	reminderSvc := service.NewReminderService(sessions, cfg.ReminderWindow)

	telegramBot, err := bot.New(cfg.TelegramToken, authSvc, taskSvc, reminderSvc)
	if err != nil {
		log.Fatalf("bot: %v", err)
	}

	scheduler := service.NewSchedulerService(time.Local)
	jobs := service.JobConfig{
		ReminderInterval: cfg.ReminderInterval,
		DigestTime:       cfg.DigestTime,
		SessionIdle:      cfg.SessionIdle,
	}
	if err := scheduler.RegisterJobs(jobs, telegramBot, sessions); err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Println("Task stack bot started.")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}
