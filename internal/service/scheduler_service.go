package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	defaultSweepInterval = time.Hour
	defaultJobTimeout    = 30 * time.Second
)

// Notifier delivers reminder and digest messages to chats.
type Notifier interface {
	SendReminders(ctx context.Context, now time.Time) error
	SendDailyDigests(ctx context.Context, now time.Time) error
}

// Sweeper drops sessions that have been idle for longer than idle.
type Sweeper interface {
	Sweep(ctx context.Context, idle time.Duration) int
}

// JobConfig controls the background jobs registered by RegisterJobs.
// An empty DigestTime disables the daily digest.
type JobConfig struct {
	ReminderInterval time.Duration
	DigestTime       string
	SessionIdle      time.Duration
	SweepInterval    time.Duration
	JobTimeout       time.Duration
}

// SchedulerService runs the bot's periodic jobs on a cron scheduler.
type SchedulerService struct {
	cron *cron.Cron
	now  func() time.Time
}

func NewSchedulerService(loc *time.Location) *SchedulerService {
	return &SchedulerService{
		cron: cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		now:  time.Now,
	}
}

// RegisterJobs schedules the deadline reminders, the optional daily digest
// and the idle-session sweep.
func (s *SchedulerService) RegisterJobs(cfg JobConfig, notifier Notifier, sweeper Sweeper) error {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaultJobTimeout
	}

	if _, err := s.ScheduleInterval(cfg.ReminderInterval, s.runJob("reminders", cfg.JobTimeout, notifier.SendReminders)); err != nil {
		return fmt.Errorf("schedule reminders: %w", err)
	}
	if cfg.DigestTime != "" {
		if _, err := s.ScheduleDaily(cfg.DigestTime, s.runJob("digest", cfg.JobTimeout, notifier.SendDailyDigests)); err != nil {
			return fmt.Errorf("schedule digest: %w", err)
		}
	}
	sweep := func(ctx context.Context, _ time.Time) error {
		if n := sweeper.Sweep(ctx, cfg.SessionIdle); n > 0 {
			log.Printf("[info] swept %d idle sessions", n)
		}
		return nil
	}
	if _, err := s.ScheduleInterval(cfg.SweepInterval, s.runJob("sweep", cfg.JobTimeout, sweep)); err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	log.Printf("[info] scheduled %d jobs", s.Len())
	return nil
}

// runJob bounds each run of fn by timeout and logs its failure.
func (s *SchedulerService) runJob(name string, timeout time.Duration, fn func(context.Context, time.Time) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := fn(ctx, s.now()); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("%s job: %v", name, err)
		}
	}
}

// ScheduleDaily registers a daily job at the given HH:MM time string.
func (s *SchedulerService) ScheduleDaily(timeStr string, job func()) (cron.EntryID, error) {
	spec, err := buildDailySpec(timeStr)
	if err != nil {
		return 0, err
	}
	return s.cron.AddFunc(spec, job)
}

// ScheduleInterval registers a job that runs every interval, rounded down to
// whole seconds with a one second minimum.
func (s *SchedulerService) ScheduleInterval(interval time.Duration, job func()) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	return s.cron.Schedule(cron.Every(interval), cron.FuncJob(job)), nil
}

// Len returns the number of registered jobs.
func (s *SchedulerService) Len() int {
	return len(s.cron.Entries())
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func buildDailySpec(timeStr string) (string, error) {
	parts := strings.Split(strings.TrimSpace(timeStr), ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", timeStr)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", timeStr)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", timeStr)
	}
	// second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}
