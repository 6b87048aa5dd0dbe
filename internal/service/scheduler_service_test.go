package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBuildDailySpec(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"09:00", "0 0 9 * * *", false},
		{"23:59", "0 59 23 * * *", false},
		{" 7:05 ", "0 5 7 * * *", false},
		{"24:00", "", true},
		{"12:60", "", true},
		{"noon", "", true},
	}
	for _, tt := range tests {
		got, err := buildDailySpec(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("buildDailySpec(%q) err = %v, wantErr %t", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("buildDailySpec(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSchedulerService_Register(t *testing.T) {
	s := NewSchedulerService(time.UTC)
	if _, err := s.ScheduleInterval(0, func() {}); err == nil {
		t.Error("expected error for zero interval")
	}
	if _, err := s.ScheduleInterval(time.Minute, func() {}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ScheduleDaily("08:30", func() {}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ScheduleDaily("bad", func() {}); err == nil {
		t.Error("expected error for bad time")
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
	s.Start()
	s.Stop()
}

type fakeNotifier struct {
	reminders, digests int
	deadline           bool
	at                 time.Time
}

func (f *fakeNotifier) SendReminders(ctx context.Context, now time.Time) error {
	_, f.deadline = ctx.Deadline()
	f.at = now
	f.reminders++
	return nil
}

func (f *fakeNotifier) SendDailyDigests(_ context.Context, now time.Time) error {
	f.at = now
	f.digests++
	return errors.New("telegram unavailable")
}

type fakeSweeper struct {
	calls int
	idle  time.Duration
}

func (f *fakeSweeper) Sweep(_ context.Context, idle time.Duration) int {
	f.calls++
	f.idle = idle
	return 2
}

func TestSchedulerService_RegisterJobs(t *testing.T) {
	tests := []struct {
		name       string
		cfg        JobConfig
		wantJobs   int
		wantDigest int
	}{
		{"with digest", JobConfig{ReminderInterval: time.Minute, DigestTime: "08:00", SessionIdle: time.Hour}, 3, 1},
		{"without digest", JobConfig{ReminderInterval: time.Minute, SessionIdle: time.Hour}, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
			s := NewSchedulerService(time.UTC)
			s.now = func() time.Time { return now }
			notifier, sweeper := &fakeNotifier{}, &fakeSweeper{}

			if err := s.RegisterJobs(tt.cfg, notifier, sweeper); err != nil {
				t.Fatal(err)
			}
			if s.Len() != tt.wantJobs {
				t.Fatalf("Len = %d, want %d", s.Len(), tt.wantJobs)
			}
			for _, e := range s.cron.Entries() {
				e.Job.Run()
			}
			if notifier.reminders != 1 || notifier.digests != tt.wantDigest {
				t.Errorf("reminders=%d digests=%d, want 1 and %d", notifier.reminders, notifier.digests, tt.wantDigest)
			}
			if !notifier.deadline {
				t.Error("reminder job ran without a timeout")
			}
			if !notifier.at.Equal(now) {
				t.Errorf("job clock = %v, want %v", notifier.at, now)
			}
			if sweeper.calls != 1 || sweeper.idle != time.Hour {
				t.Errorf("sweeper calls=%d idle=%v", sweeper.calls, sweeper.idle)
			}
		})
	}
}

func TestSchedulerService_RegisterJobsErrors(t *testing.T) {
	notifier, sweeper := &fakeNotifier{}, &fakeSweeper{}
	if err := NewSchedulerService(time.UTC).RegisterJobs(JobConfig{}, notifier, sweeper); err == nil {
		t.Error("expected error for missing reminder interval")
	}
	cfg := JobConfig{ReminderInterval: time.Minute, DigestTime: "25:00"}
	if err := NewSchedulerService(time.UTC).RegisterJobs(cfg, notifier, sweeper); err == nil {
		t.Error("expected error for bad digest time")
	}
}
