package infra

import (
	"context"
	"testing"
	"time"
)

func TestSchedulerAddJob(t *testing.T) {
	s := NewScheduler(time.Second)

	t.Run("empty spec disables job", func(t *testing.T) {
		if err := s.AddJob("disabled", "", func(context.Context) error { return nil }); err != nil {
			t.Fatalf("AddJob() error = %v", err)
		}
		if len(s.jobs) != 0 {
			t.Errorf("jobs = %v, want none", s.jobs)
		}
	})

	t.Run("invalid spec", func(t *testing.T) {
		if err := s.AddJob("broken", "not a cron spec", func(context.Context) error { return nil }); err == nil {
			t.Fatal("AddJob() error = nil, want parse error")
		}
	})

	t.Run("valid spec runs", func(t *testing.T) {
		ran := make(chan struct{}, 1)
		err := s.AddJob("tick", "@every 1s", func(ctx context.Context) error {
			select {
			case ran <- struct{}{}:
			default:
			}
			return nil
		})
		if err != nil {
			t.Fatalf("AddJob() error = %v", err)
		}

		s.Start()
		defer s.Stop()

		select {
		case <-ran:
		case <-time.After(3 * time.Second):
			t.Fatal("job did not run within 3s")
		}
	})
}
