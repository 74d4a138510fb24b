package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

type fakeLock struct {
	held       bool
	acquireErr error
	releases   int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquireErr != nil {
		return false, f.acquireErr
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type countingJob struct {
	name string
	err  error
	runs int
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, job string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "job" && label.GetValue() == job {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestRunOnceRunsEveryJobAndRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	ok := &countingJob{name: "order-expiry"}
	failing := &countingJob{name: "outbox-retention", err: errors.New("boom")}
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(ok, failing),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	service.RunOnce(context.Background())

	if ok.runs != 1 || failing.runs != 1 {
		t.Fatalf("expected each job once, got %d and %d", ok.runs, failing.runs)
	}
	if lock.held || lock.releases != 1 {
		t.Fatalf("expected lock released once")
	}
	if got := counterValue(t, reg, "storefront_cron_job_success_total", "order-expiry"); got != 1 {
		t.Fatalf("expected one success, got %v", got)
	}
	if got := counterValue(t, reg, "storefront_cron_job_failure_total", "outbox-retention"); got != 1 {
		t.Fatalf("expected one failure, got %v", got)
	}
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	reg := prometheus.NewRegistry()
	job := &countingJob{name: "order-expiry"}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(job),
		Lock:     &fakeLock{held: true},
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	service.RunOnce(context.Background())
	if job.runs != 0 {
		t.Fatalf("expected no runs while another replica holds the lock")
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var skipped float64
	for _, family := range families {
		if family.GetName() == "storefront_cron_cycles_skipped_total" {
			skipped = family.GetMetric()[0].GetCounter().GetValue()
		}
	}
	if skipped != 1 {
		t.Fatalf("expected one skipped cycle, got %v", skipped)
	}
}

func TestRunOnceSkipsOnLockError(t *testing.T) {
	job := &countingJob{name: "order-expiry"}
	lock := &fakeLock{acquireErr: errors.New("redis down")}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	service.RunOnce(context.Background())
	if job.runs != 0 || lock.releases != 0 {
		t.Fatalf("expected nothing to run or release")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &countingJob{name: "order-expiry"}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(job),
		Lock:     &fakeLock{},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewServiceRequiresLock(t *testing.T) {
	if _, err := NewService(ServiceParams{Logger: logger.Nop()}); err == nil {
		t.Fatalf("expected error without lock")
	}
}
