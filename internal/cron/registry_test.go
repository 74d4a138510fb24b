package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	registry := NewRegistry(jobA, nil, jobB)

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != jobA || jobs[1] != jobB {
		t.Fatalf("jobs returned out of order")
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRegistryReplacesSameName(t *testing.T) {
	first := &stubJob{name: "order-expiry"}
	second := &stubJob{name: "order-expiry"}
	registry := NewRegistry(first, &stubJob{name: "outbox-retention"})
	registry.Register(second)

	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != second {
		t.Fatalf("expected replacement to keep its slot")
	}
	names := registry.Names()
	if names[0] != "order-expiry" || names[1] != "outbox-retention" {
		t.Fatalf("unexpected names %v", names)
	}
}
