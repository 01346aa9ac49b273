package cron

import (
	"context"
	"reflect"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	registry := NewRegistry()
	jobA := &stubJob{name: "booking-escalation"}
	jobB := &stubJob{name: "outbox-retention"}
	if err := registry.Register(jobA); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register(jobB); err != nil {
		t.Fatalf("register: %v", err)
	}
	jobs := registry.Jobs()
	if len(jobs) != 2 || jobs[0] != jobA || jobs[1] != jobB {
		t.Fatalf("jobs returned out of order")
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
	if got := registry.Names(); !reflect.DeepEqual(got, []string{"booking-escalation", "outbox-retention"}) {
		t.Fatalf("unexpected names %v", got)
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "a"})
	if err := registry.Register(&stubJob{name: "a"}); err == nil {
		t.Fatal("expected duplicate error")
	}
	if err := registry.Register(nil); err != nil {
		t.Fatalf("nil job should be ignored: %v", err)
	}
	if len(registry.Jobs()) != 1 {
		t.Fatalf("expected one job")
	}
}
