package heatpump

import (
	"testing"
	"time"
)

func TestUsageFirstPoll(t *testing.T) {
	store := &memStore{}
	est := NewUsageEstimator(store)

	usage, event, err := est.Update(nil, true, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if usage != nil {
		t.Errorf("usage = %v, want nil on first poll", *usage)
	}
	if event != nil {
		t.Errorf("first poll must not produce an event, got %+v", *event)
	}
}

func TestUsageNoTransition(t *testing.T) {
	store := &memStore{}
	est := NewUsageEstimator(store)
	prev := &Snapshot{CompressorRunning: true}

	usage, event, err := est.Update(prev, true, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if usage != nil {
		t.Errorf("usage = %v, want nil without a transition", *usage)
	}
	if event != nil {
		t.Errorf("steady state must not produce an event, got %+v", *event)
	}
}

func TestUsageStartEdge(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	store := &memStore{events: []CompressorEvent{
		{Time: now.Add(-100 * time.Minute), Kind: CompressorStart},
		{Time: now.Add(-40 * time.Minute), Kind: CompressorStop},
	}}
	est := NewUsageEstimator(store)
	prev := &Snapshot{CompressorRunning: false}

	usage, event, err := est.Update(prev, true, now)
	if err != nil {
		t.Fatal(err)
	}
	// prior cycle: 60 active minutes out of 100
	if usage == nil || *usage != 60 {
		t.Fatalf("usage = %v, want 60", usage)
	}

	if event == nil || event.Kind != CompressorStart || !event.Time.Equal(now) {
		t.Errorf("expected a start event at now, got %+v", event)
	}
}

func TestUsageStopEdge(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	store := &memStore{events: []CompressorEvent{
		{Time: now.Add(-100 * time.Minute), Kind: CompressorStop},
		{Time: now.Add(-60 * time.Minute), Kind: CompressorStart},
	}}
	est := NewUsageEstimator(store)
	prev := &Snapshot{CompressorRunning: true}

	usage, event, err := est.Update(prev, false, now)
	if err != nil {
		t.Fatal(err)
	}
	// 60 minutes running since last start, 100 since last stop
	if usage == nil || *usage != 60 {
		t.Fatalf("usage = %v, want 60", usage)
	}

	if event == nil || event.Kind != CompressorStop || !event.Time.Equal(now) {
		t.Errorf("expected a stop event at now, got %+v", event)
	}
}

func TestUsageTransitionWithoutPriorCycle(t *testing.T) {
	now := time.Now()
	// only a stop on record: no full prior cycle yet
	store := &memStore{events: []CompressorEvent{
		{Time: now.Add(-30 * time.Minute), Kind: CompressorStop},
	}}
	est := NewUsageEstimator(store)
	prev := &Snapshot{CompressorRunning: false}

	usage, event, err := est.Update(prev, true, now)
	if err != nil {
		t.Fatal(err)
	}
	if usage != nil {
		t.Errorf("usage = %v, want nil without a complete prior cycle", *usage)
	}
	// the transition itself still produces an event
	if event == nil || event.Kind != CompressorStart {
		t.Errorf("expected start event, got %+v", event)
	}
}

func TestUsageUpdateDoesNotPersist(t *testing.T) {
	now := time.Now()
	store := &memStore{}
	est := NewUsageEstimator(store)
	prev := &Snapshot{CompressorRunning: false}

	_, event, err := est.Update(prev, true, now)
	if err != nil {
		t.Fatal(err)
	}
	if event == nil {
		t.Fatal("expected an event for the transition")
	}
	if len(store.events) != 0 {
		t.Errorf("the estimator must not write events itself, got %d", len(store.events))
	}
}

func TestUsageZeroCycle(t *testing.T) {
	now := time.Now()
	store := &memStore{events: []CompressorEvent{
		{Time: now, Kind: CompressorStart},
		{Time: now, Kind: CompressorStop},
	}}
	est := NewUsageEstimator(store)
	prev := &Snapshot{CompressorRunning: false}

	usage, _, err := est.Update(prev, true, now)
	if err != nil {
		t.Fatal(err)
	}
	if usage != nil {
		t.Errorf("usage = %v, want nil for a zero-length cycle", *usage)
	}
}

func TestUsageRounding(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	// active 20min of 60min cycle: 33.333...% rounds to 33.33
	store := &memStore{events: []CompressorEvent{
		{Time: now.Add(-60 * time.Minute), Kind: CompressorStart},
		{Time: now.Add(-40 * time.Minute), Kind: CompressorStop},
	}}
	est := NewUsageEstimator(store)
	prev := &Snapshot{CompressorRunning: false}

	usage, _, err := est.Update(prev, true, now)
	if err != nil {
		t.Fatal(err)
	}
	if usage == nil || *usage != 33.33 {
		t.Fatalf("usage = %v, want 33.33", usage)
	}
}
