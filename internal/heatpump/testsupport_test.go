package heatpump

import (
	"context"
	"sync"
	"time"
)

// fakeBus is an in-memory register bank implementing Bus. Writes are
// visible to subsequent reads.
type fakeBus struct {
	mu         sync.Mutex
	regs       map[uint16]uint16
	coils      map[uint16]bool
	failReads  error
	regWrites  []RegisterWrite
	coilWrites int
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		regs:  make(map[uint16]uint16),
		coils: make(map[uint16]bool),
	}
}

func (b *fakeBus) ReadHoldingRegisters(_ context.Context, addr, quantity uint16) ([]uint16, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failReads != nil {
		return nil, b.failReads
	}
	words := make([]uint16, quantity)
	for i := range words {
		words[i] = b.regs[addr+uint16(i)]
	}
	return words, nil
}

func (b *fakeBus) ReadCoils(_ context.Context, addr, quantity uint16) ([]bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failReads != nil {
		return nil, b.failReads
	}
	coils := make([]bool, quantity)
	for i := range coils {
		coils[i] = b.coils[addr+uint16(i)]
	}
	return coils, nil
}

func (b *fakeBus) WriteRegister(_ context.Context, addr, value uint16) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.regWrites = append(b.regWrites, RegisterWrite{Addr: addr, Value: value})
	b.regs[addr] = value
	return nil
}

func (b *fakeBus) WriteCoil(_ context.Context, addr uint16, on bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.coilWrites++
	b.coils[addr] = on
	return nil
}

// memStore is an in-memory Store and SoftStartStore.
type memStore struct {
	snapshots []Snapshot
	events    []CompressorEvent

	deadline    time.Time
	deadlineSet bool
}

func (m *memStore) InsertSnapshot(s Snapshot) error {
	m.snapshots = append(m.snapshots, s)
	return nil
}

func (m *memStore) LatestSnapshots(n int) ([]Snapshot, error) {
	if n > len(m.snapshots) {
		n = len(m.snapshots)
	}
	out := make([]Snapshot, 0, n)
	for i := len(m.snapshots) - 1; i >= len(m.snapshots)-n; i-- {
		out = append(out, m.snapshots[i])
	}
	return out, nil
}

func (m *memStore) SnapshotsSince(t time.Time) ([]Snapshot, error) {
	var out []Snapshot
	for _, s := range m.snapshots {
		if s.Time.After(t) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) AllSnapshots() ([]Snapshot, error) {
	return append([]Snapshot(nil), m.snapshots...), nil
}

func (m *memStore) DeleteSnapshotsBefore(t time.Time) (int, error) {
	idx := 0
	for idx < len(m.snapshots) && m.snapshots[idx].Time.Before(t) {
		idx++
	}
	m.snapshots = m.snapshots[idx:]
	return idx, nil
}

func (m *memStore) InsertCompressorEvent(e CompressorEvent) error {
	m.events = append(m.events, e)
	return nil
}

func (m *memStore) LatestCompressorEvent(kind CompressorEventKind) (*CompressorEvent, error) {
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].Kind == kind {
			e := m.events[i]
			return &e, nil
		}
	}
	return nil, nil
}

func (m *memStore) SaveSoftStartDeadline(d time.Time) error {
	m.deadline, m.deadlineSet = d, true
	return nil
}

func (m *memStore) ClearSoftStartDeadline() error {
	m.deadlineSet = false
	return nil
}

func (m *memStore) SoftStartDeadline() (time.Time, bool, error) {
	return m.deadline, m.deadlineSet, nil
}
