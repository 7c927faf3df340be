// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lampo/internal/heatpump"
	"lampo/pkg/logger"
)

// ErrPersistence wraps every storage failure. A poll cycle that hits
// one aborts without partial writes.
var ErrPersistence = errors.New("persistence failure")

const (
	snapshotsFilename = "snapshots.jsonl"
	eventsFilename    = "compressor_events.jsonl"
	softStartFilename = "softstart.json"
)

// FileStore keeps snapshots and compressor events as append-only
// JSON-lines files with a full in-memory index. Records arrive from a
// single writer in time order, so file order is query order.
type FileStore struct {
	mu  sync.RWMutex
	dir string
	log *logger.Logger

	snapshots []heatpump.Snapshot
	events    []heatpump.CompressorEvent

	snapFile  *os.File
	eventFile *os.File
}

// Open loads (or creates) the store files under dir.
func Open(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s := &FileStore{
		dir: dir,
		log: logger.New("Store"),
	}

	var err error
	s.snapFile, err = s.loadLines(snapshotsFilename, func(raw []byte) error {
		var snap heatpump.Snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return err
		}
		s.snapshots = append(s.snapshots, snap)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.eventFile, err = s.loadLines(eventsFilename, func(raw []byte) error {
		var ev heatpump.CompressorEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return err
		}
		s.events = append(s.events, ev)
		return nil
	})
	if err != nil {
		s.snapFile.Close()
		return nil, err
	}

	s.log.Info("loaded %d snapshots, %d compressor events", len(s.snapshots), len(s.events))
	return s, nil
}

func (s *FileStore) loadLines(name string, decode func([]byte) error) (*os.File, error) {
	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrPersistence, name, err)
	}
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		if err := decode(raw); err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrPersistence, name, line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: scan %s: %v", ErrPersistence, name, err)
	}
	if _, err := f.Seek(0, 2); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: seek %s: %v", ErrPersistence, name, err)
	}
	return f, nil
}

// Close closes the underlying files.
func (s *FileStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapFile.Close()
	s.eventFile.Close()
}

func appendLine(f *os.File, v any) error {
	if f == nil {
		return fmt.Errorf("%w: file handle lost after failed compaction", ErrPersistence)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (s *FileStore) InsertSnapshot(snap heatpump.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := appendLine(s.snapFile, snap); err != nil {
		return err
	}
	s.snapshots = append(s.snapshots, snap)
	return nil
}

func (s *FileStore) LatestSnapshots(n int) ([]heatpump.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n > len(s.snapshots) {
		n = len(s.snapshots)
	}
	result := make([]heatpump.Snapshot, 0, n)
	for i := len(s.snapshots) - 1; i >= len(s.snapshots)-n; i-- {
		result = append(result, s.snapshots[i])
	}
	return result, nil
}

func (s *FileStore) SnapshotsSince(t time.Time) ([]heatpump.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []heatpump.Snapshot
	for _, snap := range s.snapshots {
		if snap.Time.After(t) {
			result = append(result, snap)
		}
	}
	return result, nil
}

func (s *FileStore) AllSnapshots() ([]heatpump.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]heatpump.Snapshot(nil), s.snapshots...), nil
}

// DeleteSnapshotsBefore drops snapshots older than t and compacts the
// snapshot file atomically (write temp, rename over).
func (s *FileStore) DeleteSnapshotsBefore(t time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := 0
	for idx < len(s.snapshots) && s.snapshots[idx].Time.Before(t) {
		idx++
	}
	if idx == 0 {
		return 0, nil
	}
	kept := append([]heatpump.Snapshot(nil), s.snapshots[idx:]...)

	path := filepath.Join(s.dir, snapshotsFilename)
	tmpPath := path + ".tmp"
	tmp, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, snap := range kept {
		if err := enc.Encode(snap); err != nil {
			tmp.Close()
			return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	tmp.Close()
	if err := os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	// The old handle points at the unlinked pre-compaction file. Swap
	// it out even when the reopen fails, so later appends fail loudly
	// instead of landing in an orphaned inode. A subsequent sweep can
	// restore a valid handle.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	s.snapFile.Close()
	s.snapFile = f
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	removed := idx
	s.snapshots = kept
	return removed, nil
}

func (s *FileStore) InsertCompressorEvent(ev heatpump.CompressorEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := appendLine(s.eventFile, ev); err != nil {
		return err
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *FileStore) LatestCompressorEvent(kind heatpump.CompressorEventKind) (*heatpump.CompressorEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Kind == kind {
			ev := s.events[i]
			return &ev, nil
		}
	}
	return nil, nil
}

// --- soft-start deadline state ---

type softStartState struct {
	Deadline time.Time `json:"deadline"`
}

func (s *FileStore) SaveSoftStartDeadline(deadline time.Time) error {
	data, err := json.Marshal(softStartState{Deadline: deadline})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	path := filepath.Join(s.dir, softStartFilename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (s *FileStore) ClearSoftStartDeadline() error {
	path := filepath.Join(s.dir, softStartFilename)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (s *FileStore) SoftStartDeadline() (time.Time, bool, error) {
	path := filepath.Join(s.dir, softStartFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	var state softStartState
	if err := json.Unmarshal(data, &state); err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return state.Deadline, true, nil
}
