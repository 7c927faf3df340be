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

package heatpump

import "time"

// Store is the persistence surface the core depends on: append-only
// inserts, most-recent-N and range lookups ordered by time, and a
// retention delete. Implemented by internal/store.
type Store interface {
	InsertSnapshot(s Snapshot) error
	// LatestSnapshots returns up to n snapshots, newest first.
	LatestSnapshots(n int) ([]Snapshot, error)
	// SnapshotsSince returns snapshots with time > t, oldest first.
	SnapshotsSince(t time.Time) ([]Snapshot, error)
	AllSnapshots() ([]Snapshot, error)
	DeleteSnapshotsBefore(t time.Time) (int, error)

	InsertCompressorEvent(e CompressorEvent) error
	// LatestCompressorEvent returns the most recent event of the given
	// kind, or nil when none has been recorded.
	LatestCompressorEvent(kind CompressorEventKind) (*CompressorEvent, error)
}

// SoftStartStore persists the pending soft-start deadline so a
// process restart does not silently drop the deferred transition to
// scheduled operation.
type SoftStartStore interface {
	SaveSoftStartDeadline(deadline time.Time) error
	ClearSoftStartDeadline() error
	// SoftStartDeadline returns the pending deadline, if any.
	SoftStartDeadline() (time.Time, bool, error)
}
