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

// UsageEstimator is an edge detector over consecutive polls that
// attributes a duty-cycle percentage to each compressor transition.
// A cycle runs edge-to-edge; usage is always computed for the
// completed prior cycle, never the in-progress one. Cycles overlap
// (start->start and stop->stop) to produce more data points.
type UsageEstimator struct {
	store Store
}

func NewUsageEstimator(store Store) *UsageEstimator {
	return &UsageEstimator{store: store}
}

// Update inspects the current compressor flag against the previous
// snapshot. On a transition it returns a CompressorEvent stamped at
// now and, when a full prior cycle exists, the usage percentage for
// it. Without a transition, or without any prior snapshot, both are
// nil. Update only reads the store; the caller persists the event
// after the snapshot it belongs to.
func (e *UsageEstimator) Update(prev *Snapshot, running bool, now time.Time) (*float64, *CompressorEvent, error) {
	if prev == nil {
		// nothing to compare against on the very first poll
		return nil, nil, nil
	}

	lastStart, err := e.store.LatestCompressorEvent(CompressorStart)
	if err != nil {
		return nil, nil, err
	}
	lastStop, err := e.store.LatestCompressorEvent(CompressorStop)
	if err != nil {
		return nil, nil, err
	}

	var usage *float64
	var event *CompressorEvent

	switch {
	case running && !prev.CompressorRunning:
		// off -> on: a start-to-start cycle just completed.
		// Example: RRRRRRNNNN = 60 %
		if lastStart != nil && lastStop != nil {
			cycle := now.Sub(lastStart.Time)
			active := lastStop.Time.Sub(lastStart.Time)
			usage = usageOf(active, cycle)
		}
		event = &CompressorEvent{Time: now, Kind: CompressorStart}

	case !running && prev.CompressorRunning:
		// on -> off: a stop-to-stop cycle just completed.
		// Example: NNNNRRRRRR = 60 %
		if lastStart != nil && lastStop != nil {
			active := now.Sub(lastStart.Time)
			cycle := now.Sub(lastStop.Time)
			usage = usageOf(active, cycle)
		}
		event = &CompressorEvent{Time: now, Kind: CompressorStop}
	}

	return usage, event, nil
}

func usageOf(active, cycle time.Duration) *float64 {
	if cycle <= 0 {
		return nil
	}
	pct := round2(active.Minutes() / cycle.Minutes() * 100)
	return &pct
}
