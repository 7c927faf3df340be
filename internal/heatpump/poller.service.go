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

import (
	"context"
	"time"

	"lampo/internal/events"
	"lampo/pkg/eventbus"
	"lampo/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
)

// Poller runs the telemetry loop: once per interval it reads the full
// register block, decodes it, lets the usage estimator and limit
// tracker enrich the snapshot, persists it, and publishes it for
// subscribers. It is the sole writer of snapshots and compressor
// events. A read, decode, or store error aborts the cycle; nothing is
// persisted before the snapshot itself, and the next tick proceeds
// independently.
type Poller struct {
	device    *Device
	store     Store
	estimator *UsageEstimator
	tuner     *Tuner
	evBus     *eventbus.Bus

	interval  time.Duration
	retention time.Duration
	met       *metrics
	log       *logger.Logger
	now       func() time.Time
}

func NewPoller(device *Device, store Store, evBus *eventbus.Bus, interval, retention time.Duration, reg prometheus.Registerer) *Poller {
	return &Poller{
		device:    device,
		store:     store,
		estimator: NewUsageEstimator(store),
		tuner:     NewTuner(device, store),
		evBus:     evBus,
		interval:  interval,
		retention: retention,
		met:       newMetrics(reg),
		log:       logger.New("Poller"),
		now:       time.Now,
	}
}

func (p *Poller) Run(ctx context.Context) {
	p.log.Info("Running...")
	defer p.log.Info("Stopped")

	p.sweep()
	p.pollOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	sweepTicker := time.NewTicker(24 * time.Hour)
	defer sweepTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		case <-sweepTicker.C:
			p.sweep()
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	start := time.Now()

	snapshot, err := p.cycle(ctx)
	if err != nil {
		p.met.pollErrorsTotal.Inc()
		p.log.Error("poll cycle aborted: %v", err)
		return
	}

	p.met.observe(snapshot)
	p.evBus.Publish(events.TopicSnapshot, snapshot)

	if snapshot.CompressorRunning {
		if err := p.tuner.Evaluate(ctx); err != nil {
			p.log.Error("exchanger tuning: %v", err)
		}
	}

	p.log.Debug("poll cycle finished in %v", time.Since(start))
}

// cycle performs one full read-decode-enrich-persist pass.
func (p *Poller) cycle(ctx context.Context) (Snapshot, error) {
	words, running, err := p.device.ReadTelemetry(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	now := p.now()

	var prev *Snapshot
	latest, err := p.store.LatestSnapshots(1)
	if err != nil {
		return Snapshot{}, err
	}
	if len(latest) > 0 {
		prev = &latest[0]
	}

	usage, event, err := p.estimator.Update(prev, running, now)
	if err != nil {
		return Snapshot{}, err
	}

	snapshot := decodeSnapshot(words)
	snapshot.Time = now
	snapshot.CompressorRunning = running
	snapshot.CompressorUsage = usage
	snapshot.TankLimits = trackLimits(prev, decodeLimits(words), now)

	// The snapshot goes in first: if it fails, no transition event is
	// left behind for the next tick to double-count.
	if err := p.store.InsertSnapshot(snapshot); err != nil {
		return Snapshot{}, err
	}
	if event != nil {
		if err := p.store.InsertCompressorEvent(*event); err != nil {
			return Snapshot{}, err
		}
	}
	return snapshot, nil
}

// sweep drops snapshots past the retention window.
func (p *Poller) sweep() {
	threshold := p.now().Add(-p.retention)
	n, err := p.store.DeleteSnapshotsBefore(threshold)
	if err != nil {
		p.log.Error("retention sweep: %v", err)
		return
	}
	if n > 0 {
		p.log.Info("retention sweep removed %d snapshots", n)
	}
}
