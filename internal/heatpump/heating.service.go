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
	"sync"
	"time"

	"lampo/pkg/logger"
)

// softStartDelay is how long a soft start defers schedule-based
// boosting after enabling the heating circuit.
const softStartDelay = 12 * time.Hour

// HeatingService derives the coarse operational status of the heating
// system and drives the start/stop/soft-start transitions. The
// softStart flag is owned by the service instance; its pending
// deadline is persisted so a restart can re-arm the deferred
// transition.
type HeatingService struct {
	device *Device
	state  SoftStartStore
	log    *logger.Logger

	mu        sync.Mutex
	softStart bool
	timer     *time.Timer

	now func() time.Time
}

func NewHeatingService(device *Device, state SoftStartStore) *HeatingService {
	return &HeatingService{
		device: device,
		state:  state,
		log:    logger.New("Heating"),
		now:    time.Now,
	}
}

// RecoverSoftStart re-arms a persisted soft-start deadline after a
// restart. An overdue deadline completes immediately: scheduling is
// enabled and the flag cleared.
func (h *HeatingService) RecoverSoftStart(ctx context.Context) error {
	deadline, ok, err := h.state.SoftStartDeadline()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	remaining := deadline.Sub(h.now())
	if remaining <= 0 {
		h.log.Info("soft-start deadline passed while down, enabling scheduling")
		if err := h.device.SetSchedulingEnabled(ctx, true); err != nil {
			return err
		}
		return h.state.ClearSoftStartDeadline()
	}

	h.log.Info("re-arming soft start, %v remaining", remaining.Truncate(time.Second))
	h.mu.Lock()
	h.softStart = true
	h.armTimerLocked(remaining)
	h.mu.Unlock()
	return nil
}

// Status computes the heating status fresh from the device: circuit
// count, scheduling flag and today's circuit-3 boosting window.
func (h *HeatingService) Status(ctx context.Context) (HeatingStatus, error) {
	circuits, err := h.device.ActiveCircuits(ctx)
	if err != nil {
		return "", err
	}
	if circuits != 3 {
		return StatusStopped, nil
	}

	h.mu.Lock()
	soft := h.softStart
	h.mu.Unlock()
	if soft {
		return StatusSoftStart, nil
	}

	enabled, err := h.device.SchedulingEnabled(ctx)
	if err != nil {
		return "", err
	}
	if !enabled {
		return StatusRunning, nil
	}

	schedule, err := h.device.Schedule(ctx, HeatDistCircuit3)
	if err != nil {
		return "", err
	}
	now := h.now()
	window := schedule[weekdayOf(now)]

	// Comparison against hour+1 is carried over from the plant's
	// original commissioning; the device's schedule registers are
	// interpreted the same way.
	hour := now.Hour() + 1
	if window.StartHour < hour && hour < window.EndHour {
		return StatusBoosting, nil
	}
	return StatusRunning, nil
}

// Start enables heat distribution circuit 3 and schedule-based
// boosting immediately.
func (h *HeatingService) Start(ctx context.Context) error {
	if err := h.device.SetActiveCircuits(ctx, 3); err != nil {
		return err
	}
	return h.device.SetSchedulingEnabled(ctx, true)
}

// SoftStart enables circuit 3 immediately but defers boosting: the
// scheduling coil is only set once the soft-start delay elapses.
func (h *HeatingService) SoftStart(ctx context.Context) error {
	deadline := h.now().Add(softStartDelay)

	if err := h.device.SetActiveCircuits(ctx, 3); err != nil {
		return err
	}
	if err := h.state.SaveSoftStartDeadline(deadline); err != nil {
		return err
	}

	h.mu.Lock()
	h.softStart = true
	h.armTimerLocked(softStartDelay)
	h.mu.Unlock()
	return nil
}

// Stop disables boosting and circuit 3 and cancels any pending soft
// start.
func (h *HeatingService) Stop(ctx context.Context) error {
	if err := h.device.SetSchedulingEnabled(ctx, false); err != nil {
		return err
	}
	if err := h.device.SetActiveCircuits(ctx, 2); err != nil {
		return err
	}
	h.clearSoftStart()
	return nil
}

// SchedulingEnabled reads the boosting-schedule coil.
func (h *HeatingService) SchedulingEnabled(ctx context.Context) (bool, error) {
	return h.device.SchedulingEnabled(ctx)
}

// SetSchedulingEnabled flips the boosting-schedule coil and returns
// the resulting heating status. Enabling supersedes a pending soft
// start.
func (h *HeatingService) SetSchedulingEnabled(ctx context.Context, enable bool) (HeatingStatus, error) {
	if enable {
		h.clearSoftStart()
	}
	if err := h.device.SetSchedulingEnabled(ctx, enable); err != nil {
		return "", err
	}
	return h.Status(ctx)
}

// Schedule fetches the boosting schedule of a variable from the
// device.
func (h *HeatingService) Schedule(ctx context.Context, variable ScheduleVariable) (HeatingSchedule, error) {
	return h.device.Schedule(ctx, variable)
}

// SetSchedule writes the boosting schedule of a variable to the
// device.
func (h *HeatingService) SetSchedule(ctx context.Context, variable ScheduleVariable, schedule HeatingSchedule) error {
	return h.device.SetSchedule(ctx, variable, schedule)
}

// armTimerLocked schedules the deferred transition out of soft start.
// Callers hold h.mu.
func (h *HeatingService) armTimerLocked(d time.Duration) {
	if h.timer != nil {
		h.timer.Stop()
	}
	h.timer = time.AfterFunc(d, h.finishSoftStart)
}

// finishSoftStart fires when the soft-start delay elapses: the flag
// clears and schedule-based boosting switches on.
func (h *HeatingService) finishSoftStart() {
	h.mu.Lock()
	h.softStart = false
	h.timer = nil
	h.mu.Unlock()

	if err := h.state.ClearSoftStartDeadline(); err != nil {
		h.log.Error("clearing soft-start deadline: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := h.device.SetSchedulingEnabled(ctx, true); err != nil {
		h.log.Error("enabling scheduling after soft start: %v", err)
	}
}

func (h *HeatingService) clearSoftStart() {
	h.mu.Lock()
	h.softStart = false
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	h.mu.Unlock()

	if err := h.state.ClearSoftStartDeadline(); err != nil {
		h.log.Error("clearing soft-start deadline: %v", err)
	}
}
