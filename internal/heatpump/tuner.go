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

	"lampo/pkg/logger"
)

const (
	tunerWindow     = 5  // buffered delta estimates before evaluating
	tunerThresholdM = 25 // minutes of divergence that trigger an adjustment
	ratioStep       = 5
	ratioMin        = 10
	ratioMax        = 50
)

// Tuner nudges the heat-exchanger ratio register so neither storage
// tank saturates long before the other. Each poll with the compressor
// running contributes one estimate of how many minutes sooner the
// lower tank will hit its upper limit than the upper tank; once five
// estimates are buffered, their mean decides the adjustment. The
// buffer is owned exclusively by the tuner and only touched from
// poll-cycle context.
type Tuner struct {
	device *Device
	store  Store
	buffer []float64
	log    *logger.Logger
}

func NewTuner(device *Device, store Store) *Tuner {
	return &Tuner{
		device: device,
		store:  store,
		log:    logger.New("ExchangerTuner"),
	}
}

// Evaluate runs one tuning step. Called once per poll cycle, only
// when the compressor is running.
func (t *Tuner) Evaluate(ctx context.Context) error {
	latest, err := t.store.LatestSnapshots(2)
	if err != nil {
		return err
	}
	if len(latest) < 2 {
		return nil
	}
	current, previous := latest[0], latest[1]

	// Either tank over its own upper limit halts adjustment; the
	// buffered estimates stay valid for when it cools back down.
	if current.LowerTankTemp > current.LowerTankUpperLimit ||
		current.UpperTankTemp > current.UpperTankUpperLimit {
		return nil
	}

	lowerDelta := round2(current.LowerTankTemp - previous.LowerTankTemp)
	upperDelta := round2(current.UpperTankTemp - previous.UpperTankTemp)

	// Falling temperature makes the exchanger ratio irrelevant and
	// invalidates everything buffered so far.
	if lowerDelta < 0 || upperDelta < 0 {
		t.buffer = t.buffer[:0]
		return nil
	}
	if lowerDelta == 0 || upperDelta == 0 {
		return nil
	}

	estLower := round2((current.LowerTankUpperLimit - current.LowerTankTemp) / lowerDelta)
	estUpper := round2((current.UpperTankUpperLimit - current.UpperTankTemp) / upperDelta)
	t.log.Debug("est minutes to upper limit: lower=%.2f upper=%.2f", estLower, estUpper)

	t.push(estLower - estUpper)
	if len(t.buffer) < tunerWindow {
		return nil
	}
	return t.adjust(ctx, mean(t.buffer))
}

// push appends to the bounded buffer, dropping the oldest entry when
// full.
func (t *Tuner) push(v float64) {
	if len(t.buffer) == tunerWindow {
		t.buffer = append(t.buffer[:0], t.buffer[1:]...)
	}
	t.buffer = append(t.buffer, v)
}

// adjust applies a single ratio step when the mean divergence exceeds
// the threshold. A negative mean says the upper tank will saturate
// first, so less heat should be diverted to it.
func (t *Tuner) adjust(ctx context.Context, meanDivergence float64) error {
	if meanDivergence > -tunerThresholdM && meanDivergence < tunerThresholdM {
		return nil
	}

	// The adjustment consumes the window whether or not the register
	// write goes through; a below-threshold window instead slides,
	// dropping its oldest estimate on the next push.
	t.buffer = t.buffer[:0]

	ratio, err := t.device.ExchangerRatio(ctx)
	if err != nil {
		return err
	}

	target := ratio
	if meanDivergence < 0 {
		target = max(ratio-ratioStep, ratioMin)
	} else {
		target = min(ratio+ratioStep, ratioMax)
	}

	if target == ratio {
		t.log.Info("exchanger ratio already at bound %.0f, mean divergence %.2f min", ratio, meanDivergence)
		return nil
	}

	t.log.Info("adjusting exchanger ratio %.0f -> %.0f (mean divergence %.2f min)", ratio, target, meanDivergence)
	return t.device.SetExchangerRatio(ctx, target)
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
