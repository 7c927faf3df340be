package heatpump

import (
	"context"
	"testing"
)

// seedTunerStore arranges two snapshots so every Evaluate pushes the
// same estimate. With lowerDelta = upperDelta = 1 the estimates are
// simply the remaining headroom of each tank in degrees.
func seedTunerStore(lowerTemp, lowerLimit, upperTemp, upperLimit float64) *memStore {
	previous := Snapshot{
		LowerTankTemp: lowerTemp - 1,
		UpperTankTemp: upperTemp - 1,
	}
	current := Snapshot{
		LowerTankTemp: lowerTemp,
		UpperTankTemp: upperTemp,
		TankLimits: TankLimits{
			LowerTankUpperLimit: lowerLimit,
			UpperTankUpperLimit: upperLimit,
		},
	}
	return &memStore{snapshots: []Snapshot{previous, current}}
}

func ratioBus(ratio float64) *fakeBus {
	bus := newFakeBus()
	bus.regs[DefaultRegisters().ExchangerRatio] = UnsignValue(ratio)
	return bus
}

func evalTimes(t *testing.T, tuner *Tuner, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := tuner.Evaluate(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
}

func TestTunerLowersRatio(t *testing.T) {
	// lower tank 10 minutes from its limit, upper tank 40: mean
	// divergence -30 exceeds the threshold, upper saturates first
	store := seedTunerStore(40, 50, 40, 80)
	bus := ratioBus(40)
	tuner := NewTuner(NewDevice(bus, DefaultRegisters()), store)

	evalTimes(t, tuner, 5)

	ratioReg := DefaultRegisters().ExchangerRatio
	if got := SignValue(bus.regs[ratioReg]); got != 35 {
		t.Errorf("ratio = %v, want 35", got)
	}
	if len(tuner.buffer) != 0 {
		t.Errorf("buffer holds %d entries after evaluation, want 0", len(tuner.buffer))
	}
}

func TestTunerRaisesRatio(t *testing.T) {
	// lower tank 40 minutes out, upper 10: mean divergence +30
	store := seedTunerStore(40, 80, 40, 50)
	bus := ratioBus(15)
	tuner := NewTuner(NewDevice(bus, DefaultRegisters()), store)

	evalTimes(t, tuner, 5)

	if got := SignValue(bus.regs[DefaultRegisters().ExchangerRatio]); got != 20 {
		t.Errorf("ratio = %v, want 20", got)
	}
}

func TestTunerClampsAtBound(t *testing.T) {
	store := seedTunerStore(40, 50, 40, 80) // divergence -30
	bus := ratioBus(10)                     // already at the minimum
	tuner := NewTuner(NewDevice(bus, DefaultRegisters()), store)

	evalTimes(t, tuner, 5)

	if len(bus.regWrites) != 0 {
		t.Errorf("ratio already at bound must not be written, saw %d writes", len(bus.regWrites))
	}
	if len(tuner.buffer) != 0 {
		t.Error("buffer must clear even when the ratio stays put")
	}
}

func TestTunerBelowThresholdNoWrite(t *testing.T) {
	// divergence -10 is inside the threshold
	store := seedTunerStore(40, 70, 40, 80)
	bus := ratioBus(30)
	tuner := NewTuner(NewDevice(bus, DefaultRegisters()), store)

	evalTimes(t, tuner, 5)

	if len(bus.regWrites) != 0 {
		t.Errorf("divergence under threshold must not adjust, saw %d writes", len(bus.regWrites))
	}
}

func TestTunerSlidingWindow(t *testing.T) {
	// divergence -10 stays under the threshold, so the full window
	// survives evaluation and slides instead of restarting
	store := seedTunerStore(40, 70, 40, 80)
	bus := ratioBus(40)
	tuner := NewTuner(NewDevice(bus, DefaultRegisters()), store)

	evalTimes(t, tuner, 5)
	if len(tuner.buffer) != 5 {
		t.Fatalf("buffer holds %d entries after below-threshold evaluations, want 5", len(tuner.buffer))
	}
	if len(bus.regWrites) != 0 {
		t.Fatalf("saw %d writes, want none", len(bus.regWrites))
	}

	// a single strongly divergent estimate tips the sliding mean over
	// the threshold: (-10*4 - 100) / 5 = -28
	store.snapshots[1].UpperTankUpperLimit = 170
	evalTimes(t, tuner, 1)

	if got := SignValue(bus.regs[DefaultRegisters().ExchangerRatio]); got != 35 {
		t.Errorf("ratio = %v, want 35", got)
	}
	if len(tuner.buffer) != 0 {
		t.Errorf("buffer holds %d entries after the adjustment, want 0", len(tuner.buffer))
	}
}

func TestTunerOverLimitGuard(t *testing.T) {
	store := seedTunerStore(40, 80, 40, 50)
	bus := ratioBus(30)
	tuner := NewTuner(NewDevice(bus, DefaultRegisters()), store)

	evalTimes(t, tuner, 3)
	if len(tuner.buffer) != 3 {
		t.Fatalf("buffer holds %d entries, want 3", len(tuner.buffer))
	}

	// lower tank now over its upper limit: evaluation halts, buffer
	// stays intact
	store.snapshots[1].LowerTankTemp = 81
	evalTimes(t, tuner, 2)

	if len(tuner.buffer) != 3 {
		t.Errorf("buffer holds %d entries, want 3 untouched", len(tuner.buffer))
	}
	if len(bus.regWrites) != 0 {
		t.Errorf("over-limit state must not adjust, saw %d writes", len(bus.regWrites))
	}
}

func TestTunerNegativeDeltaClearsBuffer(t *testing.T) {
	store := seedTunerStore(40, 80, 40, 50)
	bus := ratioBus(30)
	tuner := NewTuner(NewDevice(bus, DefaultRegisters()), store)

	evalTimes(t, tuner, 3)

	// temperature falling: everything buffered is invalid
	store.snapshots[1].LowerTankTemp = store.snapshots[0].LowerTankTemp - 1
	evalTimes(t, tuner, 1)

	if len(tuner.buffer) != 0 {
		t.Errorf("buffer holds %d entries after falling temperature, want 0", len(tuner.buffer))
	}
}

func TestTunerZeroDeltaStops(t *testing.T) {
	store := seedTunerStore(40, 80, 40, 50)
	bus := ratioBus(30)
	tuner := NewTuner(NewDevice(bus, DefaultRegisters()), store)

	evalTimes(t, tuner, 3)

	// flat temperature stops evaluation without discarding estimates
	store.snapshots[1].LowerTankTemp = store.snapshots[0].LowerTankTemp
	evalTimes(t, tuner, 1)

	if len(tuner.buffer) != 3 {
		t.Errorf("buffer holds %d entries after flat temperature, want 3", len(tuner.buffer))
	}
	if len(bus.regWrites) != 0 {
		t.Errorf("saw %d writes, want none", len(bus.regWrites))
	}
}

func TestTunerNeedsTwoSnapshots(t *testing.T) {
	store := &memStore{snapshots: []Snapshot{{LowerTankTemp: 40}}}
	bus := ratioBus(30)
	tuner := NewTuner(NewDevice(bus, DefaultRegisters()), store)

	evalTimes(t, tuner, 1)
	if len(tuner.buffer) != 0 {
		t.Error("a single snapshot must not produce an estimate")
	}
}
