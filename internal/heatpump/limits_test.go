package heatpump

import (
	"testing"
	"time"
)

// minute 5 avoids the every-ten-minutes full refresh
var offMinute = time.Date(2025, 1, 15, 12, 5, 0, 0, time.UTC)

func TestLimitsFirstSnapshot(t *testing.T) {
	fresh := TankLimits{40, 50, 45, 55}
	if got := trackLimits(nil, fresh, offMinute); got != fresh {
		t.Errorf("got %+v, want fresh values on first snapshot", got)
	}
}

func TestLimitsTenMinuteRefresh(t *testing.T) {
	prev := &Snapshot{TankLimits: TankLimits{40, 50, 45, 55}}
	fresh := TankLimits{0, 0, 0, 0}
	at := time.Date(2025, 1, 15, 12, 30, 0, 0, time.UTC)

	// on the tenth minute the device values are taken wholesale, even
	// zeros
	if got := trackLimits(prev, fresh, at); got != fresh {
		t.Errorf("got %+v, want full refresh on minute 30", got)
	}
}

func TestLimitsCarryForward(t *testing.T) {
	prev := &Snapshot{TankLimits: TankLimits{40, 50, 45, 55}}

	// unchanged values carry forward
	got := trackLimits(prev, TankLimits{40, 50, 45, 55}, offMinute)
	if got != prev.TankLimits {
		t.Errorf("got %+v, want carry-forward", got)
	}

	// a changed value replaces the carried one
	got = trackLimits(prev, TankLimits{42, 50, 45, 55}, offMinute)
	want := TankLimits{42, 50, 45, 55}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestLimitsZeroPriorKept(t *testing.T) {
	// a zero prior value is treated as unknown and never updated
	// between refreshes
	prev := &Snapshot{TankLimits: TankLimits{0, 50, 45, 55}}
	got := trackLimits(prev, TankLimits{40, 50, 45, 55}, offMinute)
	if got.LowerTankLowerLimit != 0 {
		t.Errorf("lowerTankLowerLimit = %v, want 0 kept until refresh", got.LowerTankLowerLimit)
	}
}
