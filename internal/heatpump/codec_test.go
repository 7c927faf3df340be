package heatpump

import (
	"testing"
)

func TestSignValue(t *testing.T) {
	cases := []struct {
		raw  uint16
		want float64
	}{
		{0, 0},
		{1, 0.1},
		{215, 21.5},
		{65535, -0.1},
		{65481, -5.5},
		{32767, 3276.7},
		{32768, -3276.8},
	}
	for _, c := range cases {
		if got := SignValue(c.raw); got != c.want {
			t.Errorf("SignValue(%d) = %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestUnsignValue(t *testing.T) {
	cases := []struct {
		v    float64
		want uint16
	}{
		{0, 0},
		{0.1, 1},
		{21.5, 215},
		{-0.1, 65535},
		{-5.5, 65481},
	}
	for _, c := range cases {
		if got := UnsignValue(c.v); got != c.want {
			t.Errorf("UnsignValue(%v) = %d, want %d", c.v, got, c.want)
		}
	}
	// round trip
	for _, raw := range []uint16{0, 1, 400, 65535, 32768} {
		if got := UnsignValue(SignValue(raw)); got != raw {
			t.Errorf("round trip of %d gave %d", raw, got)
		}
	}
}

func telemetryWords() []uint16 {
	words := make([]uint16, 120)
	words[idxOutsideTemp] = 65481 // -5.5
	words[idxHotGasTemp] = 805    // 80.5
	words[idxInsideTemp] = 215    // 21.5
	words[idxLowerTankTemp] = 402 // 40.2
	words[idxUpperTankTemp] = 477 // 47.7
	words[idxLowerTankLowerLimit] = 40
	words[idxLowerTankUpperLimit] = 50
	words[idxUpperTankLowerLimit] = 45
	words[idxUpperTankUpperLimit] = 55
	words[idxGroundLoopInputTemp] = 32 // 3.2
	words[idxGroundLoopOutputTemp] = 65530
	words[idxHeatDistCircuit3Temp] = 280
	return words
}

func TestDecodeSnapshot(t *testing.T) {
	snap := decodeSnapshot(telemetryWords())

	if snap.OutsideTemp != -5.5 {
		t.Errorf("outsideTemp = %v, want -5.5", snap.OutsideTemp)
	}
	if snap.HotGasTemp != 80.5 {
		t.Errorf("hotGasTemp = %v, want 80.5", snap.HotGasTemp)
	}
	if snap.InsideTemp != 21.5 {
		t.Errorf("insideTemp = %v, want 21.5", snap.InsideTemp)
	}
	if snap.LowerTankTemp != 40.2 || snap.UpperTankTemp != 47.7 {
		t.Errorf("tank temps = %v/%v, want 40.2/47.7", snap.LowerTankTemp, snap.UpperTankTemp)
	}
	if snap.GroundLoopInputTemp != 3.2 || snap.GroundLoopOutputTemp != -0.6 {
		t.Errorf("ground loop = %v/%v, want 3.2/-0.6", snap.GroundLoopInputTemp, snap.GroundLoopOutputTemp)
	}
	if snap.HeatDistCircuit3Temp != 28.0 {
		t.Errorf("circuit3 = %v, want 28.0", snap.HeatDistCircuit3Temp)
	}
}

func TestDecodeLimitsRawDegrees(t *testing.T) {
	limits := decodeLimits(telemetryWords())

	// limit registers hold whole degrees, no decimal scaling
	want := TankLimits{
		LowerTankLowerLimit: 40,
		LowerTankUpperLimit: 50,
		UpperTankLowerLimit: 45,
		UpperTankUpperLimit: 55,
	}
	if limits != want {
		t.Errorf("limits = %+v, want %+v", limits, want)
	}
}

func TestScheduleRoundTrip(t *testing.T) {
	for _, variable := range []ScheduleVariable{LowerTank, HeatDistCircuit3} {
		regs := DefaultRegisters()
		block, err := regs.scheduleBlock(variable)
		if err != nil {
			t.Fatal(err)
		}

		schedule := HeatingSchedule{}
		for i, day := range Weekdays {
			schedule[day] = WeekdaySchedule{StartHour: 5 + i, EndHour: 20 + i%2, Delta: i}
		}

		writes := EncodeSchedule(block, schedule)
		if len(writes) != 21 {
			t.Fatalf("%s: got %d writes, want 21", variable, len(writes))
		}

		times := make([]uint16, block.TimesCount)
		deltas := make([]uint16, block.DeltasCount)
		for _, w := range writes {
			switch {
			case w.Addr >= block.TimesBase && w.Addr < block.TimesBase+block.TimesCount:
				times[w.Addr-block.TimesBase] = w.Value
			case w.Addr >= block.DeltasBase && w.Addr < block.DeltasBase+block.DeltasCount:
				deltas[w.Addr-block.DeltasBase] = w.Value
			default:
				t.Fatalf("%s: write to %d outside both blocks", variable, w.Addr)
			}
		}

		decoded, err := DecodeSchedule(block, times, deltas)
		if err != nil {
			t.Fatal(err)
		}
		for _, day := range Weekdays {
			if decoded[day] != schedule[day] {
				t.Errorf("%s %s: got %+v, want %+v", variable, day, decoded[day], schedule[day])
			}
		}
	}
}

func TestCircuit3RegisterLayout(t *testing.T) {
	block := DefaultRegisters().Circuit3

	// the circuit 3 layout is asymmetric: monday's end register sits
	// before its start register, thursday's end is far from its start
	if block.Days[Monday].Start != 5214 || block.Days[Monday].End != 5213 {
		t.Errorf("monday = %+v", block.Days[Monday])
	}
	if block.Days[Thursday].Start != 5222 || block.Days[Thursday].End != 5215 {
		t.Errorf("thursday = %+v", block.Days[Thursday])
	}
	if block.Days[Friday].Delta != 112 {
		t.Errorf("friday delta register = %d, want 112", block.Days[Friday].Delta)
	}
}

func TestLowerTankFridayDeltaHole(t *testing.T) {
	block := DefaultRegisters().LowerTank
	// address 40 is unused; friday's delta lives at 41
	if block.Days[Friday].Delta != 41 {
		t.Errorf("friday delta register = %d, want 41", block.Days[Friday].Delta)
	}
	if block.Days[Thursday].Delta != 39 || block.Days[Saturday].Delta != 42 {
		t.Errorf("neighbours = %d/%d, want 39/42",
			block.Days[Thursday].Delta, block.Days[Saturday].Delta)
	}
}

func TestDecodeScheduleShortBlocks(t *testing.T) {
	block := DefaultRegisters().LowerTank
	if _, err := DecodeSchedule(block, make([]uint16, 3), make([]uint16, int(block.DeltasCount))); err == nil {
		t.Error("expected error for short times block")
	}
	if _, err := DecodeSchedule(block, make([]uint16, int(block.TimesCount)), nil); err == nil {
		t.Error("expected error for short deltas block")
	}
}

func TestParseScheduleVariable(t *testing.T) {
	if _, err := ParseScheduleVariable("lowerTank"); err != nil {
		t.Error(err)
	}
	if _, err := ParseScheduleVariable("heatDistCircuit3"); err != nil {
		t.Error(err)
	}
	if _, err := ParseScheduleVariable("upperTank"); err != ErrUnknownVariable {
		t.Errorf("got %v, want ErrUnknownVariable", err)
	}
}
