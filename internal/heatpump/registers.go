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

// Register addresses fixed by the heat pump's field-bus interface.
// The telemetry block is read as one contiguous range; the indexes
// below locate individual sensors within that block.

// Offsets into the 120-word telemetry block.
const (
	idxOutsideTemp          = 0
	idxHotGasTemp           = 1
	idxHeatDistCircuit1Temp = 4
	idxHeatDistCircuit2Temp = 5
	idxLowerTankTemp        = 16
	idxUpperTankTemp        = 17
	idxInsideTemp           = 73
	idxLowerTankLowerLimit  = 74
	idxLowerTankUpperLimit  = 75
	idxUpperTankLowerLimit  = 78
	idxUpperTankUpperLimit  = 79
	idxGroundLoopOutputTemp = 97
	idxGroundLoopInputTemp  = 98
	idxHeatDistCircuit3Temp = 116
)

// ScheduleRegisters holds the three register addresses backing one
// weekday of a boosting schedule.
type ScheduleRegisters struct {
	Start uint16
	End   uint16
	Delta uint16
}

// ScheduleBlock describes where a variable's weekly schedule lives on
// the device: a contiguous times block, a contiguous deltas block,
// and the per-weekday address triples within them. The triples mirror
// the physical layout, which is asymmetric and non-contiguous for
// circuit 3.
type ScheduleBlock struct {
	TimesBase   uint16
	TimesCount  uint16
	DeltasBase  uint16
	DeltasCount uint16
	Days        map[Weekday]ScheduleRegisters
}

// RegisterMap is the full register table consumed by this service.
type RegisterMap struct {
	TelemetryStart   uint16
	TelemetryCount   uint16
	CompressorStatus uint16
	ActiveCircuits   uint16
	SchedulingCoil   uint16
	ExchangerRatio   uint16
	LowerTank        ScheduleBlock
	Circuit3         ScheduleBlock
}

// DefaultRegisters returns the register table of the physical device.
func DefaultRegisters() RegisterMap {
	return RegisterMap{
		TelemetryStart:   1,
		TelemetryCount:   120,
		CompressorStatus: 5158,
		ActiveCircuits:   5100,
		SchedulingCoil:   134,
		ExchangerRatio:   5363,
		LowerTank: ScheduleBlock{
			TimesBase:   5014,
			TimesCount:  14,
			DeltasBase:  36,
			DeltasCount: 8, // address 40 is a hole: friday's delta lives at 41
			Days: map[Weekday]ScheduleRegisters{
				Monday:    {Start: 5014, End: 5021, Delta: 36},
				Tuesday:   {Start: 5015, End: 5022, Delta: 37},
				Wednesday: {Start: 5016, End: 5023, Delta: 38},
				Thursday:  {Start: 5017, End: 5024, Delta: 39},
				Friday:    {Start: 5018, End: 5025, Delta: 41},
				Saturday:  {Start: 5019, End: 5026, Delta: 42},
				Sunday:    {Start: 5020, End: 5027, Delta: 43},
			},
		},
		Circuit3: ScheduleBlock{
			TimesBase:   5211,
			TimesCount:  14,
			DeltasBase:  106,
			DeltasCount: 7,
			Days: map[Weekday]ScheduleRegisters{
				Monday:    {Start: 5214, End: 5213, Delta: 107},
				Tuesday:   {Start: 5211, End: 5212, Delta: 106},
				Wednesday: {Start: 5220, End: 5221, Delta: 110},
				Thursday:  {Start: 5222, End: 5215, Delta: 111},
				Friday:    {Start: 5223, End: 5224, Delta: 112},
				Saturday:  {Start: 5216, End: 5217, Delta: 108},
				Sunday:    {Start: 5218, End: 5219, Delta: 109},
			},
		},
	}
}

// scheduleBlock selects the block for a validated variable.
func (m RegisterMap) scheduleBlock(variable ScheduleVariable) (ScheduleBlock, error) {
	switch variable {
	case LowerTank:
		return m.LowerTank, nil
	case HeatDistCircuit3:
		return m.Circuit3, nil
	}
	return ScheduleBlock{}, ErrUnknownVariable
}
