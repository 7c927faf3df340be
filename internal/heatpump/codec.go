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
	"fmt"
	"math"
)

// SignValue decodes a raw register word as a two's-complement 16-bit
// integer with one implied decimal digit: 65535 -> -0.1, 1 -> 0.1.
func SignValue(raw uint16) float64 {
	return float64(int16(raw)) / 10
}

// UnsignValue is the inverse of SignValue.
func UnsignValue(v float64) uint16 {
	return uint16(int16(math.Round(v * 10)))
}

// round2 rounds to two decimals, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// RegisterWrite is one (address, value) pair of an encoded schedule.
type RegisterWrite struct {
	Addr  uint16
	Value uint16
}

// DecodeSchedule reconstructs a weekly boosting schedule from the raw
// times and deltas blocks of a variable. Hour and delta words carry
// their values directly, no scaling.
func DecodeSchedule(block ScheduleBlock, times, deltas []uint16) (HeatingSchedule, error) {
	if len(times) < int(block.TimesCount) {
		return nil, fmt.Errorf("schedule times block too short: got %d words, want %d", len(times), block.TimesCount)
	}
	if len(deltas) < int(block.DeltasCount) {
		return nil, fmt.Errorf("schedule deltas block too short: got %d words, want %d", len(deltas), block.DeltasCount)
	}
	schedule := make(HeatingSchedule, len(Weekdays))
	for _, day := range Weekdays {
		regs := block.Days[day]
		schedule[day] = WeekdaySchedule{
			StartHour: int(times[regs.Start-block.TimesBase]),
			EndHour:   int(times[regs.End-block.TimesBase]),
			Delta:     int(deltas[regs.Delta-block.DeltasBase]),
		}
	}
	return schedule, nil
}

// EncodeSchedule is the inverse of DecodeSchedule: it produces the 21
// single-register writes (3 fields x 7 weekdays) that store the given
// schedule on the device.
func EncodeSchedule(block ScheduleBlock, schedule HeatingSchedule) []RegisterWrite {
	writes := make([]RegisterWrite, 0, 3*len(Weekdays))
	for _, day := range Weekdays {
		regs := block.Days[day]
		entry := schedule[day]
		writes = append(writes,
			RegisterWrite{Addr: regs.Start, Value: uint16(entry.StartHour)},
			RegisterWrite{Addr: regs.End, Value: uint16(entry.EndHour)},
			RegisterWrite{Addr: regs.Delta, Value: uint16(entry.Delta)},
		)
	}
	return writes
}

// decodeSnapshot converts the raw telemetry block into physical
// values. Tank limits and compressor usage are filled in by the
// poller afterwards.
func decodeSnapshot(words []uint16) Snapshot {
	return Snapshot{
		OutsideTemp:          SignValue(words[idxOutsideTemp]),
		HotGasTemp:           SignValue(words[idxHotGasTemp]),
		HeatDistCircuit1Temp: SignValue(words[idxHeatDistCircuit1Temp]),
		HeatDistCircuit2Temp: SignValue(words[idxHeatDistCircuit2Temp]),
		LowerTankTemp:        SignValue(words[idxLowerTankTemp]),
		UpperTankTemp:        SignValue(words[idxUpperTankTemp]),
		InsideTemp:           SignValue(words[idxInsideTemp]),
		GroundLoopOutputTemp: SignValue(words[idxGroundLoopOutputTemp]),
		GroundLoopInputTemp:  SignValue(words[idxGroundLoopInputTemp]),
		HeatDistCircuit3Temp: SignValue(words[idxHeatDistCircuit3Temp]),
	}
}

// decodeLimits extracts the four tank limit setpoints from the
// telemetry block. Unlike the sensor registers, the limit registers
// hold whole degrees with no decimal scaling.
func decodeLimits(words []uint16) TankLimits {
	return TankLimits{
		LowerTankLowerLimit: float64(words[idxLowerTankLowerLimit]),
		LowerTankUpperLimit: float64(words[idxLowerTankUpperLimit]),
		UpperTankLowerLimit: float64(words[idxUpperTankLowerLimit]),
		UpperTankUpperLimit: float64(words[idxUpperTankUpperLimit]),
	}
}
