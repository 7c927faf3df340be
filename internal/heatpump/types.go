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
	"errors"
	"time"
)

// ErrUnknownVariable is returned when a schedule operation names a
// variable outside the two the heat pump supports. It is rejected
// before any bus I/O happens.
var ErrUnknownVariable = errors.New("unknown variable")

// TankLimits are the boosting setpoint bounds for the two storage
// tanks, in °C.
type TankLimits struct {
	LowerTankLowerLimit float64 `json:"lowerTankLowerLimit"`
	LowerTankUpperLimit float64 `json:"lowerTankUpperLimit"`
	UpperTankLowerLimit float64 `json:"upperTankLowerLimit"`
	UpperTankUpperLimit float64 `json:"upperTankUpperLimit"`
}

// Snapshot is one poll cycle's worth of decoded telemetry. Snapshots
// are append-only: created once per cycle, never mutated, swept after
// the retention window.
type Snapshot struct {
	Time                 time.Time `json:"time"`
	OutsideTemp          float64   `json:"outsideTemp"`
	InsideTemp           float64   `json:"insideTemp"`
	HotGasTemp           float64   `json:"hotGasTemp"`
	HeatDistCircuit1Temp float64   `json:"heatDistCircuit1Temp"`
	HeatDistCircuit2Temp float64   `json:"heatDistCircuit2Temp"`
	HeatDistCircuit3Temp float64   `json:"heatDistCircuit3Temp"`
	LowerTankTemp        float64   `json:"lowerTankTemp"`
	UpperTankTemp        float64   `json:"upperTankTemp"`
	GroundLoopInputTemp  float64   `json:"groundLoopTempInput"`
	GroundLoopOutputTemp float64   `json:"groundLoopTempOutput"`
	CompressorRunning    bool      `json:"compressorRunning"`

	// CompressorUsage is only set on a poll that detected an on/off
	// transition, and describes the completed prior cycle.
	CompressorUsage *float64 `json:"compressorUsage"`

	TankLimits
}

// CompressorEventKind marks a compressor edge: Start for off->on,
// Stop for on->off.
type CompressorEventKind string

const (
	CompressorStart CompressorEventKind = "start"
	CompressorStop  CompressorEventKind = "stop"
)

// CompressorEvent records one detected compressor transition.
type CompressorEvent struct {
	Time time.Time           `json:"time"`
	Kind CompressorEventKind `json:"kind"`
}

// HeatingStatus is the coarse operational state of the heating
// system, derived fresh on every status request.
type HeatingStatus string

const (
	StatusRunning   HeatingStatus = "RUNNING"
	StatusBoosting  HeatingStatus = "BOOSTING"
	StatusSoftStart HeatingStatus = "SOFT_START"
	StatusStopped   HeatingStatus = "STOPPED"
)

// ScheduleVariable names one of the two boosting-schedule variables
// the heat pump exposes.
type ScheduleVariable string

const (
	LowerTank        ScheduleVariable = "lowerTank"
	HeatDistCircuit3 ScheduleVariable = "heatDistCircuit3"
)

// ParseScheduleVariable validates a caller-supplied variable name.
func ParseScheduleVariable(s string) (ScheduleVariable, error) {
	switch ScheduleVariable(s) {
	case LowerTank:
		return LowerTank, nil
	case HeatDistCircuit3:
		return HeatDistCircuit3, nil
	}
	return "", ErrUnknownVariable
}

type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// Weekdays in ISO order, Monday first.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// weekdayOf maps a wall-clock time onto the schedule weekday.
func weekdayOf(t time.Time) Weekday {
	iso := (int(t.Weekday()) + 6) % 7 // Monday == 0
	return Weekdays[iso]
}

// WeekdaySchedule is the boosting window for a single weekday: active
// between StartHour and EndHour, raising the setpoint by Delta °C.
type WeekdaySchedule struct {
	StartHour int `json:"start"`
	EndHour   int `json:"end"`
	Delta     int `json:"delta"`
}

// HeatingSchedule is the full weekly boosting schedule of one
// controllable variable. The heat pump is the source of truth; it is
// read and written on demand, never persisted locally.
type HeatingSchedule map[Weekday]WeekdaySchedule
