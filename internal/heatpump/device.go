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
	"fmt"

	"lampo/pkg/logger"
)

// Bus is the typed field-bus surface the core needs. Implemented by
// pkg/fieldbus for the real device and by fakes in tests.
type Bus interface {
	ReadHoldingRegisters(ctx context.Context, addr, quantity uint16) ([]uint16, error)
	ReadCoils(ctx context.Context, addr, quantity uint16) ([]bool, error)
	WriteRegister(ctx context.Context, addr, value uint16) error
	WriteCoil(ctx context.Context, addr uint16, on bool) error
}

// Device exposes the heat pump's register map as typed operations.
// All reads and writes go through the single serialized bus session.
type Device struct {
	bus  Bus
	regs RegisterMap
	log  *logger.Logger
}

func NewDevice(bus Bus, regs RegisterMap) *Device {
	return &Device{
		bus:  bus,
		regs: regs,
		log:  logger.New("HeatPump"),
	}
}

// ReadTelemetry reads the full telemetry block plus the compressor
// status register.
func (d *Device) ReadTelemetry(ctx context.Context) (words []uint16, compressorRunning bool, err error) {
	words, err = d.bus.ReadHoldingRegisters(ctx, d.regs.TelemetryStart, d.regs.TelemetryCount)
	if err != nil {
		return nil, false, err
	}
	status, err := d.bus.ReadHoldingRegisters(ctx, d.regs.CompressorStatus, 1)
	if err != nil {
		return nil, false, err
	}
	return words, status[0] == 1, nil
}

// ActiveCircuits returns the number of active heat distribution
// circuits, normally 2 or 3.
func (d *Device) ActiveCircuits(ctx context.Context) (int, error) {
	words, err := d.bus.ReadHoldingRegisters(ctx, d.regs.ActiveCircuits, 1)
	if err != nil {
		return 0, err
	}
	return int(words[0]), nil
}

// SetActiveCircuits writes the active circuit count: 3 enables heat
// distribution circuit 3, 2 disables it.
func (d *Device) SetActiveCircuits(ctx context.Context, count int) error {
	return d.bus.WriteRegister(ctx, d.regs.ActiveCircuits, uint16(count))
}

// SchedulingEnabled reads the boosting-schedule coil.
func (d *Device) SchedulingEnabled(ctx context.Context) (bool, error) {
	coils, err := d.bus.ReadCoils(ctx, d.regs.SchedulingCoil, 1)
	if err != nil {
		return false, err
	}
	return coils[0], nil
}

// SetSchedulingEnabled writes the boosting-schedule coil.
func (d *Device) SetSchedulingEnabled(ctx context.Context, on bool) error {
	return d.bus.WriteCoil(ctx, d.regs.SchedulingCoil, on)
}

// Schedule reads and decodes the weekly boosting schedule of a
// variable from the device.
func (d *Device) Schedule(ctx context.Context, variable ScheduleVariable) (HeatingSchedule, error) {
	block, err := d.regs.scheduleBlock(variable)
	if err != nil {
		return nil, err
	}
	times, err := d.bus.ReadHoldingRegisters(ctx, block.TimesBase, block.TimesCount)
	if err != nil {
		return nil, err
	}
	deltas, err := d.bus.ReadHoldingRegisters(ctx, block.DeltasBase, block.DeltasCount)
	if err != nil {
		return nil, err
	}
	return DecodeSchedule(block, times, deltas)
}

// SetSchedule encodes and writes a weekly boosting schedule. Writes
// are issued sequentially and the first failure is returned; a failed
// write can leave the device partially updated, so callers should
// re-issue the full schedule on error.
func (d *Device) SetSchedule(ctx context.Context, variable ScheduleVariable, schedule HeatingSchedule) error {
	block, err := d.regs.scheduleBlock(variable)
	if err != nil {
		return err
	}
	for _, w := range EncodeSchedule(block, schedule) {
		if err := d.bus.WriteRegister(ctx, w.Addr, w.Value); err != nil {
			return fmt.Errorf("set %s schedule: %w", variable, err)
		}
	}
	return nil
}

// ExchangerRatio reads the heat-exchanger ratio register, decoded
// through the signed codec.
func (d *Device) ExchangerRatio(ctx context.Context) (float64, error) {
	words, err := d.bus.ReadHoldingRegisters(ctx, d.regs.ExchangerRatio, 1)
	if err != nil {
		return 0, err
	}
	return SignValue(words[0]), nil
}

// SetExchangerRatio writes a new heat-exchanger ratio.
func (d *Device) SetExchangerRatio(ctx context.Context, ratio float64) error {
	return d.bus.WriteRegister(ctx, d.regs.ExchangerRatio, UnsignValue(ratio))
}
