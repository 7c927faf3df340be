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

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	temperature     *prometheus.GaugeVec
	compressorOn    prometheus.Gauge
	compressorUsage prometheus.Gauge
	pollsTotal      prometheus.Counter
	pollErrorsTotal prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "lampo",
			Name:      "temperature_celsius",
			Help:      "Latest decoded temperature per sensor",
		}, []string{"sensor"}),
		compressorOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lampo",
			Name:      "compressor_running_binary",
			Help:      "Whether the compressor was running at the latest poll",
		}),
		compressorUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lampo",
			Name:      "compressor_usage_percent",
			Help:      "Duty cycle of the most recently completed compressor cycle",
		}),
		pollsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lampo",
			Name:      "polls_total",
			Help:      "Completed poll cycles",
		}),
		pollErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lampo",
			Name:      "poll_errors_total",
			Help:      "Poll cycles aborted by an error",
		}),
	}
	reg.MustRegister(m.temperature, m.compressorOn, m.compressorUsage, m.pollsTotal, m.pollErrorsTotal)
	return m
}

func (m *metrics) observe(s Snapshot) {
	m.temperature.WithLabelValues("outside").Set(s.OutsideTemp)
	m.temperature.WithLabelValues("inside").Set(s.InsideTemp)
	m.temperature.WithLabelValues("hot_gas").Set(s.HotGasTemp)
	m.temperature.WithLabelValues("circuit1").Set(s.HeatDistCircuit1Temp)
	m.temperature.WithLabelValues("circuit2").Set(s.HeatDistCircuit2Temp)
	m.temperature.WithLabelValues("circuit3").Set(s.HeatDistCircuit3Temp)
	m.temperature.WithLabelValues("lower_tank").Set(s.LowerTankTemp)
	m.temperature.WithLabelValues("upper_tank").Set(s.UpperTankTemp)
	m.temperature.WithLabelValues("ground_loop_in").Set(s.GroundLoopInputTemp)
	m.temperature.WithLabelValues("ground_loop_out").Set(s.GroundLoopOutputTemp)

	if s.CompressorRunning {
		m.compressorOn.Set(1)
	} else {
		m.compressorOn.Set(0)
	}
	if s.CompressorUsage != nil {
		m.compressorUsage.Set(*s.CompressorUsage)
	}
	m.pollsTotal.Inc()
}
