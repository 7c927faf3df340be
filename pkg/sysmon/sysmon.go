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

package sysmon

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime"

	"lampo/pkg/logger"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Service reports host and process resource usage, as an HTML
// dashboard or JSON (Accept: application/json).
type Service struct {
	log *logger.Logger
}

func New() *Service {
	return &Service{
		log: logger.New("System Monitor"),
	}
}

type stats struct {
	GoVersion string `json:"go_version"`
	CPU       struct {
		SystemPercent  float64 `json:"system_percent"`
		ProcessPercent float64 `json:"process_percent"`
	} `json:"cpu"`
	Memory struct {
		SystemTotal uint64 `json:"system_total"`
		SystemUsed  uint64 `json:"system_used"`
		SystemFree  uint64 `json:"system_free"`
		ProcessRSS  uint64 `json:"process_rss"`
	} `json:"memory"`
	Disk struct {
		Total uint64 `json:"total"`
		Used  uint64 `json:"used"`
		Free  uint64 `json:"free"`
	} `json:"disk"`
}

func (s *Service) collect() stats {
	var st stats
	st.GoVersion = runtime.Version()

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		st.CPU.SystemPercent = percents[0]
	}
	if vmem, err := mem.VirtualMemory(); err == nil {
		st.Memory.SystemTotal = vmem.Total
		st.Memory.SystemUsed = vmem.Used
		st.Memory.SystemFree = vmem.Available
	}
	if total, free, used, err := DiskUsage("/"); err == nil {
		st.Disk.Total = total
		st.Disk.Free = free
		st.Disk.Used = used
	}

	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if memInfo, err := p.MemoryInfo(); err == nil {
			st.Memory.ProcessRSS = memInfo.RSS
		}
		if procCPU, err := p.CPUPercent(); err == nil {
			st.CPU.ProcessPercent = procCPU
		}
	}
	return st
}

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st := s.collect()

	if r.Header.Get("Accept") == "application/json" {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(st)
		return
	}

	gb := func(v uint64) float64 { return float64(v) / (1024 * 1024 * 1024) }

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `
<!DOCTYPE html>
<html>
<head>
	<title>System Monitor</title>
	<style>
		body { font-family: sans-serif; margin: 2em; background: #f9f9f9; }
		table { border-collapse: collapse; width: 60%%; margin-top: 1em; }
		th, td { border: 1px solid #ccc; padding: 0.6em 1em; text-align: left; }
		th { background: #eee; }
	</style>
</head>
<body>
	<h1>System Monitor</h1>
	<h2>Go</h2>
	<p>Version: %s</p>
	<h2>CPU</h2>
	<table>
		<tr><th>System %%</th><th>Process %%</th></tr>
		<tr><td>%.2f%%</td><td>%.2f%%</td></tr>
	</table>
	<h2>Memory</h2>
	<table>
		<tr><th>System Total</th><th>System Used</th><th>System Free</th><th>Process RSS</th></tr>
		<tr><td>%.2f GB</td><td>%.2f GB</td><td>%.2f GB</td><td>%.2f MB</td></tr>
	</table>
	<h2>Disk (/)</h2>
	<table>
		<tr><th>Total</th><th>Used</th><th>Free</th></tr>
		<tr><td>%.2f GB</td><td>%.2f GB</td><td>%.2f GB</td></tr>
	</table>
</body>
</html>
`,
		st.GoVersion,
		st.CPU.SystemPercent, st.CPU.ProcessPercent,
		gb(st.Memory.SystemTotal), gb(st.Memory.SystemUsed), gb(st.Memory.SystemFree),
		float64(st.Memory.ProcessRSS)/(1024*1024),
		gb(st.Disk.Total), gb(st.Disk.Used), gb(st.Disk.Free),
	)
}
