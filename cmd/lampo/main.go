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

package main

import (
	"os"
	"path/filepath"
	"time"

	"lampo/internal/config"
	"lampo/internal/heatpump"
	"lampo/internal/mqttpub"
	"lampo/internal/store"
	"lampo/internal/webapi"
	"lampo/pkg/appctx"
	"lampo/pkg/eventbus"
	"lampo/pkg/fieldbus"
	"lampo/pkg/logger"
	"lampo/pkg/rootserv"
	"lampo/pkg/service"
	"lampo/pkg/sysmon"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {

	rootdir := os.Getenv("PROJECT_ROOT")
	if rootdir == "" {
		rootdir = "."
	}

	logger.Init(filepath.Join(rootdir, "var/logs/lampo.log"))
	log := logger.New("Main")

	appConf := config.LoadFile(filepath.Join(rootdir, "var/config/lampo.json"))
	busConf := fieldbus.LoadConfig(filepath.Join(rootdir, "var/config/heatpump.modbus.yml"))

	appConf.EventBus = eventbus.New()
	appConf.DataDir = filepath.Join(rootdir, "var/data")
	appConf.RootDir = rootdir

	ctx, ctxCancel := appctx.New()

	db, err := store.Open(appConf.DataDir)
	if err != nil {
		log.Fatal("opening store: %v", err)
	}
	defer db.Close()

	// blocks until the heat pump is reachable
	bus := fieldbus.NewClient(ctx, busConf)
	defer bus.Close()

	device := heatpump.NewDevice(bus, heatpump.DefaultRegisters())
	heatingService := heatpump.NewHeatingService(device, db)
	if err := heatingService.RecoverSoftStart(ctx); err != nil {
		log.Error("recovering soft start: %v", err)
	}

	pollerService := heatpump.NewPoller(device, db, appConf.EventBus,
		time.Duration(appConf.Poller.IntervalSeconds)*time.Second,
		time.Duration(appConf.Poller.RetentionDays)*24*time.Hour,
		prometheus.DefaultRegisterer)
	webService := webapi.New(heatingService, db, appConf.EventBus)
	mqttService := mqttpub.New(appConf.MQTT, appConf.EventBus)
	sysMonitorService := sysmon.New()

	server := rootserv.New(appConf.Web.HTTPAddr)
	server.Attach("/logger", "Logger", logger.WebService())
	server.Attach("/monitor", "System Monitor", sysMonitorService)
	server.Attach("/metrics", "Prometheus Metrics", promhttp.Handler())
	server.Attach("/heat-pump", "Heat Pump API", webService.Handler())

	exitCh := service.Start(ctx, ctxCancel, []service.Runnable{
		pollerService,
		webService,
		mqttService,
		server,
	})

	os.Exit(<-exitCh)
}
