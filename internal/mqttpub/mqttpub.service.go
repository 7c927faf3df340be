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

package mqttpub

import (
	"context"
	"encoding/json"
	"time"

	"lampo/internal/config"
	"lampo/internal/events"
	"lampo/internal/heatpump"
	"lampo/pkg/eventbus"
	"lampo/pkg/logger"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Service mirrors every snapshot onto an MQTT broker so home
// automation systems can consume telemetry without polling the web
// API. An empty broker URL disables the publisher.
type Service struct {
	conf config.MQTTConfig
	bus  *eventbus.Bus
	log  *logger.Logger
}

func New(conf config.MQTTConfig, bus *eventbus.Bus) *Service {
	return &Service{
		conf: conf,
		bus:  bus,
		log:  logger.New("MQTT"),
	}
}

func (s *Service) Run(ctx context.Context) {
	if s.conf.BrokerURL == "" {
		s.log.Info("no broker configured, publisher disabled")
		return
	}
	s.log.Info("Running...")

	opts := mqtt.NewClientOptions().
		AddBroker(s.conf.BrokerURL).
		SetClientID(s.conf.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		s.log.Error("connect to %s: %v", s.conf.BrokerURL, token.Error())
		return
	}
	defer client.Disconnect(250)

	ch, unsub := s.bus.Subscribe(ctx, events.TopicSnapshot, true)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Stopped")
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			snap, isSnap := ev.(heatpump.Snapshot)
			if !isSnap {
				continue
			}
			s.publish(client, snap)
		}
	}
}

func (s *Service) publish(client mqtt.Client, snap heatpump.Snapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		s.log.Error("marshal snapshot: %v", err)
		return
	}
	token := client.Publish(s.conf.Topic, 0, true, payload)
	token.Wait()
	if token.Error() != nil {
		s.log.Error("publish to %s: %v", s.conf.Topic, token.Error())
	}
}
