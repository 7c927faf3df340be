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

package config

import (
	"encoding/json"
	"log"
	"os"

	"lampo/pkg/eventbus"
)

type PollerConfig struct {
	IntervalSeconds int `json:"interval_seconds"`
	RetentionDays   int `json:"retention_days"`
}

type MQTTConfig struct {
	// BrokerURL empty disables the MQTT publisher
	BrokerURL string `json:"broker_url"`
	ClientID  string `json:"client_id"`
	Topic     string `json:"topic"`
}

type WebConfig struct {
	HTTPAddr string `json:"http_addr"`
}

type Config struct {
	Poller PollerConfig `json:"poller"`
	MQTT   MQTTConfig   `json:"mqtt"`
	Web    WebConfig    `json:"web"`

	// not loaded from file, but added here to
	// pass to all services alongside config
	EventBus *eventbus.Bus `json:"-"`
	DataDir  string        `json:"-"`
	RootDir  string        `json:"-"`
}

func LoadFile(path string) *Config {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("open config: %v", err)
	}
	defer f.Close()
	var c Config
	if err := json.NewDecoder(f).Decode(&c); err != nil {
		log.Fatalf("decode config: %v", err)
	}
	// apply defaults
	if c.Poller.IntervalSeconds == 0 {
		c.Poller.IntervalSeconds = 60
	}
	if c.Poller.RetentionDays == 0 {
		c.Poller.RetentionDays = 30
	}
	if c.Web.HTTPAddr == "" {
		c.Web.HTTPAddr = ":80"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "lampo"
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = "lampo/heat-pump/snapshot"
	}
	return &c
}
