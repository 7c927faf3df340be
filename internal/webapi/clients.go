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

package webapi

import (
	"net/http"
	"strings"
	"sync"

	"lampo/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ClientSync tracks connected websocket clients by id.
type ClientSync struct {
	mutex   sync.Mutex
	clients map[string]*websocket.Conn
}

func newClientSync() *ClientSync {
	return &ClientSync{clients: make(map[string]*websocket.Conn)}
}

func (c *ClientSync) add(ws *websocket.Conn) string {
	id := uuid.NewString()
	c.mutex.Lock()
	c.clients[id] = ws
	c.mutex.Unlock()
	return id
}

func (c *ClientSync) remove(id string) {
	c.mutex.Lock()
	delete(c.clients, id)
	c.mutex.Unlock()
}

func (c *ClientSync) broadcast(pm *websocket.PreparedMessage, log *logger.Logger) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for id, ws := range c.clients {
		if err := ws.WritePreparedMessage(pm); err != nil {
			log.Error("failed to write to client %s: %v", id, err)
			ws.Close()
			delete(c.clients, id)
		}
	}
}

func (c *ClientSync) closeAll() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for id, ws := range c.clients {
		ws.Close()
		delete(c.clients, id)
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// non-browser clients don't send an Origin header
			return true
		}
		if strings.Contains(origin, "localhost") {
			return true
		}
		return strings.Contains(origin, r.Host)
	},
}
