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
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"lampo/internal/events"
	"lampo/internal/heatpump"
	"lampo/pkg/eventbus"
	"lampo/pkg/logger"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Service is the web boundary of the heat pump: snapshot queries,
// heating control, schedule read/write and a websocket push of every
// new snapshot.
type Service struct {
	heating *heatpump.HeatingService
	store   heatpump.Store
	bus     *eventbus.Bus
	clients *ClientSync
	log     *logger.Logger
}

func New(heating *heatpump.HeatingService, store heatpump.Store, bus *eventbus.Bus) *Service {
	return &Service{
		heating: heating,
		store:   store,
		bus:     bus,
		clients: newClientSync(),
		log:     logger.New("WebAPI"),
	}
}

// Handler builds the router. Paths are relative to wherever the
// handler is mounted (the root server strips its prefix).
func (s *Service) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleData).Methods("GET")
	r.HandleFunc("/status", s.handleStatus).Methods("GET")
	r.HandleFunc("/start", s.handleStart).Methods("POST")
	r.HandleFunc("/stop", s.handleStop).Methods("POST")
	r.HandleFunc("/schedules/{variable}", s.handleGetSchedule).Methods("GET")
	r.HandleFunc("/schedules/{variable}", s.handleSetSchedule).Methods("POST")
	r.HandleFunc("/scheduling", s.handleGetScheduling).Methods("GET")
	r.HandleFunc("/scheduling/{enabled}", s.handleSetScheduling).Methods("POST")
	r.HandleFunc("/ws", s.handleWebSocket)
	return handlers.LoggingHandler(logger.Writer(), r)
}

// Run broadcasts each published snapshot to connected websocket
// clients until the context is canceled.
func (s *Service) Run(ctx context.Context) {
	s.log.Info("Running...")
	ch, unsub := s.bus.Subscribe(ctx, events.TopicSnapshot, false)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			s.clients.closeAll()
			s.log.Info("Stopped")
			return
		case ev, ok := <-ch:
			if !ok {
				s.clients.closeAll()
				return
			}
			snap, isSnap := ev.(heatpump.Snapshot)
			if !isSnap {
				continue
			}
			s.broadcastSnapshot(snap)
		}
	}
}

func (s *Service) broadcastSnapshot(snap heatpump.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		s.log.Error("failed to marshal snapshot: %v", err)
		return
	}
	pm, err := websocket.NewPreparedMessage(websocket.TextMessage, data)
	if err != nil {
		s.log.Error("failed to prepare message: %v", err)
		return
	}
	s.clients.broadcast(pm, s.log)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleData returns stored snapshots. With all of year, month and
// day query params forming a valid date, only snapshots strictly
// after that date's midnight are returned; otherwise everything.
func (s *Service) handleData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cutoff, ok := parseDateQuery(q.Get("year"), q.Get("month"), q.Get("day"))

	var (
		snaps []heatpump.Snapshot
		err   error
	)
	if ok {
		snaps, err = s.store.SnapshotsSince(cutoff)
	} else {
		snaps, err = s.store.AllSnapshots()
	}
	if err != nil {
		s.log.Error("snapshot query: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read snapshots")
		return
	}
	if snaps == nil {
		snaps = []heatpump.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

// parseDateQuery turns year/month/day strings into the midnight
// preceding that date's entries. Missing or invalid parts disable
// filtering.
func parseDateQuery(year, month, day string) (time.Time, bool) {
	if year == "" || month == "" || day == "" {
		return time.Time{}, false
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.Local)
	// reject rollovers like Feb 30
	if t.Day() != d || t.Month() != time.Month(m) {
		return time.Time{}, false
	}
	return t, true
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.heating.Status(r.Context())
	if err != nil {
		s.log.Error("status: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read heating status")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Service) handleStart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SoftStart bool `json:"softStart"`
	}
	if r.Body != nil {
		// empty body means a normal start
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	var err error
	if body.SoftStart {
		err = s.heating.SoftStart(r.Context())
	} else {
		err = s.heating.Start(r.Context())
	}
	if err != nil {
		s.log.Error("start: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to start heating")
		return
	}

	status, err := s.heating.Status(r.Context())
	if err != nil {
		s.log.Error("status after start: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read heating status")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Service) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.heating.Stop(r.Context()); err != nil {
		s.log.Error("stop: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to stop heating")
		return
	}
	status, err := s.heating.Status(r.Context())
	if err != nil {
		s.log.Error("status after stop: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read heating status")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Service) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	variable, err := heatpump.ParseScheduleVariable(mux.Vars(r)["variable"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unknown variable")
		return
	}
	schedule, err := s.heating.Schedule(r.Context(), variable)
	if err != nil {
		s.log.Error("get schedule %s: %v", variable, err)
		writeError(w, http.StatusInternalServerError, "failed to read schedule")
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

func (s *Service) handleSetSchedule(w http.ResponseWriter, r *http.Request) {
	variable, err := heatpump.ParseScheduleVariable(mux.Vars(r)["variable"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unknown variable")
		return
	}

	var body struct {
		Schedule heatpump.HeatingSchedule `json:"schedule"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Schedule) == 0 {
		writeError(w, http.StatusBadRequest, "invalid schedule payload")
		return
	}

	if err := s.heating.SetSchedule(r.Context(), variable, body.Schedule); err != nil {
		s.log.Error("set schedule %s: %v", variable, err)
		writeError(w, http.StatusInternalServerError, "failed to write schedule")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Service) handleGetScheduling(w http.ResponseWriter, r *http.Request) {
	enabled, err := s.heating.SchedulingEnabled(r.Context())
	if err != nil {
		s.log.Error("get scheduling: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read scheduling state")
		return
	}
	writeJSON(w, http.StatusOK, enabled)
}

func (s *Service) handleSetScheduling(w http.ResponseWriter, r *http.Request) {
	enabled, err := strconv.ParseBool(mux.Vars(r)["enabled"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid scheduling parameter")
		return
	}
	status, err := s.heating.SetSchedulingEnabled(r.Context(), enabled)
	if err != nil {
		s.log.Error("set scheduling: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to set scheduling state")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Service) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("failed to upgrade websocket: %v", err)
		return
	}
	id := s.clients.add(ws)
	s.log.Debug("websocket client connected: %s", id)
	defer func() {
		s.clients.remove(id)
		ws.Close()
		s.log.Debug("websocket client disconnected: %s", id)
	}()

	// Push never pull: read only to observe close.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("websocket read: %v", err)
			}
			return
		}
	}
}
