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

package rootserv

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"lampo/pkg/logger"
)

// RootServer multiplexes all web surfaces of the process under one
// listener. Subserver handlers see paths with their prefix stripped.
type RootServer struct {
	log        *logger.Logger
	addr       string
	mux        *http.ServeMux
	subservers map[string]string // path -> description
	mainPage   http.Handler
}

// New creates a RootServer bound to addr.
func New(addr string) *RootServer {
	return &RootServer{
		addr:       addr,
		mux:        http.NewServeMux(),
		subservers: make(map[string]string),
		log:        logger.New("HTTPServer"),
	}
}

// Attach registers a subserver under path. Attaching to "/" installs
// the handler as the main page with its own subpath routing.
func (rs *RootServer) Attach(path, desc string, handler http.Handler) {
	rs.log.Info("Attach: %s", path)

	if path == "/" {
		rs.mainPage = handler
		return
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}

	strip := strings.TrimRight(path, "/")
	rs.subservers[strip] = desc
	rs.mux.Handle(path, http.StripPrefix(strip, handler))
}

// handleIndex lists the attached subservers.
func (rs *RootServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	fmt.Fprintln(w, "<!DOCTYPE html><html><head><title>RootServer</title></head><body>")
	fmt.Fprintln(w, "<h1>Available Sub-Servers</h1><ul>")

	paths := make([]string, 0, len(rs.subservers))
	for path := range rs.subservers {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		fmt.Fprintf(w, `<li><a href="%s">%s</a> - %s</li>`, path, path, rs.subservers[path])
	}

	fmt.Fprintln(w, "</ul></body></html>")
}

// Run starts serving and blocks until the context is canceled.
func (rs *RootServer) Run(ctx context.Context) {
	rs.log.Info("Running...")

	rs.mux.HandleFunc("/index", rs.handleIndex)
	rs.mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "www/favicon.svg")
	})

	rs.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		for path := range rs.subservers {
			if r.URL.Path == path || strings.HasPrefix(r.URL.Path, path+"/") {
				rs.mux.ServeHTTP(w, r)
				return
			}
		}
		if rs.mainPage != nil {
			rs.mainPage.ServeHTTP(w, r)
			return
		}
		http.Redirect(w, r, "/index", http.StatusTemporaryRedirect)
	})

	srv := &http.Server{
		Addr:    rs.addr,
		Handler: rs.mux,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		rs.log.Info("Stopped")
	case err := <-errCh:
		rs.log.Error("Stopped: %T %+v", err, err)
	}
}
