// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"maps"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/enviro_monitor/internal/env"
	"github.com/relabs-tech/enviro_monitor/internal/logger"
)

//go:embed web/index.html
var indexHTML []byte

var webLog = logger.New("web")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // LAN only
	},
}

type readingSource interface {
	Latest() env.Reading
}

type frameSource interface {
	PNG() ([]byte, error)
}

type webServer struct {
	ctx      context.Context
	readings readingSource
	frames   frameSource
	interval time.Duration
}

// NewWebHandler serves the live view. frames may be nil when the display is
// disabled. Websocket clients are polled every interval and dropped when ctx
// ends.
func NewWebHandler(ctx context.Context, readings readingSource, frames frameSource, interval time.Duration) http.Handler {
	s := &webServer{ctx: ctx, readings: readings, frames: frames, interval: interval}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/readings", s.handleReadings)
	mux.HandleFunc("GET /api/frame.png", s.handleFrame)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(indexHTML)
	})
	return mux
}

func (s *webServer) handleReadings(w http.ResponseWriter, r *http.Request) {
	reading := s.readings.Latest()
	if reading == nil {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(reading); err != nil {
		webLog.Warn("json encode: %v", err)
	}
}

func (s *webServer) handleFrame(w http.ResponseWriter, r *http.Request) {
	if s.frames == nil {
		http.Error(w, "display disabled", http.StatusNotFound)
		return
	}
	data, err := s.frames.PNG()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

// handleWS pushes each new reading to the client as JSON.
func (s *webServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		webLog.Warn("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					webLog.Warn("websocket: %v", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var sent env.Reading
	for {
		if reading := s.readings.Latest(); reading != nil && !maps.Equal(reading, sent) {
			if err := conn.WriteJSON(reading); err != nil {
				return
			}
			sent = reading
		}
		select {
		case <-s.ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
			return
		case <-closed:
			return
		case <-ticker.C:
		}
	}
}

// serveWeb listens on addr until ctx is cancelled.
func serveWeb(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}()

	webLog.Info("listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
