// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relabs-tech/inertial_pedometer/internal/broker"
	"github.com/relabs-tech/inertial_pedometer/internal/config"
	"github.com/relabs-tech/inertial_pedometer/internal/engine"
)

const (
	wsSendBuffer   = 32
	wsWriteTimeout = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the Pi serves the page itself on the local network
	},
}

// stepHub fans step events out to websocket clients. A client that falls
// behind by more than wsSendBuffer messages is dropped.
type stepHub struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

func newStepHub() *stepHub {
	return &stepHub{clients: make(map[chan []byte]struct{})}
}

func (h *stepHub) add() chan []byte {
	ch := make(chan []byte, wsSendBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *stepHub) remove(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
}

func (h *stepHub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
			delete(h.clients, ch)
			close(ch)
		}
	}
}

func (h *stepHub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// WebServer serves the latest summary over HTTP and streams step events
// over websocket.
type WebServer struct {
	log *zap.Logger
	hub *stepHub

	mu          sync.RWMutex
	summary     engine.Summary
	haveSummary bool
}

func NewWebServer(log *zap.Logger) *WebServer {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebServer{log: log, hub: newStepHub()}
}

// Subscribe wires the server to the steps and summary topics.
func (s *WebServer) Subscribe(sub broker.Subscriber, topics config.TopicsConfig) error {
	if err := sub.Subscribe(topics.Summary, 0, broker.JSONHandler(func(_ string, sum engine.Summary) error {
		s.mu.Lock()
		s.summary = sum
		s.haveSummary = true
		s.mu.Unlock()
		return nil
	})); err != nil {
		return err
	}

	return sub.Subscribe(topics.Steps, 0, func(_ string, payload []byte) error {
		var ev engine.StepEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("step event: %w", err)
		}
		s.hub.broadcast(payload)
		return nil
	})
}

// Handler returns the HTTP routes. staticDir, when not empty, is served at /.
func (s *WebServer) Handler(staticDir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/steps", s.handleSteps)
	mux.HandleFunc("/ws/steps", s.handleStepsWS)
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

func (s *WebServer) handleSteps(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	sum, ok := s.summary, s.haveSummary
	s.mu.RUnlock()

	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sum); err != nil {
		s.log.Warn("json encode error", zap.Error(err))
	}
}

func (s *WebServer) handleStepsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade error", zap.Error(err))
		return
	}
	defer conn.Close()

	ch := s.hub.add()
	defer s.hub.remove(ch)
	s.log.Debug("websocket client connected", zap.String("remote", r.RemoteAddr))

	// the read loop only notices the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.log.Debug("websocket write error", zap.Error(err))
				return
			}
		case <-closed:
			return
		}
	}
}

// RunWeb subscribes to the pedometer topics and serves them on web.port.
func RunWeb(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log = log.Named("web")

	client, err := broker.Connect(cfg.MQTT, cfg.MQTT.ClientIDWeb, log)
	if err != nil {
		return err
	}
	defer client.Disconnect()

	srv := NewWebServer(log)
	if err := srv.Subscribe(client, cfg.Topics); err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:           srv.Handler("web"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info("web server listening", zap.String("addr", httpSrv.Addr))
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
