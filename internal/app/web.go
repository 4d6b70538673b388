package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/rotary_encoder/internal/config"
	"github.com/relabs-tech/rotary_encoder/internal/encoder"
	"github.com/relabs-tech/rotary_encoder/internal/sensors"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// sampleHub keeps the latest sample and fans new ones out to websocket
// clients. Slow clients miss samples rather than block the MQTT callback.
type sampleHub struct {
	mu   sync.RWMutex
	last encoder.Sample
	have bool
	subs map[chan encoder.Sample]struct{}
}

func newSampleHub() *sampleHub {
	return &sampleHub{subs: make(map[chan encoder.Sample]struct{})}
}

func (h *sampleHub) publish(s encoder.Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = s
	h.have = true
	for ch := range h.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

func (h *sampleHub) latest() (encoder.Sample, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last, h.have
}

func (h *sampleHub) subscribe() (<-chan encoder.Sample, func()) {
	ch := make(chan encoder.Sample, 8)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

// handleLatest serves the latest sample as JSON.
func (h *sampleHub) handleLatest(w http.ResponseWriter, r *http.Request) {
	s, ok := h.latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// handleWS streams samples to a websocket client, starting with the latest.
func (h *sampleHub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ch, unsubscribe := h.subscribe()
	defer unsubscribe()

	if s, ok := h.latest(); ok {
		if err := conn.WriteJSON(s); err != nil {
			return
		}
	}

	// The client never sends; reading only detects the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("web: websocket error: %v", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case s := <-ch:
			if err := conn.WriteJSON(s); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func handleRegisters(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sensors.MT6701RegisterMap()); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

func newWebMux(h *sampleHub, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/encoder", h.handleLatest)
	mux.HandleFunc("/api/registers", handleRegisters)
	mux.HandleFunc("/ws", h.handleWS)
	mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	return mux
}

func RunWeb() error {
	cfg := config.Get()
	hub := newSampleHub()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	if err := subscribeSamples(client, cfg.TopicEncoder, "web", hub.publish); err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, newWebMux(hub, "web"))
}
