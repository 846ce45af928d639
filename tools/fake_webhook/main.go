package main

import (
	"encoding/json"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

// fakeWebhookServer is a notification sink for exercising the emergency
// pipeline locally: it accepts webhook posts, records them, and can inject
// latency or failures so cooldown and escalation paths can be observed.
type fakeWebhookServer struct {
	start    time.Time
	latency  time.Duration
	failRate float64

	mu       sync.Mutex
	total    int64
	failed   int64
	received []receivedNotification
}

type receivedNotification struct {
	At      time.Time `json:"at"`
	MsgType string    `json:"msgtype"`
	Content string    `json:"content"`
}

type incomingPayload struct {
	MsgType string `json:"msgtype"`
	Text    struct {
		Content string `json:"content"`
	} `json:"text"`
}

func main() {
	addr := getenvDefault("FAKE_WEBHOOK_ADDR", ":18081")
	latencyMs := getenvIntDefault("FAKE_WEBHOOK_LATENCY_MS", 0)
	failRate := getenvFloatDefault("FAKE_WEBHOOK_FAIL_RATE", 0)

	srv := &fakeWebhookServer{
		start:    time.Now().UTC(),
		latency:  time.Duration(latencyMs) * time.Millisecond,
		failRate: failRate,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.HandleFunc("/received", srv.handleReceived)
	mux.HandleFunc("/", srv.handleNotify)

	log.Printf("fake webhook sink listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}

func (s *fakeWebhookServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *fakeWebhookServer) handleNotify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if s.latency > 0 {
		time.Sleep(s.latency)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	var payload incomingPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.total++
	if s.failRate > 0 && rand.Float64() < s.failRate {
		s.failed++
		s.mu.Unlock()
		log.Printf("webhook: injected failure (total=%d)", s.total)
		http.Error(w, "injected failure", http.StatusInternalServerError)
		return
	}
	s.received = append(s.received, receivedNotification{
		At:      time.Now().UTC(),
		MsgType: payload.MsgType,
		Content: payload.Text.Content,
	})
	count := len(s.received)
	s.mu.Unlock()

	log.Printf("webhook: notification %d received (%d bytes)", count, len(body))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"errcode":0}`))
}

func (s *fakeWebhookServer) handleReceived(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload := map[string]any{
		"started_at": s.start.Format(time.RFC3339),
		"total":      s.total,
		"failed":     s.failed,
		"received":   s.received,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
