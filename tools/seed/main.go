package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type config struct {
	baseURL         string
	jwtSecret       string
	subject         string
	threatCount     int
	alertsPerThreat int
	emergencyEvery  int
	deliverAlerts   bool
}

type seedClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

var threatTypes = []string{"storm", "pollution", "erosion", "algal_bloom", "illegal_dumping", "anomaly"}

func main() {
	cfg := parseConfig()
	if cfg.baseURL == "" {
		log.Fatal("base-url is required")
	}
	if cfg.jwtSecret == "" {
		log.Fatal("jwt-secret is required")
	}
	if cfg.threatCount <= 0 {
		log.Fatal("threats must be > 0")
	}

	token, err := signToken(cfg.jwtSecret, cfg.subject)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	client := &http.Client{Timeout: 10 * time.Second}

	log.Printf("seeding threats: count=%d alerts-per-threat=%d", cfg.threatCount, cfg.alertsPerThreat)
	var alertIDs []uint64
	for i := 0; i < cfg.threatCount; i++ {
		severity := i%5 + 1
		threatID, err := postJSON[uint64](client, cfg.baseURL+"/api/v1/threats", token, map[string]any{
			"type":                threatTypes[i%len(threatTypes)],
			"severity":            severity,
			"confidence":          50 + i%50,
			"latitude_e6":         37_700_000 + int64(i)*1500,
			"longitude_e6":        -122_500_000 + int64(i)*1500,
			"description":         fmt.Sprintf("seeded threat %d", i+1),
			"data_hash":           fmt.Sprintf("seed-hash-%04d", i+1),
			"affected_population": int64(i * 100),
		}, "id")
		if err != nil {
			log.Fatalf("register threat %d: %v", i, err)
		}

		for j := 0; j < cfg.alertsPerThreat; j++ {
			alertSeverity := severity
			if cfg.emergencyEvery > 0 && (i*cfg.alertsPerThreat+j)%cfg.emergencyEvery == 0 {
				alertSeverity = 5
			}
			alertID, err := postJSON[uint64](client, cfg.baseURL+"/api/v1/alerts", token, map[string]any{
				"threat_id":  threatID,
				"message":    fmt.Sprintf("seeded alert %d for threat %d", j+1, threatID),
				"severity":   alertSeverity,
				"channels":   []string{"web", "email"},
				"recipients": []string{"ops-team"},
			}, "id")
			if err != nil {
				log.Fatalf("create alert for threat %d: %v", threatID, err)
			}
			alertIDs = append(alertIDs, alertID)
		}
	}

	if cfg.deliverAlerts {
		log.Printf("delivering %d alerts", len(alertIDs))
		for _, alertID := range alertIDs {
			for _, status := range []string{"sent", "delivered"} {
				url := fmt.Sprintf("%s/api/v1/alerts/%d/status", cfg.baseURL, alertID)
				if _, err := postJSON[uint64](client, url, token, map[string]any{"status": status}, ""); err != nil {
					log.Fatalf("update alert %d to %s: %v", alertID, status, err)
				}
			}
		}
	}

	log.Printf("seed completed: threats=%d alerts=%d", cfg.threatCount, len(alertIDs))
}

func parseConfig() config {
	cfg := config{}
	flag.StringVar(&cfg.baseURL, "base-url", envOrDefault("BASE_URL", "http://localhost:8080"), "API base URL")
	flag.StringVar(&cfg.jwtSecret, "jwt-secret", envOrDefault("AUTH_JWT_SECRET", ""), "JWT signing secret")
	flag.StringVar(&cfg.subject, "subject", envOrDefault("SEED_SUBJECT", "seed-admin"), "token subject; must hold the registry roles")
	flag.IntVar(&cfg.threatCount, "threats", envOrInt("SEED_THREATS", 20), "number of threats to register")
	flag.IntVar(&cfg.alertsPerThreat, "alerts-per-threat", envOrInt("SEED_ALERTS_PER_THREAT", 2), "alerts per threat")
	flag.IntVar(&cfg.emergencyEvery, "emergency-every", envOrInt("SEED_EMERGENCY_EVERY", 5), "force severity 5 on every nth alert (0 disables)")
	flag.BoolVar(&cfg.deliverAlerts, "deliver", os.Getenv("SEED_DELIVER") == "true", "walk alerts through sent and delivered")
	flag.Parse()
	return cfg
}

func signToken(secret, subject string) (string, error) {
	claims := seedClaims{
		Roles: []string{"admin"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(2 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func postJSON[T any](client *http.Client, url, token string, payload map[string]any, idField string) (T, error) {
	var zero T
	body, err := json.Marshal(payload)
	if err != nil {
		return zero, err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return zero, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := client.Do(req)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return zero, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if idField == "" {
		return zero, nil
	}
	var decoded map[string]T
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return zero, err
	}
	return decoded[idField], nil
}

func envOrDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
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
