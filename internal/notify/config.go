package notify

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type rawConfig struct {
	WebhookURL      string   `yaml:"webhook_url"`
	WebhookURLs     []string `yaml:"webhook_urls"`
	Template        string   `yaml:"template"`
	Cooldown        string   `yaml:"cooldown"`
	DedupeWindow    string   `yaml:"dedupe_window"`
	EscalationAfter string   `yaml:"escalation_after"`
	RequestTimeout  string   `yaml:"request_timeout"`
}

// Config defines notification configuration. Every webhook URL receives every
// notification; webhook_urls extends the single webhook_url form.
type Config struct {
	WebhookURLs     []string
	Template        string
	Cooldown        time.Duration
	DedupeWindow    time.Duration
	EscalationAfter time.Duration
	RequestTimeout  time.Duration
}

// LoadConfig loads config from yaml or env. The yaml file named by
// SENTINEL_NOTIFY_CONFIG wins over individual env vars.
// SENTINEL_WEBHOOK_URL accepts a comma-separated list.
func LoadConfig() (Config, error) {
	raw := rawConfig{
		WebhookURL:      os.Getenv("SENTINEL_WEBHOOK_URL"),
		Template:        os.Getenv("SENTINEL_NOTIFY_TEMPLATE"),
		Cooldown:        getenvDefault("SENTINEL_NOTIFY_COOLDOWN", "10m"),
		DedupeWindow:    getenvDefault("SENTINEL_NOTIFY_DEDUPE_WINDOW", "30m"),
		EscalationAfter: getenvDefault("SENTINEL_NOTIFY_ESCALATION_AFTER", "15m"),
		RequestTimeout:  getenvDefault("SENTINEL_NOTIFY_REQUEST_TIMEOUT", "5s"),
	}

	if path := os.Getenv("SENTINEL_NOTIFY_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, err
		}
	}

	urls := raw.WebhookURLs
	if len(urls) == 0 {
		urls = splitURLs(raw.WebhookURL)
	}
	cfg := Config{
		WebhookURLs: urls,
		Template:    raw.Template,
	}
	var err error
	if cfg.Cooldown, err = parseDuration(raw.Cooldown); err != nil {
		return Config{}, err
	}
	if cfg.DedupeWindow, err = parseDuration(raw.DedupeWindow); err != nil {
		return Config{}, err
	}
	if cfg.EscalationAfter, err = parseDuration(raw.EscalationAfter); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = parseDuration(raw.RequestTimeout); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func splitURLs(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	return time.ParseDuration(value)
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
