package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"ocean-sentinel/internal/audit"
	"ocean-sentinel/internal/auth"
	"ocean-sentinel/internal/eventing"
	"ocean-sentinel/internal/eventing/eventbus"
	eventingrepo "ocean-sentinel/internal/eventing/infrastructure/postgres"
	"ocean-sentinel/internal/notify"
	"ocean-sentinel/internal/observability/metrics"
	"ocean-sentinel/internal/registry/application"
	"ocean-sentinel/internal/registry/application/events"
	registrydomain "ocean-sentinel/internal/registry/domain"
	"ocean-sentinel/internal/registry/infrastructure/memory"
	registryhttp "ocean-sentinel/internal/registry/interfaces/http"
	registryingest "ocean-sentinel/internal/registry/interfaces/ingest"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	acl, err := registrydomain.NewAccessList(registrydomain.Principal(cfg.Owner))
	if err != nil {
		logger.Fatalf("access list error: %v", err)
	}
	seedRoles(acl, logger, cfg)

	threatStore := memory.NewThreatStore()
	alertStore := memory.NewAlertStore()
	if cfg.EmergencyThreshold != memory.DefaultEmergencyThreshold {
		if err := alertStore.SetEmergencyThreshold(cfg.EmergencyThreshold); err != nil {
			logger.Fatalf("emergency threshold error: %v", err)
		}
	}

	baseBus := eventbus.NewInMemoryBus()
	eventRegistry := eventing.NewRegistry()
	eventRegistry.Register(events.ThreatRegistered{})
	eventRegistry.Register(events.ThreatStatusUpdated{})
	eventRegistry.Register(events.ThreatVerified{})
	eventRegistry.Register(events.AlertCreated{})
	eventRegistry.Register(events.AlertStatusUpdated{})
	eventRegistry.Register(events.AlertDelivered{})
	eventRegistry.Register(events.EmergencyAlert{})

	outboxStore := eventingrepo.NewOutboxStore(db)
	processedStore := eventingrepo.NewProcessedStore(db)
	dlqStore := eventingrepo.NewDLQStore(db)
	dispatcher := eventing.NewDispatcher(baseBus, outboxStore, eventRegistry, dlqStore)
	publisher := eventing.NewPublisher(outboxStore, dispatcher, "registry", baseBus)

	threatService, err := application.NewThreatService(threatStore, acl, publisher)
	if err != nil {
		logger.Fatalf("threat service error: %v", err)
	}
	alertService, err := application.NewAlertService(alertStore, acl, publisher)
	if err != nil {
		logger.Fatalf("alert service error: %v", err)
	}

	eventing.Subscribe(baseBus, eventbus.EventTypeOf[events.ThreatRegistered](), "registry.log", func(ctx context.Context, event any) error {
		evt, ok := event.(events.ThreatRegistered)
		if !ok {
			return eventbus.ErrInvalidEventType
		}
		logger.Printf("threat registered: id=%d type=%s severity=%d reporter=%s", evt.ThreatID, evt.Type, evt.Severity, evt.Reporter)
		return nil
	}, processedStore)

	notifyCfg, err := notify.LoadConfig()
	if err != nil {
		logger.Fatalf("notify config error: %v", err)
	}
	if len(notifyCfg.WebhookURLs) > 0 {
		channels := make([]notify.Channel, 0, len(notifyCfg.WebhookURLs))
		for _, url := range notifyCfg.WebhookURLs {
			webhook, err := notify.NewWebhookChannel(url)
			if err != nil {
				logger.Fatalf("notify webhook error: %v", err)
			}
			channels = append(channels, webhook)
		}
		var channel notify.Channel = channels[0]
		if len(channels) > 1 {
			channel = notify.NewMultiChannel(channels...)
		}
		tpl, err := notify.NewTemplate(notifyCfg.Template)
		if err != nil {
			logger.Fatalf("notify template error: %v", err)
		}
		notifier, err := notify.NewNotifier(alertService, threatService, channel, tpl,
			notify.WithEscalation(notifyCfg.EscalationAfter),
			notify.WithCooldown(notifyCfg.Cooldown),
			notify.WithDedupeWindow(notifyCfg.DedupeWindow),
			notify.WithRequestTimeout(notifyCfg.RequestTimeout),
		)
		if err != nil {
			logger.Fatalf("notifier error: %v", err)
		}
		defer notifier.Close()

		eventing.Subscribe(baseBus, eventbus.EventTypeOf[events.EmergencyAlert](), "notify.emergency", func(ctx context.Context, event any) error {
			evt, ok := event.(events.EmergencyAlert)
			if !ok {
				return eventbus.ErrInvalidEventType
			}
			return notifier.HandleEmergency(ctx, evt)
		}, processedStore)
		eventing.Subscribe(baseBus, eventbus.EventTypeOf[events.AlertStatusUpdated](), "notify.delivery", func(ctx context.Context, event any) error {
			evt, ok := event.(events.AlertStatusUpdated)
			if !ok {
				return eventbus.ErrInvalidEventType
			}
			return notifier.HandleStatusUpdated(ctx, evt)
		}, processedStore)
	}

	threatHandler, err := registryhttp.NewThreatHandler(threatService, auditRepo)
	if err != nil {
		logger.Fatalf("threat handler error: %v", err)
	}
	alertHandler, err := registryhttp.NewAlertHandler(alertService, auditRepo)
	if err != nil {
		logger.Fatalf("alert handler error: %v", err)
	}
	accessHandler, err := registryhttp.NewAccessHandler(acl, auditRepo)
	if err != nil {
		logger.Fatalf("access handler error: %v", err)
	}
	exportHandler, err := registryhttp.NewExportHandler(threatService)
	if err != nil {
		logger.Fatalf("export handler error: %v", err)
	}
	auditHandler, err := registryhttp.NewAuditHandler(auditRepo)
	if err != nil {
		logger.Fatalf("audit handler error: %v", err)
	}
	ingestHandler, err := registryingest.NewHandler(threatService, alertService, registrydomain.Principal(cfg.IngestPrincipal), logger)
	if err != nil {
		logger.Fatalf("ingest handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, []string{"/api/v1/ingest/"})
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)
	ingestAuth := auth.NewIngestAuthMiddleware([]byte(cfg.IngestSecret), time.Duration(cfg.IngestSkewSeconds)*time.Second)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/ingest/detections", ingestAuth.Wrap(ingestHandler))
	mux.Handle("/api/v1/threats", threatHandler)
	mux.Handle("/api/v1/threats/", threatHandler)
	mux.Handle("/api/v1/alerts", alertHandler)
	mux.Handle("/api/v1/alerts/", alertHandler)
	mux.Handle("/api/v1/access/", accessHandler)
	mux.Handle("/api/v1/exports/", exportHandler)
	mux.Handle("/api/v1/audit", auditHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

func seedRoles(acl *registrydomain.AccessList, logger *log.Logger, cfg config) {
	owner := registrydomain.Principal(cfg.Owner)
	grants := []struct {
		role       registrydomain.Role
		principals []string
	}{
		{registrydomain.RoleReporter, cfg.Reporters},
		{registrydomain.RoleVerifier, cfg.Verifiers},
		{registrydomain.RoleSender, cfg.Senders},
	}
	for _, grant := range grants {
		for _, principal := range grant.principals {
			if principal == "" {
				continue
			}
			if err := acl.Grant(owner, grant.role, registrydomain.Principal(principal)); err != nil {
				logger.Fatalf("role grant error: role=%s principal=%s: %v", grant.role, principal, err)
			}
		}
	}
	// The ingest identity reports detections and raises auto alerts.
	if cfg.IngestPrincipal != "" {
		ingest := registrydomain.Principal(cfg.IngestPrincipal)
		for _, role := range []registrydomain.Role{registrydomain.RoleReporter, registrydomain.RoleSender} {
			if err := acl.Grant(owner, role, ingest); err != nil {
				logger.Fatalf("ingest grant error: role=%s: %v", role, err)
			}
		}
	}
}

type config struct {
	DatabaseURL        string
	HTTPAddr           string
	Owner              string
	Reporters          []string
	Verifiers          []string
	Senders            []string
	IngestPrincipal    string
	EmergencyThreshold int
	JWTSecret          string
	IngestSecret       string
	IngestSkewSeconds  int
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:        getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:           getenvDefault("HTTP_ADDR", ":8080"),
		Owner:              getenvDefault("SENTINEL_OWNER", ""),
		Reporters:          splitCSV(getenvDefault("SENTINEL_REPORTERS", "")),
		Verifiers:          splitCSV(getenvDefault("SENTINEL_VERIFIERS", "")),
		Senders:            splitCSV(getenvDefault("SENTINEL_SENDERS", "")),
		IngestPrincipal:    getenvDefault("SENTINEL_INGEST_PRINCIPAL", "sentinel-ingest"),
		EmergencyThreshold: getenvIntDefault("SENTINEL_EMERGENCY_THRESHOLD", memory.DefaultEmergencyThreshold),
		JWTSecret:          getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		IngestSecret:       getenvDefault("INGEST_HMAC_SECRET", ""),
		IngestSkewSeconds:  getenvIntDefault("INGEST_MAX_SKEW_SECONDS", 300),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.Owner == "" {
		log.Fatal("SENTINEL_OWNER is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
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

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
