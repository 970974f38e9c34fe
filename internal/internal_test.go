package internal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/vihking/whatsapp-integration/internal/config"
	"github.com/vihking/whatsapp-integration/internal/provider"
	"github.com/vihking/whatsapp-integration/internal/provider/providertest"
	"github.com/vihking/whatsapp-integration/internal/stats"
	"github.com/vihking/whatsapp-integration/internal/webhook"
	"github.com/vihking/whatsapp-integration/pkg/auth"
	"github.com/vihking/whatsapp-integration/pkg/router"
)

func newDeps(t *testing.T, cfg config.Config) (Dependencies, *providertest.Fake, *providertest.Fake) {
	t.Helper()

	web := providertest.New(provider.TypeWeb)
	evo := providertest.New(provider.TypeEvolution)
	reg, err := provider.NewRegistry(provider.TypeWeb, web, evo)
	if err != nil {
		t.Fatal(err)
	}
	store := stats.NewStore()
	n := webhook.New(webhook.Options{VerifyToken: "tok", AutoReply: true}, reg, store, nil)

	return Dependencies{Config: cfg, Registry: reg, Stats: store, Normalizer: n}, web, evo
}

func newApp(deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: router.HttpErrorHandler})
	Routes(app, deps)
	return app
}

func statusCode(t *testing.T, app *fiber.App, req *http.Request) int {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestRoutesOpenPanel(t *testing.T) {
	deps, _, _ := newDeps(t, config.Config{})
	app := newApp(deps)

	for _, path := range []string{"/", "/health", "/api/whatsapp/status", "/api/whatsapp/stats", "/api/whatsapp/logs"} {
		if code := statusCode(t, app, httptest.NewRequest(http.MethodGet, path, nil)); code != http.StatusOK {
			t.Fatalf("GET %s: %d", path, code)
		}
	}
}

func TestRoutesUnknownPath(t *testing.T) {
	deps, _, _ := newDeps(t, config.Config{})
	app := newApp(deps)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/nope", nil),
		httptest.NewRequest(http.MethodPost, "/api/whatsapp/nope", nil),
		httptest.NewRequest(http.MethodDelete, "/webhook", nil),
	} {
		if code := statusCode(t, app, req); code != http.StatusNotFound {
			t.Fatalf("%s %s: %d", req.Method, req.URL.Path, code)
		}
	}
}

func TestRoutesPanelAuth(t *testing.T) {
	auth.AdminSecretKey = "admin-secret"
	t.Cleanup(func() { auth.AdminSecretKey = "" })

	deps, _, _ := newDeps(t, config.Config{Admin: config.Admin{AuthEnabled: true}})
	app := newApp(deps)

	if code := statusCode(t, app, httptest.NewRequest(http.MethodGet, "/api/whatsapp/status", nil)); code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status: %d", code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/whatsapp/status", nil)
	req.Header.Set("X-Admin-Secret", "admin-secret")
	if code := statusCode(t, app, req); code != http.StatusOK {
		t.Fatalf("authenticated status: %d", code)
	}

	// webhooks are called by providers and never carry panel credentials
	verify := httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=tok&hub.challenge=1", nil)
	if code := statusCode(t, app, verify); code != http.StatusOK {
		t.Fatalf("webhook verify behind panel auth: %d", code)
	}
}

func TestRoutesWebhookAliases(t *testing.T) {
	deps, web, _ := newDeps(t, config.Config{})
	app := newApp(deps)

	body := `{"event":"messages.upsert","data":{"key":{"remoteJid":"5511988887777@s.whatsapp.net","id":"1"},"message":{"conversation":"oi"}}}`
	for _, path := range []string{"/webhook", "/api/webhook/whatsapp"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if code := statusCode(t, app, req); code != http.StatusOK {
			t.Fatalf("POST %s: %d", path, code)
		}
	}

	if s := deps.Stats.Snapshot(); s.Received != 2 || s.Sent != 2 {
		t.Fatalf("unexpected stats %+v", s)
	}
	if len(web.Messages()) != 2 {
		t.Fatalf("expected 2 auto replies, got %d", len(web.Messages()))
	}
}

func TestStatusWatcher(t *testing.T) {
	deps, web, _ := newDeps(t, config.Config{})
	w := newStatusWatcher(deps.Registry, deps.Stats)
	ctx := context.Background()

	w.check(ctx)
	if n := len(deps.Stats.Activity()); n != 0 {
		t.Fatalf("first poll logged %d entries", n)
	}

	w.check(ctx)
	if n := len(deps.Stats.Activity()); n != 0 {
		t.Fatalf("unchanged status logged %d entries", n)
	}

	web.SetStatus(provider.Status{Success: true, Connected: true, Status: provider.StateConnected})
	w.check(ctx)
	activity := deps.Stats.Activity()
	if len(activity) != 1 || activity[0].Action != "statusChange" || activity[0].Status != stats.StatusSuccess {
		t.Fatalf("unexpected activity %+v", activity)
	}

	web.SetStatus(provider.StatusError("%s", "conexão perdida"))
	w.check(ctx)
	activity = deps.Stats.Activity()
	if len(activity) != 2 || activity[0].Status != stats.StatusError || !strings.Contains(activity[0].Message, "conexão perdida") {
		t.Fatalf("unexpected activity %+v", activity)
	}
}

func TestStatusWatcherResetsOnSwitch(t *testing.T) {
	deps, _, evo := newDeps(t, config.Config{})
	w := newStatusWatcher(deps.Registry, deps.Stats)
	ctx := context.Background()

	w.check(ctx)
	evo.SetStatus(provider.Status{Success: true, Connected: true, Status: provider.StateConnected})
	if err := deps.Registry.Switch(provider.TypeEvolution); err != nil {
		t.Fatal(err)
	}
	w.check(ctx)

	if n := len(deps.Stats.Activity()); n != 0 {
		t.Fatalf("switching backend logged %d status changes", n)
	}
}

func TestStartupAutoInitialize(t *testing.T) {
	deps, web, _ := newDeps(t, config.Config{AutoInitialize: true})
	Startup(deps)

	if web.CallCount("Initialize") != 1 {
		t.Fatal("active provider not initialized on startup")
	}
	if activity := deps.Stats.Activity(); len(activity) != 1 || activity[0].Action != "initialize" {
		t.Fatalf("unexpected activity %+v", activity)
	}
}

func TestStartupWithoutAutoInitialize(t *testing.T) {
	deps, web, _ := newDeps(t, config.Config{})
	Startup(deps)

	if web.CallCount("Initialize") != 0 {
		t.Fatal("provider initialized without WHATSAPP_AUTO_INITIALIZE")
	}
}
