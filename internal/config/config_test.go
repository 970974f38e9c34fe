package config

import (
	"testing"
	"time"

	"github.com/vihking/whatsapp-integration/internal/provider"
	"github.com/vihking/whatsapp-integration/internal/stats"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"WHATSAPP_INTEGRATION_TYPE", "APP_ENV", "NODE_ENV", "WEBHOOK_VERIFY_SIGNATURE", "BACKEND_URL", "WEBHOOK_VERIFY_TOKEN"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	if cfg.IntegrationType != provider.TypeWeb {
		t.Fatalf("IntegrationType = %s", cfg.IntegrationType)
	}
	if cfg.Production || cfg.Webhook.VerifySignature {
		t.Fatal("signature verification enabled outside production")
	}
	if cfg.WebhookURL() != "http://localhost:5000/api/webhook/whatsapp" {
		t.Fatalf("WebhookURL = %s", cfg.WebhookURL())
	}
	if cfg.Web.QRWaitTimeout != 30*time.Second {
		t.Fatalf("QRWaitTimeout = %s", cfg.Web.QRWaitTimeout)
	}
	if cfg.Webhook.VerifyToken != "token_de_verificacao_personalizado" {
		t.Fatalf("VerifyToken = %q", cfg.Webhook.VerifyToken)
	}
}

func TestVerifyTokenOverride(t *testing.T) {
	t.Setenv("WEBHOOK_VERIFY_TOKEN", "meu-token")
	if got := Load().Webhook.VerifyToken; got != "meu-token" {
		t.Fatalf("VerifyToken = %q", got)
	}
}

func TestLoadProduction(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("NODE_ENV", "production")
	t.Setenv("WEBHOOK_VERIFY_SIGNATURE", "")
	t.Setenv("WHATSAPP_INTEGRATION_TYPE", "evolution_api")
	t.Setenv("BACKEND_URL", "https://api.example.com/")

	cfg := Load()
	if !cfg.Production || !cfg.Webhook.VerifySignature {
		t.Fatalf("production = %v, verify = %v", cfg.Production, cfg.Webhook.VerifySignature)
	}
	if cfg.IntegrationType != provider.TypeEvolution {
		t.Fatalf("IntegrationType = %s", cfg.IntegrationType)
	}
	if got := cfg.EvolutionConfig().WebhookURL; got != "https://api.example.com/api/webhook/whatsapp" {
		t.Fatalf("webhook url = %s", got)
	}
}

func TestVerifySignatureOverride(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("WEBHOOK_VERIFY_SIGNATURE", "false")
	if Load().Webhook.VerifySignature {
		t.Fatal("explicit false ignored")
	}
}

func TestCostsEstimate(t *testing.T) {
	if CostsFor(provider.TypeWeb) != (Costs{}) || CostsFor(provider.TypeEvolution) != (Costs{}) {
		t.Fatal("only the Cloud API should bill")
	}

	s := stats.MessageStats{Received: 10, Sent: 5, Templates: 2, Media: 1}
	// 10*0.0085 + 3*0.0085 + 2*0.0127 + 1*0.0170
	want := 0.1529
	if got := CostsFor(provider.TypeBusiness).Estimate(s); got != want {
		t.Fatalf("Estimate = %v, want %v", got, want)
	}
	if got := CostsFor(provider.TypeWeb).Estimate(s); got != 0 {
		t.Fatalf("Estimate web = %v", got)
	}
}

func TestMasked(t *testing.T) {
	if Masked("") != "" || Masked("abc") != "****" {
		t.Fatal("short secrets")
	}
	if got := Masked("EAAGsecret1234"); got != "********1234" {
		t.Fatalf("Masked = %s", got)
	}
}
