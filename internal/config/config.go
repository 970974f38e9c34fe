package config

import (
	"strings"
	"time"

	"github.com/vihking/whatsapp-integration/internal/provider"
	"github.com/vihking/whatsapp-integration/internal/provider/cloudapi"
	"github.com/vihking/whatsapp-integration/internal/provider/evolution"
	"github.com/vihking/whatsapp-integration/internal/provider/webclient"
	"github.com/vihking/whatsapp-integration/pkg/env"
)

type Evolution struct {
	URL      string
	APIKey   string
	Instance string
}

type Business struct {
	AccessToken       string
	PhoneNumberID     string
	BusinessAccountID string
	APIVersion        string
	BaseURL           string
}

type Web struct {
	SessionDir    string
	DatastoreType string
	DatastoreURI  string
	QRWaitTimeout time.Duration
	PrintQR       bool

	VersionRefresh            bool
	VersionRefreshSpec        string
	VersionRefreshMinInterval time.Duration
}

type Webhook struct {
	VerifyToken      string
	AppSecret        string
	VerifySignature  bool
	RequireSignature bool
	AutoReply        bool
	LogEnabled       bool
	LogDir           string
	RetentionDays    int
}

type Admin struct {
	Email       string
	Password    string
	AuthEnabled bool
}

type Config struct {
	IntegrationType provider.Type
	BackendURL      string
	TestPhoneNumber string
	Production      bool

	Evolution Evolution
	Business  Business
	Web       Web
	Webhook   Webhook
	Admin     Admin

	AutoInitialize  bool
	StatusWatchSpec string
	ServerAddress   string
	ServerPort      string
}

// DefaultVerifyToken is the token Meta setup guides for this service use.
// Deployments are expected to override it.
const DefaultVerifyToken = "token_de_verificacao_personalizado"

// Load reads the environment (a .env file is autoloaded by pkg/env).
func Load() Config {
	appEnv := env.GetEnvFirstOrDefault("development", "APP_ENV", "NODE_ENV")
	production := strings.EqualFold(appEnv, "production")

	integrationType, err := provider.ParseType(env.GetEnvStringOrDefault("WHATSAPP_INTEGRATION_TYPE", string(provider.TypeWeb)))
	if err != nil {
		integrationType = provider.TypeWeb
	}

	return Config{
		IntegrationType: integrationType,
		BackendURL:      strings.TrimRight(env.GetEnvStringOrDefault("BACKEND_URL", "http://localhost:5000"), "/"),
		TestPhoneNumber: env.GetEnvStringOrDefault("TEST_PHONE_NUMBER", "5511999999999"),
		Production:      production,

		Evolution: Evolution{
			URL:      env.GetEnvStringOrDefault("EVOLUTION_API_URL", "http://localhost:8080"),
			APIKey:   env.GetEnvStringOrDefault("EVOLUTION_API_KEY", ""),
			Instance: env.GetEnvStringOrDefault("EVOLUTION_INSTANCE_NAME", "app_treinamento_ia"),
		},
		Business: Business{
			AccessToken:       env.GetEnvStringOrDefault("WHATSAPP_ACCESS_TOKEN", ""),
			PhoneNumberID:     env.GetEnvStringOrDefault("WHATSAPP_PHONE_NUMBER_ID", ""),
			BusinessAccountID: env.GetEnvStringOrDefault("WHATSAPP_BUSINESS_ACCOUNT_ID", ""),
			APIVersion:        env.GetEnvStringOrDefault("WHATSAPP_API_VERSION", cloudapi.DefaultAPIVersion),
			BaseURL:           env.GetEnvStringOrDefault("WHATSAPP_GRAPH_URL", cloudapi.DefaultBaseURL),
		},
		Web: Web{
			SessionDir:    env.GetEnvStringOrDefault("WHATSAPP_SESSION_DIR", webclient.DefaultSessionDir),
			DatastoreType: env.GetEnvStringOrDefault("WHATSAPP_DATASTORE_TYPE", "sqlite3"),
			DatastoreURI:  env.GetEnvStringOrDefault("WHATSAPP_DATASTORE_URI", ""),
			QRWaitTimeout: env.GetEnvDurationOrDefault("WHATSAPP_QR_WAIT_TIMEOUT", webclient.DefaultQRWaitTimeout),
			PrintQR:       env.GetEnvBoolOrDefault("WHATSAPP_PRINT_QR", false),

			VersionRefresh:            env.GetEnvBoolOrDefault("WHATSAPP_ENABLE_WAVERSION_REFRESH_CRON", false),
			VersionRefreshSpec:        env.GetEnvStringOrDefault("WHATSAPP_WAVERSION_REFRESH_CRON_SPEC", "0 0 3 * * *"),
			VersionRefreshMinInterval: env.GetEnvDurationOrDefault("WHATSAPP_WAVERSION_REFRESH_MIN_INTERVAL", webclient.DefaultVersionRefreshInterval),
		},
		Webhook: Webhook{
			VerifyToken:      env.GetEnvStringOrDefault("WEBHOOK_VERIFY_TOKEN", DefaultVerifyToken),
			AppSecret:        env.GetEnvStringOrDefault("WHATSAPP_APP_SECRET", ""),
			VerifySignature:  env.GetEnvBoolOrDefault("WEBHOOK_VERIFY_SIGNATURE", production),
			RequireSignature: env.GetEnvBoolOrDefault("WEBHOOK_REQUIRE_SIGNATURE", false),
			AutoReply:        env.GetEnvBoolOrDefault("WEBHOOK_AUTO_REPLY", true),
			LogEnabled:       env.GetEnvBoolOrDefault("LOG_WEBHOOKS", true),
			LogDir:           env.GetEnvStringOrDefault("WEBHOOK_LOG_DIR", "logs"),
			RetentionDays:    env.GetEnvIntOrDefault("WEBHOOK_LOG_RETENTION_DAYS", 7),
		},
		Admin: Admin{
			Email:       env.GetEnvStringOrDefault("ADMIN_EMAIL", ""),
			Password:    env.GetEnvStringOrDefault("ADMIN_PASSWORD", ""),
			AuthEnabled: env.GetEnvBoolOrDefault("PANEL_AUTH_ENABLED", false),
		},

		AutoInitialize:  env.GetEnvBoolOrDefault("WHATSAPP_AUTO_INITIALIZE", false),
		StatusWatchSpec: env.GetEnvStringOrDefault("WHATSAPP_STATUS_WATCH_SPEC", "@every 1m"),
		ServerAddress:   env.GetEnvStringOrDefault("SERVER_ADDRESS", "0.0.0.0"),
		ServerPort:      env.GetEnvStringOrDefault("SERVER_PORT", "5000"),
	}
}

// WebhookURL is where the bridge posts instance events.
func (c Config) WebhookURL() string {
	return c.BackendURL + "/api/webhook/whatsapp"
}

func (c Config) EvolutionConfig() evolution.Config {
	return evolution.Config{
		BaseURL:    c.Evolution.URL,
		APIKey:     c.Evolution.APIKey,
		Instance:   c.Evolution.Instance,
		WebhookURL: c.WebhookURL(),
	}
}

func (c Config) CloudConfig() cloudapi.Config {
	return cloudapi.Config{
		BaseURL:           c.Business.BaseURL,
		APIVersion:        c.Business.APIVersion,
		AccessToken:       c.Business.AccessToken,
		PhoneNumberID:     c.Business.PhoneNumberID,
		BusinessAccountID: c.Business.BusinessAccountID,
	}
}

func (c Config) WebConfig() webclient.Config {
	return webclient.Config{
		SessionDir:    c.Web.SessionDir,
		DatastoreType: c.Web.DatastoreType,
		DatastoreURI:  c.Web.DatastoreURI,
		QRWaitTimeout: c.Web.QRWaitTimeout,
	}
}

// Masked returns a secret showing only its last four characters.
func Masked(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return strings.Repeat("*", 8) + secret[len(secret)-4:]
}
