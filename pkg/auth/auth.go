package auth

import (
	"time"

	"github.com/vihking/whatsapp-integration/pkg/env"
)

// AdminSecretKey lets scripts call the panel API with X-Admin-Secret.
var AdminSecretKey string

// TokenTTL is the lifetime of panel tokens.
var TokenTTL time.Duration

func init() {
	AdminSecretKey, _ = env.GetEnvString("ADMIN_SECRET_KEY")
	TokenTTL = env.GetEnvDurationOrDefault("JWT_TTL", 24*time.Hour)
}
