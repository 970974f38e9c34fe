package router

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cache"
	"github.com/google/uuid"

	"github.com/vihking/whatsapp-integration/pkg/log"
)

const RequestIDHeader = "X-Request-ID"

func HttpRealIP() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if xForwardedFor := c.Get(http.CanonicalHeaderKey("X-Forwarded-For")); xForwardedFor != "" {
			parts := strings.Split(xForwardedFor, ",")
			c.Locals("remote_ip", strings.TrimSpace(parts[0]))
		} else if xRealIP := c.Get(http.CanonicalHeaderKey("X-Real-IP")); xRealIP != "" {
			c.Locals("remote_ip", strings.TrimSpace(xRealIP))
		}
		return c.Next()
	}
}

// HttpRequestID keeps an inbound X-Request-ID or mints one.
func HttpRequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals("request_id", id)
		c.Set(RequestIDHeader, id)
		return c.Next()
	}
}

// RecoveryMiddleware converts panics into the JSON failure envelope.
// It must be registered before application routes.
func RecoveryMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				message := fmt.Sprintf("%v", rec)
				log.Print(c).Error("panic recovered: " + message)
				err = c.Status(fiber.StatusInternalServerError).JSON(Response{
					Success: false,
					Message: "Erro interno: " + message,
				})
			}
		}()
		return c.Next()
	}
}

// HttpCacheInMemory caches GET responses for the listed path suffixes only.
// Status, QR and stats must never be cached.
func HttpCacheInMemory(ttl int, paths ...string) fiber.Handler {
	if ttl <= 0 {
		ttl = 5
	}
	return cache.New(cache.Config{
		Next: func(c *fiber.Ctx) bool {
			if c.Method() != fiber.MethodGet {
				return true
			}
			for _, p := range paths {
				if strings.HasSuffix(c.Path(), p) {
					return false
				}
			}
			return true
		},
		Expiration: time.Duration(ttl) * time.Second,
	})
}
