package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/vihking/whatsapp-integration/pkg/router"
)

// PanelAuth accepts either X-Admin-Secret or a Bearer panel token.
func PanelAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if adminSecret := c.Get("X-Admin-Secret"); adminSecret != "" {
			if AdminSecretKey == "" {
				return router.ResponseInternalError(c, "Admin secret key not configured")
			}
			if subtle.ConstantTimeCompare([]byte(adminSecret), []byte(AdminSecretKey)) != 1 {
				return router.ResponseUnauthorized(c, "Invalid admin secret")
			}
			c.Locals("admin_email", "")
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return router.ResponseUnauthorized(c, "Missing Authorization header")
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return router.ResponseUnauthorized(c, "Invalid Authorization header format. Use: Bearer <token>")
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return router.ResponseUnauthorized(c, "Missing token")
		}

		claims, err := ValidateAdminToken(tokenString)
		if err != nil {
			return router.ResponseUnauthorized(c, "Invalid or expired token")
		}

		c.Locals("admin_email", claims.Email)
		c.Locals("admin_role", claims.Role)

		return c.Next()
	}
}
