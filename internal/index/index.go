package index

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vihking/whatsapp-integration/internal/provider"
	"github.com/vihking/whatsapp-integration/pkg/router"
)

// Index reports that the server is up and which backend is active.
func Index(registry *provider.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return router.ResponseSuccessWithData(c, "WhatsApp integration is running", fiber.Map{
			"integrationType": registry.ActiveType(),
		})
	}
}

// Health answers load balancer probes without touching any backend.
func Health(c *fiber.Ctx) error {
	return router.ResponseSuccess(c, "ok")
}
