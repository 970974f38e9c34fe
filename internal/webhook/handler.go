package webhook

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/vihking/whatsapp-integration/pkg/log"
	"github.com/vihking/whatsapp-integration/pkg/router"
)

type Handler struct {
	normalizer *Normalizer
}

func NewHandler(n *Normalizer) *Handler {
	return &Handler{normalizer: n}
}

// Verify answers GET hub.mode/hub.verify_token/hub.challenge.
func (h *Handler) Verify(c *fiber.Ctx) error {
	challenge, ok := h.normalizer.Challenge(c.Query("hub.mode"), c.Query("hub.verify_token"), c.Query("hub.challenge"))
	if !ok {
		return router.ResponseText(c, http.StatusForbidden, "Verificação falhou")
	}
	log.Print(c).Info("Webhook verificado com sucesso")
	return router.ResponseText(c, http.StatusOK, challenge)
}

// Receive acknowledges every callback with 200 unless it fails verification
// or is not a callback at all.
func (h *Handler) Receive(c *fiber.Ctx) (err error) {
	body := c.Body()

	if err := h.normalizer.CheckSignature(c.Get(SignatureHeader), body); err != nil {
		if errors.Is(err, ErrMissingSecret) {
			log.Print(c).Error("WHATSAPP_APP_SECRET not configured")
			return router.ResponseText(c, http.StatusInternalServerError, "Configuração incompleta")
		}
		log.Print(c).WithError(err).Warn("webhook rejected")
		return router.ResponseText(c, http.StatusForbidden, "Assinatura inválida")
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Print(c).Error(fmt.Sprintf("panic while processing webhook: %v", rec))
			err = router.ResponseText(c, http.StatusOK, "Processado com erros")
		}
	}()

	outcome, perr := h.normalizer.Process(c.UserContext(), body)
	switch {
	case errors.Is(perr, ErrInvalidEvent):
		log.Print(c).WithError(perr).Warn("Evento inválido recebido")
		return router.ResponseText(c, http.StatusBadRequest, "Evento inválido")
	case perr != nil:
		log.Print(c).WithError(perr).Error("webhook processing failed")
		return router.ResponseText(c, http.StatusOK, "Processado com erros")
	}

	log.Print(c).WithFields(map[string]interface{}{
		"source":   outcome.Source,
		"received": outcome.Received,
		"replied":  outcome.Replied,
	}).Debug("webhook processed")
	return router.ResponseText(c, http.StatusOK, "OK")
}
