// Package integration serves the admin panel API under /api/whatsapp.
package integration

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/vihking/whatsapp-integration/internal/config"
	"github.com/vihking/whatsapp-integration/internal/provider"
	"github.com/vihking/whatsapp-integration/internal/stats"
	"github.com/vihking/whatsapp-integration/pkg/log"
	"github.com/vihking/whatsapp-integration/pkg/router"
	"github.com/vihking/whatsapp-integration/pkg/validation"
)

const (
	MsgPhoneRequired = "Número de telefone é obrigatório"
	MsgInvalidPhone  = "Número de telefone inválido"
	MsgBodyParse     = "Falha ao ler o corpo da requisição"
)

// WelcomeTemplate is the free trial greeting sent by /send-welcome.
var WelcomeTemplate = provider.Template{
	Name:     "olá_mundo",
	Language: "en_US",
	Text:     "Bem-vindo ao App de Treinamento de IA! 🤖\n\nVocê ganhou uma experiência gratuita de 48 horas para testar nosso sistema.",
	Footer:   "Sua experiência expira em 48 horas",
	Buttons:  []string{"Ver Planos", "Começar Agora", "Saiba Mais"},
}

type Controller struct {
	cfg      config.Config
	registry *provider.Registry
	stats    *stats.Store
}

func New(cfg config.Config, registry *provider.Registry, store *stats.Store) *Controller {
	return &Controller{cfg: cfg, registry: registry, stats: store}
}

type requestSend struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

type requestSwitch struct {
	Type string `json:"type"`
}

type statusResponse struct {
	provider.Status
	IntegrationType provider.Type `json:"integrationType"`
}

type costsResponse struct {
	IntegrationType provider.Type `json:"integrationType"`
	Costs           config.Costs  `json:"costs"`
	EstimatedTotal  float64       `json:"estimatedTotal"`
}

// Initialize starts the active backend.
func (ctl *Controller) Initialize(c *fiber.Ctx) error {
	p := ctl.registry.Active()
	result := p.Initialize(c.UserContext())

	ctl.stats.LogResult("initialize", result.Success, result.Message)
	return router.ResponseResult(c, result.Success, result.Message, result)
}

func (ctl *Controller) Status(c *fiber.Ctx) error {
	p := ctl.registry.Active()
	status := p.Status(c.UserContext())

	return router.ResponseJSON(c, statusResponse{Status: status, IntegrationType: p.Type()})
}

func (ctl *Controller) QRCode(c *fiber.Ctx) error {
	result := ctl.registry.Active().QRCode(c.UserContext())

	message := result.Message
	if message == "" {
		message = "QR Code gerado"
	}
	ctl.stats.LogResult("getQRCode", result.Success, message)
	return router.ResponseResult(c, result.Success, message, result)
}

func (ctl *Controller) Send(c *fiber.Ctx) error {
	var req requestSend
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, MsgBodyParse)
	}
	if strings.TrimSpace(req.To) == "" || strings.TrimSpace(req.Text) == "" {
		return router.ResponseBadRequest(c, provider.MsgMissingFields)
	}

	to, err := normalizeRecipient(req.To)
	if err != nil {
		return router.ResponseBadRequest(c, fmt.Sprintf("%s: %s", MsgInvalidPhone, err.Error()))
	}

	p := ctl.registry.Active()
	result := p.SendText(c.UserContext(), to, req.Text)
	if result.Success {
		ctl.stats.IncSent()
	}

	log.Provider(string(p.Type()), "sendMessage").WithField("to", log.MaskPhone(to)).Info(outcome(result.Success))
	ctl.stats.LogResult("sendMessage", result.Success, fmt.Sprintf("Mensagem para %s: %s", req.To, outcome(result.Success)))
	return router.ResponseResult(c, result.Success, result.Message, result)
}

func (ctl *Controller) SendWelcome(c *fiber.Ctx) error {
	var req requestSend
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, MsgBodyParse)
	}
	if strings.TrimSpace(req.To) == "" {
		return router.ResponseBadRequest(c, MsgPhoneRequired)
	}

	to, err := normalizeRecipient(req.To)
	if err != nil {
		return router.ResponseBadRequest(c, fmt.Sprintf("%s: %s", MsgInvalidPhone, err.Error()))
	}

	p := ctl.registry.Active()
	result := p.SendTemplate(c.UserContext(), to, WelcomeTemplate)
	if result.Success {
		ctl.stats.Add(stats.Delta{Sent: 1, Templates: 1})
	}

	log.Provider(string(p.Type()), "sendWelcome").WithField("to", log.MaskPhone(to)).Info(outcome(result.Success))
	ctl.stats.LogResult("sendWelcome", result.Success, fmt.Sprintf("Mensagem de boas-vindas para %s: %s", req.To, outcome(result.Success)))
	return router.ResponseResult(c, result.Success, result.Message, result)
}

func (ctl *Controller) Disconnect(c *fiber.Ctx) error {
	result := ctl.registry.Active().Disconnect(c.UserContext())

	ctl.stats.LogResult("disconnect", result.Success, result.Message)
	return router.ResponseResult(c, result.Success, result.Message, result)
}

func (ctl *Controller) Stats(c *fiber.Ctx) error {
	return router.ResponseJSON(c, ctl.stats.Snapshot())
}

func (ctl *Controller) ResetStats(c *fiber.Ctx) error {
	snapshot := ctl.stats.Reset()
	ctl.stats.Log("resetStats", stats.StatusSuccess, "Estatísticas reiniciadas")
	return router.ResponseSuccessWithData(c, "Estatísticas reiniciadas", fiber.Map{"stats": snapshot})
}

func (ctl *Controller) Costs(c *fiber.Ctx) error {
	t := ctl.registry.ActiveType()
	costs := config.CostsFor(t)

	return router.ResponseJSON(c, costsResponse{
		IntegrationType: t,
		Costs:           costs,
		EstimatedTotal:  costs.Estimate(ctl.stats.Snapshot()),
	})
}

func (ctl *Controller) Logs(c *fiber.Ctx) error {
	return router.ResponseJSON(c, ctl.stats.Activity())
}

func (ctl *Controller) SwitchType(c *fiber.Ctx) error {
	var req requestSwitch
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, MsgBodyParse)
	}

	t, err := provider.ParseType(req.Type)
	if err != nil {
		return router.ResponseBadRequest(c, fmt.Sprintf("Tipo de integração inválido. Use %s, %s ou %s", provider.TypeWeb, provider.TypeEvolution, provider.TypeBusiness))
	}

	if err := ctl.registry.Switch(t); err != nil {
		message := fmt.Sprintf("Erro ao alterar tipo de integração: %s", err.Error())
		if errors.Is(err, provider.ErrNotConfigured) {
			message = fmt.Sprintf("Integração %s não configurada", t)
		}
		ctl.stats.Log("switchType", stats.StatusError, message)
		return router.ResponseBadRequest(c, message)
	}

	message := fmt.Sprintf("Integração alterada para %s", t)
	ctl.stats.Log("switchType", stats.StatusSuccess, fmt.Sprintf("Tipo de integração alterado para %s", t))
	return router.ResponseSuccessWithData(c, message, fiber.Map{"integrationType": t})
}

// Config shows the running configuration with secrets masked.
func (ctl *Controller) Config(c *fiber.Ctx) error {
	return router.ResponseSuccessWithData(c, "", fiber.Map{
		"integrationType": ctl.registry.ActiveType(),
		"availableTypes":  ctl.registry.Available(),
		"testPhoneNumber": ctl.cfg.TestPhoneNumber,
		"webhookUrl":      ctl.cfg.WebhookURL(),
		"evolution": fiber.Map{
			"url":      ctl.cfg.Evolution.URL,
			"instance": ctl.cfg.Evolution.Instance,
			"apiKey":   config.Masked(ctl.cfg.Evolution.APIKey),
		},
		"business": fiber.Map{
			"apiVersion":        ctl.cfg.Business.APIVersion,
			"phoneNumberId":     ctl.cfg.Business.PhoneNumberID,
			"businessAccountId": ctl.cfg.Business.BusinessAccountID,
			"accessToken":       config.Masked(ctl.cfg.Business.AccessToken),
		},
		"web": fiber.Map{
			"sessionDir":    ctl.cfg.Web.SessionDir,
			"datastoreType": ctl.cfg.Web.DatastoreType,
		},
		"webhook": fiber.Map{
			"verifySignature": ctl.cfg.Webhook.VerifySignature,
			"autoReply":       ctl.cfg.Webhook.AutoReply,
			"verifyToken":     config.Masked(ctl.cfg.Webhook.VerifyToken),
			"appSecret":       config.Masked(ctl.cfg.Webhook.AppSecret),
		},
	})
}

// normalizeRecipient accepts formatted numbers and JIDs, returning digits.
func normalizeRecipient(to string) (string, error) {
	number := validation.NormalizePhone(to)
	if err := validation.ValidatePhone(number); err != nil {
		return "", err
	}
	return number, nil
}

func outcome(ok bool) string {
	if ok {
		return "enviada"
	}
	return "falhou"
}
