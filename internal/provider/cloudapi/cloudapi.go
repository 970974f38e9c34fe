package cloudapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vihking/whatsapp-integration/internal/provider"
	"github.com/vihking/whatsapp-integration/pkg/log"
	"github.com/vihking/whatsapp-integration/pkg/validation"
)

const (
	DefaultBaseURL    = "https://graph.facebook.com"
	DefaultAPIVersion = "v22.0"
	DefaultLanguage   = "pt_BR"
)

type Config struct {
	BaseURL           string
	APIVersion        string
	AccessToken       string
	PhoneNumberID     string
	BusinessAccountID string
	Timeout           time.Duration
}

// Client talks to the Business Cloud API. There is no session to pair,
// Initialize only checks the credentials against the phone number node.
type Client struct {
	cfg  Config
	http *http.Client

	mu           sync.Mutex
	initialized  bool
	disconnected bool
	info         provider.Info
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = provider.DefaultTimeout
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

func (c *Client) Type() provider.Type { return provider.TypeBusiness }

func (c *Client) Configured() bool {
	return c.cfg.AccessToken != "" && c.cfg.PhoneNumberID != ""
}

func (c *Client) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.cfg.AccessToken}
}

func (c *Client) url(path string) string {
	return fmt.Sprintf("%s/%s/%s", c.cfg.BaseURL, c.cfg.APIVersion, strings.TrimLeft(path, "/"))
}

func (c *Client) fetchPhoneNumber(ctx context.Context) (provider.Info, error) {
	var resp phoneNumberResponse
	u := c.url(c.cfg.PhoneNumberID) + "?fields=display_phone_number,verified_name"
	if err := provider.Do(ctx, c.http, http.MethodGet, u, c.headers(), nil, &resp); err != nil {
		return provider.Info{}, err
	}
	return provider.Info{
		PhoneNumber: validation.NormalizePhone(resp.DisplayPhoneNumber),
		Name:        resp.VerifiedName,
	}, nil
}

func (c *Client) Initialize(ctx context.Context) provider.Result {
	if !c.Configured() {
		return provider.Fail("Configuração incompleta: WHATSAPP_ACCESS_TOKEN e WHATSAPP_PHONE_NUMBER_ID são obrigatórios")
	}

	info, err := c.fetchPhoneNumber(ctx)
	if err != nil {
		log.Provider(string(c.Type()), "initialize").Error(err)
		return provider.Fail("Erro ao verificar API do WhatsApp Business: %v", err)
	}

	c.mu.Lock()
	c.initialized = true
	c.disconnected = false
	c.info = info
	c.mu.Unlock()

	res := provider.Ok("API do WhatsApp Business acessível")
	res.Data = info
	return res
}

// QRCode never applies: the number is registered in the Business Manager.
func (c *Client) QRCode(ctx context.Context) provider.Result {
	return provider.Fail("QR Code não necessário para a API do WhatsApp Business")
}

// state reports whether Initialize has succeeded and whether Disconnect
// was called since.
func (c *Client) state() (initialized, disconnected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized, c.disconnected
}

// ensure runs Initialize on first use unless the client was disconnected.
func (c *Client) ensure(ctx context.Context) provider.Result {
	initialized, disconnected := c.state()
	switch {
	case initialized:
		return provider.Ok("")
	case disconnected:
		return provider.Fail(provider.MsgNotInitialized)
	}
	return c.Initialize(ctx)
}

func (c *Client) Status(ctx context.Context) provider.Status {
	initialized, disconnected := c.state()
	if disconnected || (!initialized && !c.Configured()) {
		return provider.Status{Success: true, Status: provider.StateDisconnected}
	}

	info, err := c.fetchPhoneNumber(ctx)
	if err != nil {
		log.Provider(string(c.Type()), "status").Error(err)
		return provider.StatusError("Erro ao verificar status: %v", err)
	}

	c.mu.Lock()
	c.initialized = true
	c.info = info
	c.mu.Unlock()

	return provider.Status{
		Success:   true,
		Connected: true,
		Status:    provider.StateConnected,
		Data:      info,
	}
}

func (c *Client) send(ctx context.Context, op string, msg message) provider.Result {
	if res := c.ensure(ctx); !res.Success {
		return res
	}

	var resp sendResponse
	if err := provider.Do(ctx, c.http, http.MethodPost, c.url(c.cfg.PhoneNumberID+"/messages"), c.headers(), msg, &resp); err != nil {
		log.Provider(string(c.Type()), op).WithField("to", log.MaskPhone(msg.To)).Error(err)
		return provider.Fail("Erro ao enviar mensagem: %v", err)
	}

	res := provider.Result{Success: true, Message: "Mensagem enviada com sucesso"}
	if len(resp.Messages) > 0 {
		res.MessageID = resp.Messages[0].ID
	}
	log.Provider(string(c.Type()), op).WithField("to", log.MaskPhone(msg.To)).Info("message sent")
	return res
}

func (c *Client) SendText(ctx context.Context, to string, text string) provider.Result {
	number := validation.NormalizePhone(to)
	if number == "" || strings.TrimSpace(text) == "" {
		return provider.Fail(provider.MsgMissingFields)
	}
	return c.send(ctx, "send_text", message{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               number,
		Type:             "text",
		Text:             &textObj{Body: text},
	})
}

// SendTemplate sends a pre-approved template by name.
func (c *Client) SendTemplate(ctx context.Context, to string, tpl provider.Template) provider.Result {
	number := validation.NormalizePhone(to)
	if number == "" || strings.TrimSpace(tpl.Name) == "" {
		return provider.Fail("Número de telefone e nome do modelo são obrigatórios")
	}
	lang := tpl.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	return c.send(ctx, "send_template", message{
		MessagingProduct: "whatsapp",
		To:               number,
		Type:             "template",
		Template: &templateObj{
			Name:       tpl.Name,
			Language:   languageObj{Code: lang},
			Components: tpl.Components,
		},
	})
}

func (c *Client) Disconnect(ctx context.Context) provider.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disconnected {
		return provider.Fail(provider.MsgNotInitialized)
	}
	c.initialized = false
	c.disconnected = true
	c.info = provider.Info{}
	return provider.Ok("Cliente desconectado com sucesso")
}
