package evolution

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/vihking/whatsapp-integration/internal/provider"
	"github.com/vihking/whatsapp-integration/pkg/log"
	"github.com/vihking/whatsapp-integration/pkg/qr"
	"github.com/vihking/whatsapp-integration/pkg/validation"
)

const sendDelayMillis = 1200

type Config struct {
	BaseURL    string
	APIKey     string
	Instance   string
	WebhookURL string
	Timeout    time.Duration
}

// Client drives an Evolution bridge instance over its REST API.
type Client struct {
	cfg  Config
	http *http.Client

	mu          sync.Mutex
	initialized bool
	// disconnected is set by Disconnect and cleared by Initialize. Until
	// then the client initializes on first use.
	disconnected bool
}

func New(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = provider.DefaultTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Type() provider.Type { return provider.TypeEvolution }

func (c *Client) isInitialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

func (c *Client) setInitialized(v bool) {
	c.mu.Lock()
	c.initialized = v
	c.disconnected = !v
	c.mu.Unlock()
}

func (c *Client) isDisconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnected
}

// ensure initializes the instance on first use, so webhook replies keep
// working after a restart without an explicit Initialize.
func (c *Client) ensure(ctx context.Context) provider.Result {
	if c.isInitialized() {
		return provider.Ok("")
	}
	if c.isDisconnected() {
		return provider.Fail(provider.MsgNotInitialized)
	}
	return c.Initialize(ctx)
}

func (c *Client) headers() map[string]string {
	return map[string]string{"apikey": c.cfg.APIKey}
}

func (c *Client) endpoint(path string) string {
	return c.cfg.BaseURL + path + "?instanceName=" + url.QueryEscape(c.cfg.Instance)
}

func (c *Client) Initialize(ctx context.Context) provider.Result {
	if c.isInitialized() {
		return provider.Ok("Instância já inicializada")
	}
	if err := validation.ValidateURL(c.cfg.BaseURL); err != nil {
		return provider.Fail("Configuração incompleta: EVOLUTION_API_URL inválida (%v)", err)
	}

	req := initRequest{
		InstanceName:    c.cfg.Instance,
		Webhook:         c.cfg.WebhookURL,
		WebhookByEvents: true,
		Events:          WebhookEvents,
	}

	var data map[string]interface{}
	if err := provider.Do(ctx, c.http, http.MethodPost, c.cfg.BaseURL+"/instance/init", c.headers(), req, &data); err != nil {
		log.Provider(string(c.Type()), "initialize").Error(err)
		return provider.Fail("Erro ao inicializar instância: %v", err)
	}

	c.setInitialized(true)
	log.Provider(string(c.Type()), "initialize").Infof("instance %s initialized", c.cfg.Instance)

	res := provider.Ok("Instância inicializada com sucesso")
	res.Data = data
	return res
}

func (c *Client) QRCode(ctx context.Context) provider.Result {
	if !c.isInitialized() {
		if res := c.Initialize(ctx); !res.Success {
			return res
		}
	}

	if st := c.Status(ctx); st.Connected {
		return provider.Fail(provider.MsgAlreadyConnected)
	}

	var resp qrResponse
	if err := provider.Do(ctx, c.http, http.MethodGet, c.endpoint("/instance/qrcode"), c.headers(), nil, &resp); err != nil {
		log.Provider(string(c.Type()), "qrcode").Error(err)
		return provider.Fail("Erro ao obter QR Code: %v", err)
	}

	res := provider.Result{Success: true, Message: "QR Code gerado"}
	switch {
	case resp.Code != "":
		res.QRCode = resp.Code
	case resp.QRCode != "" && !qr.IsDataURL(resp.QRCode):
		res.QRCode = resp.QRCode
	}
	switch {
	case resp.Base64 != "":
		res.QRImage = resp.Base64
	case qr.IsDataURL(resp.QRCode):
		res.QRImage = resp.QRCode
	case res.QRCode != "":
		if img, err := qr.DataURL(res.QRCode); err == nil {
			res.QRImage = img
		}
	}
	if res.QRCode == "" && res.QRImage == "" {
		return provider.Fail("QR Code não disponível")
	}
	if res.QRCode == "" {
		res.QRCode = res.QRImage
	}
	return res
}

func (c *Client) Status(ctx context.Context) provider.Status {
	if c.isDisconnected() {
		return provider.Status{Success: true, Status: provider.StateDisconnected}
	}
	if res := c.ensure(ctx); !res.Success {
		return provider.StatusError("%s", res.Message)
	}

	var resp stateResponse
	if err := provider.Do(ctx, c.http, http.MethodGet, c.endpoint("/instance/connectionState"), c.headers(), nil, &resp); err != nil {
		log.Provider(string(c.Type()), "status").Error(err)
		return provider.StatusError("Erro ao verificar status: %v", err)
	}

	state := mapState(resp.state())
	return provider.Status{
		Success:   true,
		Connected: state == provider.StateConnected,
		Status:    state,
	}
}

func mapState(native string) provider.ConnectionState {
	switch strings.ToLower(strings.TrimSpace(native)) {
	case "open", "connected":
		return provider.StateConnected
	case "connecting":
		return provider.StateConnecting
	default:
		return provider.StateDisconnected
	}
}

func (c *Client) SendText(ctx context.Context, to string, text string) provider.Result {
	number := validation.NormalizePhone(to)
	if number == "" || strings.TrimSpace(text) == "" {
		return provider.Fail(provider.MsgMissingFields)
	}
	if res := c.ensure(ctx); !res.Success {
		return res
	}

	req := textRequest{
		Number:      number,
		Options:     sendOptions{Delay: sendDelayMillis},
		TextMessage: textMessage{Text: text},
	}

	var resp sendResponse
	if err := provider.Do(ctx, c.http, http.MethodPost, c.endpoint("/message/text"), c.headers(), req, &resp); err != nil {
		log.Provider(string(c.Type()), "send_text").WithField("to", log.MaskPhone(number)).Error(err)
		return provider.Fail("Erro ao enviar mensagem: %v", err)
	}

	log.Provider(string(c.Type()), "send_text").WithField("to", log.MaskPhone(number)).Info("message sent")
	return provider.Result{Success: true, Message: "Mensagem enviada com sucesso", MessageID: resp.Key.ID}
}

// SendTemplate sends Text as a button message with Footer and Buttons.
func (c *Client) SendTemplate(ctx context.Context, to string, tpl provider.Template) provider.Result {
	number := validation.NormalizePhone(to)
	if number == "" || strings.TrimSpace(tpl.Text) == "" {
		return provider.Fail(provider.MsgMissingFields)
	}
	if res := c.ensure(ctx); !res.Success {
		return res
	}

	buttons := make([]button, 0, len(tpl.Buttons))
	for _, b := range tpl.Buttons {
		buttons = append(buttons, button{ButtonText: buttonText{DisplayText: b}, Type: 1})
	}

	req := buttonRequest{
		Number:  number,
		Options: sendOptions{Delay: sendDelayMillis},
		ButtonMessage: buttonMessage{
			Title:       tpl.Text,
			Description: "",
			FooterText:  tpl.Footer,
			Buttons:     buttons,
		},
	}

	var resp sendResponse
	if err := provider.Do(ctx, c.http, http.MethodPost, c.endpoint("/message/button"), c.headers(), req, &resp); err != nil {
		log.Provider(string(c.Type()), "send_template").WithField("to", log.MaskPhone(number)).Error(err)
		return provider.Fail("Erro ao enviar mensagem com botões: %v", err)
	}

	return provider.Result{Success: true, Message: "Mensagem com botões enviada com sucesso", MessageID: resp.Key.ID}
}

func (c *Client) Disconnect(ctx context.Context) provider.Result {
	if c.isDisconnected() {
		return provider.Fail(provider.MsgNotInitialized)
	}

	var data map[string]interface{}
	if err := provider.Do(ctx, c.http, http.MethodDelete, c.endpoint("/instance/logout"), c.headers(), nil, &data); err != nil {
		log.Provider(string(c.Type()), "disconnect").Error(err)
		return provider.Fail("Erro ao desconectar instância: %v", err)
	}

	c.setInitialized(false)
	res := provider.Ok("Instância desconectada com sucesso")
	res.Data = data
	return res
}
