package webclient

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"golang.org/x/sync/singleflight"

	"github.com/vihking/whatsapp-integration/internal/provider"
	"github.com/vihking/whatsapp-integration/pkg/log"
	"github.com/vihking/whatsapp-integration/pkg/qr"
)

const (
	DefaultSessionDir    = ".whatsapp_session"
	DefaultQRWaitTimeout = 30 * time.Second

	qrCacheKey = "qr"
	opName     = "WHATSAPP_WEB"
)

type Config struct {
	SessionDir    string
	DatastoreType string
	DatastoreURI  string
	QRWaitTimeout time.Duration
	// QROutput receives a terminal rendering of every new pairing code.
	QROutput io.Writer
}

// Client runs one multi-device session. The latest pairing code lives in
// an expiring cache; waiters are woken by closing qrReady.
type Client struct {
	cfg     Config
	factory SessionFactory
	group   singleflight.Group
	codes   *cache.Cache

	mu        sync.Mutex
	session   Session
	state     provider.ConnectionState
	lastError string
	info      provider.Info
	qrReady   chan struct{}
	stopQR    context.CancelFunc
	onMessage provider.InboundHandler
}

func New(cfg Config, factory SessionFactory) *Client {
	if cfg.QRWaitTimeout <= 0 {
		cfg.QRWaitTimeout = DefaultQRWaitTimeout
	}
	if factory == nil {
		factory = NewWhatsmeowFactory(cfg)
	}
	return &Client{
		cfg:     cfg,
		factory: factory,
		codes:   cache.New(time.Minute, 2*time.Minute),
		state:   provider.StateDisconnected,
		qrReady: make(chan struct{}),
	}
}

func (c *Client) Type() provider.Type { return provider.TypeWeb }

// OnMessage registers the handler for messages received by the session.
func (c *Client) OnMessage(h provider.InboundHandler) {
	c.mu.Lock()
	c.onMessage = h
	c.mu.Unlock()
}

func (c *Client) current() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// wakeLocked releases every QRCode waiter. c.mu must be held.
func (c *Client) wakeLocked() {
	close(c.qrReady)
	c.qrReady = make(chan struct{})
}

// Initialize is idempotent; concurrent calls share one attempt.
func (c *Client) Initialize(ctx context.Context) provider.Result {
	v, _, _ := c.group.Do("initialize", func() (interface{}, error) {
		return c.initialize(), nil
	})
	return v.(provider.Result)
}

func (c *Client) initialize() provider.Result {
	if c.current() != nil {
		return provider.Ok("Cliente já inicializado")
	}

	// The session outlives the request that created it.
	session, err := c.factory(context.Background())
	if err != nil {
		log.Provider(opName, "initialize").Error(err)
		return provider.Fail("Erro ao inicializar cliente: %v", err)
	}
	session.AddEventHandler(c.handleEvent)

	var stopQR context.CancelFunc
	if !session.Paired() {
		qrCtx, cancel := context.WithCancel(context.Background())
		ch, err := session.QRChannel(qrCtx)
		if err != nil {
			cancel()
			log.Provider(opName, "initialize").Error(err)
			return provider.Fail("Erro ao inicializar cliente: %v", err)
		}
		stopQR = cancel
		go c.consumeQR(session, ch)
	}

	c.mu.Lock()
	c.session = session
	c.state = provider.StateConnecting
	c.lastError = ""
	c.stopQR = stopQR
	c.mu.Unlock()

	if err := session.Connect(); err != nil {
		c.teardown(session, provider.StateError, err.Error())
		log.Provider(opName, "initialize").Error(err)
		return provider.Fail("Erro ao inicializar cliente: %v", err)
	}

	log.Provider(opName, "initialize").Info("client started")
	return provider.Ok("Cliente inicializado com sucesso")
}

func (c *Client) consumeQR(session Session, ch <-chan QREvent) {
	for evt := range ch {
		switch evt.Event {
		case QREventCode:
			ttl := evt.Timeout
			if ttl <= 0 {
				ttl = cache.DefaultExpiration
			}
			c.mu.Lock()
			if c.session == session {
				c.codes.Set(qrCacheKey, evt.Code, ttl)
				c.wakeLocked()
			}
			output := c.cfg.QROutput
			c.mu.Unlock()

			log.Provider(opName, "qrcode").Info("QR Code recebido")
			qr.Terminal(evt.Code, output)
		case QREventSuccess:
			log.Provider(opName, "qrcode").Info("pairing succeeded")
			c.mu.Lock()
			c.codes.Delete(qrCacheKey)
			c.wakeLocked()
			c.mu.Unlock()
		case QREventTimeout:
			log.Provider(opName, "qrcode").Warn("pairing window expired")
			c.teardown(session, provider.StateDisconnected, "")
		case QREventError:
			msg := "erro desconhecido"
			if evt.Err != nil {
				msg = evt.Err.Error()
			}
			log.Provider(opName, "qrcode").Error("pairing failed: " + msg)
			c.teardown(session, provider.StateError, "Falha no pareamento: "+msg)
		default:
			// err-client-outdated, err-scanned-without-multidevice and friends
			log.Provider(opName, "qrcode").Error("pairing failed: " + evt.Event)
			c.teardown(session, provider.StateError, "Falha no pareamento: "+evt.Event)
		}
	}
}

// teardown drops session if it is still the current one.
func (c *Client) teardown(session Session, state provider.ConnectionState, reason string) {
	c.mu.Lock()
	if c.session != session {
		c.mu.Unlock()
		return
	}
	stop := c.stopQR
	c.session = nil
	c.stopQR = nil
	c.state = state
	c.lastError = reason
	c.info = provider.Info{}
	c.codes.Delete(qrCacheKey)
	c.wakeLocked()
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
	session.Disconnect()
}

func (c *Client) handleEvent(evt interface{}) {
	switch e := evt.(type) {
	case *events.Connected:
		c.mu.Lock()
		if c.session != nil {
			c.state = provider.StateConnected
			c.lastError = ""
			self := c.session.Self()
			if self.PhoneNumber != "" {
				c.info.PhoneNumber = self.PhoneNumber
			}
			if self.Name != "" {
				c.info.Name = self.Name
			}
			c.codes.Delete(qrCacheKey)
			c.wakeLocked()
		}
		c.mu.Unlock()
		log.Provider(opName, "event").Info("Cliente pronto!")
	case *events.PairSuccess:
		c.mu.Lock()
		c.info.PhoneNumber = e.ID.User
		if e.BusinessName != "" {
			c.info.Name = e.BusinessName
		}
		c.mu.Unlock()
		log.Provider(opName, "event").WithField("phone", log.MaskPhone(e.ID.User)).Info("paired")
	case *events.Disconnected:
		c.mu.Lock()
		if c.session != nil && c.state == provider.StateConnected {
			c.state = provider.StateConnecting
		}
		c.mu.Unlock()
		log.Provider(opName, "event").Warn("client disconnected")
	case *events.LoggedOut:
		log.Provider(opName, "event").Warnf("logged out: %v", e.Reason)
		if s := c.current(); s != nil {
			go c.teardown(s, provider.StateDisconnected, "")
		}
	case *events.ConnectFailure:
		reason := fmt.Sprintf("Falha na conexão: %v %s", e.Reason, e.Message)
		log.Provider(opName, "event").Error(reason)
		c.mu.Lock()
		c.state = provider.StateError
		c.lastError = strings.TrimSpace(reason)
		c.mu.Unlock()
	case *events.TemporaryBan:
		log.Provider(opName, "event").Error("temporarily banned: " + e.String())
		c.mu.Lock()
		c.state = provider.StateError
		c.lastError = e.String()
		c.mu.Unlock()
	case *events.Message:
		msg, ok := inboundFromEvent(e)
		if !ok {
			return
		}
		c.mu.Lock()
		h := c.onMessage
		c.mu.Unlock()
		log.Provider(opName, "event").WithField("from", log.MaskPhone(e.Info.Chat.User)).Info("message received")
		if h != nil {
			go h(context.Background(), msg)
		}
	}
}

func inboundFromEvent(e *events.Message) (provider.InboundMessage, bool) {
	if e.Message == nil || e.Info.IsFromMe || e.Info.IsGroup || e.Info.Chat.Server == types.BroadcastServer {
		return provider.InboundMessage{}, false
	}

	in := provider.InboundMessage{From: e.Info.Chat.String()}
	m := e.Message
	switch {
	case m.GetConversation() != "":
		in.Type, in.Text = "text", m.GetConversation()
	case m.GetExtendedTextMessage().GetText() != "":
		in.Type, in.Text = "text", m.GetExtendedTextMessage().GetText()
	case m.GetImageMessage() != nil:
		in.Type, in.Text = "image", m.GetImageMessage().GetCaption()
	case m.GetVideoMessage() != nil:
		in.Type, in.Text = "video", m.GetVideoMessage().GetCaption()
	case m.GetAudioMessage() != nil:
		in.Type = "audio"
	case m.GetDocumentMessage() != nil:
		in.Type = "document"
	case m.GetStickerMessage() != nil:
		in.Type = "sticker"
	default:
		return provider.InboundMessage{}, false
	}
	return in, true
}

// QRCode starts the session when needed and waits for the first pairing
// code, bounded by the configured timeout.
func (c *Client) QRCode(ctx context.Context) provider.Result {
	if c.current() == nil {
		if res := c.Initialize(ctx); !res.Success {
			return res
		}
	}

	timer := time.NewTimer(c.cfg.QRWaitTimeout)
	defer timer.Stop()

	for {
		c.mu.Lock()
		ready := c.qrReady
		state := c.state
		lastError := c.lastError
		code, found := c.codes.Get(qrCacheKey)
		c.mu.Unlock()

		if state == provider.StateConnected {
			return provider.Fail(provider.MsgAlreadyConnected)
		}
		if found {
			return codeResult(code.(string))
		}
		if state == provider.StateError && lastError != "" {
			return provider.Fail("Erro ao obter QR Code: %s", lastError)
		}

		select {
		case <-ready:
		case <-timer.C:
			return provider.Fail(provider.MsgQRTimeout)
		case <-ctx.Done():
			return provider.Fail(provider.MsgQRTimeout)
		}
	}
}

func codeResult(code string) provider.Result {
	res := provider.Result{Success: true, Message: "QR Code gerado", QRCode: code}
	if img, err := qr.DataURL(code); err == nil {
		res.QRImage = img
	} else {
		log.Provider(opName, "qrcode").Warn(err)
	}
	return res
}

func (c *Client) Status(ctx context.Context) provider.Status {
	c.mu.Lock()
	session := c.session
	state := c.state
	lastError := c.lastError
	info := c.info
	c.mu.Unlock()

	if session == nil {
		if state == provider.StateError && lastError != "" {
			return provider.StatusError("%s", lastError)
		}
		return provider.Status{Success: true, Status: provider.StateDisconnected}
	}

	if state == provider.StateError {
		return provider.StatusError("%s", lastError)
	}

	if session.IsConnected() && session.IsLoggedIn() {
		if info.PhoneNumber == "" || info.Name == "" {
			self := session.Self()
			if info.PhoneNumber == "" {
				info.PhoneNumber = self.PhoneNumber
			}
			if info.Name == "" {
				info.Name = self.Name
			}
		}
		return provider.Status{Success: true, Connected: true, Status: provider.StateConnected, Data: info}
	}

	if state == provider.StateConnected {
		state = provider.StateConnecting
	}
	return provider.Status{Success: true, Status: state, Data: info}
}

func (c *Client) ready() (Session, bool) {
	s := c.current()
	if s == nil {
		return nil, false
	}
	return s, s.IsConnected() && s.IsLoggedIn()
}

func (c *Client) SendText(ctx context.Context, to string, text string) provider.Result {
	if strings.TrimSpace(to) == "" || strings.TrimSpace(text) == "" {
		return provider.Fail(provider.MsgMissingFields)
	}

	session, ready := c.ready()
	if session == nil {
		return provider.Fail(provider.MsgNotInitialized)
	}
	if !ready {
		return provider.Fail("Cliente não está conectado")
	}

	id, err := session.SendText(ctx, to, text)
	if err != nil {
		log.Provider(opName, "send_text").WithField("to", log.MaskPhone(to)).Error(err)
		return provider.Fail("Erro ao enviar mensagem: %v", err)
	}

	log.Provider(opName, "send_text").WithField("to", log.MaskPhone(to)).Info("message sent")
	return provider.Result{Success: true, Message: "Mensagem enviada com sucesso", MessageID: id}
}

// SendTemplate flattens the template into plain text with numbered options.
func (c *Client) SendTemplate(ctx context.Context, to string, tpl provider.Template) provider.Result {
	return c.SendText(ctx, to, FlattenTemplate(tpl))
}

func FlattenTemplate(tpl provider.Template) string {
	var b strings.Builder
	b.WriteString(tpl.Text)
	if len(tpl.Buttons) > 0 {
		b.WriteString("\n\nOpções:")
		for i, label := range tpl.Buttons {
			fmt.Fprintf(&b, "\n%d. %s", i+1, label)
		}
	}
	return b.String()
}

func (c *Client) Disconnect(ctx context.Context) provider.Result {
	session := c.current()
	if session == nil {
		return provider.Fail(provider.MsgNotInitialized)
	}

	c.teardown(session, provider.StateDisconnected, "")
	log.Provider(opName, "disconnect").Info("client stopped")
	return provider.Ok("Cliente desconectado com sucesso")
}
