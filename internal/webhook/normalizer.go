package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/vihking/whatsapp-integration/internal/provider"
	"github.com/vihking/whatsapp-integration/internal/stats"
	"github.com/vihking/whatsapp-integration/pkg/log"
	"github.com/vihking/whatsapp-integration/pkg/validation"
)

const (
	SourceBusiness  = "business"
	SourceEvolution = "evolution"
	SourceWeb       = "web"

	maxEchoLength = 1000
)

var ErrInvalidEvent = errors.New("invalid webhook event")

type Options struct {
	VerifyToken      string
	AppSecret        string
	VerifySignature  bool
	RequireSignature bool
	AutoReply        bool
}

// Normalizer turns provider callbacks into counter updates and canned
// acknowledgements sent back through the active provider.
type Normalizer struct {
	opts     Options
	registry *provider.Registry
	stats    *stats.Store
	dayLog   *DayLog
}

// New builds a Normalizer. dayLog may be nil to disable payload files.
func New(opts Options, registry *provider.Registry, store *stats.Store, dayLog *DayLog) *Normalizer {
	return &Normalizer{opts: opts, registry: registry, stats: store, dayLog: dayLog}
}

type Outcome struct {
	Source   string `json:"source"`
	Event    string `json:"event,omitempty"`
	Received int    `json:"received"`
	Media    int    `json:"media"`
	Replied  int    `json:"replied"`
}

// AckText is the acknowledgement sent for every inbound text.
func AckText(text string) string {
	return fmt.Sprintf("Recebemos sua mensagem: \"%s\". Nosso agente de IA está processando.", validation.Truncate(text, maxEchoLength))
}

// Challenge answers the subscription handshake.
func (n *Normalizer) Challenge(mode string, token string, challenge string) (string, bool) {
	if mode != "subscribe" || n.opts.VerifyToken == "" {
		return "", false
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(n.opts.VerifyToken)) != 1 {
		return "", false
	}
	return challenge, true
}

type envelope struct {
	Object string `json:"object"`
	Event  string `json:"event"`
}

// peek reads the discriminating fields. Cloud callbacks carry "object",
// Evolution callbacks carry "event".
func peek(body []byte) (envelope, error) {
	var env envelope
	err := json.Unmarshal(body, &env)
	return env, err
}

// CheckSignature applies the configured policy to Cloud callbacks. A
// missing header passes unless signatures are required. Evolution
// callbacks are never signed and skip the check.
func (n *Normalizer) CheckSignature(header string, body []byte) error {
	if !n.opts.VerifySignature {
		return nil
	}
	if env, err := peek(body); err == nil && env.Object == "" && env.Event != "" {
		return nil
	}
	if strings.TrimSpace(header) == "" {
		if n.opts.RequireSignature {
			return ErrMissingSignature
		}
		return nil
	}
	return VerifySignature(n.opts.AppSecret, header, body)
}

// Process detects the payload shape and handles it. ErrInvalidEvent means
// the body is not a callback at all; other errors mean handling failed part way.
func (n *Normalizer) Process(ctx context.Context, body []byte) (Outcome, error) {
	env, err := peek(body)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	switch {
	case env.Object != "":
		if env.Object != businessObject {
			return Outcome{}, fmt.Errorf("%w: object %q", ErrInvalidEvent, env.Object)
		}
		var p CloudPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return Outcome{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		n.record(SourceBusiness, body)
		return n.processCloud(ctx, p), nil
	case env.Event != "":
		var p EvolutionPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return Outcome{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		n.record(SourceEvolution, body)
		return n.processEvolution(ctx, p)
	default:
		return Outcome{}, ErrInvalidEvent
	}
}

func (n *Normalizer) record(source string, body []byte) {
	if n.dayLog == nil {
		return
	}
	if err := n.dayLog.Append(source, body); err != nil {
		log.Webhook(source).WithError(err).Warn("failed to write webhook log")
	}
}

type pendingReply struct {
	to   string
	text string
}

func (n *Normalizer) processCloud(ctx context.Context, p CloudPayload) Outcome {
	out := Outcome{Source: SourceBusiness}
	var replies []pendingReply

	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			for _, m := range change.Value.Messages {
				out.Received++
				if isMedia(m.Type) {
					out.Media++
				}
				if m.Type == "text" && m.Text != nil && m.Text.Body != "" {
					replies = append(replies, pendingReply{to: m.From, text: m.Text.Body})
				}
				log.Webhook(SourceBusiness).WithField("from", log.MaskPhone(m.From)).Infof("%s message received", m.Type)
			}
		}
	}

	n.count(out)
	out.Replied = n.replyAll(ctx, SourceBusiness, replies)
	return out
}

func (n *Normalizer) processEvolution(ctx context.Context, p EvolutionPayload) (Outcome, error) {
	event := NormalizeEvent(p.Event)
	out := Outcome{Source: SourceEvolution, Event: event}
	entry := log.Webhook(SourceEvolution).WithField("event", event)

	switch event {
	case "MESSAGES_UPSERT":
		msgs, err := p.Messages()
		if err != nil {
			entry.WithError(err).Error("failed to decode messages")
			return out, err
		}

		var replies []pendingReply
		for _, m := range msgs {
			if m.Key.FromMe {
				continue
			}
			out.Received++
			kind := m.Kind()
			if isMedia(kind) {
				out.Media++
			}
			if kind == "text" && !strings.HasSuffix(m.Key.RemoteJID, "@g.us") {
				replies = append(replies, pendingReply{to: validation.NormalizePhone(m.Key.RemoteJID), text: m.Text()})
			}
		}

		n.count(out)
		out.Replied = n.replyAll(ctx, SourceEvolution, replies)
	case "QRCODE_UPDATED":
		entry.Info("QR Code atualizado")
		n.stats.Log("qrcodeUpdated", stats.StatusSuccess, "QR Code atualizado")
	case "CONNECTION_UPDATE":
		var data struct {
			State string `json:"state"`
		}
		if present(p.Data) {
			_ = json.Unmarshal(p.Data, &data)
		}
		entry.WithField("state", data.State).Info("Status de conexão atualizado")
		n.stats.Log("connectionUpdate", stats.StatusSuccess, "Status de conexão atualizado: "+data.State)
	default:
		entry.Debug("event ignored")
	}
	return out, nil
}

// HandleInbound accounts for a message delivered by a live session.
func (n *Normalizer) HandleInbound(ctx context.Context, msg provider.InboundMessage) {
	out := Outcome{Source: SourceWeb, Received: 1}
	if isMedia(msg.Type) {
		out.Media = 1
	}

	if n.dayLog != nil {
		if raw, err := json.Marshal(msg); err == nil {
			n.record(SourceWeb, raw)
		}
	}

	n.count(out)
	if msg.Type == "text" && msg.Text != "" {
		n.replyAll(ctx, SourceWeb, []pendingReply{{to: msg.From, text: msg.Text}})
	}
}

func (n *Normalizer) count(out Outcome) {
	if out.Received == 0 {
		return
	}
	n.stats.Add(stats.Delta{Received: int64(out.Received), Media: int64(out.Media)})
	n.stats.Log("webhook", stats.StatusSuccess, fmt.Sprintf("Webhook %s: %d mensagem(ns) recebida(s)", out.Source, out.Received))
}

func (n *Normalizer) replyAll(ctx context.Context, source string, replies []pendingReply) int {
	if !n.opts.AutoReply || len(replies) == 0 {
		return 0
	}

	p := n.registry.Active()
	sent := 0
	for _, r := range replies {
		if r.to == "" {
			continue
		}
		res := p.SendText(ctx, r.to, AckText(r.text))
		if !res.Success {
			log.Webhook(source).WithField("to", log.MaskPhone(r.to)).Warn("auto reply failed: " + res.Message)
			n.stats.Log("autoReply", stats.StatusError, fmt.Sprintf("Resposta automática para %s falhou: %s", log.MaskPhone(r.to), res.Message))
			continue
		}
		n.stats.IncSent()
		sent++
	}
	return sent
}
