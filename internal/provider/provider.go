package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type Type string

const (
	TypeWeb       Type = "WHATSAPP_WEB"
	TypeEvolution Type = "EVOLUTION_API"
	TypeBusiness  Type = "BUSINESS_API"
)

// Types lists every backend in the order the panel shows them.
var Types = []Type{TypeWeb, TypeEvolution, TypeBusiness}

func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Types {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateError        ConnectionState = "error"
)

const (
	MsgNotInitialized   = "Cliente não inicializado"
	MsgAlreadyConnected = "Cliente já está conectado"
	MsgQRTimeout        = "Timeout ao aguardar QR Code"
	MsgMissingFields    = "Número de telefone e texto da mensagem são obrigatórios"
)

// Info identifies the account behind a connected session.
type Info struct {
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Name        string `json:"name,omitempty"`
}

// Result is what every operation hands back to the panel.
type Result struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	MessageID string      `json:"messageId,omitempty"`
	QRCode    string      `json:"qrCode,omitempty"`
	QRImage   string      `json:"qrImage,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

func Ok(message string) Result {
	return Result{Success: true, Message: message}
}

func Fail(format string, args ...interface{}) Result {
	return Result{Success: false, Message: fmt.Sprintf(format, args...)}
}

type Status struct {
	Success   bool            `json:"success"`
	Connected bool            `json:"connected"`
	Status    ConnectionState `json:"status"`
	Message   string          `json:"message,omitempty"`
	Data      Info            `json:"data"`
}

// StatusError is the degraded status every variant returns on failure.
func StatusError(format string, args ...interface{}) Status {
	return Status{
		Success:   false,
		Connected: false,
		Status:    StateError,
		Message:   fmt.Sprintf(format, args...),
	}
}

// Template is a structured outbound message. Each backend uses the part
// its wire format supports: Name/Language/Components for the Cloud API,
// Text/Footer/Buttons for the bridge and a flattened Text for the web client.
type Template struct {
	Name       string            `json:"name,omitempty"`
	Language   string            `json:"language,omitempty"`
	Components []json.RawMessage `json:"components,omitempty"`
	Text       string            `json:"text,omitempty"`
	Footer     string            `json:"footer,omitempty"`
	Buttons    []string          `json:"buttons,omitempty"`
}

// Provider is one WhatsApp backend. No operation returns an error: failures
// are reported in the result so handlers can hand them to the panel as is.
type Provider interface {
	Type() Type
	Initialize(ctx context.Context) Result
	QRCode(ctx context.Context) Result
	Status(ctx context.Context) Status
	SendText(ctx context.Context, to string, text string) Result
	SendTemplate(ctx context.Context, to string, tpl Template) Result
	Disconnect(ctx context.Context) Result
}

// Configurer is implemented by backends that need credentials to work.
type Configurer interface {
	Configured() bool
}

// InboundMessage is a message received through a live session rather than
// a webhook callback.
type InboundMessage struct {
	From string
	Text string
	Type string
}

type InboundHandler func(ctx context.Context, msg InboundMessage)
