package webclient

import (
	"context"
	"time"

	"github.com/vihking/whatsapp-integration/internal/provider"
)

// QR channel event names, as emitted by whatsmeow.
const (
	QREventCode    = "code"
	QREventSuccess = "success"
	QREventTimeout = "timeout"
	QREventError   = "error"
)

type QREvent struct {
	Event   string
	Code    string
	Timeout time.Duration
	Err     error
}

// Session is the slice of a multi-device client this package drives.
// Events are delivered as whatsmeow event values.
type Session interface {
	Connect() error
	Disconnect()
	IsConnected() bool
	IsLoggedIn() bool
	Paired() bool
	QRChannel(ctx context.Context) (<-chan QREvent, error)
	SendText(ctx context.Context, to string, text string) (string, error)
	Self() provider.Info
	AddEventHandler(handler func(evt interface{}))
}

type SessionFactory func(ctx context.Context) (Session, error)
