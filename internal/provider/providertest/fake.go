// Package providertest has an in-memory backend for handler tests.
package providertest

import (
	"context"
	"sync"

	"github.com/vihking/whatsapp-integration/internal/provider"
)

type Sent struct {
	To       string
	Text     string
	Template *provider.Template
}

// Fake records every call and answers with the configured results.
type Fake struct {
	mu sync.Mutex

	Kind          provider.Type
	NotConfigured bool

	InitResult       provider.Result
	QRResult         provider.Result
	StatusResult     provider.Status
	SendResult       provider.Result
	DisconnectResult provider.Result

	Calls []string
	Sent  []Sent
}

func New(kind provider.Type) *Fake {
	return &Fake{
		Kind:             kind,
		InitResult:       provider.Ok("Cliente inicializado com sucesso"),
		QRResult:         provider.Result{Success: true, QRCode: "2@fake-code"},
		StatusResult:     provider.Status{Success: true, Status: provider.StateDisconnected},
		SendResult:       provider.Result{Success: true, Message: "Mensagem enviada com sucesso", MessageID: "fake-id"},
		DisconnectResult: provider.Ok("Cliente desconectado com sucesso"),
	}
}

func (f *Fake) record(call string) {
	f.mu.Lock()
	f.Calls = append(f.Calls, call)
	f.mu.Unlock()
}

// CallCount returns how many times op was invoked.
func (f *Fake) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *Fake) Messages() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Sent, len(f.Sent))
	copy(out, f.Sent)
	return out
}

func (f *Fake) Type() provider.Type { return f.Kind }

func (f *Fake) Configured() bool { return !f.NotConfigured }

func (f *Fake) Initialize(ctx context.Context) provider.Result {
	f.record("Initialize")
	return f.InitResult
}

func (f *Fake) QRCode(ctx context.Context) provider.Result {
	f.record("QRCode")
	return f.QRResult
}

func (f *Fake) Status(ctx context.Context) provider.Status {
	f.record("Status")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.StatusResult
}

// SetStatus swaps the status answer, safe for concurrent use with Status.
func (f *Fake) SetStatus(s provider.Status) {
	f.mu.Lock()
	f.StatusResult = s
	f.mu.Unlock()
}

func (f *Fake) SendText(ctx context.Context, to string, text string) provider.Result {
	f.record("SendText")
	f.mu.Lock()
	f.Sent = append(f.Sent, Sent{To: to, Text: text})
	f.mu.Unlock()
	return f.SendResult
}

func (f *Fake) SendTemplate(ctx context.Context, to string, tpl provider.Template) provider.Result {
	f.record("SendTemplate")
	f.mu.Lock()
	t := tpl
	f.Sent = append(f.Sent, Sent{To: to, Template: &t})
	f.mu.Unlock()
	return f.SendResult
}

func (f *Fake) Disconnect(ctx context.Context) provider.Result {
	f.record("Disconnect")
	return f.DisconnectResult
}
