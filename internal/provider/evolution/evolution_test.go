package evolution

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/vihking/whatsapp-integration/internal/provider"
)

type fakeBridge struct {
	mu       sync.Mutex
	state    string
	requests map[string]int
	lastBody map[string]json.RawMessage
}

func newFakeBridge(t *testing.T) (*fakeBridge, *httptest.Server) {
	t.Helper()
	b := &fakeBridge{state: "close", requests: map[string]int{}, lastBody: map[string]json.RawMessage{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/instance/init" && r.URL.Query().Get("instanceName") != "test_instance" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		key := r.Method + " " + r.URL.Path
		b.requests[key]++
		var raw json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&raw)
		b.lastBody[key] = raw

		switch key {
		case "POST /instance/init":
			_, _ = w.Write([]byte(`{"instance":{"instanceName":"test_instance","status":"created"}}`))
		case "GET /instance/qrcode":
			_, _ = w.Write([]byte(`{"code":"2@bridge-code","base64":"data:image/png;base64,AAAA"}`))
		case "GET /instance/connectionState":
			_ = json.NewEncoder(w).Encode(map[string]string{"state": b.state})
		case "POST /message/text", "POST /message/button":
			_, _ = w.Write([]byte(`{"key":{"id":"BAE5F00D","remoteJid":"5511999999999@s.whatsapp.net","fromMe":true},"status":"PENDING"}`))
		case "DELETE /instance/logout":
			_, _ = w.Write([]byte(`{"status":"SUCCESS"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *fakeBridge) setState(s string) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

func (b *fakeBridge) count(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[key]
}

func (b *fakeBridge) body(key string) json.RawMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastBody[key]
}

func newClient(srv *httptest.Server) *Client {
	return New(Config{
		BaseURL:    srv.URL + "/",
		APIKey:     "test-key",
		Instance:   "test_instance",
		WebhookURL: "http://localhost:5000/api/webhook/whatsapp",
	})
}

func TestLifecycle(t *testing.T) {
	bridge, srv := newFakeBridge(t)
	c := newClient(srv)
	ctx := context.Background()

	if st := c.Status(ctx); !st.Success || st.Connected || st.Status != provider.StateDisconnected {
		t.Fatalf("status before init = %+v", st)
	}
	if n := bridge.count("GET /instance/connectionState"); n != 1 {
		t.Fatalf("connectionState called %d times, want 1", n)
	}

	if res := c.Initialize(ctx); !res.Success {
		t.Fatalf("Initialize: %+v", res)
	}
	if res := c.Initialize(ctx); !res.Success {
		t.Fatalf("second Initialize: %+v", res)
	}
	if n := bridge.count("POST /instance/init"); n != 1 {
		t.Fatalf("init called %d times, want 1", n)
	}

	var init initRequest
	if err := json.Unmarshal(bridge.body("POST /instance/init"), &init); err != nil {
		t.Fatalf("decode init body: %v", err)
	}
	if init.InstanceName != "test_instance" || !init.WebhookByEvents || len(init.Events) != 4 {
		t.Fatalf("init body = %+v", init)
	}
	if init.Webhook != "http://localhost:5000/api/webhook/whatsapp" {
		t.Fatalf("webhook = %q", init.Webhook)
	}

	res := c.QRCode(ctx)
	if !res.Success || res.QRCode != "2@bridge-code" || !strings.HasPrefix(res.QRImage, "data:image/png;base64,") {
		t.Fatalf("QRCode = %+v", res)
	}

	bridge.setState("connecting")
	if st := c.Status(ctx); st.Connected || st.Status != provider.StateConnecting {
		t.Fatalf("status connecting = %+v", st)
	}

	bridge.setState("open")
	if st := c.Status(ctx); !st.Connected || st.Status != provider.StateConnected {
		t.Fatalf("status open = %+v", st)
	}
	if res := c.QRCode(ctx); res.Success || res.Message != provider.MsgAlreadyConnected {
		t.Fatalf("QRCode when connected = %+v", res)
	}

	send := c.SendText(ctx, "+55 11 99999-9999", "hello")
	if !send.Success || send.MessageID != "BAE5F00D" {
		t.Fatalf("SendText = %+v", send)
	}
	var text textRequest
	_ = json.Unmarshal(bridge.body("POST /message/text"), &text)
	if text.Number != "5511999999999" || text.Options.Delay != 1200 || text.TextMessage.Text != "hello" {
		t.Fatalf("text body = %+v", text)
	}

	tpl := provider.Template{Text: "Bem-vindo", Footer: "rodapé", Buttons: []string{"A", "B"}}
	if res := c.SendTemplate(ctx, "5511999999999", tpl); !res.Success {
		t.Fatalf("SendTemplate = %+v", res)
	}
	var btn buttonRequest
	_ = json.Unmarshal(bridge.body("POST /message/button"), &btn)
	if btn.ButtonMessage.Title != "Bem-vindo" || btn.ButtonMessage.FooterText != "rodapé" || len(btn.ButtonMessage.Buttons) != 2 {
		t.Fatalf("button body = %+v", btn)
	}
	if btn.ButtonMessage.Buttons[1].ButtonText.DisplayText != "B" || btn.ButtonMessage.Buttons[1].Type != 1 {
		t.Fatalf("button = %+v", btn.ButtonMessage.Buttons[1])
	}

	if res := c.Disconnect(ctx); !res.Success {
		t.Fatalf("Disconnect = %+v", res)
	}
	if res := c.SendText(ctx, "5511999999999", "hello"); res.Success || res.Message != provider.MsgNotInitialized {
		t.Fatalf("send after disconnect = %+v", res)
	}
	if st := c.Status(ctx); st.Connected || st.Status != provider.StateDisconnected {
		t.Fatalf("status after disconnect = %+v", st)
	}
	if res := c.Disconnect(ctx); res.Success {
		t.Fatalf("second Disconnect = %+v", res)
	}

	if res := c.Initialize(ctx); !res.Success {
		t.Fatalf("Initialize after disconnect = %+v", res)
	}
	if res := c.SendText(ctx, "5511999999999", "hello"); !res.Success {
		t.Fatalf("send after re-init = %+v", res)
	}
}

func TestInitializesOnFirstUse(t *testing.T) {
	bridge, srv := newFakeBridge(t)
	c := newClient(srv)
	ctx := context.Background()

	res := c.SendText(ctx, "5511999999999", "hello")
	if !res.Success || res.MessageID != "BAE5F00D" {
		t.Fatalf("SendText without Initialize = %+v", res)
	}
	if n := bridge.count("POST /instance/init"); n != 1 {
		t.Fatalf("init called %d times, want 1", n)
	}

	bridge.setState("open")
	if st := c.Status(ctx); !st.Connected || st.Status != provider.StateConnected {
		t.Fatalf("status = %+v", st)
	}
	if n := bridge.count("POST /instance/init"); n != 1 {
		t.Fatalf("init called %d times after status, want 1", n)
	}
}

func TestStatusQueriesBridgeWithoutInitialize(t *testing.T) {
	bridge, srv := newFakeBridge(t)
	bridge.setState("open")
	c := newClient(srv)

	st := c.Status(context.Background())
	if !st.Success || !st.Connected || st.Status != provider.StateConnected {
		t.Fatalf("status = %+v", st)
	}
}

func TestLazyInitializeFailure(t *testing.T) {
	_, srv := newFakeBridge(t)
	c := New(Config{BaseURL: srv.URL, APIKey: "wrong", Instance: "test_instance"})

	if res := c.SendText(context.Background(), "5511999999999", "hello"); res.Success || !strings.Contains(res.Message, "401") {
		t.Fatalf("SendText = %+v", res)
	}
	if st := c.Status(context.Background()); st.Success || st.Status != provider.StateError {
		t.Fatalf("status = %+v", st)
	}
}

func TestSendTextRequiresFields(t *testing.T) {
	bridge, srv := newFakeBridge(t)
	c := newClient(srv)
	c.Initialize(context.Background())

	for _, tc := range []struct{ to, text string }{{"", "hi"}, {"5511999999999", "  "}} {
		res := c.SendText(context.Background(), tc.to, tc.text)
		if res.Success || res.Message != provider.MsgMissingFields {
			t.Fatalf("SendText(%q, %q) = %+v", tc.to, tc.text, res)
		}
	}
	if n := bridge.count("POST /message/text"); n != 0 {
		t.Fatalf("bridge called %d times", n)
	}
}

func TestStatusTransportError(t *testing.T) {
	_, srv := newFakeBridge(t)
	c := newClient(srv)
	c.Initialize(context.Background())
	srv.Close()

	st := c.Status(context.Background())
	if st.Success || st.Connected || st.Status != provider.StateError {
		t.Fatalf("status = %+v", st)
	}
}

func TestWrongAPIKey(t *testing.T) {
	_, srv := newFakeBridge(t)
	c := New(Config{BaseURL: srv.URL, APIKey: "wrong", Instance: "test_instance"})
	res := c.Initialize(context.Background())
	if res.Success || !strings.Contains(res.Message, "401") {
		t.Fatalf("Initialize = %+v", res)
	}
}

func TestInvalidBridgeURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8080", "not a url"} {
		c := New(Config{BaseURL: raw, APIKey: "k", Instance: "i"})
		res := c.Initialize(context.Background())
		if res.Success || !strings.Contains(res.Message, "EVOLUTION_API_URL") {
			t.Fatalf("Initialize(%q) = %+v", raw, res)
		}
		if res := c.SendText(context.Background(), "5511999999999", "hello"); res.Success {
			t.Fatalf("SendText(%q) = %+v", raw, res)
		}
	}
}
