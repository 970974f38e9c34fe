package webclient

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"

	"github.com/vihking/whatsapp-integration/internal/provider"
	"github.com/vihking/whatsapp-integration/pkg/log"
	"github.com/vihking/whatsapp-integration/pkg/validation"
)

type waSession struct {
	client *whatsmeow.Client
}

func (s *waSession) Connect() error    { return s.client.Connect() }
func (s *waSession) Disconnect()       { s.client.Disconnect() }
func (s *waSession) IsConnected() bool { return s.client.IsConnected() }
func (s *waSession) IsLoggedIn() bool  { return s.client.IsLoggedIn() }
func (s *waSession) Paired() bool      { return s.client.Store.ID != nil }

func (s *waSession) AddEventHandler(handler func(evt interface{})) {
	s.client.AddEventHandler(handler)
}

func (s *waSession) QRChannel(ctx context.Context) (<-chan QREvent, error) {
	items, err := s.client.GetQRChannel(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan QREvent, 1)
	go func() {
		defer close(out)
		for item := range items {
			out <- QREvent{Event: item.Event, Code: item.Code, Timeout: item.Timeout, Err: item.Error}
		}
	}()
	return out, nil
}

func (s *waSession) Self() provider.Info {
	info := provider.Info{Name: s.client.Store.PushName}
	if s.client.Store.ID != nil {
		info.PhoneNumber = s.client.Store.ID.User
	}
	return info
}

func (s *waSession) SendText(ctx context.Context, to string, text string) (string, error) {
	jid, err := parseRecipient(to)
	if err != nil {
		return "", err
	}
	resp, err := s.client.SendMessage(ctx, jid, &waE2E.Message{Conversation: proto.String(text)})
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

// parseRecipient accepts a bare phone number or a full JID.
func parseRecipient(to string) (types.JID, error) {
	to = strings.TrimSpace(to)
	if strings.Contains(to, "@") {
		jid, err := types.ParseJID(to)
		if err != nil {
			return types.EmptyJID, fmt.Errorf("invalid recipient %q: %w", to, err)
		}
		return jid, nil
	}
	number := validation.NormalizePhone(to)
	if err := validation.ValidatePhone(number); err != nil {
		return types.EmptyJID, err
	}
	return types.NewJID(number, types.DefaultUserServer), nil
}

func normalizeDatastoreDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgresql", "postgres", "pgx":
		return "pgx"
	case "", "sqlite", "sqlite3":
		return "sqlite3"
	default:
		return strings.ToLower(driver)
	}
}

// datastoreURI defaults to a sqlite file inside the session directory,
// creating the directory when needed.
func datastoreURI(cfg Config, driver string) (string, error) {
	if cfg.DatastoreURI != "" {
		return cfg.DatastoreURI, nil
	}
	if driver != "sqlite3" {
		return "", errors.New("WHATSAPP_DATASTORE_URI is required for " + driver)
	}
	dir := cfg.SessionDir
	if dir == "" {
		dir = DefaultSessionDir
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create session dir: %w", err)
	}
	return "file:" + filepath.Join(dir, "session.db") + "?_foreign_keys=on", nil
}

// NewWhatsmeowFactory opens the device store once and builds a fresh
// whatsmeow client on every call.
func NewWhatsmeowFactory(cfg Config) SessionFactory {
	var (
		mu        sync.Mutex
		container *sqlstore.Container
	)

	return func(ctx context.Context) (Session, error) {
		mu.Lock()
		defer mu.Unlock()

		if container == nil {
			driver := normalizeDatastoreDriver(cfg.DatastoreType)
			uri, err := datastoreURI(cfg, driver)
			if err != nil {
				return nil, err
			}

			log.Provider("WHATSAPP_WEB", "datastore").Info("opening session store with driver=" + driver)
			c, err := sqlstore.New(ctx, driver, uri, log.WhatsMeow("store"))
			if err != nil {
				return nil, fmt.Errorf("open session store: %w", err)
			}
			container = c
		}

		device, err := container.GetFirstDevice(ctx)
		if err != nil {
			return nil, fmt.Errorf("load device: %w", err)
		}

		client := whatsmeow.NewClient(device, log.WhatsMeow("client"))
		client.EnableAutoReconnect = true
		return &waSession{client: client}, nil
	}
}
