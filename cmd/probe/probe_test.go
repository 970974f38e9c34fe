package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vihking/whatsapp-integration/internal/provider"
	"github.com/vihking/whatsapp-integration/internal/provider/providertest"
)

func testFlags() flags {
	return flags{to: "5511999999999", attempts: 3, interval: time.Millisecond}
}

func TestProbeConnectedSends(t *testing.T) {
	fake := providertest.New(provider.TypeEvolution)
	fake.SetStatus(provider.Status{Success: true, Connected: true, Status: provider.StateConnected})

	var out bytes.Buffer
	f := testFlags()
	f.welcome = true
	if err := newProbe(&out, fake, f).run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	sent := fake.Messages()
	if len(sent) != 2 || sent[0].Text != testMessage || sent[1].Template == nil {
		t.Fatalf("unexpected sends %+v", sent)
	}
	if fake.CallCount("QRCode") != 0 {
		t.Fatal("QR requested for a connected session")
	}
	if !strings.Contains(out.String(), "Teste de integração concluído!") {
		t.Fatalf("unexpected output %s", out.String())
	}
}

func TestProbeInitializeFailure(t *testing.T) {
	fake := providertest.New(provider.TypeBusiness)
	fake.InitResult = provider.Fail("Credenciais inválidas")

	err := newProbe(&bytes.Buffer{}, fake, testFlags()).run(context.Background())
	if !errors.Is(err, errInitialize) {
		t.Fatalf("err = %v, want errInitialize", err)
	}
	if fake.CallCount("SendText") != 0 {
		t.Fatal("sent after failed initialize")
	}
}

func TestProbeShowsQRWithoutWait(t *testing.T) {
	fake := providertest.New(provider.TypeEvolution)

	var out bytes.Buffer
	if err := newProbe(&out, fake, testFlags()).run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if fake.CallCount("QRCode") != 1 || fake.CallCount("SendText") != 0 {
		t.Fatalf("unexpected calls %v", fake.Calls)
	}
	if !strings.Contains(out.String(), "QR Code gerado com sucesso") {
		t.Fatalf("unexpected output %s", out.String())
	}
}

func TestProbeWaitTimesOut(t *testing.T) {
	fake := providertest.New(provider.TypeWeb)
	f := testFlags()
	f.wait = true

	err := newProbe(&bytes.Buffer{}, fake, f).run(context.Background())
	if !errors.Is(err, errNotPaired) {
		t.Fatalf("err = %v, want errNotPaired", err)
	}
	// initial status plus one per attempt
	if n := fake.CallCount("Status"); n != 1+f.attempts {
		t.Fatalf("status polled %d times", n)
	}
}

func TestProbeSendFailure(t *testing.T) {
	fake := providertest.New(provider.TypeEvolution)
	fake.SetStatus(provider.Status{Success: true, Connected: true, Status: provider.StateConnected})
	fake.SendResult = provider.Fail("Número inválido")

	err := newProbe(&bytes.Buffer{}, fake, testFlags()).run(context.Background())
	if !errors.Is(err, errSend) {
		t.Fatalf("err = %v, want errSend", err)
	}
}
