package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/vihking/whatsapp-integration/internal/integration"
	"github.com/vihking/whatsapp-integration/internal/provider"
	"github.com/vihking/whatsapp-integration/pkg/qr"
)

const (
	defaultAttempts = 24
	defaultInterval = 5 * time.Second

	testMessage = "Olá! Esta é uma mensagem de teste do nosso aplicativo de treinamento de IA."
)

var (
	errInitialize = errors.New("falha ao inicializar cliente")
	errNotPaired  = errors.New("timeout ao aguardar conexão")
	errSend       = errors.New("falha ao enviar mensagem")
)

type probe struct {
	out io.Writer
	p   provider.Provider
	f   flags
}

func newProbe(out io.Writer, p provider.Provider, f flags) *probe {
	return &probe{out: out, p: p, f: f}
}

func (pr *probe) printf(format string, args ...interface{}) {
	fmt.Fprintf(pr.out, format+"\n", args...)
}

func (pr *probe) dump(label string, v interface{}) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		pr.printf("%s: %+v", label, v)
		return
	}
	pr.printf("%s: %s", label, raw)
}

func (pr *probe) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	pr.printf("Iniciando teste de integração com %s...", pr.p.Type())

	initRes := pr.p.Initialize(ctx)
	pr.dump("Resultado da inicialização", initRes)
	if !initRes.Success {
		return fmt.Errorf("%w: %s", errInitialize, initRes.Message)
	}

	status := pr.p.Status(ctx)
	pr.dump("Status da conexão", status)

	if !status.Connected {
		paired, err := pr.pair(ctx)
		if err != nil {
			return err
		}
		if !paired {
			pr.printf("Escaneie o QR Code e rode novamente, ou use --wait")
			return nil
		}
	}

	pr.printf("Enviando mensagem de teste para %s...", pr.f.to)
	sent := pr.p.SendText(ctx, pr.f.to, testMessage)
	pr.dump("Resultado do envio", sent)
	if !sent.Success {
		return fmt.Errorf("%w: %s", errSend, sent.Message)
	}

	if pr.f.welcome {
		welcome := pr.p.SendTemplate(ctx, pr.f.to, integration.WelcomeTemplate)
		pr.dump("Resultado do template", welcome)
		if !welcome.Success {
			return fmt.Errorf("%w: %s", errSend, welcome.Message)
		}
	}

	pr.printf("Teste de integração concluído!")
	return nil
}

// pair shows the QR code and, with --wait, polls until the session connects.
func (pr *probe) pair(ctx context.Context) (bool, error) {
	pr.printf("Cliente não está conectado. Gerando QR Code...")
	res := pr.p.QRCode(ctx)
	if !res.Success {
		return false, fmt.Errorf("falha ao gerar QR Code: %s", res.Message)
	}

	// the web client renders every code on its own QROutput
	if pr.p.Type() != provider.TypeWeb && res.QRCode != "" && !qr.IsDataURL(res.QRCode) {
		qr.Terminal(res.QRCode, pr.out)
	}
	pr.printf("QR Code gerado com sucesso. Escaneie com seu WhatsApp")

	if !pr.f.wait {
		return false, nil
	}

	attempts := pr.f.attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	interval := pr.f.interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 1; i <= attempts; i++ {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
		}
		if pr.p.Status(ctx).Connected {
			pr.printf("Cliente conectado com sucesso!")
			return true, nil
		}
		pr.printf("Aguardando conexão... (tentativa %d/%d)", i, attempts)
	}
	return false, errNotPaired
}
