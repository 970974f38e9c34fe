package config

import (
	"math"

	"github.com/vihking/whatsapp-integration/internal/provider"
	"github.com/vihking/whatsapp-integration/internal/stats"
)

// Costs are per-message prices in USD shown on the panel.
type Costs struct {
	SetupFee        float64 `json:"setupFee"`
	MonthlyFee      float64 `json:"monthlyFee"`
	MessageReceived float64 `json:"messageReceived"`
	MessageSent     float64 `json:"messageSent"`
	TemplateMessage float64 `json:"templateMessage"`
	MediaMessage    float64 `json:"mediaMessage"`
}

var businessCosts = Costs{
	SetupFee:        0,
	MonthlyFee:      0,
	MessageReceived: 0.0085,
	MessageSent:     0.0085,
	TemplateMessage: 0.0127,
	MediaMessage:    0.0170,
}

// CostsFor returns the price table of a backend; only the Cloud API bills.
func CostsFor(t provider.Type) Costs {
	if t == provider.TypeBusiness {
		return businessCosts
	}
	return Costs{}
}

// Estimate prices the counters. Templates are counted in Sent too, so
// they are billed at the template rate only.
func (c Costs) Estimate(s stats.MessageStats) float64 {
	plain := s.Sent - s.Templates
	if plain < 0 {
		plain = 0
	}
	total := c.SetupFee + c.MonthlyFee +
		float64(s.Received)*c.MessageReceived +
		float64(plain)*c.MessageSent +
		float64(s.Templates)*c.TemplateMessage +
		float64(s.Media)*c.MediaMessage
	return math.Round(total*10000) / 10000
}
