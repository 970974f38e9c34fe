package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vihking/whatsapp-integration/internal/config"
	"github.com/vihking/whatsapp-integration/internal/provider/cloudapi"
	"github.com/vihking/whatsapp-integration/internal/provider/evolution"
	"github.com/vihking/whatsapp-integration/internal/provider/webclient"
)

type flags struct {
	to       string
	wait     bool
	welcome  bool
	attempts int
	interval time.Duration
}

func main() {
	cfg := config.Load()
	var f flags

	root := &cobra.Command{
		Use:          "probe",
		Short:        "Exercise a WhatsApp backend end to end",
		Long:         "Initializes a backend, checks its status, shows the pairing QR when needed and sends a test message.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&f.to, "to", cfg.TestPhoneNumber, "destination number (default TEST_PHONE_NUMBER)")
	root.PersistentFlags().BoolVar(&f.wait, "wait", false, "poll until the session is paired")
	root.PersistentFlags().BoolVar(&f.welcome, "welcome", false, "also send the welcome template")
	root.PersistentFlags().IntVar(&f.attempts, "attempts", defaultAttempts, "status polls while waiting")
	root.PersistentFlags().DurationVar(&f.interval, "interval", defaultInterval, "delay between status polls")

	root.AddCommand(&cobra.Command{
		Use:   "evolution",
		Short: "Probe the Evolution bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newProbe(cmd.OutOrStdout(), evolution.New(cfg.EvolutionConfig()), f).run(cmd.Context())
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "business",
		Short: "Probe the Business Cloud API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newProbe(cmd.OutOrStdout(), cloudapi.New(cfg.CloudConfig()), f).run(cmd.Context())
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "web",
		Short: "Probe the multi-device web session",
		RunE: func(cmd *cobra.Command, args []string) error {
			webCfg := cfg.WebConfig()
			webCfg.QROutput = cmd.OutOrStdout()
			client := webclient.New(webCfg, nil)
			defer client.Disconnect(cmd.Context())
			return newProbe(cmd.OutOrStdout(), client, f).run(cmd.Context())
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
