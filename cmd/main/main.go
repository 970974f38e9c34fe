package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	cron "github.com/robfig/cron/v3"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"

	"github.com/vihking/whatsapp-integration/pkg/log"
	"github.com/vihking/whatsapp-integration/pkg/router"

	"github.com/vihking/whatsapp-integration/internal"
	"github.com/vihking/whatsapp-integration/internal/config"
	"github.com/vihking/whatsapp-integration/internal/provider"
	"github.com/vihking/whatsapp-integration/internal/provider/cloudapi"
	"github.com/vihking/whatsapp-integration/internal/provider/evolution"
	"github.com/vihking/whatsapp-integration/internal/provider/webclient"
	"github.com/vihking/whatsapp-integration/internal/stats"
	"github.com/vihking/whatsapp-integration/internal/webhook"
)

func main() {
	var err error

	cfg := config.Load()

	// Initialize Cron
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DiscardLogger),
	), cron.WithSeconds())

	// Initialize Providers
	webCfg := cfg.WebConfig()
	if cfg.Web.PrintQR {
		webCfg.QROutput = os.Stdout
	}
	web := webclient.New(webCfg, nil)

	registry, err := provider.NewRegistry(cfg.IntegrationType,
		web,
		evolution.New(cfg.EvolutionConfig()),
		cloudapi.New(cfg.CloudConfig()),
	)
	if err != nil {
		log.Print(nil).Fatal(err.Error())
	}

	store := stats.NewStore()

	// Webhook day files
	var dayLog *webhook.DayLog
	if cfg.Webhook.LogEnabled {
		dayLog, err = webhook.NewDayLog(cfg.Webhook.LogDir)
		if err != nil {
			log.Print(nil).WithError(err).Warn("Webhook payload logging disabled")
			dayLog = nil
		}
	}

	normalizer := webhook.New(webhook.Options{
		VerifyToken:      cfg.Webhook.VerifyToken,
		AppSecret:        cfg.Webhook.AppSecret,
		VerifySignature:  cfg.Webhook.VerifySignature,
		RequireSignature: cfg.Webhook.RequireSignature,
		AutoReply:        cfg.Webhook.AutoReply,
	}, registry, store, dayLog)

	// Messages received through the live session count like webhook ones
	web.OnMessage(normalizer.HandleInbound)

	deps := internal.Dependencies{
		Config:     cfg,
		Registry:   registry,
		Stats:      store,
		Normalizer: normalizer,
		DayLog:     dayLog,
	}
	if cfg.Web.VersionRefresh {
		deps.Versions = webclient.NewVersionRefresher(cfg.Web.VersionRefreshMinInterval, nil)
	}

	// Initialize Fiber
	app := fiber.New(fiber.Config{
		ErrorHandler: router.HttpErrorHandler,
		BodyLimit:    router.BodyLimitBytes(),
	})

	// Request ID + panic recovery (structured JSON)
	app.Use(router.HttpRequestID())
	app.Use(router.RecoveryMiddleware())

	// Router Compression
	app.Use(compress.New(compress.Config{
		Level: compress.Level(router.GZipLevel),
	}))

	// Router CORS
	app.Use(cors.New(cors.Config{
		AllowOrigins: router.CORSOrigin,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Admin-Secret, X-Request-ID",
		AllowMethods: "GET,POST,OPTIONS",
	}))

	// Router Security
	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
	}))

	// Router Cache
	app.Use(router.HttpCacheInMemory(router.CacheTTLSeconds, "/health"))

	// Router RealIP + request context enrichment
	app.Use(router.HttpRealIP())

	// Router Default Handler
	app.Get("/favicon.ico", router.ResponseNoContent)

	// Load Internal Routes
	internal.Routes(app, deps)

	// Running Startup Tasks
	internal.Startup(deps)

	// Running Routines Tasks
	internal.Routines(c, deps)

	// Start Server
	go func() {
		if err := app.Listen(cfg.ServerAddress + ":" + cfg.ServerPort); err != nil {
			log.Print(nil).Fatal(err.Error())
		}
	}()

	// Watch for Shutdown Signal
	sigShutdown := make(chan os.Signal, 1)
	signal.Notify(sigShutdown, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-sigShutdown
	// Wait 5 Seconds Before Graceful Shutdown
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	// Try To Shutdown Server
	err = app.ShutdownWithContext(ctxShutdown)
	if err != nil {
		log.Print(nil).Fatal(err.Error())
	}

	// Try To Shutdown Cron
	<-c.Stop().Done()

	// Close the live session, the pairing stays in the session store
	web.Disconnect(ctxShutdown)
}
