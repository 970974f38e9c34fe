package log

import (
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/vihking/whatsapp-integration/pkg/env"
)

var logger = logrus.New()

func init() {
	if strings.EqualFold(env.GetEnvStringOrDefault("LOG_FORMAT", "text"), "json") {
		logger.Formatter = &logrus.JSONFormatter{TimestampFormat: time.RFC3339}
	} else {
		logger.Formatter = &logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
			ForceColors:     true,
		}
	}

	level := env.GetEnvStringOrDefault("LOG_LEVEL", "info")
	if env.GetEnvBoolOrDefault("DEBUG_MODE", false) {
		level = "debug"
	}
	if lvl, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
}

// SetOutput redirects the shared logger, mainly for tests.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Print returns an entry carrying the request fields when c is not nil.
func Print(c *fiber.Ctx) *logrus.Entry {
	if c == nil {
		return logger.WithFields(logrus.Fields{})
	}

	remoteIP := c.IP()
	if v, ok := c.Locals("remote_ip").(string); ok && v != "" {
		remoteIP = v
	}
	fields := logrus.Fields{
		"remote_ip": remoteIP,
		"method":    c.Method(),
		"uri":       c.OriginalURL(),
	}
	if id, ok := c.Locals("request_id").(string); ok && id != "" {
		fields["request_id"] = id
	}
	return logger.WithFields(fields)
}

// Provider tags an entry with the backend and the operation being performed.
func Provider(provider string, op string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"provider": provider,
		"op":       op,
	})
}

func Webhook(source string) *logrus.Entry {
	return logger.WithField("webhook", source)
}

func MaskPhone(phone string) string {
	if len(phone) < 4 {
		return phone
	}
	return phone[0:len(phone)-4] + "xxxx"
}
