package router

import (
	"strconv"
	"strings"

	"github.com/vihking/whatsapp-integration/pkg/env"
)

// Webhook batches from the Cloud API stay far below this.
const defaultBodyLimit = 2 << 20

// Server knobs, read once at startup.
var (
	// BaseURL prefixes every route, e.g. "/whatsapp" behind a shared proxy.
	BaseURL = basePath(env.GetEnvStringOrDefault("HTTP_BASE_URL", ""))
	// CORSOrigin is where the admin panel is served from.
	CORSOrigin = env.GetEnvStringOrDefault("HTTP_CORS_ORIGIN", "*")
	BodyLimit  = env.GetEnvStringOrDefault("HTTP_BODY_LIMIT_SIZE", "2M")
	GZipLevel  = env.GetEnvIntOrDefault("HTTP_GZIP_LEVEL", 1)
	// CacheTTLSeconds applies to GET panel reads; 0 disables the cache.
	CacheTTLSeconds = env.GetEnvIntOrDefault("HTTP_CACHE_TTL_SECONDS", 5)
)

var sizeUnits = map[byte]int{'K': 1 << 10, 'M': 1 << 20}

// BodyLimitBytes reads BodyLimit as "512K", "2M" or a plain byte count.
func BodyLimitBytes() int {
	return parseSize(BodyLimit, defaultBodyLimit)
}

func parseSize(raw string, fallback int) int {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return fallback
	}
	unit := 1
	if m, ok := sizeUnits[raw[len(raw)-1]]; ok {
		unit = m
		raw = strings.TrimSpace(raw[:len(raw)-1])
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n * unit
}

func basePath(raw string) string {
	p := strings.Trim(strings.TrimSpace(raw), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}
