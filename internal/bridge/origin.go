package bridge

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

func normalizeOrigins(origins []string, logger *slog.Logger) (map[string]struct{}, bool) {
	allowed := make(map[string]struct{}, len(origins))
	allowAll := false

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			allowAll = true
			continue
		}
		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			logger.Warn("ignoring invalid origin in configuration", "origin", origin)
			continue
		}
		allowed[normalized] = struct{}{}
	}

	return allowed, allowAll
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

func (b *Bridge) checkOrigin(r *http.Request) bool {
	header := r.Header.Get("Origin")
	if header == "" {
		return false
	}
	normalized, ok := normalizeOrigin(header)
	if !ok {
		return false
	}
	if b.allowAll {
		return true
	}
	if _, exists := b.allowed[normalized]; exists {
		return true
	}
	b.logger.Warn("blocked websocket connection from disallowed origin", "origin", header)
	return false
}
