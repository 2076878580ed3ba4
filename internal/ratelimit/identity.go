package ratelimit

import (
	"strings"
)

// ExtractIdentifier derives the caller identity used to partition counters.
// A bearer credential wins over the client IP, which is taken from
// CF-Connecting-IP or the first X-Forwarded-For hop, then remoteIP.
func ExtractIdentifier(header func(key string) string, remoteIP string) string {
	if token := bearerToken(header("Authorization")); token != "" {
		return "apikey:" + token
	}

	ip := header("CF-Connecting-IP")
	if ip == "" {
		ip = header("X-Forwarded-For")
	}
	if ip != "" {
		ip, _, _ = strings.Cut(ip, ",")
		ip = strings.TrimSpace(ip)
	}
	if ip == "" {
		ip = remoteIP
	}
	if ip == "" {
		ip = "anonymous"
	}

	return "ip:" + ip
}

func bearerToken(auth string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(auth), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}
