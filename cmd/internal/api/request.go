package api

import (
	"net"
	"net/http"
	"strings"
)

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(raw, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}

func ipString(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return ip.String()
}

// siteOrigin returns the configured public origin, or the one the request
// arrived on.
func (h *Handler) siteOrigin(r *http.Request) string {
	if h.cfg.SiteURL != "" {
		return h.cfg.SiteURL
	}

	proto := "http"
	if r.TLS != nil {
		proto = "https"
	}
	host := r.Host
	if h.cfg.TrustProxy {
		if p := firstHeaderValue(r.Header.Get("X-Forwarded-Proto")); p != "" {
			proto = strings.ToLower(p)
		}
		if fh := firstHeaderValue(r.Header.Get("X-Forwarded-Host")); fh != "" {
			host = fh
		}
	}
	if host == "" {
		host = "localhost"
	}
	return proto + "://" + host
}

func firstHeaderValue(v string) string {
	first, _, _ := strings.Cut(v, ",")
	return strings.TrimSpace(first)
}
