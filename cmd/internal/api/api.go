// Package api exposes the HTTP boundary: member-facing issuance and status
// endpoints (bearer-authenticated) and the anonymous verification endpoint.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/auth/session"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/metrics"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/qrtoken"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/ratelimit"
)

// Config controls request handling.
type Config struct {
	// SiteURL is the public origin used in link_for_qr. When empty the
	// request's own scheme and host are used.
	SiteURL string
	// TrustProxy honors X-Forwarded-For/-Proto/-Host and X-Real-IP.
	TrustProxy bool
	// MaxTokenLength bounds the verify query parameter.
	MaxTokenLength int
	// RetryAfter is advertised on 429 responses; use the limiter window.
	RetryAfter time.Duration
}

const defaultMaxTokenLength = 2048

// Handler wires HTTP endpoints to the issuer, verifier and membership view.
type Handler struct {
	log *slog.Logger
	cfg Config

	issuer      *qrtoken.Issuer
	verifier    *qrtoken.Verifier
	memberships qrtoken.Memberships
	tokens      session.AccessTokenManager

	limiter ratelimit.Limiter
	metrics *metrics.Metrics
	now     func() time.Time
}

// HandlerOption configures optional dependencies.
type HandlerOption func(*Handler)

// WithRateLimiter throttles /api/verify per client IP.
func WithRateLimiter(l ratelimit.Limiter) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.limiter = l
		}
	}
}

// WithMetrics records request outcomes.
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandler constructs a Handler.
func NewHandler(
	log *slog.Logger,
	cfg Config,
	issuer *qrtoken.Issuer,
	verifier *qrtoken.Verifier,
	memberships qrtoken.Memberships,
	tokens session.AccessTokenManager,
	opts ...HandlerOption,
) (*Handler, error) {
	if issuer == nil || verifier == nil || memberships == nil || tokens == nil {
		return nil, errors.New("api: missing dependency")
	}
	if log == nil {
		log = slog.Default()
	}
	cfg.SiteURL = strings.TrimRight(strings.TrimSpace(cfg.SiteURL), "/")
	if cfg.MaxTokenLength <= 0 {
		cfg.MaxTokenLength = defaultMaxTokenLength
	}
	if cfg.RetryAfter < time.Second {
		cfg.RetryAfter = ratelimit.DefaultWindow
	}

	h := &Handler{
		log:         log,
		cfg:         cfg,
		issuer:      issuer,
		verifier:    verifier,
		memberships: memberships,
		tokens:      tokens,
		limiter:     ratelimit.Unlimited{},
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Register wires routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/api/verify", h.handleVerify)
	mux.HandleFunc("/api/membership/qr-token", h.handleQRToken)
	mux.HandleFunc("/api/membership", h.handleMembership)
}
