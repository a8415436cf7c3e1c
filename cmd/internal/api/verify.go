package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/audit"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/qrtoken"
)

const (
	reasonMissingToken = "missing_token"
	reasonRateLimited  = "rate_limited"
	reasonServerError  = "server_error"
)

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	ctx := r.Context()
	now := h.now()
	ip := clientIP(r, h.cfg.TrustProxy)

	allowed, err := h.limiter.Allow(ctx, "verify:"+ipKey(ipString(ip)), now)
	if err != nil {
		h.log.Warn("verify.ratelimit.fail", "err", err)
		allowed = true
	}
	if !allowed {
		h.metrics.RateLimited("/api/verify")
		w.Header().Set("Retry-After", strconv.Itoa(int(h.cfg.RetryAfter.Seconds())))
		writeJSON(w, http.StatusTooManyRequests, verifyResponse{NowISO: isoTime(now), Reason: reasonRateLimited})
		return
	}

	// "token" is the current parameter; "t" is what legacy links carry.
	q := r.URL.Query()
	raw := strings.TrimSpace(q.Get("token"))
	if raw == "" {
		raw = strings.TrimSpace(q.Get("t"))
	}
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, verifyResponse{NowISO: isoTime(now), Reason: reasonMissingToken})
		return
	}
	if len(raw) > h.cfg.MaxTokenLength {
		h.metrics.Verification("", string(qrtoken.ReasonInvalidOrMalformed))
		writeJSON(w, http.StatusBadRequest, verifyResponse{NowISO: isoTime(now), Reason: string(qrtoken.ReasonInvalidOrMalformed)})
		return
	}

	res, err := h.verifier.Verify(ctx, raw, now, qrtoken.RequestMeta{
		IP:        ipString(ip),
		UserAgent: strings.TrimSpace(r.UserAgent()),
	})
	switch {
	case err == nil:
	case errors.Is(err, qrtoken.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, verifyResponse{NowISO: isoTime(now), Reason: reasonMissingToken})
		return
	default:
		h.log.Error("verify.fail", "err", err)
		writeJSON(w, http.StatusInternalServerError, verifyResponse{NowISO: isoTime(now), Reason: reasonServerError})
		return
	}

	result := audit.ResultValid
	if !res.Valid {
		result = string(res.Reason)
	}
	h.metrics.Verification(string(res.Kind), result)

	if !res.Matched() {
		writeJSON(w, http.StatusBadRequest, verifyResponse{NowISO: isoTime(now), Reason: string(res.Reason)})
		return
	}
	writeJSON(w, http.StatusOK, toVerifyResponse(res, now))
}

func ipKey(ip string) string {
	if ip == "" {
		return "unknown"
	}
	return ip
}

func toVerifyResponse(res qrtoken.Result, now time.Time) verifyResponse {
	out := verifyResponse{
		OK:        true,
		Valid:     res.Valid,
		Kind:      string(res.Kind),
		ExpiresAt: isoTimePtr(res.ExpiresAt),
		NowISO:    isoTime(now),
		Reason:    string(res.Reason),
	}
	if res.MemberID == "" {
		return out
	}

	id := res.MemberID
	out.UserID = &id
	if res.Member != nil {
		out.Member = &memberView{
			ID:        id,
			FullName:  res.Member.FullName,
			AvatarURL: res.Member.AvatarURL,
			Email:     res.Member.Email,
		}
	}
	snap := res.Membership
	out.Membership = &verifyMembershipView{
		Status:        string(snap.Status),
		ValidUntil:    isoTimePtr(snap.ValidUntil),
		LastPaymentAt: isoTimePtr(snap.LastPaymentAt),
		Active:        snap.Active,
	}
	return out
}
