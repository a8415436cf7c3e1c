package api

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/auth/session"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/membership"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/qrtoken"
)

func (h *Handler) handleQRToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		methodNotAllowed(w, "GET, POST")
		return
	}
	memberID, ok := h.requireMember(w, r)
	if !ok {
		return
	}

	now := h.now()
	issued, err := h.issuer.Issue(r.Context(), memberID, now)
	switch {
	case err == nil:
	case errors.Is(err, qrtoken.ErrMembershipInactive):
		writeError(w, http.StatusForbidden, string(qrtoken.ReasonMembershipInactive))
		return
	case errors.Is(err, membership.ErrNotProvisioned):
		h.log.Error("qr.issue.fail", "member_id", memberID, "err", err)
		writeError(w, http.StatusInternalServerError, "memberships_missing")
		return
	case errors.Is(err, qrtoken.ErrNotProvisioned):
		h.log.Error("qr.issue.fail", "member_id", memberID, "err", err)
		writeError(w, http.StatusInternalServerError, "qr_tokens_missing")
		return
	default:
		h.log.Error("qr.issue.fail", "member_id", memberID, "err", err)
		writeError(w, http.StatusInternalServerError, reasonServerError)
		return
	}

	h.metrics.QRIssued(issued.Reused)
	writeJSON(w, http.StatusOK, qrTokenResponse{
		OK:        true,
		Token:     issued.Token,
		ExpiresAt: isoTime(issued.ExpiresAt),
		TTLSec:    int64(issued.TTL.Seconds()),
		LinkForQR: h.siteOrigin(r) + "/verify?token=" + url.QueryEscape(issued.Token),
		Reused:    issued.Reused,
		NowISO:    isoTime(now),
	})
}

func (h *Handler) handleMembership(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	memberID, ok := h.requireMember(w, r)
	if !ok {
		return
	}

	now := h.now()
	snap, err := h.memberships.Current(r.Context(), memberID, now)
	note := ""
	switch {
	case err == nil:
	case errors.Is(err, membership.ErrNotProvisioned):
		h.log.Warn("membership.status.table_missing", "err", err)
		note = "memberships table not provisioned"
	default:
		h.log.Error("membership.status.fail", "member_id", memberID, "err", err)
		writeError(w, http.StatusInternalServerError, reasonServerError)
		return
	}

	derived := derivedView{Result: "expired", NowISO: isoTime(now), Note: note}
	switch {
	case snap.Active:
		derived.Result = "active"
	case note != "":
	case !snap.Found:
		derived.Note = "no membership on record"
	case snap.Status != membership.StatusActive && snap.Status != membership.StatusTrialing:
		derived.Note = "status " + string(snap.Status)
	default:
		derived.Note = "lapsed"
	}

	writeJSON(w, http.StatusOK, membershipResponse{
		OK: true,
		Membership: statusMembershipView{
			Status:        string(snap.Status),
			ValidUntil:    isoTimePtr(snap.ValidUntil),
			LastPaymentAt: isoTimePtr(snap.LastPaymentAt),
			Provider:      nonEmpty(snap.Provider),
			RenewalMode:   nonEmpty(snap.RenewalMode),
			Active:        snap.Active,
		},
		Derived: derived,
	})
}

// requireMember authenticates the bearer credential and writes the 401 itself.
func (h *Handler) requireMember(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := bearerToken(r)
	if raw == "" {
		writeError(w, http.StatusUnauthorized, "no_token")
		return "", false
	}
	claims, err := h.tokens.Verify(raw, h.now())
	if err != nil {
		if !errors.Is(err, session.ErrInvalidToken) {
			h.log.Warn("auth.verify.fail", "err", err)
		}
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return claims.MemberID, true
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
