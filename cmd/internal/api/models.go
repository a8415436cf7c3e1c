package api

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type memberView struct {
	ID        string  `json:"id"`
	FullName  *string `json:"full_name"`
	AvatarURL *string `json:"avatar_url"`
	Email     *string `json:"email"`
}

type verifyMembershipView struct {
	Status        string  `json:"status"`
	ValidUntil    *string `json:"valid_until"`
	LastPaymentAt *string `json:"last_payment_at"`
	Active        bool    `json:"active"`
}

type verifyResponse struct {
	OK         bool                  `json:"ok"`
	Valid      bool                  `json:"valid"`
	Kind       string                `json:"kind,omitempty"`
	UserID     *string               `json:"user_id,omitempty"`
	ExpiresAt  *string               `json:"expires_at,omitempty"`
	NowISO     string                `json:"now_iso"`
	Member     *memberView           `json:"member"`
	Membership *verifyMembershipView `json:"membership,omitempty"`
	Reason     string                `json:"reason,omitempty"`
}

type qrTokenResponse struct {
	OK        bool   `json:"ok"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	TTLSec    int64  `json:"ttl_sec"`
	LinkForQR string `json:"link_for_qr"`
	Reused    bool   `json:"reused"`
	NowISO    string `json:"now_iso"`
}

type statusMembershipView struct {
	Status        string  `json:"status"`
	ValidUntil    *string `json:"valid_until"`
	LastPaymentAt *string `json:"last_payment_at"`
	Provider      *string `json:"provider"`
	RenewalMode   *string `json:"renewal_mode"`
	Active        bool    `json:"active"`
}

type derivedView struct {
	Result string `json:"result"`
	NowISO string `json:"now_iso"`
	Note   string `json:"note,omitempty"`
}

type membershipResponse struct {
	OK         bool                 `json:"ok"`
	Membership statusMembershipView `json:"membership"`
	Derived    derivedView          `json:"derived"`
}
