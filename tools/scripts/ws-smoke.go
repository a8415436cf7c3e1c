// Package main provides a CI-friendly smoke test for the live verification feed.
//
// It validates:
//   - handshake + subprotocol selection
//   - hello/ack session establishment (with the staff key, when given)
//   - with a legacy secret: a scan of a signed link for an unknown member
//     reaches the console as a verification frame
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/fFrancko/beneficios-mvp-web/cmd/security/token"
	v1 "github.com/fFrancko/beneficios-mvp-web/shared/contracts/feed/v1"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

const maxReadBytes = 1 << 20 // 1MiB

func main() {
	var (
		baseURL  = flag.String("base", "http://127.0.0.1:8080", "Server base URL")
		origin   = flag.String("origin", "", "Origin header to send (browser-like WS handshake)")
		staffKey = flag.String("staff-key", os.Getenv("BENEFICIOS_FEED_STAFF_KEY"), "Feed staff key")
		legacy   = flag.String("legacy-secret", os.Getenv("BENEFICIOS_LEGACY_JWT_SECRET"), "Legacy link secret; enables the scan step")
		timeout  = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose  = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	wsURL, err := feedURL(*baseURL)
	if err != nil {
		fatalf("invalid -base: %v", err)
	}

	root := context.Background()
	conn, sessionID := mustConnect(root, wsURL, *origin, *staffKey, *timeout)
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	if *verbose {
		fmt.Printf("connected: session=%s url=%s\n", sessionID, wsURL)
	}

	if strings.TrimSpace(*legacy) == "" {
		fmt.Printf("OK: session=%s (scan skipped: no legacy secret)\n", sessionID)
		return
	}

	// A random member has no membership, so the scan is audited as inactive.
	memberID := uuid.NewString()
	raw, _, err := token.NewLegacySigner([]byte(*legacy)).Mint(memberID, time.Minute, time.Now().UTC())
	if err != nil {
		fatalf("mint: %v", err)
	}
	mustScan(root, *baseURL, raw, *timeout)

	p := mustReadVerification(root, conn, *timeout)
	if p.Valid || p.Result != "membership_inactive_or_expired" || p.MemberID == nil || *p.MemberID != memberID {
		fatalf("unexpected verification frame: %+v", p)
	}

	fmt.Printf("OK: session=%s event_id=%s result=%s\n", sessionID, p.EventID, p.Result)
}

func feedURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", errors.New("missing host")
	}
	u.Path = "/ws/verifications"
	u.RawQuery = ""
	return u.String(), nil
}

func mustConnect(parent context.Context, wsURL, origin, staffKey string, stepTimeout time.Duration) (*websocket.Conn, string) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	h := http.Header{}
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}

	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		Subprotocols: []string{v1.Subprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("dial: %v", err)
	}
	conn.SetReadLimit(maxReadBytes)

	if got := conn.Subprotocol(); got != v1.Subprotocol {
		fatalf("subprotocol mismatch: got=%q want=%q", got, v1.Subprotocol)
	}

	payload, _ := json.Marshal(v1.HelloPayload{StaffKey: staffKey})
	hello, _ := json.Marshal(v1.Envelope{V: v1.Version, Type: v1.TypeHello, TS: time.Now().UTC(), Payload: payload})
	if err := conn.Write(ctx, websocket.MessageText, hello); err != nil {
		fatalf("write hello: %v", err)
	}

	env := mustRead(ctx, conn)
	if env.Type == v1.TypeError {
		fatalf("hello rejected: %s", env.Payload)
	}
	if env.Type != v1.TypeHelloAck {
		fatalf("expected %s, got %s", v1.TypeHelloAck, env.Type)
	}
	var ack v1.HelloAckPayload
	if err := json.Unmarshal(env.Payload, &ack); err != nil || ack.SessionID == "" {
		fatalf("bad hello_ack payload: %s", env.Payload)
	}
	return conn, ack.SessionID
}

// mustScan calls the verify endpoint the way a door scanner would.
func mustScan(parent context.Context, baseURL, credential string, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	target := strings.TrimRight(baseURL, "/") + "/api/verify?token=" + url.QueryEscape(credential)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		fatalf("scan request: %v", err)
	}
	req.Header.Set("User-Agent", "beneficios-ws-smoke")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatalf("scan: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		fatalf("scan: expected 200, got %d: %s", resp.StatusCode, body)
	}
}

func mustReadVerification(parent context.Context, conn *websocket.Conn, stepTimeout time.Duration) v1.VerificationPayload {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	for {
		env := mustRead(ctx, conn)
		if env.Type != v1.TypeVerification {
			continue
		}
		var p v1.VerificationPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			fatalf("bad verification payload: %v", err)
		}
		return p
	}
}

func mustRead(ctx context.Context, conn *websocket.Conn) v1.Envelope {
	typ, data, err := conn.Read(ctx)
	if err != nil {
		fatalf("read: %v", err)
	}
	if typ != websocket.MessageText {
		fatalf("unexpected frame type: %v", typ)
	}
	var env v1.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		fatalf("decode envelope: %v", err)
	}
	if err := env.Validate(); err != nil {
		fatalf("invalid envelope: %v", err)
	}
	return env
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
