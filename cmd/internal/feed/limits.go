package feed

import "time"

const (
	// Max bytes per websocket frame read (hard limit). Consoles only send hello.
	maxFrameBytes = 4 << 10

	defaultSendQueueSize = 64
	minSendQueueSize     = 8

	defaultWriteTimeout = 5 * time.Second
	// Bounds only the wait for hello.
	defaultReadIdleTimeout = 2 * time.Minute
	closeGrace             = 1 * time.Second

	defaultHeartbeatInterval = 25 * time.Second
	defaultHeartbeatTimeout  = 5 * time.Second
	maxPingFailures          = 3

	// Per-connection inbound rate limit (events per window).
	defaultRateEvents = 20
	defaultRateWindow = 10 * time.Second
)
