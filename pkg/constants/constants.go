package constants

import "time"

const (
	// CloseMessageCode identifies the message id for a close request
	CloseMessageCode = 1000

	// DefaultWSTimeout is the timeout applied to a single RPC round-trip
	// when the connection has no explicit timeout configured.
	DefaultWSTimeout = 30 * time.Second
)

var (
	WebsocketScheme       = "ws"
	SecureWebsocketScheme = "wss"
	HTTPScheme            = "http"
	HTTPSecureScheme      = "https"
)
