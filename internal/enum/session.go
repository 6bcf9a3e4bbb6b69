package enum

// SessionState tracks the IMAP connection lifecycle.
//
// Transitions:
//   - Connecting -> Connected (login success)
//   - Connecting -> Error (login rejected)
//   - Connected -> Disconnected (explicit logout)
//   - Connected -> Error (connection loss)
//   - Error -> Connecting (retry attempt)
//   - Disconnected -> Connecting (reconnect request)
type SessionState string

const (
	SessionConnecting   SessionState = "connecting"
	SessionConnected    SessionState = "connected"
	SessionDisconnected SessionState = "disconnected"
	SessionError        SessionState = "error"
)

func (t SessionState) String() string {
	return string(t)
}
