package obs

import "errors"

var (
	// ErrNotConnected is returned when no session is open.
	ErrNotConnected = errors.New("not connected to obs-websocket")

	// ErrClosed is returned when the session closed before a request
	// completed, or when a connect attempt was invalidated by a close.
	ErrClosed = errors.New("obs-websocket connection closed")

	// ErrAuthFailed is returned when the server rejects the password.
	ErrAuthFailed = errors.New("obs-websocket authentication failed")
)

// RequestError is an "error" status response. Its message is the
// server's text, unchanged.
type RequestError struct {
	RequestType string
	Message     string
}

func (e *RequestError) Error() string {
	return e.Message
}
