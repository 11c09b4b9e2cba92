package wsengine

// MessageType classifies what a Session delivers to its message callback.
type MessageType int

const (
	// MessageTypeMessage is a data message from the peer.
	MessageTypeMessage MessageType = iota

	// MessageTypeOpen reports a completed opening handshake.
	MessageTypeOpen

	// MessageTypeClose reports the closing handshake.
	MessageTypeClose

	// MessageTypeError reports a transport error; the session is done.
	MessageTypeError

	// MessageTypePing is an inbound ping control frame.
	MessageTypePing

	// MessageTypePong is an inbound pong control frame.
	MessageTypePong
)

// String returns a human-readable name for the message type.
func (t MessageType) String() string {
	switch t {
	case MessageTypeMessage:
		return "message"
	case MessageTypeOpen:
		return "open"
	case MessageTypeClose:
		return "close"
	case MessageTypeError:
		return "error"
	case MessageTypePing:
		return "ping"
	case MessageTypePong:
		return "pong"
	default:
		return "unknown"
	}
}

// OpenInfo carries details of the opening handshake.
type OpenInfo struct {
	// URI is the request target of the upgrade request.
	URI string

	// Headers are the upgrade request headers.
	Headers map[string]string

	// Protocol is the negotiated subprotocol, if any.
	Protocol string
}

// CloseInfo carries details of the closing handshake.
type CloseInfo struct {
	// Code is the close status code.
	Code uint16

	// Reason is the close reason, if the peer supplied one.
	Reason string

	// Remote is true when the close was initiated by the peer.
	Remote bool
}

// Message is the unit delivered to the session's message callback.
// Exactly one of the optional fields is populated, according to Type.
type Message struct {
	Type MessageType

	// Data is the payload for Message, Ping and Pong types.
	Data []byte

	// Binary is true when Data came from (or goes to) a binary frame.
	Binary bool

	// WireSize is the payload size as read off the wire, before any
	// permessage-deflate decompression.
	WireSize int

	// Open is set for MessageTypeOpen.
	Open *OpenInfo

	// Close is set for MessageTypeClose.
	Close *CloseInfo

	// Err is set for MessageTypeError.
	Err error
}

// MessageCallback receives every message a session delivers.
// Callbacks run on the goroutine driving Session.Run (or, for the open
// message, the goroutine calling ConnectToSocket) and block it.
type MessageCallback func(msg *Message)

// HandshakeResult is the outcome of ConnectToSocket.
type HandshakeResult struct {
	// Success is true when the upgrade completed and the session may Run.
	Success bool

	// HTTPStatus is the HTTP status associated with a failed upgrade.
	HTTPStatus int

	// Error is a human-readable description of the failure.
	Error string
}
