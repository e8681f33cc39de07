// Package hub fans booth events out to websocket clients. The booth runs
// two hubs: one carrying binary JPEG previews of the composed canvas, one
// carrying JSON status events (camera, gateway, commit sequence).
package hub

// MessageType indicates the websocket message format.
type MessageType int

const (
	// JSONMessage is a JSON-encoded message.
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data, typically a JPEG preview.
	BinaryMessage
)

// Message is one broadcast payload.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage wraps binary data.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

// Event is the envelope used on the status hub.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}
