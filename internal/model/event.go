package model

// StreamEventType tags a normalized relay stream event.
type StreamEventType int

const (
	// StreamContent carries a content fragment.
	StreamContent StreamEventType = iota
	// StreamError carries a terminal error message.
	StreamError
	// StreamDone marks normal stream completion.
	StreamDone
)

// StreamEvent is one unit of the relay's normalized output protocol. It is
// transient: only its accumulated effect on a Message persists.
type StreamEvent struct {
	Type    StreamEventType
	Content string
	Err     string
}

// ContentFrame is the JSON payload of a content SSE frame.
type ContentFrame struct {
	Content string `json:"content"`
}

// ErrorFrame is the JSON payload of an error SSE frame.
type ErrorFrame struct {
	Error string `json:"error"`
}

// DoneSentinel is the literal data payload terminating the stream.
const DoneSentinel = "[DONE]"
