package mediator

import "encoding/json"

// Frame types on the websocket channel.
const (
	FrameTypeRequest  = "req"
	FrameTypeResponse = "res"
)

// Protocol error codes. Operation failures are not protocol errors; they
// arrive as ok responses whose payload has success=false.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeUnknownMethod  = "UNKNOWN_METHOD"
	CodeRateLimited    = "RATE_LIMITED"
	CodeInternal       = "INTERNAL"
)

// RequestFrame is sent by callers to invoke one of the five operations.
type RequestFrame struct {
	Type   string          `json:"type"`
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ResponseFrame answers exactly one RequestFrame.
type ResponseFrame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	OK      bool            `json:"ok"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *ErrorShape     `json:"error,omitempty"`
}

// ErrorShape describes a protocol-level rejection.
type ErrorShape struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newOKResponse(id string, payload interface{}) (*ResponseFrame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &ResponseFrame{
		Type:    FrameTypeResponse,
		ID:      id,
		OK:      true,
		Payload: data,
	}, nil
}

func newErrorResponse(id, code, message string) *ResponseFrame {
	return &ResponseFrame{
		Type: FrameTypeResponse,
		ID:   id,
		OK:   false,
		Error: &ErrorShape{
			Code:    code,
			Message: message,
		},
	}
}
