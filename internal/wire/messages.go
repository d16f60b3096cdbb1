// Package wire defines and serves the WebSocket live channel of a wizard
// session.
package wire

import (
	"encoding/json"

	"github.com/matthewbaird/contractwizard/internal/wizard"
)

// Message types.
const (
	TypeSetField   = "set_field"
	TypeToggleUnit = "toggle_unit"
	TypeRemoveUnit = "remove_unit"
	TypeNext       = "next"
	TypePrev       = "prev"
	TypePing       = "ping"

	TypeView  = "view"
	TypePong  = "pong"
	TypeError = "error"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"`
	ID   string          `json:"id"` // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// SetFieldData is the payload for "set_field" messages. Values wins over
// Value when both are set.
type SetFieldData struct {
	Name   string   `json:"name"`
	Value  string   `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
}

// UnitData is the payload for "toggle_unit" and "remove_unit" messages.
type UnitData struct {
	Value   string `json:"value"`
	Checked *bool  `json:"checked,omitempty"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`                 // "view", "pong", "error"
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// ViewData carries the wizard view, plus the move for navigation replies.
type ViewData struct {
	View wizard.View  `json:"view"`
	Move *wizard.Move `json:"move,omitempty"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
