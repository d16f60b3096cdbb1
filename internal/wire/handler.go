package wire

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matthewbaird/contractwizard/internal/handler"
	"github.com/matthewbaird/contractwizard/internal/service"
	"github.com/matthewbaird/contractwizard/internal/wizard"
)

// Handler manages WebSocket connections for wizard sessions.
type Handler struct {
	svc            *service.Service
	log            *zap.Logger
	originPatterns []string
}

// NewHandler creates a WebSocket handler. originPatterns is passed to
// websocket.Accept; nil allows same-origin connections only.
func NewHandler(svc *service.Service, log *zap.Logger, originPatterns []string) *Handler {
	return &Handler{svc: svc, log: log.Named("live"), originPatterns: originPatterns}
}

// ServeHTTP upgrades to WebSocket and runs the message loop for the session
// named by the {id} route parameter.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}
	view, err := h.svc.View(r.Context(), id)
	if err != nil {
		status, _ := handler.ErrorCode(err)
		http.Error(w, err.Error(), status)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.log.Warn("websocket accept", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	h.send(ctx, conn, ServerMessage{Type: TypeView, Data: ViewData{View: view}})

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 {
				h.log.Debug("connection closed", zap.Int("status", int(websocket.CloseStatus(err))))
			}
			return
		}
		h.dispatch(ctx, conn, id, msg)
	}
}

func (h *Handler) dispatch(ctx context.Context, conn *websocket.Conn, id uuid.UUID, msg ClientMessage) {
	switch msg.Type {
	case TypeSetField:
		var data SetFieldData
		if !h.decode(ctx, conn, msg, &data) {
			return
		}
		values := data.Values
		if values == nil {
			values = []string{data.Value}
		}
		v, err := h.svc.SetFields(ctx, id, url.Values{data.Name: values})
		h.reply(ctx, conn, msg.ID, ViewData{View: v}, err)
	case TypeToggleUnit:
		var data UnitData
		if !h.decode(ctx, conn, msg, &data) {
			return
		}
		var (
			v   wizard.View
			err error
		)
		if data.Checked != nil {
			v, err = h.svc.SetUnit(ctx, id, data.Value, *data.Checked)
		} else {
			v, err = h.svc.ToggleUnit(ctx, id, data.Value)
		}
		h.reply(ctx, conn, msg.ID, ViewData{View: v}, err)
	case TypeRemoveUnit:
		var data UnitData
		if !h.decode(ctx, conn, msg, &data) {
			return
		}
		v, err := h.svc.RemoveUnit(ctx, id, data.Value)
		h.reply(ctx, conn, msg.ID, ViewData{View: v}, err)
	case TypeNext:
		nav, err := h.svc.Next(ctx, id)
		h.reply(ctx, conn, msg.ID, ViewData{View: nav.View, Move: &nav.Move}, err)
	case TypePrev:
		nav, err := h.svc.Prev(ctx, id)
		h.reply(ctx, conn, msg.ID, ViewData{View: nav.View, Move: &nav.Move}, err)
	case TypePing:
		h.send(ctx, conn, ServerMessage{Type: TypePong, RequestID: msg.ID})
	default:
		h.sendError(ctx, conn, msg.ID, "UNKNOWN_TYPE", fmt.Sprintf("unknown message type: %s", msg.Type))
	}
}

func (h *Handler) decode(ctx context.Context, conn *websocket.Conn, msg ClientMessage, v any) bool {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		h.sendError(ctx, conn, msg.ID, "INVALID_JSON", fmt.Sprintf("invalid %s data", msg.Type))
		return false
	}
	return true
}

func (h *Handler) reply(ctx context.Context, conn *websocket.Conn, requestID string, data ViewData, err error) {
	if err != nil {
		_, code := handler.ErrorCode(err)
		h.sendError(ctx, conn, requestID, code, err.Error())
		return
	}
	h.send(ctx, conn, ServerMessage{Type: TypeView, RequestID: requestID, Data: data})
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		h.log.Debug("write error", zap.Error(err))
	}
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, requestID, code, message string) {
	h.send(ctx, conn, ServerMessage{
		Type:      TypeError,
		RequestID: requestID,
		Data: ErrorData{
			Code:    code,
			Message: message,
		},
	})
}
