// Package handler exposes the contract wizard over HTTP.
package handler

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/matthewbaird/contractwizard/internal/service"
)

// WizardHandler serves the wizard routes.
type WizardHandler struct {
	svc *service.Service
	log *zap.Logger
}

// NewWizardHandler creates a WizardHandler.
func NewWizardHandler(svc *service.Service, log *zap.Logger) *WizardHandler {
	return &WizardHandler{svc: svc, log: log}
}

// Routes registers the wizard routes on r. live, when non-nil, serves the
// WebSocket channel of a session.
func (h *WizardHandler) Routes(r chi.Router, live http.Handler) {
	r.Get("/v1/wizard/definition", h.GetDefinition)
	r.Route("/v1/wizards", func(r chi.Router) {
		r.Post("/", h.StartWizard)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetWizard)
			r.Delete("/", h.CloseWizard)
			r.Patch("/fields", h.SetFields)
			r.Post("/units/{value}", h.ToggleUnit)
			r.Delete("/units/{value}", h.RemoveUnit)
			r.Post("/next", h.Next)
			r.Post("/prev", h.Prev)
			r.Get("/summary", h.GetSummary)
			r.Post("/submit", h.Submit)
			r.Post("/cancel", h.CancelSubmit)
			if live != nil {
				r.Get("/live", live.ServeHTTP)
			}
		})
	})
}

// GetDefinition returns the compiled wizard definition.
func (h *WizardHandler) GetDefinition(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Definition())
}

// StartWizard creates a wizard session.
func (h *WizardHandler) StartWizard(w http.ResponseWriter, r *http.Request) {
	var req service.StartRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	started, err := h.svc.Start(r.Context(), req)
	if err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	w.Header().Set("Location", "/v1/wizards/"+started.ID.String())
	writeJSON(w, http.StatusCreated, started)
}

// GetWizard returns the current view.
func (h *WizardHandler) GetWizard(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	v, err := h.svc.View(r.Context(), id)
	if err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// SetFieldsRequest is the body of PATCH /fields. Single values and value
// lists are both accepted.
type SetFieldsRequest struct {
	Fields map[string]FieldValue `json:"fields"`
}

// SetFields applies field input.
func (h *WizardHandler) SetFields(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	var req SetFieldsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	vals := make(url.Values, len(req.Fields))
	for name, v := range req.Fields {
		vals[name] = []string(v)
	}
	v, err := h.svc.SetFields(r.Context(), id, vals)
	if err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ToggleUnit flips a unit checkbox. With ?checked=true|false the box is set
// instead.
func (h *WizardHandler) ToggleUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	value := chi.URLParam(r, "value")
	var (
		v   any
		err error
	)
	switch r.URL.Query().Get("checked") {
	case "true":
		v, err = h.svc.SetUnit(r.Context(), id, value, true)
	case "false":
		v, err = h.svc.SetUnit(r.Context(), id, value, false)
	default:
		v, err = h.svc.ToggleUnit(r.Context(), id, value)
	}
	if err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// RemoveUnit handles a roster badge's remove affordance.
func (h *WizardHandler) RemoveUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	v, err := h.svc.RemoveUnit(r.Context(), id, chi.URLParam(r, "value"))
	if err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Next advances when the current step validates.
func (h *WizardHandler) Next(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	nav, err := h.svc.Next(r.Context(), id)
	if err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, nav)
}

// Prev moves back one step.
func (h *WizardHandler) Prev(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	nav, err := h.svc.Prev(r.Context(), id)
	if err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, nav)
}

// GetSummary returns the summary block as an HTML fragment.
func (h *WizardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	html, err := h.svc.SummaryHTML(r.Context(), id)
	if err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	writeHTML(w, http.StatusOK, html)
}

// Submit sends the completed contract to the backend.
func (h *WizardHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	res, err := h.svc.Submit(r.Context(), id)
	if err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CancelSubmit aborts an in-flight submission.
func (h *WizardHandler) CancelSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	cancelled, err := h.svc.Cancel(r.Context(), id)
	if err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

// CloseWizard ends a session.
func (h *WizardHandler) CloseWizard(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Close(r.Context(), id); err != nil {
		errorToHTTP(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
