// Package service runs contract wizards on behalf of the HTTP and live
// transports. It owns session lookup, draft autosave, event publication and
// the submission flow; the wizard semantics live in package wizard.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/matthewbaird/contractwizard/internal/definition"
	"github.com/matthewbaird/contractwizard/internal/derive"
	"github.com/matthewbaird/contractwizard/internal/draft"
	"github.com/matthewbaird/contractwizard/internal/event"
	"github.com/matthewbaird/contractwizard/internal/i18n"
	"github.com/matthewbaird/contractwizard/internal/session"
	"github.com/matthewbaird/contractwizard/internal/submit"
	"github.com/matthewbaird/contractwizard/internal/summary"
	"github.com/matthewbaird/contractwizard/internal/telemetry"
	"github.com/matthewbaird/contractwizard/internal/types"
	"github.com/matthewbaird/contractwizard/internal/wizard"
)

var (
	// ErrSessionNotFound is returned for an unknown or expired session.
	ErrSessionNotFound = errors.New("wizard session not found")
	// ErrUnknownUnit is returned when a unit value is not among the options.
	ErrUnknownUnit = errors.New("unknown unit")
)

// Config wires a Service.
type Config struct {
	Definition *definition.Wizard
	Sessions   *session.Manager
	Submitter  wizard.Submitter
	Locale     string
	Policy     derive.MonthPolicy
	Logger     *zap.Logger

	// Drafts may be nil to disable autosave.
	Drafts draft.Store
	// Events may be nil.
	Events event.Publisher
	// Tracer defaults to the global provider's tracer.
	Tracer trace.Tracer
}

// Service is safe for concurrent use.
type Service struct {
	def       *definition.Wizard
	sessions  *session.Manager
	drafts    draft.Store
	submitter wizard.Submitter
	events    event.Publisher
	locale    string
	policy    derive.MonthPolicy
	log       *zap.Logger
	tracer    trace.Tracer
}

// New returns a Service for cfg.
func New(cfg Config) *Service {
	s := &Service{
		def:       cfg.Definition,
		sessions:  cfg.Sessions,
		drafts:    cfg.Drafts,
		submitter: cfg.Submitter,
		events:    cfg.Events,
		locale:    cfg.Locale,
		policy:    cfg.Policy,
		log:       cfg.Logger,
		tracer:    cfg.Tracer,
	}
	if s.events == nil {
		s.events = event.Discard
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.tracer == nil {
		s.tracer = telemetry.Tracer("github.com/matthewbaird/contractwizard/internal/service")
	}
	if s.locale == "" {
		s.locale = "en"
	}
	return s
}

// Definition returns the wizard definition sessions are built from.
func (s *Service) Definition() *definition.Wizard { return s.def }

// StartRequest opens a wizard.
type StartRequest struct {
	Tenants []types.Option `json:"tenants"`
	Units   []types.Option `json:"units"`
	// DraftKey names the autosave slot. A draft saved under the key is
	// restored into the new session.
	DraftKey string `json:"draft_key,omitempty"`

	Locale string     `json:"locale,omitempty"`
	Values url.Values `json:"values,omitempty"`
}

// Started is the result of Start.
type Started struct {
	ID       uuid.UUID   `json:"id"`
	Restored bool        `json:"restored"`
	View     wizard.View `json:"view"`
}

// Start creates a session. Explicit request values win over a restored
// draft.
func (s *Service) Start(ctx context.Context, req StartRequest) (Started, error) {
	locale := req.Locale
	if locale == "" {
		locale = s.locale
	}
	formatter := i18n.NewFormatter(locale)

	values := url.Values{}
	var restored *draft.Draft
	if req.DraftKey != "" && s.drafts != nil {
		d, err := s.drafts.Load(ctx, req.DraftKey)
		switch {
		case err == nil:
			restored = &d
			for k, v := range d.Values {
				values[k] = v
			}
		case errors.Is(err, draft.ErrNotFound):
		default:
			s.log.Warn("draft restore failed", zap.String("draft_key", req.DraftKey), zap.Error(err))
		}
	}
	for k, v := range req.Values {
		values[k] = v
	}

	c := wizard.New(s.def, wizard.Options{
		Tenants:   req.Tenants,
		Units:     req.Units,
		Values:    values,
		Policy:    s.policy,
		Formatter: formatter,
	})
	sess := s.sessions.Create(c, req.DraftKey, formatter.Tag().String())

	s.events.Publish(ctx, event.NewWizardStarted(event.WizardStartedPayload{
		SessionID: sess.ID.String(),
		DraftKey:  req.DraftKey,
		Locale:    sess.Locale,
		Tenants:   len(req.Tenants),
		Units:     len(req.Units),
	}))
	if restored != nil {
		s.events.Publish(ctx, event.NewDraftRestored(event.DraftRestoredPayload{
			SessionID: sess.ID.String(),
			DraftKey:  restored.Key,
			SavedAt:   restored.SavedAt,
			Fields:    len(restored.Values),
		}))
	}
	return Started{ID: sess.ID, Restored: restored != nil, View: c.View()}, nil
}

func (s *Service) lookup(id uuid.UUID) (*session.Session, error) {
	sess := s.sessions.Get(id)
	if sess == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// View returns the current view of session id.
func (s *Service) View(_ context.Context, id uuid.UUID) (wizard.View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return wizard.View{}, err
	}
	return sess.Controller.View(), nil
}

// SetFields applies field values and autosaves the draft.
func (s *Service) SetFields(ctx context.Context, id uuid.UUID, vals url.Values) (wizard.View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return wizard.View{}, err
	}
	if err := sess.Controller.SetFields(vals); err != nil {
		return wizard.View{}, err
	}
	s.autosave(ctx, sess)
	return sess.Controller.View(), nil
}

// SetUnit checks or unchecks one unit.
func (s *Service) SetUnit(ctx context.Context, id uuid.UUID, value string, checked bool) (wizard.View, error) {
	return s.unitOp(ctx, id, value, func(c *wizard.Controller) bool { return c.SetUnit(value, checked) })
}

// ToggleUnit flips one unit checkbox.
func (s *Service) ToggleUnit(ctx context.Context, id uuid.UUID, value string) (wizard.View, error) {
	return s.unitOp(ctx, id, value, func(c *wizard.Controller) bool { return c.ToggleUnit(value) })
}

// RemoveUnit removes a unit from the roster.
func (s *Service) RemoveUnit(ctx context.Context, id uuid.UUID, value string) (wizard.View, error) {
	return s.unitOp(ctx, id, value, func(c *wizard.Controller) bool { return c.RemoveUnit(value) })
}

func (s *Service) unitOp(ctx context.Context, id uuid.UUID, value string, op func(*wizard.Controller) bool) (wizard.View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return wizard.View{}, err
	}
	if !op(sess.Controller) {
		return wizard.View{}, fmt.Errorf("%w: %q", ErrUnknownUnit, value)
	}
	s.autosave(ctx, sess)
	return sess.Controller.View(), nil
}

// Navigation is the result of Next and Prev.
type Navigation struct {
	Move wizard.Move `json:"move"`
	View wizard.View `json:"view"`
}

// Next validates the current step and advances.
func (s *Service) Next(ctx context.Context, id uuid.UUID) (Navigation, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return Navigation{}, err
	}
	m := sess.Controller.Advance()
	switch {
	case m.Blocked:
		s.events.Publish(ctx, event.NewStepBlocked(event.StepBlockedPayload{
			SessionID: sess.ID.String(),
			Step:      m.From,
			Invalid:   m.Invalid,
		}))
	case m.Moved:
		s.events.Publish(ctx, event.NewStepAdvanced(event.StepPayload{
			SessionID: sess.ID.String(),
			From:      m.From,
			To:        m.To,
		}))
	}
	return Navigation{Move: m, View: sess.Controller.View()}, nil
}

// Prev moves back one step.
func (s *Service) Prev(ctx context.Context, id uuid.UUID) (Navigation, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return Navigation{}, err
	}
	m := sess.Controller.Retreat()
	if m.Moved {
		s.events.Publish(ctx, event.NewStepRetreated(event.StepPayload{
			SessionID: sess.ID.String(),
			From:      m.From,
			To:        m.To,
		}))
	}
	return Navigation{Move: m, View: sess.Controller.View()}, nil
}

// SummaryHTML renders the summary block of a session on its final step.
func (s *Service) SummaryHTML(_ context.Context, id uuid.UUID) (string, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return "", err
	}
	sum, ok := sess.Controller.Summary()
	if !ok {
		return "", wizard.ErrNotFinalStep
	}
	return summary.HTML(sum, sess.Controller.Formatter())
}

// Submission is the result of a successful Submit.
type Submission struct {
	Receipt submit.Receipt `json:"receipt"`
	View    wizard.View    `json:"view"`
}

// Submit sends the completed form to the backend. The draft is deleted on
// success.
func (s *Service) Submit(ctx context.Context, id uuid.UUID) (Submission, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return Submission{}, err
	}
	ctx, span := s.tracer.Start(ctx, "wizard.submit",
		trace.WithAttributes(attribute.String("wizard.session_id", sess.ID.String())))
	defer span.End()

	if s.submitter == nil {
		return Submission{}, s.submitFailed(ctx, span, sess, submit.ErrNoBackend)
	}
	receipt, err := sess.Controller.Submit(ctx, s.submitter)
	if err != nil {
		if isPrecondition(err) {
			span.SetStatus(codes.Error, err.Error())
			return Submission{}, err
		}
		return Submission{}, s.submitFailed(ctx, span, sess, err)
	}
	span.SetAttributes(attribute.Int("http.response.status_code", receipt.Status))

	if sess.DraftKey != "" && s.drafts != nil {
		if err := s.drafts.Delete(ctx, sess.DraftKey); err != nil {
			s.log.Warn("draft delete failed", zap.String("draft_key", sess.DraftKey), zap.Error(err))
		}
	}
	s.events.Publish(ctx, event.NewContractSubmitted(submittedPayload(sess, receipt)))
	return Submission{Receipt: receipt, View: sess.Controller.View()}, nil
}

func isPrecondition(err error) bool {
	return errors.Is(err, wizard.ErrNotFinalStep) ||
		errors.Is(err, wizard.ErrSubmitInFlight) ||
		errors.Is(err, wizard.ErrAlreadySubmitted) ||
		errors.Is(err, wizard.ErrValidation)
}

func (s *Service) submitFailed(ctx context.Context, span trace.Span, sess *session.Session, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	p := event.SubmitFailedPayload{SessionID: sess.ID.String(), Reason: err.Error()}
	var be *submit.BackendError
	if errors.As(err, &be) {
		p.Status = be.Status
	}
	s.events.Publish(context.WithoutCancel(ctx), event.NewSubmitFailed(p))
	s.log.Warn("contract submission failed", zap.String("session_id", p.SessionID), zap.Error(err))
	return err
}

func submittedPayload(sess *session.Session, receipt submit.Receipt) event.ContractSubmittedPayload {
	vals := sess.Controller.Values()
	p := event.ContractSubmittedPayload{
		SessionID: sess.ID.String(),
		Tenant:    vals.Get(wizard.FieldTenant),
		Units:     vals[wizard.FieldUnits],
		Frequency: types.Frequency(vals.Get(wizard.FieldFrequency)),
		Status:    receipt.Status,
		Location:  receipt.Location,
	}
	if start, err := types.ParseDate(vals.Get(wizard.FieldStartDate)); err == nil {
		p.Term.Start = start
	}
	if end, err := types.ParseDate(vals.Get(wizard.FieldEndDate)); err == nil {
		p.Term.End = &end
	}
	if cents, err := types.ParseCents(vals.Get(wizard.FieldAnnualRent)); err == nil {
		p.AnnualRent = types.Money{AmountCents: cents, Currency: "SAR"}
	}
	return p
}

// Cancel aborts an in-flight submission, reporting whether one was running.
func (s *Service) Cancel(_ context.Context, id uuid.UUID) (bool, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return false, err
	}
	return sess.Controller.CancelSubmit(), nil
}

// Close ends a session. The draft is kept.
func (s *Service) Close(_ context.Context, id uuid.UUID) error {
	if !s.sessions.Remove(id) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// autosave stores the session's values under its draft key. Failures are
// logged only.
func (s *Service) autosave(ctx context.Context, sess *session.Session) {
	if sess.DraftKey == "" || s.drafts == nil {
		return
	}
	vals := sess.Controller.Values()
	vals.Del(wizard.FieldEndDate)
	if err := s.drafts.Save(ctx, draft.Draft{Key: sess.DraftKey, Values: vals}); err != nil {
		s.log.Warn("draft autosave failed", zap.String("draft_key", sess.DraftKey), zap.Error(err))
	}
}
