package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/contractwizard/internal/types"
)

// Event types.
const (
	TypeWizardStarted     = "wizard_started"
	TypeStepAdvanced      = "step_advanced"
	TypeStepBlocked       = "step_blocked"
	TypeStepRetreated     = "step_retreated"
	TypeContractSubmitted = "contract_submitted"
	TypeSubmitFailed      = "submit_failed"
	TypeDraftRestored     = "draft_restored"
)

// DomainEvent carries the canonical shape of every wizard event.
type DomainEvent struct {
	ID         string          `json:"id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	SessionID  string          `json:"session_id"`
	Summary    string          `json:"summary"`
	Weight     string          `json:"weight"`   // "major", "minor", "info"
	Polarity   string          `json:"polarity"` // "positive", "negative", "neutral"
	Payload    json.RawMessage `json:"payload"`
}

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// ── Session events ───────────────────────────────────────────────────────────

// WizardStartedPayload carries event-specific data for WizardStarted.
type WizardStartedPayload struct {
	SessionID string `json:"session_id"`
	DraftKey  string `json:"draft_key,omitempty"`
	Locale    string `json:"locale"`
	Tenants   int    `json:"tenant_options"`
	Units     int    `json:"unit_options"`
}

func NewWizardStarted(p WizardStartedPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeWizardStarted,
		OccurredAt: time.Now(),
		SessionID:  p.SessionID,
		Summary:    fmt.Sprintf("Contract wizard %s started", short(p.SessionID)),
		Weight:     "info",
		Polarity:   "neutral",
		Payload:    mustJSON(p),
	}
}

// DraftRestoredPayload carries event-specific data for DraftRestored.
type DraftRestoredPayload struct {
	SessionID string    `json:"session_id"`
	DraftKey  string    `json:"draft_key"`
	SavedAt   time.Time `json:"saved_at"`
	Fields    int       `json:"fields"`
}

func NewDraftRestored(p DraftRestoredPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeDraftRestored,
		OccurredAt: time.Now(),
		SessionID:  p.SessionID,
		Summary:    fmt.Sprintf("Draft %s restored into wizard %s", p.DraftKey, short(p.SessionID)),
		Weight:     "info",
		Polarity:   "positive",
		Payload:    mustJSON(p),
	}
}

// ── Navigation events ────────────────────────────────────────────────────────

// StepPayload carries the source and target of a step move.
type StepPayload struct {
	SessionID string `json:"session_id"`
	From      int    `json:"from"`
	To        int    `json:"to"`
}

func NewStepAdvanced(p StepPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeStepAdvanced,
		OccurredAt: time.Now(),
		SessionID:  p.SessionID,
		Summary:    fmt.Sprintf("Wizard %s advanced to step %d", short(p.SessionID), p.To),
		Weight:     "info",
		Polarity:   "positive",
		Payload:    mustJSON(p),
	}
}

func NewStepRetreated(p StepPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeStepRetreated,
		OccurredAt: time.Now(),
		SessionID:  p.SessionID,
		Summary:    fmt.Sprintf("Wizard %s went back to step %d", short(p.SessionID), p.To),
		Weight:     "info",
		Polarity:   "neutral",
		Payload:    mustJSON(p),
	}
}

// StepBlockedPayload carries event-specific data for StepBlocked.
type StepBlockedPayload struct {
	SessionID string   `json:"session_id"`
	Step      int      `json:"step"`
	Invalid   []string `json:"invalid"`
}

func NewStepBlocked(p StepBlockedPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeStepBlocked,
		OccurredAt: time.Now(),
		SessionID:  p.SessionID,
		Summary: fmt.Sprintf("Wizard %s blocked on step %d: %s",
			short(p.SessionID), p.Step, strings.Join(p.Invalid, ", ")),
		Weight:   "minor",
		Polarity: "negative",
		Payload:  mustJSON(p),
	}
}

// ── Submission events ────────────────────────────────────────────────────────

// ContractSubmittedPayload carries event-specific data for ContractSubmitted.
type ContractSubmittedPayload struct {
	SessionID  string          `json:"session_id"`
	Tenant     string          `json:"tenant"`
	Units      []string        `json:"units"`
	Term       types.DateRange `json:"term"`
	AnnualRent types.Money     `json:"annual_rent"`
	Frequency  types.Frequency `json:"payment_frequency"`
	Status     int             `json:"status"`
	Location   string          `json:"location,omitempty"`
}

func NewContractSubmitted(p ContractSubmittedPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeContractSubmitted,
		OccurredAt: time.Now(),
		SessionID:  p.SessionID,
		Summary: fmt.Sprintf("Contract for tenant %s on %d unit(s) submitted from wizard %s",
			p.Tenant, len(p.Units), short(p.SessionID)),
		Weight:   "major",
		Polarity: "positive",
		Payload:  mustJSON(p),
	}
}

// SubmitFailedPayload carries event-specific data for SubmitFailed.
type SubmitFailedPayload struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
	Status    int    `json:"status,omitempty"`
}

func NewSubmitFailed(p SubmitFailedPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeSubmitFailed,
		OccurredAt: time.Now(),
		SessionID:  p.SessionID,
		Summary:    fmt.Sprintf("Submission from wizard %s failed: %s", short(p.SessionID), p.Reason),
		Weight:     "major",
		Polarity:   "negative",
		Payload:    mustJSON(p),
	}
}
