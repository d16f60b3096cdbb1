package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/contractwizard/internal/definition"
	"github.com/matthewbaird/contractwizard/internal/draft"
	"github.com/matthewbaird/contractwizard/internal/event"
	"github.com/matthewbaird/contractwizard/internal/session"
	"github.com/matthewbaird/contractwizard/internal/submit"
	"github.com/matthewbaird/contractwizard/internal/types"
	"github.com/matthewbaird/contractwizard/internal/wizard"
)

type recordedEvents struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (r *recordedEvents) Publish(_ context.Context, evt event.DomainEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordedEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType
	}
	return out
}

type fakeBackend struct {
	mu   sync.Mutex
	got  []url.Values
	fail error
}

func (f *fakeBackend) Submit(_ context.Context, form url.Values) (submit.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, form)
	if f.fail != nil {
		return submit.Receipt{}, f.fail
	}
	return submit.Receipt{Status: 201, Location: "/contracts/9"}, nil
}

type fixture struct {
	svc     *Service
	drafts  *draft.MemoryStore
	events  *recordedEvents
	backend *fakeBackend
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		drafts:  draft.NewMemoryStore(),
		events:  &recordedEvents{},
		backend: &fakeBackend{},
	}
	f.svc = New(Config{
		Definition: definition.MustDefault(),
		Sessions:   session.NewManager(time.Hour, time.Hour),
		Drafts:     f.drafts,
		Submitter:  f.backend,
		Events:     f.events,
	})
	return f
}

var startReq = StartRequest{
	Tenants: []types.Option{{Value: "7", Label: "Ali"}},
	Units:   []types.Option{{Value: "10", Label: "Unit A"}, {Value: "11", Label: "Unit B"}},
}

func complete(t *testing.T, f fixture, id uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.SetFields(ctx, id, url.Values{
		"tenant":                   {"7"},
		"start_date":               {"2024-01-01"},
		"contract_duration_months": {"6"},
		"annual_rent":              {"12000"},
	})
	require.NoError(t, err)
	_, err = f.svc.ToggleUnit(ctx, id, "10")
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		nav, err := f.svc.Next(ctx, id)
		require.NoError(t, err)
		require.True(t, nav.Move.Moved, "step %d blocked: %v", nav.Move.From, nav.Move.Invalid)
	}
}

func mustField(t *testing.T, payload json.RawMessage, name string) string {
	t.Helper()
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(payload, &fields))
	raw, ok := fields[name]
	require.True(t, ok, "payload has no %q", name)
	return string(raw)
}

func TestStart_PublishesStarted(t *testing.T) {
	f := newFixture(t)
	started, err := f.svc.Start(context.Background(), startReq)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, started.ID)
	assert.False(t, started.Restored)
	assert.Equal(t, 1, started.View.State.CurrentStep)
	assert.Equal(t, []string{event.TypeWizardStarted}, f.events.types())
}

func TestUnknownSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.View(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, f.svc.Close(context.Background(), uuid.New()), ErrSessionNotFound)
}

func TestNext_BlockedPublishesEvent(t *testing.T) {
	f := newFixture(t)
	started, err := f.svc.Start(context.Background(), startReq)
	require.NoError(t, err)

	nav, err := f.svc.Next(context.Background(), started.ID)
	require.NoError(t, err)
	assert.True(t, nav.Move.Blocked)
	assert.Equal(t, []string{"tenant", "units"}, nav.View.InvalidFields())
	assert.Equal(t, []string{event.TypeWizardStarted, event.TypeStepBlocked}, f.events.types())
}

func TestPrev_PublishesRetreat(t *testing.T) {
	f := newFixture(t)
	started, err := f.svc.Start(context.Background(), startReq)
	require.NoError(t, err)
	complete(t, f, started.ID)

	nav, err := f.svc.Prev(context.Background(), started.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, nav.View.State.CurrentStep)
	assert.Contains(t, f.events.types(), event.TypeStepRetreated)
}

func TestUnitOps_UnknownUnit(t *testing.T) {
	f := newFixture(t)
	started, err := f.svc.Start(context.Background(), startReq)
	require.NoError(t, err)

	_, err = f.svc.ToggleUnit(context.Background(), started.ID, "99")
	assert.ErrorIs(t, err, ErrUnknownUnit)

	v, err := f.svc.SetUnit(context.Background(), started.ID, "11", true)
	require.NoError(t, err)
	require.Len(t, v.Units, 1)

	v, err = f.svc.RemoveUnit(context.Background(), started.ID, "11")
	require.NoError(t, err)
	assert.Empty(t, v.Units)
}

func TestDraft_AutosaveAndRestore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := startReq
	req.DraftKey = "browser-1"

	first, err := f.svc.Start(ctx, req)
	require.NoError(t, err)
	_, err = f.svc.SetFields(ctx, first.ID, url.Values{"tenant": {"7"}, "start_date": {"2024-01-01"}})
	require.NoError(t, err)
	_, err = f.svc.ToggleUnit(ctx, first.ID, "11")
	require.NoError(t, err)

	saved, err := f.drafts.Load(ctx, "browser-1")
	require.NoError(t, err)
	assert.Equal(t, "7", saved.Values.Get("tenant"))
	assert.Equal(t, []string{"11"}, saved.Values["units"])
	assert.NotContains(t, saved.Values, "end_date")

	second, err := f.svc.Start(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Restored)
	assert.Equal(t, 1, second.View.State.CurrentStep)
	assert.Equal(t, "7", second.View.Values.Get("tenant"))
	assert.Equal(t, "2025-01-01", second.View.Derived.EndDate)
	require.Len(t, second.View.Units, 1)
	assert.Equal(t, "Unit B", second.View.Units[0].Label)
	assert.Contains(t, f.events.types(), event.TypeDraftRestored)
}

func TestSummaryHTML(t *testing.T) {
	f := newFixture(t)
	started, err := f.svc.Start(context.Background(), startReq)
	require.NoError(t, err)

	_, err = f.svc.SummaryHTML(context.Background(), started.ID)
	assert.ErrorIs(t, err, wizard.ErrNotFinalStep)

	complete(t, f, started.ID)
	html, err := f.svc.SummaryHTML(context.Background(), started.ID)
	require.NoError(t, err)
	for _, want := range []string{"Ali", "Unit A", "2024-01-01", "2024-07-01", "12000", "Monthly"} {
		assert.Contains(t, html, want)
	}
}

func TestSubmit_SuccessDeletesDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := startReq
	req.DraftKey = "browser-2"
	started, err := f.svc.Start(ctx, req)
	require.NoError(t, err)
	complete(t, f, started.ID)

	res, err := f.svc.Submit(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, 201, res.Receipt.Status)
	assert.True(t, res.View.Submitted)

	require.Len(t, f.backend.got, 1)
	assert.Equal(t, "2024-07-01", f.backend.got[0].Get("end_date"))

	_, err = f.drafts.Load(ctx, "browser-2")
	assert.ErrorIs(t, err, draft.ErrNotFound)

	f.events.mu.Lock()
	last := f.events.events[len(f.events.events)-1]
	f.events.mu.Unlock()
	assert.Equal(t, event.TypeContractSubmitted, last.EventType)
	assert.JSONEq(t, `{"amount_cents":1200000,"currency":"SAR"}`, mustField(t, last.Payload, "annual_rent"))
}

func TestSubmit_BackendFailure(t *testing.T) {
	f := newFixture(t)
	f.backend.fail = &submit.BackendError{Status: 502, Body: "bad gateway"}
	started, err := f.svc.Start(context.Background(), startReq)
	require.NoError(t, err)
	complete(t, f, started.ID)

	_, err = f.svc.Submit(context.Background(), started.ID)
	var be *submit.BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, event.TypeSubmitFailed, f.events.types()[len(f.events.types())-1])
}

func TestSubmit_PreconditionsDoNotPublishFailure(t *testing.T) {
	f := newFixture(t)
	started, err := f.svc.Start(context.Background(), startReq)
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), started.ID)
	assert.ErrorIs(t, err, wizard.ErrNotFinalStep)
	assert.NotContains(t, f.events.types(), event.TypeSubmitFailed)
}

func TestSubmit_NoBackendConfigured(t *testing.T) {
	svc := New(Config{
		Definition: definition.MustDefault(),
		Sessions:   session.NewManager(time.Hour, time.Hour),
	})
	started, err := svc.Start(context.Background(), startReq)
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), started.ID)
	assert.ErrorIs(t, err, submit.ErrNoBackend)
}

func TestCancelAndClose(t *testing.T) {
	f := newFixture(t)
	started, err := f.svc.Start(context.Background(), startReq)
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(context.Background(), started.ID)
	require.NoError(t, err)
	assert.False(t, cancelled)

	require.NoError(t, f.svc.Close(context.Background(), started.ID))
	_, err = f.svc.View(context.Background(), started.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
