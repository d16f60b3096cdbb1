package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/matthewbaird/contractwizard/internal/definition"
	"github.com/matthewbaird/contractwizard/internal/draft"
	"github.com/matthewbaird/contractwizard/internal/eventbus"
	"github.com/matthewbaird/contractwizard/internal/service"
	"github.com/matthewbaird/contractwizard/internal/session"
	"github.com/matthewbaird/contractwizard/internal/submit"
	"github.com/matthewbaird/contractwizard/internal/wire"
	"github.com/matthewbaird/contractwizard/internal/wizard"
)

type testEnv struct {
	srv     *httptest.Server
	backend *httptest.Server
	posted  chan string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{posted: make(chan string, 1)}
	env.backend = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		env.posted <- r.PostForm.Encode()
		w.Header().Set("Location", "/contracts/5")
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(env.backend.Close)

	svc := service.New(service.Config{
		Definition: definition.MustDefault(),
		Sessions:   session.NewManager(time.Hour, time.Hour),
		Drafts:     draft.NewMemoryStore(),
		Submitter:  submit.NewForwarder(env.backend.URL, 5*time.Second),
	})
	env.srv = httptest.NewServer(NewRouter(svc, zap.NewNop(), []string{"*"}))
	t.Cleanup(env.srv.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

const startBody = `{
	"tenants": [{"value": "7", "label": "Ali"}],
	"units": [{"value": "10", "label": "Unit A"}, {"value": "11", "label": "Unit B"}]
}`

func (e *testEnv) start(t *testing.T) string {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/v1/wizards", startBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, ok := body["id"].(string)
	require.True(t, ok)
	return id
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestDefinitionRoute(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/v1/wizard/definition", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "rental_contract", body["name"])
	assert.Len(t, body["steps"], 3)
}

func TestErrorCodes(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/v1/wizards/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_ID", body["code"])

	resp, body = env.do(t, http.MethodGet, "/v1/wizards/5f0c7d8e-1b7a-4c55-9a53-0d1f1d3c2b10", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", body["code"])

	resp, body = env.do(t, http.MethodPost, "/v1/wizards", "{")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_JSON", body["code"])

	id := env.start(t)
	resp, body = env.do(t, http.MethodPost, "/v1/wizards/"+id+"/submit", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "NOT_FINAL_STEP", body["code"])

	resp, body = env.do(t, http.MethodPatch, "/v1/wizards/"+id+"/fields", `{"fields":{"landlord":"x"}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "UNKNOWN_FIELD", body["code"])
}

func TestWizardFlowOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	id := env.start(t)
	base := "/v1/wizards/" + id

	resp, body := env.do(t, http.MethodPost, base+"/next", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	move := body["move"].(map[string]any)
	assert.Equal(t, true, move["blocked"])

	resp, _ = env.do(t, http.MethodPatch, base+"/fields", `{"fields":{
		"tenant": "7",
		"start_date": "2024-01-01",
		"contract_duration_months": "6",
		"annual_rent": "12000",
		"payment_frequency": "monthly"
	}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, base+"/units/10", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["units"], 1)
	resp, _ = env.do(t, http.MethodPost, base+"/units/11?checked=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = env.do(t, http.MethodDelete, base+"/units/11", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["units"], 1)

	for i := 0; i < 2; i++ {
		resp, body = env.do(t, http.MethodPost, base+"/next", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, true, body["move"].(map[string]any)["moved"])
	}
	view := body["view"].(map[string]any)
	assert.Equal(t, true, view["buttons"].(map[string]any)["submit"])
	require.NotNil(t, view["summary"])

	req, err := http.NewRequest(http.MethodGet, env.srv.URL+base+"/summary", nil)
	require.NoError(t, err)
	sresp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	html, err := io.ReadAll(sresp.Body)
	sresp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "text/html; charset=utf-8", sresp.Header.Get("Content-Type"))
	assert.Contains(t, string(html), "2024-01-01 - 2024-07-01")

	resp, body = env.do(t, http.MethodPost, base+"/submit", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/contracts/5", body["receipt"].(map[string]any)["location"])
	assert.Contains(t, <-env.posted, "end_date=2024-07-01")

	resp, body = env.do(t, http.MethodPost, base+"/submit", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "ALREADY_SUBMITTED", body["code"])

	resp, _ = env.do(t, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestLiveChannel(t *testing.T) {
	env := newTestEnv(t)
	id := env.start(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/v1/wizards/" + id + "/live"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var initial struct {
		Type string `json:"type"`
		Data struct {
			View wizard.View `json:"view"`
		} `json:"data"`
	}
	require.NoError(t, wsjson.Read(ctx, conn, &initial))
	assert.Equal(t, wire.TypeView, initial.Type)
	assert.Equal(t, 1, initial.Data.View.State.CurrentStep)

	send := func(msgType, reqID string, data any) map[string]any {
		raw, err := json.Marshal(data)
		require.NoError(t, err)
		require.NoError(t, wsjson.Write(ctx, conn, wire.ClientMessage{Type: msgType, ID: reqID, Data: raw}))
		var reply map[string]any
		require.NoError(t, wsjson.Read(ctx, conn, &reply))
		assert.Equal(t, reqID, reply["request_id"])
		return reply
	}

	reply := send(wire.TypeSetField, "1", wire.SetFieldData{Name: "start_date", Value: "2024-01-31"})
	require.Equal(t, wire.TypeView, reply["type"])
	reply = send(wire.TypeSetField, "2", wire.SetFieldData{Name: "contract_duration_months", Value: "1"})
	derived := reply["data"].(map[string]any)["view"].(map[string]any)["derived"].(map[string]any)
	assert.Equal(t, "2024-02-29", derived["end_date"])

	reply = send(wire.TypeToggleUnit, "3", wire.UnitData{Value: "10"})
	units := reply["data"].(map[string]any)["view"].(map[string]any)["units"].([]any)
	assert.Len(t, units, 1)

	reply = send(wire.TypeRemoveUnit, "4", wire.UnitData{Value: "10"})
	assert.Nil(t, reply["data"].(map[string]any)["view"].(map[string]any)["units"])

	reply = send(wire.TypeNext, "5", nil)
	move := reply["data"].(map[string]any)["move"].(map[string]any)
	assert.Equal(t, true, move["blocked"])

	reply = send(wire.TypeToggleUnit, "6", wire.UnitData{Value: "99"})
	assert.Equal(t, wire.TypeError, reply["type"])
	assert.Equal(t, "NOT_FOUND", reply["data"].(map[string]any)["code"])

	reply = send(wire.TypePing, "7", nil)
	assert.Equal(t, wire.TypePong, reply["type"])

	reply = send("bogus", "8", nil)
	assert.Equal(t, "UNKNOWN_TYPE", reply["data"].(map[string]any)["code"])

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	sessions := session.NewManager(time.Hour, time.Hour)
	svc := service.New(service.Config{Definition: definition.MustDefault(), Sessions: sessions})
	bus := eventbus.New(8, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{
			Service:       svc,
			Sessions:      sessions,
			SweepInterval: time.Minute,
			Bus:           bus,
			Listener:      ln,
		})
	}()

	url := "http://" + ln.Addr().String() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	http.DefaultClient.CloseIdleConnections()
}
