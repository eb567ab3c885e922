package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/Billy-Davies-2/kokoloko-draft/internal/auth"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/dal"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/draft"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/mocks"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/models"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/prompt"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/pubsub"
	"github.com/Billy-Davies-2/kokoloko-draft/internal/session"
)

type env struct {
	srv   *httptest.Server
	bus   *pubsub.PubSub
	store *dal.MemoryDAL
}

func newEnv(t *testing.T) *env {
	t.Helper()
	rules := draft.DefaultRules()
	rules.TotalPicks = 2
	rules.PityPickIndex = 0
	rules.FakeOutChance = 0

	bus := pubsub.New()
	store := dal.NewMemoryDAL()
	authz := auth.NewMockAuth("staff", "boss")
	broker := prompt.NewBroker(bus, authz, prompt.Options{RollTimeout: time.Minute, DecisionTimeout: time.Minute, Rate: rate.Inf, Burst: 1})
	drafts := session.NewManager(context.Background(), store, broker, pubsub.NewAnnouncer(bus), authz, session.Config{Rules: rules, Seed: 11})

	api := NewAPIHandlers(drafts, store, bus, authz, mocks.NewMockClickHouseClient())
	srv := httptest.NewServer(api.Routes(authz))
	t.Cleanup(func() {
		srv.Close()
		drafts.Shutdown(context.Background())
	})
	return &env{srv: srv, bus: bus, store: store}
}

func (e *env) do(t *testing.T, method, path, user, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+user)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	data, _ := io.ReadAll(resp.Body)
	json.Unmarshal(data, &out)
	return resp.StatusCode, out
}

const startBody = `{"draftId":"h1","participants":[{"id":"p1","displayName":"Coach 1"}],"mode":"interactive"}`

func TestProbes(t *testing.T) {
	e := newEnv(t)

	code, body := e.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alive", body["status"])

	code, body = e.do(t, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", body["status"])

	code, body = e.do(t, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestStartRequiresAuth(t *testing.T) {
	e := newEnv(t)

	code, _ := e.do(t, http.MethodPost, "/api/drafts", "", startBody)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = e.do(t, http.MethodPost, "/api/drafts", "p1", startBody)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = e.do(t, http.MethodPost, "/api/drafts", "boss", `{not json`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = e.do(t, http.MethodGet, "/api/drafts/nope", "", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestInteractiveDraftOverHTTP(t *testing.T) {
	e := newEnv(t)

	code, body := e.do(t, http.MethodPost, "/api/drafts", "boss", startBody)
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "h1", body["draftId"])

	code, _ = e.do(t, http.MethodPost, "/api/drafts", "boss", startBody)
	assert.Equal(t, http.StatusConflict, code)

	waitPending := func(kind draft.PromptKind) {
		require.Eventually(t, func() bool {
			_, body := e.do(t, http.MethodGet, "/api/drafts/h1", "", "")
			p, ok := body["pending"].(map[string]any)
			return ok && p["kind"] == string(kind)
		}, 5*time.Second, 5*time.Millisecond)
	}

	waitPending(draft.PromptRoll)
	code, body = e.do(t, http.MethodGet, "/api/drafts/h1/odds", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body["tiers"])

	code, _ = e.do(t, http.MethodPost, "/api/drafts/h1/decide", "stranger", `{"action":"roll"}`)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = e.do(t, http.MethodPost, "/api/drafts/h1/decide", "p1", `{"action":"keep"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = e.do(t, http.MethodPost, "/api/drafts/h1/decide", "p1", `{"action":"roll"}`)
	require.Equal(t, http.StatusAccepted, code)

	waitPending(draft.PromptDecision)
	code, body = e.do(t, http.MethodPost, "/api/drafts/h1/mode", "boss", `{"mode":"auto_silent"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "auto_silent", body["mode"])

	code, _ = e.do(t, http.MethodPost, "/api/drafts/h1/decide", "boss", `{"action":"keep"}`)
	require.Equal(t, http.StatusAccepted, code)

	require.Eventually(t, func() bool {
		_, body := e.do(t, http.MethodGet, "/api/drafts/h1", "", "")
		return body["active"] == false
	}, 5*time.Second, 5*time.Millisecond)

	code, body = e.do(t, http.MethodGet, "/api/drafts/h1/summary", "", "")
	require.Equal(t, http.StatusOK, code)
	standings := body["standings"].([]any)
	require.Len(t, standings, 1)
	assert.Len(t, standings[0].(map[string]any)["roster"], 2)

	code, _ = e.do(t, http.MethodPost, "/api/drafts/h1/resume", "boss", "")
	assert.Equal(t, http.StatusConflict, code)
	code, _ = e.do(t, http.MethodPost, "/api/drafts/h1/mode", "boss", "")
	assert.Equal(t, http.StatusConflict, code)

	code, body = e.do(t, http.MethodGet, "/api/drafts", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{"h1"}, body["drafts"])
}

func TestCatalogEndpoints(t *testing.T) {
	e := newEnv(t)

	code, _ := e.do(t, http.MethodPost, "/api/catalog", "p1", `{"name":"Missingno","tier":20}`)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = e.do(t, http.MethodPost, "/api/catalog", "boss", `{"name":"","tier":20}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = e.do(t, http.MethodPost, "/api/catalog", "boss", `{"name":"Missingno","tier":20}`)
	assert.Equal(t, http.StatusCreated, code)

	req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/api/catalog/import", strings.NewReader("Name,Mega,Tier\nMega Glitch,Y,300\nGlitch,N,20\n"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer boss")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	items, err := e.store.LoadCatalog()
	require.NoError(t, err)
	found := map[string]models.Item{}
	for _, it := range items {
		found[it.Name] = it
	}
	assert.Equal(t, models.Item{Name: "Mega Glitch", Tier: 300, IsMega: true}, found["Mega Glitch"])
	assert.Contains(t, found, "Missingno")
}

func TestTierPullRatesEndpoint(t *testing.T) {
	e := newEnv(t)

	code, body := e.do(t, http.MethodGet, "/api/analytics/tiers?window=1h", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1h0m0s", body["window"])

	code, _ = e.do(t, http.MethodGet, "/api/analytics/tiers?window=soon", "", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSSEStream(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.srv.URL+"/api/events?draftId=x", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, `data: {"type":"connected"}`, lines.Text())

	require.Eventually(t, func() bool { return e.bus.SubscriberCount() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, e.bus.Publish(pubsub.Event{Type: "draft:turn", DraftID: "other"}))
	require.NoError(t, e.bus.Publish(pubsub.Event{Type: "draft:turn", DraftID: "x"}))

	for lines.Scan() {
		if strings.HasPrefix(lines.Text(), "data: ") {
			var ev pubsub.Event
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines.Text(), "data: ")), &ev))
			assert.Equal(t, "x", ev.DraftID)
			return
		}
	}
	t.Fatal("stream ended without an event")
}

func TestWebsocketStream(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(e.srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return e.bus.SubscriberCount() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, e.bus.Publish(pubsub.Event{Type: "draft:pick", DraftID: "w1"}))

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var ev pubsub.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, "draft:pick", ev.Type)
	assert.Equal(t, "w1", ev.DraftID)
}
