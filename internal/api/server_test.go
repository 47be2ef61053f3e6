package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zappabad/marketsim/internal/agent"
	"github.com/zappabad/marketsim/internal/config"
	"github.com/zappabad/marketsim/internal/controller"
	"github.com/zappabad/marketsim/internal/sim"
)

func testServer(t *testing.T) (*Server, *controller.Controller) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Simulation.TicksPerDay = 1000
	cfg.Simulation.TickRateMs = 2
	cfg.Counts = agent.Counts{Fundamental: 2, Noise: 2, MarketMaker: 1}
	cfg.Instruments = []config.Instrument{
		{Symbol: "ACME", Name: "Acme Corp", Industry: "TECH", InitialPrice: 100, Volatility: 0.02, SharesOutstanding: 1_000_000},
	}
	cfg.CrossEffects = nil
	cfg.Server.ArchiveEnabled = false

	ctrl, err := controller.New(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctrl.Close() })

	return NewServer(ctrl, cfg.Server, zap.NewNop()), ctrl
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	s, _ := testServer(t)
	rec := doJSON(t, s.Handler(), "GET", "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestStatusAndState(t *testing.T) {
	s, ctrl := testServer(t)
	require.NoError(t, ctrl.Step(3))

	rec := doJSON(t, s.Handler(), "GET", "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[controller.Status](t, rec)
	assert.Equal(t, uint64(3), status.TotalTicks)
	assert.Equal(t, "STOPPED", status.State)

	rec = doJSON(t, s.Handler(), "GET", "/api/v1/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[StateResponse](t, rec)
	assert.Contains(t, state.Prices, "ACME")
}

func TestAssetsEndpoints(t *testing.T) {
	s, _ := testServer(t)
	h := s.Handler()

	rec := doJSON(t, h, "GET", "/api/v1/assets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assets := decode[[]controller.AssetInfo](t, rec)
	require.Len(t, assets, 1)
	assert.Equal(t, "ACME", assets[0].Symbol)

	rec = doJSON(t, h, "GET", "/api/v1/assets/ACME", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, "GET", "/api/v1/assets/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderLifecycle(t *testing.T) {
	s, _ := testServer(t)
	h := s.Handler()

	rec := doJSON(t, h, "POST", "/api/v1/orders", OrderRequest{
		Symbol: "ACME", Side: "BUY", Type: "LIMIT", Price: 95, Quantity: 10,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	placed := decode[OrderResponse](t, rec)
	assert.Zero(t, placed.Filled)
	assert.Equal(t, sim.Volume(10), placed.Resting)

	rec = doJSON(t, h, "GET", "/api/v1/assets/ACME/book?depth=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[sim.BookSnapshot](t, rec)
	require.NotEmpty(t, snap.Bids)
	assert.Equal(t, sim.Price(95), snap.BestBid)

	rec = doJSON(t, h, "DELETE", "/api/v1/orders/ACME/"+placed.OrderID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cancelled := decode[CancelResponse](t, rec)
	assert.Equal(t, sim.Volume(10), cancelled.Cancelled)

	rec = doJSON(t, h, "DELETE", "/api/v1/orders/ACME/"+placed.OrderID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderValidation(t *testing.T) {
	s, _ := testServer(t)
	h := s.Handler()

	rec := doJSON(t, h, "POST", "/api/v1/orders", OrderRequest{Symbol: "ACME", Side: "SIDEWAYS", Type: "LIMIT", Price: 1, Quantity: 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown symbols are a 404 like the other symbol-scoped routes.
	rec = doJSON(t, h, "POST", "/api/v1/orders", OrderRequest{Symbol: "NOPE", Side: "BUY", Type: "MARKET", Quantity: 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewsInjectAndRead(t *testing.T) {
	s, ctrl := testServer(t)
	h := s.Handler()

	rec := doJSON(t, h, "POST", "/api/v1/news", NewsRequest{
		Category: "COMPANY", Sentiment: "POSITIVE", Symbol: "ACME", Magnitude: 0.3,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, ctrl.Step(1))

	rec = doJSON(t, h, "GET", "/api/v1/news?count=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events := decode[[]NewsEventResponse](t, rec)
	found := false
	for _, ev := range events {
		if ev.Symbol == "ACME" && ev.Magnitude == 0.3 {
			found = true
			assert.Equal(t, "COMPANY", ev.Category)
			assert.NotEmpty(t, ev.Headline)
		}
	}
	assert.True(t, found)

	rec = doJSON(t, h, "POST", "/api/v1/news", NewsRequest{Category: "WEATHER", Sentiment: "POSITIVE"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestControlFlow(t *testing.T) {
	s, ctrl := testServer(t)
	h := s.Handler()

	rec := doJSON(t, h, "POST", "/api/v1/control/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "RUNNING", decode[controller.Status](t, rec).State)

	// Step during a live run conflicts.
	rec = doJSON(t, h, "POST", "/api/v1/control/step", StepRequest{Count: 1})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, "POST", "/api/v1/control/stop", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, controller.StateStopped, ctrl.State())

	before := ctrl.Status().TotalTicks
	rec = doJSON(t, h, "POST", "/api/v1/control/step", StepRequest{Count: 3})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, before+3, ctrl.Status().TotalTicks)
}

func TestConfigEndpoints(t *testing.T) {
	s, _ := testServer(t)
	h := s.Handler()

	rec := doJSON(t, h, "PATCH", "/api/v1/config", map[string]any{
		"simulation": map[string]any{"tickRateMs": 9},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	cfg := decode[config.Config](t, rec)
	assert.Equal(t, 9, cfg.Simulation.TickRateMs)

	rec = doJSON(t, h, "PATCH", "/api/v1/config", map[string]any{
		"simulation": map[string]any{"ticksPerDay": -1},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, "GET", "/api/v1/config/defaults", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, "POST", "/api/v1/config/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cfg = decode[config.Config](t, rec)
	assert.Equal(t, config.DefaultConfig().Simulation.TickRateMs, cfg.Simulation.TickRateMs)
}

func TestCandlesEndpoint(t *testing.T) {
	s, ctrl := testServer(t)
	require.NoError(t, ctrl.Step(5))

	rec := doJSON(t, s.Handler(), "GET", "/api/v1/candles/ACME?interval=1d", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s.Handler(), "GET", "/api/v1/candles?interval=1d", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	bulk := decode[map[string][]sim.Candle](t, rec)
	assert.Contains(t, bulk, "ACME")
}

func TestPopulateWithOverrides(t *testing.T) {
	s, ctrl := testServer(t)
	h := s.Handler()

	rec := doJSON(t, h, "POST", "/api/v1/control/populate", PopulateRequest{Days: 2, StartDate: "2024-06-03"})
	require.Equal(t, http.StatusOK, rec.Code)

	deadline := time.Now().Add(10 * time.Second)
	for ctrl.State() == controller.StatePopulating && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, controller.StatePaused, ctrl.State())

	status := ctrl.Status()
	assert.Equal(t, status.PopulateTotal, status.PopulateDone)
	assert.Positive(t, status.TotalTicks)
	// Two simulated days from the override start date.
	assert.True(t, strings.HasPrefix(status.Date, "2024-06-05"))

	rec = doJSON(t, h, "GET", "/api/v1/candles?interval=1d", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	bulk := decode[map[string][]sim.Candle](t, rec)
	assert.NotEmpty(t, bulk["ACME"])

	rec = doJSON(t, h, "POST", "/api/v1/control/populate", PopulateRequest{StartDate: "not-a-date"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArchiveUnavailable(t *testing.T) {
	s, _ := testServer(t)
	rec := doJSON(t, s.Handler(), "GET", "/api/v1/archive/ticks", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPrometheusEndpoint(t *testing.T) {
	s, _ := testServer(t)
	h := s.Handler()

	// Touch an API route so the request counter has a sample.
	doJSON(t, h, "GET", "/api/v1/status", nil)

	rec := doJSON(t, h, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "marketsim_ticks_total")
	assert.Contains(t, body, "marketsim_api_requests_total")
}

func TestStreamDeliversTickUpdates(t *testing.T) {
	s, ctrl := testServer(t)
	go s.hub.Run()
	go s.streamLoop()
	defer s.hub.Stop()

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the hub time to register the client before stepping.
	deadline := time.Now().Add(2 * time.Second)
	for s.hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.NoError(t, ctrl.Step(1))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var update controller.TickUpdate
	require.NoError(t, conn.ReadJSON(&update))
	assert.Contains(t, update.Prices, "ACME")
}
