// Package api exposes the simulation over HTTP: a REST control plane under
// /api/v1, a WebSocket tick stream at /stream and Prometheus metrics at
// /metrics.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/zappabad/marketsim/internal/candle"
	"github.com/zappabad/marketsim/internal/config"
	"github.com/zappabad/marketsim/internal/controller"
	"github.com/zappabad/marketsim/internal/sim"
)

// Server handles the REST API and the WebSocket stream.
type Server struct {
	log  *zap.Logger
	ctrl *controller.Controller
	cfg  config.Server

	router  *mux.Router
	hub     *Hub
	metrics *Metrics
	httpSrv *http.Server

	streamStop func()
}

// NewServer wires routes, metrics and the stream hub. Call Start to serve.
func NewServer(ctrl *controller.Controller, cfg config.Server, log *zap.Logger) *Server {
	s := &Server{
		log:    log,
		ctrl:   ctrl,
		cfg:    cfg,
		router: mux.NewRouter(),
		hub:    NewHub(log),
	}
	registry := prometheus.NewRegistry()
	s.metrics = NewMetrics(registry, ctrl, s.hub)
	s.setupRoutes(registry)
	return s
}

func (s *Server) setupRoutes(registry *prometheus.Registry) {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.countRequests)

	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/state", s.handleState).Methods("GET")
	api.HandleFunc("/metrics", s.handleSimMetrics).Methods("GET")

	api.HandleFunc("/assets", s.handleAssets).Methods("GET")
	api.HandleFunc("/assets/{symbol}", s.handleAsset).Methods("GET")
	api.HandleFunc("/assets/{symbol}/book", s.handleBook).Methods("GET")

	api.HandleFunc("/agents", s.handleAgents).Methods("GET")
	api.HandleFunc("/trades", s.handleTrades).Methods("GET")

	api.HandleFunc("/news", s.handleRecentNews).Methods("GET")
	api.HandleFunc("/news", s.handleInjectNews).Methods("POST")
	api.HandleFunc("/news/history", s.handleNewsHistory).Methods("GET")

	api.HandleFunc("/candles", s.handleAllCandles).Methods("GET")
	api.HandleFunc("/candles/{symbol}", s.handleCandles).Methods("GET")

	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	api.HandleFunc("/orders/{symbol}/{id}", s.handleCancelOrder).Methods("DELETE")

	api.HandleFunc("/control/start", s.handleStart).Methods("POST")
	api.HandleFunc("/control/pause", s.handlePause).Methods("POST")
	api.HandleFunc("/control/stop", s.handleStop).Methods("POST")
	api.HandleFunc("/control/step", s.handleStep).Methods("POST")
	api.HandleFunc("/control/populate", s.handlePopulate).Methods("POST")
	api.HandleFunc("/control/reinitialize", s.handleReinitialize).Methods("POST")
	api.HandleFunc("/control/restore", s.handleRestore).Methods("POST")

	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/config", s.handlePatchConfig).Methods("PUT", "PATCH")
	api.HandleFunc("/config/defaults", s.handleConfigDefaults).Methods("GET")
	api.HandleFunc("/config/reset", s.handleConfigReset).Methods("POST")

	api.HandleFunc("/archive/ticks", s.handleArchiveTicks).Methods("GET")
	api.HandleFunc("/archive/trades", s.handleArchiveTrades).Methods("GET")

	s.router.HandleFunc("/stream", s.handleStream)
	s.router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unknown"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.RequestsTotal.WithLabelValues(r.Method, route).Inc()
		next.ServeHTTP(w, r)
	})
}

// Handler returns the full handler chain, CORS included.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// Start serves until Shutdown. The stream hub and the controller
// subscription run on their own goroutines.
func (s *Server) Start() error {
	go s.hub.Run()
	go s.streamLoop()

	s.httpSrv = &http.Server{Addr: s.cfg.ListenAddr, Handler: s.Handler()}
	s.log.Info("api server starting", zap.String("addr", s.cfg.ListenAddr))
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the HTTP server and the stream.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.streamStop != nil {
		s.streamStop()
	}
	s.hub.Stop()
	if s.httpSrv != nil {
		return s.httpSrv.Shutdown(ctx)
	}
	return nil
}

func (s *Server) streamLoop() {
	id, ch := s.ctrl.Subscribe(64)
	s.streamStop = func() { s.ctrl.Unsubscribe(id) }
	for update := range ch {
		s.hub.Broadcast(update)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, s.ctrl.Status())
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	state := s.ctrl.MarketState()
	respondJSON(w, StateResponse{
		Time:            state.CurrentTime,
		Date:            sim.FormatDateTime(state.CurrentTime),
		State:           s.ctrl.State().String(),
		Prices:          state.Prices,
		Fundamentals:    state.Fundamentals,
		Volumes:         state.Volumes,
		GlobalSentiment: state.GlobalSentiment,
		InterestRate:    state.InterestRate,
	})
}

func (s *Server) handleSimMetrics(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, s.ctrl.Metrics())
}

func (s *Server) handleAssets(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, s.ctrl.Assets())
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	for _, info := range s.ctrl.Assets() {
		if info.Symbol == symbol {
			respondJSON(w, info)
			return
		}
	}
	respondError(w, http.StatusNotFound, "unknown symbol", symbol)
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	depth := queryInt(r, "depth", 10)
	snap, err := s.ctrl.BookSnapshot(symbol, depth)
	if err != nil {
		respondError(w, http.StatusNotFound, "unknown symbol", symbol)
		return
	}
	respondJSON(w, snap)
}

func (s *Server) handleAgents(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, s.ctrl.Agents())
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	count := queryInt(r, "count", 50)
	respondJSON(w, tradeResponses(s.ctrl.RecentTrades(count)))
}

func (s *Server) handleRecentNews(w http.ResponseWriter, r *http.Request) {
	count := queryInt(r, "count", 20)
	respondJSON(w, newsResponses(s.ctrl.RecentNews(count)))
}

func (s *Server) handleNewsHistory(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, newsResponses(s.ctrl.NewsHistory()))
}

func (s *Server) handleInjectNews(w http.ResponseWriter, r *http.Request) {
	var req NewsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	category, ok := sim.ParseNewsCategory(req.Category)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid category", req.Category)
		return
	}
	sentiment, ok := sim.ParseNewsSentiment(req.Sentiment)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid sentiment", req.Sentiment)
		return
	}
	if req.Magnitude < 0 {
		respondError(w, http.StatusBadRequest, "magnitude must be non-negative", "")
		return
	}

	s.ctrl.InjectNews(sim.NewsEvent{
		Category:  category,
		Sentiment: sentiment,
		Industry:  req.Industry,
		Symbol:    req.Symbol,
		Magnitude: req.Magnitude,
		Headline:  req.Headline,
	})
	respondJSON(w, map[string]string{"status": "queued"})
}

func (s *Server) handleCandles(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	iv := candle.ParseInterval(r.URL.Query().Get("interval"))
	since := sim.Timestamp(queryInt(r, "since", 0))
	limit := queryInt(r, "limit", 0)
	respondJSON(w, s.ctrl.Candles(symbol, iv, since, limit))
}

func (s *Server) handleAllCandles(w http.ResponseWriter, r *http.Request) {
	iv := candle.ParseInterval(r.URL.Query().Get("interval"))
	since := sim.Timestamp(queryInt(r, "since", 0))
	respondJSON(w, s.ctrl.AllCandles(iv, since))
}

func (s *Server) knownSymbol(symbol string) bool {
	for _, info := range s.ctrl.Assets() {
		if info.Symbol == symbol {
			return true
		}
	}
	return false
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	side, ok := sim.ParseSide(req.Side)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid side", req.Side)
		return
	}
	typ, ok := sim.ParseOrderType(req.Type)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid order type", req.Type)
		return
	}
	if !s.knownSymbol(req.Symbol) {
		respondError(w, http.StatusNotFound, "unknown symbol", req.Symbol)
		return
	}

	id, filled, avgPrice, err := s.ctrl.SubmitOrder(sim.Order{
		Symbol:   req.Symbol,
		Side:     side,
		Type:     typ,
		Price:    req.Price,
		Quantity: req.Quantity,
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, "order rejected", err.Error())
		return
	}
	respondJSON(w, OrderResponse{
		OrderID:  id,
		Filled:   filled,
		AvgPrice: avgPrice,
		Resting:  req.Quantity - filled,
	})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id", vars["id"])
		return
	}
	cancelled, err := s.ctrl.CancelOrder(vars["symbol"], sim.OrderID(id))
	if err != nil {
		respondError(w, http.StatusNotFound, "cancel failed", err.Error())
		return
	}
	respondJSON(w, CancelResponse{OrderID: sim.OrderID(id), Cancelled: cancelled})
}

func (s *Server) handleStart(w http.ResponseWriter, _ *http.Request) {
	s.controlAction(w, s.ctrl.Start)
}

func (s *Server) handlePause(w http.ResponseWriter, _ *http.Request) {
	s.controlAction(w, s.ctrl.Pause)
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	s.controlAction(w, s.ctrl.Stop)
}

func (s *Server) handlePopulate(w http.ResponseWriter, r *http.Request) {
	var req PopulateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}
	if req.StartDate != "" {
		if _, err := sim.ParseDate(req.StartDate); err != nil {
			respondError(w, http.StatusBadRequest, "invalid start date", err.Error())
			return
		}
		if err := s.ctrl.Restore(req.StartDate, nil); err != nil {
			respondError(w, http.StatusConflict, "restore failed", err.Error())
			return
		}
	}
	if req.Days > 0 {
		fineDays := s.ctrl.Config().Simulation.PopulateFineDays
		if fineDays > req.Days {
			fineDays = req.Days
		}
		patch := fmt.Sprintf(`{"simulation":{"populateDays":%d,"populateFineDays":%d}}`, req.Days, fineDays)
		if _, err := s.ctrl.UpdateConfig([]byte(patch)); err != nil {
			respondError(w, http.StatusBadRequest, "config rejected", err.Error())
			return
		}
	}
	s.controlAction(w, s.ctrl.Populate)
}

func (s *Server) handleReinitialize(w http.ResponseWriter, _ *http.Request) {
	s.controlAction(w, s.ctrl.Reinitialize)
}

func (s *Server) controlAction(w http.ResponseWriter, action func() error) {
	if err := action(); err != nil {
		respondError(w, http.StatusConflict, "control action failed", err.Error())
		return
	}
	respondJSON(w, s.ctrl.Status())
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	req := StepRequest{Count: 1}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}
	if err := s.ctrl.Step(req.Count); err != nil {
		respondError(w, http.StatusConflict, "step failed", err.Error())
		return
	}
	respondJSON(w, s.ctrl.Status())
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	var req RestoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := s.ctrl.Restore(req.Date, req.Prices); err != nil {
		respondError(w, http.StatusBadRequest, "restore failed", err.Error())
		return
	}
	respondJSON(w, s.ctrl.Status())
}

func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, s.ctrl.Config())
}

func (s *Server) handleConfigDefaults(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, config.DefaultConfig())
}

func (s *Server) handleConfigReset(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, s.ctrl.ResetConfig())
}

func (s *Server) handlePatchConfig(w http.ResponseWriter, r *http.Request) {
	var patch json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	cfg, err := s.ctrl.UpdateConfig(patch)
	if err != nil {
		respondError(w, http.StatusBadRequest, "config rejected", err.Error())
		return
	}
	respondJSON(w, cfg)
}

func (s *Server) handleArchiveTicks(w http.ResponseWriter, r *http.Request) {
	from := sim.Timestamp(queryInt(r, "from", 0))
	to := sim.Timestamp(queryInt(r, "to", 0))
	limit := queryInt(r, "limit", 1000)
	recs, err := s.ctrl.ArchiveTicks(from, to, limit)
	if err != nil {
		respondError(w, http.StatusConflict, "archive unavailable", err.Error())
		return
	}
	respondJSON(w, recs)
}

func (s *Server) handleArchiveTrades(w http.ResponseWriter, r *http.Request) {
	from := sim.Timestamp(queryInt(r, "from", 0))
	to := sim.Timestamp(queryInt(r, "to", 0))
	limit := queryInt(r, "limit", 1000)
	trades, err := s.ctrl.ArchiveTrades(from, to, limit)
	if err != nil {
		respondError(w, http.StatusConflict, "archive unavailable", err.Error())
		return
	}
	respondJSON(w, tradeResponses(trades))
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, errMsg, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: errMsg, Message: detail})
}
