package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zappabad/marketsim/internal/controller"
)

// Metrics exposes simulation and API counters to Prometheus. Registered on
// the server's own registry so multiple servers can coexist in tests.
type Metrics struct {
	RequestsTotal *prometheus.CounterVec
	StreamClients prometheus.GaugeFunc
}

// NewMetrics registers all collectors on reg. Simulation totals are pulled
// from the controller at scrape time.
func NewMetrics(reg prometheus.Registerer, ctrl *controller.Controller, hub *Hub) *Metrics {
	factory := promauto.With(reg)

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "marketsim",
		Name:      "ticks_total",
		Help:      "Simulation ticks elapsed",
	}, func() float64 { return float64(ctrl.Status().TotalTicks) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "marketsim",
		Name:      "orders_total",
		Help:      "Orders submitted across all books",
	}, func() float64 { return float64(ctrl.Status().TotalOrders) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "marketsim",
		Name:      "trades_total",
		Help:      "Trades executed across all books",
	}, func() float64 { return float64(ctrl.Status().TotalTrades) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "marketsim",
		Name:      "running",
		Help:      "1 when the tick loop is live",
	}, func() float64 {
		if ctrl.State() == controller.StateRunning {
			return 1
		}
		return 0
	})

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketsim",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "API requests by method and route",
		}, []string{"method", "route"}),
		StreamClients: factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "marketsim",
			Subsystem: "api",
			Name:      "stream_clients",
			Help:      "Connected WebSocket stream clients",
		}, hub.clientCountF()),
	}
}

func (h *Hub) clientCountF() func() float64 {
	return func() float64 { return float64(h.ClientCount()) }
}
