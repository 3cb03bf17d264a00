// Package monitoring exposes Prometheus metrics and a health endpoint
// for the trading assistant.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Order flow metrics
	ordersPlacedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_orders_placed_total",
			Help: "Total number of orders placed on the venue",
		},
		[]string{"symbol", "side", "type"},
	)

	riskRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_risk_rejections_total",
			Help: "Total number of trades rejected by risk validation",
		},
		[]string{"reason"},
	)

	orderQuantity = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_order_quantity",
			Help:    "Distribution of placed order quantities",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"symbol"},
	)

	// Portfolio metrics
	portfolioValue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "assistant_portfolio_value",
			Help: "Current portfolio value in quote currency",
		},
	)

	openPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "assistant_open_positions",
			Help: "Number of open positions",
		},
	)

	// Market data metrics
	currentPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "assistant_current_price",
			Help: "Last observed price per symbol",
		},
		[]string{"symbol"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_errors_total",
			Help: "Total number of errors by category",
		},
		[]string{"category"},
	)
)

func init() {
	prometheus.MustRegister(ordersPlacedTotal)
	prometheus.MustRegister(riskRejectionsTotal)
	prometheus.MustRegister(orderQuantity)
	prometheus.MustRegister(portfolioValue)
	prometheus.MustRegister(openPositions)
	prometheus.MustRegister(currentPrice)
	prometheus.MustRegister(errorsTotal)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordOrder records a placed order.
func RecordOrder(symbol, side, orderType string, quantity float64) {
	ordersPlacedTotal.WithLabelValues(symbol, side, orderType).Inc()
	orderQuantity.WithLabelValues(symbol).Observe(quantity)
}

// RecordRiskRejection records a trade declined by risk validation.
func RecordRiskRejection(reason string) {
	riskRejectionsTotal.WithLabelValues(reason).Inc()
}

// UpdatePortfolioValue updates the portfolio value gauge.
func UpdatePortfolioValue(value float64) {
	portfolioValue.Set(value)
}

// UpdateOpenPositions updates the open position count gauge.
func UpdateOpenPositions(count int) {
	openPositions.Set(float64(count))
}

// UpdatePrice updates the last observed price for a symbol.
func UpdatePrice(symbol string, price float64) {
	currentPrice.WithLabelValues(symbol).Set(price)
}

// RecordError records an error by category.
func RecordError(category string) {
	errorsTotal.WithLabelValues(category).Inc()
}
