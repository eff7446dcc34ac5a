package handlers

import (
	"context"
	"net/http"

	"github.com/newsscrape/engine/internal/domain"
)

// MetricsAggregator is the seam metrics.Aggregator satisfies.
type MetricsAggregator interface {
	Get(ctx context.Context) (domain.DashboardMetrics, error)
}

type MetricsHandler struct {
	aggregator MetricsAggregator
}

func NewMetricsHandler(aggregator MetricsAggregator) *MetricsHandler {
	return &MetricsHandler{aggregator: aggregator}
}

// Dashboard implements GET /api/metrics (§4.8).
func (h *MetricsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	m, err := h.aggregator.Get(r.Context())
	if err != nil {
		WriteErr(w, err)
		return
	}
	JSON(w, http.StatusOK, m)
}
