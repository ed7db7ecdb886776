package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rello/rello-backend/internal/domain"
)

// Collector exposes settlement core state as Prometheus metrics. Counts
// are read from the store on scrape rather than tracked in memory, so
// multiple instances over one database report the same numbers.
type Collector struct {
	payoutRepo   domain.OutgoingTransferRepository
	incomingRepo domain.IncomingTransferRepository

	payoutsByStatus   *prometheus.Desc
	incomingTotal     *prometheus.Desc
	incomingConfirmed *prometheus.Desc
}

// NewCollector creates a collector over the transfer repositories
func NewCollector(payoutRepo domain.OutgoingTransferRepository, incomingRepo domain.IncomingTransferRepository) *Collector {
	return &Collector{
		payoutRepo:   payoutRepo,
		incomingRepo: incomingRepo,
		payoutsByStatus: prometheus.NewDesc(
			"rello_payouts_total",
			"Outgoing transfers by status",
			[]string{"status"}, nil,
		),
		incomingTotal: prometheus.NewDesc(
			"rello_incoming_transfers_total",
			"Detected inbound transfers",
			nil, nil,
		),
		incomingConfirmed: prometheus.NewDesc(
			"rello_incoming_transfers_confirmed_total",
			"Inbound transfers that reached the confirmation threshold",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.payoutsByStatus
	ch <- c.incomingTotal
	ch <- c.incomingConfirmed
}

// Collect implements prometheus.Collector. A failed repository read drops
// the affected metrics from the scrape instead of failing it.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if counts, err := c.payoutRepo.CountByStatus(ctx); err == nil {
		for status, count := range counts {
			ch <- prometheus.MustNewConstMetric(c.payoutsByStatus, prometheus.GaugeValue, float64(count), string(status))
		}
	}

	if counts, err := c.incomingRepo.Counts(ctx); err == nil {
		ch <- prometheus.MustNewConstMetric(c.incomingTotal, prometheus.GaugeValue, float64(counts.Total))
		ch <- prometheus.MustNewConstMetric(c.incomingConfirmed, prometheus.GaugeValue, float64(counts.Confirmed))
	}
}
