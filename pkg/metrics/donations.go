package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DonationMetrics tracks the settlement pipeline. Settlement outcomes are
// labelled so duplicate webhook deliveries are visible next to first-time
// completions.
type DonationMetrics struct {
	initiated   prometheus.Counter
	settlements *prometheus.CounterVec
	credited    prometheus.Counter
}

// Settlement outcome label values.
const (
	SettlementApplied   = "applied"
	SettlementDuplicate = "duplicate"
	SettlementCancelled = "cancelled"
	SettlementRejected  = "rejected"
)

// NewDonationMetrics registers the donation metrics on the provided registerer.
func NewDonationMetrics(reg prometheus.Registerer) *DonationMetrics {
	if reg == nil {
		return &DonationMetrics{}
	}
	initiated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "panel_donations_initiated_total",
		Help: "Pending donations created through the purchase endpoint.",
	})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "panel_donation_settlements_total",
		Help: "Webhook settlement attempts by outcome.",
	}, []string{"outcome"})
	credited := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "panel_coins_credited_total",
		Help: "Total coins credited to player balances.",
	})
	reg.MustRegister(initiated, settlements, credited)
	return &DonationMetrics{
		initiated:   initiated,
		settlements: settlements,
		credited:    credited,
	}
}

// IncInitiated counts a freshly created pending donation.
func (d *DonationMetrics) IncInitiated() {
	if d == nil || d.initiated == nil {
		return
	}
	d.initiated.Inc()
}

// IncSettlement counts a settlement attempt with the given outcome label.
func (d *DonationMetrics) IncSettlement(outcome string) {
	if d == nil || d.settlements == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	d.settlements.WithLabelValues(outcome).Inc()
}

// AddCoinsCredited records coins applied to a balance after settlement.
func (d *DonationMetrics) AddCoinsCredited(amount int64) {
	if d == nil || d.credited == nil || amount <= 0 {
		return
	}
	d.credited.Add(float64(amount))
}
