package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	UpdatesTotal       prometheus.Counter
	TurnsEnqueued      prometheus.Counter
	TurnsProcessed     prometheus.Counter
	TurnsFailed        prometheus.Counter
	TurnsRejected      *prometheus.CounterVec
	AssistantFallbacks prometheus.Counter
	VendorsAdded       prometheus.Counter
	VendorsRemoved     prometheus.Counter
	BudgetItemsAdded   *prometheus.CounterVec
	ContactRequests    *prometheus.CounterVec
}

var (
	once   sync.Once
	global *Metrics
)

// Global returns the process-wide metrics registered with the default
// registerer.
func Global() *Metrics {
	once.Do(func() {
		global = New(prometheus.DefaultRegisterer)
	})
	return global
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		UpdatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feestplanner",
			Name:      "telegram_updates_total",
			Help:      "Total telegram updates received",
		}),
		TurnsEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feestplanner",
			Name:      "assistant_turns_enqueued_total",
			Help:      "Assistant turns enqueued to the redis stream",
		}),
		TurnsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feestplanner",
			Name:      "assistant_turns_processed_total",
			Help:      "Assistant turns answered and delivered",
		}),
		TurnsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feestplanner",
			Name:      "assistant_turns_failed_total",
			Help:      "Assistant turn jobs that failed an attempt",
		}),
		TurnsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feestplanner",
			Name:      "assistant_turns_rejected_total",
			Help:      "Assistant sends rejected before enqueueing",
		}, []string{"reason"}),
		AssistantFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feestplanner",
			Name:      "assistant_fallbacks_total",
			Help:      "Assistant turns answered with a fixed fallback text",
		}),
		VendorsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feestplanner",
			Name:      "vendors_added_total",
			Help:      "Vendors added through the add-vendor form",
		}),
		VendorsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "feestplanner",
			Name:      "vendors_removed_total",
			Help:      "Owned vendors deleted",
		}),
		BudgetItemsAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feestplanner",
			Name:      "budget_items_added_total",
			Help:      "Budget line items added",
		}, []string{"source"}),
		ContactRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feestplanner",
			Name:      "contact_requests_total",
			Help:      "Contact form submissions by outcome",
		}, []string{"status"}),
	}
	reg.MustRegister(
		m.UpdatesTotal,
		m.TurnsEnqueued,
		m.TurnsProcessed,
		m.TurnsFailed,
		m.TurnsRejected,
		m.AssistantFallbacks,
		m.VendorsAdded,
		m.VendorsRemoved,
		m.BudgetItemsAdded,
		m.ContactRequests,
	)
	return m
}
