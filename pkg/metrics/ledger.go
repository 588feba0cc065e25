package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics counts the money-moving events of the order and wallet
// pipelines. A nil receiver records nothing, so services can run unmetered.
type LedgerMetrics struct {
	ordersCreated      prometheus.Counter
	walletTransactions *prometheus.CounterVec
	stockRejections    prometheus.Counter
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders successfully created through checkout.",
	})
	walletTransactions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_transactions_total",
		Help: "Wallet ledger postings by transaction kind.",
	}, []string{"kind"})
	stockRejections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stock_rejections_total",
		Help: "Checkouts rejected for insufficient stock.",
	})
	reg.MustRegister(ordersCreated, walletTransactions, stockRejections)
	return &LedgerMetrics{
		ordersCreated:      ordersCreated,
		walletTransactions: walletTransactions,
		stockRejections:    stockRejections,
	}
}

// IncOrdersCreated counts one successful checkout.
func (m *LedgerMetrics) IncOrdersCreated() {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.Inc()
}

// IncWalletTransaction counts one ledger posting of the given kind.
func (m *LedgerMetrics) IncWalletTransaction(kind string) {
	if m == nil || m.walletTransactions == nil {
		return
	}
	m.walletTransactions.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncStockRejection counts one checkout refused for lack of stock.
func (m *LedgerMetrics) IncStockRejection() {
	if m == nil || m.stockRejections == nil {
		return
	}
	m.stockRejections.Inc()
}
