// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by services and workers.
type Recorder interface {
	RecordRegistration()
	RecordLogin(success bool)
	RecordTokenRejected(reason string)
	RecordTokenRevoked()
	RecordRevocationsPurged(n int64)
	RecordBookMutation(op string)
	RecordFavoriteMutation(op string)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	registrations prometheus.Counter
	logins        *prometheus.CounterVec
	rejected      *prometheus.CounterVec
	revoked       prometheus.Counter
	purged        prometheus.Counter
	books         *prometheus.CounterVec
	favorites     *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "elibrary_registrations_total",
			Help: "Accounts created.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elibrary_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elibrary_tokens_rejected_total",
			Help: "Bearer tokens rejected by the gate, by reason.",
		}, []string{"reason"}),
		revoked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "elibrary_tokens_revoked_total",
			Help: "Tokens added to the revocation list.",
		}),
		purged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "elibrary_revocations_purged_total",
			Help: "Expired revocation entries deleted by the purge sweep.",
		}),
		books: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elibrary_book_mutations_total",
			Help: "Book writes by operation.",
		}, []string{"op"}),
		favorites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "elibrary_favorite_mutations_total",
			Help: "Favorite writes by operation.",
		}, []string{"op"}),
	}
	reg.MustRegister(c.registrations, c.logins, c.rejected, c.revoked, c.purged, c.books, c.favorites)
	return c
}

func (c *Collector) RecordRegistration() { c.registrations.Inc() }

func (c *Collector) RecordLogin(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.logins.WithLabelValues(result).Inc()
}

func (c *Collector) RecordTokenRejected(reason string) { c.rejected.WithLabelValues(reason).Inc() }

func (c *Collector) RecordTokenRevoked() { c.revoked.Inc() }

// RecordRevocationsPurged adds n to the purge counter; non-positive n is ignored.
func (c *Collector) RecordRevocationsPurged(n int64) {
	if n > 0 {
		c.purged.Add(float64(n))
	}
}

func (c *Collector) RecordBookMutation(op string) { c.books.WithLabelValues(op).Inc() }

func (c *Collector) RecordFavoriteMutation(op string) { c.favorites.WithLabelValues(op).Inc() }

// Handler serves the metrics gathered by g in the exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordRegistration() {}
func (Nop) RecordLogin(bool) {}
func (Nop) RecordTokenRejected(string) {}
func (Nop) RecordTokenRevoked() {}
func (Nop) RecordRevocationsPurged(int64) {}
func (Nop) RecordBookMutation(string) {}
func (Nop) RecordFavoriteMutation(string) {}
