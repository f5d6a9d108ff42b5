package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Mutations counts roster changes applied by this process, by operation.
	Mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grower_mutations_total",
		Help: "Roster mutations applied, by operation.",
	}, []string{"op"})

	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grower_persist_failures_total",
		Help: "Roster or expiry writes that failed.",
	})

	AuthFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grower_auth_failures_total",
		Help: "PIN entries that matched no role.",
	})

	RemoteSnapshots = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grower_remote_snapshots_total",
		Help: "Roster snapshots received from other sessions.",
	})
)
