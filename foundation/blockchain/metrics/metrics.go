// Package metrics exposes the node's prometheus gauges and counters:
// chain height, mempool depth, and running totals for mined blocks,
// generated transactions, and peer messages handled.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ChainHeight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "powchain",
		Name:      "chain_height",
		Help:      "Height of the current longest chain tip.",
	})

	MempoolDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "powchain",
		Name:      "mempool_depth",
		Help:      "Number of transactions currently queued for mining.",
	})

	KnownPeers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "powchain",
		Name:      "known_peers",
		Help:      "Number of peers known to this node.",
	})

	BlocksMined = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "powchain",
		Name:      "blocks_mined_total",
		Help:      "Total blocks this node solved the proof of work for.",
	})

	BlocksAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "powchain",
		Name:      "blocks_accepted_total",
		Help:      "Total blocks, mined locally or received, accepted into the chain.",
	})

	TransactionsGenerated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "powchain",
		Name:      "transactions_generated_total",
		Help:      "Total transactions produced by the local transaction generator.",
	})

	PeerMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "powchain",
		Name:      "peer_messages_total",
		Help:      "Peer protocol messages handled, by message type.",
	}, []string{"type"})
)

func init() {
	prometheus.MustRegister(
		ChainHeight,
		MempoolDepth,
		KnownPeers,
		BlocksMined,
		BlocksAccepted,
		TransactionsGenerated,
		PeerMessages,
	)
}

// Handler returns an HTTP handler for the /debug/metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
