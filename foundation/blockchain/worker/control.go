// Package worker runs the node's three background threads: the
// miner, the transaction generator (plus its mempool-feeding
// sidekick), and the network message handler. All three are driven
// by the store and mempool they share with the rest of the node and
// report progress through an EventHandler the caller supplies.
package worker

// EventHandler is the logging sink every worker reports progress
// through.
type EventHandler func(format string, args ...any)

func noopHandler(string, ...any) {}

// SignalKind names the three control messages the miner and the
// generator accept on their control channel.
type SignalKind int

const (
	// SignalExit asks the worker to stop its loop for good.
	SignalExit SignalKind = iota
	// SignalStart (re)enters the running state at the given pacing.
	SignalStart
	// SignalUpdate asks a running worker to discard its cached view
	// of the chain and re-read it from the store.
	SignalUpdate
)

// Signal is one message sent on a worker's control channel.
type Signal struct {
	Kind SignalKind

	// Lambda is the pacing unit attached to SignalStart: microseconds
	// between mining iterations for the miner, or theta (sleep =
	// theta x 5ms) for the generator.
	Lambda uint64
}

// Exit builds a SignalExit.
func Exit() Signal { return Signal{Kind: SignalExit} }

// Start builds a SignalStart carrying the given pacing value.
func Start(lambda uint64) Signal { return Signal{Kind: SignalStart, Lambda: lambda} }

// Update builds a SignalUpdate.
func Update() Signal { return Signal{Kind: SignalUpdate} }
