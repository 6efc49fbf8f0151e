package worker

import (
	"context"
	"time"

	"github.com/qcbit/powchain/foundation/blockchain/database"
	"github.com/qcbit/powchain/foundation/blockchain/genesis"
	"github.com/qcbit/powchain/foundation/blockchain/hash"
	"github.com/qcbit/powchain/foundation/blockchain/ledger"
	"github.com/qcbit/powchain/foundation/blockchain/mempool"
	"github.com/qcbit/powchain/foundation/blockchain/metrics"
	"github.com/qcbit/powchain/foundation/blockchain/store"
)

// Miner runs the proof-of-work mining loop on its own goroutine,
// driven by a control state machine: Paused blocks on the control
// channel, Run polls it non-blockingly between iterations so a
// Start/Update/Exit signal is never missed for long.
type Miner struct {
	store     *store.Store
	pool      *mempool.Mempool
	finished  chan<- database.Block
	control   chan Signal
	evHandler EventHandler

	running    bool
	lambda     uint64
	parentHash hash.H256
	state      ledger.State
	difficulty hash.H256
}

// NewMiner constructs a Miner paused and waiting on its control
// channel. finished receives every block the miner solves; it should
// be drained by the node's block-acceptance path (inserting into the
// store and broadcasting).
func NewMiner(st *store.Store, pool *mempool.Mempool, finished chan<- database.Block, ev EventHandler) *Miner {
	if ev == nil {
		ev = noopHandler
	}
	return &Miner{
		store:     st,
		pool:      pool,
		finished:  finished,
		control:   make(chan Signal, 1),
		evHandler: ev,
	}
}

// Control returns the channel used to send this miner Start/Update/
// Exit signals.
func (m *Miner) Control() chan<- Signal { return m.control }

// Run drives the mining loop until ctx is cancelled or Exit is
// signaled.
func (m *Miner) Run(ctx context.Context) {
	m.evHandler("miner: Run: started")
	defer m.evHandler("miner: Run: completed")

	m.refresh()

	for {
		if !m.running {
			select {
			case sig := <-m.control:
				if !m.handle(sig) {
					return
				}
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case sig := <-m.control:
			if !m.handle(sig) {
				return
			}
			continue
		case <-ctx.Done():
			return
		default:
		}

		m.mineOnce(ctx)

		if m.lambda > 0 {
			time.Sleep(time.Duration(m.lambda) * time.Microsecond)
		}
	}
}

// handle applies a control signal and reports whether the loop
// should keep running.
func (m *Miner) handle(sig Signal) bool {
	switch sig.Kind {
	case SignalExit:
		m.evHandler("miner: handle: EXIT")
		return false

	case SignalStart:
		m.lambda = sig.Lambda
		m.running = true
		m.refresh()
		m.evHandler("miner: handle: START: lambda[%d]", sig.Lambda)

	case SignalUpdate:
		m.refresh()
		m.evHandler("miner: handle: UPDATE: parent[%s]", m.parentHash)
	}
	return true
}

// refresh discards the optimistic chain head and re-reads tip,
// state, and difficulty from the store.
func (m *Miner) refresh() {
	m.parentHash = m.store.Tip()
	m.state = m.store.TipState()
	m.difficulty = genesis.Difficulty()
	if tip, err := m.store.GetBlock(m.parentHash); err == nil {
		m.difficulty = tip.Header.Difficulty
	}
}

// mineOnce runs one mining iteration: collect candidate transactions
// from the mempool and, only if at least one was collected, search
// for a proof of work and hand the resulting block off on the
// finished channel.
func (m *Miner) mineOnce(ctx context.Context) {
	content, nextState := m.collect()
	if len(content) == 0 {
		return
	}

	block, err := database.POW(ctx, database.POWArgs{
		ParentHash: m.parentHash,
		Difficulty: m.difficulty,
		Content:    content,
		EvHandler:  m.evHandler,
	})
	if err != nil {
		m.evHandler("miner: mineOnce: %s", err)
		return
	}

	metrics.BlocksMined.Inc()

	select {
	case m.finished <- block:
	case <-ctx.Done():
		return
	}

	// Optimistic chain extension: keep mining on top of the block
	// just produced without waiting for it to round-trip through the
	// store.
	m.parentHash = block.Hash()
	m.state = nextState
}

// collect drains up to genesis.MaxTransactionsPerBlock candidates
// from the mempool, applying each speculatively against a running
// copy of state. The first candidate that fails to apply ends
// collection; it is not re-enqueued (Dequeue already removed it from
// the queue, leaving it in the map for later lookup).
func (m *Miner) collect() (database.Content, ledger.State) {
	state := m.state
	var content database.Content

	for len(content) < genesis.MaxTransactionsPerBlock {
		tx, err := m.pool.Dequeue()
		if err != nil {
			break
		}

		next, err := state.Apply([]database.SignedTransaction{tx})
		if err != nil {
			m.evHandler("miner: collect: dropping %s: %s", tx.Hash(), err)
			break
		}

		state = next
		content = append(content, tx)
	}

	return content, state
}
