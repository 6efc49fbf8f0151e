// Package mempool holds verified-but-unconfirmed transactions: a FIFO
// queue of hashes eligible for local mining, and a map from hash to
// the full signed transaction it names.
package mempool

import (
	"errors"
	"sync"

	"github.com/qcbit/powchain/foundation/blockchain/database"
	"github.com/qcbit/powchain/foundation/blockchain/hash"
)

// ErrEmptyQueue is returned by Dequeue when there is nothing queued
// for mining.
var ErrEmptyQueue = errors.New("mempool queue is empty")

// Mempool is the mutex-protected transaction pool.
type Mempool struct {
	mu    sync.Mutex
	queue []hash.H256
	txs   map[hash.H256]database.SignedTransaction
}

// New constructs an empty Mempool.
func New() *Mempool {
	return &Mempool{
		txs: make(map[hash.H256]database.SignedTransaction),
	}
}

// Insert verifies tx's signature and, if valid, adds it to the map.
// When pushInQueue is true the transaction is also appended to the
// FIFO mining queue. pushInQueue is true for transactions generated
// locally or received as direct transaction gossip, and false for
// transactions merely learned about because they appeared inside a
// received block. An invalid signature is dropped silently, matching
// the error-handling design's "drop the offending transaction" rule.
func (m *Mempool) Insert(tx database.SignedTransaction, pushInQueue bool) {
	if !tx.Verify() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	h := tx.Hash()
	if _, known := m.txs[h]; !known {
		m.txs[h] = tx
	}
	if pushInQueue {
		m.queue = append(m.queue, h)
	}
}

// Dequeue pops the front of the FIFO queue and returns the full
// transaction it names. The transaction remains in the map (it may
// still be looked up by hash, e.g. to serve GetTransactions) — only
// its queue entry is consumed.
func (m *Mempool) Dequeue() (database.SignedTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.queue) > 0 {
		h := m.queue[0]
		m.queue = m.queue[1:]

		if tx, ok := m.txs[h]; ok {
			return tx, nil
		}
		// The transaction was evicted from the map after being
		// queued; skip it and try the next one.
	}

	return database.SignedTransaction{}, ErrEmptyQueue
}

// DequeueUpTo pops at most n transactions off the queue in FIFO
// order. Fewer than n are returned if the queue empties first.
func (m *Mempool) DequeueUpTo(n int) []database.SignedTransaction {
	out := make([]database.SignedTransaction, 0, n)
	for i := 0; i < n; i++ {
		tx, err := m.Dequeue()
		if err != nil {
			break
		}
		out = append(out, tx)
	}
	return out
}

// IsHashPresent reports whether h names a transaction already known
// to the mempool (regardless of whether it is still queued).
func (m *Mempool) IsHashPresent(h hash.H256) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.txs[h]
	return ok
}

// GetTransaction looks up a transaction by hash.
func (m *Mempool) GetTransaction(h hash.H256) (database.SignedTransaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[h]
	return tx, ok
}

// QueueLength reports how many hashes are currently queued for
// mining.
func (m *Mempool) QueueLength() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}
