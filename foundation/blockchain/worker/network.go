package worker

import (
	"context"

	"github.com/qcbit/powchain/foundation/blockchain/database"
	"github.com/qcbit/powchain/foundation/blockchain/hash"
	"github.com/qcbit/powchain/foundation/blockchain/mempool"
	"github.com/qcbit/powchain/foundation/blockchain/message"
	"github.com/qcbit/powchain/foundation/blockchain/metrics"
	"github.com/qcbit/powchain/foundation/blockchain/peer"
	"github.com/qcbit/powchain/foundation/blockchain/store"
)

// Inbound is one message lifted off a peer connection: the still-
// encoded bytes and a handle for replying to that same peer. The
// connection itself (framing, handshake) is not this package's
// concern.
type Inbound struct {
	Raw    []byte
	Sender peer.Handle
}

// NetworkWorker processes inbound peer messages against a store and
// mempool it shares with every other network worker and with the
// miner and generator. Each worker owns its own orphan buffer, so a
// block whose parent hasn't arrived yet is only ever visible to the
// worker that received it (and to peers it forwards the hash to, who
// may already have the parent).
type NetworkWorker struct {
	store     *store.Store
	pool      *mempool.Mempool
	server    peer.Server
	evHandler EventHandler

	minerControl     chan<- Signal
	generatorControl chan<- Signal

	buffer map[hash.H256]database.Block
}

// NewNetworkWorker constructs a NetworkWorker with an empty orphan
// buffer. minerControl and generatorControl receive a non-blocking
// Update signal whenever this worker inserts a block that moves the
// store's tip, so the local miner and generator never keep mining or
// spending against a chain head a peer has already superseded.
func NewNetworkWorker(st *store.Store, pool *mempool.Mempool, srv peer.Server, minerControl, generatorControl chan<- Signal, ev EventHandler) *NetworkWorker {
	if ev == nil {
		ev = noopHandler
	}
	return &NetworkWorker{
		store:            st,
		pool:             pool,
		server:           srv,
		evHandler:        ev,
		minerControl:     minerControl,
		generatorControl: generatorControl,
		buffer:           make(map[hash.H256]database.Block),
	}
}

// RunNetworkWorkers starts n NetworkWorker goroutines, each with its
// own orphan buffer, all reading from the shared inbound channel.
func RunNetworkWorkers(ctx context.Context, n int, ch <-chan Inbound, st *store.Store, pool *mempool.Mempool, srv peer.Server, minerControl, generatorControl chan<- Signal, ev EventHandler) {
	for i := 0; i < n; i++ {
		w := NewNetworkWorker(st, pool, srv, minerControl, generatorControl, ev)
		go w.Run(ctx, ch)
	}
}

// signalTipChanged notifies the local miner and generator that the
// store's tip moved out from under them, without blocking if either
// control channel is momentarily full or nil.
func (w *NetworkWorker) signalTipChanged() {
	if w.minerControl != nil {
		select {
		case w.minerControl <- Update():
		default:
		}
	}
	if w.generatorControl != nil {
		select {
		case w.generatorControl <- Update():
		default:
		}
	}
}

// Run processes inbound messages from ch until ctx is cancelled.
func (w *NetworkWorker) Run(ctx context.Context, ch <-chan Inbound) {
	w.evHandler("networkWorker: Run: started")
	defer w.evHandler("networkWorker: Run: completed")

	for {
		select {
		case in := <-ch:
			w.handle(in)
		case <-ctx.Done():
			return
		}
	}
}

func (w *NetworkWorker) handle(in Inbound) {
	decoded, err := message.Decode(in.Raw)
	if err != nil {
		w.evHandler("networkWorker: handle: decode: %s", err)
		return
	}

	switch decoded.Type {
	case message.TypePing:
		metrics.PeerMessages.WithLabelValues("ping").Inc()
		w.handlePing(decoded.Ping, in.Sender)

	case message.TypePong:
		metrics.PeerMessages.WithLabelValues("pong").Inc()
		w.evHandler("networkWorker: pong: nonce[%s] from[%s]", decoded.Pong.Nonce, in.Sender.Host())

	case message.TypeNewBlockHashes:
		metrics.PeerMessages.WithLabelValues("new_block_hashes").Inc()
		w.handleNewBlockHashes(decoded.NewBlockHashes, in.Sender)

	case message.TypeGetBlocks:
		metrics.PeerMessages.WithLabelValues("get_blocks").Inc()
		w.handleGetBlocks(decoded.GetBlocks, in.Sender)

	case message.TypeBlocks:
		metrics.PeerMessages.WithLabelValues("blocks").Inc()
		w.handleBlocks(decoded.Blocks)

	case message.TypeNewTransactionHashes:
		metrics.PeerMessages.WithLabelValues("new_transaction_hashes").Inc()
		w.handleNewTransactionHashes(decoded.NewTransactionHashes, in.Sender)

	case message.TypeGetTransactions:
		metrics.PeerMessages.WithLabelValues("get_transactions").Inc()
		w.handleGetTransactions(decoded.GetTransactions, in.Sender)

	case message.TypeTransactions:
		metrics.PeerMessages.WithLabelValues("transactions").Inc()
		w.handleTransactions(decoded.Transactions)
	}
}

func (w *NetworkWorker) handlePing(m message.Ping, sender peer.Handle) {
	raw, err := message.EncodePong(message.Pong{Nonce: m.Nonce})
	if err != nil {
		w.evHandler("networkWorker: handlePing: encode: %s", err)
		return
	}
	if err := sender.Write(raw); err != nil {
		w.evHandler("networkWorker: handlePing: write: %s", err)
	}
}

func (w *NetworkWorker) handleNewBlockHashes(m message.NewBlockHashes, sender peer.Handle) {
	var missing []hash.H256
	for _, h := range m.Hashes {
		if !w.store.IsHashPresent(h) {
			missing = append(missing, h)
		}
	}
	if len(missing) == 0 {
		return
	}

	raw, err := message.EncodeGetBlocks(message.GetBlocks{Hashes: missing})
	if err != nil {
		w.evHandler("networkWorker: handleNewBlockHashes: encode: %s", err)
		return
	}
	if err := sender.Write(raw); err != nil {
		w.evHandler("networkWorker: handleNewBlockHashes: write: %s", err)
	}
}

func (w *NetworkWorker) handleGetBlocks(m message.GetBlocks, sender peer.Handle) {
	var found []database.Block
	for _, h := range m.Hashes {
		if blk, err := w.store.GetBlock(h); err == nil {
			found = append(found, blk)
			continue
		}
		if blk, ok := w.buffer[h]; ok {
			found = append(found, blk)
		}
	}
	if len(found) == 0 {
		return
	}

	raw, err := message.EncodeBlocks(message.Blocks{Blocks: found})
	if err != nil {
		w.evHandler("networkWorker: handleGetBlocks: encode: %s", err)
		return
	}
	if err := sender.Write(raw); err != nil {
		w.evHandler("networkWorker: handleGetBlocks: write: %s", err)
	}
}

// blockOutcome records what processBlock decided for one received
// block: whether its hash should be rebroadcast, and whether its
// parent hash needs to be requested from the batch's peers.
type blockOutcome struct {
	rebroadcast bool
	needParent  bool
}

func (w *NetworkWorker) handleBlocks(m message.Blocks) {
	var rebroadcast []hash.H256
	needParents := make(map[hash.H256]struct{})

	for _, blk := range m.Blocks {
		outcome := w.processBlock(blk)
		if outcome.rebroadcast {
			rebroadcast = append(rebroadcast, blk.Hash())
		}
		if outcome.needParent {
			needParents[blk.Header.ParentHash] = struct{}{}
		}
	}

	w.drainOrphans(&rebroadcast)

	if len(needParents) > 0 {
		hashes := make([]hash.H256, 0, len(needParents))
		for h := range needParents {
			hashes = append(hashes, h)
		}
		w.broadcastGetBlocks(hashes)
	}
	if len(rebroadcast) > 0 {
		w.broadcastNewBlockHashes(rebroadcast)
	}
}

// processBlock runs the per-block validation pipeline: signature
// checks, proof-of-work, and either insertion (parent known, same
// difficulty) or orphan buffering (parent unknown). Every transaction
// of a block that is inserted or newly buffered is learned into the
// mempool with pushInQueue=false; a dropped block's transactions are
// not.
func (w *NetworkWorker) processBlock(blk database.Block) blockOutcome {
	for _, tx := range blk.Content {
		if !tx.Verify() {
			w.evHandler("networkWorker: processBlock: invalid transaction signature, dropping block %s", blk.Hash())
			return blockOutcome{}
		}
	}

	h := blk.Hash()
	if !blk.IsProofOfWorkSolved() {
		w.evHandler("networkWorker: processBlock: proof of work not solved, dropping block %s", h)
		return blockOutcome{}
	}
	if w.store.IsHashPresent(h) {
		return blockOutcome{}
	}

	var outcome blockOutcome

	parent, err := w.store.GetBlock(blk.Header.ParentHash)
	switch {
	case err == nil:
		if blk.Header.Difficulty != parent.Header.Difficulty {
			w.evHandler("networkWorker: processBlock: difficulty mismatch, dropping block %s", h)
			return blockOutcome{}
		}
		inserted, tipChanged, applyErr := w.store.Insert(blk)
		if applyErr != nil || !inserted {
			w.evHandler("networkWorker: processBlock: insert failed for block %s: %v", h, applyErr)
			return blockOutcome{}
		}
		metrics.BlocksAccepted.Inc()
		outcome.rebroadcast = true
		if tipChanged {
			w.signalTipChanged()
		}

	default:
		if _, buffered := w.buffer[h]; !buffered {
			w.buffer[h] = blk
			outcome.needParent = true
			outcome.rebroadcast = true
		}
	}

	for _, tx := range blk.Content {
		if !w.pool.IsHashPresent(tx.Hash()) {
			w.pool.Insert(tx, false)
		}
	}

	return outcome
}

// drainOrphans repeatedly scans the orphan buffer for blocks whose
// parent has since arrived, inserting each and removing it from the
// buffer, until a full pass makes no progress. A block whose state
// fails to apply on re-check is dropped rather than retried.
func (w *NetworkWorker) drainOrphans(rebroadcast *[]hash.H256) {
	for {
		progressed := false

		for h, blk := range w.buffer {
			parent, err := w.store.GetBlock(blk.Header.ParentHash)
			if err != nil {
				continue
			}

			progressed = true
			delete(w.buffer, h)

			if blk.Header.Difficulty != parent.Header.Difficulty {
				w.evHandler("networkWorker: drainOrphans: difficulty mismatch, dropping orphan %s", h)
				continue
			}

			inserted, tipChanged, applyErr := w.store.Insert(blk)
			if applyErr != nil || !inserted {
				w.evHandler("networkWorker: drainOrphans: dropping orphan %s: %v", h, applyErr)
				continue
			}

			metrics.BlocksAccepted.Inc()
			*rebroadcast = append(*rebroadcast, h)
			if tipChanged {
				w.signalTipChanged()
			}
		}

		if !progressed {
			return
		}
	}
}

func (w *NetworkWorker) broadcastGetBlocks(hashes []hash.H256) {
	raw, err := message.EncodeGetBlocks(message.GetBlocks{Hashes: hashes})
	if err != nil {
		w.evHandler("networkWorker: broadcastGetBlocks: encode: %s", err)
		return
	}
	if err := w.server.Broadcast(raw); err != nil {
		w.evHandler("networkWorker: broadcastGetBlocks: %s", err)
	}
}

func (w *NetworkWorker) broadcastNewBlockHashes(hashes []hash.H256) {
	raw, err := message.EncodeNewBlockHashes(message.NewBlockHashes{Hashes: hashes})
	if err != nil {
		w.evHandler("networkWorker: broadcastNewBlockHashes: encode: %s", err)
		return
	}
	if err := w.server.Broadcast(raw); err != nil {
		w.evHandler("networkWorker: broadcastNewBlockHashes: %s", err)
	}
}

func (w *NetworkWorker) handleNewTransactionHashes(m message.NewTransactionHashes, sender peer.Handle) {
	var missing []hash.H256
	for _, h := range m.Hashes {
		if !w.pool.IsHashPresent(h) {
			missing = append(missing, h)
		}
	}
	if len(missing) == 0 {
		return
	}

	raw, err := message.EncodeGetTransactions(message.GetTransactions{Hashes: missing})
	if err != nil {
		w.evHandler("networkWorker: handleNewTransactionHashes: encode: %s", err)
		return
	}
	if err := sender.Write(raw); err != nil {
		w.evHandler("networkWorker: handleNewTransactionHashes: write: %s", err)
	}
}

func (w *NetworkWorker) handleGetTransactions(m message.GetTransactions, sender peer.Handle) {
	var found []database.SignedTransaction
	for _, h := range m.Hashes {
		if tx, ok := w.pool.GetTransaction(h); ok {
			found = append(found, tx)
		}
	}
	if len(found) == 0 {
		return
	}

	raw, err := message.EncodeTransactions(message.Transactions{Transactions: found})
	if err != nil {
		w.evHandler("networkWorker: handleGetTransactions: encode: %s", err)
		return
	}
	if err := sender.Write(raw); err != nil {
		w.evHandler("networkWorker: handleGetTransactions: write: %s", err)
	}
}

func (w *NetworkWorker) handleTransactions(m message.Transactions) {
	var collected []hash.H256
	for _, tx := range m.Transactions {
		if !tx.Verify() {
			continue
		}
		if w.pool.IsHashPresent(tx.Hash()) {
			continue
		}
		w.pool.Insert(tx, true)
		collected = append(collected, tx.Hash())
	}
	if len(collected) == 0 {
		return
	}

	raw, err := message.EncodeNewTransactionHashes(message.NewTransactionHashes{Hashes: collected})
	if err != nil {
		w.evHandler("networkWorker: handleTransactions: encode: %s", err)
		return
	}
	if err := w.server.Broadcast(raw); err != nil {
		w.evHandler("networkWorker: handleTransactions: %s", err)
	}
}
