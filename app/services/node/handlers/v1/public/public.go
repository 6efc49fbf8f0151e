// Package public maintains the group of handlers reachable by the
// wallet CLI and other external clients: the miner/generator control
// surface, transaction submission, and read-only blockchain queries.
package public

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	webv1 "github.com/qcbit/powchain/business/web/v1"
	"github.com/qcbit/powchain/foundation/blockchain/database"
	"github.com/qcbit/powchain/foundation/blockchain/hash"
	"github.com/qcbit/powchain/foundation/blockchain/mempool"
	"github.com/qcbit/powchain/foundation/blockchain/message"
	"github.com/qcbit/powchain/foundation/blockchain/peer"
	"github.com/qcbit/powchain/foundation/blockchain/store"
	"github.com/qcbit/powchain/foundation/blockchain/worker"
	"github.com/qcbit/powchain/foundation/web"
)

// Handlers manages the set of publicly reachable node endpoints.
type Handlers struct {
	Log       *zap.SugaredLogger
	Store     *store.Store
	Pool      *mempool.Mempool
	Miner     *worker.Miner
	Generator *worker.Generator
	Server    peer.Server
}

// MinerStart signals the miner to (re)start at the given pacing.
// GET /v1/miner/start?lambda=<u64>
func (h Handlers) MinerStart(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	lambda, err := parseUint(r, "lambda")
	if err != nil {
		return webv1.NewRequestError(err, http.StatusBadRequest)
	}

	h.Miner.Control() <- worker.Start(lambda)

	return web.Respond(ctx, w, statusResponse{Success: true, Message: "miner started"}, http.StatusOK)
}

// GeneratorStart signals the transaction generator to (re)start at
// the given pacing.
// GET /v1/tx-generator/start?theta=<u64>
func (h Handlers) GeneratorStart(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	theta, err := parseUint(r, "theta")
	if err != nil {
		return webv1.NewRequestError(err, http.StatusBadRequest)
	}

	h.Generator.Control() <- worker.Start(theta)

	return web.Respond(ctx, w, statusResponse{Success: true, Message: "generator started"}, http.StatusOK)
}

// NetworkPing broadcasts a Ping to every known peer.
// GET /v1/network/ping
func (h Handlers) NetworkPing(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	raw, err := message.EncodePing(message.Ping{Nonce: v.TraceID})
	if err != nil {
		return err
	}
	if err := h.Server.Broadcast(raw); err != nil {
		return webv1.NewRequestError(err, http.StatusBadGateway)
	}

	return web.Respond(ctx, w, statusResponse{Success: true, Message: "ping broadcast"}, http.StatusOK)
}

// LongestChain returns every block hash in the current longest
// chain, genesis first.
// GET /v1/blockchain/longest-chain
func (h Handlers) LongestChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blocks := h.Store.AllBlocksInLongestChain()

	hashes := make([]string, len(blocks))
	for i, b := range blocks {
		hashes[i] = b.Hash().String()
	}

	return web.Respond(ctx, w, hashes, http.StatusOK)
}

// LongestChainTx returns every transaction hash carried by a block in
// the longest chain, genesis first, block order preserved.
// GET /v1/blockchain/longest-chain-tx
func (h Handlers) LongestChainTx(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	perBlock := h.Store.AllTransactionsInLongestChain()

	var hashes []string
	for _, txs := range perBlock {
		for _, tx := range txs {
			hashes = append(hashes, tx.Hash().String())
		}
	}
	if hashes == nil {
		hashes = []string{}
	}

	return web.Respond(ctx, w, hashes, http.StatusOK)
}

// LongestChainTxCount returns the total number of transactions across
// the longest chain.
// GET /v1/blockchain/longest-chain-tx-count
func (h Handlers) LongestChainTxCount(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	count := h.Store.CountTransactionsInLongestChain()
	return web.Respond(ctx, w, count, http.StatusOK)
}

// BlockchainState returns the (address, nonce, balance) rows as of
// the block at the given height in the longest chain.
// GET /v1/blockchain/state?block=<u32>
func (h Handlers) BlockchainState(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	height, err := parseUint(r, "block")
	if err != nil {
		return webv1.NewRequestError(err, http.StatusBadRequest)
	}

	rows, err := h.Store.GetBlockState(height)
	if err != nil {
		return webv1.NewRequestError(err, http.StatusNotFound)
	}

	out := make([]accountBalance, len(rows))
	for i, row := range rows {
		out[i] = accountBalance{
			Address: row.Address.String(),
			Nonce:   row.Nonce,
			Balance: row.Balance,
		}
	}

	return web.Respond(ctx, w, out, http.StatusOK)
}

// SubmitTransaction accepts a wallet-signed transaction, verifies it,
// and inserts it into the mempool as a local mining candidate.
// POST /v1/tx/submit
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var payload submittedTransaction
	if err := web.Decode(r, &payload); err != nil {
		return webv1.NewRequestError(err, http.StatusBadRequest)
	}

	receiver, err := hash.ParseAddress(payload.Receiver)
	if err != nil {
		return webv1.NewRequestError(err, http.StatusBadRequest)
	}

	tx := database.SignedTransaction{
		Transaction: database.NewTransaction(receiver, payload.Value, payload.AccountNonce),
		Signature:   payload.Signature,
		PublicKey:   payload.PublicKey,
	}
	if err := tx.Validate(); err != nil {
		return webv1.NewRequestError(err, http.StatusBadRequest)
	}

	h.Pool.Insert(tx, true)

	raw, err := message.EncodeNewTransactionHashes(message.NewTransactionHashes{Hashes: []hash.H256{tx.Hash()}})
	if err == nil {
		_ = h.Server.Broadcast(raw)
	}

	return web.Respond(ctx, w, statusResponse{Success: true, Message: "transaction added to mempool"}, http.StatusOK)
}

func parseUint(r *http.Request, key string) (uint64, error) {
	raw := web.Param(r, key)
	if raw == "" {
		raw = r.URL.Query().Get(key)
	}
	return strconv.ParseUint(raw, 10, 64)
}
