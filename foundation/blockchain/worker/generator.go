package worker

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/qcbit/powchain/foundation/blockchain/database"
	"github.com/qcbit/powchain/foundation/blockchain/hash"
	"github.com/qcbit/powchain/foundation/blockchain/ledger"
	"github.com/qcbit/powchain/foundation/blockchain/mempool"
	"github.com/qcbit/powchain/foundation/blockchain/message"
	"github.com/qcbit/powchain/foundation/blockchain/metrics"
	"github.com/qcbit/powchain/foundation/blockchain/peer"
	"github.com/qcbit/powchain/foundation/blockchain/store"
)

// Generator mirrors the miner's control state machine. It owns a
// growable, append-only set of Ed25519 keypairs seeded with one
// initial key, and on every tick attempts to move value from a
// controlled key with a positive balance to some address in the
// chain's key set.
type Generator struct {
	store     *store.Store
	produced  chan<- database.SignedTransaction
	control   chan Signal
	evHandler EventHandler

	running bool
	theta   uint64

	controlledKeys []ed25519.PrivateKey
}

// NewGenerator constructs a Generator seeded with one controlled
// key. produced receives every transaction the generator signs; it
// should be drained by RunGeneratorWorker.
func NewGenerator(st *store.Store, seed ed25519.PrivateKey, produced chan<- database.SignedTransaction, ev EventHandler) *Generator {
	if ev == nil {
		ev = noopHandler
	}
	return &Generator{
		store:          st,
		produced:       produced,
		control:        make(chan Signal, 1),
		evHandler:      ev,
		controlledKeys: []ed25519.PrivateKey{seed},
	}
}

// Control returns the channel used to send this generator Start/
// Update/Exit signals.
func (g *Generator) Control() chan<- Signal { return g.control }

// Run drives the generator loop until ctx is cancelled or Exit is
// signaled.
func (g *Generator) Run(ctx context.Context) {
	g.evHandler("generator: Run: started")
	defer g.evHandler("generator: Run: completed")

	for {
		if !g.running {
			select {
			case sig := <-g.control:
				if !g.handle(sig) {
					return
				}
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case sig := <-g.control:
			if !g.handle(sig) {
				return
			}
			continue
		case <-ctx.Done():
			return
		default:
		}

		g.tick(ctx)

		if g.theta > 0 {
			time.Sleep(time.Duration(g.theta) * 5 * time.Millisecond)
		}
	}
}

func (g *Generator) handle(sig Signal) bool {
	switch sig.Kind {
	case SignalExit:
		g.evHandler("generator: handle: EXIT")
		return false

	case SignalStart:
		g.theta = sig.Lambda
		g.running = true
		g.evHandler("generator: handle: START: theta[%d]", sig.Lambda)

	case SignalUpdate:
		// Nothing cached between ticks; state is snapshotted fresh
		// every tick, so Update is a no-op here.
	}
	return true
}

// tick performs one generation attempt: pick a funded controlled
// key, pick a receiver, sign a transaction moving a random amount
// between them, and hand it off on the produced channel.
func (g *Generator) tick(ctx context.Context) {
	state := g.store.TipState()

	senderIdx, ok := g.pickSender(state)
	if !ok {
		return
	}

	senderKey := g.controlledKeys[senderIdx]
	senderAddr := hash.AddressFromPublicKey(senderKey.Public().(ed25519.PublicKey))
	senderAcct, _ := state.Account(senderAddr)

	receiver, newKey := g.pickReceiver(state, senderAddr)

	value, err := randomValueBelow(senderAcct.Balance)
	if err != nil {
		g.evHandler("generator: tick: %s", err)
		return
	}

	tx := database.NewTransaction(receiver, value, senderAcct.Nonce+1).Sign(senderKey)

	select {
	case g.produced <- tx:
	case <-ctx.Done():
		return
	}

	if newKey != nil {
		g.controlledKeys = append(g.controlledKeys, newKey)
	}
}

// pickSender chooses a random starting index into controlledKeys and
// scans cyclically for the first key whose address carries a
// positive balance in state.
func (g *Generator) pickSender(state ledger.State) (int, bool) {
	n := len(g.controlledKeys)
	start, err := randomIndex(n)
	if err != nil {
		return 0, false
	}

	for i := 0; i < n; i++ {
		idx := (start + i) % n
		addr := hash.AddressFromPublicKey(g.controlledKeys[idx].Public().(ed25519.PublicKey))
		if acct, ok := state.Account(addr); ok && acct.Balance > 0 {
			return idx, true
		}
	}
	return 0, false
}

// pickReceiver chooses an address uniformly from state's full key
// set. If the draw lands on sender itself, a fresh keypair is
// synthesised and its address used instead; the caller appends that
// key to controlledKeys only after a successful send.
func (g *Generator) pickReceiver(state ledger.State, sender hash.Address) (hash.Address, ed25519.PrivateKey) {
	accounts := state.Accounts()
	addrs := make([]hash.Address, 0, len(accounts))
	for addr := range accounts {
		addrs = append(addrs, addr)
	}

	idx, err := randomIndex(len(addrs))
	if err != nil {
		return sender, nil
	}
	receiver := addrs[idx]

	if receiver != sender {
		return receiver, nil
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return sender, nil
	}
	return hash.AddressFromPublicKey(pub), priv
}

func randomIndex(n int) (int, error) {
	if n <= 0 {
		return 0, errors.New("empty index set")
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

// randomValueBelow returns a value drawn uniformly from [1, balance).
// A balance under 2 leaves that range empty, so the tick is skipped.
func randomValueBelow(balance uint32) (uint32, error) {
	if balance < 2 {
		return 0, errors.New("balance too small to generate a transaction")
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(balance-1)))
	if err != nil {
		return 0, err
	}
	return uint32(n.Int64()) + 1, nil
}

// RunGeneratorWorker drains signed transactions produced by a
// Generator, inserts each into pool as a local mining candidate, and
// broadcasts its hash so peers can pull it.
func RunGeneratorWorker(ctx context.Context, ch <-chan database.SignedTransaction, pool *mempool.Mempool, srv peer.Server, ev EventHandler) {
	if ev == nil {
		ev = noopHandler
	}
	ev("generatorWorker: Run: started")
	defer ev("generatorWorker: Run: completed")

	for {
		select {
		case tx := <-ch:
			pool.Insert(tx, true)
			metrics.TransactionsGenerated.Inc()

			raw, err := message.EncodeNewTransactionHashes(message.NewTransactionHashes{Hashes: []hash.H256{tx.Hash()}})
			if err != nil {
				ev("generatorWorker: encode: %s", err)
				continue
			}
			if err := srv.Broadcast(raw); err != nil {
				ev("generatorWorker: broadcast: %s", err)
			}

		case <-ctx.Done():
			return
		}
	}
}
