// Package genesis builds the fixed genesis block and its Initial Coin
// Offering. Unlike the original accounts-from-file design, genesis
// here has no external configuration: every value — the ICO seeds,
// balances, and difficulty — is a fixed constant of the protocol.
package genesis

import (
	"crypto/ed25519"

	"github.com/qcbit/powchain/foundation/blockchain/database"
	"github.com/qcbit/powchain/foundation/blockchain/hash"
	"github.com/qcbit/powchain/foundation/blockchain/merkle"
)

// MaxTransactionsPerBlock bounds how many transactions the miner will
// pull from the mempool for a single block.
const MaxTransactionsPerBlock = 25

// icoSeeds are the deterministic seeds used to derive the genesis ICO
// keypairs. Seed 0 receives the initial supply; seeds 1 and 2 merely
// reserve addresses for early bootstrap peers.
var icoSeeds = [3]uint32{0, 1, 2}

// icoBalances are the balances assigned to, respectively, seeds 0, 1,
// and 2.
var icoBalances = [3]uint32{1_000_000, 0, 0}

// Difficulty is the chain's constant proof-of-work target:
// 0x0000ffff...ff (16 leading zero bits, the rest set).
func Difficulty() hash.H256 {
	var d hash.H256
	for i := 2; i < hash.Size; i++ {
		d[i] = 0xff
	}
	return d
}

// KeyFromSeed deterministically derives an Ed25519 key pair from a
// small integer seed. Used for the ICO keys and, by the wallet CLI's
// test/demo mode, for named local accounts.
func KeyFromSeed(seed uint32) (ed25519.PublicKey, ed25519.PrivateKey) {
	var raw [ed25519.SeedSize]byte
	raw[ed25519.SeedSize-4] = byte(seed >> 24)
	raw[ed25519.SeedSize-3] = byte(seed >> 16)
	raw[ed25519.SeedSize-2] = byte(seed >> 8)
	raw[ed25519.SeedSize-1] = byte(seed)

	priv := ed25519.NewKeyFromSeed(raw[:])
	return priv.Public().(ed25519.PublicKey), priv
}

// Genesis is the fully-constructed genesis block plus its ICO key
// material (needed by tests and the generator's initial controlled
// key).
type Genesis struct {
	Block      database.Block
	ICOAddress [3]hash.Address
	ICOKey     [3]ed25519.PrivateKey
}

// New constructs the genesis block: parent hash zero, nonce zero,
// timestamp zero, constant difficulty, and a content consisting of
// the seed-0 account's own self-funding ICO transaction, signed by
// seed 0 itself. The ledger's genesis State is still seeded directly
// from Balances (see store.New) rather than by replaying this
// transaction through Apply — seed 0's account cannot satisfy its own
// balance check before it exists — but the transaction is carried in
// Content anyway so genesis has the same shape as every later block:
// a real signed transaction bound in through a real Merkle root.
func New() Genesis {
	var g Genesis

	for i, seed := range icoSeeds {
		pub, priv := KeyFromSeed(seed)
		g.ICOAddress[i] = hash.AddressFromPublicKey(pub)
		g.ICOKey[i] = priv
	}

	icoTx := database.NewTransaction(g.ICOAddress[0], icoBalances[0], 1).Sign(g.ICOKey[0])
	content := database.Content{icoTx}

	g.Block = database.Block{
		Header: database.Header{
			ParentHash: hash.ZeroHash,
			Nonce:      0,
			Difficulty: Difficulty(),
			Timestamp:  0,
			MerkleRoot: merkle.New([]database.SignedTransaction(content)).RootHash(),
		},
		Content: content,
	}

	return g
}

// Balances returns the initial address->balance map the ledger's
// State is seeded with.
func (g Genesis) Balances() map[hash.Address]uint32 {
	balances := make(map[hash.Address]uint32, len(g.ICOAddress))
	for i, addr := range g.ICOAddress {
		balances[addr] = icoBalances[i]
	}
	return balances
}
