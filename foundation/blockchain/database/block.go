package database

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"math"
	"math/big"
	"time"

	"github.com/qcbit/powchain/foundation/blockchain/hash"
	"github.com/qcbit/powchain/foundation/blockchain/merkle"
)

// Header carries everything about a block except its transactions.
// A block's hash is the hash of its Header alone; the transactions
// are bound in only through MerkleRoot.
type Header struct {
	ParentHash hash.H256 `json:"parent_hash"`
	Nonce      uint32    `json:"nonce"`
	Difficulty hash.H256 `json:"difficulty"`
	Timestamp  uint64    `json:"timestamp"` // milliseconds since epoch
	MerkleRoot hash.H256 `json:"merkle_root"`
}

// encoding returns the canonical binary encoding of the header, used
// both for computing its hash and for the proof-of-work search.
func (h Header) encoding() []byte {
	var buf bytes.Buffer
	buf.Write(h.ParentHash.Bytes())
	binary.Write(&buf, binary.BigEndian, h.Nonce)
	buf.Write(h.Difficulty.Bytes())
	binary.Write(&buf, binary.BigEndian, h.Timestamp)
	buf.Write(h.MerkleRoot.Bytes())
	return buf.Bytes()
}

// Hash returns the SHA-256 digest of the header's canonical encoding.
func (h Header) Hash() hash.H256 {
	return hash.Sum256(h.encoding())
}

// Content is the ordered sequence of signed transactions a block
// carries.
type Content []SignedTransaction

// Block is a Header bound to its Content via the header's MerkleRoot.
type Block struct {
	Header  Header
	Content Content
}

// Hash returns the block's hash: the hash of its header. Content is
// bound in only through the Merkle root, so two blocks with identical
// headers but different (Merkle-colliding, in practice impossible)
// content would hash the same — this is the design spec's stated
// contract, not an oversight.
func (b Block) Hash() hash.H256 {
	return b.Header.Hash()
}

// IsProofOfWorkSolved reports whether the block's hash satisfies its
// own difficulty target.
func (b Block) IsProofOfWorkSolved() bool {
	return b.Hash().LessOrEqual(b.Header.Difficulty)
}

// TransactionHashes returns the hash of every transaction in Content,
// in order.
func (b Block) TransactionHashes() []hash.H256 {
	hashes := make([]hash.H256, len(b.Content))
	for i, tx := range b.Content {
		hashes[i] = tx.Hash()
	}
	return hashes
}

// POWArgs are the inputs to POW: the parent to extend, the content to
// include, and an event sink for progress logging.
type POWArgs struct {
	ParentHash hash.H256
	Difficulty hash.H256
	Content    Content
	EvHandler  func(v string, args ...any)
}

// POW assembles a Block over ParentHash/Content and performs the
// proof-of-work search to find a Nonce and Timestamp that satisfy
// Difficulty. It returns early with ctx.Err() if ctx is cancelled
// before a solution is found.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	tree := merkle.New([]SignedTransaction(args.Content))

	block := Block{
		Header: Header{
			ParentHash: args.ParentHash,
			Difficulty: args.Difficulty,
			MerkleRoot: tree.RootHash(),
		},
		Content: args.Content,
	}

	if err := block.performPOW(ctx, args.EvHandler); err != nil {
		return Block{}, err
	}

	return block, nil
}

// performPOW searches for a (Nonce, Timestamp) pair whose resulting
// block hash is at or below Difficulty. Pointer semantics because the
// header is mutated in place as candidates are tried.
func (b *Block) performPOW(ctx context.Context, ev func(v string, args ...any)) error {
	if ev == nil {
		ev = func(string, ...any) {}
	}

	ev("miner: performPOW: started")
	defer ev("miner: performPOW: completed")

	nBig, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt32))
	if err != nil {
		return ctx.Err()
	}
	b.Header.Nonce = uint32(nBig.Uint64())
	b.Header.Timestamp = uint64(time.Now().UTC().UnixMilli())

	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("miner: performPOW: running: attempts[%d]", attempts)
		}

		if ctx.Err() != nil {
			ev("miner: performPOW: cancelled")
			return ctx.Err()
		}

		if b.IsProofOfWorkSolved() {
			ev("miner: performPOW: solved: hash[%s] attempts[%d]", b.Hash(), attempts)
			return nil
		}

		b.Header.Nonce++
		if b.Header.Nonce == 0 {
			// Nonce wrapped; resample the timestamp too so an
			// adversarial all-zero-nonce search space doesn't loop
			// forever on a stale timestamp.
			b.Header.Timestamp = uint64(time.Now().UTC().UnixMilli())
		}
	}
}
