// Package store implements the blockchain store: the map of known
// blocks, the longest-chain tip, and a per-block ledger state
// snapshot. It owns longest-chain selection but, deliberately, not
// orphan buffering — a block whose parent is unknown is simply not
// inserted, and it is the network handler's job to buffer it and
// request the parent.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/qcbit/powchain/foundation/blockchain/database"
	"github.com/qcbit/powchain/foundation/blockchain/genesis"
	"github.com/qcbit/powchain/foundation/blockchain/hash"
	"github.com/qcbit/powchain/foundation/blockchain/ledger"
)

// ErrUnknownBlock is returned when a hash has no corresponding entry.
var ErrUnknownBlock = errors.New("unknown block")

type entry struct {
	block  database.Block
	height uint64
}

// Store is the mutex-protected blockchain store. The zero value is
// not usable; construct with New.
type Store struct {
	mu sync.RWMutex

	blocks      map[hash.H256]entry
	states      map[hash.H256]ledger.State
	genesisHash hash.H256
	tip         hash.H256
	longestLen  uint64
}

// New constructs a Store seeded with gen's genesis block and ICO
// state.
func New(gen genesis.Genesis) *Store {
	genesisHash := gen.Block.Hash()
	genesisState := ledger.New(gen.Balances())

	return &Store{
		blocks: map[hash.H256]entry{
			genesisHash: {block: gen.Block, height: 0},
		},
		states: map[hash.H256]ledger.State{
			genesisHash: genesisState,
		},
		genesisHash: genesisHash,
		tip:         genesisHash,
		longestLen:  0,
	}
}

// Tip returns the hash of the current longest-chain head.
func (s *Store) Tip() hash.H256 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tip
}

// TipState returns the ledger state at the current tip.
func (s *Store) TipState() ledger.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[s.tip]
}

// TipHeight returns the height of the current longest chain.
func (s *Store) TipHeight() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.longestLen
}

// GenesisHash returns the fixed genesis block's hash.
func (s *Store) GenesisHash() hash.H256 {
	return s.genesisHash
}

// IsHashPresent reports whether h names a block already in the store.
func (s *Store) IsHashPresent(h hash.H256) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blocks[h]
	return ok
}

// GetBlock returns the block stored under h.
func (s *Store) GetBlock(h hash.H256) (database.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.blocks[h]
	if !ok {
		return database.Block{}, fmt.Errorf("%w: %s", ErrUnknownBlock, h)
	}
	return e.block, nil
}

// GetState returns the ledger state immediately after h was applied.
func (s *Store) GetState(h hash.H256) (ledger.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[h]
	if !ok {
		return ledger.State{}, fmt.Errorf("%w: %s", ErrUnknownBlock, h)
	}
	return st, nil
}

// Insert attempts to add block to the store. inserted is true if the
// block was added, and tipChanged is true if it also became the new
// longest-chain tip. (false, false, nil) means the block was rejected
// because its proof-of-work does not satisfy its own difficulty, it
// is already known, or its parent is not yet known (an orphan — the
// caller, not Store, is responsible for buffering it). A non-nil
// error is only returned when the parent IS known but applying the
// block's content against the parent's state fails; the block is then
// not inserted.
func (s *Store) Insert(block database.Block) (inserted bool, tipChanged bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !block.IsProofOfWorkSolved() {
		return false, false, nil
	}

	h := block.Hash()
	if _, ok := s.blocks[h]; ok {
		return false, false, nil
	}

	parent, ok := s.blocks[block.Header.ParentHash]
	if !ok {
		return false, false, nil
	}

	parentState := s.states[block.Header.ParentHash]
	newState, applyErr := parentState.Apply(block.Content)
	if applyErr != nil {
		return false, false, fmt.Errorf("applying block %s: %w", h, applyErr)
	}

	height := parent.height + 1
	s.blocks[h] = entry{block: block, height: height}
	s.states[h] = newState

	if height > s.longestLen {
		s.tip = h
		s.longestLen = height
		return true, true, nil
	}

	return true, false, nil
}

// AllBlocksInLongestChain walks tip back to genesis and returns the
// blocks in genesis-first order.
func (s *Store) AllBlocksInLongestChain() []database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chainBlocksLocked(s.tip)
}

func (s *Store) chainBlocksLocked(tip hash.H256) []database.Block {
	var blocks []database.Block
	h := tip
	for {
		e, ok := s.blocks[h]
		if !ok {
			break
		}
		blocks = append(blocks, e.block)
		if h == s.genesisHash {
			break
		}
		h = e.block.Header.ParentHash
	}

	for i, j := 0, len(blocks)-1; i < j; i, j = i+1, j-1 {
		blocks[i], blocks[j] = blocks[j], blocks[i]
	}
	return blocks
}

// AllTransactionsInLongestChain returns, for each block in the
// longest chain (genesis first), its transactions.
func (s *Store) AllTransactionsInLongestChain() [][]database.SignedTransaction {
	blocks := s.AllBlocksInLongestChain()
	out := make([][]database.SignedTransaction, len(blocks))
	for i, b := range blocks {
		out[i] = b.Content
	}
	return out
}

// CountTransactionsInLongestChain sums the transaction counts across
// every block in the longest chain.
func (s *Store) CountTransactionsInLongestChain() int {
	var count int
	for _, txs := range s.AllTransactionsInLongestChain() {
		count += len(txs)
	}
	return count
}

// AccountBalance is a single (address, nonce, balance) row, as
// returned by GetBlockState.
type AccountBalance struct {
	Address hash.Address
	Nonce   uint32
	Balance uint32
}

// GetBlockState walks the longest chain back to the block at height
// and returns every account with a positive balance at that point,
// sorted by address.
func (s *Store) GetBlockState(height uint64) ([]AccountBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.tip
	for {
		e, ok := s.blocks[h]
		if !ok {
			return nil, fmt.Errorf("%w: height %d", ErrUnknownBlock, height)
		}
		if e.height == height {
			break
		}
		if h == s.genesisHash {
			return nil, fmt.Errorf("%w: height %d", ErrUnknownBlock, height)
		}
		h = e.block.Header.ParentHash
	}

	st := s.states[h]
	addrs := st.SortedAddresses()
	rows := make([]AccountBalance, 0, len(addrs))
	for _, addr := range addrs {
		acct, _ := st.Account(addr)
		rows = append(rows, AccountBalance{Address: addr, Nonce: acct.Nonce, Balance: acct.Balance})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Address.String() < rows[j].Address.String() })
	return rows, nil
}
