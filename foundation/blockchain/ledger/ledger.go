// Package ledger implements the per-address account state: the
// (nonce, balance) mapping derived deterministically from genesis by
// applying transactions in order. Unlike a typical mutable account
// database, State here is immutable: Apply clones before mutating and
// returns a brand-new State, so every block can own its own snapshot
// without the snapshots aliasing each other's maps.
package ledger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/qcbit/powchain/foundation/blockchain/database"
	"github.com/qcbit/powchain/foundation/blockchain/hash"
)

// Account is one address's ledger entry.
type Account struct {
	Nonce   uint32
	Balance uint32
}

// Errors returned by Apply, naming the three ways a transaction can
// fail against a given state.
var (
	ErrUnknownSender       = errors.New("unknown sender")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBadNonce            = errors.New("bad account nonce")
)

// State is an immutable snapshot of every account's (nonce, balance).
type State struct {
	accounts map[hash.Address]Account
}

// New constructs a State from an explicit set of initial balances
// (used to seed genesis/ICO accounts at nonce 0).
func New(initial map[hash.Address]uint32) State {
	accounts := make(map[hash.Address]Account, len(initial))
	for addr, balance := range initial {
		accounts[addr] = Account{Balance: balance}
	}
	return State{accounts: accounts}
}

// clone returns a deep copy of s's account map.
func (s State) clone() State {
	accounts := make(map[hash.Address]Account, len(s.accounts))
	for addr, acct := range s.accounts {
		accounts[addr] = acct
	}
	return State{accounts: accounts}
}

// Account returns the account at addr and whether it exists.
func (s State) Account(addr hash.Address) (Account, bool) {
	acct, ok := s.accounts[addr]
	return acct, ok
}

// Accounts returns a snapshot copy of every address currently present
// in the state, for enumeration (e.g. the generator's receiver pick,
// or the HTTP state endpoint).
func (s State) Accounts() map[hash.Address]Account {
	out := make(map[hash.Address]Account, len(s.accounts))
	for addr, acct := range s.accounts {
		out[addr] = acct
	}
	return out
}

// SortedAddresses returns every address with a strictly positive
// balance, sorted for deterministic display (get_block_state).
func (s State) SortedAddresses() []hash.Address {
	addrs := make([]hash.Address, 0, len(s.accounts))
	for addr, acct := range s.accounts {
		if acct.Balance > 0 {
			addrs = append(addrs, addr)
		}
	}
	sort.Slice(addrs, func(i, j int) bool {
		return addrs[i].String() < addrs[j].String()
	})
	return addrs
}

// Apply applies txs in order against a clone of s and returns the
// resulting State. It fails atomically: on the first failing
// transaction, apply stops and returns the original, untouched state
// alongside a wrapped error identifying which transaction and why.
func (s State) Apply(txs []database.SignedTransaction) (State, error) {
	next := s.clone()

	for i, tx := range txs {
		if err := next.applyOne(tx); err != nil {
			return s, fmt.Errorf("applying transaction %d (%s): %w", i, tx.Hash(), err)
		}
	}

	return next, nil
}

// applyOne mutates next's accounts in place for a single transaction.
// Callers always operate on a throwaway clone so a failure partway
// through a batch never corrupts the caller's state.
func (next *State) applyOne(tx database.SignedTransaction) error {
	sender := tx.Sender()

	acct, ok := next.accounts[sender]
	if !ok {
		return ErrUnknownSender
	}

	if acct.Balance < tx.Transaction.Value {
		return ErrInsufficientBalance
	}

	if acct.Nonce+1 != tx.Transaction.AccountNonce {
		return ErrBadNonce
	}

	acct.Balance -= tx.Transaction.Value
	acct.Nonce++
	next.accounts[sender] = acct

	receiver := next.accounts[tx.Transaction.Receiver]
	receiver.Balance += tx.Transaction.Value
	next.accounts[tx.Transaction.Receiver] = receiver

	return nil
}
