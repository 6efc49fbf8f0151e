// Package database defines the wire/storage representation of
// transactions and blocks: the data the chain actually persists and
// hashes, as opposed to the mutable ledger state derived from it.
package database

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/qcbit/powchain/foundation/blockchain/hash"
	"github.com/qcbit/powchain/foundation/blockchain/signature"
)

// Transaction moves value from the signer (recovered from the
// envelope's public key) to receiver. There is no fee: the entire
// value is credited to the receiver.
type Transaction struct {
	Receiver     hash.Address `json:"receiver"`
	Value        uint32       `json:"value"`
	AccountNonce uint32       `json:"account_nonce"`
}

// NewTransaction constructs a Transaction. It performs no validation
// against any ledger state; that happens when the transaction is
// applied.
func NewTransaction(receiver hash.Address, value, accountNonce uint32) Transaction {
	return Transaction{
		Receiver:     receiver,
		Value:        value,
		AccountNonce: accountNonce,
	}
}

// signingEncoding returns the canonical byte form signed by the
// sender: a JSON object with fields in the fixed order
// receiver,value,account_nonce. Hand-formatted rather than passed
// through encoding/json so the wire form can never shift under a
// future struct-tag change.
func (t Transaction) signingEncoding() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `{"receiver":"%s","value":%d,"account_nonce":%d}`,
		t.Receiver.String(), t.Value, t.AccountNonce)
	return buf.Bytes()
}

// Sign produces a SignedTransaction envelope: the transaction, its
// signature over the canonical signing encoding, and the signer's
// public key.
func (t Transaction) Sign(priv ed25519.PrivateKey) SignedTransaction {
	pub := priv.Public().(ed25519.PublicKey)
	sig := signature.Sign(priv, t.signingEncoding())

	return SignedTransaction{
		Transaction: t,
		Signature:   sig,
		PublicKey:   append([]byte(nil), pub...),
	}
}

// SignedTransaction is a Transaction plus the signature and public
// key needed to verify and attribute it. This is the unit that flows
// through the mempool, block content, and the network wire format.
type SignedTransaction struct {
	Transaction Transaction `json:"transaction"`
	Signature   []byte      `json:"signature"`
	PublicKey   []byte      `json:"public_key"`
}

// ErrInvalidSignature indicates a SignedTransaction's signature does
// not verify against its own transaction and public key.
var ErrInvalidSignature = errors.New("invalid transaction signature")

// Verify reports whether the envelope's signature is valid for its
// transaction and public key.
func (s SignedTransaction) Verify() bool {
	return signature.Verify(s.PublicKey, s.Transaction.signingEncoding(), s.Signature)
}

// Validate returns ErrInvalidSignature if the envelope does not
// verify. Call sites that need an error-returning check (rather than
// a bool) use this.
func (s SignedTransaction) Validate() error {
	if !s.Verify() {
		return ErrInvalidSignature
	}
	return nil
}

// Sender returns the address that owns PublicKey and therefore signed
// (or claims to have signed) this transaction. Callers must call
// Validate first if they need the signature to actually hold.
func (s SignedTransaction) Sender() hash.Address {
	return hash.AddressFromPublicKey(s.PublicKey)
}

// envelopeEncoding returns the compact binary encoding of the whole
// envelope used for hashing: receiver || value || account_nonce ||
// len(sig) || sig || len(pubkey) || pubkey, all integers big-endian.
func (s SignedTransaction) envelopeEncoding() []byte {
	var buf bytes.Buffer
	buf.Write(s.Transaction.Receiver.Bytes())
	binary.Write(&buf, binary.BigEndian, s.Transaction.Value)
	binary.Write(&buf, binary.BigEndian, s.Transaction.AccountNonce)
	binary.Write(&buf, binary.BigEndian, uint32(len(s.Signature)))
	buf.Write(s.Signature)
	binary.Write(&buf, binary.BigEndian, uint32(len(s.PublicKey)))
	buf.Write(s.PublicKey)
	return buf.Bytes()
}

// Hash returns the SHA-256 digest of the envelope's binary encoding.
// SignedTransaction implements merkle.Hashable through this method, so
// a slice of SignedTransaction can be committed directly into a
// block's Merkle tree.
func (s SignedTransaction) Hash() hash.H256 {
	return hash.Sum256(s.envelopeEncoding())
}

// Equals reports whether two signed transactions are the same
// envelope (used when deduplicating mempool/block content).
func (s SignedTransaction) Equals(other SignedTransaction) bool {
	return s.Hash() == other.Hash()
}
