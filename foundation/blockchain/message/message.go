// Package message implements the peer wire protocol: a tagged union
// of message kinds encoded with CBOR, every kind carried in one
// envelope struct with keyasint field tags for a compact, stable
// binary encoding both peers agree on without exchanging schemas.
package message

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/qcbit/powchain/foundation/blockchain/database"
	"github.com/qcbit/powchain/foundation/blockchain/hash"
)

// Type identifies which message kind a decoded envelope carries.
type Type uint8

const (
	TypePing Type = iota + 1
	TypePong
	TypeNewBlockHashes
	TypeGetBlocks
	TypeBlocks
	TypeNewTransactionHashes
	TypeGetTransactions
	TypeTransactions
)

// maxHashesPerMessage bounds how many hashes a single NewBlockHashes/
// GetBlocks/NewTransactionHashes/GetTransactions message may carry,
// guarding against a malicious peer forcing unbounded allocation.
const maxHashesPerMessage = 10_000

// envelope is the outer frame every message is wrapped in: a type tag
// plus whichever payload field is relevant to that type. Unused
// fields encode as CBOR nulls/omitted and cost little over the wire.
type envelope struct {
	Type Type `cbor:"1,keyasint"`

	Nonce        string                        `cbor:"2,keyasint,omitempty"`
	Hashes       []hash.H256                   `cbor:"3,keyasint,omitempty"`
	Blocks       []database.Block              `cbor:"4,keyasint,omitempty"`
	Transactions []database.SignedTransaction  `cbor:"5,keyasint,omitempty"`
}

// Ping carries an arbitrary nonce the peer is expected to echo back
// in a Pong.
type Ping struct{ Nonce string }

// Pong is the reply to a Ping.
type Pong struct{ Nonce string }

// NewBlockHashes announces block hashes the sender has that the
// recipient may not.
type NewBlockHashes struct{ Hashes []hash.H256 }

// GetBlocks requests the full blocks named by Hashes.
type GetBlocks struct{ Hashes []hash.H256 }

// Blocks carries full blocks, in response to GetBlocks.
type Blocks struct{ Blocks []database.Block }

// NewTransactionHashes announces transaction hashes the sender has
// that the recipient may not.
type NewTransactionHashes struct{ Hashes []hash.H256 }

// GetTransactions requests the full transactions named by Hashes.
type GetTransactions struct{ Hashes []hash.H256 }

// Transactions carries full signed transactions, in response to
// GetTransactions.
type Transactions struct{ Transactions []database.SignedTransaction }

// Encode* functions wrap a payload in the envelope and CBOR-marshal
// it, forming the bytes written to a peer connection.

func EncodePing(m Ping) ([]byte, error) {
	return cbor.Marshal(envelope{Type: TypePing, Nonce: m.Nonce})
}

func EncodePong(m Pong) ([]byte, error) {
	return cbor.Marshal(envelope{Type: TypePong, Nonce: m.Nonce})
}

func EncodeNewBlockHashes(m NewBlockHashes) ([]byte, error) {
	return cbor.Marshal(envelope{Type: TypeNewBlockHashes, Hashes: m.Hashes})
}

func EncodeGetBlocks(m GetBlocks) ([]byte, error) {
	return cbor.Marshal(envelope{Type: TypeGetBlocks, Hashes: m.Hashes})
}

func EncodeBlocks(m Blocks) ([]byte, error) {
	return cbor.Marshal(envelope{Type: TypeBlocks, Blocks: m.Blocks})
}

func EncodeNewTransactionHashes(m NewTransactionHashes) ([]byte, error) {
	return cbor.Marshal(envelope{Type: TypeNewTransactionHashes, Hashes: m.Hashes})
}

func EncodeGetTransactions(m GetTransactions) ([]byte, error) {
	return cbor.Marshal(envelope{Type: TypeGetTransactions, Hashes: m.Hashes})
}

func EncodeTransactions(m Transactions) ([]byte, error) {
	return cbor.Marshal(envelope{Type: TypeTransactions, Transactions: m.Transactions})
}

// Decoded is the result of decoding a raw peer message: Type
// identifies which of the typed fields below is populated.
type Decoded struct {
	Type Type

	Ping                 Ping
	Pong                 Pong
	NewBlockHashes       NewBlockHashes
	GetBlocks            GetBlocks
	Blocks               Blocks
	NewTransactionHashes NewTransactionHashes
	GetTransactions      GetTransactions
	Transactions         Transactions
}

// Decode parses raw bytes received from a peer into a Decoded
// message. An unrecognised Type, or a hash list exceeding
// maxHashesPerMessage, is rejected as an error so the
// network worker can drop the connection or the message without
// panicking on attacker-controlled input.
func Decode(raw []byte) (Decoded, error) {
	var env envelope
	if err := cbor.Unmarshal(raw, &env); err != nil {
		return Decoded{}, fmt.Errorf("decoding message envelope: %w", err)
	}

	if len(env.Hashes) > maxHashesPerMessage {
		return Decoded{}, fmt.Errorf("message carries %d hashes, exceeds limit %d", len(env.Hashes), maxHashesPerMessage)
	}

	d := Decoded{Type: env.Type}
	switch env.Type {
	case TypePing:
		d.Ping = Ping{Nonce: env.Nonce}
	case TypePong:
		d.Pong = Pong{Nonce: env.Nonce}
	case TypeNewBlockHashes:
		d.NewBlockHashes = NewBlockHashes{Hashes: env.Hashes}
	case TypeGetBlocks:
		d.GetBlocks = GetBlocks{Hashes: env.Hashes}
	case TypeBlocks:
		d.Blocks = Blocks{Blocks: env.Blocks}
	case TypeNewTransactionHashes:
		d.NewTransactionHashes = NewTransactionHashes{Hashes: env.Hashes}
	case TypeGetTransactions:
		d.GetTransactions = GetTransactions{Hashes: env.Hashes}
	case TypeTransactions:
		d.Transactions = Transactions{Transactions: env.Transactions}
	default:
		return Decoded{}, fmt.Errorf("unknown message type %d", env.Type)
	}

	return d, nil
}
