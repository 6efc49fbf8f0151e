package mempool_test

import (
	"crypto/ed25519"
	"errors"
	"testing"

	"github.com/qcbit/powchain/foundation/blockchain/database"
	"github.com/qcbit/powchain/foundation/blockchain/hash"
	"github.com/qcbit/powchain/foundation/blockchain/mempool"
)

func signedTx(t *testing.T, value, nonce uint32) database.SignedTransaction {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generating key: %s", err)
	}
	receiverPub, _, _ := ed25519.GenerateKey(nil)
	receiver := hash.AddressFromPublicKey(receiverPub)
	return database.NewTransaction(receiver, value, nonce).Sign(priv)
}

func TestMempool_DequeueEmptyQueue(t *testing.T) {
	m := mempool.New()
	if _, err := m.Dequeue(); !errors.Is(err, mempool.ErrEmptyQueue) {
		t.Fatalf("err = %v, want ErrEmptyQueue", err)
	}
}

func TestMempool_InsertDropsInvalidSignature(t *testing.T) {
	m := mempool.New()
	tx := signedTx(t, 10, 1)
	tx.Signature[0] ^= 0xff // corrupt it

	m.Insert(tx, true)

	if m.IsHashPresent(tx.Hash()) {
		t.Fatal("invalid transaction should not be inserted")
	}
}

func TestMempool_PushInQueueControlsMiningEligibility(t *testing.T) {
	m := mempool.New()

	learned := signedTx(t, 1, 1)
	m.Insert(learned, false)

	if !m.IsHashPresent(learned.Hash()) {
		t.Fatal("transaction should be known even with pushInQueue=false")
	}
	if m.QueueLength() != 0 {
		t.Fatalf("queue length = %d, want 0", m.QueueLength())
	}

	gossip := signedTx(t, 2, 1)
	m.Insert(gossip, true)
	if m.QueueLength() != 1 {
		t.Fatalf("queue length = %d, want 1", m.QueueLength())
	}

	dequeued, err := m.Dequeue()
	if err != nil {
		t.Fatalf("dequeue: %s", err)
	}
	if dequeued.Hash() != gossip.Hash() {
		t.Fatal("dequeued the wrong transaction")
	}

	// Still present in the map after dequeue.
	if !m.IsHashPresent(gossip.Hash()) {
		t.Fatal("dequeued transaction should remain looked-up-able by hash")
	}
}

func TestMempool_DequeueUpToRespectsFIFOOrder(t *testing.T) {
	m := mempool.New()
	first := signedTx(t, 1, 1)
	second := signedTx(t, 2, 1)
	m.Insert(first, true)
	m.Insert(second, true)

	got := m.DequeueUpTo(10)
	if len(got) != 2 {
		t.Fatalf("got %d transactions, want 2", len(got))
	}
	if got[0].Hash() != first.Hash() || got[1].Hash() != second.Hash() {
		t.Fatal("dequeue order did not match insertion order")
	}
}
