package ledger_test

import (
	"crypto/ed25519"
	"errors"
	"testing"

	"github.com/qcbit/powchain/foundation/blockchain/database"
	"github.com/qcbit/powchain/foundation/blockchain/hash"
	"github.com/qcbit/powchain/foundation/blockchain/ledger"
)

func newKey(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generating key: %s", err)
	}
	return pub, priv
}

func TestApply_CreditsDebitsAndAdvancesNonce(t *testing.T) {
	_, alicePriv := newKey(t)
	alice := hash.AddressFromPublicKey(alicePriv.Public().(ed25519.PublicKey))
	bobPub, _ := newKey(t)
	bob := hash.AddressFromPublicKey(bobPub)

	s := ledger.New(map[hash.Address]uint32{alice: 100})

	tx := database.NewTransaction(bob, 40, 1).Sign(alicePriv)

	next, err := s.Apply([]database.SignedTransaction{tx})
	if err != nil {
		t.Fatalf("apply: %s", err)
	}

	aliceAcct, _ := next.Account(alice)
	if aliceAcct.Balance != 60 || aliceAcct.Nonce != 1 {
		t.Fatalf("alice account = %+v, want balance=60 nonce=1", aliceAcct)
	}
	bobAcct, ok := next.Account(bob)
	if !ok || bobAcct.Balance != 40 || bobAcct.Nonce != 0 {
		t.Fatalf("bob account = %+v (ok=%v), want balance=40 nonce=0", bobAcct, ok)
	}

	// Original state must be untouched.
	origAlice, _ := s.Account(alice)
	if origAlice.Balance != 100 || origAlice.Nonce != 0 {
		t.Fatalf("original state mutated: %+v", origAlice)
	}
}

func TestApply_RejectsBadNonce(t *testing.T) {
	_, alicePriv := newKey(t)
	alice := hash.AddressFromPublicKey(alicePriv.Public().(ed25519.PublicKey))
	bobPub, _ := newKey(t)
	bob := hash.AddressFromPublicKey(bobPub)

	s := ledger.New(map[hash.Address]uint32{alice: 100})
	tx := database.NewTransaction(bob, 40, 2).Sign(alicePriv) // should be nonce 1

	if _, err := s.Apply([]database.SignedTransaction{tx}); !errors.Is(err, ledger.ErrBadNonce) {
		t.Fatalf("err = %v, want ErrBadNonce", err)
	}
}

func TestApply_RejectsInsufficientBalance(t *testing.T) {
	_, alicePriv := newKey(t)
	alice := hash.AddressFromPublicKey(alicePriv.Public().(ed25519.PublicKey))
	bobPub, _ := newKey(t)
	bob := hash.AddressFromPublicKey(bobPub)

	s := ledger.New(map[hash.Address]uint32{alice: 10})
	tx := database.NewTransaction(bob, 40, 1).Sign(alicePriv)

	if _, err := s.Apply([]database.SignedTransaction{tx}); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
}

func TestApply_RejectsUnknownSender(t *testing.T) {
	_, strangerPriv := newKey(t)
	bobPub, _ := newKey(t)
	bob := hash.AddressFromPublicKey(bobPub)

	s := ledger.New(nil)
	tx := database.NewTransaction(bob, 1, 1).Sign(strangerPriv)

	if _, err := s.Apply([]database.SignedTransaction{tx}); !errors.Is(err, ledger.ErrUnknownSender) {
		t.Fatalf("err = %v, want ErrUnknownSender", err)
	}
}

func TestApply_AtomicOnFailure(t *testing.T) {
	_, alicePriv := newKey(t)
	alice := hash.AddressFromPublicKey(alicePriv.Public().(ed25519.PublicKey))
	bobPub, _ := newKey(t)
	bob := hash.AddressFromPublicKey(bobPub)

	s := ledger.New(map[hash.Address]uint32{alice: 100})

	good := database.NewTransaction(bob, 10, 1).Sign(alicePriv)
	bad := database.NewTransaction(bob, 10, 1).Sign(alicePriv) // reused nonce

	if _, err := s.Apply([]database.SignedTransaction{good, bad}); err == nil {
		t.Fatal("expected an error from the second transaction")
	}

	aliceAcct, _ := s.Account(alice)
	if aliceAcct.Balance != 100 || aliceAcct.Nonce != 0 {
		t.Fatalf("partial application leaked into original state: %+v", aliceAcct)
	}
}
