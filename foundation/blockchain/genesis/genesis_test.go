package genesis_test

import (
	"testing"

	"github.com/qcbit/powchain/foundation/blockchain/genesis"
	"github.com/qcbit/powchain/foundation/blockchain/hash"
)

func TestNew_ContentCarriesSelfSignedICOTransaction(t *testing.T) {
	g := genesis.New()

	if len(g.Block.Content) != 1 {
		t.Fatalf("genesis content has %d transactions, want 1", len(g.Block.Content))
	}

	tx := g.Block.Content[0]
	if !tx.Verify() {
		t.Fatal("genesis ICO transaction does not verify against its own signature")
	}
	if tx.Sender() != g.ICOAddress[0] {
		t.Fatalf("genesis ICO transaction sender = %s, want seed-0 address %s", tx.Sender(), g.ICOAddress[0])
	}
	if tx.Transaction.Receiver != g.ICOAddress[0] {
		t.Fatalf("genesis ICO transaction receiver = %s, want self (seed-0 address)", tx.Transaction.Receiver)
	}
	if tx.Transaction.Value != g.Balances()[g.ICOAddress[0]] {
		t.Fatalf("genesis ICO transaction value = %d, want %d", tx.Transaction.Value, g.Balances()[g.ICOAddress[0]])
	}
}

func TestNew_MerkleRootIsNotZero(t *testing.T) {
	g := genesis.New()

	if g.Block.Header.MerkleRoot == hash.ZeroHash {
		t.Fatal("genesis block's Merkle root should commit to its ICO content, not be the zero hash")
	}
}

func TestNew_SeededBalancesMatchICOBalancesIndependentlyOfContent(t *testing.T) {
	g := genesis.New()
	balances := g.Balances()

	if balances[g.ICOAddress[0]] == 0 {
		t.Fatal("seed-0 address should hold the initial supply")
	}
	if balances[g.ICOAddress[1]] != 0 || balances[g.ICOAddress[2]] != 0 {
		t.Fatal("only seed 0 is funded at genesis")
	}
}
