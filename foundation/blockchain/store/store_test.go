package store_test

import (
	"context"
	"testing"

	"github.com/qcbit/powchain/foundation/blockchain/database"
	"github.com/qcbit/powchain/foundation/blockchain/genesis"
	"github.com/qcbit/powchain/foundation/blockchain/hash"
	"github.com/qcbit/powchain/foundation/blockchain/store"
)

// easyDifficulty is the maximum possible H256 value, so any hash
// satisfies it on the first attempt. Tests use it to avoid a real
// proof-of-work search.
func easyDifficulty() hash.H256 {
	var d hash.H256
	for i := range d {
		d[i] = 0xff
	}
	return d
}

func mineBlock(t *testing.T, parent hash.H256) database.Block {
	t.Helper()
	b, err := database.POW(context.Background(), database.POWArgs{
		ParentHash: parent,
		Difficulty: easyDifficulty(),
	})
	if err != nil {
		t.Fatalf("mining block: %s", err)
	}
	return b
}

func TestStore_TieBreakFirstSeenWins(t *testing.T) {
	gen := genesis.New()
	s := store.New(gen)

	b1 := mineBlock(t, s.GenesisHash())
	if ins, _, err := s.Insert(b1); err != nil || !ins {
		t.Fatalf("insert b1: ins=%v err=%v", ins, err)
	}

	b2 := mineBlock(t, b1.Hash())
	if ins, _, err := s.Insert(b2); err != nil || !ins {
		t.Fatalf("insert b2: ins=%v err=%v", ins, err)
	}

	b3 := mineBlock(t, b2.Hash())
	if ins, _, err := s.Insert(b3); err != nil || !ins {
		t.Fatalf("insert b3: ins=%v err=%v", ins, err)
	}

	b4 := mineBlock(t, b1.Hash())
	if ins, _, err := s.Insert(b4); err != nil || !ins {
		t.Fatalf("insert b4: ins=%v err=%v", ins, err)
	}

	b5 := mineBlock(t, b4.Hash())
	if ins, _, err := s.Insert(b5); err != nil || !ins {
		t.Fatalf("insert b5: ins=%v err=%v", ins, err)
	}

	b6 := mineBlock(t, s.GenesisHash())
	if ins, _, err := s.Insert(b6); err != nil || !ins {
		t.Fatalf("insert b6: ins=%v err=%v", ins, err)
	}

	if tip := s.Tip(); tip != b3.Hash() {
		t.Fatalf("tip = %s, want b3 %s (b5 ties height but arrived later)", tip, b3.Hash())
	}

	// Now extend b5's branch past b3's height; the tip must switch.
	b7 := mineBlock(t, b5.Hash())
	inserted, tipChanged, err := s.Insert(b7)
	if err != nil || !inserted || !tipChanged {
		t.Fatalf("insert b7: inserted=%v tipChanged=%v err=%v", inserted, tipChanged, err)
	}

	if tip := s.Tip(); tip != b7.Hash() {
		t.Fatalf("tip = %s, want b7 %s", tip, b7.Hash())
	}

	chain := s.AllBlocksInLongestChain()
	wantHashes := []hash.H256{gen.Block.Hash(), b1.Hash(), b4.Hash(), b5.Hash(), b7.Hash()}
	if len(chain) != len(wantHashes) {
		t.Fatalf("chain length = %d, want %d", len(chain), len(wantHashes))
	}
	for i, b := range chain {
		if b.Hash() != wantHashes[i] {
			t.Fatalf("chain[%d] = %s, want %s", i, b.Hash(), wantHashes[i])
		}
	}
}

func TestStore_OrphanIsNotInserted(t *testing.T) {
	gen := genesis.New()
	s := store.New(gen)

	var unknownParent hash.H256
	unknownParent[0] = 0x42

	orphan := mineBlock(t, unknownParent)
	inserted, _, err := s.Insert(orphan)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if inserted {
		t.Fatal("orphan block should not be inserted")
	}
	if s.IsHashPresent(orphan.Hash()) {
		t.Fatal("orphan block should not be present in the store")
	}
}

func TestStore_RejectsUnsolvedProofOfWork(t *testing.T) {
	gen := genesis.New()
	s := store.New(gen)

	hard := hash.H256{} // minimum possible difficulty target: nothing satisfies it except an all-zero hash
	b := database.Block{
		Header: database.Header{
			ParentHash: s.GenesisHash(),
			Difficulty: hard,
		},
	}

	inserted, _, err := s.Insert(b)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if inserted {
		t.Fatal("block with unsatisfied proof-of-work should not be inserted")
	}
}
