package merkle_test

import (
	"encoding/hex"
	"testing"

	"github.com/qcbit/powchain/foundation/blockchain/hash"
	"github.com/qcbit/powchain/foundation/blockchain/merkle"
)

// rawLeaf is a Hashable whose Hash() is SHA-256 of its own 32 raw
// bytes, matching the fixture data and expected hashes below.
type rawLeaf hash.H256

func (r rawLeaf) Hash() hash.H256 {
	return hash.Sum256(r[:])
}

func mustLeaf(t *testing.T, s string) rawLeaf {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("decoding fixture %q: %s", s, err)
	}
	var l rawLeaf
	copy(l[:], b)
	return l
}

func mustHash(t *testing.T, s string) hash.H256 {
	t.Helper()
	h, err := hash.ParseH256(s)
	if err != nil {
		t.Fatalf("parsing fixture hash %q: %s", s, err)
	}
	return h
}

func TestTree_TwoLeaves(t *testing.T) {
	leaves := []rawLeaf{
		mustLeaf(t, "0a0b0c0d0e0f0e0d0a0b0c0d0e0f0e0d0a0b0c0d0e0f0e0d0a0b0c0d0e0f0e0d"),
		mustLeaf(t, "0101010101010101010101010101010101010101010101010101010101010202"),
	}

	tree := merkle.New(leaves)

	wantRoot := mustHash(t, "6b787718210e0b3b608814e04e61fde06d0df794319a12162f287412df3ec920")
	if got := tree.RootHash(); got != wantRoot {
		t.Fatalf("root = %s, want %s", got, wantRoot)
	}

	proof := tree.Proof(0)
	if len(proof) != 1 {
		t.Fatalf("proof length = %d, want 1", len(proof))
	}
	wantSibling := mustHash(t, "965b093a75a75895a351786dd7a188515173f6928a8af8c9baa4dcff268a4f0f")
	if proof[0] != wantSibling {
		t.Fatalf("proof[0] = %s, want %s", proof[0], wantSibling)
	}

	if !merkle.Verify(tree.RootHash(), leaves[0].Hash(), proof, 0, 2) {
		t.Fatal("verify of leaf 0 failed")
	}
}

func TestTree_EightLeaves(t *testing.T) {
	leaves := []rawLeaf{
		mustLeaf(t, "0a0b0c0d0e0f0e0d0a0b0c0d0e0f0e0d0a0b0c0d0e0f0e0d0a0b0c0d0e0f0e0d"),
		mustLeaf(t, "0101010101010101010101010101010101010101010101010101010101010202"),
		mustLeaf(t, "0101010101010101010101010101010101010101010101010101010101010224"),
		mustLeaf(t, "0404040404040400440040404004040400404040400404040040404040040400"),
		mustLeaf(t, "0010101010101010101010101010101010101010101010101010101010101005"),
		mustLeaf(t, "0010101010101010101010101010101010101010101010101010101010101006"),
		mustLeaf(t, "0010101010101010101010101010101010101010101010101010101010101007"),
		mustLeaf(t, "0010101010101010101010101010101010101010101010101010101010101008"),
	}

	tree := merkle.New(leaves)

	wantRoot := mustHash(t, "a674de8a0d06ce67ff436e5a285e94fe7a09a3a6af90ebc8fcaac5466bc64224")
	if got := tree.RootHash(); got != wantRoot {
		t.Fatalf("root = %s, want %s", got, wantRoot)
	}

	proof := tree.Proof(0)
	want := []string{
		"965b093a75a75895a351786dd7a188515173f6928a8af8c9baa4dcff268a4f0f",
		"dea84136958c9b102eb95000433bf0a5f6f0ffe14c368468419344d7473af271",
		"b4e0a1baeb632622999db4810b437c2322d87e86b5e1cbc405aa3f98328b6bd9",
	}
	if len(proof) != len(want) {
		t.Fatalf("proof length = %d, want %d", len(proof), len(want))
	}
	for i, w := range want {
		if proof[i] != mustHash(t, w) {
			t.Fatalf("proof[%d] = %s, want %s", i, proof[i], w)
		}
	}
}

func TestTree_FiveLeaves(t *testing.T) {
	leaves := []rawLeaf{
		mustLeaf(t, "0a0b0c0d0e0f0e0d0a0b0c0d0e0f0e0d0a0b0c0d0e0f0e0d0a0b0c0d0e0f0e0d"),
		mustLeaf(t, "0101010101010101010101010101010101010101010101010101010101010202"),
		mustLeaf(t, "0101010101010101010101010101010101010101010101010101010101010224"),
		mustLeaf(t, "0202020020202002020200202020020202020020202020020202020200202022"),
		mustLeaf(t, "0901809018239821838129830921830921893801928391289038109283018290"),
	}

	tree := merkle.New(leaves)

	wantRoot := mustHash(t, "a268d5059d8f618c1ffff54d8a7f50c4728acd4c659d3634bf95ce1780561e4d")
	if got := tree.RootHash(); got != wantRoot {
		t.Fatalf("root = %s, want %s", got, wantRoot)
	}

	proof := tree.Proof(4)
	want := []string{
		"dad251b5040ed49de9d950a2143c448123feee32a5dcc7f974069a5b2aed2c32",
		"a2c52bc29476845c2c2d18aa0c8ffef9a6c2b82707e67e3f41eae8ad5ff4d762",
		"2fa8bf87cdb118c7899044d5dc8575341f59bccecfc263051b3f22c30eab9d2b",
	}
	if len(proof) != len(want) {
		t.Fatalf("proof length = %d, want %d", len(proof), len(want))
	}
	for i, w := range want {
		if proof[i] != mustHash(t, w) {
			t.Fatalf("proof[%d] = %s, want %s", i, proof[i], w)
		}
	}

	if !merkle.Verify(tree.RootHash(), leaves[4].Hash(), proof, 4, 5) {
		t.Fatal("verify of leaf 4 failed")
	}
}

func TestVerify_RejectsBadIndexAndMutation(t *testing.T) {
	leaves := []rawLeaf{
		mustLeaf(t, "0a0b0c0d0e0f0e0d0a0b0c0d0e0f0e0d0a0b0c0d0e0f0e0d0a0b0c0d0e0f0e0d"),
		mustLeaf(t, "0101010101010101010101010101010101010101010101010101010101010202"),
	}
	tree := merkle.New(leaves)
	proof := tree.Proof(0)

	if merkle.Verify(tree.RootHash(), leaves[0].Hash(), proof, 2, 2) {
		t.Fatal("verify accepted an out-of-range index")
	}

	mutated := leaves[0]
	mutated[0] ^= 0xff
	if merkle.Verify(tree.RootHash(), mutated.Hash(), proof, 0, 2) {
		t.Fatal("verify accepted a mutated leaf")
	}

	wrongRoot := hash.Sum256([]byte("not the root"))
	if merkle.Verify(wrongRoot, leaves[0].Hash(), proof, 0, 2) {
		t.Fatal("verify accepted the wrong root")
	}
}

func TestTree_OutOfRangeProofIsEmpty(t *testing.T) {
	leaves := []rawLeaf{
		mustLeaf(t, "0a0b0c0d0e0f0e0d0a0b0c0d0e0f0e0d0a0b0c0d0e0f0e0d0a0b0c0d0e0f0e0d"),
	}
	tree := merkle.New(leaves)
	if proof := tree.Proof(5); proof != nil {
		t.Fatalf("expected empty proof for out-of-range index, got %v", proof)
	}
}
