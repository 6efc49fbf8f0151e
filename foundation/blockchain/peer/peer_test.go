package peer_test

import (
	"testing"

	"github.com/qcbit/powchain/foundation/blockchain/peer"
)

func TestSet_RefusesSelf(t *testing.T) {
	s := peer.NewSet("127.0.0.1:9080")

	if s.Add(peer.New("127.0.0.1:9080")) {
		t.Fatal("Set should refuse to add self")
	}
	if len(s.List()) != 0 {
		t.Fatal("self should not appear in List")
	}
}

func TestSet_AddRemoveList(t *testing.T) {
	s := peer.NewSet("127.0.0.1:9080")

	if !s.Add(peer.New("127.0.0.1:9081")) {
		t.Fatal("expected first Add to report newly added")
	}
	if s.Add(peer.New("127.0.0.1:9081")) {
		t.Fatal("duplicate Add should report false")
	}

	list := s.List()
	if len(list) != 1 || list[0].Host != "127.0.0.1:9081" {
		t.Fatalf("List() = %v, want one entry for 127.0.0.1:9081", list)
	}

	s.Remove(peer.New("127.0.0.1:9081"))
	if len(s.List()) != 0 {
		t.Fatal("peer should be gone after Remove")
	}
}
