// Package peer models the known-peer set and the narrow interfaces
// the consensus engine needs from a connected peer and from the
// server hosting those connections. The actual TCP framing and
// handshake are an external collaborator (out of scope here); this
// package only defines what the core needs to call.
package peer

import "sync"

// Peer identifies one remote node by its host:port.
type Peer struct {
	Host string
}

// New constructs a Peer for host.
func New(host string) Peer {
	return Peer{Host: host}
}

// Match reports whether p refers to the same host as other.
func (p Peer) Match(other string) bool {
	return p.Host == other
}

// Handle is the capability the network worker holds for replying to
// the specific peer that sent a message. Encoding/decoding messages
// is the network package's job; Handle only moves already-encoded
// bytes.
type Handle interface {
	Host() string
	Write(raw []byte) error
}

// Server is the capability injected into the consensus engine for
// sending to every connected peer at once (used for rebroadcasts —
// NewBlockHashes, GetBlocks for missing parents, NewTransactionHashes)
// or to one peer by Host (used for selective replies when only a
// Host, not a live Handle, is available, e.g. from a handler running
// outside the originating worker).
type Server interface {
	Broadcast(raw []byte) error
	SendTo(host string, raw []byte) error
}

// Set is the mutex-protected collection of known peers (self
// excluded). It is intentionally simple: membership only, no
// reputation or scoring.
type Set struct {
	mu   sync.Mutex
	self string
	set  map[string]Peer
}

// NewSet constructs an empty Set that will refuse to add self.
func NewSet(self string) *Set {
	return &Set{self: self, set: make(map[string]Peer)}
}

// Add inserts peer into the set if it isn't self and isn't already
// present. It returns true if the peer was newly added.
func (s *Set) Add(p Peer) bool {
	if p.Match(s.self) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.set[p.Host]; ok {
		return false
	}
	s.set[p.Host] = p
	return true
}

// Remove drops peer p from the set.
func (s *Set) Remove(p Peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.set, p.Host)
}

// List returns a snapshot of every known peer.
func (s *Set) List() []Peer {
	s.mu.Lock()
	defer s.mu.Unlock()

	peers := make([]Peer, 0, len(s.set))
	for _, p := range s.set {
		peers = append(peers, p)
	}
	return peers
}
