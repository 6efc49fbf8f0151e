package private

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/qcbit/powchain/foundation/blockchain/peer"
)

const messagePath = "/v1/node/message"

// httpServer is the peer.Server used by the node: it ships raw
// protocol bytes to peers over a plain HTTP POST, since the low-level
// peer transport is left external by the core design and the teacher
// repo's own inter-node calls are plain HTTP.
type httpServer struct {
	peers *peer.Set
	self  string
}

// NewHTTPServer constructs the peer.Server the workers broadcast
// through, backed by HTTP requests to every peer in peers.
func NewHTTPServer(peers *peer.Set, selfHost string) peer.Server {
	return &httpServer{peers: peers, self: selfHost}
}

func (s *httpServer) Broadcast(raw []byte) error {
	var firstErr error
	for _, p := range s.peers.List() {
		if err := sendToHost(s.self, p.Host, raw); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *httpServer) SendTo(host string, raw []byte) error {
	return sendToHost(s.self, host, raw)
}

func sendToHost(selfHost, host string, raw []byte) error {
	url := fmt.Sprintf("http://%s%s", host, messagePath)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("building request to %s: %w", host, err)
	}
	req.Header.Set("Content-Type", "application/cbor")
	req.Header.Set("X-Node-Host", selfHost)

	var client http.Client
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sending to %s: %w", host, err)
	}
	defer resp.Body.Close()

	return nil
}
