// Package private maintains the group of handlers reachable only by
// other nodes: the inbound peer-message sink that stands in for the
// low-level TCP framing and handshake the core protocol leaves
// external.
package private

import (
	"context"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/qcbit/powchain/foundation/blockchain/peer"
	"github.com/qcbit/powchain/foundation/blockchain/worker"
	"github.com/qcbit/powchain/foundation/web"
)

// Handlers manages the set of node-to-node endpoints.
type Handlers struct {
	Log      *zap.SugaredLogger
	Inbound  chan<- worker.Inbound
	Peers    *peer.Set
	SelfHost string
}

// Message accepts one peer-protocol envelope over HTTP, wraps it with
// a Handle for replying to the sender, and forwards it to the network
// workers for decoding and dispatch.
func (h Handlers) Message(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}

	senderHost := r.Header.Get("X-Node-Host")
	if senderHost != "" {
		h.Peers.Add(peer.New(senderHost))
	}

	select {
	case h.Inbound <- worker.Inbound{Raw: raw, Sender: httpHandle{host: senderHost, self: h.SelfHost}}:
	case <-ctx.Done():
		return ctx.Err()
	}

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// httpHandle lets the network worker reply to the peer that sent a
// message by issuing a new outbound HTTP request to that peer's
// message endpoint; it carries no live connection of its own.
type httpHandle struct {
	host string
	self string
}

func (h httpHandle) Host() string { return h.host }

func (h httpHandle) Write(raw []byte) error {
	return sendToHost(h.self, h.host, raw)
}
