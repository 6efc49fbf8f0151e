package worker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/qcbit/powchain/foundation/blockchain/database"
	"github.com/qcbit/powchain/foundation/blockchain/genesis"
	"github.com/qcbit/powchain/foundation/blockchain/mempool"
	"github.com/qcbit/powchain/foundation/blockchain/message"
	"github.com/qcbit/powchain/foundation/blockchain/store"
	"github.com/qcbit/powchain/foundation/blockchain/worker"
)

// fakeHandle records every reply written to it and identifies itself
// by a fixed host name.
type fakeHandle struct {
	host string

	mu      sync.Mutex
	written [][]byte
}

func (h *fakeHandle) Host() string { return h.host }

func (h *fakeHandle) Write(raw []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.written = append(h.written, raw)
	return nil
}

func (h *fakeHandle) replies() [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([][]byte(nil), h.written...)
}

// fakeServer records every broadcast frame.
type fakeServer struct {
	mu          sync.Mutex
	broadcasted [][]byte
}

func (s *fakeServer) Broadcast(raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcasted = append(s.broadcasted, raw)
	return nil
}

func (s *fakeServer) SendTo(string, []byte) error { return nil }

func startOneNetworkWorker(ctx context.Context, st *store.Store, pool *mempool.Mempool, srv *fakeServer) chan<- worker.Inbound {
	return startOneNetworkWorkerWithControl(ctx, st, pool, srv, nil, nil)
}

func startOneNetworkWorkerWithControl(ctx context.Context, st *store.Store, pool *mempool.Mempool, srv *fakeServer, minerControl, generatorControl chan worker.Signal) chan<- worker.Inbound {
	ch := make(chan worker.Inbound, 8)
	worker.RunNetworkWorkers(ctx, 1, ch, st, pool, srv, minerControl, generatorControl, nil)
	return ch
}

func TestNetworkWorker_PingIsAnsweredWithPong(t *testing.T) {
	gen := genesis.New()
	st := store.New(gen)
	pool := mempool.New()
	srv := &fakeServer{}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ch := startOneNetworkWorker(ctx, st, pool, srv)

	sender := &fakeHandle{host: "peer-a"}
	raw, err := message.EncodePing(message.Ping{Nonce: "abc"})
	if err != nil {
		t.Fatalf("encode ping: %s", err)
	}
	ch <- worker.Inbound{Raw: raw, Sender: sender}

	deadline := time.After(time.Second)
	for {
		if replies := sender.replies(); len(replies) > 0 {
			decoded, err := message.Decode(replies[0])
			if err != nil {
				t.Fatalf("decode reply: %s", err)
			}
			if decoded.Type != message.TypePong || decoded.Pong.Nonce != "abc" {
				t.Fatalf("expected a pong echoing nonce abc, got %+v", decoded)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for pong reply")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestNetworkWorker_AcceptsKnownParentBlockAndRebroadcasts(t *testing.T) {
	gen := genesis.New()
	st := store.New(gen)
	pool := mempool.New()
	srv := &fakeServer{}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ch := startOneNetworkWorker(ctx, st, pool, srv)

	// processBlock requires a received block's difficulty to match its
	// parent's exactly, so this must be mined at genesis's real
	// difficulty rather than an artificially easy one.
	block, err := database.POW(ctx, database.POWArgs{
		ParentHash: st.GenesisHash(),
		Difficulty: genesis.Difficulty(),
	})
	if err != nil {
		t.Fatalf("mining block: %s", err)
	}

	raw, err := message.EncodeBlocks(message.Blocks{Blocks: []database.Block{block}})
	if err != nil {
		t.Fatalf("encode blocks: %s", err)
	}
	ch <- worker.Inbound{Raw: raw, Sender: &fakeHandle{host: "peer-a"}}

	deadline := time.After(time.Second)
	for {
		if st.IsHashPresent(block.Hash()) {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for block to be inserted")
		case <-time.After(5 * time.Millisecond):
		}
	}

	deadline = time.After(time.Second)
	for {
		srv.mu.Lock()
		n := len(srv.broadcasted)
		srv.mu.Unlock()
		if n > 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the accepted block's hash to be rebroadcast")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestNetworkWorker_TipChangeSignalsMinerAndGenerator(t *testing.T) {
	gen := genesis.New()
	st := store.New(gen)
	pool := mempool.New()
	srv := &fakeServer{}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	minerControl := make(chan worker.Signal, 1)
	generatorControl := make(chan worker.Signal, 1)
	ch := startOneNetworkWorkerWithControl(ctx, st, pool, srv, minerControl, generatorControl)

	block, err := database.POW(ctx, database.POWArgs{
		ParentHash: st.GenesisHash(),
		Difficulty: genesis.Difficulty(),
	})
	if err != nil {
		t.Fatalf("mining block: %s", err)
	}

	raw, err := message.EncodeBlocks(message.Blocks{Blocks: []database.Block{block}})
	if err != nil {
		t.Fatalf("encode blocks: %s", err)
	}
	ch <- worker.Inbound{Raw: raw, Sender: &fakeHandle{host: "peer-a"}}

	assertUpdateSignal := func(t *testing.T, name string, c <-chan worker.Signal) {
		t.Helper()
		select {
		case sig := <-c:
			if sig.Kind != worker.SignalUpdate {
				t.Fatalf("%s received signal kind %v, want SignalUpdate", name, sig.Kind)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s to receive an Update signal", name)
		}
	}

	assertUpdateSignal(t, "miner", minerControl)
	assertUpdateSignal(t, "generator", generatorControl)
}
