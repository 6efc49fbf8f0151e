package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/qcbit/powchain/foundation/blockchain/database"
	"github.com/qcbit/powchain/foundation/blockchain/genesis"
	"github.com/qcbit/powchain/foundation/blockchain/hash"
	"github.com/qcbit/powchain/foundation/blockchain/mempool"
	"github.com/qcbit/powchain/foundation/blockchain/store"
	"github.com/qcbit/powchain/foundation/blockchain/worker"
)

func TestMiner_MinesQueuedTransaction(t *testing.T) {
	gen := genesis.New()
	st := store.New(gen)
	pool := mempool.New()

	receiverPub, _ := genesis.KeyFromSeed(99)
	receiver := hash.AddressFromPublicKey(receiverPub)

	senderPriv := gen.ICOKey[0]
	signed := database.NewTransaction(receiver, 10, 1).Sign(senderPriv)
	pool.Insert(signed, true)

	finished := make(chan database.Block, 1)
	m := worker.NewMiner(st, pool, finished, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	m.Control() <- worker.Start(0)

	select {
	case block := <-finished:
		if len(block.Content) != 1 {
			t.Fatalf("expected 1 transaction in mined block, got %d", len(block.Content))
		}
		if block.Content[0].Hash() != signed.Hash() {
			t.Fatal("mined block carries the wrong transaction")
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for miner to produce a block")
	}

	m.Control() <- worker.Exit()
	<-done
}

func TestMiner_IdleWhenMempoolEmpty(t *testing.T) {
	gen := genesis.New()
	st := store.New(gen)
	pool := mempool.New()

	finished := make(chan database.Block, 1)
	m := worker.NewMiner(st, pool, finished, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	m.Control() <- worker.Start(0)

	select {
	case <-finished:
		t.Fatal("miner should not produce a block with an empty mempool")
	case <-ctx.Done():
	}

	<-done
}
