package cmd

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/qcbit/powchain/foundation/blockchain/genesis"
	"github.com/qcbit/powchain/foundation/blockchain/hash"
)

var keygenOut string

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an Ed25519 key and write its seed to a file.",
	Run:   keygenRun,
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	keygenCmd.Flags().StringVarP(&keygenOut, "out", "o", "wallet.key", "file to write the hex-encoded seed to")
}

func keygenRun(cmd *cobra.Command, args []string) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		log.Fatal(err)
	}

	seed := priv.Seed()
	if err := os.WriteFile(keygenOut, []byte(hex.EncodeToString(seed)), 0o600); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("wrote %s, address %s\n", keygenOut, hash.AddressFromPublicKey(pub))
}

// loadSenderKey resolves the private key a wallet subcommand should
// sign with: a seed file on disk, or one of the fixed demo keys used
// for local testing against a node started with matching ICO seeds.
func loadSenderKey(keyPath string, seed uint32, useSeed bool) (ed25519.PrivateKey, error) {
	if useSeed {
		_, priv := genesis.KeyFromSeed(seed)
		return priv, nil
	}

	if keyPath == "" {
		return nil, fmt.Errorf("either --key or --use-seed must be given")
	}

	raw, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}

	seedBytes, err := hex.DecodeString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding key file: %w", err)
	}
	if len(seedBytes) != ed25519.SeedSize {
		return nil, fmt.Errorf("key file has %d bytes, want %d", len(seedBytes), ed25519.SeedSize)
	}

	return ed25519.NewKeyFromSeed(seedBytes), nil
}
