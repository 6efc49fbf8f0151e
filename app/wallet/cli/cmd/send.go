package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/qcbit/powchain/foundation/blockchain/database"
	"github.com/qcbit/powchain/foundation/blockchain/hash"
)

var (
	sendURL      string
	sendKeyPath  string
	sendSeed     uint32
	sendUseSeed  bool
	sendTo       string
	sendValue    uint32
	sendNonce    uint32
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Sign and submit a transaction to a node.",
	Run:   sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&sendURL, "url", "u", "http://localhost:8080", "public API base URL of the node")
	sendCmd.Flags().StringVarP(&sendKeyPath, "key", "k", "", "path to a key file written by 'wallet keygen'")
	sendCmd.Flags().Uint32Var(&sendSeed, "seed", 0, "use the deterministic demo key for this seed instead of --key")
	sendCmd.Flags().BoolVar(&sendUseSeed, "use-seed", false, "select the demo seed key rather than --key")
	sendCmd.Flags().StringVarP(&sendTo, "to", "t", "", "receiver address (0x-prefixed hex)")
	sendCmd.Flags().Uint32VarP(&sendValue, "value", "v", 0, "amount to send")
	sendCmd.Flags().Uint32VarP(&sendNonce, "nonce", "n", 1, "account nonce for this transaction")
}

func sendRun(cmd *cobra.Command, args []string) {
	priv, err := loadSenderKey(sendKeyPath, sendSeed, sendUseSeed)
	if err != nil {
		log.Fatal(err)
	}

	receiver, err := hash.ParseAddress(sendTo)
	if err != nil {
		log.Fatalf("parsing --to: %s", err)
	}

	tx := database.NewTransaction(receiver, sendValue, sendNonce)
	signed := tx.Sign(priv)

	payload := struct {
		Receiver     string `json:"receiver"`
		Value        uint32 `json:"value"`
		AccountNonce uint32 `json:"account_nonce"`
		Signature    []byte `json:"signature"`
		PublicKey    []byte `json:"public_key"`
	}{
		Receiver:     receiver.String(),
		Value:        signed.Transaction.Value,
		AccountNonce: signed.Transaction.AccountNonce,
		Signature:    signed.Signature,
		PublicKey:    signed.PublicKey,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Fatal(err)
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/tx/submit", sendURL), "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	fmt.Printf("submitted %s: %s\n", signed.Hash(), resp.Status)
}
