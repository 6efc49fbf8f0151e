package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	balanceURL   string
	balanceBlock uint64
)

type accountBalanceRow struct {
	Address string `json:"address"`
	Nonce   uint32 `json:"nonce"`
	Balance uint32 `json:"balance"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print account balances as of a given block height.",
	Run:   balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVarP(&balanceURL, "url", "u", "http://localhost:8080", "public API base URL of the node")
	balanceCmd.Flags().Uint64VarP(&balanceBlock, "block", "b", 0, "block height to read state as of")
}

func balanceRun(cmd *cobra.Command, args []string) {
	resp, err := http.Get(fmt.Sprintf("%s/v1/blockchain/state?block=%d", balanceURL, balanceBlock))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatal(err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("node returned %s: %s", resp.Status, body)
	}

	var rows []accountBalanceRow
	if err := json.Unmarshal(body, &rows); err != nil {
		log.Fatal(err)
	}

	for _, row := range rows {
		fmt.Printf("%s  nonce=%-6d balance=%d\n", row.Address, row.Nonce, row.Balance)
	}
}
