// This program is the wallet CLI used to manage Ed25519 keys and
// submit signed transactions to a node's public API.
package main

import "github.com/qcbit/powchain/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
