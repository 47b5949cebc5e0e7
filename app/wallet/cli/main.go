// Command wallet is a thin command-line client for a node's JSON-RPC
// surface: generating keys, checking balances, and sending transactions.
package main

import "github.com/chainforge/ledger/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
