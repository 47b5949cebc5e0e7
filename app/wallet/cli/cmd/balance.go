package cmd

import (
	"fmt"
	"log"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/chainforge/ledger/foundation/blockchain/signature"
)

type balanceResult struct {
	Balance uint64 `json:"balance"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	Run:   balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
}

func balanceRun(cmd *cobra.Command, args []string) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	accountID, err := signature.Address(&privateKey.PublicKey)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("For Account:", accountID)

	var result balanceResult
	params := struct {
		Address string `json:"address"`
	}{Address: accountID}

	if err := call(url, "eth_getBalance", params, &result); err != nil {
		log.Fatal(err)
	}

	fmt.Println(result.Balance)
}
