package cmd

import (
	"crypto/ecdsa"
	"fmt"
	"log"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/chainforge/ledger/foundation/blockchain/database"
	"github.com/chainforge/ledger/foundation/blockchain/signature"
)

var (
	url      string
	to       string
	amount   uint64
	gasPrice uint64
	nonce    uint64
	data     []byte
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send transaction",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		sendWithDetails(privateKey)
	},
}

func sendWithDetails(privateKey *ecdsa.PrivateKey) {
	from, err := signature.Address(&privateKey.PublicKey)
	if err != nil {
		log.Fatal(err)
	}

	txNonce := nonce
	if txNonce == 0 {
		var result struct {
			Nonce uint64 `json:"nonce"`
		}
		params := struct {
			Address string `json:"address"`
		}{Address: from}

		if err := call(url, "eth_getAccountNonce", params, &result); err != nil {
			log.Fatal(err)
		}
		txNonce = result.Nonce + 1
	}

	tx := database.Tx{
		From:      database.AccountID(from),
		To:        database.AccountID(to),
		Amount:    amount,
		GasPrice:  gasPrice,
		Nonce:     txNonce,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		PublicKey: signature.PublicKeyBytes(&privateKey.PublicKey),
		Data:      data,
	}

	signedTx, err := tx.Sign(privateKey)
	if err != nil {
		log.Fatal(err)
	}

	var result struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := call(url, "eth_sendTransaction", signedTx, &result); err != nil {
		log.Fatal(err)
	}

	fmt.Println("submitted:", result.TransactionID)
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Recipient account address.")
	sendCmd.Flags().Uint64VarP(&amount, "amount", "v", 0, "Amount to send.")
	sendCmd.Flags().Uint64VarP(&gasPrice, "gas-price", "g", 0, "Gas price to offer.")
	sendCmd.Flags().Uint64VarP(&nonce, "nonce", "n", 0, "Nonce for the transaction; 0 auto-fetches the next expected nonce.")
	sendCmd.Flags().BytesHexVarP(&data, "data", "d", nil, "Data to send.")
}
