// Package genesis maintains access to the genesis configuration used to
// bootstrap a node's ledger state.
package genesis

import (
	"encoding/json"
	"os"
	"time"
)

// Genesis represents the starting state of the chain: the founding balances
// and the chain-wide constants a node needs before it mines or applies its
// first block.
type Genesis struct {
	Date       time.Time         `json:"date"`
	ChainID    uint16            `json:"chain_id"`
	Difficulty uint16            `json:"difficulty"`
	GasPrice   uint64            `json:"gas_price"`
	Balances   map[string]uint64 `json:"balances"`
}

// Default returns a genesis value with no founding balances, suitable for a
// node started without a pre-funded account set.
func Default() Genesis {
	return Genesis{
		Date:     time.Now().UTC(),
		ChainID:  1,
		Balances: make(map[string]uint64),
	}
}

// Load reads a genesis file from path. If path is empty, Default is
// returned instead.
func Load(path string) (Genesis, error) {
	if path == "" {
		return Default(), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var g Genesis
	if err := json.Unmarshal(content, &g); err != nil {
		return Genesis{}, err
	}

	if g.Balances == nil {
		g.Balances = make(map[string]uint64)
	}

	return g, nil
}
