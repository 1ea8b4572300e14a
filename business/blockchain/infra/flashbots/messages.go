package flashbots

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/fd1az/simple-arbitrage/business/blockchain/domain"
)

// JSON-RPC envelope

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// RPCError is a JSON-RPC error object returned by the relay.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("relay rpc error %d: %s", e.Code, e.Message)
}

// eth_callBundle

type callBundleParams struct {
	Txs              []hexutil.Bytes `json:"txs"`
	BlockNumber      hexutil.Uint64  `json:"blockNumber"`
	StateBlockNumber string          `json:"stateBlockNumber"`
}

type callBundleTxResult struct {
	TxHash       common.Hash `json:"txHash"`
	GasUsed      uint64      `json:"gasUsed"`
	CoinbaseDiff string      `json:"coinbaseDiff"`
	Error        string      `json:"error"`
	Revert       string      `json:"revert"`
}

type callBundleResult struct {
	BundleHash   string               `json:"bundleHash"`
	CoinbaseDiff string               `json:"coinbaseDiff"`
	TotalGasUsed uint64               `json:"totalGasUsed"`
	Results      []callBundleTxResult `json:"results"`
}

// toSimulation maps the relay answer, picking the first failing transaction.
func (r *callBundleResult) toSimulation() (*domain.SimulationResult, error) {
	sim := &domain.SimulationResult{
		BundleHash:   r.BundleHash,
		TotalGasUsed: r.TotalGasUsed,
		CoinbaseDiff: new(big.Int),
		Results:      make([]domain.TxSimulation, 0, len(r.Results)),
	}

	if r.CoinbaseDiff != "" {
		if _, ok := sim.CoinbaseDiff.SetString(r.CoinbaseDiff, 10); !ok {
			return nil, fmt.Errorf("malformed coinbaseDiff %q", r.CoinbaseDiff)
		}
	}

	for _, tx := range r.Results {
		sim.Results = append(sim.Results, domain.TxSimulation{
			TxHash:  tx.TxHash,
			GasUsed: tx.GasUsed,
			Error:   tx.Error,
			Revert:  tx.Revert,
		})
	}
	for i := range sim.Results {
		if sim.Results[i].Error != "" || sim.Results[i].Revert != "" {
			sim.FirstRevert = &sim.Results[i]
			break
		}
	}

	return sim, nil
}

// eth_sendBundle

type sendBundleParams struct {
	Txs         []hexutil.Bytes `json:"txs"`
	BlockNumber hexutil.Uint64  `json:"blockNumber"`
}

type sendBundleResult struct {
	BundleHash string `json:"bundleHash"`
}

func rawTxs(bundle *domain.SignedBundle) []hexutil.Bytes {
	txs := make([]hexutil.Bytes, len(bundle.Transactions))
	for i, raw := range bundle.Transactions {
		txs[i] = raw
	}
	return txs
}
