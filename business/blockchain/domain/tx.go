package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// MultiCall is one atomic bundle-executor invocation: spend Volume of the
// quote token, run each payload against its target, pay MinerReward to coinbase.
type MultiCall struct {
	Executor    common.Address
	Volume      *big.Int
	MinerReward *big.Int
	Targets     []common.Address
	Payloads    [][]byte
}

// TxRequest is an unsigned EIP-1559 transaction.
type TxRequest struct {
	ChainID   *big.Int
	From      common.Address
	To        common.Address
	Data      []byte
	Value     *big.Int
	Nonce     uint64
	Gas       uint64
	GasTipCap *big.Int
	GasFeeCap *big.Int
}

// CallMsg converts the request for eth_call / eth_estimateGas.
func (t *TxRequest) CallMsg() ethereum.CallMsg {
	to := t.To
	return ethereum.CallMsg{
		From:      t.From,
		To:        &to,
		Data:      t.Data,
		Value:     t.Value,
		GasTipCap: t.GasTipCap,
		GasFeeCap: t.GasFeeCap,
	}
}

// ToDynamicFeeTx builds the unsigned go-ethereum transaction.
func (t *TxRequest) ToDynamicFeeTx() *types.Transaction {
	to := t.To
	value := t.Value
	if value == nil {
		value = new(big.Int)
	}
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   t.ChainID,
		Nonce:     t.Nonce,
		GasTipCap: orZero(t.GasTipCap),
		GasFeeCap: orZero(t.GasFeeCap),
		Gas:       t.Gas,
		To:        &to,
		Value:     value,
		Data:      t.Data,
	})
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
