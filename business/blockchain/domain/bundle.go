package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SignedBundle is an ordered list of signed raw transactions submitted together.
type SignedBundle struct {
	Transactions [][]byte
	Hashes       []common.Hash
}

// TxSimulation is the per-transaction part of a bundle simulation.
type TxSimulation struct {
	TxHash  common.Hash
	GasUsed uint64
	Error   string
	Revert  string
}

// SimulationResult is the relay's dry run of a bundle against a target block.
type SimulationResult struct {
	Error        string
	FirstRevert  *TxSimulation
	Results      []TxSimulation
	CoinbaseDiff *big.Int
	TotalGasUsed uint64
	BundleHash   string
}

// Failed reports whether the bundle errored or any transaction reverted.
func (s *SimulationResult) Failed() bool {
	return s.Error != "" || s.FirstRevert != nil
}

// EffectiveGasPrice is the coinbase payment per unit of gas, in wei.
func (s *SimulationResult) EffectiveGasPrice() *big.Int {
	if s.CoinbaseDiff == nil || s.TotalGasUsed == 0 {
		return new(big.Int)
	}
	return new(big.Int).Div(s.CoinbaseDiff, new(big.Int).SetUint64(s.TotalGasUsed))
}

// SubmissionAck confirms a relay accepted a bundle for a block.
type SubmissionAck struct {
	BundleHash  string
	TargetBlock uint64
}
