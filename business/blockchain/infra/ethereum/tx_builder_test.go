package ethereum

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/simple-arbitrage/business/blockchain/domain"
	"github.com/fd1az/simple-arbitrage/internal/apperror"
)

var (
	sender   = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	executor = common.HexToAddress("0x00000000000000000000000000000000000000e0")
	pairA    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	pairB    = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func newTestBuilder(t *testing.T, node *fakeNode) *TxBuilder {
	t.Helper()
	b, err := NewTxBuilder(big.NewInt(1), sender, node, newTestOracle(t, node), &mockLogger{})
	if err != nil {
		t.Fatalf("NewTxBuilder: %v", err)
	}
	return b
}

func testCall() domain.MultiCall {
	return domain.MultiCall{
		Executor:    executor,
		Volume:      big.NewInt(1_500_000_000_000_000_000),
		MinerReward: big.NewInt(16_000_000_000_000_000),
		Targets:     []common.Address{pairA, pairB},
		Payloads:    [][]byte{{0x01}, {0x02, 0x03}},
	}
}

func TestTxBuilder_BuildTransaction(t *testing.T) {
	node := &fakeNode{price: big.NewInt(20_000_000_000), nonce: 42}
	b := newTestBuilder(t, node)

	tx, err := b.BuildTransaction(context.Background(), testCall())
	if err != nil {
		t.Fatalf("BuildTransaction: %v", err)
	}

	if tx.To != executor || tx.From != sender || tx.Nonce != 42 || tx.ChainID.Int64() != 1 {
		t.Errorf("tx = %+v", tx)
	}
	if tx.GasFeeCap.Cmp(big.NewInt(40_000_000_000)) != 0 || tx.GasTipCap.Sign() != 0 {
		t.Errorf("fees = cap %s tip %s, want 40 gwei cap and zero tip", tx.GasFeeCap, tx.GasTipCap)
	}
	if tx.Gas != 0 {
		t.Errorf("Gas = %d, want unset until estimated", tx.Gas)
	}
	if len(node.nonceLookup) != 1 || node.nonceLookup[0] != sender {
		t.Errorf("nonce lookups = %v", node.nonceLookup)
	}

	method, err := b.abi.MethodById(tx.Data[:4])
	if err != nil || method.Name != methodUniswapWeth {
		t.Fatalf("selector does not match uniswapWeth: %v", err)
	}
	args, err := method.Inputs.Unpack(tx.Data[4:])
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	call := testCall()
	if args[0].(*big.Int).Cmp(call.Volume) != 0 || args[1].(*big.Int).Cmp(call.MinerReward) != 0 {
		t.Errorf("amounts = %v, %v", args[0], args[1])
	}
	targets := args[2].([]common.Address)
	payloads := args[3].([][]byte)
	if len(targets) != 2 || targets[0] != pairA || targets[1] != pairB {
		t.Errorf("targets = %v", targets)
	}
	if len(payloads) != 2 || string(payloads[1]) != "\x02\x03" {
		t.Errorf("payloads = %x", payloads)
	}
}

func TestTxBuilder_BuildTransactionErrors(t *testing.T) {
	mismatched := testCall()
	mismatched.Payloads = mismatched.Payloads[:1]

	tests := []struct {
		name     string
		node     *fakeNode
		call     domain.MultiCall
		wantCode apperror.Code
	}{
		{name: "mismatched_payloads", node: &fakeNode{price: big.NewInt(1)}, call: mismatched, wantCode: apperror.CodeTransactionBuildFailed},
		{name: "nonce_error", node: &fakeNode{price: big.NewInt(1), nonceErr: errRPC}, call: testCall(), wantCode: apperror.CodeEthereumRPCError},
		{name: "price_error", node: &fakeNode{priceErr: errRPC}, call: testCall(), wantCode: apperror.CodeEthereumRPCError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBuilder(t, tt.node)
			_, err := b.BuildTransaction(context.Background(), tt.call)
			if code := apperror.GetCode(err); code != tt.wantCode {
				t.Errorf("code = %s, want %s (err %v)", code, tt.wantCode, err)
			}
		})
	}
}

func TestTxBuilder_EstimateGasIsRaw(t *testing.T) {
	node := &fakeNode{price: big.NewInt(1), gas: 1_234_567}
	b := newTestBuilder(t, node)

	tx, err := b.BuildTransaction(context.Background(), testCall())
	if err != nil {
		t.Fatalf("BuildTransaction: %v", err)
	}
	gas, err := b.EstimateGas(context.Background(), tx)
	if err != nil {
		t.Fatalf("EstimateGas: %v", err)
	}
	if gas != 1_234_567 {
		t.Errorf("EstimateGas = %d, want the raw node value", gas)
	}
}
