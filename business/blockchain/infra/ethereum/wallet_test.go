package ethereum

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/fd1az/simple-arbitrage/business/blockchain/domain"
	"github.com/fd1az/simple-arbitrage/internal/apperror"
)

func TestWallet_SignTx(t *testing.T) {
	key, _ := crypto.GenerateKey()
	chainID := big.NewInt(1)

	for _, hexKey := range []string{
		hexutil.Encode(crypto.FromECDSA(key)),
		hexutil.Encode(crypto.FromECDSA(key))[2:],
	} {
		w, err := NewWallet(hexKey, chainID)
		if err != nil {
			t.Fatalf("NewWallet: %v", err)
		}
		if w.Address() != crypto.PubkeyToAddress(key.PublicKey) {
			t.Errorf("Address = %s", w.Address().Hex())
		}

		signed, err := w.SignTx(&domain.TxRequest{ChainID: chainID, Nonce: 1, Gas: 21_000})
		if err != nil {
			t.Fatalf("SignTx: %v", err)
		}
		from, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
		if err != nil {
			t.Fatalf("Sender: %v", err)
		}
		if from != w.Address() {
			t.Errorf("sender = %s, want %s", from.Hex(), w.Address().Hex())
		}
	}
}

func TestNewWallet_BadKey(t *testing.T) {
	_, err := NewWallet("0xzz", big.NewInt(1))
	if code := apperror.GetCode(err); code != apperror.CodeInvalidKey {
		t.Errorf("code = %s, want %s", code, apperror.CodeInvalidKey)
	}
}
