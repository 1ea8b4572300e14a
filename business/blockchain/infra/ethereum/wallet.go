package ethereum

import (
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/fd1az/simple-arbitrage/business/blockchain/domain"
	"github.com/fd1az/simple-arbitrage/internal/apperror"
)

// Wallet holds the executor key and signs its transactions.
type Wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
	signer  types.Signer
}

// NewWallet parses a hex private key (with or without 0x) for chainID.
func NewWallet(hexKey string, chainID *big.Int) (*Wallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidKey,
			apperror.WithCause(err),
			apperror.WithContext("executor private key"))
	}

	return &Wallet{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		signer:  types.LatestSignerForChainID(chainID),
	}, nil
}

// Address returns the account the wallet signs for.
func (w *Wallet) Address() common.Address {
	return w.address
}

// SignTx signs req as an EIP-1559 transaction.
func (w *Wallet) SignTx(req *domain.TxRequest) (*types.Transaction, error) {
	signed, err := types.SignTx(req.ToDynamicFeeTx(), w.signer, w.key)
	if err != nil {
		return nil, apperror.New(apperror.CodeBundleSigningFailed,
			apperror.WithCause(err),
			apperror.WithContext("sign transaction"))
	}
	return signed, nil
}
