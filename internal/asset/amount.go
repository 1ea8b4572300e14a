package asset

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	ErrNilAsset       = errors.New("asset: nil asset")
	ErrNegativeAmount = errors.New("asset: negative amount")
	ErrAssetMismatch  = errors.New("asset: cannot operate on different assets")
)

// Amount is a raw token quantity in the token's smallest unit.
type Amount struct {
	raw   *big.Int
	asset *Asset
}

// NewAmount copies raw into an Amount. It panics on a nil asset or a negative value.
func NewAmount(a *Asset, raw *big.Int) Amount {
	if a == nil {
		panic(ErrNilAsset)
	}
	if raw == nil {
		raw = new(big.Int)
	}
	if raw.Sign() < 0 {
		panic(ErrNegativeAmount)
	}
	return Amount{raw: new(big.Int).Set(raw), asset: a}
}

// FromRaw converts a raw decimal quantity, truncating any fraction of a unit.
func FromRaw(a *Asset, raw decimal.Decimal) (Amount, error) {
	if a == nil {
		return Amount{}, ErrNilAsset
	}
	if raw.IsNegative() {
		return Amount{}, ErrNegativeAmount
	}
	return NewAmount(a, raw.BigInt()), nil
}

// Raw returns a copy of the raw value.
func (a Amount) Raw() *big.Int {
	if a.raw == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.raw)
}

func (a Amount) Asset() *Asset { return a.asset }

func (a Amount) IsZero() bool {
	return a.raw == nil || a.raw.Sign() == 0
}

// Add sums two amounts of the same token.
func (a Amount) Add(b Amount) (Amount, error) {
	if err := a.checkSameAsset(b); err != nil {
		return Amount{}, err
	}
	return NewAmount(a.asset, new(big.Int).Add(a.raw, b.raw)), nil
}

// Cmp compares two amounts of the same token.
func (a Amount) Cmp(b Amount) (int, error) {
	if err := a.checkSameAsset(b); err != nil {
		return 0, err
	}
	return a.raw.Cmp(b.raw), nil
}

// ToDecimal scales the raw value by the token decimals. Display only.
func (a Amount) ToDecimal() decimal.Decimal {
	if a.raw == nil || a.asset == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(a.raw, -int32(a.asset.Decimals()))
}

// String renders e.g. "1.5 WETH".
func (a Amount) String() string {
	if a.asset == nil {
		return "0 ???"
	}
	return fmt.Sprintf("%s %s", a.ToDecimal().String(), a.asset.Symbol())
}

// StringFixed renders with a fixed number of decimal places.
func (a Amount) StringFixed(places int32) string {
	if a.asset == nil {
		return "0 ???"
	}
	return fmt.Sprintf("%s %s", a.ToDecimal().StringFixed(places), a.asset.Symbol())
}

func (a Amount) checkSameAsset(b Amount) error {
	if a.asset == nil || b.asset == nil {
		return ErrNilAsset
	}
	if !a.asset.Equals(b.asset) {
		return fmt.Errorf("%w: %s vs %s", ErrAssetMismatch, a.asset.Symbol(), b.asset.Symbol())
	}
	return nil
}
