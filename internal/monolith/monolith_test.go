package monolith

import (
	"context"
	"errors"
	"math/big"
	"testing"
)

type fakeChain struct {
	id  *big.Int
	err error
}

func (f fakeChain) ChainID(context.Context) (*big.Int, error) { return f.id, f.err }

func TestVerifyChain(t *testing.T) {
	tests := []struct {
		name    string
		node    fakeChain
		want    uint64
		wantErr bool
	}{
		{name: "match", node: fakeChain{id: big.NewInt(1)}, want: 1},
		{name: "mismatch", node: fakeChain{id: big.NewInt(5)}, want: 1, wantErr: true},
		{name: "unchecked", node: fakeChain{err: errors.New("boom")}, want: 0},
		{name: "rpc_error", node: fakeChain{err: errors.New("boom")}, want: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifyChain(context.Background(), tt.node, tt.want)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
