package rewards

import (
	"math/big"
	"testing"
)

func TestRoundIssuance(t *testing.T) {
	t.Parallel()

	supply := big.NewInt(1000000000)
	if got := RoundIssuance(supply, 137); got.Cmp(big.NewInt(137000)) != 0 {
		t.Fatalf("wrong issuance: %s", got)
	}

	if got := RoundIssuance(big.NewInt(0), 137); got.Sign() != 0 {
		t.Fatal("zero supply must issue nothing")
	}
}

func TestMintShare(t *testing.T) {
	t.Parallel()

	issuance := big.NewInt(1000)

	if got := MintShare(issuance, big.NewInt(300), big.NewInt(1000)); got.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("wrong share: %s", got)
	}
	if got := MintShare(issuance, big.NewInt(1000), big.NewInt(1000)); got.Cmp(issuance) != 0 {
		t.Fatal("full weight must take the full issuance")
	}
	if got := MintShare(issuance, big.NewInt(0), big.NewInt(1000)); got.Sign() != 0 {
		t.Fatal("zero weight must mint nothing")
	}
	if got := MintShare(issuance, big.NewInt(300), big.NewInt(0)); got.Sign() != 0 {
		t.Fatal("zero total weight must mint nothing")
	}
}
