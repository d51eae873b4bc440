package helpers

import (
	"math/big"
	"testing"
)

func TestVidToAtto(t *testing.T) {
	t.Parallel()

	got := VidToAtto(big.NewInt(2))
	if got.String() != "2000000000000000000" {
		t.Fatalf("expected 2e18 atto, got %s", got)
	}

	// the input must stay untouched
	in := big.NewInt(7)
	VidToAtto(in)
	if in.Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("input mutated: %s", in)
	}
}

func TestStringToBigInt(t *testing.T) {
	t.Parallel()

	if got := StringToBigInt("10"); got.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("expected 10, got %s", got)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("malformed amount must panic")
		}
	}()
	StringToBigInt("ten")
}

func TestIsValidBigInt(t *testing.T) {
	t.Parallel()

	for s, want := range map[string]bool{
		"":    false,
		"ten": false,
		"-1":  false,
		"0":   true,
		"10":  true,
	} {
		if IsValidBigInt(s) != want {
			t.Fatalf("IsValidBigInt(%q) != %v", s, want)
		}
	}
}
