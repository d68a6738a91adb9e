package market

import (
	"math/big"
	"testing"
)

func FuzzSplitPaymentConservesValue(f *testing.F) {
	f.Add(uint64(100), uint32(0))
	f.Add(uint64(1), uint32(MaxShareOwnFeeBps))
	f.Add(uint64(999_999_999), uint32(1234))

	f.Fuzz(func(t *testing.T, raw uint64, shareBps uint32) {
		shareBps %= MaxShareOwnFeeBps + 1
		price := new(big.Int).SetUint64(raw)
		split := SplitPayment(price, shareBps)
		if split.Total().Cmp(price) != 0 {
			t.Fatalf("split of %s at %d bps sums to %s", price, shareBps, split.Total())
		}
		for name, part := range map[string]*big.Int{
			"protocol": split.Protocol, "referrer": split.Referrer, "owner": split.Owner, "creator": split.Creator,
		} {
			if part.Sign() < 0 {
				t.Fatalf("%s share negative: %s", name, part)
			}
		}
		if split.Referrer.Cmp(split.Owner) != 0 {
			t.Fatalf("referrer %s and owner %s shares differ", split.Referrer, split.Owner)
		}

		returned, fee := RefundSplit(price)
		if new(big.Int).Add(returned, fee).Cmp(price) != 0 {
			t.Fatalf("refund of %s leaks value", price)
		}
	})
}

func FuzzNextPriceIsMonotonic(f *testing.F) {
	f.Add(uint64(100), uint32(1000))
	f.Add(uint64(0), uint32(BasisPoints))

	f.Fuzz(func(t *testing.T, raw uint64, stepBps uint32) {
		current := new(big.Int).SetUint64(raw)
		next := NextPrice(current, stepBps)
		if next.Cmp(current) < 0 {
			t.Fatalf("price decreased from %s to %s", current, next)
		}
		if next.Cmp(MaxPrice) > 0 {
			t.Fatalf("price %s exceeds cap", next)
		}
	})
}
