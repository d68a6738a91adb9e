package market

import "math/big"

const (
	// BasisPoints is the fixed-point denominator: 10_000 bps == 100%.
	BasisPoints = 10_000
	// ProtocolFeeBps is taken from every keep and every refund.
	ProtocolFeeBps = 500
	// MaxShareOwnFeeBps leaves at least 5% for protocol and creator.
	MaxShareOwnFeeBps = 9_500
	// MaxContentTypeNameLength is exclusive.
	MaxContentTypeNameLength = 100
)

var (
	bpsDenominator = big.NewInt(BasisPoints)
	// MaxPrice caps base prices and dynamic price growth.
	MaxPrice = new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil)
)

// Split is the four-way division of a settled price. The parts always sum to
// the price.
type Split struct {
	Protocol *big.Int
	Referrer *big.Int
	Owner    *big.Int
	Creator  *big.Int
}

// Total returns the sum of all parts.
func (s Split) Total() *big.Int {
	total := new(big.Int).Add(cloneBigInt(s.Protocol), cloneBigInt(s.Referrer))
	total.Add(total, cloneBigInt(s.Owner))
	return total.Add(total, cloneBigInt(s.Creator))
}

func mulBps(amount *big.Int, bps uint64) *big.Int {
	out := new(big.Int).Mul(cloneBigInt(amount), new(big.Int).SetUint64(bps))
	return out.Quo(out, bpsDenominator)
}

// SplitPayment divides price into protocol, referrer, owner and creator shares.
// The creator share is computed by subtraction so that truncation never leaks
// value.
func SplitPayment(price *big.Int, shareOwnFeeBps uint32) Split {
	protocol := mulBps(price, ProtocolFeeBps)
	pool := mulBps(price, uint64(shareOwnFeeBps))
	half := new(big.Int).Quo(pool, big.NewInt(2))
	creator := new(big.Int).Sub(cloneBigInt(price), protocol)
	creator.Sub(creator, half)
	creator.Sub(creator, half)
	return Split{
		Protocol: protocol,
		Referrer: half,
		Owner:    new(big.Int).Set(half),
		Creator:  creator,
	}
}

// RefundSplit returns the amount returned to a refunding buyer and the
// protocol fee retained.
func RefundSplit(price *big.Int) (returned, fee *big.Int) {
	fee = mulBps(price, ProtocolFeeBps)
	returned = new(big.Int).Sub(cloneBigInt(price), fee)
	return returned, fee
}

// NextPrice applies one price step. A zero increase leaves the price
// unchanged; growth past MaxPrice clamps to MaxPrice.
func NextPrice(actual *big.Int, stepBps uint32) *big.Int {
	current := cloneBigInt(actual)
	increase := mulBps(current, uint64(stepBps))
	if increase.Sign() <= 0 {
		return current
	}
	next := new(big.Int).Add(current, increase)
	if next.Cmp(MaxPrice) > 0 {
		return new(big.Int).Set(MaxPrice)
	}
	return next
}

// perOwnerShare divides the owner pool among keeps prior owners. The remainder
// is returned separately and is not credited to anyone.
func perOwnerShare(ownerPayment *big.Int, keeps uint64) (share, dust *big.Int) {
	if keeps == 0 {
		return big.NewInt(0), big.NewInt(0)
	}
	share, dust = new(big.Int).QuoRem(cloneBigInt(ownerPayment), new(big.Int).SetUint64(keeps), new(big.Int))
	return share, dust
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
