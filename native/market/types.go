package market

import "math/big"

// ContentType is an entry in the content taxonomy. ID 0 is reserved.
type ContentType struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Exists  bool   `json:"exists"`
}

// Clone returns a copy of the content type.
func (t *ContentType) Clone() *ContentType {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

// Content is a priced listing that references an off-chain payload.
type Content struct {
	ID             uint64   `json:"id"`
	ContentType    uint64   `json:"contentType"`
	ContentRef     string   `json:"contentRef"`
	PreviewRef     string   `json:"previewRef"`
	BasePrice      *big.Int `json:"basePrice"`
	ActualPrice    *big.Int `json:"actualPrice"`
	ShareOwnFeeBps uint32   `json:"shareOwnFeeBps"`
	PriceStepBps   uint32   `json:"priceStepBps"`
	Creator        [20]byte `json:"creator"`
	Purchases      uint64   `json:"purchases"`
	Refunds        uint64   `json:"refunds"`
	Keeps          uint64   `json:"keeps"`
	CreatedAt      uint64   `json:"createdAt"`
	AutoPreview    bool     `json:"autoPreview"`
	Exists         bool     `json:"exists"`
	NSFW           bool     `json:"nsfw"`
}

// Clone returns a deep copy of the content record.
func (c *Content) Clone() *Content {
	if c == nil {
		return nil
	}
	clone := *c
	clone.BasePrice = cloneBigInt(c.BasePrice)
	clone.ActualPrice = cloneBigInt(c.ActualPrice)
	return &clone
}

// PurchaseStatus is the lifecycle position of a (content, buyer) pair.
type PurchaseStatus uint8

const (
	StatusNone PurchaseStatus = iota
	StatusPurchased
	StatusKept
	StatusRefunded
)

func (s PurchaseStatus) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusPurchased:
		return "purchased"
	case StatusKept:
		return "kept"
	case StatusRefunded:
		return "refunded"
	default:
		return "unknown"
	}
}

// BuyerState records one buyer's position on one content item. At most one of
// HasKept and HasRefunded is ever set.
type BuyerState struct {
	ContentID    uint64   `json:"contentId"`
	Buyer        [20]byte `json:"buyer"`
	HasPurchased bool     `json:"hasPurchased"`
	HasRefunded  bool     `json:"hasRefunded"`
	HasKept      bool     `json:"hasKept"`
	Price        *big.Int `json:"price"`
	PurchaseTime uint64   `json:"purchaseTime"`
	Referrer     [20]byte `json:"referrer"`
}

// Status derives the lifecycle state from the flags.
func (b *BuyerState) Status() PurchaseStatus {
	switch {
	case b == nil || !b.HasPurchased:
		return StatusNone
	case b.HasKept:
		return StatusKept
	case b.HasRefunded:
		return StatusRefunded
	default:
		return StatusPurchased
	}
}

// Clone returns a deep copy of the buyer state.
func (b *BuyerState) Clone() *BuyerState {
	if b == nil {
		return nil
	}
	clone := *b
	clone.Price = cloneBigInt(b.Price)
	return &clone
}

// UserBalances tracks the three accrual ledgers and the shared withdrawn
// counter of one identity.
type UserBalances struct {
	Creator   *big.Int `json:"creator"`
	Referral  *big.Int `json:"referral"`
	Owner     *big.Int `json:"owner"`
	Withdrawn *big.Int `json:"withdrawn"`
}

// NewUserBalances returns zeroed balances.
func NewUserBalances() *UserBalances {
	return &UserBalances{
		Creator:   big.NewInt(0),
		Referral:  big.NewInt(0),
		Owner:     big.NewInt(0),
		Withdrawn: big.NewInt(0),
	}
}

// Accrued is the sum of the three accrual ledgers.
func (u *UserBalances) Accrued() *big.Int {
	if u == nil {
		return big.NewInt(0)
	}
	total := new(big.Int).Add(cloneBigInt(u.Creator), cloneBigInt(u.Referral))
	return total.Add(total, cloneBigInt(u.Owner))
}

// Available is the withdrawable remainder.
func (u *UserBalances) Available() *big.Int {
	if u == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Sub(u.Accrued(), cloneBigInt(u.Withdrawn))
}

// Clone returns a deep copy with nil fields normalised to zero.
func (u *UserBalances) Clone() *UserBalances {
	if u == nil {
		return NewUserBalances()
	}
	return &UserBalances{
		Creator:   cloneBigInt(u.Creator),
		Referral:  cloneBigInt(u.Referral),
		Owner:     cloneBigInt(u.Owner),
		Withdrawn: cloneBigInt(u.Withdrawn),
	}
}

// ProtocolBalances tracks protocol revenue.
type ProtocolBalances struct {
	Accumulated *big.Int `json:"accumulated"`
	Withdrawn   *big.Int `json:"withdrawn"`
}

// Available is the withdrawable protocol remainder.
func (p *ProtocolBalances) Available() *big.Int {
	if p == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Sub(cloneBigInt(p.Accumulated), cloneBigInt(p.Withdrawn))
}

// Clone returns a deep copy with nil fields normalised to zero.
func (p *ProtocolBalances) Clone() *ProtocolBalances {
	if p == nil {
		return &ProtocolBalances{Accumulated: big.NewInt(0), Withdrawn: big.NewInt(0)}
	}
	return &ProtocolBalances{Accumulated: cloneBigInt(p.Accumulated), Withdrawn: cloneBigInt(p.Withdrawn)}
}

// Params holds the administrator-controlled module configuration and the id
// counters.
type Params struct {
	Admin             [20]byte `json:"admin"`
	MinPrice          *big.Int `json:"minPrice"`
	RefundTimeLimit   uint64   `json:"refundTimeLimit"`
	Paused            bool     `json:"paused"`
	NextContentID     uint64   `json:"nextContentId"`
	NextContentTypeID uint64   `json:"nextContentTypeId"`
}

// Clone returns a deep copy of the params.
func (p *Params) Clone() *Params {
	if p == nil {
		return nil
	}
	clone := *p
	clone.MinPrice = cloneBigInt(p.MinPrice)
	return &clone
}

// CreateContentParams are the creator-supplied listing parameters.
type CreateContentParams struct {
	ContentType    uint64
	ContentRef     string
	PreviewRef     string
	BasePrice      *big.Int
	ShareOwnFeeBps uint32
	PriceStepBps   uint32
	NSFW           bool
}

// Settlement is the outcome of one keep.
type Settlement struct {
	ContentID        uint64
	Buyer            [20]byte
	KeepNonce        uint64
	Price            *big.Int
	Referrer         [20]byte
	Split            Split
	PerOwnerPayment  *big.Int
	ForfeitedDust    *big.Int
	PreviousPrice    *big.Int
	NewActualPrice   *big.Int
	ReferrerRedirect bool
	// CreatorCredited is what the creator ledger actually received: the
	// creator share plus a redirected referrer share and, on the first keep,
	// the owner pool.
	CreatorCredited *big.Int
}

// Deletion summarises the funds unwound by DeleteContent.
type Deletion struct {
	ContentID      uint64
	OwnerRefunds   *big.Int
	BuyerRefunds   *big.Int
	OwnersRefunded int
	BuyersRefunded int
	Excess         *big.Int
}
