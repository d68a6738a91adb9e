package rpc

import (
	"encoding/hex"
	"math/big"

	"paylock/core"
	"paylock/core/types"
	"paylock/crypto"
	"paylock/native/market"
	"paylock/services/indexer"
)

// ContentResult renders a content record with bech32 addresses and decimal
// amounts.
type ContentResult struct {
	ID             uint64 `json:"id"`
	ContentType    uint64 `json:"contentType"`
	ContentRef     string `json:"contentRef"`
	PreviewRef     string `json:"previewRef,omitempty"`
	AutoPreview    bool   `json:"autoPreview"`
	BasePrice      string `json:"basePrice"`
	ActualPrice    string `json:"actualPrice"`
	ShareOwnFeeBps uint32 `json:"shareOwnFeeBps"`
	PriceStepBps   uint32 `json:"priceStepBps"`
	Creator        string `json:"creator"`
	Purchases      uint64 `json:"purchases"`
	Refunds        uint64 `json:"refunds"`
	Keeps          uint64 `json:"keeps"`
	CreatedAt      uint64 `json:"createdAt"`
	NSFW           bool   `json:"nsfw"`
}

type ContentTypeResult struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

type OwnersResult struct {
	ContentID uint64   `json:"contentId"`
	Owners    []string `json:"owners"`
	Buyers    []string `json:"buyers"`
}

type PurchaseResult struct {
	ContentID    uint64 `json:"contentId"`
	Buyer        string `json:"buyer"`
	Status       string `json:"status"`
	Price        string `json:"price,omitempty"`
	PurchaseTime uint64 `json:"purchaseTime,omitempty"`
	Referrer     string `json:"referrer,omitempty"`
}

type BalancesResult struct {
	Address   string `json:"address"`
	Creator   string `json:"creator"`
	Referral  string `json:"referral"`
	Owner     string `json:"owner"`
	Withdrawn string `json:"withdrawn"`
	Available string `json:"available"`
}

type ProtocolBalancesResult struct {
	Accumulated  string `json:"accumulated"`
	Withdrawn    string `json:"withdrawn"`
	Available    string `json:"available"`
	VaultBalance string `json:"vaultBalance"`
}

type DeleteCostResult struct {
	ContentID uint64 `json:"contentId"`
	Cost      string `json:"cost"`
}

type ParamsResult struct {
	Admin             string `json:"admin"`
	MinPrice          string `json:"minPrice"`
	RefundTimeLimit   uint64 `json:"refundTimeLimit"`
	Paused            bool   `json:"paused"`
	ContentCount      uint64 `json:"contentCount"`
	NextContentTypeID uint64 `json:"nextContentTypeId"`
	Sequence          uint64 `json:"sequence"`
}

type AccountResult struct {
	Address string `json:"address"`
	Nonce   uint64 `json:"nonce"`
	Balance string `json:"balance"`
}

type SettlementResult struct {
	ContentID        uint64 `json:"contentId"`
	Buyer            string `json:"buyer"`
	KeepNonce        uint64 `json:"keepNonce"`
	Price            string `json:"price"`
	Referrer         string `json:"referrer,omitempty"`
	ProtocolFee      string `json:"protocolFee"`
	ReferrerFee      string `json:"referrerFee"`
	OwnersFee        string `json:"ownersFee"`
	CreatorFee       string `json:"creatorFee"`
	PerOwnerPayment  string `json:"perOwnerPayment"`
	ForfeitedDust    string `json:"forfeitedDust"`
	NewActualPrice   string `json:"newActualPrice"`
	ReferrerRedirect bool   `json:"referrerRedirect"`
}

type DeletionResult struct {
	ContentID      uint64 `json:"contentId"`
	OwnerRefunds   string `json:"ownerRefunds"`
	BuyerRefunds   string `json:"buyerRefunds"`
	OwnersRefunded int    `json:"ownersRefunded"`
	BuyersRefunded int    `json:"buyersRefunded"`
	Excess         string `json:"excess"`
}

type RefundResult struct {
	Returned string `json:"returned"`
}

// ReceiptResult reflects the outcome of an admitted transaction.
type ReceiptResult struct {
	TransactionHash string        `json:"transactionHash"`
	Sender          string        `json:"sender"`
	Type            string        `json:"type"`
	Nonce           uint64        `json:"nonce"`
	Sequence        uint64        `json:"sequence"`
	Status          string        `json:"status"`
	Error           string        `json:"error,omitempty"`
	Result          interface{}   `json:"result,omitempty"`
	Logs            []EventResult `json:"logs"`
}

type EventResult struct {
	Type       string            `json:"type"`
	Sequence   uint64            `json:"sequence,omitempty"`
	LogIndex   int               `json:"logIndex"`
	Attributes map[string]string `json:"attributes"`
}

func amount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func optionalAddress(addr [20]byte) string {
	return crypto.FormatAddress(addr)
}

func contentResult(c *market.Content) ContentResult {
	return ContentResult{
		ID:             c.ID,
		ContentType:    c.ContentType,
		ContentRef:     c.ContentRef,
		PreviewRef:     c.PreviewRef,
		AutoPreview:    c.AutoPreview,
		BasePrice:      amount(c.BasePrice),
		ActualPrice:    amount(c.ActualPrice),
		ShareOwnFeeBps: c.ShareOwnFeeBps,
		PriceStepBps:   c.PriceStepBps,
		Creator:        crypto.FormatAddress(c.Creator),
		Purchases:      c.Purchases,
		Refunds:        c.Refunds,
		Keeps:          c.Keeps,
		CreatedAt:      c.CreatedAt,
		NSFW:           c.NSFW,
	}
}

func contentTypeResult(t *market.ContentType) ContentTypeResult {
	return ContentTypeResult{ID: t.ID, Name: t.Name, Enabled: t.Enabled}
}

func purchaseResult(contentID uint64, buyer [20]byte, b *market.BuyerState) PurchaseResult {
	res := PurchaseResult{
		ContentID: contentID,
		Buyer:     crypto.FormatAddress(buyer),
		Status:    b.Status().String(),
	}
	if b != nil && b.HasPurchased {
		res.Price = amount(b.Price)
		res.PurchaseTime = b.PurchaseTime
		res.Referrer = optionalAddress(b.Referrer)
	}
	return res
}

func addressList(list [][20]byte) []string {
	out := make([]string, len(list))
	for i, addr := range list {
		out[i] = crypto.FormatAddress(addr)
	}
	return out
}

func settlementResult(s *market.Settlement) SettlementResult {
	return SettlementResult{
		ContentID:        s.ContentID,
		Buyer:            crypto.FormatAddress(s.Buyer),
		KeepNonce:        s.KeepNonce,
		Price:            amount(s.Price),
		Referrer:         optionalAddress(s.Referrer),
		ProtocolFee:      amount(s.Split.Protocol),
		ReferrerFee:      amount(s.Split.Referrer),
		OwnersFee:        amount(s.Split.Owner),
		CreatorFee:       amount(s.Split.Creator),
		PerOwnerPayment:  amount(s.PerOwnerPayment),
		ForfeitedDust:    amount(s.ForfeitedDust),
		NewActualPrice:   amount(s.NewActualPrice),
		ReferrerRedirect: s.ReferrerRedirect,
	}
}

func deletionResult(d *market.Deletion) DeletionResult {
	return DeletionResult{
		ContentID:      d.ContentID,
		OwnerRefunds:   amount(d.OwnerRefunds),
		BuyerRefunds:   amount(d.BuyerRefunds),
		OwnersRefunded: d.OwnersRefunded,
		BuyersRefunded: d.BuyersRefunded,
		Excess:         amount(d.Excess),
	}
}

// callResult renders the typed value returned by an engine call.
func callResult(v interface{}) interface{} {
	switch r := v.(type) {
	case *market.Content:
		if r == nil {
			return nil
		}
		return contentResult(r)
	case *market.ContentType:
		if r == nil {
			return nil
		}
		return contentTypeResult(r)
	case *market.BuyerState:
		if r == nil {
			return nil
		}
		return purchaseResult(r.ContentID, r.Buyer, r)
	case *market.Settlement:
		if r == nil {
			return nil
		}
		return settlementResult(r)
	case *market.Deletion:
		if r == nil {
			return nil
		}
		return deletionResult(r)
	case *big.Int:
		if r == nil {
			return nil
		}
		return RefundResult{Returned: r.String()}
	default:
		return nil
	}
}

func receiptResult(r *core.Receipt) ReceiptResult {
	res := ReceiptResult{
		TransactionHash: "0x" + hex.EncodeToString(r.TxHash[:]),
		Sender:          crypto.FormatAddress(r.Sender),
		Type:            r.Type.String(),
		Nonce:           r.Nonce,
		Sequence:        r.Sequence,
		Status:          "success",
		Result:          callResult(r.Result),
		Logs:            make([]EventResult, 0, len(r.Events)),
	}
	if !r.Success {
		res.Status = "failed"
		if r.Err != nil {
			res.Error = r.Err.Error()
		}
	}
	for i, evt := range r.Events {
		res.Logs = append(res.Logs, eventResult(evt, r.Sequence, i))
	}
	return res
}

func eventResult(evt *types.Event, sequence uint64, index int) EventResult {
	attrs := make(map[string]string, len(evt.Attributes))
	for k, v := range evt.Attributes {
		attrs[k] = v
	}
	return EventResult{Type: evt.Type, Sequence: sequence, LogIndex: index, Attributes: attrs}
}

func recordResult(rec indexer.EventRecord) (EventResult, error) {
	attrs, err := rec.DecodeAttributes()
	if err != nil {
		return EventResult{}, err
	}
	return EventResult{Type: rec.Type, Sequence: rec.Sequence, LogIndex: rec.LogIndex, Attributes: attrs}, nil
}
