package market

import (
	"math/big"
	"strconv"

	"paylock/core/events"
	"paylock/core/types"
	"paylock/crypto"
)

const (
	EventTypeContentCreated         = "market.content.created"
	EventTypeContentPurchased       = "market.content.purchased"
	EventTypeContentKept            = "market.content.kept"
	EventTypeContentRefunded        = "market.content.refunded"
	EventTypeContentDeleted         = "market.content.deleted"
	EventTypeNSFWStatusChanged      = "market.content.nsfw_changed"
	EventTypeContentTypeAdded       = "market.content_type.added"
	EventTypeContentTypeUpdated     = "market.content_type.updated"
	EventTypeMinPriceUpdated        = "market.min_price.updated"
	EventTypeRefundTimeLimitUpdated = "market.refund_time_limit.updated"
	EventTypeFeesWithdrawn          = "market.fees.withdrawn"
	EventTypePaused                 = "market.paused"
	EventTypeUnpaused               = "market.unpaused"
	EventTypeAdminTransferred       = "market.admin.transferred"
)

type marketEvent struct {
	evt *types.Event
}

func (e marketEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e marketEvent) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return marketEvent{evt: evt} }

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }

func formatAddr(addr [20]byte) string { return crypto.FormatAddress(addr) }

// ContentCreatedEvent announces a new listing with its full fee parameters.
func ContentCreatedEvent(c *Content, paid *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeContentCreated,
		Attributes: map[string]string{
			"contentId":      formatUint(c.ID),
			"creator":        formatAddr(c.Creator),
			"contentType":    formatUint(c.ContentType),
			"basePrice":      formatAmount(c.BasePrice),
			"shareOwnFeeBps": formatUint(uint64(c.ShareOwnFeeBps)),
			"priceStepBps":   formatUint(uint64(c.PriceStepBps)),
			"nsfw":           strconv.FormatBool(c.NSFW),
			"paid":           formatAmount(paid),
		},
	}
}

// ContentPurchasedEvent records both the listing price and the amount paid.
func ContentPurchasedEvent(contentID uint64, buyer [20]byte, listingPrice, paid *big.Int, referrer [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeContentPurchased,
		Attributes: map[string]string{
			"contentId":    formatUint(contentID),
			"buyer":        formatAddr(buyer),
			"listingPrice": formatAmount(listingPrice),
			"amountPaid":   formatAmount(paid),
			"referrer":     formatAddr(referrer),
		},
	}
}

// ContentKeptEvent records the full settlement of a keep.
func ContentKeptEvent(s *Settlement) *types.Event {
	return &types.Event{
		Type: EventTypeContentKept,
		Attributes: map[string]string{
			"contentId":          formatUint(s.ContentID),
			"buyer":              formatAddr(s.Buyer),
			"keepNonce":          formatUint(s.KeepNonce),
			"price":              formatAmount(s.Price),
			"referrer":           formatAddr(s.Referrer),
			"protocolPayment":    formatAmount(s.Split.Protocol),
			"referrerPayment":    formatAmount(s.Split.Referrer),
			"perOwnerPayment":    formatAmount(s.PerOwnerPayment),
			"creatorPayment":     formatAmount(s.Split.Creator),
			"creatorCredited":    formatAmount(s.CreatorCredited),
			"forfeitedDust":      formatAmount(s.ForfeitedDust),
			"actualPrice":        formatAmount(s.NewActualPrice),
			"referrerRedirected": strconv.FormatBool(s.ReferrerRedirect),
		},
	}
}

func ContentRefundedEvent(contentID uint64, buyer [20]byte, returned, fee *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeContentRefunded,
		Attributes: map[string]string{
			"contentId":      formatUint(contentID),
			"buyer":          formatAddr(buyer),
			"amountReturned": formatAmount(returned),
			"protocolFee":    formatAmount(fee),
		},
	}
}

func ContentDeletedEvent(d *Deletion) *types.Event {
	return &types.Event{
		Type: EventTypeContentDeleted,
		Attributes: map[string]string{
			"contentId":      formatUint(d.ContentID),
			"ownerRefunds":   formatAmount(d.OwnerRefunds),
			"buyerRefunds":   formatAmount(d.BuyerRefunds),
			"ownersRefunded": strconv.Itoa(d.OwnersRefunded),
			"buyersRefunded": strconv.Itoa(d.BuyersRefunded),
		},
	}
}

func NSFWStatusChangedEvent(contentID uint64, actor [20]byte, status bool) *types.Event {
	return &types.Event{
		Type: EventTypeNSFWStatusChanged,
		Attributes: map[string]string{
			"contentId": formatUint(contentID),
			"actor":     formatAddr(actor),
			"nsfw":      strconv.FormatBool(status),
		},
	}
}

func ContentTypeAddedEvent(t *ContentType) *types.Event {
	return &types.Event{
		Type: EventTypeContentTypeAdded,
		Attributes: map[string]string{
			"id":   formatUint(t.ID),
			"name": t.Name,
		},
	}
}

func ContentTypeUpdatedEvent(t *ContentType) *types.Event {
	return &types.Event{
		Type: EventTypeContentTypeUpdated,
		Attributes: map[string]string{
			"id":      formatUint(t.ID),
			"name":    t.Name,
			"enabled": strconv.FormatBool(t.Enabled),
		},
	}
}

func MinPriceUpdatedEvent(previous, next *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeMinPriceUpdated,
		Attributes: map[string]string{
			"old": formatAmount(previous),
			"new": formatAmount(next),
		},
	}
}

func RefundTimeLimitUpdatedEvent(previous, next uint64) *types.Event {
	return &types.Event{
		Type: EventTypeRefundTimeLimitUpdated,
		Attributes: map[string]string{
			"old": formatUint(previous),
			"new": formatUint(next),
		},
	}
}

// FeesWithdrawnEvent covers both protocol and user withdrawals; kind is
// "protocol" or "user".
func FeesWithdrawnEvent(account [20]byte, kind string, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeFeesWithdrawn,
		Attributes: map[string]string{
			"account": formatAddr(account),
			"kind":    kind,
			"amount":  formatAmount(amount),
		},
	}
}

func PauseChangedEvent(actor [20]byte, paused bool) *types.Event {
	eventType := EventTypeUnpaused
	if paused {
		eventType = EventTypePaused
	}
	return &types.Event{
		Type:       eventType,
		Attributes: map[string]string{"actor": formatAddr(actor)},
	}
}

func AdminTransferredEvent(previous, next [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeAdminTransferred,
		Attributes: map[string]string{
			"old": formatAddr(previous),
			"new": formatAddr(next),
		},
	}
}
