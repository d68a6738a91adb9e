package core

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"paylock/core/types"
	"paylock/crypto"
)

// CreateContentPayload is the data of a createContent transaction.
type CreateContentPayload struct {
	ContentType    uint64   `json:"contentType"`
	ContentRef     string   `json:"contentRef"`
	PreviewRef     string   `json:"previewRef,omitempty"`
	BasePrice      *big.Int `json:"basePrice"`
	ShareOwnFeeBps uint32   `json:"shareOwnFeeBps"`
	PriceStepBps   uint32   `json:"priceStepBps"`
	NSFW           bool     `json:"nsfw"`
}

// BuyContentPayload is the data of a buyContent transaction. Price must equal
// the transaction value.
type BuyContentPayload struct {
	ContentID uint64   `json:"contentId"`
	Referrer  string   `json:"referrer,omitempty"`
	Price     *big.Int `json:"price"`
}

// ContentPayload addresses a single content item.
type ContentPayload struct {
	ContentID uint64 `json:"contentId"`
}

// KeepContentForPayload settles another buyer's purchase.
type KeepContentForPayload struct {
	ContentID uint64 `json:"contentId"`
	Buyer     string `json:"buyer"`
}

// ChangeNSFWPayload sets the nsfw flag of a content item.
type ChangeNSFWPayload struct {
	ContentID uint64 `json:"contentId"`
	NSFW      bool   `json:"nsfw"`
}

// AmountPayload carries a withdrawal amount or a new minimum price.
type AmountPayload struct {
	Amount *big.Int `json:"amount"`
}

// ContentTypePayload creates or updates a content type. ID is ignored on
// creation.
type ContentTypePayload struct {
	ID      uint64 `json:"id,omitempty"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// RefundTimeLimitPayload sets the refund window in seconds.
type RefundTimeLimitPayload struct {
	Seconds uint64 `json:"seconds"`
}

// TransferAdminPayload names the next administrator.
type TransferAdminPayload struct {
	Admin string `json:"admin"`
}

// payableTypes may carry a non-zero value.
var payableTypes = map[types.TxType]bool{
	types.TxTypeCreateContent: true,
	types.TxTypeBuyContent:    true,
	types.TxTypeDeleteContent: true,
}

// IsPayable reports whether transactions of type t may carry value.
func IsPayable(t types.TxType) bool { return payableTypes[t] }

// EncodePayload marshals a payload for inclusion in Transaction.Data.
func EncodePayload(payload interface{}) ([]byte, error) {
	if payload == nil {
		return nil, nil
	}
	return json.Marshal(payload)
}

func decodePayload(data []byte, out interface{}) error {
	if len(strings.TrimSpace(string(data))) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}
	decoder := json.NewDecoder(strings.NewReader(string(data)))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// parseOptionalAddress returns the zero address for an empty string.
func parseOptionalAddress(raw string) ([20]byte, error) {
	if strings.TrimSpace(raw) == "" {
		return [20]byte{}, nil
	}
	addr, err := crypto.ParseAddress(raw)
	if err != nil {
		return [20]byte{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return addr, nil
}
