package state

import (
	"encoding/binary"
	"encoding/hex"
)

var (
	accountPrefix = []byte("account/")

	marketParamsKey      = []byte("market/params")
	marketProtocolKey    = []byte("market/protocol")
	marketTypePrefix     = []byte("market/type/")
	marketContentPrefix  = []byte("market/content/")
	marketBuyerPrefix    = []byte("market/buyer/")
	marketOwnersPrefix   = []byte("market/owners/")
	marketBuyersPrefix   = []byte("market/buyers/")
	marketRefundedPrefix = []byte("market/refunded/")
	marketBalancesPrefix = []byte("market/balances/")
)

func idKey(prefix []byte, id uint64) []byte {
	buf := make([]byte, len(prefix)+8)
	copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[len(prefix):], id)
	return buf
}

// MarketContentTypeKey is the state key of a content type.
func MarketContentTypeKey(id uint64) []byte { return idKey(marketTypePrefix, id) }

// MarketContentKey is the state key of a content record.
func MarketContentKey(id uint64) []byte { return idKey(marketContentPrefix, id) }

// MarketOwnersKey is the state key of a content's owner list.
func MarketOwnersKey(id uint64) []byte { return idKey(marketOwnersPrefix, id) }

// MarketBuyersKey is the state key of a content's open buyer list.
func MarketBuyersKey(id uint64) []byte { return idKey(marketBuyersPrefix, id) }

// MarketRefundedKey is the state key of a content's refunded buyer list.
func MarketRefundedKey(id uint64) []byte { return idKey(marketRefundedPrefix, id) }

// MarketBuyerKey is the state key of a (content, buyer) purchase.
func MarketBuyerKey(id uint64, buyer [20]byte) []byte {
	key := idKey(marketBuyerPrefix, id)
	key = append(key, '/')
	return append(key, hex.EncodeToString(buyer[:])...)
}

// MarketBalancesKey is the state key of an address's accrual ledgers.
func MarketBalancesKey(addr [20]byte) []byte {
	return append(append([]byte(nil), marketBalancesPrefix...), hex.EncodeToString(addr[:])...)
}
