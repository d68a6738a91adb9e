package common

import (
	"errors"
	"math"
	"math/big"
)

var (
	ErrQuotaTxExceeded      = errors.New("quota transactions exceeded")
	ErrQuotaValueExceeded   = errors.New("quota value cap exceeded")
	ErrQuotaCounterOverflow = errors.New("quota counter overflow")
)

// QuotaNow captures the current usage counters of one address.
type QuotaNow struct {
	TxCount   uint32
	ValueUsed *big.Int
	WindowID  uint64
}

// Quota bounds how many transactions, and how much attached value, one address
// may submit per window. Zero limits are unlimited.
type Quota struct {
	MaxTxPerWindow    uint32
	MaxValuePerWindow *big.Int
	WindowSeconds     uint32
}

// Enabled reports whether any limit is configured.
func (q Quota) Enabled() bool {
	return q.MaxTxPerWindow > 0 || (q.MaxValuePerWindow != nil && q.MaxValuePerWindow.Sign() > 0)
}

// Window maps a unix timestamp to the window it falls in.
func (q Quota) Window(now int64) uint64 {
	if now < 0 {
		return 0
	}
	seconds := q.WindowSeconds
	if seconds == 0 {
		seconds = 60
	}
	return uint64(now) / uint64(seconds)
}

// CheckQuota verifies whether the additional transaction and value fit within
// the configured quota. The returned QuotaNow reflects the updated counters
// when the quota is not exceeded; on denial prev is returned unchanged.
func CheckQuota(q Quota, window uint64, prev QuotaNow, addTx uint32, addValue *big.Int) (QuotaNow, error) {
	next := QuotaNow{TxCount: prev.TxCount, WindowID: prev.WindowID, ValueUsed: new(big.Int)}
	if prev.ValueUsed != nil {
		next.ValueUsed.Set(prev.ValueUsed)
	}
	if prev.WindowID != window {
		next = QuotaNow{WindowID: window, ValueUsed: new(big.Int)}
	}

	if addTx > 0 {
		if next.TxCount > math.MaxUint32-addTx {
			return prev, ErrQuotaCounterOverflow
		}
		next.TxCount += addTx
	}
	if q.MaxTxPerWindow > 0 && next.TxCount > q.MaxTxPerWindow {
		return prev, ErrQuotaTxExceeded
	}

	if addValue != nil && addValue.Sign() > 0 {
		next.ValueUsed.Add(next.ValueUsed, addValue)
	}
	if q.MaxValuePerWindow != nil && q.MaxValuePerWindow.Sign() > 0 && next.ValueUsed.Cmp(q.MaxValuePerWindow) > 0 {
		return prev, ErrQuotaValueExceeded
	}

	return next, nil
}
