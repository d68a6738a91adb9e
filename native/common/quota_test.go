package common

import (
	"errors"
	"math/big"
	"testing"
)

func TestCheckQuotaTxLimit(t *testing.T) {
	q := Quota{MaxTxPerWindow: 10}
	prev := QuotaNow{WindowID: 1}

	next, err := CheckQuota(q, 1, prev, 10, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.TxCount != 10 {
		t.Fatalf("unexpected tx count: %d", next.TxCount)
	}

	denied, err := CheckQuota(q, 1, next, 1, nil)
	if !errors.Is(err, ErrQuotaTxExceeded) {
		t.Fatalf("expected ErrQuotaTxExceeded, got %v", err)
	}
	if denied.TxCount != next.TxCount || denied.WindowID != next.WindowID {
		t.Fatalf("expected counters to remain unchanged on denial")
	}

	rollover, err := CheckQuota(q, 2, next, 1, nil)
	if err != nil {
		t.Fatalf("unexpected error after window rollover: %v", err)
	}
	if rollover.WindowID != 2 || rollover.TxCount != 1 {
		t.Fatalf("unexpected state after rollover: %+v", rollover)
	}
}

func TestCheckQuotaValue(t *testing.T) {
	q := Quota{MaxValuePerWindow: big.NewInt(1000)}
	prev := QuotaNow{WindowID: 5}

	next, err := CheckQuota(q, 5, prev, 0, big.NewInt(1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.ValueUsed.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("unexpected value used: %s", next.ValueUsed)
	}

	if _, err := CheckQuota(q, 5, next, 0, big.NewInt(1)); !errors.Is(err, ErrQuotaValueExceeded) {
		t.Fatalf("expected ErrQuotaValueExceeded, got %v", err)
	}
	if next.ValueUsed.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("denied check mutated the previous counters")
	}

	rollover, err := CheckQuota(q, 6, next, 0, big.NewInt(500))
	if err != nil {
		t.Fatalf("unexpected error after window rollover: %v", err)
	}
	if rollover.ValueUsed.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("unexpected value after rollover: %s", rollover.ValueUsed)
	}
}

func TestCheckQuotaOverflow(t *testing.T) {
	prev := QuotaNow{TxCount: ^uint32(0), WindowID: 1}
	if _, err := CheckQuota(Quota{}, 1, prev, 1, nil); !errors.Is(err, ErrQuotaCounterOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestQuotaWindow(t *testing.T) {
	q := Quota{WindowSeconds: 30}
	if q.Window(59) != 1 || q.Window(60) != 2 {
		t.Fatalf("unexpected window mapping")
	}
	if (Quota{}).Window(120) != 2 {
		t.Fatalf("default window should be one minute")
	}
	if (Quota{}).Enabled() {
		t.Fatalf("empty quota must be disabled")
	}
}
