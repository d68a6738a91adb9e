// core/genesis/spec_test.go
package genesis

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"paylock/crypto"
	"paylock/native/market"
)

func testAddress(b byte) string {
	return crypto.MustNewAddress(crypto.PaylockPrefix, bytes.Repeat([]byte{b}, 20)).String()
}

func writeSpec(t *testing.T, v interface{}) string {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("marshal spec: %v", err)
	}
	path := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write spec: %v", err)
	}
	return path
}

func TestLoadSpecAndBuild(t *testing.T) {
	admin := testAddress(0x01)
	funded := testAddress(0x02)
	path := writeSpec(t, Spec{
		GenesisTime:     "2024-01-01T00:00:00Z",
		Admin:           admin,
		MinPrice:        "100",
		RefundTimeLimit: 3600,
		ContentTypes:    []string{"AUDIO"},
		Alloc: map[string]string{
			funded: "5000",
			admin:  "10",
		},
	})

	spec, err := LoadSpec(path)
	if err != nil {
		t.Fatalf("load spec: %v", err)
	}
	g, err := spec.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !g.Time.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected genesis time %s", g.Time)
	}
	if g.Market.Admin != ([20]byte{0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01}) {
		t.Fatalf("unexpected admin %x", g.Market.Admin)
	}
	if g.Market.MinPrice.Int64() != 100 || g.Market.RefundTimeLimit != 3600 {
		t.Fatalf("unexpected market params %+v", g.Market)
	}
	if len(g.Market.ContentTypes) != 1 || g.Market.ContentTypes[0] != "AUDIO" {
		t.Fatalf("unexpected content types %v", g.Market.ContentTypes)
	}
	if len(g.Alloc) != 2 {
		t.Fatalf("expected two allocations, got %d", len(g.Alloc))
	}
	if g.Alloc[0].Address[0] != 0x01 || g.Alloc[0].Amount.Int64() != 10 {
		t.Fatalf("allocations must be sorted by address: %+v", g.Alloc)
	}
	if g.Alloc[1].Amount.Int64() != 5000 {
		t.Fatalf("unexpected second allocation %s", g.Alloc[1].Amount)
	}
}

func TestLoadSpecRejectsUnknownFields(t *testing.T) {
	path := writeSpec(t, map[string]interface{}{
		"admin":    testAddress(0x01),
		"minPrice": "1",
		"chainId":  7,
	})
	if _, err := LoadSpec(path); err == nil || !strings.Contains(err.Error(), "chainId") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestBuildValidation(t *testing.T) {
	admin := testAddress(0x01)
	tests := []struct {
		name string
		spec Spec
		want string
	}{
		{"missing admin", Spec{MinPrice: "1"}, "admin"},
		{"foreign prefix", Spec{Admin: crypto.MustNewAddress("cosmos", bytes.Repeat([]byte{1}, 20)).String()}, "prefix"},
		{"negative min price", Spec{Admin: admin, MinPrice: "-1"}, "minPrice"},
		{"min price above max", Spec{Admin: admin, MinPrice: "1000000000000000000000001"}, "minPrice"},
		{"bad time", Spec{Admin: admin, GenesisTime: "yesterday"}, "genesisTime"},
		{"blank type", Spec{Admin: admin, ContentTypes: []string{"  "}}, "blank"},
		{"builtin duplicate", Spec{Admin: admin, ContentTypes: []string{"video"}}, "duplicate"},
		{"long type", Spec{Admin: admin, ContentTypes: []string{strings.Repeat("a", market.MaxContentTypeNameLength)}}, "shorter"},
		{"bad alloc address", Spec{Admin: admin, Alloc: map[string]string{"nope": "1"}}, "alloc"},
		{"bad alloc amount", Spec{Admin: admin, Alloc: map[string]string{admin: "ten"}}, "invalid amount"},
		{"hex and bech32 alias", Spec{Admin: admin, Alloc: map[string]string{
			admin: "1",
			"0x0101010101010101010101010101010101010101": "2",
		}}, "duplicate account"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.spec.Build()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestBuildSkipsZeroAllocations(t *testing.T) {
	admin := testAddress(0x01)
	g, err := (&Spec{Admin: admin, Alloc: map[string]string{admin: "0"}}).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(g.Alloc) != 0 {
		t.Fatalf("zero allocation should be dropped")
	}
	if g.Market.MinPrice.Sign() != 0 || !g.Time.IsZero() {
		t.Fatalf("unexpected defaults %+v", g)
	}
}
