// core/genesis/spec.go
package genesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strings"
	"time"

	"paylock/crypto"
	"paylock/native/market"
)

// Spec is the human-editable genesis document. It is read from a JSON file or
// embedded in the node configuration.
type Spec struct {
	GenesisTime     string            `json:"genesisTime,omitempty" toml:"GenesisTime" yaml:"genesisTime"`
	Admin           string            `json:"admin" toml:"Admin" yaml:"admin"`
	MinPrice        string            `json:"minPrice" toml:"MinPrice" yaml:"minPrice"`
	RefundTimeLimit uint64            `json:"refundTimeLimit,omitempty" toml:"RefundTimeLimit" yaml:"refundTimeLimit"`
	ContentTypes    []string          `json:"contentTypes,omitempty" toml:"ContentTypes" yaml:"contentTypes"`
	Alloc           map[string]string `json:"alloc,omitempty" toml:"Alloc" yaml:"alloc"` // addr -> amount
}

// Allocation funds one account at genesis.
type Allocation struct {
	Address [20]byte
	Amount  *big.Int
}

// Genesis is the validated form of a Spec.
type Genesis struct {
	Time   time.Time
	Market market.Genesis
	Alloc  []Allocation
}

// LoadSpec reads and validates a JSON genesis spec.
func LoadSpec(path string) (*Spec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	var spec Spec
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode genesis spec %q: %w", path, err)
	}
	if _, err := spec.Build(); err != nil {
		return nil, fmt.Errorf("invalid genesis spec %q: %w", path, err)
	}
	return &spec, nil
}

// Build validates the spec and converts it into engine inputs. Allocations
// are sorted by address so the resulting state does not depend on map order.
func (s *Spec) Build() (*Genesis, error) {
	if s == nil {
		return nil, fmt.Errorf("genesis spec must be provided")
	}
	ts, err := parseGenesisTime(s.GenesisTime)
	if err != nil {
		return nil, err
	}
	admin, err := crypto.ParseAddress(s.Admin)
	if err != nil {
		return nil, fmt.Errorf("admin: %w", err)
	}
	minPrice, err := parseAmountString(s.MinPrice)
	if err != nil {
		return nil, fmt.Errorf("minPrice: %w", err)
	}
	if minPrice.Cmp(market.MaxPrice) > 0 {
		return nil, fmt.Errorf("minPrice: must be <= %s", market.MaxPrice)
	}

	seenTypes := make(map[string]struct{}, len(s.ContentTypes)+len(market.BuiltinContentTypes))
	for _, name := range market.BuiltinContentTypes {
		seenTypes[strings.ToUpper(name)] = struct{}{}
	}
	for i, name := range s.ContentTypes {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return nil, fmt.Errorf("contentTypes[%d]: name must not be blank", i)
		}
		if len(name) >= market.MaxContentTypeNameLength {
			return nil, fmt.Errorf("contentTypes[%d]: name must be shorter than %d bytes", i, market.MaxContentTypeNameLength)
		}
		key := strings.ToUpper(trimmed)
		if _, exists := seenTypes[key]; exists {
			return nil, fmt.Errorf("contentTypes[%d]: duplicate name %q", i, name)
		}
		seenTypes[key] = struct{}{}
	}

	alloc := make([]Allocation, 0, len(s.Alloc))
	for rawAddr, rawAmount := range s.Alloc {
		addr, err := crypto.ParseAddress(rawAddr)
		if err != nil {
			return nil, fmt.Errorf("alloc %q: %w", rawAddr, err)
		}
		amount, err := parseAmountString(rawAmount)
		if err != nil {
			return nil, fmt.Errorf("alloc %q: %w", rawAddr, err)
		}
		if amount.Sign() == 0 {
			continue
		}
		alloc = append(alloc, Allocation{Address: addr, Amount: amount})
	}
	sort.Slice(alloc, func(i, j int) bool {
		return bytes.Compare(alloc[i].Address[:], alloc[j].Address[:]) < 0
	})
	for i := 1; i < len(alloc); i++ {
		if alloc[i].Address == alloc[i-1].Address {
			return nil, fmt.Errorf("alloc: duplicate account %s", crypto.FormatAddress(alloc[i].Address))
		}
	}

	return &Genesis{
		Time: ts,
		Market: market.Genesis{
			Admin:           admin,
			MinPrice:        minPrice,
			RefundTimeLimit: s.RefundTimeLimit,
			ContentTypes:    append([]string(nil), s.ContentTypes...),
		},
		Alloc: alloc,
	}, nil
}

func parseAmountString(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}

// parseGenesisTime accepts RFC3339 timestamps. An empty value leaves the
// time unset.
func parseGenesisTime(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("invalid genesisTime %q", value)
}
