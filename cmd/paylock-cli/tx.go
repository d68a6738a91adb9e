package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/big"
	"sort"
	"strings"

	"paylock/core"
	"paylock/core/types"
	"paylock/crypto"
)

// txBuilder registers the flags of one transaction kind and returns a
// function producing its payload once the flags are parsed.
type txBuilder func(fs *flag.FlagSet) func() (interface{}, error)

type txKind struct {
	txType  types.TxType
	payable bool
	build   txBuilder
}

var txKinds = map[string]txKind{
	"create-content": {types.TxTypeCreateContent, true, func(fs *flag.FlagSet) func() (interface{}, error) {
		contentType := fs.Uint64("type", 0, "content type id")
		ref := fs.String("ref", "", "content reference")
		preview := fs.String("preview", "", "optional preview reference")
		price := fs.String("price", "", "base price in base units")
		shareBps := fs.Uint("share-bps", 0, "owner share of later sales in basis points")
		stepBps := fs.Uint("step-bps", 0, "price increase per sale in basis points")
		nsfw := fs.Bool("nsfw", false, "mark the content as nsfw")
		return func() (interface{}, error) {
			base, err := parseAmount("--price", *price)
			if err != nil {
				return nil, err
			}
			if strings.TrimSpace(*ref) == "" {
				return nil, fmt.Errorf("--ref is required")
			}
			return core.CreateContentPayload{
				ContentType:    *contentType,
				ContentRef:     strings.TrimSpace(*ref),
				PreviewRef:     strings.TrimSpace(*preview),
				BasePrice:      base,
				ShareOwnFeeBps: uint32(*shareBps),
				PriceStepBps:   uint32(*stepBps),
				NSFW:           *nsfw,
			}, nil
		}
	}},
	"buy-content": {types.TxTypeBuyContent, true, func(fs *flag.FlagSet) func() (interface{}, error) {
		id := fs.Uint64("id", 0, "content id")
		referrer := fs.String("referrer", "", "optional referrer address")
		price := fs.String("price", "", "expected price; also sent as value when --value is omitted")
		return func() (interface{}, error) {
			p, err := parseAmount("--price", *price)
			if err != nil {
				return nil, err
			}
			return core.BuyContentPayload{ContentID: *id, Referrer: strings.TrimSpace(*referrer), Price: p}, nil
		}
	}},
	"refund-content": {types.TxTypeRefundContent, false, contentIDBuilder},
	"keep-content":   {types.TxTypeKeepContent, false, contentIDBuilder},
	"keep-content-for": {types.TxTypeKeepContentFor, false, func(fs *flag.FlagSet) func() (interface{}, error) {
		id := fs.Uint64("id", 0, "content id")
		buyer := fs.String("buyer", "", "buyer whose purchase is settled")
		return func() (interface{}, error) {
			if strings.TrimSpace(*buyer) == "" {
				return nil, fmt.Errorf("--buyer is required")
			}
			return core.KeepContentForPayload{ContentID: *id, Buyer: strings.TrimSpace(*buyer)}, nil
		}
	}},
	"delete-content": {types.TxTypeDeleteContent, true, contentIDBuilder},
	"change-nsfw": {types.TxTypeChangeNSFW, false, func(fs *flag.FlagSet) func() (interface{}, error) {
		id := fs.Uint64("id", 0, "content id")
		nsfw := fs.Bool("nsfw", false, "new nsfw flag")
		return func() (interface{}, error) {
			return core.ChangeNSFWPayload{ContentID: *id, NSFW: *nsfw}, nil
		}
	}},
	"withdraw-fees":          {types.TxTypeWithdrawUserFees, false, amountBuilder("amount to withdraw")},
	"withdraw-protocol-fees": {types.TxTypeWithdrawProtocolFees, false, amountBuilder("amount to withdraw")},
	"create-content-type": {types.TxTypeCreateContentType, false, func(fs *flag.FlagSet) func() (interface{}, error) {
		name := fs.String("name", "", "content type name")
		enabled := fs.Bool("enabled", true, "whether new content may use the type")
		return func() (interface{}, error) {
			return core.ContentTypePayload{Name: strings.TrimSpace(*name), Enabled: *enabled}, nil
		}
	}},
	"update-content-type": {types.TxTypeUpdateContentType, false, func(fs *flag.FlagSet) func() (interface{}, error) {
		id := fs.Uint64("id", 0, "content type id")
		name := fs.String("name", "", "content type name")
		enabled := fs.Bool("enabled", true, "whether new content may use the type")
		return func() (interface{}, error) {
			if *id == 0 {
				return nil, fmt.Errorf("--id is required")
			}
			return core.ContentTypePayload{ID: *id, Name: strings.TrimSpace(*name), Enabled: *enabled}, nil
		}
	}},
	"pause":         {types.TxTypePause, false, emptyBuilder},
	"unpause":       {types.TxTypeUnpause, false, emptyBuilder},
	"set-min-price": {types.TxTypeSetMinPrice, false, amountBuilder("new minimum price")},
	"set-refund-time-limit": {types.TxTypeSetRefundTimeLimit, false, func(fs *flag.FlagSet) func() (interface{}, error) {
		seconds := fs.Uint64("seconds", 0, "refund window in seconds")
		return func() (interface{}, error) {
			return core.RefundTimeLimitPayload{Seconds: *seconds}, nil
		}
	}},
	"transfer-admin": {types.TxTypeTransferAdmin, false, func(fs *flag.FlagSet) func() (interface{}, error) {
		admin := fs.String("admin", "", "next administrator address")
		return func() (interface{}, error) {
			if strings.TrimSpace(*admin) == "" {
				return nil, fmt.Errorf("--admin is required")
			}
			return core.TransferAdminPayload{Admin: strings.TrimSpace(*admin)}, nil
		}
	}},
}

func contentIDBuilder(fs *flag.FlagSet) func() (interface{}, error) {
	id := fs.Uint64("id", 0, "content id")
	return func() (interface{}, error) {
		if *id == 0 {
			return nil, fmt.Errorf("--id is required")
		}
		return core.ContentPayload{ContentID: *id}, nil
	}
}

func amountBuilder(help string) txBuilder {
	return func(fs *flag.FlagSet) func() (interface{}, error) {
		amount := fs.String("amount", "", help)
		return func() (interface{}, error) {
			v, err := parseAmount("--amount", *amount)
			if err != nil {
				return nil, err
			}
			return core.AmountPayload{Amount: v}, nil
		}
	}
}

func emptyBuilder(*flag.FlagSet) func() (interface{}, error) {
	return func() (interface{}, error) { return nil, nil }
}

func runTxCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, txUsage())
		return 1
	}
	kind, ok := txKinds[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "Unknown tx subcommand: %s\n", args[0])
		fmt.Fprintln(stderr, txUsage())
		return 1
	}

	fs := newFlagSet("tx "+args[0], stderr)
	keyHex := fs.String("key", "", "hex encoded signing key")
	keystorePath := fs.String("keystore", "", "keystore file holding the signing key")
	nonceFlag := fs.Int64("nonce", -1, "explicit nonce; fetched from the node when negative")
	var valueFlag *string
	if kind.payable {
		valueFlag = fs.String("value", "", "value to attach in base units")
	}
	payload := kind.build(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}
	if fs.NArg() > 0 {
		return printError(stderr, "unexpected positional arguments")
	}

	data, err := payload()
	if err != nil {
		return printError(stderr, err.Error())
	}
	encoded, err := core.EncodePayload(data)
	if err != nil {
		return printError(stderr, err.Error())
	}
	value := big.NewInt(0)
	if valueFlag != nil {
		if value, err = resolveValue(kind.txType, *valueFlag, data); err != nil {
			return printError(stderr, err.Error())
		}
	}

	key, err := loadSigner(*keyHex, *keystorePath)
	if err != nil {
		return printError(stderr, err.Error())
	}
	nonce := uint64(0)
	if *nonceFlag >= 0 {
		nonce = uint64(*nonceFlag)
	} else if nonce, err = fetchNonce(key); err != nil {
		return handleRPCCallError(stderr, err)
	}

	tx := &types.Transaction{Type: kind.txType, Nonce: nonce, Value: value, Data: encoded}
	if err := tx.Sign(key.PrivateKey); err != nil {
		return printError(stderr, fmt.Sprintf("sign transaction: %v", err))
	}
	result, rpcErr, err := rpcCall("market_sendTransaction", tx, true)
	if err != nil {
		return handleRPCCallError(stderr, err)
	}
	if rpcErr != nil {
		return handleRPCError(stderr, rpcErr)
	}
	writeRPCResult(stdout, result)
	return 0
}

// resolveValue picks the transaction value: the explicit flag, the purchase
// price for buys, or the node's quoted refund liability for deletions.
func resolveValue(txType types.TxType, raw string, payload interface{}) (*big.Int, error) {
	if strings.TrimSpace(raw) != "" {
		return parseAmount("--value", raw)
	}
	switch p := payload.(type) {
	case core.BuyContentPayload:
		return new(big.Int).Set(p.Price), nil
	case core.ContentPayload:
		if txType != types.TxTypeDeleteContent {
			break
		}
		result, rpcErr, err := rpcCall("market_getDeleteCost", map[string]uint64{"id": p.ContentID}, false)
		if err != nil {
			return nil, err
		}
		if rpcErr != nil {
			return nil, fmt.Errorf("delete cost: RPC error %d: %s", rpcErr.Code, rpcErr.Message)
		}
		var quote struct {
			Cost string `json:"cost"`
		}
		if err := json.Unmarshal(result, &quote); err != nil {
			return nil, fmt.Errorf("decode delete cost: %w", err)
		}
		return parseAmount("cost", quote.Cost)
	}
	return big.NewInt(0), nil
}

func fetchNonce(key *crypto.PrivateKey) (uint64, error) {
	addr := key.PubKey().Address().String()
	result, rpcErr, err := rpcCall("market_getAccount", map[string]string{"address": addr}, false)
	if err != nil {
		return 0, err
	}
	if rpcErr != nil {
		return 0, fmt.Errorf("fetch nonce for %s: RPC error %d: %s", addr, rpcErr.Code, rpcErr.Message)
	}
	var account struct {
		Nonce uint64 `json:"nonce"`
	}
	if err := json.Unmarshal(result, &account); err != nil {
		return 0, fmt.Errorf("decode account: %w", err)
	}
	return account.Nonce, nil
}

func parseAmount(name, raw string) (*big.Int, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(raw), "_", "")
	if trimmed == "" {
		return nil, fmt.Errorf("%s is required", name)
	}
	v, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return v, nil
}

func txUsage() string {
	names := make([]string, 0, len(txKinds))
	for name := range txKinds {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	b.WriteString("Usage:\n  paylock-cli tx <kind> (--key HEX | --keystore FILE) [--nonce N] [flags]\n\nKinds:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %s\n", name)
	}
	return strings.TrimRight(b.String(), "\n")
}
