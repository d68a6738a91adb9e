package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"paylock/cmd/internal/passphrase"
	"paylock/crypto"
)

const (
	walletPassEnv = "PAYLOCK_WALLET_PASS"
	rpcTokenEnv   = "PAYLOCK_RPC_TOKEN"
)

var rpcEndpoint = defaultRPCEndpoint() // Defaults to localhost, can be overridden via RPC_URL or --rpc flag
var rpcAuthToken = os.Getenv(rpcTokenEnv)

var rpcCall = callRPC

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func main() {
	args, err := applyGlobalFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(run(args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	switch args[0] {
	case "generate-key":
		return runGenerateKey(args[1:], stdout, stderr)
	case "account":
		return runAccountCommand(args[1:], stdout, stderr)
	case "content":
		return runContentCommand(args[1:], stdout, stderr)
	case "purchase":
		return runPurchaseCommand(args[1:], stdout, stderr)
	case "balances":
		return runBalancesCommand(args[1:], stdout, stderr)
	case "params":
		return runParamsCommand(args[1:], stdout, stderr)
	case "events":
		return runEventsCommand(args[1:], stdout, stderr)
	case "tx":
		return runTxCommand(args[1:], stdout, stderr)
	case "export-events":
		return runExportCommand(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("RPC_URL")); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--rpc" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --rpc")
			}
			rpcEndpoint = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--rpc=") {
			rpcEndpoint = strings.TrimPrefix(arg, "--rpc=")
			continue
		}
		out = append(out, arg)
	}
	return out, nil
}

func runGenerateKey(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("generate-key", stderr)
	out := fs.String("out", "wallet.json", "keystore file to create")
	light := fs.Bool("light", false, "use cheap scrypt parameters (development only)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if _, err := os.Stat(*out); err == nil {
		return printError(stderr, fmt.Sprintf("%s already exists", *out))
	}
	pass, err := passphrase.NewSource(walletPassEnv, "wallet").Get()
	if err != nil {
		return printError(stderr, err.Error())
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return printError(stderr, err.Error())
	}
	var opts []crypto.KeystoreOption
	if *light {
		opts = append(opts, crypto.LightScrypt())
	}
	if err := crypto.SaveToKeystore(*out, key, pass, opts...); err != nil {
		return printError(stderr, fmt.Sprintf("write keystore: %v", err))
	}
	fmt.Fprintf(stdout, "Address: %s\nKeystore: %s\n", key.PubKey().Address().String(), *out)
	return 0
}

// loadSigner resolves the signing key from --key (hex) or --keystore.
func loadSigner(keyHex, keystorePath string) (*crypto.PrivateKey, error) {
	if keyHex = strings.TrimSpace(keyHex); keyHex != "" {
		return crypto.PrivateKeyFromHex(keyHex)
	}
	if strings.TrimSpace(keystorePath) == "" {
		return nil, fmt.Errorf("--key or --keystore is required")
	}
	pass, err := passphrase.NewSource(walletPassEnv, "wallet").Get()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(keystorePath, pass)
	if err != nil {
		return nil, fmt.Errorf("unlock %s: %w", keystorePath, err)
	}
	return key, nil
}

func doRPCRequest(payload []byte, withAuth bool) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPost, rpcEndpoint, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if withAuth {
		if token := strings.TrimSpace(rpcAuthToken); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", rpcEndpoint, err)
	}
	return resp, nil
}

func callRPC(method string, params interface{}, withAuth bool) (json.RawMessage, *rpcError, error) {
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		payload["params"] = []interface{}{params}
	} else {
		payload["params"] = []interface{}{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	resp, err := doRPCRequest(body, withAuth)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, nil, fmt.Errorf("failed to decode RPC response (HTTP %d): %w", resp.StatusCode, err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error, nil
	}
	return rpcResp.Result, nil, nil
}

// query runs a read-only call and prints its result.
func query(stdout, stderr io.Writer, method string, params interface{}) int {
	result, rpcErr, err := rpcCall(method, params, false)
	if err != nil {
		return handleRPCCallError(stderr, err)
	}
	if rpcErr != nil {
		return handleRPCError(stderr, rpcErr)
	}
	writeRPCResult(stdout, result)
	return 0
}

func handleRPCError(w io.Writer, err *rpcError) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(w, "RPC error %d: %s\n", err.Code, err.Message)
	if len(err.Data) > 0 && string(err.Data) != "null" {
		fmt.Fprintf(w, "%s\n", err.Data)
	}
	return 1
}

func handleRPCCallError(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(w, "RPC call failed: %v\n", err)
	return 1
}

func writeRPCResult(w io.Writer, result json.RawMessage) {
	if len(result) == 0 {
		fmt.Fprintln(w, "null")
		return
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, result, "", "  "); err == nil {
		result = pretty.Bytes()
	}
	if _, err := w.Write(result); err == nil {
		if result[len(result)-1] != '\n' {
			fmt.Fprintln(w)
		}
	}
}

func printError(w io.Writer, msg string) int {
	fmt.Fprintf(w, "Error: %s\n", msg)
	return 1
}

func usage() string {
	return strings.TrimSpace(`Usage:
  paylock-cli [--rpc URL] <command> [flags]

Commands:
  generate-key   Create a new encrypted wallet keystore
  account        Show the nonce and balance of an address
  content        Inspect content (get, types, owners, delete-cost)
  purchase       Show a buyer's purchase record
  balances       Show withdrawable fee balances (--protocol for the treasury)
  params         Show marketplace parameters
  events         List indexed market events
  tx             Sign and submit a market transaction
  export-events  Export indexed events to a parquet file

Environment:
  RPC_URL              default RPC endpoint
  PAYLOCK_RPC_TOKEN    bearer token for market_sendTransaction
  PAYLOCK_WALLET_PASS  keystore passphrase`)
}
