package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func runAccountCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "Usage: paylock-cli account <address>")
		return 1
	}
	return query(stdout, stderr, "market_getAccount", map[string]string{"address": args[0]})
}

func runContentCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, contentUsage())
		return 1
	}
	method := ""
	switch args[0] {
	case "get":
		method = "market_getContent"
	case "owners":
		method = "market_getContentOwners"
	case "delete-cost":
		method = "market_getDeleteCost"
	case "types":
		if len(args) != 1 {
			fmt.Fprintln(stderr, "Usage: paylock-cli content types")
			return 1
		}
		return query(stdout, stderr, "market_getContentTypes", nil)
	default:
		fmt.Fprintf(stderr, "Unknown content subcommand: %s\n", args[0])
		fmt.Fprintln(stderr, contentUsage())
		return 1
	}
	fs := newFlagSet("content "+args[0], stderr)
	id := fs.Uint64("id", 0, "content id")
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}
	if *id == 0 {
		return printError(stderr, "--id is required")
	}
	return query(stdout, stderr, method, map[string]uint64{"id": *id})
}

func runPurchaseCommand(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("purchase", stderr)
	id := fs.Uint64("id", 0, "content id")
	buyer := fs.String("buyer", "", "buyer address")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *id == 0 || strings.TrimSpace(*buyer) == "" {
		return printError(stderr, "--id and --buyer are required")
	}
	return query(stdout, stderr, "market_getPurchase", map[string]interface{}{
		"contentId": *id,
		"buyer":     strings.TrimSpace(*buyer),
	})
}

func runBalancesCommand(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("balances", stderr)
	protocol := fs.Bool("protocol", false, "show the protocol treasury instead of an account")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *protocol {
		if fs.NArg() != 0 {
			return printError(stderr, "--protocol takes no address")
		}
		return query(stdout, stderr, "market_getProtocolBalances", nil)
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Usage: paylock-cli balances <address> | --protocol")
		return 1
	}
	return query(stdout, stderr, "market_getBalances", map[string]string{"address": fs.Arg(0)})
}

func runParamsCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) != 0 {
		fmt.Fprintln(stderr, "Usage: paylock-cli params")
		return 1
	}
	return query(stdout, stderr, "market_getParams", nil)
}

func runEventsCommand(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("events", stderr)
	contentID := fs.Uint64("content", 0, "filter by content id")
	account := fs.String("account", "", "filter by account address")
	typesFlag := fs.String("types", "", "comma separated event types")
	after := fs.Uint64("after", 0, "only events after this sequence")
	limit := fs.Int("limit", 0, "maximum number of events")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	params := map[string]interface{}{}
	if *contentID != 0 {
		params["contentId"] = *contentID
	}
	if v := strings.TrimSpace(*account); v != "" {
		params["account"] = v
	}
	if list := splitList(*typesFlag); len(list) > 0 {
		params["types"] = list
	}
	if *after != 0 {
		params["afterSequence"] = *after
	}
	if *limit > 0 {
		params["limit"] = *limit
	}
	return query(stdout, stderr, "market_listEvents", params)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func contentUsage() string {
	return strings.TrimSpace(`Usage:
  paylock-cli content <command> [flags]

Commands:
  get          Fetch a content item by --id
  types        List content types
  owners       List the owners of --id
  delete-cost  Show the refund liability of --id`)
}
