package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"paylock/services/indexer"
)

var openIndexer = func(dsn string) (eventExporter, error) {
	return indexer.Open(dsn, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type eventExporter interface {
	ExportParquet(ctx context.Context, path string, f indexer.Filter) (int, error)
	Close() error
}

// runExportCommand reads the event index directly, so it needs the same DSN
// the node was configured with rather than an RPC endpoint.
func runExportCommand(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("export-events", stderr)
	dsn := fs.String("dsn", "", "event index DSN (sqlite file or postgres URL)")
	out := fs.String("out", "events.parquet", "output parquet file")
	contentID := fs.Uint64("content", 0, "filter by content id")
	account := fs.String("account", "", "filter by account address")
	typesFlag := fs.String("types", "", "comma separated event types")
	after := fs.Uint64("after", 0, "only events after this sequence")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(*dsn) == "" {
		return printError(stderr, "--dsn is required")
	}

	idx, err := openIndexer(strings.TrimSpace(*dsn))
	if err != nil {
		return printError(stderr, fmt.Sprintf("open event index: %v", err))
	}
	defer idx.Close()

	n, err := idx.ExportParquet(context.Background(), *out, indexer.Filter{
		ContentID:     *contentID,
		Account:       strings.TrimSpace(*account),
		Types:         splitList(*typesFlag),
		AfterSequence: *after,
	})
	if err != nil {
		return printError(stderr, fmt.Sprintf("export: %v", err))
	}
	fmt.Fprintf(stdout, "Exported %d events to %s\n", n, *out)
	return 0
}
