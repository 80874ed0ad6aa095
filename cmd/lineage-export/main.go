// Command lineage-export renders the provenance manifest of a transfer
// request and stores it in the configured artifact archive.
//
// Storage and archive backends are selected through the environment
// (SEQUENCESCAPE_STORAGE_DRIVER, SEQUENCESCAPE_ARCHIVE_DRIVER and friends).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/radome/sequencescape/internal/adapters/lineage"
	"github.com/radome/sequencescape/internal/blob"
	"github.com/radome/sequencescape/internal/core"
)

var exitFunc = os.Exit

func main() {
	exitFunc(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	fs := flag.NewFlagSet("lineage-export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	transferID := fs.String("transfer", "", "transfer request id to export (required)")
	formats := fs.String("formats", "json,csv", "comma separated export formats (json, csv)")
	requestedBy := fs.String("requested-by", "cli", "actor recorded in the export audit trail")
	reason := fs.String("reason", "", "free-text reason recorded in the audit trail")
	timeout := fs.Duration("timeout", 30*time.Second, "overall export deadline")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *transferID == "" {
		fmt.Fprintln(stderr, "lineage-export: -transfer is required")
		fs.Usage()
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	engine := core.NewRulesEngine()
	core.RegisterDefaultRules(engine)
	store, err := core.OpenPersistentStore(engine)
	if err != nil {
		fmt.Fprintf(stderr, "lineage-export: open store: %v\n", err)
		return 1
	}
	archive, err := blob.Open(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "lineage-export: open archive: %v\n", err)
		return 1
	}

	var parsed []lineage.Format
	for _, f := range strings.Split(*formats, ",") {
		f = strings.TrimSpace(f)
		if f != "" {
			parsed = append(parsed, lineage.Format(f))
		}
	}

	worker := lineage.NewWorker(store, lineage.NewArchiveObjectStore(archive), nil)
	worker.Start()
	defer func() { _ = worker.Stop(context.Background()) }()

	record, err := worker.EnqueueExport(ctx, lineage.ExportInput{
		TransferID:  *transferID,
		Formats:     parsed,
		RequestedBy: *requestedBy,
		Reason:      *reason,
	})
	if err != nil {
		fmt.Fprintf(stderr, "lineage-export: %v\n", err)
		return 1
	}

	record, err = awaitExport(ctx, worker, record.ID)
	if err != nil {
		fmt.Fprintf(stderr, "lineage-export: %v\n", err)
		return 1
	}
	if record.Status != lineage.ExportStatusSucceeded {
		fmt.Fprintf(stderr, "lineage-export: export failed: %s\n", record.Error)
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(record); err != nil {
		fmt.Fprintf(stderr, "lineage-export: encode record: %v\n", err)
		return 1
	}
	return 0
}

func awaitExport(ctx context.Context, worker *lineage.Worker, id string) (lineage.ExportRecord, error) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		record, ok := worker.GetExport(id)
		if !ok {
			return lineage.ExportRecord{}, fmt.Errorf("export %s not tracked", id)
		}
		if record.Status == lineage.ExportStatusSucceeded || record.Status == lineage.ExportStatusFailed {
			return record, nil
		}
		select {
		case <-ctx.Done():
			return lineage.ExportRecord{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
