// Package integration holds cross-package end-to-end checks kept small
// enough to act as a fast CI health gate.
package integration

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/radome/sequencescape/internal/adapters/lineage"
	"github.com/radome/sequencescape/internal/blob"
	"github.com/radome/sequencescape/internal/core"
	"github.com/radome/sequencescape/internal/infra/persistence/memory"
	"github.com/radome/sequencescape/internal/infra/persistence/sqlite"
	"github.com/radome/sequencescape/pkg/domain"
)

func newEngine() *domain.RulesEngine {
	engine := core.NewRulesEngine()
	core.RegisterDefaultRules(engine)
	return engine
}

// TestTransferSmoke drives one full transfer lifecycle against each
// persistent store and exports the lineage manifest through each archive
// backend.
func TestTransferSmoke(t *testing.T) {
	storeVariants := []struct {
		name string
		open func(t *testing.T) domain.PersistentStore
	}{
		{
			name: "memory-store",
			open: func(*testing.T) domain.PersistentStore { return memory.NewStore(newEngine()) },
		},
		{
			name: "sqlite-store",
			open: func(t *testing.T) domain.PersistentStore {
				s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "smoke.db"), newEngine())
				if err != nil {
					t.Fatalf("new sqlite store: %v", err)
				}
				t.Cleanup(func() { _ = s.Close() })
				return s
			},
		},
	}
	archiveVariants := []struct {
		name string
		open func(t *testing.T) blob.Store
	}{
		{
			name: "memory-archive",
			open: func(*testing.T) blob.Store { return blob.NewMemory() },
		},
		{
			name: "filesystem-archive",
			open: func(t *testing.T) blob.Store {
				store, err := blob.NewFilesystem(t.TempDir())
				if err != nil {
					t.Fatalf("new filesystem archive: %v", err)
				}
				return store
			},
		},
		{
			name: "mock-s3-archive",
			open: func(*testing.T) blob.Store { return blob.NewMockS3ForTests() },
		},
	}

	for _, sv := range storeVariants {
		t.Run(sv.name, func(t *testing.T) {
			ctx := context.Background()
			var logBuf bytes.Buffer
			tracer := core.NewJSONTracer(&logBuf)
			metrics := core.NewExpvarMetricsRecorder("")
			audit := &core.MemoryAuditRecorder{}
			svc := core.NewService(sv.open(t),
				core.WithTracer(tracer),
				core.WithMetricsRecorder(metrics),
				core.WithAuditRecorder(audit),
			)

			sample, _, err := svc.CreateSample(ctx, domain.Sample{Name: "smoke-sample"})
			if err != nil {
				t.Fatalf("create sample: %v", err)
			}
			src, _, err := svc.CreateReceptacle(ctx, domain.Receptacle{Name: "src", Kind: domain.ReceptacleWell, Stock: true})
			if err != nil {
				t.Fatalf("create src: %v", err)
			}
			dst, _, err := svc.CreateReceptacle(ctx, domain.Receptacle{Name: "dst", Kind: domain.ReceptacleWell})
			if err != nil {
				t.Fatalf("create dst: %v", err)
			}
			if _, _, err := svc.RegisterAliquot(ctx, domain.Aliquot{ReceptacleID: src.ID, SampleID: sample.ID, TagID: "tag-1", Tag2ID: domain.UnassignedTag}); err != nil {
				t.Fatalf("register aliquot: %v", err)
			}
			request, _, err := svc.CreateRequest(ctx, domain.Request{AssetID: src.ID, SubmissionID: "sub-1", State: domain.RequestStatePending})
			if err != nil {
				t.Fatalf("create request: %v", err)
			}
			transfer, _, err := svc.CreateTransfer(ctx, domain.TransferRequest{AssetID: src.ID, TargetAssetID: dst.ID, SubmissionID: "sub-1"})
			if err != nil {
				t.Fatalf("create transfer: %v", err)
			}

			copied, err := svc.AliquotsIn(ctx, dst.ID)
			if err != nil || len(copied) != 1 {
				t.Fatalf("expected 1 copied aliquot, got %d (%v)", len(copied), err)
			}
			if copied[0].RequestID == nil || *copied[0].RequestID != request.ID {
				t.Fatalf("copied aliquot missing outer request: %+v", copied[0])
			}

			if _, _, err := svc.Fire(ctx, transfer.ID, domain.EventPass); err != nil {
				t.Fatalf("pass transfer: %v", err)
			}
			started, ok := svc.GetRequest(request.ID)
			if !ok || started.State != domain.RequestStateStarted {
				t.Fatalf("expected sibling request started, got %+v", started)
			}
			if entries := audit.Entries(); len(entries) == 0 {
				t.Fatalf("expected audit entries")
			}
			if !strings.Contains(logBuf.String(), "create_transfer") {
				t.Fatalf("trace output missing transfer span: %s", logBuf.String())
			}

			for _, av := range archiveVariants {
				t.Run(av.name, func(t *testing.T) {
					worker := lineage.NewWorker(svc.Store(), lineage.NewArchiveObjectStore(av.open(t)), nil)
					worker.Start()
					defer func() { _ = worker.Stop(context.Background()) }()
					record, err := worker.EnqueueExport(ctx, lineage.ExportInput{TransferID: transfer.ID, RequestedBy: "smoke"})
					if err != nil {
						t.Fatalf("enqueue export: %v", err)
					}
					deadline := time.Now().Add(5 * time.Second)
					for {
						got, ok := worker.GetExport(record.ID)
						if !ok {
							t.Fatalf("export vanished")
						}
						if got.Status == lineage.ExportStatusSucceeded {
							if len(got.Artifacts) != 2 {
								t.Fatalf("expected 2 artifacts, got %+v", got.Artifacts)
							}
							break
						}
						if got.Status == lineage.ExportStatusFailed {
							t.Fatalf("export failed: %s", got.Error)
						}
						if time.Now().After(deadline) {
							t.Fatalf("export timed out in %s", got.Status)
						}
						time.Sleep(5 * time.Millisecond)
					}
				})
			}
		})
	}
}
