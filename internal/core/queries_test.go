package core

import (
	"testing"

	"github.com/radome/sequencescape/pkg/domain"
)

func TestSiblingAndAssociatedRequests(t *testing.T) {
	f := newFixture(t)
	src := f.receptacle("src", domain.ReceptacleTube)
	tgt := f.receptacle("tgt", domain.ReceptacleTube)
	other := f.receptacle("other", domain.ReceptacleTube)

	inSub := f.request(Request{AssetID: src.ID, SubmissionID: "sub-1"})
	outOfSub := f.request(Request{AssetID: src.ID, SubmissionID: "sub-2"})
	f.request(Request{AssetID: other.ID, SubmissionID: "sub-1"})

	created := f.transfer(TransferRequest{AssetID: src.ID, TargetAssetID: tgt.ID, SubmissionID: "sub-1"})

	siblings, err := f.svc.SiblingRequests(f.ctx, created.ID)
	if err != nil {
		t.Fatalf("sibling requests: %v", err)
	}
	if len(siblings) != 1 || siblings[0].ID != inSub.ID {
		t.Fatalf("siblings = %+v, want only %s", siblings, inSub.ID)
	}

	associated, err := f.svc.AssociatedRequests(f.ctx, created.ID)
	if err != nil {
		t.Fatalf("associated requests: %v", err)
	}
	if len(associated) != 2 {
		t.Fatalf("associated = %d requests, want 2", len(associated))
	}
	ids := map[string]bool{}
	for _, req := range associated {
		ids[req.ID] = true
	}
	if !ids[inSub.ID] || !ids[outOfSub.ID] {
		t.Fatalf("associated ids = %v, want %s and %s", ids, inSub.ID, outOfSub.ID)
	}

	// The eager path over the preloaded association agrees with the query.
	eager := SiblingRequestsIn(created, associated)
	if len(eager) != 1 || eager[0].ID != inSub.ID {
		t.Fatalf("eager siblings = %+v, want only %s", eager, inSub.ID)
	}
}

func TestOuterRequestResolution(t *testing.T) {
	f := newFixture(t)
	src := f.receptacle("src", domain.ReceptacleTube)
	tgt := f.receptacle("tgt", domain.ReceptacleTube)
	only := f.request(Request{AssetID: src.ID, SubmissionID: "sub-1"})

	created := f.transfer(TransferRequest{AssetID: src.ID, TargetAssetID: tgt.ID, SubmissionID: "sub-1"})
	got, err := f.svc.OuterRequest(f.ctx, created.ID)
	if err != nil {
		t.Fatalf("outer request: %v", err)
	}
	if got == nil || got.ID != only.ID {
		t.Fatalf("outer request = %+v, want %s", got, only.ID)
	}

	// A second sibling makes the outer request ambiguous at transfer level.
	f.request(Request{AssetID: src.ID, SubmissionID: "sub-1"})
	got, err = f.svc.OuterRequest(f.ctx, created.ID)
	if err != nil {
		t.Fatalf("outer request with two siblings: %v", err)
	}
	if got != nil {
		t.Fatalf("outer request = %+v, want nil with two candidates", got)
	}
}

func TestQueriesUnknownTransfer(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.SiblingRequests(f.ctx, "missing"); err == nil {
		t.Fatal("sibling requests for unknown transfer succeeded")
	}
	if _, err := f.svc.AssociatedRequests(f.ctx, "missing"); err == nil {
		t.Fatal("associated requests for unknown transfer succeeded")
	}
}
