package core

import (
	"context"
	"testing"

	"github.com/radome/sequencescape/pkg/domain"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// fixture wires a service over an in-memory store and seeds entities,
// failing the test on any setup error.
type fixture struct {
	t   *testing.T
	ctx context.Context
	svc *Service
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	return &fixture{
		t:   t,
		ctx: context.Background(),
		svc: NewInMemoryService(nil, opts...),
	}
}

func (f *fixture) receptacle(name string, kind domain.ReceptacleKind) Receptacle {
	f.t.Helper()
	created, _, err := f.svc.CreateReceptacle(f.ctx, Receptacle{Name: name, Kind: kind})
	if err != nil {
		f.t.Fatalf("create receptacle %s: %v", name, err)
	}
	return created
}

func (f *fixture) stockWell(name string) Receptacle {
	f.t.Helper()
	created, _, err := f.svc.CreateReceptacle(f.ctx, Receptacle{Name: name, Kind: domain.ReceptacleWell, Stock: true})
	if err != nil {
		f.t.Fatalf("create stock well %s: %v", name, err)
	}
	return created
}

func (f *fixture) sample(name string) Sample {
	f.t.Helper()
	created, _, err := f.svc.CreateSample(f.ctx, Sample{Name: name})
	if err != nil {
		f.t.Fatalf("create sample %s: %v", name, err)
	}
	return created
}

func (f *fixture) tag(oligo string) Tag {
	f.t.Helper()
	created, _, err := f.svc.CreateTag(f.ctx, Tag{Oligo: oligo})
	if err != nil {
		f.t.Fatalf("create tag %s: %v", oligo, err)
	}
	return created
}

func (f *fixture) aliquot(aliquot Aliquot) Aliquot {
	f.t.Helper()
	created, _, err := f.svc.RegisterAliquot(f.ctx, aliquot)
	if err != nil {
		f.t.Fatalf("register aliquot: %v", err)
	}
	return created
}

func (f *fixture) request(request Request) Request {
	f.t.Helper()
	if request.State == "" {
		request.State = domain.RequestStatePending
	}
	created, _, err := f.svc.CreateRequest(f.ctx, request)
	if err != nil {
		f.t.Fatalf("create request: %v", err)
	}
	return created
}

func (f *fixture) transfer(transfer TransferRequest) TransferRequest {
	f.t.Helper()
	created, _, err := f.svc.CreateTransfer(f.ctx, transfer)
	if err != nil {
		f.t.Fatalf("create transfer: %v", err)
	}
	return created
}

func (f *fixture) aliquotsIn(receptacleID string) []Aliquot {
	f.t.Helper()
	out, err := f.svc.AliquotsIn(f.ctx, receptacleID)
	if err != nil {
		f.t.Fatalf("list aliquots in %s: %v", receptacleID, err)
	}
	return out
}

func (f *fixture) mustRequestState(id string, want RequestState) {
	f.t.Helper()
	req, ok := f.svc.GetRequest(id)
	if !ok {
		f.t.Fatalf("request %s not found", id)
	}
	if req.State != want {
		f.t.Fatalf("request %s state = %s, want %s", id, req.State, want)
	}
}
