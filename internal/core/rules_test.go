package core

import (
	"context"
	"errors"
	"testing"

	"github.com/radome/sequencescape/pkg/domain"
)

// stubRuleView implements only the methods a rule under test touches;
// anything else panics through the embedded nil interface.
type stubRuleView struct {
	domain.RuleView
	aliquots map[string][]Aliquot
}

func (v stubRuleView) AliquotsByReceptacle(id string) []Aliquot {
	return v.aliquots[id]
}

func mustPayload(t *testing.T, value any) domain.ChangePayload {
	t.Helper()
	payload, err := domain.NewChangePayloadFromValue(value)
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	return payload
}

func TestTagUniquenessRuleFlagsClashes(t *testing.T) {
	a1 := Aliquot{Base: Base{ID: "a1"}, ReceptacleID: "r1", SampleID: "s1", TagID: "t1", Tag2ID: domain.UnassignedTag}
	a2 := Aliquot{Base: Base{ID: "a2"}, ReceptacleID: "r1", SampleID: "s1", TagID: "t1", Tag2ID: domain.UnassignedTag}
	view := stubRuleView{aliquots: map[string][]Aliquot{"r1": {a1, a2}}}

	changes := []Change{{
		Entity: domain.EntityAliquot,
		Action: domain.ActionCreate,
		After:  mustPayload(t, a2),
	}}
	res, err := TagUniquenessRule().Evaluate(context.Background(), view, changes)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.HasBlocking() {
		t.Fatalf("violations = %+v, want a blocking tag clash", res.Violations)
	}
	v := res.Violations[0]
	if v.Rule != "tag_uniqueness" || v.EntityID != "a2" {
		t.Fatalf("violation = %+v", v)
	}
}

func TestTagUniquenessRuleAllowsDistinctPairs(t *testing.T) {
	a1 := Aliquot{Base: Base{ID: "a1"}, ReceptacleID: "r1", TagID: "t1", Tag2ID: domain.UnassignedTag}
	a2 := Aliquot{Base: Base{ID: "a2"}, ReceptacleID: "r1", TagID: "t2", Tag2ID: domain.UnassignedTag}
	view := stubRuleView{aliquots: map[string][]Aliquot{"r1": {a1, a2}}}

	changes := []Change{{Entity: domain.EntityAliquot, Action: domain.ActionCreate, After: mustPayload(t, a2)}}
	res, err := TagUniquenessRule().Evaluate(context.Background(), view, changes)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("violations = %+v, want none", res.Violations)
	}
}

func TestTransferLifecycleRuleBlocksUnreachableJumps(t *testing.T) {
	before := TransferRequest{Base: Base{ID: "tr1"}, State: domain.TransferStatePending}
	after := before
	after.State = domain.TransferStateQCComplete

	changes := []Change{{
		Entity: domain.EntityTransferRequest,
		Action: domain.ActionUpdate,
		Before: mustPayload(t, before),
		After:  mustPayload(t, after),
	}}
	res, err := TransferLifecycleRule().Evaluate(context.Background(), nil, changes)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.HasBlocking() {
		t.Fatal("pending to qc_complete jump was not blocked")
	}
}

func TestTransferLifecycleRuleAllowsTableTransitions(t *testing.T) {
	cases := []struct{ from, to TransferState }{
		{domain.TransferStatePending, domain.TransferStateStarted},
		{domain.TransferStatePending, domain.TransferStatePassed},
		{domain.TransferStateFailed, domain.TransferStatePassed},
		{domain.TransferStatePassed, domain.TransferStateQCComplete},
		{domain.TransferStateStarted, domain.TransferStateCancelled},
	}
	for _, tc := range cases {
		before := TransferRequest{Base: Base{ID: "tr1"}, State: tc.from}
		after := before
		after.State = tc.to
		changes := []Change{{
			Entity: domain.EntityTransferRequest,
			Action: domain.ActionUpdate,
			Before: mustPayload(t, before),
			After:  mustPayload(t, after),
		}}
		res, err := TransferLifecycleRule().Evaluate(context.Background(), nil, changes)
		if err != nil {
			t.Fatalf("evaluate %s -> %s: %v", tc.from, tc.to, err)
		}
		if len(res.Violations) != 0 {
			t.Fatalf("%s -> %s blocked: %+v", tc.from, tc.to, res.Violations)
		}
	}
}

func TestTransferLifecycleRuleRejectsUnknownStates(t *testing.T) {
	after := TransferRequest{Base: Base{ID: "tr1"}, State: TransferState("limbo")}
	changes := []Change{{
		Entity: domain.EntityTransferRequest,
		Action: domain.ActionCreate,
		After:  mustPayload(t, after),
	}}
	res, err := TransferLifecycleRule().Evaluate(context.Background(), nil, changes)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.HasBlocking() {
		t.Fatal("unknown transfer state was not blocked")
	}
}

func TestTransferLifecycleRuleProtectsTerminalRequests(t *testing.T) {
	before := Request{Base: Base{ID: "r1"}, State: domain.RequestStateCancelled}
	after := before
	after.State = domain.RequestStateStarted
	changes := []Change{{
		Entity: domain.EntityRequest,
		Action: domain.ActionUpdate,
		Before: mustPayload(t, before),
		After:  mustPayload(t, after),
	}}
	res, err := TransferLifecycleRule().Evaluate(context.Background(), nil, changes)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.HasBlocking() {
		t.Fatal("cancelled request restart was not blocked")
	}
}

func TestDefaultRulesBlockDirectStateJumps(t *testing.T) {
	f := newFixture(t)
	src := f.receptacle("src", domain.ReceptacleTube)
	tgt := f.receptacle("tgt", domain.ReceptacleTube)
	created := f.transfer(TransferRequest{AssetID: src.ID, TargetAssetID: tgt.ID})

	// Writing the state directly, without an event, trips the rule set.
	_, err := f.svc.Store().RunInTransaction(f.ctx, func(tx Transaction) error {
		_, uerr := tx.UpdateTransferRequest(created.ID, func(tr *TransferRequest) error {
			tr.State = domain.TransferStateQCComplete
			return nil
		})
		return uerr
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("direct jump error = %v, want RuleViolationError", err)
	}
	if !violation.Result.HasBlocking() {
		t.Fatalf("violation result = %+v, want blocking", violation.Result)
	}
	got, _ := f.svc.GetTransferRequest(created.ID)
	if got.State != domain.TransferStatePending {
		t.Fatalf("transfer state = %s after blocked jump, want pending", got.State)
	}
}
