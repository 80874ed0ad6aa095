package core

import (
	"context"
	"fmt"

	"github.com/radome/sequencescape/pkg/domain"
)

// TransferLifecycleRule blocks transfer-request state changes that no state
// machine event permits, and customer-request escapes from terminal states.
func TransferLifecycleRule() domain.Rule {
	return transferLifecycleRule{}
}

type transferLifecycleRule struct{}

var allTransferEvents = []Event{
	domain.EventStart,
	domain.EventProcess1,
	domain.EventProcess2,
	domain.EventPass,
	domain.EventFail,
	domain.EventCancel,
	domain.EventCancelBeforeStarted,
	domain.EventDetach,
	domain.EventQC,
}

var validTransferStates = toSet(
	string(domain.TransferStatePending),
	string(domain.TransferStateStarted),
	string(domain.TransferStateProcessed1),
	string(domain.TransferStateProcessed2),
	string(domain.TransferStatePassed),
	string(domain.TransferStateFailed),
	string(domain.TransferStateCancelled),
	string(domain.TransferStateQCComplete),
)

var validRequestStates = toSet(
	string(domain.RequestStatePending),
	string(domain.RequestStateStarted),
	string(domain.RequestStatePassed),
	string(domain.RequestStateFailed),
	string(domain.RequestStateCancelled),
)

var terminalRequestStates = toSet(
	string(domain.RequestStateFailed),
	string(domain.RequestStateCancelled),
)

func (transferLifecycleRule) Name() string { return "transfer_lifecycle" }

func (transferLifecycleRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		switch change.Entity {
		case domain.EntityTransferRequest:
			res.Violations = append(res.Violations, evaluateTransferChange(change)...)
		case domain.EntityRequest:
			res.Violations = append(res.Violations, evaluateRequestChange(change)...)
		}
	}
	return res, nil
}

func evaluateTransferChange(change domain.Change) []domain.Violation {
	after, ok := decodeChangePayload[domain.TransferRequest](change.After)
	if !ok {
		return nil
	}
	if _, valid := validTransferStates[string(after.State)]; !valid {
		return []domain.Violation{{
			Rule:     "transfer_lifecycle",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("transfer request %s is set to unknown state %s", after.ID, after.State),
			Entity:   domain.EntityTransferRequest,
			EntityID: after.ID,
		}}
	}
	before, ok := decodeChangePayload[domain.TransferRequest](change.Before)
	if !ok || before.State == after.State {
		return nil
	}
	if transferStateReachable(before.State, after.State) {
		return nil
	}
	return []domain.Violation{{
		Rule:     "transfer_lifecycle",
		Severity: domain.SeverityBlock,
		Message:  fmt.Sprintf("no event moves transfer request %s from %s to %s", after.ID, before.State, after.State),
		Entity:   domain.EntityTransferRequest,
		EntityID: after.ID,
	}}
}

// transferStateReachable reports whether any single event leads from one
// state to the other.
func transferStateReachable(from, to domain.TransferState) bool {
	for _, event := range allTransferEvents {
		next, _, err := domain.Transition(from, event)
		if err == nil && next == to {
			return true
		}
	}
	return false
}

func evaluateRequestChange(change domain.Change) []domain.Violation {
	after, ok := decodeChangePayload[domain.Request](change.After)
	if !ok {
		return nil
	}
	if _, valid := validRequestStates[string(after.State)]; !valid {
		return []domain.Violation{{
			Rule:     "transfer_lifecycle",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("request %s is set to unknown state %s", after.ID, after.State),
			Entity:   domain.EntityRequest,
			EntityID: after.ID,
		}}
	}
	before, ok := decodeChangePayload[domain.Request](change.Before)
	if !ok || before.State == after.State {
		return nil
	}
	if _, terminal := terminalRequestStates[string(before.State)]; terminal {
		return []domain.Violation{{
			Rule:     "transfer_lifecycle",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("cannot move request %s out of terminal state %s", after.ID, before.State),
			Entity:   domain.EntityRequest,
			EntityID: after.ID,
		}}
	}
	return nil
}

func toSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
