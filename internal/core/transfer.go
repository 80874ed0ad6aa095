package core

import (
	"context"
	"fmt"

	"github.com/radome/sequencescape/pkg/domain"
)

// CreateTransfer validates and persists a transfer request, then performs the
// transfer of contents: every source aliquot is duplicated into the target
// carrying the attributes of its resolved customer request. Nothing is copied
// out of a failed or cancelled source. When both ends are wells the target
// additionally inherits the source's stock-well lineage.
func (s *Service) CreateTransfer(ctx context.Context, transfer TransferRequest) (TransferRequest, Result, error) {
	var created TransferRequest
	var res Result
	err := s.run(ctx, "create_transfer", func(ctx context.Context) (EntityType, string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			source, ok := tx.FindReceptacle(transfer.AssetID)
			if !ok {
				return ErrNotFound{Entity: EntityReceptacle, ID: transfer.AssetID}
			}
			target, ok := tx.FindReceptacle(transfer.TargetAssetID)
			if !ok {
				return ErrNotFound{Entity: EntityReceptacle, ID: transfer.TargetAssetID}
			}
			if transfer.OuterRequestID != nil {
				pinned, ok := tx.FindRequest(*transfer.OuterRequestID)
				if !ok {
					return ErrNotFound{Entity: EntityRequest, ID: *transfer.OuterRequestID}
				}
				transfer.SubmissionID = pinned.SubmissionID
			}

			view := tx.Snapshot()
			candidates, err := outerRequestCandidates(view, transfer)
			if err != nil {
				return err
			}
			resolved, err := resolveSourceAliquots(view, source.ID, candidates)
			if err != nil {
				return err
			}

			created, err = tx.CreateTransferRequest(transfer)
			if err != nil {
				return err
			}

			if source.Failed() || source.Cancelled() {
				return nil
			}
			if err := s.transferContents(tx, &created, target.ID, resolved); err != nil {
				return err
			}
			return s.transferStockWells(tx, source, target)
		})
		return EntityTransferRequest, created.ID, err
	})
	return created, res, err
}

// resolvedAliquot pairs a source aliquot with the customer request that
// governs its copy, nil when no candidate applies.
type resolvedAliquot struct {
	aliquot Aliquot
	request *Request
}

// resolveSourceAliquots resolves the outer request for every aliquot in the
// source up front so that an unresolvable aliquot rejects the transfer before
// anything is copied.
func resolveSourceAliquots(view domain.TransactionView, sourceID string, candidates []Request) ([]resolvedAliquot, error) {
	aliquots := view.AliquotsByReceptacle(sourceID)
	resolved := make([]resolvedAliquot, 0, len(aliquots))
	for _, aliquot := range aliquots {
		req, err := outerRequestFor(view, aliquot, candidates)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, resolvedAliquot{aliquot: aliquot, request: req})
	}
	return resolved, nil
}

func (s *Service) transferContents(tx domain.Transaction, transfer *TransferRequest, targetID string, resolved []resolvedAliquot) error {
	createdIDs := make([]string, 0, len(resolved))
	for _, entry := range resolved {
		var overrides domain.AliquotOverrides
		if entry.request != nil {
			overrides = entry.request.AliquotAttributes()
		}
		dup := entry.aliquot.Duplicate(overrides)
		dup.ReceptacleID = targetID
		copied, err := tx.CreateAliquot(dup)
		if err != nil {
			return err
		}
		createdIDs = append(createdIDs, copied.ID)
	}
	if len(createdIDs) == 0 {
		return nil
	}
	updated, err := tx.UpdateTransferRequest(transfer.ID, func(t *TransferRequest) error {
		t.CreatedAliquotIDs = append(t.CreatedAliquotIDs, createdIDs...)
		return nil
	})
	if err != nil {
		return err
	}
	*transfer = updated
	return nil
}

func (s *Service) transferStockWells(tx domain.Transaction, source, target Receptacle) error {
	if !source.IsWell() || !target.IsWell() {
		return nil
	}
	attach := source.StockWellsForDownstream()
	if len(attach) == 0 {
		return nil
	}
	_, err := tx.UpdateReceptacle(target.ID, func(r *Receptacle) error {
		seen := make(map[string]struct{}, len(r.StockWellIDs))
		for _, id := range r.StockWellIDs {
			seen[id] = struct{}{}
		}
		for _, id := range attach {
			if _, dup := seen[id]; dup {
				continue
			}
			r.StockWellIDs = append(r.StockWellIDs, id)
			seen[id] = struct{}{}
		}
		return nil
	})
	return err
}

// Fire applies a state machine event to a transfer request, running any side
// effect the transition obliges inside the same transaction. An effect
// failure aborts the whole transition.
func (s *Service) Fire(ctx context.Context, transferID string, event Event) (TransferRequest, Result, error) {
	var updated TransferRequest
	var res Result
	err := s.run(ctx, "fire_transfer_event", func(ctx context.Context) (EntityType, string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			return s.fireInTx(tx, transferID, event, &updated)
		})
		return EntityTransferRequest, transferID, err
	})
	return updated, res, err
}

// TransitionTo determines the single permitted event leading to the target
// state and fires it. Zero or several applicable events is a caller error.
func (s *Service) TransitionTo(ctx context.Context, transferID string, target TransferState) (TransferRequest, Result, error) {
	var updated TransferRequest
	var res Result
	err := s.run(ctx, "transition_transfer", func(ctx context.Context) (EntityType, string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			current, ok := tx.Snapshot().FindTransferRequest(transferID)
			if !ok {
				return ErrNotFound{Entity: EntityTransferRequest, ID: transferID}
			}
			event, err := domain.SuggestedEventTo(current.State, target)
			if err != nil {
				return err
			}
			return s.fireInTx(tx, transferID, event, &updated)
		})
		return EntityTransferRequest, transferID, err
	})
	return updated, res, err
}

func (s *Service) fireInTx(tx domain.Transaction, transferID string, event Event, out *TransferRequest) error {
	current, ok := tx.Snapshot().FindTransferRequest(transferID)
	if !ok {
		return ErrNotFound{Entity: EntityTransferRequest, ID: transferID}
	}
	next, effect, err := domain.Transition(current.State, event)
	if err != nil {
		return err
	}
	updated, err := tx.UpdateTransferRequest(transferID, func(t *TransferRequest) error {
		t.State = next
		return nil
	})
	if err != nil {
		return err
	}
	// The target receptacle tracks the latest transfer into it; downstream
	// transfers consult it to decide whether material may still propagate.
	if _, ok := tx.FindReceptacle(updated.TargetAssetID); ok {
		if _, err := tx.UpdateReceptacle(updated.TargetAssetID, func(r *Receptacle) error {
			r.State = next
			return nil
		}); err != nil {
			return err
		}
	}
	switch effect {
	case domain.EffectStartOuterRequests:
		err = s.startSiblingRequests(tx, updated)
	case domain.EffectRemoveDownstream:
		err = s.removeDownstreamAliquots(tx, updated)
	}
	if err != nil {
		return err
	}
	*out = updated
	return nil
}

// startSiblingRequests starts the sibling customer requests matching the
// transfer. Once aliquots carry explicit request associations only the
// matching siblings start; older material with no associations starts every
// sibling that may start.
func (s *Service) startSiblingRequests(tx domain.Transaction, transfer TransferRequest) error {
	view := tx.Snapshot()
	siblings := view.RequestsByAssetAndSubmission(transfer.AssetID, transfer.SubmissionID)
	allow := targetAliquotRequestIDs(view, transfer.TargetAssetID)
	for _, sibling := range siblings {
		if len(allow) > 0 {
			if _, ok := allow[sibling.ID]; !ok {
				continue
			}
		}
		if !sibling.MayStart() {
			continue
		}
		if _, err := tx.UpdateRequest(sibling.ID, func(r *Request) error {
			r.State = domain.RequestStateStarted
			return nil
		}); err != nil {
			return fmt.Errorf("start sibling request %s: %w", sibling.ID, err)
		}
	}
	return nil
}

// targetAliquotRequestIDs collects the customer requests referenced by the
// target receptacle's aliquots, the allowlist for the start cascade.
func targetAliquotRequestIDs(view domain.TransactionView, targetID string) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, aliquot := range view.AliquotsByReceptacle(targetID) {
		if aliquot.RequestID != nil {
			ids[*aliquot.RequestID] = struct{}{}
		}
	}
	return ids
}

// removeDownstreamAliquots voids the material this transfer placed in its
// target and everything transferred onwards from there. Aliquots the target
// held before the transfer are left alone.
func (s *Service) removeDownstreamAliquots(tx domain.Transaction, transfer TransferRequest) error {
	visited := make(map[string]struct{})
	return s.removeCreatedAliquots(tx, transfer, visited)
}

func (s *Service) removeCreatedAliquots(tx domain.Transaction, transfer TransferRequest, visited map[string]struct{}) error {
	if _, done := visited[transfer.ID]; done {
		return nil
	}
	visited[transfer.ID] = struct{}{}
	view := tx.Snapshot()
	for _, id := range transfer.CreatedAliquotIDs {
		if _, ok := view.FindAliquot(id); !ok {
			continue
		}
		if err := tx.DeleteAliquot(id); err != nil {
			return fmt.Errorf("remove downstream aliquot %s: %w", id, err)
		}
	}
	for _, onward := range view.TransferRequestsByAsset(transfer.TargetAssetID) {
		if err := s.removeCreatedAliquots(tx, onward, visited); err != nil {
			return err
		}
	}
	return nil
}

// SuggestedEvent reports the single event that would move the transfer to the
// target state, without firing it.
func (s *Service) SuggestedEvent(transferID string, target TransferState) (Event, error) {
	current, ok := s.store.GetTransferRequest(transferID)
	if !ok {
		return "", ErrNotFound{Entity: EntityTransferRequest, ID: transferID}
	}
	return domain.SuggestedEventTo(current.State, target)
}
