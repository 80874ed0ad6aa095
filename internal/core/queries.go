package core

import (
	"context"

	"github.com/radome/sequencescape/pkg/domain"
)

// AssociatedRequests lists every customer request sourced from the transfer's
// source asset, regardless of submission.
func (s *Service) AssociatedRequests(ctx context.Context, transferID string) ([]Request, error) {
	var out []Request
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		transfer, ok := view.FindTransferRequest(transferID)
		if !ok {
			return ErrNotFound{Entity: EntityTransferRequest, ID: transferID}
		}
		for _, req := range view.ListRequests() {
			if req.AssetID == transfer.AssetID {
				out = append(out, req)
			}
		}
		return nil
	})
	return out, err
}

// SiblingRequests lists the customer requests out of the transfer's source
// asset within the transfer's submission. This is the query-filtered path;
// bulk callers that already materialised the association should filter it
// with SiblingRequestsIn instead.
func (s *Service) SiblingRequests(ctx context.Context, transferID string) ([]Request, error) {
	var out []Request
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		transfer, ok := view.FindTransferRequest(transferID)
		if !ok {
			return ErrNotFound{Entity: EntityTransferRequest, ID: transferID}
		}
		out = view.RequestsByAssetAndSubmission(transfer.AssetID, transfer.SubmissionID)
		return nil
	})
	return out, err
}

// SiblingRequestsIn filters an already-loaded associated-request set down to
// the transfer's siblings without touching the store. Processing a whole
// plate of transfers loads the association once and reuses it per transfer.
func SiblingRequestsIn(transfer TransferRequest, associated []Request) []Request {
	var out []Request
	for _, req := range associated {
		if req.AssetID == transfer.AssetID && req.SubmissionID == transfer.SubmissionID {
			out = append(out, req)
		}
	}
	return out
}

// OuterRequest resolves the single customer request governing the transfer,
// nil when the siblings do not narrow down to one.
func (s *Service) OuterRequest(ctx context.Context, transferID string) (*Request, error) {
	var out *Request
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		transfer, ok := view.FindTransferRequest(transferID)
		if !ok {
			return ErrNotFound{Entity: EntityTransferRequest, ID: transferID}
		}
		candidates, err := outerRequestCandidates(view, transfer)
		if err != nil {
			return err
		}
		if len(candidates) == 1 {
			req := candidates[0]
			out = &req
		}
		return nil
	})
	return out, err
}
