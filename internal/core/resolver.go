package core

import (
	"github.com/radome/sequencescape/pkg/domain"
)

// outerRequestCandidates collects the customer requests a transfer may carry
// material under. A pinned outer request short-circuits the search; otherwise
// the candidates are the sibling requests leaving the source asset within the
// transfer's submission.
func outerRequestCandidates(view domain.TransactionView, transfer TransferRequest) ([]Request, error) {
	if transfer.OuterRequestID != nil {
		req, ok := view.FindRequest(*transfer.OuterRequestID)
		if !ok {
			return nil, ErrNotFound{Entity: EntityRequest, ID: *transfer.OuterRequestID}
		}
		return []Request{req}, nil
	}
	return view.RequestsByAssetAndSubmission(transfer.AssetID, transfer.SubmissionID), nil
}

// outerRequestFor picks the customer request governing one source aliquot.
// With at most one candidate the answer is immediate. With several, the
// aliquot's own request pointer disambiguates: the winner is the first
// candidate recorded as a successor of the request the aliquot already
// carries. Failing silently here could assign aliquots to the wrong study,
// so an unresolved aliquot is an error, never a default.
func outerRequestFor(view domain.TransactionView, aliquot Aliquot, candidates []Request) (*Request, error) {
	switch len(candidates) {
	case 0:
		return nil, nil
	case 1:
		req := candidates[0]
		return &req, nil
	}
	if aliquot.RequestID == nil {
		return nil, ambiguity(aliquot, candidates)
	}
	prior, ok := view.FindRequest(*aliquot.RequestID)
	if !ok {
		return nil, ambiguity(aliquot, candidates)
	}
	for _, candidate := range candidates {
		if prior.HasNextRequest(candidate.ID) {
			req := candidate
			return &req, nil
		}
	}
	return nil, ambiguity(aliquot, candidates)
}

func ambiguity(aliquot Aliquot, candidates []Request) error {
	return domain.UnresolvedOuterRequestError{AliquotID: aliquot.ID, Candidates: len(candidates)}
}
