package core

import (
	"context"
	"fmt"

	"github.com/radome/sequencescape/pkg/domain"
)

// TagUniquenessRule blocks any transaction that would leave two aliquots with
// the same tag pair in one receptacle. The stores enforce the same constraint
// at write time; the rule reports the violation with its aliquot attribution
// even when material arrives through bulk imports that bypass per-insert
// checks.
func TagUniquenessRule() domain.Rule {
	return tagUniquenessRule{}
}

type tagUniquenessRule struct{}

func (tagUniquenessRule) Name() string { return "tag_uniqueness" }

func (tagUniquenessRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	touched := make(map[string]struct{})
	for _, change := range changes {
		if change.Entity != domain.EntityAliquot {
			continue
		}
		if aliquot, ok := decodeChangePayload[domain.Aliquot](change.After); ok {
			touched[aliquot.ReceptacleID] = struct{}{}
		}
	}
	for receptacleID := range touched {
		seen := make(map[[2]string]string)
		for _, aliquot := range view.AliquotsByReceptacle(receptacleID) {
			tag1, tag2 := aliquot.TagPair()
			key := [2]string{tag1, tag2}
			if otherID, clash := seen[key]; clash {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "tag_uniqueness",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("aliquots %s and %s in receptacle %s share tag pair (%s, %s)", otherID, aliquot.ID, receptacleID, tag1, tag2),
					Entity:   domain.EntityAliquot,
					EntityID: aliquot.ID,
				})
				continue
			}
			seen[key] = aliquot.ID
		}
	}
	return res, nil
}
