package domain

import "fmt"

// ValidationError reports a structurally invalid entity or argument.
type ValidationError struct {
	Entity EntityType
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("%s.%s: %s", e.Entity, e.Field, e.Reason)
}

// TagClashError reports an attempt to place two aliquots with the same
// (tag, tag2) pair into one receptacle. Sequencing cannot separate such
// material afterwards, so the write is refused.
type TagClashError struct {
	ReceptacleID string
	TagID        string
	Tag2ID       string
}

func (e TagClashError) Error() string {
	return fmt.Sprintf("tag clash in receptacle %s: tag pair (%s, %s) already present", e.ReceptacleID, e.TagID, e.Tag2ID)
}

// InvalidTransitionError reports a state machine event fired from a state
// that does not permit it.
type InvalidTransitionError struct {
	Event Event
	From  TransferState
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("event %s is not permitted from state %s", e.Event, e.From)
}

// AmbiguousTransitionError reports a target state reachable by zero or more
// than one permitted event, so no single event can be suggested.
type AmbiguousTransitionError struct {
	From   TransferState
	Target TransferState
	Events []Event
}

func (e AmbiguousTransitionError) Error() string {
	if len(e.Events) == 0 {
		return fmt.Sprintf("no permitted event leads from %s to %s", e.From, e.Target)
	}
	return fmt.Sprintf("%d permitted events lead from %s to %s", len(e.Events), e.From, e.Target)
}

// UnresolvedOuterRequestError reports that the customer request for a
// transferred aliquot could not be determined from the sibling candidates.
type UnresolvedOuterRequestError struct {
	AliquotID  string
	Candidates int
}

func (e UnresolvedOuterRequestError) Error() string {
	return fmt.Sprintf("unable to resolve outer request for aliquot %s from %d candidates", e.AliquotID, e.Candidates)
}
