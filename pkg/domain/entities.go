// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives of the transfer-request engine.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntitySample identifies a sample record.
	EntitySample EntityType = "sample"
	// EntityStudy identifies a study record.
	EntityStudy EntityType = "study"
	// EntityProject identifies a project record.
	EntityProject EntityType = "project"
	// EntityTag identifies a tag (index oligo) record.
	EntityTag EntityType = "tag"
	// EntityReceptacle identifies a receptacle (tube or well) record.
	EntityReceptacle EntityType = "receptacle"
	// EntityAliquot identifies an aliquot record.
	EntityAliquot EntityType = "aliquot"
	// EntityRequest identifies a customer request record.
	EntityRequest EntityType = "request"
	// EntityTransferRequest identifies a transfer request record.
	EntityTransferRequest EntityType = "transfer_request"
)

// UnassignedTag is the sentinel tag reference standing in for "no tag".
//
// The tag-pair uniqueness constraint lives in the storage layer, and storage
// engines treat NULL as distinct-from-itself in unique indexes. Using a fixed
// out-of-range identifier instead of an empty reference makes the sentinel
// participate in the uniqueness check like a real value, which is what limits
// a receptacle to a single untagged aliquot. This is a workaround for the
// index semantics, not a natural modelling choice.
const UnassignedTag = "-1"

// TransferState enumerates the lifecycle states of a transfer request.
type TransferState string

// Canonical transfer request states.
const (
	TransferStatePending    TransferState = "pending"
	TransferStateStarted    TransferState = "started"
	TransferStateProcessed1 TransferState = "processed_1"
	TransferStateProcessed2 TransferState = "processed_2"
	TransferStatePassed     TransferState = "passed"
	TransferStateFailed     TransferState = "failed"
	TransferStateCancelled  TransferState = "cancelled"
	TransferStateQCComplete TransferState = "qc_complete"
)

// TransferActiveStates lists states still considered processable
// (ie. not failed or cancelled).
var TransferActiveStates = []TransferState{
	TransferStatePending,
	TransferStateStarted,
	TransferStatePassed,
	TransferStateQCComplete,
}

// RequestState enumerates the lifecycle states of a customer request.
type RequestState string

// Canonical customer request states.
const (
	RequestStatePending   RequestState = "pending"
	RequestStateStarted   RequestState = "started"
	RequestStatePassed    RequestState = "passed"
	RequestStateFailed    RequestState = "failed"
	RequestStateCancelled RequestState = "cancelled"
)

// ReceptacleKind distinguishes the physical shape of a receptacle.
type ReceptacleKind string

// Supported receptacle kinds.
const (
	ReceptacleTube ReceptacleKind = "tube"
	ReceptacleWell ReceptacleKind = "well"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Sample represents the biological material an aliquot is an amount of.
type Sample struct {
	Base
	Name    string  `json:"name"`
	StudyID *string `json:"study_id"`
}

// Study groups samples under a research programme.
type Study struct {
	Base
	Name string `json:"name"`
}

// Project captures cost-centre attribution for aliquots.
type Project struct {
	Base
	Name string `json:"name"`
}

// Tag is a short DNA index sequence attached to an aliquot so that samples
// remain distinguishable after pooling.
type Tag struct {
	Base
	Oligo    string `json:"oligo"`
	TagGroup string `json:"tag_group"`
	MapID    int    `json:"map_id"`
}

// Receptacle is a physical vessel (tube or well) holding aliquots.
type Receptacle struct {
	Base
	Name string         `json:"name"`
	Kind ReceptacleKind `json:"kind"`
	// State mirrors the outcome of the most recent transfer into the
	// receptacle. Failed or cancelled material does not propagate further.
	State TransferState `json:"state"`
	// Stock marks a well that is itself a stock well for lineage purposes.
	Stock bool `json:"stock"`
	// StockWellIDs are lineage pointers back to the stock wells this
	// receptacle's material was drawn from.
	StockWellIDs []string `json:"stock_well_ids"`
}

// Failed reports whether material in the receptacle has been failed.
func (r Receptacle) Failed() bool { return r.State == TransferStateFailed }

// Cancelled reports whether material in the receptacle has been cancelled.
func (r Receptacle) Cancelled() bool { return r.State == TransferStateCancelled }

// IsWell reports whether the receptacle is a well.
func (r Receptacle) IsWell() bool { return r.Kind == ReceptacleWell }

// StockWellsForDownstream returns the stock-well set a downstream well
// inherits from this receptacle: the receptacle itself when it is stock,
// otherwise its recorded stock-well lineage.
func (r Receptacle) StockWellsForDownstream() []string {
	if r.Stock {
		return []string{r.ID}
	}
	return append([]string(nil), r.StockWellIDs...)
}

// Request is a customer (outer) request: the order-backed unit of work whose
// attributes govern aliquots passing through receptacles on its behalf.
type Request struct {
	Base
	AssetID       string       `json:"asset_id"`
	TargetAssetID *string      `json:"target_asset_id"`
	SubmissionID  string       `json:"submission_id"`
	OrderID       string       `json:"order_id"`
	StudyID       *string      `json:"study_id"`
	ProjectID     *string      `json:"project_id"`
	State         RequestState `json:"state"`
	// NextRequestIDs records the request's valid successors within the
	// submission chain. The successor topology is computed by the
	// order/submission subsystem; the engine only consults the recorded set.
	NextRequestIDs []string `json:"next_request_ids"`
	// Aliquot attribute overrides stamped onto material transferred under
	// this request.
	LibraryType    *string `json:"library_type"`
	InsertSizeFrom *int    `json:"insert_size_from"`
	InsertSizeTo   *int    `json:"insert_size_to"`
}

// MayStart reports whether the request is permitted to start.
func (r Request) MayStart() bool { return r.State == RequestStatePending }

// HasNextRequest reports whether candidate is recorded as a valid successor.
func (r Request) HasNextRequest(candidateID string) bool {
	for _, id := range r.NextRequestIDs {
		if id == candidateID {
			return true
		}
	}
	return false
}

// AliquotAttributes returns the overrides this request stamps onto aliquots
// duplicated under it.
func (r Request) AliquotAttributes() AliquotOverrides {
	id := r.ID
	return AliquotOverrides{
		RequestID:      &id,
		StudyID:        r.StudyID,
		ProjectID:      r.ProjectID,
		LibraryType:    r.LibraryType,
		InsertSizeFrom: r.InsertSizeFrom,
		InsertSizeTo:   r.InsertSizeTo,
	}
}

// TransferRequest moves the contents of one receptacle into another without
// chemically transforming them (cherrypicking, pooling, spreading).
type TransferRequest struct {
	Base
	AssetID       string        `json:"asset_id"`
	TargetAssetID string        `json:"target_asset_id"`
	State         TransferState `json:"state"`
	SubmissionID  string        `json:"submission_id"`
	OrderID       string        `json:"order_id"`
	// OuterRequestID pins the transfer to an explicitly supplied customer
	// request instead of deriving candidates from sibling requests.
	OuterRequestID *string `json:"outer_request_id"`
	// CreatedAliquotIDs are the aliquots this transfer materialised in the
	// target; failure and cancellation remove exactly these.
	CreatedAliquotIDs []string `json:"created_aliquot_ids"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before ChangePayload
	After  ChangePayload
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
