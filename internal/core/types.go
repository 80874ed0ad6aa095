package core

import "github.com/radome/sequencescape/pkg/domain"

type (
	EntityType         = domain.EntityType
	TransferState      = domain.TransferState
	RequestState       = domain.RequestState
	Event              = domain.Event
	Severity           = domain.Severity
	Base               = domain.Base
	Sample             = domain.Sample
	Study              = domain.Study
	Project            = domain.Project
	Tag                = domain.Tag
	Receptacle         = domain.Receptacle
	Aliquot            = domain.Aliquot
	Request            = domain.Request
	TransferRequest    = domain.TransferRequest
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	RulesEngine        = domain.RulesEngine
)

const (
	EntitySample          = domain.EntitySample
	EntityStudy           = domain.EntityStudy
	EntityProject         = domain.EntityProject
	EntityTag             = domain.EntityTag
	EntityReceptacle      = domain.EntityReceptacle
	EntityAliquot         = domain.EntityAliquot
	EntityRequest         = domain.EntityRequest
	EntityTransferRequest = domain.EntityTransferRequest
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

// NewRulesEngine re-exports the domain constructor for callers wiring the
// service without importing pkg/domain directly.
func NewRulesEngine() *RulesEngine { return domain.NewRulesEngine() }
