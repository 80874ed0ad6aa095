package domain

import "context"

// RuleView provides read-only access to domain entities for rule evaluation.
type RuleView interface {
	ListSamples() []Sample
	ListStudies() []Study
	ListProjects() []Project
	ListTags() []Tag
	ListReceptacles() []Receptacle
	ListAliquots() []Aliquot
	ListRequests() []Request
	ListTransferRequests() []TransferRequest
	FindSample(id string) (Sample, bool)
	FindStudy(id string) (Study, bool)
	FindProject(id string) (Project, bool)
	FindTag(id string) (Tag, bool)
	FindReceptacle(id string) (Receptacle, bool)
	FindAliquot(id string) (Aliquot, bool)
	FindRequest(id string) (Request, bool)
	FindTransferRequest(id string) (TransferRequest, bool)
	AliquotsByReceptacle(receptacleID string) []Aliquot
}

// Rule defines an evaluation executed within a transaction boundary.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view, changes)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}
