// Package core exposes the transactional service facade over the domain:
// entity registration, aliquot transfer, transfer-request lifecycle and the
// sibling-request query layer.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/radome/sequencescape/internal/infra/persistence/memory"
	"github.com/radome/sequencescape/pkg/domain"
)

// Service exposes higher-level transactional operations for the domain.
type Service struct {
	store   domain.PersistentStore
	logger  Logger
	clock   Clock
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
	nowFn   func() time.Time
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: noopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.nowFn = selectNowFunc(store, s.clock)
	return s
}

// NewInMemoryService creates a service and in-memory store with the given
// rules engine. A nil engine gets the default rule set.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	if engine == nil {
		engine = NewRulesEngine()
	}
	RegisterDefaultRules(engine)
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// ErrNotFound is returned when reference validation fails within
// transactional helpers.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// CreateSample persists a new sample.
func (s *Service) CreateSample(ctx context.Context, sample Sample) (Sample, Result, error) {
	var created Sample
	var res Result
	err := s.run(ctx, "create_sample", func(ctx context.Context) (EntityType, string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			created, txErr = tx.CreateSample(sample)
			return txErr
		})
		return EntitySample, created.ID, err
	})
	return created, res, err
}

// CreateStudy persists a new study.
func (s *Service) CreateStudy(ctx context.Context, study Study) (Study, Result, error) {
	var created Study
	var res Result
	err := s.run(ctx, "create_study", func(ctx context.Context) (EntityType, string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			created, txErr = tx.CreateStudy(study)
			return txErr
		})
		return EntityStudy, created.ID, err
	})
	return created, res, err
}

// CreateProject persists a new project.
func (s *Service) CreateProject(ctx context.Context, project Project) (Project, Result, error) {
	var created Project
	var res Result
	err := s.run(ctx, "create_project", func(ctx context.Context) (EntityType, string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			created, txErr = tx.CreateProject(project)
			return txErr
		})
		return EntityProject, created.ID, err
	})
	return created, res, err
}

// CreateTag persists a new tag.
func (s *Service) CreateTag(ctx context.Context, tag Tag) (Tag, Result, error) {
	var created Tag
	var res Result
	err := s.run(ctx, "create_tag", func(ctx context.Context) (EntityType, string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			created, txErr = tx.CreateTag(tag)
			return txErr
		})
		return EntityTag, created.ID, err
	})
	return created, res, err
}

// CreateReceptacle persists a new receptacle.
func (s *Service) CreateReceptacle(ctx context.Context, receptacle Receptacle) (Receptacle, Result, error) {
	var created Receptacle
	var res Result
	err := s.run(ctx, "create_receptacle", func(ctx context.Context) (EntityType, string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			created, txErr = tx.CreateReceptacle(receptacle)
			return txErr
		})
		return EntityReceptacle, created.ID, err
	})
	return created, res, err
}

// CreateRequest persists a new customer request.
func (s *Service) CreateRequest(ctx context.Context, request Request) (Request, Result, error) {
	var created Request
	var res Result
	err := s.run(ctx, "create_request", func(ctx context.Context) (EntityType, string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if _, ok := tx.FindReceptacle(request.AssetID); !ok {
				return ErrNotFound{Entity: EntityReceptacle, ID: request.AssetID}
			}
			var txErr error
			created, txErr = tx.CreateRequest(request)
			return txErr
		})
		return EntityRequest, created.ID, err
	})
	return created, res, err
}

// RegisterAliquot places new material into a receptacle, the entry point for
// aliquots that are not produced by a transfer.
func (s *Service) RegisterAliquot(ctx context.Context, aliquot Aliquot) (Aliquot, Result, error) {
	var created Aliquot
	var res Result
	err := s.run(ctx, "register_aliquot", func(ctx context.Context) (EntityType, string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			created, txErr = tx.CreateAliquot(aliquot)
			return txErr
		})
		return EntityAliquot, created.ID, err
	})
	return created, res, err
}

// UpdateAliquotQuality flips the suboptimal flag, the only aliquot attribute
// that may change after creation.
func (s *Service) UpdateAliquotQuality(ctx context.Context, aliquotID string, suboptimal bool) (Aliquot, Result, error) {
	var updated Aliquot
	var res Result
	err := s.run(ctx, "update_aliquot_quality", func(ctx context.Context) (EntityType, string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			updated, txErr = tx.UpdateAliquot(aliquotID, func(a *Aliquot) error {
				a.Suboptimal = suboptimal
				return nil
			})
			return txErr
		})
		return EntityAliquot, aliquotID, err
	})
	return updated, res, err
}

// GetTransferRequest reads a transfer request from the committed state.
func (s *Service) GetTransferRequest(id string) (TransferRequest, bool) {
	return s.store.GetTransferRequest(id)
}

// GetReceptacle reads a receptacle from the committed state.
func (s *Service) GetReceptacle(id string) (Receptacle, bool) {
	return s.store.GetReceptacle(id)
}

// GetAliquot reads an aliquot from the committed state.
func (s *Service) GetAliquot(id string) (Aliquot, bool) {
	return s.store.GetAliquot(id)
}

// GetRequest reads a customer request from the committed state.
func (s *Service) GetRequest(id string) (Request, bool) {
	return s.store.GetRequest(id)
}

// AliquotsIn lists the aliquots currently held by a receptacle.
func (s *Service) AliquotsIn(ctx context.Context, receptacleID string) ([]Aliquot, error) {
	var out []Aliquot
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		out = view.AliquotsByReceptacle(receptacleID)
		return nil
	})
	return out, err
}
