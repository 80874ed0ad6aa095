// Package memory provides an in-memory implementation of the persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/radome/sequencescape/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Sample aliases domain.Sample for in-memory persistence operations.
	Sample = domain.Sample
	// Study aliases domain.Study.
	Study = domain.Study
	// Project aliases domain.Project.
	Project = domain.Project
	// Tag aliases domain.Tag.
	Tag = domain.Tag
	// Receptacle aliases domain.Receptacle.
	Receptacle = domain.Receptacle
	// Aliquot aliases domain.Aliquot.
	Aliquot = domain.Aliquot
	// Request aliases domain.Request.
	Request = domain.Request
	// TransferRequest aliases domain.TransferRequest.
	TransferRequest = domain.TransferRequest
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

func mustPayload(label string, value any) domain.ChangePayload {
	payload, err := domain.NewChangePayloadFromValue(value)
	if err != nil {
		panic(fmt.Errorf("memory store %s: %w", label, err))
	}
	return payload
}

type memoryState struct {
	samples     map[string]Sample
	studies     map[string]Study
	projects    map[string]Project
	tags        map[string]Tag
	receptacles map[string]Receptacle
	aliquots    map[string]Aliquot
	requests    map[string]Request
	transfers   map[string]TransferRequest
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Samples          map[string]Sample          `json:"samples"`
	Studies          map[string]Study           `json:"studies"`
	Projects         map[string]Project         `json:"projects"`
	Tags             map[string]Tag             `json:"tags"`
	Receptacles      map[string]Receptacle      `json:"receptacles"`
	Aliquots         map[string]Aliquot         `json:"aliquots"`
	Requests         map[string]Request         `json:"requests"`
	TransferRequests map[string]TransferRequest `json:"transfer_requests"`
}

func newMemoryState() memoryState {
	return memoryState{
		samples:     make(map[string]Sample),
		studies:     make(map[string]Study),
		projects:    make(map[string]Project),
		tags:        make(map[string]Tag),
		receptacles: make(map[string]Receptacle),
		aliquots:    make(map[string]Aliquot),
		requests:    make(map[string]Request),
		transfers:   make(map[string]TransferRequest),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.samples {
		cloned.samples[k] = cloneSample(v)
	}
	for k, v := range s.studies {
		cloned.studies[k] = cloneStudy(v)
	}
	for k, v := range s.projects {
		cloned.projects[k] = cloneProject(v)
	}
	for k, v := range s.tags {
		cloned.tags[k] = cloneTag(v)
	}
	for k, v := range s.receptacles {
		cloned.receptacles[k] = cloneReceptacle(v)
	}
	for k, v := range s.aliquots {
		cloned.aliquots[k] = cloneAliquot(v)
	}
	for k, v := range s.requests {
		cloned.requests[k] = cloneRequest(v)
	}
	for k, v := range s.transfers {
		cloned.transfers[k] = cloneTransferRequest(v)
	}
	return cloned
}

func cloneSample(v Sample) Sample    { return v }
func cloneStudy(v Study) Study       { return v }
func cloneProject(v Project) Project { return v }
func cloneTag(v Tag) Tag             { return v }

func cloneReceptacle(r Receptacle) Receptacle {
	cp := r
	cp.StockWellIDs = append([]string(nil), r.StockWellIDs...)
	return cp
}

func cloneAliquot(a Aliquot) Aliquot {
	cp := a
	cp.StudyID = cloneStrPtr(a.StudyID)
	cp.ProjectID = cloneStrPtr(a.ProjectID)
	cp.LibraryID = cloneStrPtr(a.LibraryID)
	cp.BaitLibraryID = cloneStrPtr(a.BaitLibraryID)
	cp.LibraryType = cloneStrPtr(a.LibraryType)
	cp.InsertSizeFrom = cloneIntPtr(a.InsertSizeFrom)
	cp.InsertSizeTo = cloneIntPtr(a.InsertSizeTo)
	cp.RequestID = cloneStrPtr(a.RequestID)
	return cp
}

func cloneRequest(r Request) Request {
	cp := r
	cp.TargetAssetID = cloneStrPtr(r.TargetAssetID)
	cp.StudyID = cloneStrPtr(r.StudyID)
	cp.ProjectID = cloneStrPtr(r.ProjectID)
	cp.NextRequestIDs = append([]string(nil), r.NextRequestIDs...)
	cp.LibraryType = cloneStrPtr(r.LibraryType)
	cp.InsertSizeFrom = cloneIntPtr(r.InsertSizeFrom)
	cp.InsertSizeTo = cloneIntPtr(r.InsertSizeTo)
	return cp
}

func cloneTransferRequest(t TransferRequest) TransferRequest {
	cp := t
	cp.OuterRequestID = cloneStrPtr(t.OuterRequestID)
	cp.CreatedAliquotIDs = append([]string(nil), t.CreatedAliquotIDs...)
	return cp
}

func cloneStrPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Samples:          make(map[string]Sample, len(state.samples)),
		Studies:          make(map[string]Study, len(state.studies)),
		Projects:         make(map[string]Project, len(state.projects)),
		Tags:             make(map[string]Tag, len(state.tags)),
		Receptacles:      make(map[string]Receptacle, len(state.receptacles)),
		Aliquots:         make(map[string]Aliquot, len(state.aliquots)),
		Requests:         make(map[string]Request, len(state.requests)),
		TransferRequests: make(map[string]TransferRequest, len(state.transfers)),
	}
	for k, v := range state.samples {
		s.Samples[k] = cloneSample(v)
	}
	for k, v := range state.studies {
		s.Studies[k] = cloneStudy(v)
	}
	for k, v := range state.projects {
		s.Projects[k] = cloneProject(v)
	}
	for k, v := range state.tags {
		s.Tags[k] = cloneTag(v)
	}
	for k, v := range state.receptacles {
		s.Receptacles[k] = cloneReceptacle(v)
	}
	for k, v := range state.aliquots {
		s.Aliquots[k] = cloneAliquot(v)
	}
	for k, v := range state.requests {
		s.Requests[k] = cloneRequest(v)
	}
	for k, v := range state.transfers {
		s.TransferRequests[k] = cloneTransferRequest(v)
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Samples {
		state.samples[k] = cloneSample(v)
	}
	for k, v := range s.Studies {
		state.studies[k] = cloneStudy(v)
	}
	for k, v := range s.Projects {
		state.projects[k] = cloneProject(v)
	}
	for k, v := range s.Tags {
		state.tags[k] = cloneTag(v)
	}
	for k, v := range s.Receptacles {
		state.receptacles[k] = cloneReceptacle(v)
	}
	for k, v := range s.Aliquots {
		state.aliquots[k] = cloneAliquot(v)
	}
	for k, v := range s.Requests {
		state.requests[k] = cloneRequest(v)
	}
	for k, v := range s.TransferRequests {
		state.transfers[k] = cloneTransferRequest(v)
	}
	return state
}

// migrateSnapshot normalizes snapshots written by earlier revisions: nil
// buckets become empty maps, aliquot tag references gain the sentinel, and
// dangling references are dropped.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Samples == nil {
		snapshot.Samples = map[string]Sample{}
	}
	if snapshot.Studies == nil {
		snapshot.Studies = map[string]Study{}
	}
	if snapshot.Projects == nil {
		snapshot.Projects = map[string]Project{}
	}
	if snapshot.Tags == nil {
		snapshot.Tags = map[string]Tag{}
	}
	if snapshot.Receptacles == nil {
		snapshot.Receptacles = map[string]Receptacle{}
	}
	if snapshot.Aliquots == nil {
		snapshot.Aliquots = map[string]Aliquot{}
	}
	if snapshot.Requests == nil {
		snapshot.Requests = map[string]Request{}
	}
	if snapshot.TransferRequests == nil {
		snapshot.TransferRequests = map[string]TransferRequest{}
	}

	receptacleExists := func(id string) bool {
		_, ok := snapshot.Receptacles[id]
		return ok
	}
	sampleExists := func(id string) bool {
		_, ok := snapshot.Samples[id]
		return ok
	}

	for id, aliquot := range snapshot.Aliquots {
		if aliquot.ReceptacleID == "" || !receptacleExists(aliquot.ReceptacleID) {
			delete(snapshot.Aliquots, id)
			continue
		}
		if !sampleExists(aliquot.SampleID) {
			delete(snapshot.Aliquots, id)
			continue
		}
		aliquot.NormalizeTags()
		snapshot.Aliquots[id] = aliquot
	}

	for id, transfer := range snapshot.TransferRequests {
		if transfer.State == "" {
			transfer.State = domain.TransferStatePending
		}
		snapshot.TransferRequests[id] = transfer
	}

	return snapshot
}

// Store provides an in-memory transactional store for the domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine for integration points.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindReceptacle exposes receptacle lookup within the transaction scope.
func (tx *transaction) FindReceptacle(id string) (Receptacle, bool) {
	r, ok := tx.state.receptacles[id]
	if !ok {
		return Receptacle{}, false
	}
	return cloneReceptacle(r), true
}

// FindRequest exposes request lookup within the transaction scope.
func (tx *transaction) FindRequest(id string) (Request, bool) {
	r, ok := tx.state.requests[id]
	if !ok {
		return Request{}, false
	}
	return cloneRequest(r), true
}
