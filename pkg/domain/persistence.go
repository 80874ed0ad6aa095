package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateSample(Sample) (Sample, error)
	UpdateSample(id string, mutator func(*Sample) error) (Sample, error)
	DeleteSample(id string) error
	CreateStudy(Study) (Study, error)
	UpdateStudy(id string, mutator func(*Study) error) (Study, error)
	DeleteStudy(id string) error
	CreateProject(Project) (Project, error)
	UpdateProject(id string, mutator func(*Project) error) (Project, error)
	DeleteProject(id string) error
	CreateTag(Tag) (Tag, error)
	UpdateTag(id string, mutator func(*Tag) error) (Tag, error)
	DeleteTag(id string) error
	CreateReceptacle(Receptacle) (Receptacle, error)
	UpdateReceptacle(id string, mutator func(*Receptacle) error) (Receptacle, error)
	DeleteReceptacle(id string) error
	CreateAliquot(Aliquot) (Aliquot, error)
	UpdateAliquot(id string, mutator func(*Aliquot) error) (Aliquot, error)
	DeleteAliquot(id string) error
	CreateRequest(Request) (Request, error)
	UpdateRequest(id string, mutator func(*Request) error) (Request, error)
	DeleteRequest(id string) error
	CreateTransferRequest(TransferRequest) (TransferRequest, error)
	UpdateTransferRequest(id string, mutator func(*TransferRequest) error) (TransferRequest, error)
	DeleteTransferRequest(id string) error
	FindReceptacle(id string) (Receptacle, bool)
	FindRequest(id string) (Request, bool)
}

// TransactionView provides read-only access to snapshot data for rules and
// the query layer.
type TransactionView interface {
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
	RequestsByAssetAndSubmission(assetID, submissionID string) []Request
	TransferRequestsByAsset(assetID string) []TransferRequest
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetSample(id string) (Sample, bool)
	GetStudy(id string) (Study, bool)
	GetProject(id string) (Project, bool)
	GetTag(id string) (Tag, bool)
	GetReceptacle(id string) (Receptacle, bool)
	GetAliquot(id string) (Aliquot, bool)
	GetRequest(id string) (Request, bool)
	GetTransferRequest(id string) (TransferRequest, bool)
	ListSamples() []Sample
	ListStudies() []Study
	ListProjects() []Project
	ListTags() []Tag
	ListReceptacles() []Receptacle
	ListAliquots() []Aliquot
	ListRequests() []Request
	ListTransferRequests() []TransferRequest
}
