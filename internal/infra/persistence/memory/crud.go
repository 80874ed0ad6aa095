package memory

import (
	"fmt"

	"github.com/radome/sequencescape/pkg/domain"
)

// CreateSample stores a new sample within the transaction.
func (tx *transaction) CreateSample(v Sample) (Sample, error) {
	if v.ID == "" {
		v.ID = tx.store.newID()
	}
	if _, exists := tx.state.samples[v.ID]; exists {
		return Sample{}, fmt.Errorf("sample %q already exists", v.ID)
	}
	v.CreatedAt = tx.now
	v.UpdatedAt = tx.now
	tx.state.samples[v.ID] = cloneSample(v)
	tx.recordChange(Change{Entity: domain.EntitySample, Action: domain.ActionCreate, After: mustPayload("encode sample", v)})
	return cloneSample(v), nil
}

// UpdateSample mutates a sample using the provided mutator function.
func (tx *transaction) UpdateSample(id string, mutator func(*Sample) error) (Sample, error) {
	current, ok := tx.state.samples[id]
	if !ok {
		return Sample{}, fmt.Errorf("sample %q not found", id)
	}
	before := cloneSample(current)
	if err := mutator(&current); err != nil {
		return Sample{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.samples[id] = cloneSample(current)
	tx.recordChange(Change{Entity: domain.EntitySample, Action: domain.ActionUpdate, Before: mustPayload("encode sample", before), After: mustPayload("encode sample", current)})
	return cloneSample(current), nil
}

// DeleteSample removes a sample from the transaction state.
func (tx *transaction) DeleteSample(id string) error {
	current, ok := tx.state.samples[id]
	if !ok {
		return fmt.Errorf("sample %q not found", id)
	}
	for _, aliquot := range tx.state.aliquots {
		if aliquot.SampleID == id {
			return fmt.Errorf("sample %q still referenced by aliquot %q", id, aliquot.ID)
		}
	}
	delete(tx.state.samples, id)
	tx.recordChange(Change{Entity: domain.EntitySample, Action: domain.ActionDelete, Before: mustPayload("encode sample", current)})
	return nil
}

// CreateStudy stores a new study.
func (tx *transaction) CreateStudy(v Study) (Study, error) {
	if v.ID == "" {
		v.ID = tx.store.newID()
	}
	if _, exists := tx.state.studies[v.ID]; exists {
		return Study{}, fmt.Errorf("study %q already exists", v.ID)
	}
	v.CreatedAt = tx.now
	v.UpdatedAt = tx.now
	tx.state.studies[v.ID] = cloneStudy(v)
	tx.recordChange(Change{Entity: domain.EntityStudy, Action: domain.ActionCreate, After: mustPayload("encode study", v)})
	return cloneStudy(v), nil
}

// UpdateStudy mutates an existing study.
func (tx *transaction) UpdateStudy(id string, mutator func(*Study) error) (Study, error) {
	current, ok := tx.state.studies[id]
	if !ok {
		return Study{}, fmt.Errorf("study %q not found", id)
	}
	before := cloneStudy(current)
	if err := mutator(&current); err != nil {
		return Study{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.studies[id] = cloneStudy(current)
	tx.recordChange(Change{Entity: domain.EntityStudy, Action: domain.ActionUpdate, Before: mustPayload("encode study", before), After: mustPayload("encode study", current)})
	return cloneStudy(current), nil
}

// DeleteStudy removes a study.
func (tx *transaction) DeleteStudy(id string) error {
	current, ok := tx.state.studies[id]
	if !ok {
		return fmt.Errorf("study %q not found", id)
	}
	delete(tx.state.studies, id)
	tx.recordChange(Change{Entity: domain.EntityStudy, Action: domain.ActionDelete, Before: mustPayload("encode study", current)})
	return nil
}

// CreateProject stores a new project.
func (tx *transaction) CreateProject(v Project) (Project, error) {
	if v.ID == "" {
		v.ID = tx.store.newID()
	}
	if _, exists := tx.state.projects[v.ID]; exists {
		return Project{}, fmt.Errorf("project %q already exists", v.ID)
	}
	v.CreatedAt = tx.now
	v.UpdatedAt = tx.now
	tx.state.projects[v.ID] = cloneProject(v)
	tx.recordChange(Change{Entity: domain.EntityProject, Action: domain.ActionCreate, After: mustPayload("encode project", v)})
	return cloneProject(v), nil
}

// UpdateProject mutates an existing project.
func (tx *transaction) UpdateProject(id string, mutator func(*Project) error) (Project, error) {
	current, ok := tx.state.projects[id]
	if !ok {
		return Project{}, fmt.Errorf("project %q not found", id)
	}
	before := cloneProject(current)
	if err := mutator(&current); err != nil {
		return Project{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.projects[id] = cloneProject(current)
	tx.recordChange(Change{Entity: domain.EntityProject, Action: domain.ActionUpdate, Before: mustPayload("encode project", before), After: mustPayload("encode project", current)})
	return cloneProject(current), nil
}

// DeleteProject removes a project.
func (tx *transaction) DeleteProject(id string) error {
	current, ok := tx.state.projects[id]
	if !ok {
		return fmt.Errorf("project %q not found", id)
	}
	delete(tx.state.projects, id)
	tx.recordChange(Change{Entity: domain.EntityProject, Action: domain.ActionDelete, Before: mustPayload("encode project", current)})
	return nil
}

// CreateTag stores a new tag.
func (tx *transaction) CreateTag(v Tag) (Tag, error) {
	if v.ID == "" {
		v.ID = tx.store.newID()
	}
	if v.ID == domain.UnassignedTag {
		return Tag{}, fmt.Errorf("tag id %q is reserved", v.ID)
	}
	if _, exists := tx.state.tags[v.ID]; exists {
		return Tag{}, fmt.Errorf("tag %q already exists", v.ID)
	}
	v.CreatedAt = tx.now
	v.UpdatedAt = tx.now
	tx.state.tags[v.ID] = cloneTag(v)
	tx.recordChange(Change{Entity: domain.EntityTag, Action: domain.ActionCreate, After: mustPayload("encode tag", v)})
	return cloneTag(v), nil
}

// UpdateTag mutates an existing tag.
func (tx *transaction) UpdateTag(id string, mutator func(*Tag) error) (Tag, error) {
	current, ok := tx.state.tags[id]
	if !ok {
		return Tag{}, fmt.Errorf("tag %q not found", id)
	}
	before := cloneTag(current)
	if err := mutator(&current); err != nil {
		return Tag{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.tags[id] = cloneTag(current)
	tx.recordChange(Change{Entity: domain.EntityTag, Action: domain.ActionUpdate, Before: mustPayload("encode tag", before), After: mustPayload("encode tag", current)})
	return cloneTag(current), nil
}

// DeleteTag removes a tag.
func (tx *transaction) DeleteTag(id string) error {
	current, ok := tx.state.tags[id]
	if !ok {
		return fmt.Errorf("tag %q not found", id)
	}
	for _, aliquot := range tx.state.aliquots {
		if aliquot.TagID == id || aliquot.Tag2ID == id {
			return fmt.Errorf("tag %q still referenced by aliquot %q", id, aliquot.ID)
		}
	}
	delete(tx.state.tags, id)
	tx.recordChange(Change{Entity: domain.EntityTag, Action: domain.ActionDelete, Before: mustPayload("encode tag", current)})
	return nil
}

// CreateReceptacle stores a new receptacle.
func (tx *transaction) CreateReceptacle(v Receptacle) (Receptacle, error) {
	if v.ID == "" {
		v.ID = tx.store.newID()
	}
	if _, exists := tx.state.receptacles[v.ID]; exists {
		return Receptacle{}, fmt.Errorf("receptacle %q already exists", v.ID)
	}
	if v.Kind == "" {
		v.Kind = domain.ReceptacleTube
	}
	if v.State == "" {
		v.State = domain.TransferStatePending
	}
	v.CreatedAt = tx.now
	v.UpdatedAt = tx.now
	tx.state.receptacles[v.ID] = cloneReceptacle(v)
	tx.recordChange(Change{Entity: domain.EntityReceptacle, Action: domain.ActionCreate, After: mustPayload("encode receptacle", v)})
	return cloneReceptacle(v), nil
}

// UpdateReceptacle mutates an existing receptacle.
func (tx *transaction) UpdateReceptacle(id string, mutator func(*Receptacle) error) (Receptacle, error) {
	current, ok := tx.state.receptacles[id]
	if !ok {
		return Receptacle{}, fmt.Errorf("receptacle %q not found", id)
	}
	before := cloneReceptacle(current)
	if err := mutator(&current); err != nil {
		return Receptacle{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.receptacles[id] = cloneReceptacle(current)
	tx.recordChange(Change{Entity: domain.EntityReceptacle, Action: domain.ActionUpdate, Before: mustPayload("encode receptacle", before), After: mustPayload("encode receptacle", current)})
	return cloneReceptacle(current), nil
}

// DeleteReceptacle removes a receptacle.
func (tx *transaction) DeleteReceptacle(id string) error {
	current, ok := tx.state.receptacles[id]
	if !ok {
		return fmt.Errorf("receptacle %q not found", id)
	}
	for _, aliquot := range tx.state.aliquots {
		if aliquot.ReceptacleID == id {
			return fmt.Errorf("receptacle %q still holds aliquot %q", id, aliquot.ID)
		}
	}
	delete(tx.state.receptacles, id)
	tx.recordChange(Change{Entity: domain.EntityReceptacle, Action: domain.ActionDelete, Before: mustPayload("encode receptacle", current)})
	return nil
}

// CreateAliquot stores a new aliquot, enforcing tag-pair uniqueness within the
// destination receptacle. The check mirrors the relational index
// aliquot_tags_and_tag2s_are_unique_within_receptacle: the sentinel counts as
// a value, so two untagged aliquots in one receptacle clash too.
func (tx *transaction) CreateAliquot(v Aliquot) (Aliquot, error) {
	if v.ID == "" {
		v.ID = tx.store.newID()
	}
	if _, exists := tx.state.aliquots[v.ID]; exists {
		return Aliquot{}, fmt.Errorf("aliquot %q already exists", v.ID)
	}
	if _, ok := tx.state.receptacles[v.ReceptacleID]; !ok {
		return Aliquot{}, fmt.Errorf("receptacle %q not found for aliquot", v.ReceptacleID)
	}
	if _, ok := tx.state.samples[v.SampleID]; !ok {
		return Aliquot{}, fmt.Errorf("sample %q not found for aliquot", v.SampleID)
	}
	v.NormalizeTags()
	tag, tag2 := v.TagPair()
	for _, existing := range tx.state.aliquots {
		if existing.ReceptacleID != v.ReceptacleID {
			continue
		}
		etag, etag2 := existing.TagPair()
		if etag == tag && etag2 == tag2 {
			return Aliquot{}, domain.TagClashError{ReceptacleID: v.ReceptacleID, TagID: tag, Tag2ID: tag2}
		}
	}
	v.CreatedAt = tx.now
	v.UpdatedAt = tx.now
	tx.state.aliquots[v.ID] = cloneAliquot(v)
	tx.recordChange(Change{Entity: domain.EntityAliquot, Action: domain.ActionCreate, After: mustPayload("encode aliquot", v)})
	return cloneAliquot(v), nil
}

// UpdateAliquot mutates an aliquot, re-checking tag-pair uniqueness when the
// placement or tags changed.
func (tx *transaction) UpdateAliquot(id string, mutator func(*Aliquot) error) (Aliquot, error) {
	current, ok := tx.state.aliquots[id]
	if !ok {
		return Aliquot{}, fmt.Errorf("aliquot %q not found", id)
	}
	before := cloneAliquot(current)
	if err := mutator(&current); err != nil {
		return Aliquot{}, err
	}
	current.ID = id
	current.NormalizeTags()
	tag, tag2 := current.TagPair()
	btag, btag2 := before.TagPair()
	if current.ReceptacleID != before.ReceptacleID || tag != btag || tag2 != btag2 {
		for _, existing := range tx.state.aliquots {
			if existing.ID == id || existing.ReceptacleID != current.ReceptacleID {
				continue
			}
			etag, etag2 := existing.TagPair()
			if etag == tag && etag2 == tag2 {
				return Aliquot{}, domain.TagClashError{ReceptacleID: current.ReceptacleID, TagID: tag, Tag2ID: tag2}
			}
		}
	}
	current.UpdatedAt = tx.now
	tx.state.aliquots[id] = cloneAliquot(current)
	tx.recordChange(Change{Entity: domain.EntityAliquot, Action: domain.ActionUpdate, Before: mustPayload("encode aliquot", before), After: mustPayload("encode aliquot", current)})
	return cloneAliquot(current), nil
}

// DeleteAliquot removes an aliquot.
func (tx *transaction) DeleteAliquot(id string) error {
	current, ok := tx.state.aliquots[id]
	if !ok {
		return fmt.Errorf("aliquot %q not found", id)
	}
	delete(tx.state.aliquots, id)
	tx.recordChange(Change{Entity: domain.EntityAliquot, Action: domain.ActionDelete, Before: mustPayload("encode aliquot", current)})
	return nil
}

// CreateRequest stores a new customer request.
func (tx *transaction) CreateRequest(v Request) (Request, error) {
	if v.ID == "" {
		v.ID = tx.store.newID()
	}
	if _, exists := tx.state.requests[v.ID]; exists {
		return Request{}, fmt.Errorf("request %q already exists", v.ID)
	}
	if v.State == "" {
		v.State = domain.RequestStatePending
	}
	v.CreatedAt = tx.now
	v.UpdatedAt = tx.now
	tx.state.requests[v.ID] = cloneRequest(v)
	tx.recordChange(Change{Entity: domain.EntityRequest, Action: domain.ActionCreate, After: mustPayload("encode request", v)})
	return cloneRequest(v), nil
}

// UpdateRequest mutates an existing request.
func (tx *transaction) UpdateRequest(id string, mutator func(*Request) error) (Request, error) {
	current, ok := tx.state.requests[id]
	if !ok {
		return Request{}, fmt.Errorf("request %q not found", id)
	}
	before := cloneRequest(current)
	if err := mutator(&current); err != nil {
		return Request{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.requests[id] = cloneRequest(current)
	tx.recordChange(Change{Entity: domain.EntityRequest, Action: domain.ActionUpdate, Before: mustPayload("encode request", before), After: mustPayload("encode request", current)})
	return cloneRequest(current), nil
}

// DeleteRequest removes a request.
func (tx *transaction) DeleteRequest(id string) error {
	current, ok := tx.state.requests[id]
	if !ok {
		return fmt.Errorf("request %q not found", id)
	}
	delete(tx.state.requests, id)
	tx.recordChange(Change{Entity: domain.EntityRequest, Action: domain.ActionDelete, Before: mustPayload("encode request", current)})
	return nil
}

// CreateTransferRequest stores a new transfer request.
func (tx *transaction) CreateTransferRequest(v TransferRequest) (TransferRequest, error) {
	if v.ID == "" {
		v.ID = tx.store.newID()
	}
	if _, exists := tx.state.transfers[v.ID]; exists {
		return TransferRequest{}, fmt.Errorf("transfer request %q already exists", v.ID)
	}
	if v.AssetID != "" && v.AssetID == v.TargetAssetID {
		return TransferRequest{}, domain.ValidationError{Entity: domain.EntityTransferRequest, Field: "target_asset_id", Reason: "cannot be the same as the source"}
	}
	if v.State == "" {
		v.State = domain.TransferStatePending
	}
	v.CreatedAt = tx.now
	v.UpdatedAt = tx.now
	tx.state.transfers[v.ID] = cloneTransferRequest(v)
	tx.recordChange(Change{Entity: domain.EntityTransferRequest, Action: domain.ActionCreate, After: mustPayload("encode transfer request", v)})
	return cloneTransferRequest(v), nil
}

// UpdateTransferRequest mutates an existing transfer request.
func (tx *transaction) UpdateTransferRequest(id string, mutator func(*TransferRequest) error) (TransferRequest, error) {
	current, ok := tx.state.transfers[id]
	if !ok {
		return TransferRequest{}, fmt.Errorf("transfer request %q not found", id)
	}
	before := cloneTransferRequest(current)
	if err := mutator(&current); err != nil {
		return TransferRequest{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.transfers[id] = cloneTransferRequest(current)
	tx.recordChange(Change{Entity: domain.EntityTransferRequest, Action: domain.ActionUpdate, Before: mustPayload("encode transfer request", before), After: mustPayload("encode transfer request", current)})
	return cloneTransferRequest(current), nil
}

// DeleteTransferRequest removes a transfer request.
func (tx *transaction) DeleteTransferRequest(id string) error {
	current, ok := tx.state.transfers[id]
	if !ok {
		return fmt.Errorf("transfer request %q not found", id)
	}
	delete(tx.state.transfers, id)
	tx.recordChange(Change{Entity: domain.EntityTransferRequest, Action: domain.ActionDelete, Before: mustPayload("encode transfer request", current)})
	return nil
}
