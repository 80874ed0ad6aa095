package memory

import "sort"

// List and find accessors over the transactional snapshot. Lists are sorted
// by identifier for deterministic iteration.

func (v transactionView) ListSamples() []Sample {
	out := make([]Sample, 0, len(v.state.samples))
	for _, s := range v.state.samples {
		out = append(out, cloneSample(s))
	}
	sortByID(out, func(s Sample) string { return s.ID })
	return out
}

func (v transactionView) ListStudies() []Study {
	out := make([]Study, 0, len(v.state.studies))
	for _, s := range v.state.studies {
		out = append(out, cloneStudy(s))
	}
	sortByID(out, func(s Study) string { return s.ID })
	return out
}

func (v transactionView) ListProjects() []Project {
	out := make([]Project, 0, len(v.state.projects))
	for _, p := range v.state.projects {
		out = append(out, cloneProject(p))
	}
	sortByID(out, func(p Project) string { return p.ID })
	return out
}

func (v transactionView) ListTags() []Tag {
	out := make([]Tag, 0, len(v.state.tags))
	for _, t := range v.state.tags {
		out = append(out, cloneTag(t))
	}
	sortByID(out, func(t Tag) string { return t.ID })
	return out
}

func (v transactionView) ListReceptacles() []Receptacle {
	out := make([]Receptacle, 0, len(v.state.receptacles))
	for _, r := range v.state.receptacles {
		out = append(out, cloneReceptacle(r))
	}
	sortByID(out, func(r Receptacle) string { return r.ID })
	return out
}

func (v transactionView) ListAliquots() []Aliquot {
	out := make([]Aliquot, 0, len(v.state.aliquots))
	for _, a := range v.state.aliquots {
		out = append(out, cloneAliquot(a))
	}
	sortByID(out, func(a Aliquot) string { return a.ID })
	return out
}

func (v transactionView) ListRequests() []Request {
	out := make([]Request, 0, len(v.state.requests))
	for _, r := range v.state.requests {
		out = append(out, cloneRequest(r))
	}
	sortByID(out, func(r Request) string { return r.ID })
	return out
}

func (v transactionView) ListTransferRequests() []TransferRequest {
	out := make([]TransferRequest, 0, len(v.state.transfers))
	for _, t := range v.state.transfers {
		out = append(out, cloneTransferRequest(t))
	}
	sortByID(out, func(t TransferRequest) string { return t.ID })
	return out
}

func (v transactionView) FindSample(id string) (Sample, bool) {
	s, ok := v.state.samples[id]
	if !ok {
		return Sample{}, false
	}
	return cloneSample(s), true
}

func (v transactionView) FindStudy(id string) (Study, bool) {
	s, ok := v.state.studies[id]
	if !ok {
		return Study{}, false
	}
	return cloneStudy(s), true
}

func (v transactionView) FindProject(id string) (Project, bool) {
	p, ok := v.state.projects[id]
	if !ok {
		return Project{}, false
	}
	return cloneProject(p), true
}

func (v transactionView) FindTag(id string) (Tag, bool) {
	t, ok := v.state.tags[id]
	if !ok {
		return Tag{}, false
	}
	return cloneTag(t), true
}

func (v transactionView) FindReceptacle(id string) (Receptacle, bool) {
	r, ok := v.state.receptacles[id]
	if !ok {
		return Receptacle{}, false
	}
	return cloneReceptacle(r), true
}

func (v transactionView) FindAliquot(id string) (Aliquot, bool) {
	a, ok := v.state.aliquots[id]
	if !ok {
		return Aliquot{}, false
	}
	return cloneAliquot(a), true
}

func (v transactionView) FindRequest(id string) (Request, bool) {
	r, ok := v.state.requests[id]
	if !ok {
		return Request{}, false
	}
	return cloneRequest(r), true
}

func (v transactionView) FindTransferRequest(id string) (TransferRequest, bool) {
	t, ok := v.state.transfers[id]
	if !ok {
		return TransferRequest{}, false
	}
	return cloneTransferRequest(t), true
}

// AliquotsByReceptacle returns the aliquots held by the given receptacle.
func (v transactionView) AliquotsByReceptacle(receptacleID string) []Aliquot {
	var out []Aliquot
	for _, a := range v.state.aliquots {
		if a.ReceptacleID == receptacleID {
			out = append(out, cloneAliquot(a))
		}
	}
	sortByID(out, func(a Aliquot) string { return a.ID })
	return out
}

// RequestsByAssetAndSubmission returns the customer requests out of the given
// asset within the given submission.
func (v transactionView) RequestsByAssetAndSubmission(assetID, submissionID string) []Request {
	var out []Request
	for _, r := range v.state.requests {
		if r.AssetID == assetID && r.SubmissionID == submissionID {
			out = append(out, cloneRequest(r))
		}
	}
	sortByID(out, func(r Request) string { return r.ID })
	return out
}

// TransferRequestsByAsset returns the transfer requests sourced from the
// given asset.
func (v transactionView) TransferRequestsByAsset(assetID string) []TransferRequest {
	var out []TransferRequest
	for _, t := range v.state.transfers {
		if t.AssetID == assetID {
			out = append(out, cloneTransferRequest(t))
		}
	}
	sortByID(out, func(t TransferRequest) string { return t.ID })
	return out
}

func sortByID[T any](items []T, id func(T) string) {
	sort.Slice(items, func(i, j int) bool { return id(items[i]) < id(items[j]) })
}
