package memory

// Store-level read accessors. Each takes the read lock and serves clones from
// the committed state.

func (s *Store) GetSample(id string) (Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.state.samples[id]
	if !ok {
		return Sample{}, false
	}
	return cloneSample(v), true
}

func (s *Store) GetStudy(id string) (Study, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.state.studies[id]
	if !ok {
		return Study{}, false
	}
	return cloneStudy(v), true
}

func (s *Store) GetProject(id string) (Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.state.projects[id]
	if !ok {
		return Project{}, false
	}
	return cloneProject(v), true
}

func (s *Store) GetTag(id string) (Tag, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.state.tags[id]
	if !ok {
		return Tag{}, false
	}
	return cloneTag(v), true
}

func (s *Store) GetReceptacle(id string) (Receptacle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.state.receptacles[id]
	if !ok {
		return Receptacle{}, false
	}
	return cloneReceptacle(v), true
}

func (s *Store) GetAliquot(id string) (Aliquot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.state.aliquots[id]
	if !ok {
		return Aliquot{}, false
	}
	return cloneAliquot(v), true
}

func (s *Store) GetRequest(id string) (Request, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.state.requests[id]
	if !ok {
		return Request{}, false
	}
	return cloneRequest(v), true
}

func (s *Store) GetTransferRequest(id string) (TransferRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.state.transfers[id]
	if !ok {
		return TransferRequest{}, false
	}
	return cloneTransferRequest(v), true
}

func (s *Store) ListSamples() []Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Sample, 0, len(s.state.samples))
	for _, v := range s.state.samples {
		out = append(out, cloneSample(v))
	}
	sortByID(out, func(v Sample) string { return v.ID })
	return out
}

func (s *Store) ListStudies() []Study {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Study, 0, len(s.state.studies))
	for _, v := range s.state.studies {
		out = append(out, cloneStudy(v))
	}
	sortByID(out, func(v Study) string { return v.ID })
	return out
}

func (s *Store) ListProjects() []Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Project, 0, len(s.state.projects))
	for _, v := range s.state.projects {
		out = append(out, cloneProject(v))
	}
	sortByID(out, func(v Project) string { return v.ID })
	return out
}

func (s *Store) ListTags() []Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Tag, 0, len(s.state.tags))
	for _, v := range s.state.tags {
		out = append(out, cloneTag(v))
	}
	sortByID(out, func(v Tag) string { return v.ID })
	return out
}

func (s *Store) ListReceptacles() []Receptacle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Receptacle, 0, len(s.state.receptacles))
	for _, v := range s.state.receptacles {
		out = append(out, cloneReceptacle(v))
	}
	sortByID(out, func(v Receptacle) string { return v.ID })
	return out
}

func (s *Store) ListAliquots() []Aliquot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Aliquot, 0, len(s.state.aliquots))
	for _, v := range s.state.aliquots {
		out = append(out, cloneAliquot(v))
	}
	sortByID(out, func(v Aliquot) string { return v.ID })
	return out
}

func (s *Store) ListRequests() []Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Request, 0, len(s.state.requests))
	for _, v := range s.state.requests {
		out = append(out, cloneRequest(v))
	}
	sortByID(out, func(v Request) string { return v.ID })
	return out
}

func (s *Store) ListTransferRequests() []TransferRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TransferRequest, 0, len(s.state.transfers))
	for _, v := range s.state.transfers {
		out = append(out, cloneTransferRequest(v))
	}
	sortByID(out, func(v TransferRequest) string { return v.ID })
	return out
}
