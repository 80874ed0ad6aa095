package core

import (
	"errors"
	"testing"

	"github.com/radome/sequencescape/internal/infra/persistence/memory"
	"github.com/radome/sequencescape/pkg/domain"
)

func TestServiceEntityCreation(t *testing.T) {
	f := newFixture(t)
	sample := f.sample("patient-7")
	if sample.ID == "" || sample.Name != "patient-7" {
		t.Fatalf("created sample = %+v", sample)
	}
	study, _, err := f.svc.CreateStudy(f.ctx, Study{Name: "malaria"})
	if err != nil || study.ID == "" {
		t.Fatalf("create study: %v (%+v)", err, study)
	}
	project, _, err := f.svc.CreateProject(f.ctx, Project{Name: "capacity"})
	if err != nil || project.ID == "" {
		t.Fatalf("create project: %v (%+v)", err, project)
	}
	tag := f.tag("ACGTACGT")
	if tag.Oligo != "ACGTACGT" {
		t.Fatalf("created tag = %+v", tag)
	}
}

func TestRegisterAliquotAssignsSentinelTags(t *testing.T) {
	f := newFixture(t)
	tube := f.receptacle("tube", domain.ReceptacleTube)
	sample := f.sample("s1")

	created := f.aliquot(Aliquot{ReceptacleID: tube.ID, SampleID: sample.ID})
	if created.TagID != domain.UnassignedTag || created.Tag2ID != domain.UnassignedTag {
		t.Fatalf("untagged aliquot tags = (%s, %s), want sentinel", created.TagID, created.Tag2ID)
	}
}

func TestRegisterAliquotRejectsSecondUntagged(t *testing.T) {
	f := newFixture(t)
	tube := f.receptacle("tube", domain.ReceptacleTube)
	sample := f.sample("s1")
	f.aliquot(Aliquot{ReceptacleID: tube.ID, SampleID: sample.ID})

	_, _, err := f.svc.RegisterAliquot(f.ctx, Aliquot{ReceptacleID: tube.ID, SampleID: sample.ID})
	var clash domain.TagClashError
	if !errors.As(err, &clash) {
		t.Fatalf("second untagged aliquot error = %v, want TagClashError", err)
	}
}

func TestUpdateAliquotQuality(t *testing.T) {
	f := newFixture(t)
	tube := f.receptacle("tube", domain.ReceptacleTube)
	sample := f.sample("s1")
	created := f.aliquot(Aliquot{ReceptacleID: tube.ID, SampleID: sample.ID})

	updated, _, err := f.svc.UpdateAliquotQuality(f.ctx, created.ID, true)
	if err != nil {
		t.Fatalf("update quality: %v", err)
	}
	if !updated.Suboptimal {
		t.Fatal("aliquot not marked suboptimal")
	}
	got, ok := f.svc.GetAliquot(created.ID)
	if !ok || !got.Suboptimal {
		t.Fatalf("persisted aliquot = %+v", got)
	}
}

func TestCreateRequestValidatesAsset(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.CreateRequest(f.ctx, Request{AssetID: "missing", SubmissionID: "sub-1", State: domain.RequestStatePending})
	var nf ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("request on unknown asset error = %v, want ErrNotFound", err)
	}
}

func TestNewServiceWrapsSuppliedStore(t *testing.T) {
	engine := NewRulesEngine()
	RegisterDefaultRules(engine)
	store := memory.NewStore(engine)
	svc := NewService(store)
	if svc.Store() != domain.PersistentStore(store) {
		t.Fatal("service does not expose the supplied store")
	}
}
