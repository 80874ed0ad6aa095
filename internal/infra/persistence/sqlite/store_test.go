package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/radome/sequencescape/pkg/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"), domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seed(t *testing.T, store *Store) (domain.Receptacle, domain.Sample) {
	t.Helper()
	var receptacle domain.Receptacle
	var sample domain.Sample
	if _, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		var err error
		sample, err = tx.CreateSample(domain.Sample{Name: "sample"})
		if err != nil {
			return err
		}
		receptacle, err = tx.CreateReceptacle(domain.Receptacle{Name: "tube"})
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return receptacle, sample
}

func TestStatePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	store, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	receptacle, sample := seed(t, store)
	if _, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreateAliquot(domain.Aliquot{ReceptacleID: receptacle.ID, SampleID: sample.ID, TagID: "tag-1"})
		return err
	}); err != nil {
		t.Fatalf("create aliquot: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	if got := len(reopened.ListAliquots()); got != 1 {
		t.Fatalf("expected 1 aliquot after reopen, got %d", got)
	}
	if _, ok := reopened.GetReceptacle(receptacle.ID); !ok {
		t.Fatalf("receptacle lost across reopen")
	}
}

func TestTagIndexRowsMirrorAliquots(t *testing.T) {
	store := newTestStore(t)
	receptacle, sample := seed(t, store)
	if _, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		if _, err := tx.CreateAliquot(domain.Aliquot{ReceptacleID: receptacle.ID, SampleID: sample.ID, TagID: "tag-1"}); err != nil {
			return err
		}
		_, err := tx.CreateAliquot(domain.Aliquot{ReceptacleID: receptacle.ID, SampleID: sample.ID, TagID: "tag-2"})
		return err
	}); err != nil {
		t.Fatalf("create aliquots: %v", err)
	}

	var count int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM aliquot_tag_index`).Scan(&count); err != nil {
		t.Fatalf("count tag index: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 tag index rows, got %d", count)
	}

	var tag2 string
	if err := store.DB().QueryRow(`SELECT tag2_id FROM aliquot_tag_index LIMIT 1`).Scan(&tag2); err != nil {
		t.Fatalf("select tag2: %v", err)
	}
	if tag2 != domain.UnassignedTag {
		t.Fatalf("expected sentinel in index, got %q", tag2)
	}
}

func TestTranslateTagIndexError(t *testing.T) {
	err := translateTagIndexError(errUniqueStub{}, "tube-1", "tag-1", domain.UnassignedTag)
	clash, ok := err.(domain.TagClashError)
	if !ok {
		t.Fatalf("expected TagClashError, got %v", err)
	}
	if clash.ReceptacleID != "tube-1" || clash.TagID != "tag-1" {
		t.Fatalf("clash misattributed: %+v", clash)
	}
}

type errUniqueStub struct{}

func (errUniqueStub) Error() string {
	return "constraint failed: UNIQUE constraint failed: aliquot_tag_index.receptacle_id, aliquot_tag_index.tag_id, aliquot_tag_index.tag2_id"
}
