// Package sqlite persists the in-memory store state to an embedded SQLite
// database, snapshotting the full state after every successful transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/radome/sequencescape/internal/infra/persistence/memory"
	"github.com/radome/sequencescape/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)

type (
	// Transaction aliases domain.Transaction.
	Transaction = domain.Transaction
	// Result aliases domain.Result.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine.
	RulesEngine = domain.RulesEngine
	// Snapshot aliases the memory store snapshot persisted to disk.
	Snapshot = memory.Snapshot
)

// Store persists the in-memory state to SQLite as JSON blobs, one bucket per
// entity collection. It additionally maintains a relational index over
// aliquot tag pairs so the uniqueness constraint holds at the storage layer
// even when snapshots are manipulated out of band.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore constructs a snapshotting SQLite-backed persistent store.
func NewStore(path string, engine *RulesEngine) (*Store, error) {
	if path == "" {
		path = "sequencescape.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS aliquot_tag_index (
		aliquot_id TEXT PRIMARY KEY,
		receptacle_id TEXT NOT NULL,
		tag_id TEXT NOT NULL,
		tag2_id TEXT NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create aliquot tag index table: %w", err)
	}
	if _, err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS aliquot_tags_and_tag2s_are_unique_within_receptacle
		ON aliquot_tag_index (receptacle_id, tag_id, tag2_id)`); err != nil {
		return nil, fmt.Errorf("create tag uniqueness index: %w", err)
	}
	ms := memory.NewStore(engine)
	s := &Store{Store: ms, db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

var buckets = []string{"samples", "studies", "projects", "tags", "receptacles", "aliquots", "requests", "transfer_requests"}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	type raw struct {
		bucket  string
		payload []byte
	}
	var raws []raw
	for rows.Next() {
		var r raw
		if err := rows.Scan(&r.bucket, &r.payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		raws = append(raws, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if len(raws) == 0 {
		return nil
	}
	snapshot := Snapshot{}
	for _, r := range raws {
		var target any
		switch r.bucket {
		case "samples":
			target = &snapshot.Samples
		case "studies":
			target = &snapshot.Studies
		case "projects":
			target = &snapshot.Projects
		case "tags":
			target = &snapshot.Tags
		case "receptacles":
			target = &snapshot.Receptacles
		case "aliquots":
			target = &snapshot.Aliquots
		case "requests":
			target = &snapshot.Requests
		case "transfer_requests":
			target = &snapshot.TransferRequests
		default:
			continue
		}
		if err := json.Unmarshal(r.payload, target); err != nil {
			return fmt.Errorf("decode %s: %w", r.bucket, err)
		}
	}
	s.ImportState(snapshot)
	return nil
}

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range buckets {
		var data []byte
		switch bucket {
		case "samples":
			data, err = json.Marshal(snapshot.Samples)
		case "studies":
			data, err = json.Marshal(snapshot.Studies)
		case "projects":
			data, err = json.Marshal(snapshot.Projects)
		case "tags":
			data, err = json.Marshal(snapshot.Tags)
		case "receptacles":
			data, err = json.Marshal(snapshot.Receptacles)
		case "aliquots":
			data, err = json.Marshal(snapshot.Aliquots)
		case "requests":
			data, err = json.Marshal(snapshot.Requests)
		case "transfer_requests":
			data, err = json.Marshal(snapshot.TransferRequests)
		}
		if err != nil {
			retErr = err
			return retErr
		}
		if _, err = tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", bucket, err)
			return retErr
		}
	}
	if _, err = tx.Exec(`DELETE FROM aliquot_tag_index`); err != nil {
		retErr = fmt.Errorf("reset tag index: %w", err)
		return retErr
	}
	for id, aliquot := range snapshot.Aliquots {
		tag, tag2 := aliquot.TagPair()
		if _, err = tx.Exec(`INSERT INTO aliquot_tag_index(aliquot_id,receptacle_id,tag_id,tag2_id) VALUES(?,?,?,?)`,
			id, aliquot.ReceptacleID, tag, tag2); err != nil {
			retErr = translateTagIndexError(err, aliquot.ReceptacleID, tag, tag2)
			return retErr
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	return nil
}

// translateTagIndexError converts a uniqueness violation on the aliquot tag
// index into the domain error; anything else passes through.
func translateTagIndexError(err error, receptacleID, tag, tag2 string) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "aliquot_tags_and_tag2s_are_unique_within_receptacle") ||
		strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return domain.TagClashError{ReceptacleID: receptacleID, TagID: tag, Tag2ID: tag2}
	}
	return fmt.Errorf("insert tag index: %w", err)
}

// RunInTransaction applies fn within a transaction, then snapshots state to
// SQLite if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(); pErr != nil {
		return res, pErr
	}
	return res, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
