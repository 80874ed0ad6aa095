// Package postgres provides a Postgres-backed persistent store that mirrors
// the in-memory semantics while enforcing the aliquot tag uniqueness index
// relationally.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/radome/sequencescape/internal/infra/persistence/memory"
	"github.com/radome/sequencescape/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	// Default DSN keeps parity with OpenPersistentStore defaults while allowing overrides via env.
	defaultDSN = "postgres://localhost/sequencescape?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists state to Postgres while reusing the in-memory implementation
// for transactions.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back
// to defaultDSN). It applies the schema DDL, ensures the snapshot table
// exists, and hydrates the in-memory store from any existing snapshot.
func NewStore(dsn string, engine *domain.RulesEngine) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := applySchema(ctx, db); err != nil {
		return nil, err
	}
	snapshot, err := loadSnapshot(ctx, db)
	if err != nil {
		return nil, err
	}
	mem := memory.NewStore(engine)
	mem.ImportState(snapshot)
	return &Store{Store: mem, db: db}, nil
}

// RunInTransaction applies fn within a transaction, then snapshots to
// Postgres if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if err := s.persist(ctx); err != nil {
		return res, err
	}
	return res, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS aliquot_tag_index (
		aliquot_id TEXT PRIMARY KEY,
		receptacle_id TEXT NOT NULL,
		tag_id TEXT NOT NULL,
		tag2_id TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS aliquot_tags_and_tag2s_are_unique_within_receptacle
		ON aliquot_tag_index (receptacle_id, tag_id, tag2_id)`,
}

func applySchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

var postgresBuckets = []string{
	"samples",
	"studies",
	"projects",
	"tags",
	"receptacles",
	"aliquots",
	"requests",
	"transfer_requests",
}

func loadSnapshot(ctx context.Context, db *sql.DB) (memory.Snapshot, error) {
	rows, err := db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return memory.Snapshot{}, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snapshot memory.Snapshot
	targets := map[string]any{
		"samples":           &snapshot.Samples,
		"studies":           &snapshot.Studies,
		"projects":          &snapshot.Projects,
		"tags":              &snapshot.Tags,
		"receptacles":       &snapshot.Receptacles,
		"aliquots":          &snapshot.Aliquots,
		"requests":          &snapshot.Requests,
		"transfer_requests": &snapshot.TransferRequests,
	}

	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return memory.Snapshot{}, fmt.Errorf("scan state: %w", err)
		}
		if len(payload) == 0 {
			continue
		}
		if target, ok := targets[bucket]; ok {
			if err := json.Unmarshal(payload, target); err != nil {
				return memory.Snapshot{}, fmt.Errorf("decode %s: %w", bucket, err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return memory.Snapshot{}, fmt.Errorf("iterate state: %w", err)
	}
	return snapshot, nil
}

func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range postgresBuckets {
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
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`, bucket, data); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM aliquot_tag_index`); err != nil {
		return fmt.Errorf("reset tag index: %w", err)
	}
	for id, aliquot := range snapshot.Aliquots {
		tag, tag2 := aliquot.TagPair()
		if _, err := tx.ExecContext(ctx, `INSERT INTO aliquot_tag_index(aliquot_id,receptacle_id,tag_id,tag2_id) VALUES($1,$2,$3,$4)`,
			id, aliquot.ReceptacleID, tag, tag2); err != nil {
			return translateTagIndexError(err, aliquot.ReceptacleID, tag, tag2)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// translateTagIndexError maps a unique_violation (23505) on the aliquot tag
// index into the domain error.
func translateTagIndexError(err error, receptacleID, tag, tag2 string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" &&
		strings.Contains(pgErr.ConstraintName, "aliquot_tags_and_tag2s_are_unique_within_receptacle") {
		return domain.TagClashError{ReceptacleID: receptacleID, TagID: tag, Tag2ID: tag2}
	}
	return fmt.Errorf("insert tag index: %w", err)
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
