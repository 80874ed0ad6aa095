package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/radome/sequencescape/pkg/domain"
)

func TestNewStoreAppliesSchemaAndLoadsSnapshot(t *testing.T) {
	db, conn := newStubDB()
	seedSnapshotRow(t, conn, "samples", map[string]domain.Sample{
		"sample-1": {Base: domain.Base{ID: "sample-1"}, Name: "seeded"},
	})

	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore("", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if got := len(store.ListSamples()); got != 1 {
		t.Fatalf("expected 1 sample loaded from snapshot, got %d", got)
	}
	var sawDDL bool
	for _, stmt := range conn.execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE") {
			sawDDL = true
			break
		}
	}
	if !sawDDL {
		t.Fatalf("expected schema DDL to be applied, got execs: %v", conn.execs)
	}
}

func TestRunInTransactionPersistsBucketsAndTagIndex(t *testing.T) {
	db, conn := newStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore("", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		sample, err := tx.CreateSample(domain.Sample{Name: "sample"})
		if err != nil {
			return err
		}
		receptacle, err := tx.CreateReceptacle(domain.Receptacle{Name: "tube"})
		if err != nil {
			return err
		}
		_, err = tx.CreateAliquot(domain.Aliquot{ReceptacleID: receptacle.ID, SampleID: sample.ID, TagID: "tag-1"})
		return err
	}); err != nil {
		t.Fatalf("RunInTransaction: %v", err)
	}

	if rows := conn.tables["state"]; len(rows) < len(postgresBuckets) {
		t.Fatalf("expected all buckets upserted, got %d rows", len(rows))
	}
	tagRows := conn.tables["aliquot_tag_index"]
	if len(tagRows) != 1 {
		t.Fatalf("expected 1 tag index row, got %d", len(tagRows))
	}
	if got := tagRows[0]["tag2_id"]; got != domain.UnassignedTag {
		t.Fatalf("expected sentinel tag2 in index, got %v", got)
	}
}

func TestNewStoreFailsWhenOpenFails(t *testing.T) {
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) {
		return nil, errors.New("boom")
	})
	defer restore()
	if _, err := NewStore("", domain.NewRulesEngine()); err == nil {
		t.Fatalf("expected open failure to propagate")
	}
}

func TestTranslateTagIndexError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "aliquot_tags_and_tag2s_are_unique_within_receptacle"}
	err := translateTagIndexError(pgErr, "tube-1", "tag-1", domain.UnassignedTag)
	var clash domain.TagClashError
	if !errors.As(err, &clash) {
		t.Fatalf("expected TagClashError, got %v", err)
	}
	if clash.ReceptacleID != "tube-1" {
		t.Fatalf("clash misattributed: %+v", clash)
	}

	other := translateTagIndexError(errors.New("broken pipe"), "tube-1", "tag-1", domain.UnassignedTag)
	if errors.As(other, &clash) {
		t.Fatalf("unrelated errors must pass through, got %v", other)
	}
}

func seedSnapshotRow[T any](t *testing.T, conn *stubConn, bucket string, payload map[string]T) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal %s: %v", bucket, err)
	}
	conn.tables["state"] = append(conn.tables["state"], map[string]any{
		"bucket":  bucket,
		"payload": data,
	})
}

// Minimal database/sql/driver stub recording execs and emulating the state
// and aliquot_tag_index tables.

type stubDriver struct{ conn *stubConn }

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

type stubConn struct {
	tables map[string][]map[string]any
	execs  []string
}

func newStubDB() (*sql.DB, *stubConn) {
	conn := &stubConn{tables: make(map[string][]map[string]any)}
	name := fmt.Sprintf("stubpg%d", time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }
func (c *stubConn) Close() error                        { return nil }
func (c *stubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *stubConn) Ping(_ context.Context) error { return nil }

func (c *stubConn) BeginTx(_ context.Context, _ driver.TxOptions) (driver.Tx, error) {
	return stubTx{}, nil
}

func (c *stubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.execs = append(c.execs, query)
	trimmed := strings.ToUpper(strings.TrimSpace(query))
	switch {
	case strings.HasPrefix(trimmed, "DELETE FROM"):
		table := tableAfter(query, "FROM ")
		c.tables[table] = nil
		return driver.RowsAffected(0), nil
	case strings.HasPrefix(trimmed, "INSERT INTO"):
		table, cols, err := parseInsert(query)
		if err != nil {
			return nil, err
		}
		if len(cols) != len(args) {
			return nil, fmt.Errorf("column/arg mismatch for %s", table)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = args[i].Value
		}
		if table == "state" {
			// emulate ON CONFLICT(bucket) upsert
			for i, existing := range c.tables[table] {
				if existing["bucket"] == row["bucket"] {
					c.tables[table][i] = row
					return driver.RowsAffected(1), nil
				}
			}
		}
		c.tables[table] = append(c.tables[table], row)
		return driver.RowsAffected(1), nil
	default:
		return driver.RowsAffected(0), nil
	}
}

func (c *stubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	table := tableAfter(query, "FROM ")
	cols := []string{"bucket", "payload"}
	rows := make([][]driver.Value, 0, len(c.tables[table]))
	for _, row := range c.tables[table] {
		rows = append(rows, []driver.Value{row["bucket"], row["payload"]})
	}
	return &stubRows{cols: cols, rows: rows}, nil
}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

func tableAfter(query, keyword string) string {
	idx := strings.Index(strings.ToUpper(query), keyword)
	if idx == -1 {
		return ""
	}
	rest := strings.TrimSpace(query[idx+len(keyword):])
	end := strings.IndexAny(rest, " (\n\t")
	if end == -1 {
		return rest
	}
	return rest[:end]
}

func parseInsert(query string) (string, []string, error) {
	up := strings.ToUpper(query)
	intoIdx := strings.Index(up, "INTO ")
	if intoIdx == -1 {
		return "", nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	rest := strings.TrimSpace(query[intoIdx+len("INTO "):])
	open := strings.Index(rest, "(")
	closeIdx := strings.Index(rest, ")")
	if open == -1 || closeIdx == -1 || closeIdx < open {
		return "", nil, fmt.Errorf("cannot parse insert columns: %s", query)
	}
	table := strings.TrimSpace(rest[:open])
	cols := strings.Split(rest[open+1:closeIdx], ",")
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}
	return table, cols, nil
}
