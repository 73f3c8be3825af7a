// Package sqlitestore provides durable graph.Storage on SQLite.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Terms are stored in N-Triples form. Every Match orders by
// subject, predicate, object COLLATE BINARY so results are deterministic.
package sqlitestore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/triplegate/internal/graph"
	"github.com/roach88/triplegate/internal/rdf"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on triples.object for reverse lookups
const currentSchemaVersion = 1

// Store is a graph.Storage backed by a SQLite database file.
type Store struct {
	db *sql.DB
}

var _ graph.Storage = (*Store)(nil)

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Match implements graph.Storage. Nil and variable positions match anything.
func (s *Store) Match(ctx context.Context, subj, pred, obj rdf.Term) ([]rdf.Triple, error) {
	var conds []string
	var params []any
	for i, t := range [3]rdf.Term{subj, pred, obj} {
		if t == nil {
			continue
		}
		if _, isVar := t.(rdf.Variable); isVar {
			continue
		}
		conds = append(conds, columns[i]+" = ?")
		params = append(params, t.String())
	}

	query := "SELECT subject, predicate, object FROM triples"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY subject COLLATE BINARY, predicate COLLATE BINARY, object COLLATE BINARY"

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query triples: %w", err)
	}
	defer rows.Close()

	out := []rdf.Triple{}
	for rows.Next() {
		t, err := scanTriple(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate triples: %w", err)
	}
	return out, nil
}

var columns = [3]string{"subject", "predicate", "object"}

// Apply implements graph.Storage. Deletions and insertions commit in one
// transaction.
func (s *Store) Apply(ctx context.Context, del, ins []rdf.Triple) (deleted, inserted int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if deleted, err = execEach(ctx, tx, `
		DELETE FROM triples WHERE subject = ? AND predicate = ? AND object = ?
	`, del); err != nil {
		return 0, 0, fmt.Errorf("delete triples: %w", err)
	}
	if inserted, err = execEach(ctx, tx, `
		INSERT OR IGNORE INTO triples (subject, predicate, object) VALUES (?, ?, ?)
	`, ins); err != nil {
		return 0, 0, fmt.Errorf("insert triples: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit transaction: %w", err)
	}
	return deleted, inserted, nil
}

// execEach runs stmt once per triple and sums the affected rows.
func execEach(ctx context.Context, tx *sql.Tx, stmt string, ts []rdf.Triple) (int, error) {
	if len(ts) == 0 {
		return 0, nil
	}
	prepared, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return 0, err
	}
	defer prepared.Close()

	n := 0
	for _, t := range ts {
		res, err := prepared.ExecContext(ctx, t.S.String(), t.P.String(), t.O.String())
		if err != nil {
			return 0, fmt.Errorf("%s: %w", t, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		n += int(affected)
	}
	return n, nil
}

// All implements graph.Storage.
func (s *Store) All(ctx context.Context) ([]rdf.Triple, error) {
	return s.Match(ctx, nil, nil, nil)
}

// Clear implements graph.Storage.
func (s *Store) Clear(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM triples")
	if err != nil {
		return 0, fmt.Errorf("clear triples: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear triples: %w", err)
	}
	return int(n), nil
}

func scanTriple(rows *sql.Rows) (rdf.Triple, error) {
	var cols [3]string
	if err := rows.Scan(&cols[0], &cols[1], &cols[2]); err != nil {
		return rdf.Triple{}, fmt.Errorf("scan triple: %w", err)
	}
	var terms [3]rdf.Term
	for i, c := range cols {
		t, err := rdf.ParseTerm(c)
		if err != nil {
			return rdf.Triple{}, fmt.Errorf("decode %s %q: %w", columns[i], c, err)
		}
		terms[i] = t
	}
	return rdf.T(terms[0], terms[1], terms[2]), nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the object index used by referenced-by checks and
// backward path steps.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_triples_object
		ON triples(object)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
