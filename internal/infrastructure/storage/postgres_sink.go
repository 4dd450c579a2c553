package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"PubmedLoader/internal/domain"
	"PubmedLoader/internal/ports"
)

// DefaultTable receives documents when no table is configured.
const DefaultTable = "pubmed_documents"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresSink stores each document as JSONB keyed by pmid.
type PostgresSink struct {
	db    *sql.DB
	table string
}

var _ ports.Sink = (*PostgresSink)(nil)

// OpenPostgres connects with the lib/pq driver and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewPostgresSink wires a sql.DB implementation.
func NewPostgresSink(db *sql.DB, table string) *PostgresSink {
	if table == "" {
		table = DefaultTable
	}
	return &PostgresSink{db: db, table: pq.QuoteIdentifier(table)}
}

// EnsureSchema creates the document table when it is missing.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS ` + s.table + ` (
              pmid TEXT PRIMARY KEY,
              document JSONB NOT NULL,
              updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW())`

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Upsert replaces the stored document for id.
func (s *PostgresSink) Upsert(ctx context.Context, id string, doc domain.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", id, err)
	}

	// jsonb has to be sent as text; lib/pq encodes []byte as bytea.
	query, args, err := psql.Insert(s.table).
		Columns("pmid", "document", "updated_at").
		Values(id, string(body), sq.Expr("NOW()")).
		Suffix("ON CONFLICT (pmid) DO UPDATE SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert document %s: %w", id, err)
	}
	return nil
}

// Delete removes the document for id; unknown ids are ignored.
func (s *PostgresSink) Delete(ctx context.Context, id string) error {
	query, args, err := psql.Delete(s.table).Where(sq.Eq{"pmid": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}
