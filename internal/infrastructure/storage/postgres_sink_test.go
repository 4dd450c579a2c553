package storage

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PubmedLoader/internal/domain"
)

type jsonDocument struct {
	id string
}

func (m jsonDocument) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	var doc domain.Document
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return false
	}
	return doc.ID == m.id
}

func TestPostgresSinkUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "pubmed_documents" (pmid,document,updated_at) VALUES ($1,$2,NOW()) ON CONFLICT (pmid) DO UPDATE`)).
		WithArgs("123", jsonDocument{id: "123"}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	sink := NewPostgresSink(db, "")
	err = sink.Upsert(context.Background(), "123", domain.Document{ID: "123", Title: "T", Authors: []string{}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSinkUpsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO "articles"`).WillReturnError(errors.New("connection reset"))

	err = NewPostgresSink(db, "articles").Upsert(context.Background(), "1", domain.Document{ID: "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert document 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSinkDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "pubmed_documents" WHERE pmid = $1`)).
		WithArgs("42").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewPostgresSink(db, "").Delete(context.Background(), "42"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSinkEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "pubmed_documents"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewPostgresSink(db, "").EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
