package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"PubmedLoader/internal/domain"
	"PubmedLoader/internal/ports"
)

// DefaultIndex receives documents when no index is configured.
const DefaultIndex = "pubmed"

const indexMapping = `{
  "mappings": {
    "properties": {
      "id": {"type": "keyword"},
      "title": {"type": "text"},
      "abstract": {"type": "text"},
      "authors": {"type": "text"},
      "publication_date": {"type": "date", "format": "yyyy-MM-dd||yyyyMMMdd||yyyy||strict_date_optional_time", "ignore_malformed": true},
      "journal_title": {"type": "text"},
      "journal_iso_title": {"type": "keyword"},
      "article_types": {"type": "keyword"},
      "doi": {"type": "keyword"},
      "compounds": {"properties": {"id": {"type": "keyword"}, "name": {"type": "text"}}},
      "mesh_terms": {"properties": {"id": {"type": "keyword"}, "name": {"type": "text"}}}
    }
  }
}`

// OpenSearchSink indexes documents with the pmid as document id.
type OpenSearchSink struct {
	client *opensearch.Client
	index  string
}

var _ ports.Sink = (*OpenSearchSink)(nil)

// NewOpenSearchClient builds a client for a single node address.
func NewOpenSearchClient(address string) (*opensearch.Client, error) {
	client, err := opensearch.NewClient(opensearch.Config{Addresses: []string{address}})
	if err != nil {
		return nil, fmt.Errorf("create opensearch client: %w", err)
	}
	return client, nil
}

func NewOpenSearchSink(client *opensearch.Client, index string) *OpenSearchSink {
	if index == "" {
		index = DefaultIndex
	}
	return &OpenSearchSink{client: client, index: index}
}

// EnsureSchema creates the index with its mapping when it does not exist yet.
func (s *OpenSearchSink) EnsureSchema(ctx context.Context) error {
	exists, err := opensearchapi.IndicesExistsRequest{Index: []string{s.index}}.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("check index %s: %w", s.index, err)
	}
	exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}

	res, err := opensearchapi.IndicesCreateRequest{
		Index: s.index,
		Body:  strings.NewReader(indexMapping),
	}.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("create index %s: %w", s.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error creating index %s: %s", s.index, res.String())
	}
	return nil
}

// Upsert indexes doc under id, replacing any earlier version.
func (s *OpenSearchSink) Upsert(ctx context.Context, id string, doc domain.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", id, err)
	}

	res, err := opensearchapi.IndexRequest{
		Index:      s.index,
		DocumentID: id,
		Body:       bytes.NewReader(body),
	}.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("index document %s: %w", id, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing document %s: %s", id, res.String())
	}
	return nil
}

// Delete removes id from the index. A missing document is not an error.
func (s *OpenSearchSink) Delete(ctx context.Context, id string) error {
	res, err := opensearchapi.DeleteRequest{
		Index:      s.index,
		DocumentID: id,
	}.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return fmt.Errorf("error deleting document %s: %s", id, res.String())
	}
	return nil
}
