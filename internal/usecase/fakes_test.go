package usecase

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"PubmedLoader/internal/domain"
)

func article(pmid, title string) string {
	return fmt.Sprintf(`<PubmedArticle><MedlineCitation><PMID Version="1">%s</PMID><Article>
<Journal><JournalIssue><PubDate><Year>2001</Year><Month>Jan</Month><Day>15</Day></PubDate></JournalIssue><Title>J</Title></Journal>
<ArticleTitle>%s</ArticleTitle></Article></MedlineCitation></PubmedArticle>`, pmid, title)
}

func bookArticle(pmid, title string) string {
	return fmt.Sprintf(`<PubmedBookArticle><BookDocument><PMID Version="1">%s</PMID><Book><BookTitle>%s</BookTitle></Book></BookDocument></PubmedBookArticle>`, pmid, title)
}

func deleteCitation(pmids ...string) string {
	var b bytes.Buffer
	b.WriteString("<DeleteCitation>")
	for _, id := range pmids {
		fmt.Fprintf(&b, `<PMID Version="1">%s</PMID>`, id)
	}
	b.WriteString("</DeleteCitation>")
	return b.String()
}

func archive(t *testing.T, records ...string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := io.WriteString(gz, `<?xml version="1.0" encoding="UTF-8"?><PubmedArticleSet>`)
	require.NoError(t, err)
	for _, r := range records {
		_, err = io.WriteString(gz, r)
		require.NoError(t, err)
	}
	_, err = io.WriteString(gz, `</PubmedArticleSet>`)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

type memorySource struct {
	lists   map[domain.FileClass][]string
	files   map[string][]byte
	listErr error
}

func newMemorySource() *memorySource {
	return &memorySource{lists: map[domain.FileClass][]string{}, files: map[string][]byte{}}
}

func (s *memorySource) add(class domain.FileClass, name string, body []byte) {
	s.lists[class] = append(s.lists[class], name)
	s.files[name] = body
}

func (s *memorySource) List(_ context.Context, class domain.FileClass) ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]string(nil), s.lists[class]...), nil
}

func (s *memorySource) Fetch(_ context.Context, path string) (io.ReadCloser, error) {
	body, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: not found", path)
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

type memorySink struct {
	mu      sync.Mutex
	docs    map[string]domain.Document
	upserts int
	deletes int
	failID  string
}

func newMemorySink() *memorySink {
	return &memorySink{docs: map[string]domain.Document{}}
}

func (s *memorySink) Upsert(_ context.Context, id string, doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == s.failID {
		return errors.New("sink unavailable")
	}
	s.upserts++
	s.docs[id] = doc
	return nil
}

func (s *memorySink) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	delete(s.docs, id)
	return nil
}

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Upsert(ctx context.Context, id string, doc domain.Document) error {
	args := m.Called(ctx, id, doc)
	return args.Error(0)
}

func (m *mockSink) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type memoryCheckpoints struct {
	mu      sync.Mutex
	entries []domain.CheckpointEntry
	err     error
}

func (c *memoryCheckpoints) Append(entry domain.CheckpointEntry, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.entries = append(c.entries, entry)
	return nil
}

func (c *memoryCheckpoints) filenames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.Filename)
	}
	return out
}
