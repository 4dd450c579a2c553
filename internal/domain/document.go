package domain

// Document is the canonical citation record persisted to the sink.
type Document struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Abstract        string    `json:"abstract"`
	Authors         []string  `json:"authors"`
	PublicationDate *string   `json:"publication_date"`
	JournalTitle    string    `json:"journal_title"`
	JournalISOTitle string    `json:"journal_iso_title"`
	ArticleTypes    []string  `json:"article_types"`
	DOI             *string   `json:"doi"`
	Compounds       []Concept `json:"compounds"`
	MeshTerms       []Concept `json:"mesh_terms"`
}

// Concept is a controlled-vocabulary entry such as a MeSH descriptor or a chemical substance.
type Concept struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DeletionEvent asks the sink to drop a previously stored document.
type DeletionEvent struct {
	ID string
}
