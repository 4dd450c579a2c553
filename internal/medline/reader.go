package medline

import (
	"encoding/xml"
	"fmt"
	"io"
)

// Variant is the tag of a top-level record element.
type Variant string

const (
	JournalArticle Variant = "PubmedArticle"
	BookArticle    Variant = "PubmedBookArticle"
	DeleteCitation Variant = "DeleteCitation"
	DeleteDocument Variant = "DeleteDocument"
	BookDocument   Variant = "BookDocument"
)

func (v Variant) isRecord() bool {
	switch v {
	case JournalArticle, BookArticle, DeleteCitation, DeleteDocument, BookDocument:
		return true
	}
	return false
}

// Record is one top-level element of an archive.
type Record struct {
	Variant Variant
	Root    *Node
}

// Reader streams records out of an uncompressed archive, holding at most one record in memory.
type Reader struct {
	dec *xml.Decoder
}

// NewReader wraps r with an XML tokenizer.
func NewReader(r io.Reader) *Reader {
	dec := xml.NewDecoder(r)
	dec.Entity = xml.HTMLEntity
	return &Reader{dec: dec}
}

// Next returns the next record or io.EOF once the archive is exhausted. Any other error means
// the archive cannot be read further.
func (r *Reader) Next() (Record, error) {
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return Record{}, err
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		variant := Variant(start.Name.Local)
		if !variant.isRecord() {
			continue
		}

		var root Node
		if err := r.dec.DecodeElement(&root, &start); err != nil {
			return Record{}, fmt.Errorf("decode %s: %w", start.Name.Local, err)
		}
		return Record{Variant: variant, Root: &root}, nil
	}
}
