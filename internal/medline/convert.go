package medline

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"PubmedLoader/internal/domain"
)

// ErrMissingIdentifier is returned for records without a usable PMID.
var ErrMissingIdentifier = errors.New("record has no PMID")

const meshPrefix = "MESH:"

// Conversion is the result of converting one citation record.
type Conversion struct {
	Document     domain.Document
	MissingTitle bool
	Date         DateResult
}

// Convert maps a PubmedArticle or PubmedBookArticle record onto the canonical document.
func Convert(rec Record) (Conversion, error) {
	if rec.Variant != JournalArticle && rec.Variant != BookArticle {
		return Conversion{}, fmt.Errorf("cannot convert %s record", rec.Variant)
	}

	root := rec.Root
	pmid := identifier(root)
	if pmid == "" {
		return Conversion{}, ErrMissingIdentifier
	}

	title, found := recordTitle(root, rec.Variant)
	date := NormalizePubDate(pubDateParts(root))

	doc := domain.Document{
		ID:              pmid,
		Title:           title,
		Abstract:        abstract(root),
		Authors:         authors(root),
		PublicationDate: date.Ptr(),
		ArticleTypes:    texts(root.FindAll("PublicationTypeList/PublicationType")),
		DOI:             doi(root),
	}
	doc.JournalTitle, _ = root.FindText("Journal/Title")
	doc.JournalISOTitle, _ = root.FindText("Journal/ISOAbbreviation")
	doc.Compounds, doc.MeshTerms = concepts(root)

	return Conversion{Document: doc, MissingTitle: !found, Date: date}, nil
}

// Deletions lists one event per PMID named by a DeleteCitation record.
func Deletions(rec Record) ([]domain.DeletionEvent, error) {
	if rec.Variant != DeleteCitation {
		return nil, fmt.Errorf("cannot read deletions from %s record", rec.Variant)
	}

	var events []domain.DeletionEvent
	for _, n := range rec.Root.Descendants("PMID") {
		if id := strings.TrimSpace(n.Text); id != "" {
			events = append(events, domain.DeletionEvent{ID: id})
		}
	}
	if len(events) == 0 {
		return nil, ErrMissingIdentifier
	}
	return events, nil
}

func identifier(root *Node) string {
	for _, n := range root.Descendants("PMID") {
		if id := strings.TrimSpace(n.Text); id != "" {
			return id
		}
	}
	return ""
}

func recordTitle(root *Node, variant Variant) (string, bool) {
	paths := []string{"Article/ArticleTitle", "BookTitle"}
	if variant == BookArticle {
		paths = []string{"Book/BookTitle", "ArticleTitle"}
	}

	for _, path := range paths {
		if n := root.Find(path); n != nil {
			if title := n.InnerText(); strings.TrimSpace(title) != "" {
				return title, true
			}
		}
	}
	return "", false
}

func abstract(root *Node) string {
	var b strings.Builder
	for _, segment := range root.FindAll("Abstract/AbstractText") {
		if label := segment.Attr("Label"); label != "" {
			b.WriteString(label)
			b.WriteString(": ")
		}
		b.WriteString(segment.OwnText())
		b.WriteString("\n")
	}
	return strings.TrimRightFunc(b.String(), unicode.IsSpace)
}

func authors(root *Node) []string {
	out := []string{}
	for _, author := range root.Descendants("Author") {
		last := textOf(author.Child("LastName"))
		first := textOf(author.Child("ForeName"))
		if first == "" {
			first = textOf(author.Child("Initials"))
		}
		out = append(out, last+", "+first)
	}
	return out
}

func pubDateParts(root *Node) DateParts {
	parts := DateParts{Month: "Jan", Day: "01"}

	pubDate := root.Find("JournalIssue/PubDate")
	if pubDate == nil {
		pubDate = root.Find("Book/PubDate")
	}
	if pubDate == nil {
		return parts
	}

	if n := pubDate.Child("Year"); n != nil {
		parts.Year = n.Text
	}
	if n := pubDate.Child("Month"); n != nil {
		parts.Month = n.Text
	}
	if n := pubDate.Child("Day"); n != nil {
		parts.Day = n.Text
	}
	if n := pubDate.Child("MedlineDate"); n != nil {
		parts.MedlineDate = n.Text
	}
	return parts
}

// Only the record's own id lists count; ReferenceList entries carry the ids of cited papers.
var articleIDPaths = []string{
	"PubmedData/ArticleIdList/ArticleId",
	"PubmedBookData/ArticleIdList/ArticleId",
	"BookDocument/ArticleIdList/ArticleId",
}

func doi(root *Node) *string {
	for _, path := range articleIDPaths {
		for _, n := range root.FindAll(path) {
			if n.Attr("IdType") == "doi" {
				v := n.Text
				return &v
			}
		}
	}
	return nil
}

// concepts collects chemicals and MeSH descriptors; descriptors already listed as chemicals
// are left out of the MeSH list.
func concepts(root *Node) ([]domain.Concept, []domain.Concept) {
	compounds := []domain.Concept{}
	seen := map[string]struct{}{}
	for _, n := range root.FindAll("ChemicalList/Chemical/NameOfSubstance") {
		id := meshPrefix + n.Attr("UI")
		compounds = append(compounds, domain.Concept{ID: id, Name: n.Text})
		seen[id] = struct{}{}
	}

	mesh := []domain.Concept{}
	for _, n := range root.FindAll("MeshHeading/DescriptorName") {
		id := meshPrefix + n.Attr("UI")
		if _, dup := seen[id]; dup {
			continue
		}
		mesh = append(mesh, domain.Concept{ID: id, Name: n.Text})
	}
	return compounds, mesh
}

func texts(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Text)
	}
	return out
}

func textOf(n *Node) string {
	if n == nil {
		return ""
	}
	return n.Text
}
