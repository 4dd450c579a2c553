package medline

import (
	"regexp"
	"strconv"
	"time"
)

// SentinelDate replaces publication dates that cannot be parsed.
const SentinelDate = "1900-01-01"

var (
	yearExpr  = regexp.MustCompile(`\d{4}`)
	alphaExpr = regexp.MustCompile(`^[a-zA-Z]`)
)

// DateParts are the raw PubDate sub-fields. Month and Day carry their defaults ("Jan", "01")
// when the element is absent.
type DateParts struct {
	Year        string
	Month       string
	Day         string
	MedlineDate string
}

// DateKind tags the outcome of NormalizePubDate.
type DateKind int

const (
	DateMissing DateKind = iota
	DateParsed
	DateFallback
)

// DateResult is the normalized publication date.
type DateResult struct {
	Kind   DateKind
	Value  string
	Reason string
}

// Ptr returns nil for a missing date and a pointer to the value otherwise.
func (r DateResult) Ptr() *string {
	if r.Kind == DateMissing {
		return nil
	}
	v := r.Value
	return &v
}

// NormalizePubDate builds a YYYY-MM-DD string from the PubDate parts. A MedlineDate overrides the
// structured year with its first four digit run, clamped to 1900; the clamp is not applied to a
// structured year on its own. Numeric months are concatenated without validation.
func NormalizePubDate(p DateParts) DateResult {
	year := p.Year
	if p.MedlineDate != "" {
		if match := yearExpr.FindString(p.MedlineDate); match != "" {
			year = match
		}
		if n, err := strconv.Atoi(year); err == nil && n < 1900 {
			year = "1900"
		}
	}

	if year == "" {
		return DateResult{Kind: DateMissing}
	}

	raw := year + "-" + p.Month + "-" + p.Day
	if !alphaExpr.MatchString(p.Month) {
		return DateResult{Kind: DateParsed, Value: raw}
	}

	parsed, err := time.Parse("2006-Jan-2", raw)
	if err != nil {
		return DateResult{Kind: DateFallback, Value: SentinelDate, Reason: err.Error()}
	}
	return DateResult{Kind: DateParsed, Value: parsed.Format("2006-01-02")}
}
