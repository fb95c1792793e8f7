package services

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/Vaibhav-Ningaraju/IPO-Radar/models"
	"github.com/shopspring/decimal"
)

// Scraped field labels read by the live listings pipeline
const (
	FieldListingDate = "listing date"
	FieldListedOn    = "listed on"
	FieldListingAt   = "listing at"
	FieldIssuePrice  = "issue price"
	FieldPriceBand   = "price band"
)

var (
	currencyPattern  = regexp.MustCompile(`(?i)(₹|\$|€|£|\brs\.?|\binr\b)`)
	numberPattern    = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	priceBandPattern = regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?)\s*(?:-|–|~|\bto\b)\s*(\d[\d,]*(?:\.\d+)?)`)
	spacePattern     = regexp.MustCompile(`\s+`)
	ordinalPattern   = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
)

// Date layouts seen across the scraped sources
var supportedDateFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"Jan 2, 2006",
	"January 2, 2006",
	"Mon, Jan 2, 2006",
	"Monday, January 2, 2006",
	"Monday, Jan 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"02-01-2006",
	"2-1-2006",
	"02/01/2006",
	"2/1/2006",
	"2-Jan-06",
	"2-Jan-2006",
}

var notAvailableValues = map[string]bool{
	"": true, "-": true, "--": true, "tba": true, "tbd": true, "na": true, "n/a": true,
	"nil": true, "null": true, "to be announced": true, "to be decided": true,
	"not available": true, "not applicable": true, "not disclosed": true,
	"awaited": true, "pending": true, "coming soon": true, "yet to be announced": true,
}

// FieldExtractor reads typed values out of a record's scraped field bag.
// When a label is missing from Fields it falls back to label/value table
// rows inside the record's raw HTML fragments.
type FieldExtractor struct{}

// NewFieldExtractor creates a field extractor
func NewFieldExtractor() *FieldExtractor {
	return &FieldExtractor{}
}

// IsNotAvailable detects placeholders like "TBA" or "N/A"
func (e *FieldExtractor) IsNotAvailable(text string) bool {
	return notAvailableValues[strings.ToLower(strings.TrimSpace(text))]
}

// PriceBand returns the band bounds in "₹95 to ₹100", or the single price in "₹1,234.50"
func (e *FieldExtractor) PriceBand(text string) []decimal.Decimal {
	if e.IsNotAvailable(text) {
		return nil
	}
	cleaned := currencyPattern.ReplaceAllString(text, " ")

	if match := priceBandPattern.FindStringSubmatch(cleaned); match != nil {
		low, lowErr := parseNumber(match[1])
		high, highErr := parseNumber(match[2])
		if lowErr == nil && highErr == nil {
			return []decimal.Decimal{low, high}
		}
	}

	if match := numberPattern.FindString(cleaned); match != "" {
		if value, err := parseNumber(match); err == nil {
			return []decimal.Decimal{value}
		}
	}
	return nil
}

// ParsePrice returns the upper bound of a price band, or the single price
func (e *FieldExtractor) ParsePrice(text string) (decimal.Decimal, bool) {
	band := e.PriceBand(text)
	if len(band) == 0 {
		return decimal.Zero, false
	}
	return band[len(band)-1], true
}

func parseNumber(text string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(text, ",", ""))
}

// ParseDate tries every supported layout after normalizing whitespace and ordinals
func (e *FieldExtractor) ParseDate(text string) (time.Time, bool) {
	if e.IsNotAvailable(text) {
		return time.Time{}, false
	}
	normalized := spacePattern.ReplaceAllString(strings.TrimSpace(text), " ")
	normalized = ordinalPattern.ReplaceAllString(normalized, "$1")

	for _, layout := range supportedDateFormats {
		if parsed, err := time.Parse(layout, normalized); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// Value returns the text for label from Fields, or from raw HTML table rows
func (e *FieldExtractor) Value(record *models.IPORecord, label string) string {
	if value := record.Fields.GetString(label); value != "" {
		return value
	}
	return e.valueFromRawContent(record.RawContent, label)
}

func (e *FieldExtractor) valueFromRawContent(raw models.FieldMap, label string) string {
	target := normalizeLabel(label)

	for _, key := range raw.Keys() {
		fragment := raw.GetString(key)
		if !strings.Contains(fragment, "<") {
			continue
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
		if err != nil {
			continue
		}

		var found string
		doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
			cells := row.Find("td, th")
			if cells.Length() < 2 {
				return true
			}
			if normalizeLabel(cells.First().Text()) != target {
				return true
			}
			found = spacePattern.ReplaceAllString(strings.TrimSpace(cells.Eq(1).Text()), " ")
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func normalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	label = strings.TrimRight(label, ": ")
	return spacePattern.ReplaceAllString(label, " ")
}

// ListingDate returns the first parsable "listing date" or "listed on" value
func (e *FieldExtractor) ListingDate(record *models.IPORecord) (time.Time, bool) {
	for _, label := range []string{FieldListingDate, FieldListedOn} {
		if date, ok := e.ParseDate(e.Value(record, label)); ok {
			return date, true
		}
	}
	return time.Time{}, false
}

// ListingAt returns the scraped listing-day price
func (e *FieldExtractor) ListingAt(record *models.IPORecord) (decimal.Decimal, bool) {
	price, ok := e.ParsePrice(e.Value(record, FieldListingAt))
	if !ok || !price.IsPositive() {
		return decimal.Zero, false
	}
	return price, true
}

// IssuePrice returns the issue price, using the upper band when only a range is known
func (e *FieldExtractor) IssuePrice(record *models.IPORecord) (decimal.Decimal, bool) {
	for _, label := range []string{FieldIssuePrice, FieldPriceBand} {
		if price, ok := e.ParsePrice(e.Value(record, label)); ok && price.IsPositive() {
			return price, true
		}
	}
	return decimal.Zero, false
}

// IsListed reports whether a record has started trading by now: its listing
// date has passed, or a listing price has been scraped
func (e *FieldExtractor) IsListed(record *models.IPORecord, now time.Time) bool {
	if date, ok := e.ListingDate(record); ok && !date.After(now) {
		return true
	}
	_, listed := e.ListingAt(record)
	return listed
}
