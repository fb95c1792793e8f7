package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// IPOStatus is the lifecycle state reported by the scraping sources
type IPOStatus string

const (
	StatusUnknown  IPOStatus = "unknown"
	StatusUpcoming IPOStatus = "upcoming"
	StatusOpen     IPOStatus = "open"
	StatusClosed   IPOStatus = "closed"
)

// Priority orders statuses by relevance: open > upcoming > closed > unknown.
// Empty or unrecognised values rank below unknown.
func (s IPOStatus) Priority() int {
	switch NormalizeStatus(string(s)) {
	case StatusOpen:
		return 4
	case StatusUpcoming:
		return 3
	case StatusClosed:
		return 2
	case StatusUnknown:
		return 1
	default:
		return 0
	}
}

// NormalizeStatus maps free-text status to a known constant, or returns it trimmed
func NormalizeStatus(raw string) IPOStatus {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	switch IPOStatus(lowered) {
	case StatusOpen, StatusUpcoming, StatusClosed, StatusUnknown:
		return IPOStatus(lowered)
	}
	return IPOStatus(strings.TrimSpace(raw))
}

// HigherPriorityStatus returns whichever status ranks higher, preferring primary on ties
func HigherPriorityStatus(primary, secondary IPOStatus) IPOStatus {
	if secondary.Priority() > primary.Priority() {
		return secondary
	}
	return primary
}

// IPORecord is one stored IPO as currently known. Several records may describe
// the same real-world offering until they are merged.
type IPORecord struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"ipo_name"`
	URL            string    `json:"url"`
	Status         IPOStatus `json:"status"`
	Fields         FieldMap  `json:"values"`
	RawContent     FieldMap  `json:"raw_content"`
	SourceURLs     FieldMap  `json:"source_urls"`
	ResolvedSymbol *string   `json:"resolved_symbol,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Symbol returns the persisted ticker symbol, if any
func (r *IPORecord) Symbol() (string, bool) {
	if r.ResolvedSymbol == nil || strings.TrimSpace(*r.ResolvedSymbol) == "" {
		return "", false
	}
	return strings.TrimSpace(*r.ResolvedSymbol), true
}

// Clone returns a deep copy of the record
func (r *IPORecord) Clone() *IPORecord {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Fields = r.Fields.Clone()
	clone.RawContent = r.RawContent.Clone()
	clone.SourceURLs = r.SourceURLs.Clone()
	if r.ResolvedSymbol != nil {
		symbol := *r.ResolvedSymbol
		clone.ResolvedSymbol = &symbol
	}
	return &clone
}

// RecordRef identifies a record in scan output without carrying its field bags
type RecordRef struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"ipo_name"`
	Status IPOStatus `json:"status"`
}

// Ref returns the lightweight reference for r
func (r *IPORecord) Ref() RecordRef {
	return RecordRef{ID: r.ID, Name: r.Name, Status: r.Status}
}
