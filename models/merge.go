package models

// MergeCandidate is a proposed duplicate pair. Master is the record that
// appears first in name order, and Score is the name similarity in [0,1].
type MergeCandidate struct {
	Master    RecordRef `json:"master"`
	Candidate RecordRef `json:"candidate"`
	Score     float64   `json:"score"`
}

// MergeResult describes a completed merge
type MergeResult struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Record  *IPORecord `json:"record,omitempty"`
}
