package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/Vaibhav-Ningaraju/IPO-Radar/database"
	"github.com/Vaibhav-Ningaraju/IPO-Radar/models"
	"github.com/Vaibhav-Ningaraju/IPO-Radar/shared"
	"github.com/sirupsen/logrus"
)

type tokenSet map[string]struct{}

// DuplicateScanner proposes merge candidates by comparing IPO names pairwise.
// The scan is quadratic and only runs on admin request.
type DuplicateScanner struct {
	store         database.RecordStore
	normalizer    *NameNormalizer
	threshold     float64
	maxCandidates int
}

// NewDuplicateScanner creates a scanner over the record store
func NewDuplicateScanner(store database.RecordStore, normalizer *NameNormalizer, config shared.ScannerConfig) *DuplicateScanner {
	return &DuplicateScanner{
		store:         store,
		normalizer:    normalizer,
		threshold:     config.SimilarityThreshold,
		maxCandidates: config.MaxCandidates,
	}
}

// ScanDuplicates loads every record in name order and scans it
func (s *DuplicateScanner) ScanDuplicates(ctx context.Context) ([]models.MergeCandidate, error) {
	records, err := s.store.Find(ctx, database.RecordFilter{}, database.SortByNameAsc)
	if err != nil {
		return nil, fmt.Errorf("failed to load records for duplicate scan: %w", err)
	}

	candidates := s.Scan(records)

	logrus.WithFields(logrus.Fields{
		"component":  "DuplicateScanner",
		"records":    len(records),
		"candidates": len(candidates),
	}).Info("Duplicate scan completed")

	return candidates, nil
}

// Scan returns qualifying pairs ordered by descending score. In each pair the
// master is the record that comes first in the input.
func (s *DuplicateScanner) Scan(records []*models.IPORecord) []models.MergeCandidate {
	sets := make([]tokenSet, len(records))
	for i, record := range records {
		sets[i] = s.tokenSet(record.Name)
	}

	var candidates []models.MergeCandidate
	seen := make(map[[2]string]bool)

	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			a, b := records[i], records[j]
			if a.ID == b.ID {
				continue
			}

			key := pairKey(a.ID.String(), b.ID.String())
			if seen[key] {
				continue
			}
			seen[key] = true

			if !s.mayQualify(sets[i], sets[j]) {
				continue
			}

			score := jaccard(sets[i], sets[j])
			if score < s.threshold {
				continue
			}
			candidates = append(candidates, models.MergeCandidate{
				Master:    a.Ref(),
				Candidate: b.Ref(),
				Score:     score,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if s.maxCandidates > 0 && len(candidates) > s.maxCandidates {
		candidates = candidates[:s.maxCandidates]
	}
	return candidates
}

// Similarity returns the Jaccard score of two names' token sets
func (s *DuplicateScanner) Similarity(a, b string) float64 {
	return jaccard(s.tokenSet(a), s.tokenSet(b))
}

func (s *DuplicateScanner) tokenSet(name string) tokenSet {
	tokens := s.normalizer.Tokens(name)
	set := make(tokenSet, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}

// mayQualify applies the size bound min(|A|,|B|) / max(|A|,|B|) >= threshold,
// which every pair scoring at or above threshold satisfies. A name made only of
// noise words never qualifies.
func (s *DuplicateScanner) mayQualify(a, b tokenSet) bool {
	small, large := len(a), len(b)
	if small > large {
		small, large = large, small
	}
	if small == 0 {
		return false
	}
	return float64(small)/float64(large) >= s.threshold
}

// jaccard returns |A∩B| / |A∪B|. Two empty sets are identical and score 1.
func jaccard(a, b tokenSet) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	intersection := 0
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

func pairKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}
