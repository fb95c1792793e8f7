package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/Vaibhav-Ningaraju/IPO-Radar/database"
	"github.com/Vaibhav-Ningaraju/IPO-Radar/models"
	"github.com/Vaibhav-Ningaraju/IPO-Radar/shared"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CacheInvalidator drops cached state derived from records
type CacheInvalidator interface {
	Invalidate()
}

// RecordMergeEngine folds a duplicate record into a master record.
// Merges are serialized and each one runs in a single store transaction.
type RecordMergeEngine struct {
	store       database.RecordStore
	invalidator CacheInvalidator
	mutex       sync.Mutex
}

// NewRecordMergeEngine creates a merge engine. invalidator may be nil.
func NewRecordMergeEngine(store database.RecordStore, invalidator CacheInvalidator) *RecordMergeEngine {
	return &RecordMergeEngine{
		store:       store,
		invalidator: invalidator,
	}
}

// MergeRecords returns master with candidate folded underneath it. Master wins
// every conflict in Fields, RawContent and SourceURLs; status keeps the higher
// priority; URL and symbol fall back to the candidate's when master has none.
func MergeRecords(master, candidate *models.IPORecord) *models.IPORecord {
	merged := master.Clone()
	merged.Fields = models.MergeFieldMaps(master.Fields, candidate.Fields)
	merged.RawContent = models.MergeFieldMaps(master.RawContent, candidate.RawContent)
	merged.SourceURLs = models.MergeFieldMaps(master.SourceURLs, candidate.SourceURLs)
	merged.Status = models.HigherPriorityStatus(master.Status, candidate.Status)

	if merged.URL == "" {
		merged.URL = candidate.URL
	}
	if _, ok := merged.Symbol(); !ok {
		if symbol, ok := candidate.Symbol(); ok {
			merged.ResolvedSymbol = &symbol
		}
	}
	return merged
}

// Merge combines candidateID into masterID and deletes the candidate.
// A missing identity aborts with a not_found error before anything is written.
func (e *RecordMergeEngine) Merge(ctx context.Context, masterID, candidateID uuid.UUID) (*models.MergeResult, error) {
	if masterID == candidateID {
		return nil, shared.NewServiceError(shared.ErrorCategoryValidation, "SAME_RECORD",
			"master and candidate must be different records", "RecordMergeEngine", "Merge", false, nil)
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	logger := logrus.WithFields(logrus.Fields{
		"component":    "RecordMergeEngine",
		"master_id":    masterID,
		"candidate_id": candidateID,
	})

	var result *models.MergeResult
	err := e.store.RunInTransaction(ctx, func(tx database.RecordStore) error {
		master, err := tx.FindByID(ctx, masterID)
		if err != nil {
			return err
		}
		candidate, err := tx.FindByID(ctx, candidateID)
		if err != nil {
			return err
		}

		merged := MergeRecords(master, candidate)
		update := database.RecordUpdate{
			URL:            &merged.URL,
			Status:         &merged.Status,
			Fields:         &merged.Fields,
			RawContent:     &merged.RawContent,
			SourceURLs:     &merged.SourceURLs,
			ResolvedSymbol: merged.ResolvedSymbol,
		}
		if err := tx.UpdateFields(ctx, masterID, update); err != nil {
			return fmt.Errorf("failed to update master record: %w", err)
		}
		if err := tx.Delete(ctx, candidateID); err != nil {
			return fmt.Errorf("failed to delete candidate record: %w", err)
		}

		stored, err := tx.FindByID(ctx, masterID)
		if err != nil {
			return err
		}

		result = &models.MergeResult{
			Success: true,
			Message: fmt.Sprintf("Merged %q into %q", candidate.Name, master.Name),
			Record:  stored,
		}
		return nil
	})
	if err != nil {
		logger.WithError(err).Warn("Merge aborted")
		return nil, err
	}

	if e.invalidator != nil {
		e.invalidator.Invalidate()
	}

	logger.Info(result.Message)
	return result, nil
}
