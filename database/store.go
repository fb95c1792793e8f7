package database

import (
	"context"

	"github.com/Vaibhav-Ningaraju/IPO-Radar/models"
	"github.com/Vaibhav-Ningaraju/IPO-Radar/shared"
	"github.com/google/uuid"
)

// SortOrder selects the ordering of Find results
type SortOrder int

const (
	// SortByUpdatedDesc returns the most recently updated records first
	SortByUpdatedDesc SortOrder = iota
	// SortByNameAsc orders records by name
	SortByNameAsc
)

// RecordFilter narrows Find. A zero filter matches every record.
type RecordFilter struct {
	Statuses []models.IPOStatus
}

// RecordUpdate is a partial update. Nil fields are left untouched.
// ResolvedSymbol is only written when the record has none yet.
type RecordUpdate struct {
	Name           *string
	URL            *string
	Status         *models.IPOStatus
	Fields         *models.FieldMap
	RawContent     *models.FieldMap
	SourceURLs     *models.FieldMap
	ResolvedSymbol *string
}

// touchesContent reports whether the update changes anything besides the symbol
func (u RecordUpdate) touchesContent() bool {
	return u.Name != nil || u.URL != nil || u.Status != nil ||
		u.Fields != nil || u.RawContent != nil || u.SourceURLs != nil
}

// RecordStore is the durable owner of IPO records.
// Lookups of missing identities return a not_found shared.ServiceError.
type RecordStore interface {
	Find(ctx context.Context, filter RecordFilter, sort SortOrder) ([]*models.IPORecord, error)
	FindOne(ctx context.Context, name string) (*models.IPORecord, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.IPORecord, error)
	// Upsert inserts or replaces the record keyed by its name and returns the stored copy
	Upsert(ctx context.Context, record *models.IPORecord) (*models.IPORecord, error)
	UpdateFields(ctx context.Context, id uuid.UUID, update RecordUpdate) error
	Delete(ctx context.Context, id uuid.UUID) error
	// RunInTransaction runs fn against a store whose writes commit together or not at all
	RunInTransaction(ctx context.Context, fn func(tx RecordStore) error) error
	Ping(ctx context.Context) error
	Close() error
}

func notFound(operation, identity string) error {
	return shared.NewNotFoundError("RecordStore", operation, identity)
}

// storeError tags a driver failure with the database category
func storeError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return shared.WrapError(err, shared.ErrorCategoryDatabase, "DATABASE_ERROR", "RecordStore", operation, true)
}
