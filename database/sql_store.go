package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Vaibhav-Ningaraju/IPO-Radar/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const recordColumns = `id, ipo_name, url, status, field_values, raw_content, source_urls, resolved_symbol, created_at, updated_at`

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// SQLRecordStore implements RecordStore over database/sql for Postgres and SQLite
type SQLRecordStore struct {
	db      *sql.DB
	q       querier
	dialect Dialect
	inTx    bool
	now     func() time.Time
}

// NewSQLRecordStore wraps an open, migrated connection
func NewSQLRecordStore(db *sql.DB, dialect Dialect) *SQLRecordStore {
	return &SQLRecordStore{
		db:      db,
		q:       db,
		dialect: dialect,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *SQLRecordStore) Find(ctx context.Context, filter RecordFilter, sort SortOrder) ([]*models.IPORecord, error) {
	query := `SELECT ` + recordColumns + ` FROM ipo_records`

	var args []any
	if len(filter.Statuses) > 0 {
		markers := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, string(status))
			markers[i] = s.dialect.Placeholder(len(args))
		}
		query += ` WHERE status IN (` + strings.Join(markers, ", ") + `)`
	}

	switch sort {
	case SortByNameAsc:
		query += ` ORDER BY ipo_name ASC, id ASC`
	default:
		query += ` ORDER BY updated_at DESC, id ASC`
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError("Find", fmt.Errorf("failed to query records: %w", err))
	}
	defer rows.Close()

	var records []*models.IPORecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, storeError("Find", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("Find", fmt.Errorf("failed to iterate records: %w", err))
	}
	return records, nil
}

func (s *SQLRecordStore) FindOne(ctx context.Context, name string) (*models.IPORecord, error) {
	query := `SELECT ` + recordColumns + ` FROM ipo_records WHERE ipo_name = ` + s.dialect.Placeholder(1)
	record, err := scanRecord(s.q.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("FindOne", name)
	}
	if err != nil {
		return nil, storeError("FindOne", err)
	}
	return record, nil
}

func (s *SQLRecordStore) FindByID(ctx context.Context, id uuid.UUID) (*models.IPORecord, error) {
	query := `SELECT ` + recordColumns + ` FROM ipo_records WHERE id = ` + s.dialect.Placeholder(1)
	if s.inTx {
		query += s.dialect.lockClause
	}
	record, err := scanRecord(s.q.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("FindByID", id.String())
	}
	if err != nil {
		return nil, storeError("FindByID", err)
	}
	return record, nil
}

func (s *SQLRecordStore) Upsert(ctx context.Context, record *models.IPORecord) (*models.IPORecord, error) {
	stored := record.Clone()
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.Status == "" {
		stored.Status = models.StatusUnknown
	}
	now := s.now()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	p := s.dialect.Placeholder
	query := `INSERT INTO ipo_records (` + recordColumns + `)
		VALUES (` + strings.Join([]string{p(1), p(2), p(3), p(4), p(5), p(6), p(7), p(8), p(9), p(10)}, ", ") + `)
		ON CONFLICT (ipo_name) DO UPDATE SET
			url = EXCLUDED.url,
			status = EXCLUDED.status,
			field_values = EXCLUDED.field_values,
			raw_content = EXCLUDED.raw_content,
			source_urls = EXCLUDED.source_urls,
			resolved_symbol = COALESCE(ipo_records.resolved_symbol, EXCLUDED.resolved_symbol),
			updated_at = EXCLUDED.updated_at
		RETURNING id, resolved_symbol, created_at`

	var id string
	var symbol sql.NullString
	err := s.q.QueryRowContext(ctx, query,
		stored.ID.String(), stored.Name, stored.URL, string(stored.Status),
		stored.Fields, stored.RawContent, stored.SourceURLs,
		nullableString(stored.ResolvedSymbol), stored.CreatedAt, stored.UpdatedAt,
	).Scan(&id, &symbol, &stored.CreatedAt)
	if err != nil {
		return nil, storeError("Upsert", fmt.Errorf("failed to upsert record %q: %w", stored.Name, err))
	}

	if stored.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid record id %q: %w", id, err)
	}
	stored.ResolvedSymbol = stringPointer(symbol)
	return stored, nil
}

func (s *SQLRecordStore) UpdateFields(ctx context.Context, id uuid.UUID, update RecordUpdate) error {
	var assignments []string
	var args []any
	set := func(column string, value any) {
		args = append(args, value)
		assignments = append(assignments, column+" = "+s.dialect.Placeholder(len(args)))
	}

	if update.Name != nil {
		set("ipo_name", *update.Name)
	}
	if update.URL != nil {
		set("url", *update.URL)
	}
	if update.Status != nil {
		set("status", string(*update.Status))
	}
	if update.Fields != nil {
		set("field_values", *update.Fields)
	}
	if update.RawContent != nil {
		set("raw_content", *update.RawContent)
	}
	if update.SourceURLs != nil {
		set("source_urls", *update.SourceURLs)
	}
	if update.ResolvedSymbol != nil {
		args = append(args, *update.ResolvedSymbol)
		assignments = append(assignments, "resolved_symbol = COALESCE(resolved_symbol, "+s.dialect.Placeholder(len(args))+")")
	}
	if update.touchesContent() {
		set("updated_at", s.now())
	}
	if len(assignments) == 0 {
		_, err := s.FindByID(ctx, id)
		return err
	}

	args = append(args, id.String())
	query := `UPDATE ipo_records SET ` + strings.Join(assignments, ", ") +
		` WHERE id = ` + s.dialect.Placeholder(len(args))

	result, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return storeError("UpdateFields", fmt.Errorf("failed to update record %s: %w", id, err))
	}
	return requireAffected(result, "UpdateFields", id)
}

func (s *SQLRecordStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM ipo_records WHERE id = `+s.dialect.Placeholder(1), id.String())
	if err != nil {
		return storeError("Delete", fmt.Errorf("failed to delete record %s: %w", id, err))
	}
	return requireAffected(result, "Delete", id)
}

func (s *SQLRecordStore) RunInTransaction(ctx context.Context, fn func(tx RecordStore) error) (err error) {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError("RunInTransaction", fmt.Errorf("failed to begin transaction: %w", err))
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				logrus.WithError(rollbackErr).WithField("component", "SQLRecordStore").Error("Failed to roll back transaction")
			}
		}
	}()

	txStore := &SQLRecordStore{db: s.db, q: tx, dialect: s.dialect, inTx: true, now: s.now}
	if err = fn(txStore); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return storeError("RunInTransaction", fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

func (s *SQLRecordStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLRecordStore) Close() error {
	if s.inTx {
		return nil
	}
	logrus.WithField("component", "SQLRecordStore").Info("Database connection closed")
	return s.db.Close()
}

func scanRecord(row rowScanner) (*models.IPORecord, error) {
	var record models.IPORecord
	var id, status string
	var symbol sql.NullString

	err := row.Scan(
		&id, &record.Name, &record.URL, &status,
		&record.Fields, &record.RawContent, &record.SourceURLs,
		&symbol, &record.CreatedAt, &record.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan record row: %w", err)
	}

	if record.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid record id %q: %w", id, err)
	}
	record.Status = models.NormalizeStatus(status)
	record.ResolvedSymbol = stringPointer(symbol)
	return &record, nil
}

func requireAffected(result sql.Result, operation string, id uuid.UUID) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return storeError(operation, fmt.Errorf("failed to read affected rows: %w", err))
	}
	if affected == 0 {
		return notFound(operation, id.String())
	}
	return nil
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func stringPointer(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}
