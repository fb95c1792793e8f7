package database

import (
	"context"
	"errors"
	"testing"

	"github.com/Vaibhav-Ningaraju/IPO-Radar/models"
	"github.com/Vaibhav-Ningaraju/IPO-Radar/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) RecordStore {
	t.Helper()
	cfg := shared.NewDefaultEngineConfiguration().Database
	cfg.Driver = shared.DatabaseDriverSQLite

	store, err := OpenRecordStore(context.Background(), &cfg, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newMemoryStore(t *testing.T) RecordStore {
	return NewMemoryRecordStore()
}

func TestRecordStoreContract(t *testing.T) {
	stores := map[string]func(t *testing.T) RecordStore{
		"memory": newMemoryStore,
		"sqlite": newSQLiteStore,
	}

	for name, factory := range stores {
		t.Run(name, func(t *testing.T) {
			t.Run("upsert keyed by name", func(t *testing.T) { testUpsertByName(t, factory(t)) })
			t.Run("find filters and sorts", func(t *testing.T) { testFindFilterAndSort(t, factory(t)) })
			t.Run("resolved symbol is written once", func(t *testing.T) { testResolvedSymbolWriteOnce(t, factory(t)) })
			t.Run("missing identities", func(t *testing.T) { testMissingIdentities(t, factory(t)) })
			t.Run("transaction rollback", func(t *testing.T) { testTransactionRollback(t, factory(t)) })
			t.Run("field order survives storage", func(t *testing.T) { testFieldOrderSurvives(t, factory(t)) })
		})
	}
}

func testUpsertByName(t *testing.T, store RecordStore) {
	ctx := context.Background()

	first, err := store.Upsert(ctx, &models.IPORecord{
		Name:   "Alpha Tech Limited",
		Status: models.StatusUpcoming,
		Fields: models.NewFieldMap("lot size", "100"),
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, first.ID)

	second, err := store.Upsert(ctx, &models.IPORecord{
		Name:   "Alpha Tech Limited",
		Status: models.StatusOpen,
		Fields: models.NewFieldMap("lot size", "120"),
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	found, err := store.FindOne(ctx, "Alpha Tech Limited")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, found.Status)
	assert.Equal(t, "120", found.Fields.GetString("lot size"))

	all, err := store.Find(ctx, RecordFilter{}, SortByNameAsc)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testFindFilterAndSort(t *testing.T, store RecordStore) {
	ctx := context.Background()
	for _, rec := range []*models.IPORecord{
		{Name: "Charlie Foods", Status: models.StatusClosed},
		{Name: "Alpha Tech", Status: models.StatusOpen},
		{Name: "Bravo Energy", Status: models.StatusClosed},
	} {
		_, err := store.Upsert(ctx, rec)
		require.NoError(t, err)
	}

	byName, err := store.Find(ctx, RecordFilter{}, SortByNameAsc)
	require.NoError(t, err)
	require.Len(t, byName, 3)
	assert.Equal(t, []string{"Alpha Tech", "Bravo Energy", "Charlie Foods"}, names(byName))

	byUpdated, err := store.Find(ctx, RecordFilter{}, SortByUpdatedDesc)
	require.NoError(t, err)
	assert.Equal(t, "Bravo Energy", byUpdated[0].Name)

	closed, err := store.Find(ctx, RecordFilter{Statuses: []models.IPOStatus{models.StatusClosed}}, SortByNameAsc)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bravo Energy", "Charlie Foods"}, names(closed))
}

func testResolvedSymbolWriteOnce(t *testing.T, store RecordStore) {
	ctx := context.Background()
	rec, err := store.Upsert(ctx, &models.IPORecord{Name: "Delta Motors"})
	require.NoError(t, err)

	first := "DELTA.NS"
	second := "DELTA.BO"
	require.NoError(t, store.UpdateFields(ctx, rec.ID, RecordUpdate{ResolvedSymbol: &first}))
	require.NoError(t, store.UpdateFields(ctx, rec.ID, RecordUpdate{ResolvedSymbol: &second}))

	found, err := store.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	symbol, ok := found.Symbol()
	require.True(t, ok)
	assert.Equal(t, "DELTA.NS", symbol)

	// re-ingestion keeps the persisted symbol
	_, err = store.Upsert(ctx, &models.IPORecord{Name: "Delta Motors", Status: models.StatusClosed})
	require.NoError(t, err)
	found, err = store.FindOne(ctx, "Delta Motors")
	require.NoError(t, err)
	symbol, _ = found.Symbol()
	assert.Equal(t, "DELTA.NS", symbol)
}

func testMissingIdentities(t *testing.T, store RecordStore) {
	ctx := context.Background()
	missing := uuid.New()

	_, err := store.FindByID(ctx, missing)
	assert.True(t, shared.IsNotFound(err))

	_, err = store.FindOne(ctx, "nobody")
	assert.True(t, shared.IsNotFound(err))

	url := "https://example.com"
	assert.True(t, shared.IsNotFound(store.UpdateFields(ctx, missing, RecordUpdate{URL: &url})))
	assert.True(t, shared.IsNotFound(store.Delete(ctx, missing)))
}

func testTransactionRollback(t *testing.T, store RecordStore) {
	ctx := context.Background()
	rec, err := store.Upsert(ctx, &models.IPORecord{Name: "Echo Labs", Status: models.StatusUpcoming})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.RunInTransaction(ctx, func(tx RecordStore) error {
		status := models.StatusOpen
		if err := tx.UpdateFields(ctx, rec.ID, RecordUpdate{Status: &status}); err != nil {
			return err
		}
		if err := tx.Delete(ctx, rec.ID); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	found, err := store.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUpcoming, found.Status)

	err = store.RunInTransaction(ctx, func(tx RecordStore) error {
		return tx.Delete(ctx, rec.ID)
	})
	require.NoError(t, err)
	_, err = store.FindByID(ctx, rec.ID)
	assert.True(t, shared.IsNotFound(err))
}

func testFieldOrderSurvives(t *testing.T, store RecordStore) {
	ctx := context.Background()
	fields := models.NewFieldMap("zeta", "1", "Issue Price", "₹100", "alpha", "x")

	rec, err := store.Upsert(ctx, &models.IPORecord{
		Name:       "Foxtrot Retail",
		Fields:     fields,
		RawContent: models.NewFieldMap("details", "<table></table>"),
		SourceURLs: models.NewFieldMap("groww", "https://groww.in/ipo/foxtrot"),
	})
	require.NoError(t, err)

	found, err := store.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "Issue Price", "alpha"}, found.Fields.Keys())
	assert.Equal(t, "https://groww.in/ipo/foxtrot", found.SourceURLs.GetString("groww"))
	assert.Equal(t, "<table></table>", found.RawContent.GetString("details"))
}

func names(records []*models.IPORecord) []string {
	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = rec.Name
	}
	return out
}

func TestParseSQLStatementsSkipsComments(t *testing.T) {
	statements := parseSQLStatements("-- heading\nCREATE TABLE a (\n id INT\n);\n\nCREATE INDEX i ON a (id);")
	assert.Equal(t, []string{"CREATE TABLE a ( id INT )", "CREATE INDEX i ON a (id)"}, statements)
}

func TestDialectPlaceholders(t *testing.T) {
	assert.Equal(t, "$3", PostgresDialect.Placeholder(3))
	assert.Equal(t, "?", SQLiteDialect.Placeholder(3))

	_, err := DialectFor("oracle")
	assert.Error(t, err)
}

func TestMemoryRollbackKeepsWritesOutsideTransaction(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRecordStore()
	rec, err := store.Upsert(ctx, &models.IPORecord{Name: "Golf Infra", Status: models.StatusUpcoming})
	require.NoError(t, err)
	other, err := store.Upsert(ctx, &models.IPORecord{Name: "Hotel Foods"})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.RunInTransaction(ctx, func(tx RecordStore) error {
		status := models.StatusOpen
		if err := tx.UpdateFields(ctx, rec.ID, RecordUpdate{Status: &status}); err != nil {
			return err
		}
		if _, err := tx.Upsert(ctx, &models.IPORecord{Name: "India Textiles"}); err != nil {
			return err
		}

		// ingestion and the write-back worker write straight to the store
		if _, err := store.Upsert(ctx, &models.IPORecord{Name: "Juliet Pharma"}); err != nil {
			return err
		}
		symbol := "HOTEL.NS"
		if err := store.UpdateFields(ctx, other.ID, RecordUpdate{ResolvedSymbol: &symbol}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	found, err := store.FindByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUpcoming, found.Status)

	_, err = store.FindOne(ctx, "India Textiles")
	assert.True(t, shared.IsNotFound(err))

	_, err = store.FindOne(ctx, "Juliet Pharma")
	assert.NoError(t, err)

	hotel, err := store.FindByID(ctx, other.ID)
	require.NoError(t, err)
	symbol, ok := hotel.Symbol()
	require.True(t, ok)
	assert.Equal(t, "HOTEL.NS", symbol)
}

func TestSQLStoreFailuresCarryDatabaseCategory(t *testing.T) {
	store := newSQLiteStore(t)
	require.NoError(t, store.Close())

	_, err := store.Find(context.Background(), RecordFilter{}, SortByNameAsc)
	require.Error(t, err)
	category, ok := shared.CategoryOf(err)
	require.True(t, ok)
	assert.Equal(t, shared.ErrorCategoryDatabase, category)

	_, err = store.FindByID(context.Background(), uuid.New())
	assert.False(t, shared.IsNotFound(err), "a closed connection is not a missing record")
	category, _ = shared.CategoryOf(err)
	assert.Equal(t, shared.ErrorCategoryDatabase, category)
}
