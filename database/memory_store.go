package database

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Vaibhav-Ningaraju/IPO-Radar/models"
	"github.com/google/uuid"
)

// MemoryRecordStore is a process-local RecordStore used for local runs and tests.
// Records are cloned on the way in and out so callers never share state with the store.
type MemoryRecordStore struct {
	mutex   sync.RWMutex
	txMutex sync.Mutex
	records map[uuid.UUID]*models.IPORecord
	byName  map[string]uuid.UUID
	now     func() time.Time
	seq     time.Duration
}

// NewMemoryRecordStore creates an empty store
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{
		records: make(map[uuid.UUID]*models.IPORecord),
		byName:  make(map[string]uuid.UUID),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// timestamp returns a strictly increasing time so updated_at ordering is stable
func (m *MemoryRecordStore) timestamp() time.Time {
	m.seq += time.Nanosecond
	return m.now().Add(m.seq)
}

func (m *MemoryRecordStore) Find(ctx context.Context, filter RecordFilter, order SortOrder) ([]*models.IPORecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	allowed := make(map[models.IPOStatus]bool, len(filter.Statuses))
	for _, status := range filter.Statuses {
		allowed[status] = true
	}

	records := make([]*models.IPORecord, 0, len(m.records))
	for _, record := range m.records {
		if len(allowed) > 0 && !allowed[record.Status] {
			continue
		}
		records = append(records, record.Clone())
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		switch order {
		case SortByNameAsc:
			if a.Name != b.Name {
				return a.Name < b.Name
			}
		default:
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.After(b.UpdatedAt)
			}
		}
		return a.ID.String() < b.ID.String()
	})

	return records, nil
}

func (m *MemoryRecordStore) FindOne(ctx context.Context, name string) (*models.IPORecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	id, exists := m.byName[name]
	if !exists {
		return nil, notFound("FindOne", name)
	}
	return m.records[id].Clone(), nil
}

func (m *MemoryRecordStore) FindByID(ctx context.Context, id uuid.UUID) (*models.IPORecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	record, exists := m.records[id]
	if !exists {
		return nil, notFound("FindByID", id.String())
	}
	return record.Clone(), nil
}

func (m *MemoryRecordStore) Upsert(ctx context.Context, record *models.IPORecord) (*models.IPORecord, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.upsert(record, nil), nil
}

func (m *MemoryRecordStore) upsert(record *models.IPORecord, journal *undoLog) *models.IPORecord {
	stored := record.Clone()
	if stored.Status == "" {
		stored.Status = models.StatusUnknown
	}
	now := m.timestamp()

	if existingID, exists := m.byName[stored.Name]; exists {
		existing := m.records[existingID]
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
		if existing.ResolvedSymbol != nil {
			stored.ResolvedSymbol = existing.ResolvedSymbol
		}
	} else {
		if stored.ID == uuid.Nil {
			stored.ID = uuid.New()
		}
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	journal.remember(stored.ID, m.records[stored.ID])
	m.records[stored.ID] = stored
	m.byName[stored.Name] = stored.ID
	return stored.Clone()
}

func (m *MemoryRecordStore) UpdateFields(ctx context.Context, id uuid.UUID, update RecordUpdate) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.updateFields(id, update, nil)
}

func (m *MemoryRecordStore) updateFields(id uuid.UUID, update RecordUpdate, journal *undoLog) error {
	current, exists := m.records[id]
	if !exists {
		return notFound("UpdateFields", id.String())
	}
	journal.remember(id, current)

	// Writes go to a copy so a journaled before-image is never mutated
	record := current.Clone()
	if update.Name != nil && *update.Name != record.Name {
		delete(m.byName, record.Name)
		record.Name = *update.Name
		m.byName[record.Name] = id
	}
	if update.URL != nil {
		record.URL = *update.URL
	}
	if update.Status != nil {
		record.Status = *update.Status
	}
	if update.Fields != nil {
		record.Fields = update.Fields.Clone()
	}
	if update.RawContent != nil {
		record.RawContent = update.RawContent.Clone()
	}
	if update.SourceURLs != nil {
		record.SourceURLs = update.SourceURLs.Clone()
	}
	if update.ResolvedSymbol != nil && record.ResolvedSymbol == nil {
		symbol := strings.TrimSpace(*update.ResolvedSymbol)
		record.ResolvedSymbol = &symbol
	}
	if update.touchesContent() {
		record.UpdatedAt = m.timestamp()
	}
	m.records[id] = record
	return nil
}

func (m *MemoryRecordStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.delete(id, nil)
}

func (m *MemoryRecordStore) delete(id uuid.UUID, journal *undoLog) error {
	record, exists := m.records[id]
	if !exists {
		return notFound("Delete", id.String())
	}
	journal.remember(id, record)
	delete(m.byName, record.Name)
	delete(m.records, id)
	return nil
}

// RunInTransaction serializes transactions. When fn fails, only the writes fn
// made are undone; writes that reached the store outside fn are kept.
func (m *MemoryRecordStore) RunInTransaction(ctx context.Context, fn func(tx RecordStore) error) error {
	m.txMutex.Lock()
	defer m.txMutex.Unlock()

	journal := &undoLog{}
	if err := fn(memoryTx{MemoryRecordStore: m, journal: journal}); err != nil {
		m.mutex.Lock()
		defer m.mutex.Unlock()
		m.rollback(journal)
		return err
	}
	return nil
}

// memoryTx is the store handed to transaction bodies; nested transactions join the outer one
type memoryTx struct {
	*MemoryRecordStore
	journal *undoLog
}

func (t memoryTx) Upsert(ctx context.Context, record *models.IPORecord) (*models.IPORecord, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.upsert(record, t.journal), nil
}

func (t memoryTx) UpdateFields(ctx context.Context, id uuid.UUID, update RecordUpdate) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.updateFields(id, update, t.journal)
}

func (t memoryTx) Delete(ctx context.Context, id uuid.UUID) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.delete(id, t.journal)
}

func (t memoryTx) RunInTransaction(ctx context.Context, fn func(tx RecordStore) error) error {
	return fn(t)
}

// undoLog holds the before-image of every record a transaction touched.
// A nil before-image means the record did not exist.
type undoLog struct {
	entries []undoEntry
}

type undoEntry struct {
	id     uuid.UUID
	before *models.IPORecord
}

func (l *undoLog) remember(id uuid.UUID, before *models.IPORecord) {
	if l == nil {
		return
	}
	l.entries = append(l.entries, undoEntry{id: id, before: before})
}

// rollback replays the undo log newest first. Callers hold m.mutex.
func (m *MemoryRecordStore) rollback(journal *undoLog) {
	for i := len(journal.entries) - 1; i >= 0; i-- {
		entry := journal.entries[i]
		if current, exists := m.records[entry.id]; exists && m.byName[current.Name] == entry.id {
			delete(m.byName, current.Name)
		}
		if entry.before == nil {
			delete(m.records, entry.id)
			continue
		}
		m.records[entry.id] = entry.before
		m.byName[entry.before.Name] = entry.id
	}
}

func (m *MemoryRecordStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryRecordStore) Close() error { return nil }
