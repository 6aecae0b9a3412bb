// Package memory is an in-process metadata store with the same contract as the
// PostgreSQL repository. It backs tests and METADATA_DRIVER=memory for local runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"patientportal/internal/apperr"
	"patientportal/internal/model"
	"patientportal/internal/repository"
)

// DocumentMemory is safe for concurrent use.
type DocumentMemory struct {
	mu    sync.RWMutex
	docs  map[string]model.Document
	last  time.Time
	clock func() time.Time
}

// NewDocumentMemory returns an empty store.
func NewDocumentMemory() *DocumentMemory {
	return &DocumentMemory{
		docs:  make(map[string]model.Document),
		clock: func() time.Time { return time.Now().UTC() },
	}
}

var _ repository.DocumentRepository = (*DocumentMemory)(nil)

// Create stores a document, assigning ID and CreatedAt. CreatedAt is strictly
// increasing across calls so newest-first ordering is total.
func (m *DocumentMemory) Create(ctx context.Context, filename, filepath string, filesize int64) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "documents.insert", err, "Database error")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	if !now.After(m.last) {
		now = m.last.Add(time.Microsecond)
	}
	m.last = now

	doc := model.Document{
		ID:        uuid.NewString(),
		Filename:  filename,
		Filepath:  filepath,
		Filesize:  filesize,
		CreatedAt: now,
	}
	m.docs[doc.ID] = doc
	return &doc, nil
}

func (m *DocumentMemory) FindByID(ctx context.Context, id string) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "documents.select", err, "Database error")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "documents.select", repository.MsgDocumentNotFound)
	}
	return &doc, nil
}

func (m *DocumentMemory) List(ctx context.Context) ([]model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindStore, "documents.list", err, "Database error")
	}

	m.mu.RLock()
	items := make([]model.Document, 0, len(m.docs))
	for _, d := range m.docs {
		items = append(items, d)
	}
	m.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (m *DocumentMemory) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.KindStore, "documents.delete", err, "Database error")
	}

	m.mu.Lock()
	delete(m.docs, id)
	m.mu.Unlock()
	return nil
}
