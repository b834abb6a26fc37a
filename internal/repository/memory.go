package repository

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/vinochelo/extractor/internal/common"
	"github.com/vinochelo/extractor/internal/entity"
)

type memoryStore struct {
	mu      sync.RWMutex
	byOwner map[string]map[string]entity.RetentionRecord
	clock   *monotonicClock
	logger  *slog.Logger
}

// NewMemoryStore returns a process-local RetentionStore, used by tests and
// the "memory" driver.
func NewMemoryStore(logger *slog.Logger) RetentionStore {
	return &memoryStore{
		byOwner: make(map[string]map[string]entity.RetentionRecord),
		clock:   newMonotonicClock(),
		logger:  common.LoggerOrDefault(logger),
	}
}

func (s *memoryStore) Create(_ context.Context, ownerID string, in entity.NewRetention) (entity.RetentionRecord, error) {
	in, err := prepareCreate(ownerID, in)
	if err != nil {
		return entity.RetentionRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := entity.RetentionRecord{
		RetentionData: in.Data,
		ID:            uuid.NewString(),
		FileName:      in.FileName,
		CreatedAt:     s.clock.Next(),
		UserID:        ownerID,
		Estado:        in.Estado,
	}
	part, ok := s.byOwner[ownerID]
	if !ok {
		part = make(map[string]entity.RetentionRecord)
		s.byOwner[ownerID] = part
	}
	part[rec.ID] = rec
	s.logger.Debug("store.memory.create", "owner", ownerID, "id", rec.ID)
	return rec, nil
}

func (s *memoryStore) Get(_ context.Context, ownerID, id string) (entity.RetentionRecord, error) {
	if err := checkOwnerAndID(ownerID, id); err != nil {
		return entity.RetentionRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byOwner[ownerID][id]
	if !ok {
		return entity.RetentionRecord{}, notFound(id)
	}
	return rec, nil
}

func (s *memoryStore) List(_ context.Context, ownerID string) ([]entity.RetentionRecord, error) {
	if err := checkOwner(ownerID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	part := s.byOwner[ownerID]
	out := make([]entity.RetentionRecord, 0, len(part))
	for _, rec := range part {
		out = append(out, rec)
	}
	s.mu.RUnlock()
	SortNewestFirst(out)
	return out, nil
}

func (s *memoryStore) FindByNumeroRetencion(_ context.Context, ownerID, numero string) (*entity.RetentionRecord, error) {
	if err := checkOwner(ownerID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *entity.RetentionRecord
	for _, rec := range s.byOwner[ownerID] {
		if rec.NumeroRetencion != numero {
			continue
		}
		if found == nil || rec.CreatedAt.After(found.CreatedAt) {
			r := rec
			found = &r
		}
	}
	return found, nil
}

func (s *memoryStore) Update(_ context.Context, ownerID, id string, patch entity.RetentionPatch) (entity.RetentionRecord, error) {
	if err := checkOwnerAndID(ownerID, id); err != nil {
		return entity.RetentionRecord{}, err
	}
	if err := checkPatch(patch); err != nil {
		return entity.RetentionRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byOwner[ownerID][id]
	if !ok {
		return entity.RetentionRecord{}, notFound(id)
	}
	rec = patch.Apply(rec)
	s.byOwner[ownerID][id] = rec
	return rec, nil
}

func (s *memoryStore) Delete(_ context.Context, ownerID, id string) error {
	if err := checkOwnerAndID(ownerID, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byOwner[ownerID], id)
	return nil
}

func (s *memoryStore) Ping(context.Context) error { return nil }

func (s *memoryStore) Close() error { return nil }
