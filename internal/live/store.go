package live

import (
	"context"

	"github.com/vinochelo/extractor/internal/entity"
	"github.com/vinochelo/extractor/internal/repository"
)

type notifyingStore struct {
	repository.RetentionStore
	hub *Hub
}

// Wrap returns a store that notifies hub after every successful write.
func Wrap(store repository.RetentionStore, hub *Hub) repository.RetentionStore {
	return &notifyingStore{RetentionStore: store, hub: hub}
}

func (s *notifyingStore) Create(ctx context.Context, ownerID string, in entity.NewRetention) (entity.RetentionRecord, error) {
	rec, err := s.RetentionStore.Create(ctx, ownerID, in)
	if err == nil {
		s.hub.Notify(ownerID)
	}
	return rec, err
}

func (s *notifyingStore) Update(ctx context.Context, ownerID, id string, patch entity.RetentionPatch) (entity.RetentionRecord, error) {
	rec, err := s.RetentionStore.Update(ctx, ownerID, id, patch)
	if err == nil {
		s.hub.Notify(ownerID)
	}
	return rec, err
}

func (s *notifyingStore) Delete(ctx context.Context, ownerID, id string) error {
	err := s.RetentionStore.Delete(ctx, ownerID, id)
	if err == nil {
		s.hub.Notify(ownerID)
	}
	return err
}
