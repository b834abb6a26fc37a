package lifecycle

import (
	"context"
	"log/slog"

	"github.com/vinochelo/extractor/constants"
	"github.com/vinochelo/extractor/internal/common"
	"github.com/vinochelo/extractor/internal/entity"
	"github.com/vinochelo/extractor/internal/repository"
)

// Manager owns every estado change and deletion. It reads the current
// record, checks the edge table and issues exactly one store update.
// Concurrent changes to the same record are last-write-wins.
type Manager struct {
	store  repository.RetentionStore
	logger *slog.Logger
}

func NewManager(store repository.RetentionStore, logger *slog.Logger) *Manager {
	return &Manager{store: store, logger: common.LoggerOrDefault(logger)}
}

// ChangeStatus moves record id to "to". Edges missing from the table,
// including staying in the same state, fail with InvalidTransition and
// leave the record untouched.
func (m *Manager) ChangeStatus(ctx context.Context, ownerID, id string, to constants.RetentionStatus) (entity.RetentionRecord, error) {
	if !to.Valid() {
		return entity.RetentionRecord{}, common.InvalidInputf("unknown estado %q", to)
	}
	current, err := m.store.Get(ctx, ownerID, id)
	if err != nil {
		return entity.RetentionRecord{}, err
	}
	t, ok := Lookup(current.Estado, to)
	if !ok {
		m.logger.Warn("lifecycle.transition.rejected", "owner", ownerID, "id", id, "from", current.Estado, "to", to)
		return entity.RetentionRecord{}, common.InvalidTransitionf("no se puede cambiar de %s a %s", current.Estado, to)
	}
	return m.commit(ctx, ownerID, id, t)
}

// Apply fires ev on record id.
func (m *Manager) Apply(ctx context.Context, ownerID, id string, ev Event) (entity.RetentionRecord, error) {
	current, err := m.store.Get(ctx, ownerID, id)
	if err != nil {
		return entity.RetentionRecord{}, err
	}
	to, ok := Next(current.Estado, ev)
	if !ok {
		return entity.RetentionRecord{}, common.InvalidTransitionf("acción %s no permitida en estado %s", ev, current.Estado)
	}
	t, _ := Lookup(current.Estado, to)
	return m.commit(ctx, ownerID, id, t)
}

// Delete removes record id in any state. Absent ids are not an error.
func (m *Manager) Delete(ctx context.Context, ownerID, id string) error {
	if err := m.store.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	m.logger.Info("lifecycle.delete.ok", "owner", ownerID, "id", id)
	return nil
}

// ActionsFor returns the action menu for a stored record.
func (m *Manager) ActionsFor(ctx context.Context, ownerID, id string) ([]Action, error) {
	rec, err := m.store.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return Actions(rec.Estado), nil
}

func (m *Manager) commit(ctx context.Context, ownerID, id string, t Transition) (entity.RetentionRecord, error) {
	to := t.To
	rec, err := m.store.Update(ctx, ownerID, id, entity.RetentionPatch{Estado: &to})
	if err != nil {
		return entity.RetentionRecord{}, err
	}
	m.logger.Info("lifecycle.transition.ok", "owner", ownerID, "id", id, "from", t.From, "to", t.To, "event", t.Event)
	return rec, nil
}
