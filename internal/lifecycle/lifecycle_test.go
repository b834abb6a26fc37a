package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinochelo/extractor/constants"
	"github.com/vinochelo/extractor/internal/common"
	"github.com/vinochelo/extractor/internal/entity"
	"github.com/vinochelo/extractor/internal/repository"
)

var legal = map[[2]constants.RetentionStatus]bool{
	{constants.StatusSolicitado, constants.StatusPendienteAnular}: true,
	{constants.StatusPendienteAnular, constants.StatusAnulado}:    true,
	{constants.StatusPendienteAnular, constants.StatusSolicitado}: true,
	{constants.StatusAnulado, constants.StatusPendienteAnular}:    true,
}

func seed(t *testing.T, store repository.RetentionStore, estado constants.RetentionStatus) entity.RetentionRecord {
	t.Helper()
	rec, err := store.Create(context.Background(), "u1", entity.NewRetention{
		Data:   entity.RetentionData{NumeroRetencion: "001-002-123456789"},
		Estado: estado,
	})
	require.NoError(t, err)
	return rec
}

func TestChangeStatus_AllPairs(t *testing.T) {
	for _, from := range constants.AllStatuses {
		for _, to := range constants.AllStatuses {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				store := repository.NewMemoryStore(nil)
				m := NewManager(store, nil)
				rec := seed(t, store, from)

				got, err := m.ChangeStatus(context.Background(), "u1", rec.ID, to)
				stored, gerr := store.Get(context.Background(), "u1", rec.ID)
				require.NoError(t, gerr)

				if legal[[2]constants.RetentionStatus{from, to}] {
					require.NoError(t, err)
					assert.Equal(t, to, got.Estado)
					assert.Equal(t, to, stored.Estado)
					return
				}
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrInvalidTransition)
				assert.Equal(t, from, stored.Estado, "estado must be unchanged")
			})
		}
	}
}

func TestChangeStatus_SolicitadoToAnuladoRejected(t *testing.T) {
	store := repository.NewMemoryStore(nil)
	m := NewManager(store, nil)
	rec := seed(t, store, constants.StatusSolicitado)

	_, err := m.ChangeStatus(context.Background(), "u1", rec.ID, constants.StatusAnulado)
	assert.ErrorIs(t, err, common.ErrInvalidTransition)

	stored, err := store.Get(context.Background(), "u1", rec.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusSolicitado, stored.Estado)
}

func TestChangeStatus_NotFoundAndInvalid(t *testing.T) {
	m := NewManager(repository.NewMemoryStore(nil), nil)

	_, err := m.ChangeStatus(context.Background(), "u1", "nope", constants.StatusAnulado)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = m.ChangeStatus(context.Background(), "u1", "nope", "Perdido")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestApply(t *testing.T) {
	store := repository.NewMemoryStore(nil)
	m := NewManager(store, nil)
	rec := seed(t, store, constants.StatusSolicitado)
	ctx := context.Background()

	got, err := m.Apply(ctx, "u1", rec.ID, EventMarkPending)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusPendienteAnular, got.Estado)

	got, err = m.Apply(ctx, "u1", rec.ID, EventMarkVoided)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusAnulado, got.Estado)

	_, err = m.Apply(ctx, "u1", rec.ID, EventMarkVoided)
	assert.ErrorIs(t, err, common.ErrInvalidTransition)

	got, err = m.Apply(ctx, "u1", rec.ID, EventRevert)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusPendienteAnular, got.Estado)
}

func TestActions(t *testing.T) {
	labels := func(as []Action) []string {
		var out []string
		for _, a := range as {
			out = append(out, a.Label)
		}
		return out
	}
	assert.Equal(t, []string{"Marcar Pendiente Anular", DeleteLabel}, labels(Actions(constants.StatusSolicitado)))
	assert.Equal(t, []string{"Revertir a Solicitado", "Marcar como Anulado", DeleteLabel}, labels(Actions(constants.StatusPendienteAnular)))
	assert.Equal(t, []string{"Revertir a Pendiente Anular", DeleteLabel}, labels(Actions(constants.StatusAnulado)))
	assert.Equal(t, []string{DeleteLabel}, labels(Actions("")))

	for _, st := range constants.AllStatuses {
		for _, a := range Actions(st) {
			if a.Delete {
				continue
			}
			_, ok := Lookup(st, a.Target)
			assert.True(t, ok, "menu offers only legal edges")
		}
	}
}

func TestDelete_AnyState(t *testing.T) {
	for _, st := range constants.AllStatuses {
		store := repository.NewMemoryStore(nil)
		m := NewManager(store, nil)
		rec := seed(t, store, st)

		require.NoError(t, m.Delete(context.Background(), "u1", rec.ID))
		_, err := store.Get(context.Background(), "u1", rec.ID)
		assert.ErrorIs(t, err, common.ErrNotFound)
		require.NoError(t, m.Delete(context.Background(), "u1", rec.ID))
	}
}

func TestParseEvent(t *testing.T) {
	ev, ok := ParseEvent("revert")
	assert.True(t, ok)
	assert.Equal(t, EventRevert, ev)
	_, ok = ParseEvent("archive")
	assert.False(t, ok)
}
