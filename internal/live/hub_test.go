package live

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinochelo/extractor/internal/common"
	"github.com/vinochelo/extractor/internal/entity"
	"github.com/vinochelo/extractor/internal/repository"
)

func newRetention(numero string) entity.NewRetention {
	return entity.NewRetention{Data: entity.RetentionData{
		NumeroRetencion: numero, NumeroAutorizacion: "A", RazonSocialProveedor: "R",
		RucProveedor: "1790000000001", NumeroFactura: "F", FechaEmision: "D",
	}}
}

func collect() (func(Snapshot), func() []Snapshot) {
	var mu sync.Mutex
	var got []Snapshot
	return func(s Snapshot) {
			mu.Lock()
			got = append(got, s)
			mu.Unlock()
		}, func() []Snapshot {
			mu.Lock()
			defer mu.Unlock()
			return append([]Snapshot(nil), got...)
		}
}

func TestHub_InitialAndUpdatedSnapshots(t *testing.T) {
	base := repository.NewMemoryStore(nil)
	hub := NewHub(base, nil)
	defer hub.Close()
	store := Wrap(base, hub)
	ctx := context.Background()

	_, err := store.Create(ctx, "u1", newRetention("old"))
	require.NoError(t, err)

	fn, snaps := collect()
	unsubscribe, err := hub.Subscribe("u1", fn)
	require.NoError(t, err)
	defer unsubscribe()

	require.Eventually(t, func() bool { return len(snaps()) >= 1 }, time.Second, 5*time.Millisecond)
	first := snaps()[0]
	require.NoError(t, first.Err)
	require.Len(t, first.Records, 1)

	created, err := store.Create(ctx, "u1", newRetention("new"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s := snaps()
		last := s[len(s)-1]
		return len(last.Records) == 2
	}, time.Second, 5*time.Millisecond)
	s := snaps()
	last := s[len(s)-1]
	assert.Equal(t, created.ID, last.Records[0].ID, "newest record first")
	assert.Greater(t, last.Seq, first.Seq)
}

func TestHub_OtherOwnersAreNotNotified(t *testing.T) {
	base := repository.NewMemoryStore(nil)
	hub := NewHub(base, nil)
	defer hub.Close()
	store := Wrap(base, hub)

	fn, snaps := collect()
	unsubscribe, err := hub.Subscribe("u1", fn)
	require.NoError(t, err)
	defer unsubscribe()
	require.Eventually(t, func() bool { return len(snaps()) == 1 }, time.Second, 5*time.Millisecond)

	_, err = store.Create(context.Background(), "u2", newRetention("x"))
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	require.Len(t, snaps(), 1)
	assert.Empty(t, snaps()[0].Records)
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	base := repository.NewMemoryStore(nil)
	hub := NewHub(base, nil)
	defer hub.Close()
	store := Wrap(base, hub)

	fn, snaps := collect()
	unsubscribe, err := hub.Subscribe("u1", fn)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(snaps()) == 1 }, time.Second, 5*time.Millisecond)

	unsubscribe()
	unsubscribe()
	assert.Zero(t, hub.Subscribers("u1"))

	_, err = store.Create(context.Background(), "u1", newRetention("x"))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, snaps(), 1)
}

func TestHub_UnsubscribeFromCallback(t *testing.T) {
	base := repository.NewMemoryStore(nil)
	hub := NewHub(base, nil)
	defer hub.Close()

	var calls atomic.Int32
	var unsubscribe func()
	ready := make(chan struct{})
	var err error
	unsubscribe, err = hub.Subscribe("u1", func(Snapshot) {
		<-ready
		calls.Add(1)
		unsubscribe()
	})
	require.NoError(t, err)
	close(ready)

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	hub.Notify("u1")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

type failingLister struct{}

func (failingLister) List(context.Context, string) ([]entity.RetentionRecord, error) {
	return nil, errors.New("offline")
}

func TestHub_ReadErrorIsDelivered(t *testing.T) {
	hub := NewHub(failingLister{}, nil)
	defer hub.Close()

	fn, snaps := collect()
	unsubscribe, err := hub.Subscribe("u1", fn)
	require.NoError(t, err)
	defer unsubscribe()

	require.Eventually(t, func() bool { return len(snaps()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Error(t, snaps()[0].Err)
	assert.Nil(t, snaps()[0].Records)
}

func TestHub_Validation(t *testing.T) {
	hub := NewHub(repository.NewMemoryStore(nil), nil)
	_, err := hub.Subscribe("", func(Snapshot) {})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	_, err = hub.Subscribe("u1", nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	hub.Close()
	_, err = hub.Subscribe("u1", func(Snapshot) {})
	assert.Error(t, err)
}

func TestHub_Watch(t *testing.T) {
	base := repository.NewMemoryStore(nil)
	hub := NewHub(base, nil)
	defer hub.Close()
	store := Wrap(base, hub)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := hub.Watch(ctx, "u1")
	require.NoError(t, err)

	select {
	case s := <-ch:
		assert.Empty(t, s.Records)
	case <-time.After(time.Second):
		t.Fatal("no initial snapshot")
	}

	_, err = store.Create(ctx, "u1", newRetention("x"))
	require.NoError(t, err)
	select {
	case s := <-ch:
		assert.Len(t, s.Records, 1)
	case <-time.After(time.Second):
		t.Fatal("no update snapshot")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestWrap_FailedWriteDoesNotNotify(t *testing.T) {
	base := repository.NewMemoryStore(nil)
	hub := NewHub(base, nil)
	defer hub.Close()
	store := Wrap(base, hub)

	fn, snaps := collect()
	unsubscribe, err := hub.Subscribe("u1", fn)
	require.NoError(t, err)
	defer unsubscribe()
	require.Eventually(t, func() bool { return len(snaps()) == 1 }, time.Second, 5*time.Millisecond)

	_, err = store.Update(context.Background(), "u1", "missing", entity.RetentionPatch{})
	require.Error(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, snaps(), 1)
}
