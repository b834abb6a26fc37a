package live

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vinochelo/extractor/internal/common"
	"github.com/vinochelo/extractor/internal/entity"
)

// Lister is the store read a snapshot is built from.
type Lister interface {
	List(ctx context.Context, ownerID string) ([]entity.RetentionRecord, error)
}

// Snapshot is one emission of an owner's ordered history. Err is set when
// the read failed; Records is then nil.
type Snapshot struct {
	OwnerID string
	Seq     uint64
	Records []entity.RetentionRecord
	Err     error
}

// Hub fans store changes out to per-owner subscribers. Each subscription
// gets an initial snapshot and then one snapshot after every burst of
// changes; bursts are coalesced, so slow callbacks never queue stale work.
type Hub struct {
	lister Lister
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[string]map[*subscription]struct{}
	closed bool
}

type subscription struct {
	owner  string
	fn     func(Snapshot)
	signal chan struct{}
	done   chan struct{}
	closed atomic.Bool
	once   sync.Once
	seq    uint64
}

func NewHub(lister Lister, logger *slog.Logger) *Hub {
	return &Hub{
		lister: lister,
		logger: common.LoggerOrDefault(logger),
		subs:   make(map[string]map[*subscription]struct{}),
	}
}

// Subscribe registers onSnapshot for ownerID and returns the teardown
// function. Callbacks for one subscription never run concurrently. Once
// unsubscribe returns, only a snapshot already being handed over can still
// arrive. Unsubscribe is idempotent and may be called from the callback.
func (h *Hub) Subscribe(ownerID string, onSnapshot func(Snapshot)) (func(), error) {
	if err := common.NewValidator().Field("ownerId", ownerID, common.Required).Err(); err != nil {
		return nil, err
	}
	if onSnapshot == nil {
		return nil, common.InvalidInputf("snapshot callback is required")
	}

	sub := &subscription{
		owner:  ownerID,
		fn:     onSnapshot,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	sub.signal <- struct{}{}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, common.NewAppError(common.CodeInternal, "live hub is closed", nil)
	}
	set, ok := h.subs[ownerID]
	if !ok {
		set = make(map[*subscription]struct{})
		h.subs[ownerID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	go h.run(sub)
	h.logger.Debug("live.subscribe", "owner", ownerID)
	return func() { h.remove(sub) }, nil
}

// Watch is Subscribe as a channel. The channel holds the latest snapshot
// only and is closed when ctx ends.
func (h *Hub) Watch(ctx context.Context, ownerID string) (<-chan Snapshot, error) {
	out := make(chan Snapshot, 1)
	var mu sync.Mutex
	finished := false
	unsubscribe, err := h.Subscribe(ownerID, func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if finished {
			return
		}
		select {
		case <-out:
		default:
		}
		out <- s
	})
	if err != nil {
		return nil, err
	}
	go func() {
		<-ctx.Done()
		unsubscribe()
		mu.Lock()
		finished = true
		close(out)
		mu.Unlock()
	}()
	return out, nil
}

// Notify marks ownerID's history as changed.
func (h *Hub) Notify(ownerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[ownerID] {
		select {
		case sub.signal <- struct{}{}:
		default:
		}
	}
}

// Close stops every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*subscription
	for _, set := range h.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	h.subs = make(map[string]map[*subscription]struct{})
	h.mu.Unlock()

	for _, sub := range all {
		sub.stop()
	}
}

// Subscribers reports how many live subscriptions ownerID has.
func (h *Hub) Subscribers(ownerID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[ownerID])
}

func (h *Hub) remove(sub *subscription) {
	h.mu.Lock()
	if set, ok := h.subs[sub.owner]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.owner)
		}
	}
	h.mu.Unlock()
	sub.stop()
	h.logger.Debug("live.unsubscribe", "owner", sub.owner)
}

func (s *subscription) stop() {
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.done)
	})
}

func (h *Hub) run(sub *subscription) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-sub.done
		cancel()
	}()

	for {
		select {
		case <-sub.done:
			return
		case <-sub.signal:
		}

		recs, err := h.lister.List(ctx, sub.owner)
		if sub.closed.Load() {
			return
		}
		sub.seq++
		snap := Snapshot{OwnerID: sub.owner, Seq: sub.seq, Records: recs, Err: err}
		if err != nil {
			h.logger.Warn("live.snapshot.failed", "owner", sub.owner, "error", err)
			snap.Records = nil
		}
		sub.fn(snap)
	}
}
