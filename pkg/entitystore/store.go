package entitystore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/storefront/pkg/kvstore"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/observable"
)

// Store caches one owner's collection of T, keeps it in sync with a
// Repository and mirrors it into durable storage under "<name>_<ownerID>".
//
// Add, Remove and Clear are pessimistic: the server is mutated first and the
// collection reloaded. UpdateQuantity is optimistic and rolls back on failure.
// Store is safe for concurrent use.
type Store[T Item] struct {
	repo    Repository[T]
	owner   OwnerResolver
	storage kvstore.Storage
	logger  *slog.Logger
	now     func() time.Time
	changes *observable.Value[Collection[T]]
	coll    *Collection[T]
	name    string
	loads   singleflight.Group

	staleAfter time.Duration
	epoch      uint64

	// mu guards coll and epoch. It is held across envelope writes, never
	// across repository calls.
	mu sync.RWMutex
	// mutate serializes mutations, including their repository calls.
	mutate sync.Mutex
}

// New creates a Store named name (for example "cart").
func New[T Item](name string, repo Repository[T], owner OwnerResolver, storage kvstore.Storage, opts ...Option) *Store[T] {
	o := options{
		logger:     logger.NewNope(),
		now:        time.Now,
		staleAfter: DefaultStaleAfter,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Store[T]{
		repo:       repo,
		owner:      owner,
		storage:    storage,
		logger:     o.logger.With(slog.String("store", name)),
		now:        o.now,
		changes:    observable.New(Collection[T]{}),
		name:       name,
		staleAfter: o.staleAfter,
	}
}

// Name returns the store name, which is also the envelope key prefix.
func (s *Store[T]) Name() string {
	return s.name
}

// InitializeFromCache populates the store from the current owner's envelope.
// It is a no-op when the store already holds that owner's collection or no
// owner is known, and it never calls the repository. Unreadable envelopes
// are treated as absent.
func (s *Store[T]) InitializeFromCache(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// The owner is read under the lock so that a Reset racing with a
	// logout cannot be followed by a restore for the old owner.
	s.mu.Lock()
	owner, ok := s.owner.OwnerID()
	if !ok {
		s.mu.Unlock()
		return nil
	}
	if s.coll != nil && s.coll.OwnerID == owner {
		s.mu.Unlock()
		return nil
	}

	coll, ok := s.readEnvelope(ctx, owner)
	if !ok {
		s.mu.Unlock()
		return nil
	}
	s.coll = &coll
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "restored from cache",
		slog.Int64("owner_id", owner),
		slog.Int("items", len(coll.Items)),
	)
	s.publish()
	return nil
}

// Load replaces the collection with the repository's copy and persists it.
//
// Without an owner the in-memory collection is dropped and nil returned.
// Concurrent loads for the same owner share one repository call. A result
// that arrives after Reset or an owner change is discarded, though a
// discarded failure is still returned. On failure the stale copy is kept,
// or an empty unpersisted collection is installed when there was none, and
// the error is returned wrapped in ErrLoadFailed.
func (s *Store[T]) Load(ctx context.Context) error {
	owner, ok := s.owner.OwnerID()
	if !ok {
		s.mu.Lock()
		dropped := s.coll != nil
		s.coll = nil
		s.mu.Unlock()
		if dropped {
			s.publish()
		}
		return nil
	}

	s.mu.RLock()
	epoch := s.epoch
	s.mu.RUnlock()

	key := strconv.FormatInt(owner, 10) + "/" + strconv.FormatUint(epoch, 10)
	v, err, _ := s.loads.Do(key, func() (any, error) {
		return s.repo.List(ctx)
	})

	s.mu.Lock()
	current, ok := s.owner.OwnerID()
	if s.epoch != epoch || !ok || current != owner {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "discarding late load result", slog.Int64("owner_id", owner))
		if err != nil {
			return errors.Join(ErrLoadFailed, err)
		}
		return nil
	}

	if err != nil {
		if s.coll == nil || s.coll.OwnerID != owner {
			s.coll = &Collection[T]{OwnerID: owner, Items: []T{}}
		}
		s.mu.Unlock()
		s.logger.WarnContext(ctx, "load failed", slog.Int64("owner_id", owner), slog.String("error", err.Error()))
		s.publish()
		return errors.Join(ErrLoadFailed, err)
	}

	items, dropped := dedupe(v.([]T))
	if dropped > 0 {
		s.logger.WarnContext(ctx, "repository returned duplicate items", slog.Int("dropped", dropped))
	}
	coll := &Collection[T]{OwnerID: owner, Items: items, UpdatedAt: s.now()}
	s.coll = coll
	s.persistLocked(ctx, coll)
	s.mu.Unlock()

	s.publish()
	return nil
}

// Add puts qty units of productID on the server, then reloads.
func (s *Store[T]) Add(ctx context.Context, productID int64, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	return s.mutateAndLoad(ctx, "add", func(ctx context.Context) error {
		return s.repo.Add(ctx, productID, qty)
	})
}

// Remove deletes productID on the server, then reloads.
func (s *Store[T]) Remove(ctx context.Context, productID int64) error {
	return s.mutateAndLoad(ctx, "remove", func(ctx context.Context) error {
		return s.repo.Remove(ctx, productID)
	})
}

// Clear empties the collection on the server, then reloads.
func (s *Store[T]) Clear(ctx context.Context) error {
	return s.mutateAndLoad(ctx, "clear", s.repo.Clear)
}

// mutateAndLoad runs a pessimistic mutation. On failure local state is left
// untouched.
func (s *Store[T]) mutateAndLoad(ctx context.Context, op string, call func(context.Context) error) error {
	if _, ok := s.owner.OwnerID(); !ok {
		return ErrUnauthenticated
	}

	s.mutate.Lock()
	defer s.mutate.Unlock()

	if err := call(ctx); err != nil {
		s.logger.WarnContext(ctx, "mutation failed", slog.String("op", op), slog.String("error", err.Error()))
		return errors.Join(ErrMutationFailed, err)
	}
	return s.Load(ctx)
}

// UpdateQuantity sets the quantity of a cached item optimistically. The new
// value is applied and persisted before the repository call; if the call
// fails the previous collection is restored and persisted again.
func (s *Store[T]) UpdateQuantity(ctx context.Context, productID int64, qty int) error {
	var zero T
	if _, ok := any(zero).(Quantified[T]); !ok {
		return ErrQuantityUnsupported
	}
	if qty < 1 {
		return ErrInvalidQuantity
	}
	owner, ok := s.owner.OwnerID()
	if !ok {
		return ErrUnauthenticated
	}

	s.mutate.Lock()
	defer s.mutate.Unlock()

	s.mu.Lock()
	if s.coll == nil || s.coll.OwnerID != owner {
		s.mu.Unlock()
		return ErrItemNotFound
	}
	item, idx := s.coll.Find(productID)
	if idx < 0 {
		s.mu.Unlock()
		return ErrItemNotFound
	}

	previous := s.coll
	next := previous.Clone()
	next.Items[idx] = any(item).(Quantified[T]).WithQuantity(qty)
	applied := &next
	s.coll = applied
	s.persistLocked(ctx, applied)
	s.mu.Unlock()
	s.publish()

	err := s.repo.UpdateQuantity(ctx, productID, qty)
	if err == nil {
		return nil
	}

	s.mu.Lock()
	// A reset or a fresh load since the optimistic write owns the state now.
	rolledBack := s.coll == applied
	if rolledBack {
		s.coll = previous
		s.persistLocked(ctx, previous)
	}
	s.mu.Unlock()

	s.logger.WarnContext(ctx, "quantity update failed",
		slog.Int64("product_id", productID),
		slog.Bool("rolled_back", rolledBack),
		slog.String("error", err.Error()),
	)
	if rolledBack {
		s.publish()
	}
	return errors.Join(ErrMutationFailed, err)
}

// ShouldRefreshFromDatabase reports whether the collection is missing, empty,
// held for another owner, or older than the staleness threshold.
func (s *Store[T]) ShouldRefreshFromDatabase() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.coll == nil || len(s.coll.Items) == 0 {
		return true
	}
	if owner, ok := s.owner.OwnerID(); !ok || owner != s.coll.OwnerID {
		return true
	}
	return s.now().Sub(s.coll.UpdatedAt) > s.staleAfter
}

// Reset drops the in-memory collection, invalidates in-flight loads, and
// removes the envelope of the owner it belonged to. A non-zero owner names
// a further envelope to remove, which covers a session that ended before
// this store loaded anything.
func (s *Store[T]) Reset(ctx context.Context, owner int64) error {
	s.mu.Lock()
	s.epoch++
	previous := s.coll
	s.coll = nil

	var owners []int64
	if previous != nil {
		owners = append(owners, previous.OwnerID)
	}
	if owner != 0 && (previous == nil || previous.OwnerID != owner) {
		owners = append(owners, owner)
	}

	var errs []error
	for _, id := range owners {
		if err := s.storage.Remove(ctx, s.key(id)); err != nil {
			errs = append(errs, err)
		}
	}
	s.mu.Unlock()

	if previous != nil {
		s.logger.DebugContext(ctx, "reset", slog.Int64("owner_id", previous.OwnerID))
		s.publish()
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrPersistFailed}, errs...)...)
	}
	return nil
}

// Populated reports whether the store holds a collection.
func (s *Store[T]) Populated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coll != nil
}

// Snapshot returns a copy of the collection, or the zero Collection when
// the store is empty.
func (s *Store[T]) Snapshot() Collection[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.coll == nil {
		return Collection[T]{}
	}
	return s.coll.Clone()
}

// Items returns a copy of the cached items.
func (s *Store[T]) Items() []T {
	return s.Snapshot().Items
}

// Contains reports whether productID is cached.
func (s *Store[T]) Contains(productID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.coll == nil {
		return false
	}
	_, idx := s.coll.Find(productID)
	return idx >= 0
}

// TotalCount returns the collection's total quantity.
func (s *Store[T]) TotalCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.coll == nil {
		return 0
	}
	return s.coll.TotalCount()
}

// Subscribe calls fn with the current collection and then on every change.
func (s *Store[T]) Subscribe(fn func(Collection[T])) (unsubscribe func()) {
	return s.changes.Subscribe(fn, true)
}

func (s *Store[T]) publish() {
	s.changes.Publish(s.Snapshot)
}

func (s *Store[T]) key(owner int64) string {
	return fmt.Sprintf("%s_%d", s.name, owner)
}

func (s *Store[T]) readEnvelope(ctx context.Context, owner int64) (Collection[T], bool) {
	coll, err := kvstore.GetJSON[Collection[T]](ctx, s.storage, s.key(owner))
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			s.logger.WarnContext(ctx, "ignoring unreadable envelope", slog.String("error", err.Error()))
		}
		return Collection[T]{}, false
	}
	if coll.OwnerID != owner {
		s.logger.WarnContext(ctx, "ignoring envelope of another owner",
			slog.Int64("owner_id", owner),
			slog.Int64("envelope_owner_id", coll.OwnerID),
		)
		return Collection[T]{}, false
	}
	if coll.Items == nil {
		coll.Items = []T{}
	}
	return coll, true
}

// persistLocked writes the envelope. A failed write costs durability only.
func (s *Store[T]) persistLocked(ctx context.Context, coll *Collection[T]) {
	if err := kvstore.SetJSON(ctx, s.storage, s.key(coll.OwnerID), coll); err != nil {
		s.logger.WarnContext(ctx, "persist envelope", slog.String("error", err.Error()))
	}
}
