package entitystore_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/entitystore"
	"github.com/dmitrymomot/storefront/pkg/kvstore"
	"github.com/dmitrymomot/storefront/pkg/shop"
)

var errServer = errors.New("server error")

// fakeRepo is an in-memory cart repository with failure switches.
type fakeRepo struct {
	listErr   error
	mutateErr error
	block     chan struct{}
	// hold runs before UpdateQuantity applies; it may block or fail it.
	hold      func(productID int64) error
	items     []shop.CartItem
	lists     atomic.Int32
	mu        sync.Mutex
}

func (r *fakeRepo) List(ctx context.Context) ([]shop.CartItem, error) {
	r.lists.Add(1)
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	return append([]shop.CartItem(nil), r.items...), nil
}

func (r *fakeRepo) Add(_ context.Context, productID int64, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mutateErr != nil {
		return r.mutateErr
	}
	for i, it := range r.items {
		if it.ProductID == productID {
			r.items[i].Quantity += qty
			return nil
		}
	}
	r.items = append(r.items, shop.CartItem{ProductID: productID, Quantity: qty})
	return nil
}

func (r *fakeRepo) UpdateQuantity(_ context.Context, productID int64, qty int) error {
	if r.hold != nil {
		if err := r.hold(productID); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mutateErr != nil {
		return r.mutateErr
	}
	for i, it := range r.items {
		if it.ProductID == productID {
			r.items[i].Quantity = qty
			return nil
		}
	}
	return errServer
}

func (r *fakeRepo) Remove(_ context.Context, productID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mutateErr != nil {
		return r.mutateErr
	}
	for i, it := range r.items {
		if it.ProductID == productID {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeRepo) Clear(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mutateErr != nil {
		return r.mutateErr
	}
	r.items = nil
	return nil
}

func (r *fakeRepo) set(fn func(r *fakeRepo)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r)
}

// owner is a switchable OwnerResolver.
type owner struct {
	id atomic.Int64
}

func newOwner(id int64) *owner {
	o := &owner{}
	o.id.Store(id)
	return o
}

func (o *owner) OwnerID() (int64, bool) {
	id := o.id.Load()
	return id, id != 0
}

func threeItems() []shop.CartItem {
	return []shop.CartItem{
		{ProductID: 1, Quantity: 1, Product: &shop.Product{ID: 1, Name: "Mug", Price: 900, Currency: "EUR"}},
		{ProductID: 2, Quantity: 3, Product: &shop.Product{ID: 2, Name: "Tee", Price: 2500, Currency: "EUR"}},
		{ProductID: 3, Quantity: 2, Product: &shop.Product{ID: 3, Name: "Cap", Price: 1500, Currency: "EUR"}},
	}
}

func newCart(repo *fakeRepo, o entitystore.OwnerResolver, st kvstore.Storage, opts ...entitystore.Option) *entitystore.Store[shop.CartItem] {
	return entitystore.New[shop.CartItem]("cart", repo, o, st, opts...)
}

func TestStore_LoadPersistsEnvelope(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := kvstore.NewMemory()
	repo := &fakeRepo{items: threeItems()}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cart := newCart(repo, newOwner(42), st, entitystore.WithClock(func() time.Time { return now }))
	require.Equal(t, "cart", cart.Name())
	require.False(t, cart.Populated())

	require.NoError(t, cart.Load(ctx))
	require.True(t, cart.Populated())
	require.Equal(t, 6, cart.TotalCount())
	require.True(t, cart.Contains(2))
	require.False(t, cart.Contains(9))

	env, err := kvstore.GetJSON[entitystore.Collection[shop.CartItem]](ctx, st, "cart_42")
	require.NoError(t, err)
	require.EqualValues(t, 42, env.OwnerID)
	require.True(t, now.Equal(env.UpdatedAt))
	require.Equal(t, threeItems(), env.Items)
}

func TestStore_EnvelopeRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := kvstore.NewMemory()
	repo := &fakeRepo{items: threeItems()}

	first := newCart(repo, newOwner(42), st)
	require.NoError(t, first.Load(ctx))
	want := first.Snapshot()

	// A second store over the same storage plays the role of a reload.
	offline := &fakeRepo{listErr: errServer}
	reloaded := newCart(offline, newOwner(42), st)
	require.NoError(t, reloaded.InitializeFromCache(ctx))

	got := reloaded.Snapshot()
	require.Equal(t, want.OwnerID, got.OwnerID)
	require.Equal(t, want.Items, got.Items)
	require.True(t, want.UpdatedAt.Equal(got.UpdatedAt))
	require.Zero(t, offline.lists.Load(), "cache restore must not hit the network")
}

func TestStore_InitializeFromCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("ignores envelope of another owner", func(t *testing.T) {
		t.Parallel()

		st := kvstore.NewMemory()
		require.NoError(t, st.Set(ctx, "cart_42", []byte(`{"owner_id":7,"items":[{"product_id":1,"quantity":1}],"updated_at":"2026-01-01T00:00:00Z"}`)))

		cart := newCart(&fakeRepo{}, newOwner(42), st)
		require.NoError(t, cart.InitializeFromCache(ctx))
		require.False(t, cart.Populated())
		require.True(t, cart.ShouldRefreshFromDatabase())
	})

	t.Run("ignores malformed envelope", func(t *testing.T) {
		t.Parallel()

		st := kvstore.NewMemory()
		require.NoError(t, st.Set(ctx, "cart_42", []byte(`{not json`)))

		cart := newCart(&fakeRepo{}, newOwner(42), st)
		require.NoError(t, cart.InitializeFromCache(ctx))
		require.False(t, cart.Populated())
	})

	t.Run("no owner is a no-op", func(t *testing.T) {
		t.Parallel()

		cart := newCart(&fakeRepo{}, newOwner(0), kvstore.NewMemory())
		require.NoError(t, cart.InitializeFromCache(ctx))
		require.False(t, cart.Populated())
	})

	t.Run("does not overwrite loaded state", func(t *testing.T) {
		t.Parallel()

		st := kvstore.NewMemory()
		repo := &fakeRepo{items: threeItems()}
		cart := newCart(repo, newOwner(42), st)
		require.NoError(t, cart.Load(ctx))

		require.NoError(t, st.Set(ctx, "cart_42", []byte(`{"owner_id":42,"items":[],"updated_at":"2020-01-01T00:00:00Z"}`)))
		require.NoError(t, cart.InitializeFromCache(ctx))
		require.Len(t, cart.Items(), 3)
	})
}

func TestStore_UpdateQuantityRollback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := kvstore.NewMemory()
	repo := &fakeRepo{items: threeItems()}
	cart := newCart(repo, newOwner(42), st)
	require.NoError(t, cart.Load(ctx))

	before := cart.Snapshot()
	envBefore, err := st.Get(ctx, "cart_42")
	require.NoError(t, err)

	var seen []int
	unsubscribe := cart.Subscribe(func(c entitystore.Collection[shop.CartItem]) {
		if it, idx := c.Find(2); idx >= 0 {
			seen = append(seen, it.Quantity)
		}
	})
	defer unsubscribe()

	repo.set(func(r *fakeRepo) { r.mutateErr = errServer })
	err = cart.UpdateQuantity(ctx, 2, 10)
	require.ErrorIs(t, err, entitystore.ErrMutationFailed)
	require.ErrorIs(t, err, errServer)

	require.Equal(t, before, cart.Snapshot())
	envAfter, err := st.Get(ctx, "cart_42")
	require.NoError(t, err)
	require.Equal(t, envBefore, envAfter)

	require.Equal(t, []int{3, 10, 3}, seen, "optimistic value is published, then rolled back")
}

func TestStore_UpdateQuantityRollbackKeepsConcurrentEdit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := kvstore.NewMemory()
	release := make(chan error)
	entered := make(chan int64, 2)
	repo := &fakeRepo{items: threeItems()}
	repo.hold = func(productID int64) error {
		entered <- productID
		if productID == 1 {
			return <-release
		}
		return nil
	}
	cart := newCart(repo, newOwner(42), st)
	require.NoError(t, cart.Load(ctx))

	first := make(chan error, 1)
	go func() { first <- cart.UpdateQuantity(ctx, 1, 5) }()
	require.EqualValues(t, 1, <-entered)

	it, _ := cart.Snapshot().Find(1)
	require.Equal(t, 5, it.Quantity, "optimistic value is visible while the request is pending")

	second := make(chan error, 1)
	go func() { second <- cart.UpdateQuantity(ctx, 2, 7) }()
	require.Never(t, func() bool { return len(entered) > 0 }, 50*time.Millisecond, time.Millisecond,
		"second edit waits for the first request")

	release <- errServer
	require.ErrorIs(t, <-first, entitystore.ErrMutationFailed)
	require.EqualValues(t, 2, <-entered)
	require.NoError(t, <-second)

	snap := cart.Snapshot()
	first1, _ := snap.Find(1)
	second2, _ := snap.Find(2)
	require.Equal(t, 1, first1.Quantity, "failed edit is rolled back")
	require.Equal(t, 7, second2.Quantity, "concurrent edit survives the rollback")

	env, err := kvstore.GetJSON[entitystore.Collection[shop.CartItem]](ctx, st, "cart_42")
	require.NoError(t, err)
	require.Equal(t, snap.OwnerID, env.OwnerID)
	require.Equal(t, snap.Items, env.Items)
	require.True(t, snap.UpdatedAt.Equal(env.UpdatedAt))
}

func TestStore_UpdateQuantity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("applies and persists", func(t *testing.T) {
		t.Parallel()

		st := kvstore.NewMemory()
		repo := &fakeRepo{items: threeItems()}
		cart := newCart(repo, newOwner(42), st)
		require.NoError(t, cart.Load(ctx))

		require.NoError(t, cart.UpdateQuantity(ctx, 1, 4))
		it, idx := cart.Snapshot().Find(1)
		require.GreaterOrEqual(t, idx, 0)
		require.Equal(t, 4, it.Quantity)
		require.Equal(t, 9, cart.TotalCount())

		env, err := kvstore.GetJSON[entitystore.Collection[shop.CartItem]](ctx, st, "cart_42")
		require.NoError(t, err)
		stored, _ := env.Find(1)
		require.Equal(t, 4, stored.Quantity)
	})

	t.Run("preconditions", func(t *testing.T) {
		t.Parallel()

		cart := newCart(&fakeRepo{items: threeItems()}, newOwner(42), kvstore.NewMemory())
		require.ErrorIs(t, cart.UpdateQuantity(ctx, 1, 2), entitystore.ErrItemNotFound, "empty store")

		require.NoError(t, cart.Load(ctx))
		require.ErrorIs(t, cart.UpdateQuantity(ctx, 99, 2), entitystore.ErrItemNotFound)
		require.ErrorIs(t, cart.UpdateQuantity(ctx, 1, 0), entitystore.ErrInvalidQuantity)

		anon := newCart(&fakeRepo{}, newOwner(0), kvstore.NewMemory())
		require.ErrorIs(t, anon.UpdateQuantity(ctx, 1, 2), entitystore.ErrUnauthenticated)
	})

	t.Run("wishlist has no quantity", func(t *testing.T) {
		t.Parallel()

		wishlist := entitystore.New[shop.WishlistItem]("wishlist", nil, newOwner(42), kvstore.NewMemory())
		require.ErrorIs(t, wishlist.UpdateQuantity(ctx, 1, 2), entitystore.ErrQuantityUnsupported)
	})
}

func TestStore_PessimisticMutations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("add reloads", func(t *testing.T) {
		t.Parallel()

		repo := &fakeRepo{}
		cart := newCart(repo, newOwner(42), kvstore.NewMemory())
		require.NoError(t, cart.Load(ctx))

		require.NoError(t, cart.Add(ctx, 5, 2))
		require.True(t, cart.Contains(5))
		require.Equal(t, 2, cart.TotalCount())
		require.EqualValues(t, 2, repo.lists.Load())

		require.NoError(t, cart.Remove(ctx, 5))
		require.False(t, cart.Contains(5))

		require.NoError(t, cart.Add(ctx, 1, 1))
		require.NoError(t, cart.Clear(ctx))
		require.Empty(t, cart.Items())
		require.True(t, cart.Populated())
	})

	t.Run("failure leaves state untouched", func(t *testing.T) {
		t.Parallel()

		st := kvstore.NewMemory()
		repo := &fakeRepo{items: threeItems()}
		cart := newCart(repo, newOwner(42), st)
		require.NoError(t, cart.Load(ctx))
		before := cart.Snapshot()

		repo.set(func(r *fakeRepo) { r.mutateErr = errServer })
		require.ErrorIs(t, cart.Add(ctx, 9, 1), entitystore.ErrMutationFailed)
		require.ErrorIs(t, cart.Remove(ctx, 1), errServer)
		require.ErrorIs(t, cart.Clear(ctx), errServer)
		require.Equal(t, before, cart.Snapshot())
		require.EqualValues(t, 1, repo.lists.Load())
	})

	t.Run("requires owner and quantity", func(t *testing.T) {
		t.Parallel()

		cart := newCart(&fakeRepo{}, newOwner(0), kvstore.NewMemory())
		require.ErrorIs(t, cart.Add(ctx, 1, 1), entitystore.ErrUnauthenticated)
		require.ErrorIs(t, cart.Add(ctx, 1, 0), entitystore.ErrInvalidQuantity)
	})
}

func TestStore_LoadFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("empty store gets unpersisted empty collection", func(t *testing.T) {
		t.Parallel()

		st := kvstore.NewMemory()
		cart := newCart(&fakeRepo{listErr: errServer}, newOwner(42), st)

		err := cart.Load(ctx)
		require.ErrorIs(t, err, entitystore.ErrLoadFailed)
		require.ErrorIs(t, err, errServer)
		require.True(t, cart.Populated())
		require.Empty(t, cart.Items())
		require.True(t, cart.ShouldRefreshFromDatabase())
		require.Empty(t, st.Keys())
	})

	t.Run("stale copy is kept", func(t *testing.T) {
		t.Parallel()

		repo := &fakeRepo{items: threeItems()}
		cart := newCart(repo, newOwner(42), kvstore.NewMemory())
		require.NoError(t, cart.Load(ctx))

		repo.set(func(r *fakeRepo) { r.listErr = errServer })
		require.ErrorIs(t, cart.Load(ctx), entitystore.ErrLoadFailed)
		require.Len(t, cart.Items(), 3)
	})

	t.Run("anonymous load clears memory", func(t *testing.T) {
		t.Parallel()

		o := newOwner(42)
		repo := &fakeRepo{items: threeItems()}
		cart := newCart(repo, o, kvstore.NewMemory())
		require.NoError(t, cart.Load(ctx))

		o.id.Store(0)
		require.NoError(t, cart.Load(ctx))
		require.False(t, cart.Populated())
		require.EqualValues(t, 1, repo.lists.Load())
	})
}

func TestStore_DedupesItems(t *testing.T) {
	t.Parallel()

	items := append(threeItems(), shop.CartItem{ProductID: 2, Quantity: 7})
	cart := newCart(&fakeRepo{items: items}, newOwner(42), kvstore.NewMemory())
	require.NoError(t, cart.Load(context.Background()))

	require.Len(t, cart.Items(), 3)
	it, _ := cart.Snapshot().Find(2)
	require.Equal(t, 3, it.Quantity, "first occurrence wins")
}

func TestStore_Staleness(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var now atomic.Pointer[time.Time]
	now.Store(&base)
	clock := func() time.Time { return *now.Load() }

	cart := newCart(&fakeRepo{items: threeItems()}, newOwner(42), kvstore.NewMemory(), entitystore.WithClock(clock))
	require.True(t, cart.ShouldRefreshFromDatabase(), "unpopulated")

	require.NoError(t, cart.Load(ctx))
	require.False(t, cart.ShouldRefreshFromDatabase())

	at := func(d time.Duration) {
		ts := base.Add(d)
		now.Store(&ts)
	}

	at(299 * time.Second)
	require.False(t, cart.ShouldRefreshFromDatabase())

	at(301 * time.Second)
	require.True(t, cart.ShouldRefreshFromDatabase())

	t.Run("custom threshold", func(t *testing.T) {
		t.Parallel()

		fixed := base
		short := newCart(&fakeRepo{items: threeItems()}, newOwner(42), kvstore.NewMemory(),
			entitystore.WithClock(func() time.Time { return fixed }),
			entitystore.WithStaleAfter(time.Nanosecond),
		)
		require.NoError(t, short.Load(ctx))
		require.False(t, short.ShouldRefreshFromDatabase())
	})

	t.Run("empty collection is always refreshed", func(t *testing.T) {
		t.Parallel()

		empty := newCart(&fakeRepo{}, newOwner(42), kvstore.NewMemory())
		require.NoError(t, empty.Load(ctx))
		require.True(t, empty.ShouldRefreshFromDatabase())
	})
}

func TestStore_Reset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("removes envelope", func(t *testing.T) {
		t.Parallel()

		st := kvstore.NewMemory()
		cart := newCart(&fakeRepo{items: threeItems()}, newOwner(42), st)
		require.NoError(t, cart.Load(ctx))
		require.Equal(t, []string{"cart_42"}, st.Keys())

		require.NoError(t, cart.Reset(ctx, 0))
		require.False(t, cart.Populated())
		require.Zero(t, cart.TotalCount())
		require.Empty(t, st.Keys())
		require.NoError(t, cart.Reset(ctx, 0), "reset is idempotent")
	})

	t.Run("removes envelope of an owner that was never loaded", func(t *testing.T) {
		t.Parallel()

		st := kvstore.NewMemory()
		require.NoError(t, st.Set(ctx, "cart_42", []byte(`{"owner_id":42,"items":[{"product_id":1,"quantity":1}],"updated_at":"2026-01-01T00:00:00Z"}`)))
		require.NoError(t, st.Set(ctx, "cart_7", []byte(`{"owner_id":7,"items":[],"updated_at":"2026-01-01T00:00:00Z"}`)))

		cart := newCart(&fakeRepo{}, newOwner(0), st)
		require.NoError(t, cart.Reset(ctx, 42))
		require.False(t, cart.Populated())
		require.Equal(t, []string{"cart_7"}, st.Keys())
	})

	t.Run("removes loaded and named envelopes", func(t *testing.T) {
		t.Parallel()

		st := kvstore.NewMemory()
		require.NoError(t, st.Set(ctx, "cart_7", []byte(`{"owner_id":7,"items":[],"updated_at":"2026-01-01T00:00:00Z"}`)))
		cart := newCart(&fakeRepo{items: threeItems()}, newOwner(42), st)
		require.NoError(t, cart.Load(ctx))
		require.Equal(t, []string{"cart_42", "cart_7"}, st.Keys())

		require.NoError(t, cart.Reset(ctx, 7))
		require.Empty(t, st.Keys())
	})

	t.Run("late load is discarded", func(t *testing.T) {
		t.Parallel()

		st := kvstore.NewMemory()
		repo := &fakeRepo{items: threeItems(), block: make(chan struct{})}
		cart := newCart(repo, newOwner(42), st)

		done := make(chan error, 1)
		go func() { done <- cart.Load(ctx) }()
		require.Eventually(t, func() bool { return repo.lists.Load() == 1 }, time.Second, time.Millisecond)

		require.NoError(t, cart.Reset(ctx, 0))
		close(repo.block)

		require.NoError(t, <-done)
		require.False(t, cart.Populated())
		require.Empty(t, st.Keys())
	})

	t.Run("load for a previous owner is discarded", func(t *testing.T) {
		t.Parallel()

		st := kvstore.NewMemory()
		o := newOwner(42)
		repo := &fakeRepo{items: threeItems(), block: make(chan struct{})}
		cart := newCart(repo, o, st)

		done := make(chan error, 1)
		go func() { done <- cart.Load(ctx) }()
		require.Eventually(t, func() bool { return repo.lists.Load() == 1 }, time.Second, time.Millisecond)

		o.id.Store(7)
		close(repo.block)

		require.NoError(t, <-done)
		require.False(t, cart.Populated())
		require.Empty(t, st.Keys())
	})
}

func TestStore_ConcurrentLoadsShareRequest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := &fakeRepo{items: threeItems(), block: make(chan struct{})}
	cart := newCart(repo, newOwner(42), kvstore.NewMemory())

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for range 5 {
		wg.Go(func() { errs <- cart.Load(ctx) })
	}

	require.Eventually(t, func() bool { return repo.lists.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(repo.block)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, repo.lists.Load())
	require.Len(t, cart.Items(), 3)
}

func TestCollection_TotalCount(t *testing.T) {
	t.Parallel()

	cart := entitystore.Collection[shop.CartItem]{Items: threeItems()}
	require.Equal(t, 6, cart.TotalCount())

	wishlist := entitystore.Collection[shop.WishlistItem]{Items: []shop.WishlistItem{{ProductID: 1}, {ProductID: 2}}}
	require.Equal(t, 2, wishlist.TotalCount())
}
