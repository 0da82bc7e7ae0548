package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/session"
)

// Default timings.
const (
	DefaultInitDelay       = 100 * time.Millisecond
	DefaultStagger         = 50 * time.Millisecond
	DefaultRefreshSchedule = "@every 1m"
)

// Store is the part of an entity store the coordinator drives.
type Store interface {
	Name() string
	InitializeFromCache(ctx context.Context) error
	Load(ctx context.Context) error
	// Reset drops the store's collection and the durable copy of it, and
	// the durable copy kept for owner when owner is not zero.
	Reset(ctx context.Context, owner int64) error
	ShouldRefreshFromDatabase() bool
}

// Session is the observable session the coordinator follows.
type Session interface {
	Subscribe(fn func(session.State)) (unsubscribe func())
}

// observation is the part of the session state that drives initialization.
type observation struct {
	owner         int64
	ended         int64
	initialized   bool
	authenticated bool
}

// Coordinator initializes every store once per authenticated session and
// resets them when the session ends.
type Coordinator struct {
	sess     Session
	logger   *slog.Logger
	schedule cron.Schedule
	ctx      context.Context
	cancel   context.CancelFunc
	unsub    func()

	stores  []Store
	guards  map[string]bool
	ready   map[string]bool
	last    observation
	seen    bool
	gen     uint64
	delay   time.Duration
	stagger time.Duration

	// pending counts running initializations; idle is signaled on c.mu
	// when it drops to zero.
	pending int
	idle    *sync.Cond

	loops sync.WaitGroup
	mu    sync.Mutex
}

// New creates a Coordinator for stores. Stores are initialized in the given
// order, each delayed by one more stagger step than the previous.
func New(sess Session, stores []Store, opts ...Option) (*Coordinator, error) {
	c := &Coordinator{
		sess:    sess,
		logger:  logger.NewNope(),
		stores:  stores,
		guards:  make(map[string]bool, len(stores)),
		ready:   make(map[string]bool, len(stores)),
		delay:   DefaultInitDelay,
		stagger: DefaultStagger,
	}
	c.idle = sync.NewCond(&c.mu)

	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(stores))
	for _, s := range stores {
		if _, dup := seen[s.Name()]; dup {
			return nil, errors.Join(ErrDuplicateStore, errors.New(s.Name()))
		}
		seen[s.Name()] = struct{}{}
	}

	c.logger = c.logger.With(slog.String("component", "coordinator"))
	return c, nil
}

// Start subscribes to the session and, when a refresh schedule is set,
// starts the periodic refresher. The current session state is handled
// immediately.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.ctx != nil {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	if c.schedule != nil {
		c.loops.Go(c.refreshLoop)
	}

	unsub := c.sess.Subscribe(c.observe)

	c.mu.Lock()
	c.unsub = unsub
	c.mu.Unlock()
	return nil
}

// Stop unsubscribes, stops the refresher and waits for in-flight work.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	unsub, cancel := c.unsub, c.cancel
	c.unsub = nil
	c.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if cancel != nil {
		cancel()
	}
	c.loops.Wait()
	c.Wait()
}

// Wait blocks until in-flight store initializations finish. It may run
// concurrently with session transitions; initializations they start before
// Wait observes an idle coordinator are waited for too.
func (c *Coordinator) Wait() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pending > 0 {
		c.idle.Wait()
	}
}

// Initialized reports whether the named store completed initialization for
// the current session.
func (c *Coordinator) Initialized(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready[name]
}

// observe handles one session publication. It runs on the publishing
// goroutine, so teardown completes before the publication returns.
func (c *Coordinator) observe(s session.State) {
	owner, _ := s.OwnerID()
	next := observation{
		owner:         owner,
		ended:         s.EndedOwnerID,
		initialized:   s.Initialized,
		authenticated: s.Authenticated(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.seen && next == c.last {
		return
	}
	prev, hadPrev := c.last, c.seen
	c.last, c.seen = next, true

	if !next.initialized {
		return
	}

	switchedOwner := hadPrev && prev.authenticated && next.authenticated && prev.owner != next.owner
	if !next.authenticated || switchedOwner {
		// A session can end before any store loaded its collection, so the
		// owner whose durable copies to drop comes from the state.
		ended := next.ended
		if ended == 0 && hadPrev && prev.authenticated {
			ended = prev.owner
		}
		c.teardownLocked(ended)
	}
	if next.authenticated {
		c.initializeLocked(next.owner)
	}
}

func (c *Coordinator) teardownLocked(owner int64) {
	c.gen++
	clear(c.guards)
	clear(c.ready)

	for _, s := range c.stores {
		if err := s.Reset(c.ctx, owner); err != nil {
			c.logger.WarnContext(c.ctx, "reset store", slog.String("store", s.Name()), slog.String("error", err.Error()))
		}
	}
	c.logger.DebugContext(c.ctx, "stores reset",
		slog.Uint64("generation", c.gen),
		slog.Int64("owner_id", owner),
	)
}

func (c *Coordinator) initializeLocked(owner int64) {
	gen := c.gen
	for i, s := range c.stores {
		if c.guards[s.Name()] {
			continue
		}
		c.guards[s.Name()] = true

		wait := c.delay + time.Duration(i)*c.stagger
		c.pending++
		go func() {
			defer c.done()
			c.initialize(s, gen, owner, wait)
		}()
	}
}

func (c *Coordinator) initialize(s Store, gen uint64, owner int64, wait time.Duration) {
	ctx := c.ctx
	log := c.logger.With(slog.String("store", s.Name()), slog.Int64("owner_id", owner))

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		c.finish(s.Name(), gen, ctx.Err())
		return
	}

	if !c.current(gen) {
		log.DebugContext(ctx, "session changed before initialization")
		return
	}

	err := s.InitializeFromCache(ctx)
	if err == nil && s.ShouldRefreshFromDatabase() {
		err = s.Load(ctx)
	}
	if err != nil {
		log.WarnContext(ctx, "store initialization failed", slog.String("error", err.Error()))
	} else {
		log.DebugContext(ctx, "store initialized")
	}
	c.finish(s.Name(), gen, err)
}

// finish records the outcome of an initialization unless the session
// changed meanwhile. A failure releases the guard for a later retry.
func (c *Coordinator) finish(name string, gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		return
	}
	if err != nil {
		c.guards[name] = false
		return
	}
	c.ready[name] = true
}

func (c *Coordinator) done() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending--
	if c.pending == 0 {
		c.idle.Broadcast()
	}
}

func (c *Coordinator) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen == gen
}

// RefreshStale loads, concurrently, every store that reports stale data
// while a session is authenticated. A successful load also completes a
// store whose initialization failed earlier.
func (c *Coordinator) RefreshStale(ctx context.Context) error {
	c.mu.Lock()
	active := c.seen && c.last.initialized && c.last.authenticated
	gen := c.gen
	c.mu.Unlock()

	if !active {
		return nil
	}

	var g errgroup.Group
	for _, s := range c.stores {
		if !s.ShouldRefreshFromDatabase() {
			continue
		}
		g.Go(func() error {
			if err := s.Load(ctx); err != nil {
				return errors.Join(ErrRefreshFailed, err)
			}

			c.mu.Lock()
			if c.gen == gen {
				c.guards[s.Name()] = true
				c.ready[s.Name()] = true
			}
			c.mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// refreshLoop runs RefreshStale on the configured schedule until Stop.
func (c *Coordinator) refreshLoop() {
	ctx := c.ctx
	for {
		now := time.Now()
		timer := time.NewTimer(c.schedule.Next(now).Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := c.RefreshStale(ctx); err != nil {
			c.logger.WarnContext(ctx, "periodic refresh failed", slog.String("error", err.Error()))
		}
	}
}
