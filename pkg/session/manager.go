package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/storefront/pkg/kvstore"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/observable"
)

const defaultValidationTimeout = 10 * time.Second

// Manager owns the authentication token and current user.
//
// It restores them from durable storage on start, persists them on login,
// expires them when the token's exp claim passes, and publishes every change
// to subscribers. Manager is safe for concurrent use.
type Manager struct {
	auth    Authenticator
	storage kvstore.Storage
	logger  *slog.Logger
	now     func() time.Time
	state   *observable.Value[State]

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bg       sync.WaitGroup

	user  *User
	timer *time.Timer
	token string

	validationTimeout time.Duration
	timerGen          uint64
	ended             int64

	mu sync.Mutex

	validateOnRestore bool
	initialized       bool
	restored          bool
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger sets the logger for session events.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock overrides the time source used to compute expiry delays.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithValidationTimeout bounds the background validation call made after a
// restore. Default: 10s.
func WithValidationTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.validationTimeout = d
		}
	}
}

// WithoutBackgroundValidation disables the server round-trip after Restore.
func WithoutBackgroundValidation() Option {
	return func(m *Manager) {
		m.validateOnRestore = false
	}
}

// NewManager creates a Manager in the Unknown state. Call Restore once at
// startup to leave it.
func NewManager(auth Authenticator, storage kvstore.Storage, opts ...Option) *Manager {
	m := &Manager{
		auth:              auth,
		storage:           storage,
		logger:            logger.NewNope(),
		now:               time.Now,
		state:             observable.New(State{}),
		validationTimeout: defaultValidationTimeout,
		validateOnRestore: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(slog.String("component", "session"))
	m.bgCtx, m.bgCancel = context.WithCancel(context.Background())

	return m
}

// Restore loads the persisted token and user. It runs once; later calls are
// no-ops. A well-formed envelope becomes the current session, its expiry
// timer is armed, and a background validation is started. An absent or
// malformed envelope is cleared. The manager is marked initialized last.
func (m *Manager) Restore(ctx context.Context) {
	m.mu.Lock()
	if m.restored {
		m.mu.Unlock()
		return
	}
	m.restored = true

	token, user, ok := m.readEnvelope(ctx)

	var validate string
	switch {
	case ok && m.token == "":
		m.token, m.user, m.ended = token, user, 0
		if m.armLocked(token) {
			m.logger.InfoContext(ctx, "restored session already expired", slog.Int64("user_id", user.ID))
			m.clearLocked(ctx)
		} else {
			validate = token
			m.logger.DebugContext(ctx, "session restored", slog.Int64("user_id", user.ID))
		}
	case !ok && m.token == "":
		m.removeEnvelopeLocked(ctx)
	}

	m.initialized = true
	m.mu.Unlock()

	m.publish()

	if validate != "" && m.validateOnRestore {
		m.validateInBackground(validate)
	}
}

// Login authenticates with the server and, on success, makes the returned
// token and user the current session. On failure the session is unchanged.
func (m *Manager) Login(ctx context.Context, creds Credentials) error {
	token, user, err := m.auth.Login(ctx, creds)
	if err != nil {
		return fmt.Errorf("session: login: %w", err)
	}
	if token == "" || user.ID == 0 {
		return ErrInvalidLoginResponse
	}

	m.mu.Lock()
	m.restored = true
	m.initialized = true
	m.token, m.user, m.ended = token, &user, 0
	m.persistLocked(ctx)
	expired := m.armLocked(token)
	if expired {
		m.clearLocked(ctx)
	}
	m.mu.Unlock()

	m.publish()

	if expired {
		return ErrTokenExpired
	}
	m.logger.InfoContext(ctx, "logged in", slog.Int64("user_id", user.ID))
	return nil
}

// Logout asks the server to invalidate the token, ignoring failures, then
// clears the local session and its persisted envelope.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	token := m.token
	m.mu.Unlock()

	if token != "" {
		if err := m.auth.Logout(ctx, token); err != nil {
			m.logger.WarnContext(ctx, "server logout failed", slog.String("error", err.Error()))
		}
	}

	m.invalidate(ctx, func() bool { return m.token == token })
}

// HandleSessionExpired clears the local session. It is idempotent and safe
// to call from any goroutine, any number of times.
func (m *Manager) HandleSessionExpired() {
	m.invalidate(context.Background(), func() bool { return true })
}

// InvalidateIfCurrent clears the session only if authHeader is the header
// of the current session. Transports call it when a request is rejected with
// 401/403, so that a late rejection of an old token cannot end a newer
// session.
func (m *Manager) InvalidateIfCurrent(authHeader string) {
	m.invalidate(context.Background(), func() bool { return bearer(m.token) == authHeader })
}

// invalidate is the single path every session clear goes through.
// cond runs under the lock.
func (m *Manager) invalidate(ctx context.Context, cond func() bool) bool {
	m.mu.Lock()
	if m.token == "" || !cond() {
		m.mu.Unlock()
		return false
	}
	userID := m.user.ID
	m.clearLocked(ctx)
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "session cleared", slog.Int64("user_id", userID))
	m.publish()
	return true
}

// State returns a snapshot of the session.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// IsAuthenticated reports whether both a token and a user are present.
func (m *Manager) IsAuthenticated() bool {
	return m.State().Authenticated()
}

// IsAdmin reports whether the current user is an administrator.
func (m *Manager) IsAdmin() bool {
	return m.State().IsAdmin()
}

// IsInitialized reports whether the first restore attempt has completed.
func (m *Manager) IsInitialized() bool {
	return m.State().Initialized
}

// User returns a copy of the current user.
func (m *Manager) User() (User, bool) {
	s := m.State()
	if !s.Authenticated() {
		return User{}, false
	}
	return *s.User, true
}

// OwnerID returns the current user id, used to namespace cached collections.
func (m *Manager) OwnerID() (int64, bool) {
	return m.State().OwnerID()
}

// AuthHeader returns the Authorization header value, or "" when anonymous.
func (m *Manager) AuthHeader() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bearer(m.token)
}

// Subscribe calls fn with the current state and then on every change.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	return m.state.Subscribe(fn, true)
}

// Close disarms the expiry timer and waits for background validation.
func (m *Manager) Close() {
	m.mu.Lock()
	m.disarmLocked()
	m.mu.Unlock()

	m.bgCancel()
	m.bg.Wait()
}

func (m *Manager) publish() {
	m.state.Publish(m.State)
}

func (m *Manager) snapshotLocked() State {
	s := State{Initialized: m.initialized, EndedOwnerID: m.ended}
	if m.token != "" && m.user != nil {
		u := *m.user
		s.Token, s.User = m.token, &u
	}
	return s
}

// armLocked replaces any running timer with one firing at the token's
// expiry. It reports true when the token is already expired; the caller must
// then clear the session synchronously.
func (m *Manager) armLocked(token string) (expired bool) {
	m.disarmLocked()

	exp, ok := tokenExpiry(token)
	if !ok {
		return false
	}

	delay := exp.Sub(m.now())
	if delay <= 0 {
		return true
	}

	gen := m.timerGen
	m.timer = time.AfterFunc(delay, func() {
		m.invalidate(context.Background(), func() bool { return m.timerGen == gen })
	})
	return false
}

func (m *Manager) disarmLocked() {
	m.timerGen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) clearLocked(ctx context.Context) {
	if m.user != nil {
		m.ended = m.user.ID
	}
	m.token, m.user = "", nil
	m.disarmLocked()
	m.removeEnvelopeLocked(ctx)
}

func (m *Manager) readEnvelope(ctx context.Context) (string, *User, bool) {
	raw, err := m.storage.Get(ctx, TokenKey)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			m.logger.WarnContext(ctx, "read session token", slog.String("error", err.Error()))
		}
		return "", nil, false
	}

	user, err := kvstore.GetJSON[*User](ctx, m.storage, UserKey)
	if err != nil || user == nil || user.ID == 0 {
		if err != nil && !errors.Is(err, kvstore.ErrNotFound) {
			m.logger.WarnContext(ctx, "read session user", slog.String("error", err.Error()))
		}
		return "", nil, false
	}

	token := string(raw)
	if token == "" {
		return "", nil, false
	}
	return token, user, true
}

// persistLocked writes the envelope. Storage failures only cost durability,
// so they are logged rather than returned.
func (m *Manager) persistLocked(ctx context.Context) {
	if err := m.storage.Set(ctx, TokenKey, []byte(m.token)); err != nil {
		m.logger.WarnContext(ctx, "persist session token", slog.String("error", err.Error()))
	}
	if err := kvstore.SetJSON(ctx, m.storage, UserKey, m.user); err != nil {
		m.logger.WarnContext(ctx, "persist session user", slog.String("error", err.Error()))
	}
}

func (m *Manager) removeEnvelopeLocked(ctx context.Context) {
	for _, key := range []string{TokenKey, UserKey} {
		if err := m.storage.Remove(ctx, key); err != nil {
			m.logger.WarnContext(ctx, "remove session key", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
}

// validateInBackground confirms a restored token with the server. Only an
// authorization failure ends the session; transport errors keep it.
func (m *Manager) validateInBackground(token string) {
	m.bg.Go(func() {
		ctx, cancel := context.WithTimeout(m.bgCtx, m.validationTimeout)
		defer cancel()

		user, err := m.auth.CurrentUser(ctx, token)
		if err != nil {
			if IsAuthorizationError(err) {
				m.logger.InfoContext(ctx, "restored session rejected by server")
				m.invalidate(ctx, func() bool { return m.token == token })
				return
			}
			m.logger.WarnContext(ctx, "session validation unavailable, keeping session", slog.String("error", err.Error()))
			return
		}

		m.refreshUser(ctx, token, user)
	})
}

func (m *Manager) refreshUser(ctx context.Context, token string, user User) {
	m.mu.Lock()
	if m.token != token || m.user == nil {
		m.mu.Unlock()
		return
	}
	if m.user.ID != user.ID {
		m.mu.Unlock()
		m.logger.WarnContext(ctx, "token belongs to a different user", slog.Int64("user_id", user.ID))
		m.invalidate(ctx, func() bool { return m.token == token })
		return
	}
	if *m.user == user {
		m.mu.Unlock()
		return
	}
	m.user = &user
	m.persistLocked(ctx)
	m.mu.Unlock()

	m.publish()
}

func bearer(token string) string {
	if token == "" {
		return ""
	}
	return "Bearer " + token
}
