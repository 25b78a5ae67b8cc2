package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	domainauth "github.com/target/tempguard-api/internal/domain/auth"
	apperrors "github.com/target/tempguard-api/internal/errors"
	"github.com/target/tempguard-api/internal/ports"
)

var (
	// ErrInvalidCredentials is the generic sign-in rejection.
	ErrInvalidCredentials = apperrors.Unauthorized("invalid credentials")
	// ErrNoProfile is returned when an identity signs in without an application profile.
	ErrNoProfile = apperrors.Unauthorized("no profile")
	// ErrStaleLogin is returned when the user's sessions were revoked while a login was in flight.
	ErrStaleLogin = apperrors.Unauthorized("sign-in superseded")
	// ErrSessionInvalid is returned for unknown, expired or revoked sessions.
	ErrSessionInvalid = apperrors.Unauthorized("session expired")
)

const eventHandlingTimeout = 5 * time.Second

// ProfileSource resolves the application profile for an identity. It returns nil, nil when none exists.
type ProfileSource interface {
	Resolve(ctx context.Context, id domainauth.Identity) (*domainauth.Profile, error)
}

// SessionManagerOptions groups dependencies for SessionManager.
type SessionManagerOptions struct {
	Provider ports.IdentityProvider
	Sessions ports.SessionStore
	Profiles ProfileSource
	Events   ports.IdentityEventBus // Optional: without it sessions are only revoked by expiry.
	Policy   domainauth.Policy
	Logger   *slog.Logger
	Now      func() time.Time
}

// SessionManager drives the session state machine: it signs users in against the identity
// provider, resolves their profile, persists sessions and reacts to identity events.
type SessionManager struct {
	provider ports.IdentityProvider
	sessions ports.SessionStore
	profiles ProfileSource
	events   ports.IdentityEventBus
	policy   domainauth.Policy
	logger   *slog.Logger
	now      func() time.Time

	mu          sync.Mutex
	baseCtx     context.Context
	unsubscribe func()
}

// LoginOutcome is the result of a successful login.
type LoginOutcome struct {
	State    domainauth.State    `json:"state"`
	Session  domainauth.Session  `json:"-"`
	Profile  *domainauth.Profile `json:"profile"`
	Redirect string              `json:"redirect"`
}

// SnapshotIdentity is the identity summary reported to clients.
type SnapshotIdentity struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Snapshot is the externally visible session state.
type Snapshot struct {
	State     domainauth.State    `json:"state"`
	Loading   bool                `json:"loading"`
	Identity  *SnapshotIdentity   `json:"identity"`
	Profile   *domainauth.Profile `json:"profile"`
	ExpiresAt *time.Time          `json:"expires_at"`
}

// Authenticated reports whether the snapshot carries a usable session.
func (s Snapshot) Authenticated() bool { return s.State == domainauth.StateAuthenticated }

// NewSessionManager constructs a new SessionManager.
func NewSessionManager(opts SessionManagerOptions) (*SessionManager, error) {
	if opts.Provider == nil {
		return nil, errors.New("IdentityProvider is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("SessionStore is required")
	}
	if opts.Profiles == nil {
		return nil, errors.New("ProfileSource is required")
	}
	if opts.Policy.AdminMaxAge <= 0 || opts.Policy.UserMaxAge <= 0 {
		return nil, errors.New("session policy max ages must be positive")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &SessionManager{
		provider: opts.Provider,
		sessions: opts.Sessions,
		profiles: opts.Profiles,
		events:   opts.Events,
		policy:   opts.Policy,
		logger:   logger.With("component", "session_manager"),
		now:      now,
	}, nil
}

// Start subscribes to the identity event stream. It is a no-op when already started or without a bus.
func (m *SessionManager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.events == nil || m.unsubscribe != nil {
		return
	}
	m.baseCtx = context.WithoutCancel(ctx)
	m.unsubscribe = m.events.Subscribe(m.handleIdentityEvent)
	m.logger.InfoContext(ctx, "subscribed to identity events")
}

// Close releases the identity subscription.
func (m *SessionManager) Close() {
	m.mu.Lock()
	unsub := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// Login signs in, resolves the profile and persists a session.
func (m *SessionManager) Login(ctx context.Context, creds domainauth.Credentials) (*LoginOutcome, error) {
	state := domainauth.StateInitializing

	identity, err := m.provider.SignIn(ctx, creds)
	if err != nil {
		state, _ = domainauth.Transition(state, domainauth.EventIdentityAbsent)
		if errors.Is(err, ports.ErrInvalidCredentials) {
			m.logger.InfoContext(ctx, "sign-in rejected", "state", state)
			return nil, ErrInvalidCredentials
		}
		m.logger.ErrorContext(ctx, "sign-in failed", "error", err)
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "sign-in unavailable")
	}
	state, _ = domainauth.Transition(state, domainauth.EventIdentityPresent)

	gen, err := m.sessions.Generation(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("read session generation: %w", err)
	}

	profile, err := m.profiles.Resolve(ctx, identity)
	if err != nil {
		m.logger.ErrorContext(ctx, "profile lookup failed; treating as missing", "user_id", identity.UserID, "error", err)
		profile = nil
	}
	if profile == nil {
		var effect domainauth.Effect
		state, effect = domainauth.Transition(state, domainauth.EventProfileMissing)
		if effect.Has(domainauth.EffectForceSignOut) {
			if signOutErr := m.provider.SignOut(ctx, identity.UserID, ""); signOutErr != nil {
				m.logger.WarnContext(ctx, "forced sign-out failed", "user_id", identity.UserID, "error", signOutErr)
			}
		}
		m.logger.WarnContext(ctx, "identity has no profile", "user_id", identity.UserID, "state", state)
		return nil, ErrNoProfile
	}
	state, _ = domainauth.Transition(state, domainauth.EventProfileResolved)

	current, err := m.sessions.Generation(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("re-read session generation: %w", err)
	}
	if current != gen {
		m.logger.InfoContext(ctx, "discarding stale login", "user_id", identity.UserID, "generation", gen, "current", current)
		return nil, ErrStaleLogin
	}

	sess := m.newSession(identity, profile, gen)
	if saveErr := m.sessions.Save(ctx, sess); saveErr != nil {
		return nil, fmt.Errorf("save session: %w", saveErr)
	}
	m.logger.InfoContext(ctx, "login succeeded", "user_id", sess.UserID, "role", sess.Role, "session", shortID(sess.ID))

	return &LoginOutcome{
		State:    state,
		Session:  sess,
		Profile:  profile,
		Redirect: domainauth.DefaultRedirect(profile.Role),
	}, nil
}

func (m *SessionManager) newSession(identity domainauth.Identity, profile *domainauth.Profile, gen int64) domainauth.Session {
	loginAt := m.now()
	email := profile.Email
	if email == "" {
		email = identity.Email
	}
	name := profile.DisplayName
	if name == "" {
		name = identity.DisplayName
	}
	return domainauth.Session{
		ID:          uuid.NewString(),
		UserID:      identity.UserID,
		Email:       email,
		DisplayName: name,
		Matricula:   profile.Matricula,
		Role:        profile.Role,
		Permissions: profile.Permissions,
		Generation:  gen,
		LoginAt:     loginAt,
		ExpiresAt:   m.policy.ExpiresAt(profile.Role, loginAt, identity.ExpiresAt),
	}
}

// GetSession returns the session when it is still valid under the policy and the user's generation.
func (m *SessionManager) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, ErrSessionInvalid
	}

	sess, err := m.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ports.ErrSessionNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	gen, err := m.sessions.Generation(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("read session generation: %w", err)
	}
	if !m.policy.Valid(sess, gen, m.now()) {
		if deleteErr := m.sessions.Delete(ctx, sessionID); deleteErr != nil {
			return nil, errors.Join(ErrSessionInvalid, fmt.Errorf("delete session: %w", deleteErr))
		}
		return nil, ErrSessionInvalid
	}
	return &sess, nil
}

// Current reports the session state for sessionID. Store failures are returned as errors;
// a missing or invalid session is reported as Unauthenticated.
func (m *SessionManager) Current(ctx context.Context, sessionID string) (Snapshot, error) {
	state := domainauth.StateInitializing

	sess, err := m.GetSession(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrSessionInvalid) {
		return Snapshot{State: state, Loading: state.Loading()}, err
	}
	if sess == nil {
		state, _ = domainauth.Transition(state, domainauth.EventIdentityAbsent)
		return Snapshot{State: state, Loading: state.Loading()}, nil
	}

	state, _ = domainauth.Transition(state, domainauth.EventIdentityPresent)
	state, _ = domainauth.Transition(state, domainauth.EventProfileResolved)
	exp := sess.ExpiresAt
	return Snapshot{
		State:   state,
		Loading: state.Loading(),
		Identity: &SnapshotIdentity{
			UserID:      sess.UserID,
			Email:       sess.Email,
			DisplayName: sess.DisplayName,
		},
		Profile:   sess.Profile(),
		ExpiresAt: &exp,
	}, nil
}

// Logout deletes the session and signs the identity out. Unknown sessions are not an error.
func (m *SessionManager) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	sess, err := m.sessions.Get(ctx, sessionID)
	if err != nil && !errors.Is(err, ports.ErrSessionNotFound) {
		return fmt.Errorf("get session: %w", err)
	}
	if err := m.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if sess.UserID == "" {
		return nil
	}
	if err := m.provider.SignOut(ctx, sess.UserID, sessionID); err != nil {
		m.logger.WarnContext(ctx, "provider sign-out failed", "user_id", sess.UserID, "error", err)
	}
	return nil
}

// RevokeUser invalidates every session of userID.
func (m *SessionManager) RevokeUser(ctx context.Context, userID string) error {
	if _, err := m.sessions.Revoke(ctx, userID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}

func (m *SessionManager) handleIdentityEvent(ev domainauth.IdentityEvent) {
	m.mu.Lock()
	base := m.baseCtx
	m.mu.Unlock()
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithTimeout(base, eventHandlingTimeout)
	defer cancel()

	switch ev.Kind {
	case domainauth.IdentitySignedIn:
		m.logger.DebugContext(ctx, "identity signed in", "user_id", ev.UserID)
	case domainauth.IdentitySignedOut:
		if ev.SessionID != "" {
			if err := m.sessions.Delete(ctx, ev.SessionID); err != nil {
				m.logger.WarnContext(ctx, "delete signed-out session failed", "session", shortID(ev.SessionID), "error", err)
			}
			return
		}
		// Provider-wide sign-out: no session named, end them all.
		m.revokeOnEvent(ctx, ev)
	case domainauth.IdentityDeleted:
		m.revokeOnEvent(ctx, ev)
	default:
		m.logger.DebugContext(ctx, "ignoring identity event", "kind", ev.Kind)
	}
}

func (m *SessionManager) revokeOnEvent(ctx context.Context, ev domainauth.IdentityEvent) {
	if ev.UserID == "" {
		return
	}
	gen, err := m.sessions.Revoke(ctx, ev.UserID)
	if err != nil {
		m.logger.ErrorContext(ctx, "revoke sessions failed", "user_id", ev.UserID, "kind", ev.Kind, "error", err)
		return
	}
	m.logger.InfoContext(ctx, "revoked sessions", "user_id", ev.UserID, "kind", ev.Kind, "generation", gen)
}

// shortID returns a log-safe prefix of an opaque id.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
