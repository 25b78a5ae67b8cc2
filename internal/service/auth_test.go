package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/tempguard-api/internal/adapters/identityfeed"
	domainauth "github.com/target/tempguard-api/internal/domain/auth"
	apperrors "github.com/target/tempguard-api/internal/errors"
	mocks "github.com/target/tempguard-api/internal/mocks/auth"
	"github.com/target/tempguard-api/internal/ports"
)

const testAdminEmail = "qa-admin@example.com"

var testPolicy = domainauth.Policy{AdminMaxAge: 12 * time.Hour, UserMaxAge: 8 * time.Hour}

// profileSourceFunc adapts a function to ProfileSource.
type profileSourceFunc func(ctx context.Context, id domainauth.Identity) (*domainauth.Profile, error)

func (f profileSourceFunc) Resolve(ctx context.Context, id domainauth.Identity) (*domainauth.Profile, error) {
	return f(ctx, id)
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type authFixture struct {
	provider *mocks.FakeIdentityProvider
	sessions *mocks.MemorySessionStore
	profiles *mocks.MemoryProfileStore
	bus      *identityfeed.Bus
	clock    *clock
	manager  *SessionManager
}

func newAuthFixture(t *testing.T, profiles ...domainauth.Profile) *authFixture {
	t.Helper()
	f := &authFixture{
		provider: mocks.NewFakeIdentityProvider(),
		sessions: mocks.NewMemorySessionStore(),
		profiles: mocks.NewMemoryProfileStore(profiles...),
		bus:      identityfeed.New(),
		clock:    &clock{now: time.Now()},
	}
	f.provider.Events = f.bus

	resolver, err := NewProfileResolver(ProfileResolverOptions{Profiles: f.profiles, AdminEmail: testAdminEmail})
	require.NoError(t, err)
	f.manager = f.newManager(t, resolver)
	return f
}

func (f *authFixture) newManager(t *testing.T, profiles ProfileSource) *SessionManager {
	t.Helper()
	m, err := NewSessionManager(SessionManagerOptions{
		Provider: f.provider,
		Sessions: f.sessions,
		Profiles: profiles,
		Events:   f.bus,
		Policy:   testPolicy,
		Now:      f.clock.Now,
	})
	require.NoError(t, err)
	m.Start(context.Background())
	t.Cleanup(m.Close)
	return m
}

func userProfile(id string) domainauth.Profile {
	return domainauth.Profile{
		ID:          id,
		DisplayName: "Maria",
		Matricula:   "1234",
		Email:       "1234@local.user",
		Role:        domainauth.RoleUser,
		Permissions: []domainauth.Permission{domainauth.PermRegister, domainauth.PermRecordsView},
	}
}

func TestNewSessionManager_Validation(t *testing.T) {
	t.Parallel()
	provider := mocks.NewFakeIdentityProvider()
	sessions := mocks.NewMemorySessionStore()
	profiles := profileSourceFunc(func(context.Context, domainauth.Identity) (*domainauth.Profile, error) { return nil, nil })

	tests := []struct {
		name string
		opts SessionManagerOptions
	}{
		{name: "missing provider", opts: SessionManagerOptions{Sessions: sessions, Profiles: profiles, Policy: testPolicy}},
		{name: "missing sessions", opts: SessionManagerOptions{Provider: provider, Profiles: profiles, Policy: testPolicy}},
		{name: "missing profiles", opts: SessionManagerOptions{Provider: provider, Sessions: sessions, Policy: testPolicy}},
		{name: "zero policy", opts: SessionManagerOptions{Provider: provider, Sessions: sessions, Profiles: profiles}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewSessionManager(tt.opts)
			require.Error(t, err)
		})
	}
}

func TestSessionManager_LoginAdminCreatesProfile(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	f.provider.AddUser(domainauth.Identity{UserID: "admin-1", Email: "QA-Admin@example.com"}, "segredo")

	out, err := f.manager.Login(context.Background(), domainauth.Credentials{Login: "qa-admin@example.com", Password: "segredo"})
	require.NoError(t, err)
	assert.Equal(t, domainauth.StateAuthenticated, out.State)
	assert.Equal(t, "/admin", out.Redirect)
	require.NotNil(t, out.Profile)
	assert.Equal(t, "Admin UIA", out.Profile.DisplayName)
	assert.Equal(t, domainauth.AllPermissions(), out.Profile.Permissions)
	assert.Equal(t, f.clock.Now().Add(12*time.Hour), out.Session.ExpiresAt)
	assert.Equal(t, 1, f.profiles.Writes())

	sess, err := f.manager.GetSession(context.Background(), out.Session.ID)
	require.NoError(t, err)
	assert.True(t, sess.IsAdmin())
}

func TestSessionManager_LoginUserExpiryCappedByIdentity(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t, userProfile("u-1"))
	f.provider.TTL = time.Hour
	f.provider.AddUser(domainauth.Identity{UserID: "u-1", Email: "1234@local.user"}, "segredo")

	out, err := f.manager.Login(context.Background(), domainauth.Credentials{Login: "1234@local.user", Password: "segredo"})
	require.NoError(t, err)
	assert.Equal(t, "/", out.Redirect)
	assert.WithinDuration(t, time.Now().Add(time.Hour), out.Session.ExpiresAt, time.Minute)
	assert.Equal(t, "1234", out.Session.Matricula)
}

func TestSessionManager_LoginFailures(t *testing.T) {
	t.Parallel()

	t.Run("invalid credentials", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t)
		_, err := f.manager.Login(context.Background(), domainauth.Credentials{Login: "x@example.com", Password: "nope"})
		require.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Equal(t, "invalid credentials", err.Error())
	})

	t.Run("provider unavailable", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t)
		f.provider.SignInFunc = func(context.Context, domainauth.Credentials) (domainauth.Identity, error) {
			return domainauth.Identity{}, errors.New("dial tcp: connection refused")
		}
		_, err := f.manager.Login(context.Background(), domainauth.Credentials{Login: "x", Password: "y"})
		require.Error(t, err)
		assert.True(t, apperrors.IsInternal(err))
		assert.Equal(t, "sign-in unavailable", apperrors.GetMessage(err, ""))
	})

	t.Run("missing profile forces sign-out", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t)
		f.provider.AddUser(domainauth.Identity{UserID: "u-2", Email: "someone@example.com"}, "segredo")

		_, err := f.manager.Login(context.Background(), domainauth.Credentials{Login: "someone@example.com", Password: "segredo"})
		require.ErrorIs(t, err, ErrNoProfile)
		assert.Equal(t, []string{"u-2"}, f.provider.SignOuts())
		assert.Zero(t, f.sessions.Len())
	})

	t.Run("profile store error treated as missing", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t)
		f.profiles.GetErr = errors.New("db down")
		f.provider.AddUser(domainauth.Identity{UserID: "u-3", Email: "a@example.com"}, "segredo")

		_, err := f.manager.Login(context.Background(), domainauth.Credentials{Login: "a@example.com", Password: "segredo"})
		require.ErrorIs(t, err, ErrNoProfile)
	})
}

func TestSessionManager_GenerationGuardAbortsStaleLogin(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t)
	f.provider.AddUser(domainauth.Identity{UserID: "u-1", Email: "1234@local.user"}, "segredo")

	profile := userProfile("u-1")
	// A sign-out for the same user lands while the profile is being resolved.
	manager := f.newManager(t, profileSourceFunc(func(ctx context.Context, id domainauth.Identity) (*domainauth.Profile, error) {
		require.NoError(t, f.provider.SignOut(ctx, id.UserID, ""))
		return &profile, nil
	}))

	_, err := manager.Login(context.Background(), domainauth.Credentials{Login: "1234@local.user", Password: "segredo"})
	require.ErrorIs(t, err, ErrStaleLogin)
	assert.Zero(t, f.sessions.Len())
}

func TestSessionManager_IdentityEvents(t *testing.T) {
	t.Parallel()

	login := func(t *testing.T, f *authFixture) domainauth.Session {
		t.Helper()
		f.provider.AddUser(domainauth.Identity{UserID: "u-1", Email: "1234@local.user"}, "segredo")
		out, err := f.manager.Login(context.Background(), domainauth.Credentials{Login: "1234@local.user", Password: "segredo"})
		require.NoError(t, err)
		return out.Session
	}

	t.Run("deletion revokes every session", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t, userProfile("u-1"))
		first := login(t, f)
		second := login(t, f)

		require.NoError(t, f.provider.DeleteIdentity(context.Background(), "u-1"))

		for _, id := range []string{first.ID, second.ID} {
			_, err := f.manager.GetSession(context.Background(), id)
			require.ErrorIs(t, err, ErrSessionInvalid)
		}
	})

	t.Run("logout deletes the session", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t, userProfile("u-1"))
		sess := login(t, f)

		require.NoError(t, f.manager.Logout(context.Background(), sess.ID))
		assert.Zero(t, f.sessions.Len())
		_, err := f.manager.GetSession(context.Background(), sess.ID)
		require.ErrorIs(t, err, ErrSessionInvalid)

		require.NoError(t, f.manager.Logout(context.Background(), sess.ID))
		require.NoError(t, f.manager.Logout(context.Background(), ""))
	})

	t.Run("logout keeps the user's other sessions", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t, userProfile("u-1"))
		terminalA := login(t, f)
		terminalB := login(t, f)

		require.NoError(t, f.manager.Logout(context.Background(), terminalA.ID))

		_, err := f.manager.GetSession(context.Background(), terminalA.ID)
		require.ErrorIs(t, err, ErrSessionInvalid)
		got, err := f.manager.GetSession(context.Background(), terminalB.ID)
		require.NoError(t, err)
		assert.Equal(t, terminalB.ID, got.ID)
		assert.Equal(t, []string{"u-1"}, f.provider.SignOuts())
	})

	t.Run("sign-out without a session revokes every session", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t, userProfile("u-1"))
		first := login(t, f)
		second := login(t, f)

		require.NoError(t, f.provider.SignOut(context.Background(), "u-1", ""))

		for _, id := range []string{first.ID, second.ID} {
			_, err := f.manager.GetSession(context.Background(), id)
			require.ErrorIs(t, err, ErrSessionInvalid)
		}
	})

	t.Run("closed manager ignores events", func(t *testing.T) {
		t.Parallel()
		f := newAuthFixture(t, userProfile("u-1"))
		sess := login(t, f)
		f.manager.Close()
		assert.Zero(t, f.bus.Len())

		require.NoError(t, f.provider.DeleteIdentity(context.Background(), "u-1"))
		_, err := f.manager.GetSession(context.Background(), sess.ID)
		require.NoError(t, err)
	})
}

func TestSessionManager_Expiry(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t, userProfile("u-1"))
	f.provider.AddUser(domainauth.Identity{UserID: "u-1", Email: "1234@local.user"}, "segredo")
	out, err := f.manager.Login(context.Background(), domainauth.Credentials{Login: "1234@local.user", Password: "segredo"})
	require.NoError(t, err)

	f.clock.Advance(8*time.Hour - time.Second)
	_, err = f.manager.GetSession(context.Background(), out.Session.ID)
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	_, err = f.manager.GetSession(context.Background(), out.Session.ID)
	require.ErrorIs(t, err, ErrSessionInvalid)
	assert.Zero(t, f.sessions.Len())
}

func TestSessionManager_Current(t *testing.T) {
	t.Parallel()
	f := newAuthFixture(t, userProfile("u-1"))

	snap, err := f.manager.Current(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, domainauth.StateUnauthenticated, snap.State)
	assert.False(t, snap.Loading)
	assert.Nil(t, snap.Profile)

	snap, err = f.manager.Current(context.Background(), "unknown")
	require.NoError(t, err)
	assert.False(t, snap.Authenticated())

	f.provider.AddUser(domainauth.Identity{UserID: "u-1", Email: "1234@local.user", DisplayName: "Maria"}, "segredo")
	out, err := f.manager.Login(context.Background(), domainauth.Credentials{Login: "1234@local.user", Password: "segredo"})
	require.NoError(t, err)

	snap, err = f.manager.Current(context.Background(), out.Session.ID)
	require.NoError(t, err)
	assert.True(t, snap.Authenticated())
	require.NotNil(t, snap.Profile)
	require.NotNil(t, snap.Identity)
	assert.Equal(t, "u-1", snap.Identity.UserID)
	assert.Equal(t, []domainauth.Permission{domainauth.PermRegister, domainauth.PermRecordsView}, snap.Profile.Permissions)
}

type failingSessionStore struct {
	*mocks.MemorySessionStore
}

func (failingSessionStore) Get(context.Context, string) (domainauth.Session, error) {
	return domainauth.Session{}, errors.New("redis: connection refused")
}

func TestSessionManager_CurrentStoreFailure(t *testing.T) {
	t.Parallel()
	m, err := NewSessionManager(SessionManagerOptions{
		Provider: mocks.NewFakeIdentityProvider(),
		Sessions: failingSessionStore{mocks.NewMemorySessionStore()},
		Profiles: profileSourceFunc(func(context.Context, domainauth.Identity) (*domainauth.Profile, error) { return nil, nil }),
		Policy:   testPolicy,
	})
	require.NoError(t, err)

	_, err = m.Current(context.Background(), "s-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionInvalid)
	assert.NotErrorIs(t, err, ports.ErrSessionNotFound)
}
