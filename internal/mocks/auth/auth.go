package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	domainauth "github.com/target/tempguard-api/internal/domain/auth"
	"github.com/target/tempguard-api/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider = (*FakeIdentityProvider)(nil)
	_ ports.IdentityAdmin    = (*FakeIdentityProvider)(nil)
	_ ports.IdentityEventBus = (*FakeEventBus)(nil)
	_ ports.SessionStore     = (*MemorySessionStore)(nil)
	_ ports.ProfileStore     = (*MemoryProfileStore)(nil)
)

type fakeAccount struct {
	identity domainauth.Identity
	password string
}

// FakeIdentityProvider is an in-memory identity provider keyed by email.
// When Events is set it publishes the same notifications a real provider would.
type FakeIdentityProvider struct {
	SignInFunc func(ctx context.Context, creds domainauth.Credentials) (domainauth.Identity, error)
	Events     ports.IdentityEventBus
	// TTL sets Identity.ExpiresAt on sign-in; zero leaves it unset.
	TTL time.Duration

	mu       sync.Mutex
	accounts map[string]fakeAccount
	signOuts []string
}

// NewFakeIdentityProvider creates an empty provider.
func NewFakeIdentityProvider() *FakeIdentityProvider {
	return &FakeIdentityProvider{accounts: make(map[string]fakeAccount)}
}

// AddUser registers an identity that can sign in with password.
func (f *FakeIdentityProvider) AddUser(id domainauth.Identity, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accounts == nil {
		f.accounts = make(map[string]fakeAccount)
	}
	f.accounts[strings.ToLower(id.Email)] = fakeAccount{identity: id, password: password}
}

func (f *FakeIdentityProvider) SignIn(ctx context.Context, creds domainauth.Credentials) (domainauth.Identity, error) {
	if f.SignInFunc != nil {
		return f.SignInFunc(ctx, creds)
	}
	f.mu.Lock()
	acct, ok := f.accounts[strings.ToLower(strings.TrimSpace(creds.Login))]
	f.mu.Unlock()
	if !ok || acct.password != creds.Password {
		return domainauth.Identity{}, ports.ErrInvalidCredentials
	}
	id := acct.identity
	if f.TTL > 0 {
		id.ExpiresAt = time.Now().Add(f.TTL)
	}
	f.publish(ctx, domainauth.IdentityEvent{Kind: domainauth.IdentitySignedIn, UserID: id.UserID, Email: id.Email})
	return id, nil
}

func (f *FakeIdentityProvider) SignOut(ctx context.Context, userID, sessionID string) error {
	f.mu.Lock()
	f.signOuts = append(f.signOuts, userID)
	f.mu.Unlock()
	f.publish(ctx, domainauth.IdentityEvent{Kind: domainauth.IdentitySignedOut, UserID: userID, SessionID: sessionID})
	return nil
}

// SignOuts returns the user ids SignOut was called with, in order.
func (f *FakeIdentityProvider) SignOuts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.signOuts...)
}

func (f *FakeIdentityProvider) CreateIdentity(_ context.Context, email, password, displayName string) (domainauth.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accounts == nil {
		f.accounts = make(map[string]fakeAccount)
	}
	key := strings.ToLower(email)
	if _, exists := f.accounts[key]; exists {
		return domainauth.Identity{}, ports.ErrIdentityExists
	}
	id := domainauth.Identity{UserID: uuid.NewString(), Email: key, DisplayName: displayName}
	f.accounts[key] = fakeAccount{identity: id, password: password}
	return id, nil
}

func (f *FakeIdentityProvider) DeleteIdentity(ctx context.Context, userID string) error {
	f.mu.Lock()
	for k, acct := range f.accounts {
		if acct.identity.UserID == userID {
			delete(f.accounts, k)
		}
	}
	f.mu.Unlock()
	f.publish(ctx, domainauth.IdentityEvent{Kind: domainauth.IdentityDeleted, UserID: userID})
	return nil
}

// HasUser reports whether an identity with userID exists.
func (f *FakeIdentityProvider) HasUser(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, acct := range f.accounts {
		if acct.identity.UserID == userID {
			return true
		}
	}
	return false
}

func (f *FakeIdentityProvider) publish(ctx context.Context, ev domainauth.IdentityEvent) {
	if f.Events == nil {
		return
	}
	ev.At = time.Now()
	_ = f.Events.Publish(ctx, ev)
}

// FakeEventBus delivers events synchronously to every subscriber.
type FakeEventBus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(domainauth.IdentityEvent)
}

// NewFakeEventBus creates an empty bus.
func NewFakeEventBus() *FakeEventBus {
	return &FakeEventBus{subs: make(map[int]func(domainauth.IdentityEvent))}
}

func (b *FakeEventBus) Publish(_ context.Context, ev domainauth.IdentityEvent) error {
	b.mu.Lock()
	fns := make([]func(domainauth.IdentityEvent), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
	return nil
}

func (b *FakeEventBus) Subscribe(fn func(domainauth.IdentityEvent)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[int]func(domainauth.IdentityEvent))
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Subscribers returns the number of live subscriptions.
func (b *FakeEventBus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// MemorySessionStore is an in-memory session store for unit tests.
type MemorySessionStore struct {
	mu          sync.Mutex
	sessions    map[string]domainauth.Session
	generations map[string]int64
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions:    make(map[string]domainauth.Session),
		generations: make(map[string]int64),
	}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok || id == "" {
		return domainauth.Session{}, ports.ErrSessionNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemorySessionStore) Generation(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generations[userID], nil
}

func (m *MemorySessionStore) Revoke(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generations[userID]++
	return m.generations[userID], nil
}

// Len returns the number of stored sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// MemoryProfileStore is an in-memory profile store that counts writes.
type MemoryProfileStore struct {
	// OnGet, when set, runs before every lookup; tests use it to hold readers in flight.
	OnGet func(id string)
	// GetErr, when set, is returned by GetProfile.
	GetErr error

	mu       sync.Mutex
	profiles map[string]domainauth.Profile
	writes   int
}

// NewMemoryProfileStore creates a store seeded with profiles.
func NewMemoryProfileStore(profiles ...domainauth.Profile) *MemoryProfileStore {
	m := &MemoryProfileStore{profiles: make(map[string]domainauth.Profile)}
	for _, p := range profiles {
		m.profiles[p.ID] = p
	}
	return m
}

func (m *MemoryProfileStore) GetProfile(_ context.Context, id string) (*domainauth.Profile, error) {
	if m.OnGet != nil {
		m.OnGet(id)
	}
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryProfileStore) CreateProfileIfAbsent(_ context.Context, p domainauth.Profile) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profiles == nil {
		m.profiles = make(map[string]domainauth.Profile)
	}
	if _, ok := m.profiles[p.ID]; ok {
		return false, nil
	}
	for _, existing := range m.profiles {
		if existing.Matricula == p.Matricula {
			return false, nil
		}
	}
	m.profiles[p.ID] = p
	m.writes++
	return true, nil
}

// Writes returns how many profiles CreateProfileIfAbsent inserted.
func (m *MemoryProfileStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
