package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/tempguard-api/internal/adapters/authroles"
	domainauth "github.com/target/tempguard-api/internal/domain/auth"
	mocks "github.com/target/tempguard-api/internal/mocks/auth"
)

func TestProfileResolver_Resolve(t *testing.T) {
	t.Parallel()

	existing := userProfile("u-1")
	tests := []struct {
		name     string
		identity domainauth.Identity
		want     *domainauth.Profile
		writes   int
	}{
		{
			name:     "existing profile",
			identity: domainauth.Identity{UserID: "u-1", Email: "1234@local.user"},
			want:     &existing,
		},
		{
			name:     "unknown identity has no profile",
			identity: domainauth.Identity{UserID: "u-9", Email: "nobody@example.com"},
		},
		{
			name:     "admin email case-insensitive",
			identity: domainauth.Identity{UserID: "a-1", Email: "QA-ADMIN@example.com"},
			want: &domainauth.Profile{
				ID:          "a-1",
				DisplayName: "Admin UIA",
				Matricula:   "admin",
				Email:       "qa-admin@example.com",
				Role:        domainauth.RoleAdmin,
				Permissions: domainauth.AllPermissions(),
			},
			writes: 1,
		},
		{
			name:     "admin group",
			identity: domainauth.Identity{UserID: "a-2", Email: "lead@example.com", Groups: []string{"qc-admins"}},
			writes:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := mocks.NewMemoryProfileStore(existing)
			r, err := NewProfileResolver(ProfileResolverOptions{
				Profiles:   store,
				AdminEmail: " " + testAdminEmail + " ",
				Roles:      authroles.StaticRoleMapper{AdminGroup: "qc-admins"},
			})
			require.NoError(t, err)

			got, err := r.Resolve(context.Background(), tt.identity)
			require.NoError(t, err)
			switch {
			case tt.want != nil:
				assert.Equal(t, tt.want, got)
			case tt.writes > 0:
				require.NotNil(t, got)
				assert.True(t, got.IsAdmin())
			default:
				assert.Nil(t, got)
			}
			assert.Equal(t, tt.writes, store.Writes())
		})
	}
}

func TestProfileResolver_ConcurrentAdminResolveWritesOnce(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	var once sync.Once
	store := mocks.NewMemoryProfileStore()
	// Hold the first read until every caller is in flight.
	store.OnGet = func(string) {
		once.Do(func() { <-release })
	}
	r, err := NewProfileResolver(ProfileResolverOptions{Profiles: store, AdminEmail: testAdminEmail})
	require.NoError(t, err)

	id := domainauth.Identity{UserID: "a-1", Email: testAdminEmail}
	const callers = 16
	results := make([]*domainauth.Profile, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, resolveErr := r.Resolve(context.Background(), id)
			assert.NoError(t, resolveErr)
			results[i] = p
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, store.Writes())
	for _, p := range results {
		require.NotNil(t, p)
		assert.Equal(t, domainauth.RoleAdmin, p.Role)
	}

	// Callers get independent copies.
	results[0].Permissions[0] = "mutated"
	assert.Equal(t, domainauth.PermRegister, results[1].Permissions[0])

	again, err := r.Resolve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "a-1", again.ID)
	assert.Equal(t, 1, store.Writes())
}

func TestProfileResolver_AdminMatriculaCollisions(t *testing.T) {
	t.Parallel()

	newResolver := func(t *testing.T, store *mocks.MemoryProfileStore) *ProfileResolver {
		t.Helper()
		r, err := NewProfileResolver(ProfileResolverOptions{
			Profiles:   store,
			AdminEmail: testAdminEmail,
			Roles:      authroles.StaticRoleMapper{AdminGroup: "qc-admins"},
		})
		require.NoError(t, err)
		return r
	}

	t.Run("group admins get distinct matriculas", func(t *testing.T) {
		t.Parallel()
		store := mocks.NewMemoryProfileStore()
		r := newResolver(t, store)

		owner, err := r.Resolve(context.Background(), domainauth.Identity{UserID: "a-1", Email: testAdminEmail})
		require.NoError(t, err)
		assert.Equal(t, "admin", owner.Matricula)

		for _, id := range []string{"G-1", "g-2"} {
			p, err := r.Resolve(context.Background(), domainauth.Identity{UserID: id, Email: id + "@example.com", Groups: []string{"qc-admins"}})
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, "admin-"+strings.ToLower(id), p.Matricula)
			assert.True(t, p.IsAdmin())
		}
		assert.Equal(t, 3, store.Writes())
	})

	t.Run("configured admin falls back when admin is taken", func(t *testing.T) {
		t.Parallel()
		squatter := userProfile("u-7")
		squatter.Matricula = "admin"
		store := mocks.NewMemoryProfileStore(squatter)
		r := newResolver(t, store)

		p, err := r.Resolve(context.Background(), domainauth.Identity{UserID: "a-1", Email: testAdminEmail})
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "admin-a-1", p.Matricula)
		assert.Equal(t, domainauth.RoleAdmin, p.Role)
	})
}

func TestProfileResolver_RequiresUserID(t *testing.T) {
	t.Parallel()
	r, err := NewProfileResolver(ProfileResolverOptions{Profiles: mocks.NewMemoryProfileStore()})
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), domainauth.Identity{})
	require.Error(t, err)

	_, err = NewProfileResolver(ProfileResolverOptions{})
	require.Error(t, err)
}
