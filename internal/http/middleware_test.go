package httpx

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/tempguard-api/internal/domain/auth"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	sessions := newFakeSessions(userSession("valid"))

	t.Run("valid session reaches handler", func(t *testing.T) {
		t.Parallel()
		var got *domainauth.Session
		h := RequireAuth(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = GetSessionFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}))
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "valid"})
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, got)
		assert.Equal(t, "user-valid", got.UserID)
	})

	for name, cookie := range map[string]*http.Cookie{
		"no cookie":      nil,
		"empty cookie":   {Name: SessionCookieName, Value: ""},
		"unknown cookie": {Name: SessionCookieName, Value: "nope"},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if cookie != nil {
				req.AddCookie(cookie)
			}
			w := httptest.NewRecorder()
			RequireAuth(sessions)(okHandler()).ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "authentication_required")
		})
	}
}

func TestRequireAuthRedirectsBrowsers(t *testing.T) {
	t.Parallel()
	sessions := newFakeSessions()

	t.Run("html navigation redirects to entry", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/registrar", nil)
		req.Header.Set("Accept", "text/html,application/xhtml+xml")
		w := httptest.NewRecorder()
		RequireAuth(sessions)(okHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, domainauth.EntryPath, w.Header().Get("Location"))
	})

	t.Run("htmx gets Hx-Redirect", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/api/records", nil)
		req.Header.Set("Hx-Request", "true")
		w := httptest.NewRecorder()
		RequireAuth(sessions)(okHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, domainauth.EntryPath, w.Header().Get("Hx-Redirect"))
	})

	t.Run("api path stays json even for html accept", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/api/records", nil)
		req.Header.Set("Accept", "text/html")
		w := httptest.NewRecorder()
		RequireAuth(sessions)(okHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, w.Header().Get("Location"))
	})
}

func TestRequirePermission(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		session *domainauth.Session
		perms   []domainauth.Permission
		want    int
	}{
		{"no session", nil, []domainauth.Permission{domainauth.PermCharts}, http.StatusUnauthorized},
		{"has tag", userSession("a", domainauth.PermCharts), []domainauth.Permission{domainauth.PermCharts}, http.StatusOK},
		{"any of", userSession("b", domainauth.PermRegister), []domainauth.Permission{domainauth.PermRecordsForm, domainauth.PermRegister}, http.StatusOK},
		{"missing tag", userSession("c", domainauth.PermRegister), []domainauth.Permission{domainauth.PermCharts}, http.StatusForbidden},
		{"empty tags", userSession("d"), []domainauth.Permission{domainauth.PermRegister}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.session != nil {
				req = req.WithContext(SetSessionInContext(req.Context(), tt.session))
			}
			w := httptest.NewRecorder()
			RequirePermission(tt.perms...)(okHandler()).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	h := RequireRole(domainauth.RoleAdmin)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req.WithContext(SetSessionInContext(req.Context(), adminSession("a"))))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, req.WithContext(SetSessionInContext(req.Context(), userSession("u", domainauth.AllPermissions()...))))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRecover(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := Recover(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/explode", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"internal"`)
	assert.Contains(t, buf.String(), "boom")
}

func TestRecover_AbortHandlerPropagates(t *testing.T) {
	t.Parallel()

	h := Recover(slog.Default())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestChainOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	Chain(okHandler(), mw("first"), mw("second"), mw("third")).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

type recordedRequest struct {
	method, route string
	status        int
}

type recordingRequestObserver struct {
	got []recordedRequest
}

func (o *recordingRequestObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	o.got = append(o.got, recordedRequest{method: method, route: route, status: status})
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/records/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	obs := &recordingRequestObserver{}
	h := Metrics(obs)(mux)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/records/abc", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	require.Len(t, obs.got, 2)
	assert.Equal(t, recordedRequest{http.MethodDelete, "DELETE /api/records/{id}", http.StatusNoContent}, obs.got[0])
	assert.Equal(t, recordedRequest{http.MethodGet, "", http.StatusNotFound}, obs.got[1])
}

func TestLogging(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/brew", nil))

	assert.Contains(t, buf.String(), `"path":"/brew"`)
	assert.Contains(t, buf.String(), `"status":418`)
}
