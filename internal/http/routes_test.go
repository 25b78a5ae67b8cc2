package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/tempguard-api/internal/domain/auth"
	"github.com/target/tempguard-api/internal/domain/model"
)

const testCSRFToken = "csrf-test-token"

func newTestRouter(t *testing.T, sessions *fakeSessions) (http.Handler, *fakeRecords, *fakeUsers) {
	t.Helper()
	records := &fakeRecords{existing: map[string]bool{"rec-1": true}}
	users := &fakeUsers{}
	h := NewRouter(RouterServices{
		Sessions:    sessions,
		Records:     records,
		Locations:   &model.LocationCatalog{Groups: []model.LocationGroup{{Name: "Túneis", Locations: []string{"Túnel 3"}}}},
		Stats:       fakeStats{},
		Users:       users,
		Maintenance: fakeMaintenance{},
	})
	return h, records, users
}

// doRequest issues a request, authenticating with sessionID and echoing the CSRF token when set.
func doRequest(h http.Handler, method, path, sessionID, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: sessionID})
		req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: testCSRFToken})
		req.Header.Set(DefaultCSRFHeaderName, testCSRFToken)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter_PermissionMatrix(t *testing.T) {
	t.Parallel()

	sessions := newFakeSessions(
		userSession("register", domainauth.PermRegister),
		userSession("viewer", domainauth.PermRecordsView),
		userSession("form", domainauth.PermRecordsForm),
		userSession("deleter", domainauth.PermDeleteRecords),
		userSession("charts", domainauth.PermCharts),
		// Tags alone never grant admin routes.
		userSession("pretender", domainauth.PermUsers, domainauth.PermSettings),
		adminSession("admin"),
	)
	h, _, _ := newTestRouter(t, sessions)

	recordBody := `{"shift":"1","location":"Túnel 3","product_name":"Frango","market_type":"MI","state":"Congelado","manual_date":"2024-05-10","manual_time":"08:00","temperatures":{}}`

	tests := []struct {
		name    string
		method  string
		path    string
		session string
		body    string
		want    int
	}{
		{"anonymous locations", http.MethodGet, "/api/locations", "", "", http.StatusUnauthorized},
		{"unknown session", http.MethodGet, "/api/locations", "ghost", "", http.StatusUnauthorized},
		{"locations with register", http.MethodGet, "/api/locations", "register", "", http.StatusOK},
		{"locations without register", http.MethodGet, "/api/locations", "viewer", "", http.StatusForbidden},
		{"create with register", http.MethodPost, "/api/records", "register", recordBody, http.StatusCreated},
		{"create with form tag", http.MethodPost, "/api/records", "form", recordBody, http.StatusCreated},
		{"create with view only", http.MethodPost, "/api/records", "viewer", recordBody, http.StatusForbidden},
		{"list with view", http.MethodGet, "/api/records", "viewer", "", http.StatusOK},
		{"list without view", http.MethodGet, "/api/records", "register", "", http.StatusForbidden},
		{"delete with tag", http.MethodDelete, "/api/records/rec-1", "deleter", "", http.StatusOK},
		{"delete without tag", http.MethodDelete, "/api/records/rec-1", "viewer", "", http.StatusForbidden},
		{"stats with charts", http.MethodGet, "/api/stats", "charts", "", http.StatusOK},
		{"stats without charts", http.MethodGet, "/api/stats", "viewer", "", http.StatusForbidden},
		{"lookup with register", http.MethodGet, "/api/products/123/lookup", "register", "", http.StatusOK},
		{"users as pretender", http.MethodGet, "/api/users", "pretender", "", http.StatusForbidden},
		{"users as admin", http.MethodGet, "/api/users", "admin", "", http.StatusOK},
		{"reset as pretender", http.MethodPost, "/api/maintenance/reset", "pretender", `{"confirmation":"ok"}`, http.StatusForbidden},
		{"reset as admin", http.MethodPost, "/api/maintenance/reset", "admin", `{"confirmation":"ok"}`, http.StatusOK},
		{"reset wrong password", http.MethodPost, "/api/maintenance/reset", "admin", `{"confirmation":"no"}`, http.StatusForbidden},
		{"cleanup bad window", http.MethodPost, "/api/maintenance/cleanup", "admin", `{"days":7,"confirmation":"ok"}`, http.StatusBadRequest},
		{"healthz", http.MethodGet, "/healthz", "", "", http.StatusOK},
		{"readyz without checks", http.MethodGet, "/readyz", "", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := doRequest(h, tt.method, tt.path, tt.session, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestRouter_CreateRecordStampsSessionUser(t *testing.T) {
	t.Parallel()

	h, records, _ := newTestRouter(t, newFakeSessions(userSession("s1", domainauth.PermRegister)))
	body := `{"shift":"1","location":"Túnel 3","product_name":"Frango","market_type":"MI","state":"Congelado","manual_date":"2024-05-10","manual_time":"08:00","temperatures":{}}`

	w := doRequest(h, http.MethodPost, "/api/records", "s1", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, records.created, 1)
	assert.Equal(t, "user-s1", records.created[0].CreatedBy)
}

func TestRouter_CreateRecordRejectsClientCreatedBy(t *testing.T) {
	t.Parallel()

	h, records, _ := newTestRouter(t, newFakeSessions(userSession("s1", domainauth.PermRegister)))
	w := doRequest(h, http.MethodPost, "/api/records", "s1", `{"created_by":"someone-else"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, records.created)
}

func TestRouter_DeleteUserPassesActor(t *testing.T) {
	t.Parallel()

	h, _, users := newTestRouter(t, newFakeSessions(adminSession("a1")))
	w := doRequest(h, http.MethodDelete, "/api/users/u-42", "a1", "")

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Len(t, users.deletes, 1)
	assert.Equal(t, [2]string{"admin-a1", "u-42"}, users.deletes[0])
}

func TestRouter_ValidationErrorCarriesField(t *testing.T) {
	t.Parallel()

	h, _, _ := newTestRouter(t, newFakeSessions(adminSession("a1")))
	w := doRequest(h, http.MethodPost, "/api/users", "a1", `{"display_name":"X","matricula":"","password":"123456"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "validation", body["error"])
	assert.Equal(t, "matricula", body["field"])
}

func TestRouter_MutationWithoutCSRFHeaderFails(t *testing.T) {
	t.Parallel()

	h, records, _ := newTestRouter(t, newFakeSessions(userSession("s1", domainauth.PermDeleteRecords)))
	req := httptest.NewRequest(http.MethodDelete, "/api/records/rec-1", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "s1"})
	req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: testCSRFToken})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "csrf_failed")
	assert.Empty(t, records.created)
}

func TestRouter_LocationsPayload(t *testing.T) {
	t.Parallel()

	h, _, _ := newTestRouter(t, newFakeSessions(userSession("s1", domainauth.PermRegister)))
	w := doRequest(h, http.MethodGet, "/api/locations", "s1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Groups []model.LocationGroup `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Groups, 1)
	assert.Contains(t, body.Groups[0].Locations, "Túnel 3")
}
