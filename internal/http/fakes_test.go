package httpx

import (
	"context"
	"sync"
	"time"

	domainauth "github.com/target/tempguard-api/internal/domain/auth"
	"github.com/target/tempguard-api/internal/domain/model"
	apperrors "github.com/target/tempguard-api/internal/errors"
	"github.com/target/tempguard-api/internal/service"
)

// fakeSessions is an in-memory SessionService keyed by session id.
type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]*domainauth.Session
	loginFn  func(creds domainauth.Credentials) (*service.LoginOutcome, error)
	logouts  []string
}

func newFakeSessions(sessions ...*domainauth.Session) *fakeSessions {
	f := &fakeSessions{sessions: make(map[string]*domainauth.Session)}
	for _, s := range sessions {
		f.sessions[s.ID] = s
	}
	return f
}

func (f *fakeSessions) GetSession(_ context.Context, id string) (*domainauth.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, service.ErrSessionInvalid
	}
	return s, nil
}

func (f *fakeSessions) Login(_ context.Context, creds domainauth.Credentials) (*service.LoginOutcome, error) {
	if f.loginFn == nil {
		return nil, service.ErrInvalidCredentials
	}
	return f.loginFn(creds)
}

func (f *fakeSessions) Current(ctx context.Context, id string) (service.Snapshot, error) {
	s, err := f.GetSession(ctx, id)
	if err != nil {
		return service.Snapshot{State: domainauth.StateUnauthenticated}, nil
	}
	exp := s.ExpiresAt
	return service.Snapshot{
		State:     domainauth.StateAuthenticated,
		Identity:  &service.SnapshotIdentity{UserID: s.UserID, Email: s.Email, DisplayName: s.DisplayName},
		Profile:   s.Profile(),
		ExpiresAt: &exp,
	}, nil
}

func (f *fakeSessions) Logout(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts = append(f.logouts, id)
	delete(f.sessions, id)
	return nil
}

func userSession(id string, perms ...domainauth.Permission) *domainauth.Session {
	return &domainauth.Session{
		ID:          id,
		UserID:      "user-" + id,
		Email:       "1234@local.user",
		DisplayName: "Operador",
		Matricula:   "1234",
		Role:        domainauth.RoleUser,
		Permissions: perms,
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

func adminSession(id string) *domainauth.Session {
	return &domainauth.Session{
		ID:          id,
		UserID:      "admin-" + id,
		Email:       "admin@example.com",
		DisplayName: "Admin",
		Role:        domainauth.RoleAdmin,
		Permissions: domainauth.AllPermissions(),
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

// fakeRecords records the last create request and serves a fixed result set.
type fakeRecords struct {
	mu       sync.Mutex
	created  []model.CreateRecordRequest
	filters  []model.RecordFilter
	records  []*model.TemperatureRecord
	existing map[string]bool
}

func (f *fakeRecords) Create(_ context.Context, req model.CreateRecordRequest) (*model.TemperatureRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, req)
	return &model.TemperatureRecord{ID: "rec-1", CreatedBy: req.CreatedBy}, nil
}

func (f *fakeRecords) Query(_ context.Context, fl model.RecordFilter) ([]*model.TemperatureRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, fl)
	return f.records, nil
}

func (f *fakeRecords) Delete(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.existing[id], nil
}

type fakeStats struct{}

func (fakeStats) Summary(context.Context, model.RecordFilter) (*model.StatsSummary, error) {
	return &model.StatsSummary{}, nil
}

type fakeUsers struct {
	deletes [][2]string
}

func (f *fakeUsers) List(context.Context) ([]*domainauth.Profile, error) { return nil, nil }

func (f *fakeUsers) Create(_ context.Context, req model.CreateUserRequest) (*domainauth.Profile, error) {
	if req.Matricula == "" {
		return nil, apperrors.ValidationField("matricula", "matricula is required")
	}
	return &domainauth.Profile{ID: "u-new", Matricula: req.Matricula, Role: domainauth.RoleUser}, nil
}

func (f *fakeUsers) Delete(_ context.Context, actorID, userID string) error {
	f.deletes = append(f.deletes, [2]string{actorID, userID})
	return nil
}

type fakeMaintenance struct{}

func (fakeMaintenance) Cleanup(_ context.Context, days int, _ string) (*service.MaintenanceResult, error) {
	if days != 30 {
		return nil, apperrors.ValidationField("days", "invalid window")
	}
	return &service.MaintenanceResult{Count: 2, Message: "Limpeza concluída. 2 registros foram removidos."}, nil
}

func (fakeMaintenance) Reset(_ context.Context, confirmation string) (*service.MaintenanceResult, error) {
	if confirmation != "ok" {
		return nil, apperrors.Forbidden("senha de confirmação incorreta")
	}
	return &service.MaintenanceResult{Count: 0, Message: "Nenhum registro para apagar."}, nil
}
