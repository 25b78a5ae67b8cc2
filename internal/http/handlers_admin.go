package httpx

import (
	"context"
	"net/http"
	"strings"

	domainauth "github.com/target/tempguard-api/internal/domain/auth"
	"github.com/target/tempguard-api/internal/domain/model"
	"github.com/target/tempguard-api/internal/service"
)

// StatsServiceInterface computes chart aggregates.
type StatsServiceInterface interface {
	Summary(ctx context.Context, f model.RecordFilter) (*model.StatsSummary, error)
}

// UserServiceInterface administers ordinary users.
type UserServiceInterface interface {
	List(ctx context.Context) ([]*domainauth.Profile, error)
	Create(ctx context.Context, req model.CreateUserRequest) (*domainauth.Profile, error)
	Delete(ctx context.Context, actorID, userID string) error
}

// MaintenanceServiceInterface runs destructive record maintenance.
type MaintenanceServiceInterface interface {
	Cleanup(ctx context.Context, days int, confirmation string) (*service.MaintenanceResult, error)
	Reset(ctx context.Context, confirmation string) (*service.MaintenanceResult, error)
}

// AdminHandlers serves the charts, user administration and maintenance endpoints.
type AdminHandlers struct {
	Stats       StatsServiceInterface
	Users       UserServiceInterface
	Maintenance MaintenanceServiceInterface
}

// StatsSummary returns aggregates over the filtered records.
// GET /api/stats with the same query parameters as /api/records.
func (h *AdminHandlers) StatsSummary(w http.ResponseWriter, r *http.Request) {
	f, err := ParseRecordFilter(r.URL.Query())
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	sum, err := h.Stats.Summary(r.Context(), f)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, sum)
}

// ListUsers returns non-admin profiles.
// GET /api/users.
func (h *AdminHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.List(r.Context())
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	if users == nil {
		users = []*domainauth.Profile{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

// CreateUser creates an identity and its profile.
// POST /api/users.
func (h *AdminHandlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	p, err := h.Users.Create(r.Context(), req)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, p)
}

// DeleteUser removes a user and revokes their sessions.
// DELETE /api/users/{id}.
func (h *AdminHandlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	var actor string
	if sess := GetSessionFromContext(r.Context()); sess != nil {
		actor = sess.UserID
	}
	if err := h.Users.Delete(r.Context(), actor, strings.TrimSpace(r.PathValue("id"))); err != nil {
		WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type cleanupRequest struct {
	Days         int    `json:"days"`
	Confirmation string `json:"confirmation"`
}

type resetRequest struct {
	Confirmation string `json:"confirmation"`
}

// Cleanup deletes records older than the chosen window.
// POST /api/maintenance/cleanup {days, confirmation}.
func (h *AdminHandlers) Cleanup(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	res, err := h.Maintenance.Cleanup(r.Context(), req.Days, req.Confirmation)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// Reset deletes every record.
// POST /api/maintenance/reset {confirmation}.
func (h *AdminHandlers) Reset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	res, err := h.Maintenance.Reset(r.Context(), req.Confirmation)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}
