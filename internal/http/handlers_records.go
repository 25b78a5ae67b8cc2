package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/target/tempguard-api/internal/domain/model"
	apperrors "github.com/target/tempguard-api/internal/errors"
)

const maxRecordListLimit = 5000

// RecordServiceInterface is the RecordService surface used by the handlers.
type RecordServiceInterface interface {
	Create(ctx context.Context, req model.CreateRecordRequest) (*model.TemperatureRecord, error)
	Query(ctx context.Context, f model.RecordFilter) ([]*model.TemperatureRecord, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// ProductLookuper resolves product codes to suggestions.
type ProductLookuper interface {
	Lookup(ctx context.Context, code string) *model.ProductSuggestion
}

// RecordHandlers provides HTTP handlers for temperature records and their reference data.
type RecordHandlers struct {
	Svc       RecordServiceInterface
	Lookup    ProductLookuper
	Locations *model.LocationCatalog
}

// Create registers a record for the signed-in user.
// POST /api/records.
func (h *RecordHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateRecordRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if sess := GetSessionFromContext(r.Context()); sess != nil {
		req.CreatedBy = sess.UserID
	}

	rec, err := h.Svc.Create(r.Context(), req)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, rec)
}

// List returns the records matching the query filter, newest first.
// GET /api/records?start_date=&end_date=&location=&shift=&market_type=&product_code=&limit=.
func (h *RecordHandlers) List(w http.ResponseWriter, r *http.Request) {
	f, err := ParseRecordFilter(r.URL.Query())
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}

	recs, err := h.Svc.Query(r.Context(), f)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	if recs == nil {
		recs = []*model.TemperatureRecord{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"records": recs,
		"count":   len(recs),
	})
}

// Delete removes one record. Unknown ids report deleted=false.
// DELETE /api/records/{id}.
func (h *RecordHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("record id is required")})
		return
	}

	deleted, err := h.Svc.Delete(r.Context(), id)
	if err != nil {
		WriteServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

// ListLocations returns the location catalogue for the form.
// GET /api/locations.
func (h *RecordHandlers) ListLocations(w http.ResponseWriter, _ *http.Request) {
	groups := []model.LocationGroup{}
	if h.Locations != nil {
		groups = h.Locations.Groups
	}
	WriteJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

// LookupProduct suggests a product for a code. Lookup failures yield a null suggestion.
// GET /api/products/{code}/lookup.
func (h *RecordHandlers) LookupProduct(w http.ResponseWriter, r *http.Request) {
	var sug *model.ProductSuggestion
	if h.Lookup != nil {
		sug = h.Lookup.Lookup(r.Context(), r.PathValue("code"))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"suggestion": sug})
}

// ParseRecordFilter builds a RecordFilter from query parameters.
// Range and enum validation is left to the service; only malformed numbers fail here.
func ParseRecordFilter(q url.Values) (model.RecordFilter, error) {
	f := model.RecordFilter{
		StartDate:   strings.TrimSpace(q.Get("start_date")),
		EndDate:     strings.TrimSpace(q.Get("end_date")),
		Location:    strings.TrimSpace(q.Get("location")),
		Shift:       model.Shift(strings.TrimSpace(q.Get("shift"))),
		MarketType:  model.MarketType(strings.ToUpper(strings.TrimSpace(q.Get("market_type")))),
		ProductCode: strings.TrimSpace(q.Get("product_code")),
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, apperrors.ValidationField("limit", "limit must be a non-negative integer")
		}
		f.Limit = min(n, maxRecordListLimit)
	}
	return f, nil
}
