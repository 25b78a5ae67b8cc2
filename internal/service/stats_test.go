package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/tempguard-api/internal/domain/model"
)

type stubQuerier struct {
	recs []*model.TemperatureRecord
	err  error
	got  model.RecordFilter
}

func (s *stubQuerier) QueryAscending(_ context.Context, f model.RecordFilter) ([]*model.TemperatureRecord, error) {
	s.got = f
	return s.recs, s.err
}

func (s *stubQuerier) Location() *time.Location { return time.UTC }

func rec(id, location, product string, at time.Time, start, middle, end float64) *model.TemperatureRecord {
	return &model.TemperatureRecord{
		ID:           id,
		Location:     location,
		ProductName:  product,
		Timestamp:    at,
		Temperatures: model.Temperatures{Start: start, Middle: middle, End: end},
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()
	base := time.Date(2024, 5, 10, 8, 30, 0, 0, time.UTC)
	recs := []*model.TemperatureRecord{
		rec("r1", "Túnel 3", "Peito de Frango", base, -18.5, -18, -17.5),
		rec("r2", "Túnel 3", "Coxa", base.Add(time.Hour), -20, -19, -18),
		rec("r3", "", "", base.Add(2*time.Hour), 2.111, 3.333, 4.556),
		rec("r4", "Câmara A", "Peito de Frango", base.Add(26*time.Hour), -10, -10, -10),
	}

	got := Summarize(recs, time.UTC)

	want := &model.StatsSummary{
		Count: 4,
		ByLocation: []model.LocationAverage{
			{Location: "Câmara A", Start: -10, Middle: -10, End: -10, Count: 1},
			{Location: "N/A", Start: 2.11, Middle: 3.33, End: 4.56, Count: 1},
			{Location: "Túnel 3", Start: -19.25, Middle: -18.5, End: -17.75, Count: 2},
		},
		ByProduct: []model.ProductAverage{
			{Product: "Coxa", Average: -19, Count: 1},
			{Product: "Peito de Frango", Average: -14, Count: 2},
			{Product: "N/A", Average: 3.33, Count: 1},
		},
		Variation: []model.VariationPoint{
			{Label: "10/05 08:30", RecordID: "r1", Location: "Túnel 3", Product: "Peito de Frango", Start: -18.5, Middle: -18, End: -17.5, Timestamp: "2024-05-10T08:30:00Z"},
			{Label: "10/05 09:30", RecordID: "r2", Location: "Túnel 3", Product: "Coxa", Start: -20, Middle: -19, End: -18, Timestamp: "2024-05-10T09:30:00Z"},
			{Label: "10/05 10:30", RecordID: "r3", Location: "N/A", Product: "N/A", Start: 2.111, Middle: 3.333, End: 4.556, Timestamp: "2024-05-10T10:30:00Z"},
			{Label: "11/05 10:30", RecordID: "r4", Location: "Câmara A", Product: "Peito de Frango", Start: -10, Middle: -10, End: -10, Timestamp: "2024-05-11T10:30:00Z"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Summarize mismatch (-want +got):\n%s", diff)
	}
}

func TestSummarize_Empty(t *testing.T) {
	t.Parallel()
	got := Summarize(nil, nil)
	if diff := cmp.Diff(&model.StatsSummary{
		ByLocation: []model.LocationAverage{},
		ByProduct:  []model.ProductAverage{},
		Variation:  []model.VariationPoint{},
	}, got); diff != "" {
		t.Errorf("empty summary mismatch (-want +got):\n%s", diff)
	}
}

func TestStatsService_Summary(t *testing.T) {
	t.Parallel()
	q := &stubQuerier{recs: []*model.TemperatureRecord{
		rec("r1", "Túnel 3", "Coxa", time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC), -18, -18, -18),
	}}
	svc, err := NewStatsService(q)
	require.NoError(t, err)

	f := model.RecordFilter{StartDate: "2024-05-10", EndDate: "2024-05-10", Location: "Túnel 3"}
	sum, err := svc.Summary(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Count)
	assert.Equal(t, f, q.got)

	q.err = errors.New("boom")
	_, err = svc.Summary(context.Background(), f)
	require.Error(t, err)
}
