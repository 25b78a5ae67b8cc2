package service

import (
	"cmp"
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/target/tempguard-api/internal/domain/model"
)

const variationLabelLayout = "02/01 15:04"

// RecordQuerier is the read side of RecordService used for aggregation.
type RecordQuerier interface {
	QueryAscending(ctx context.Context, f model.RecordFilter) ([]*model.TemperatureRecord, error)
	Location() *time.Location
}

// QueryAscending returns the filtered records oldest first.
func (s *RecordService) QueryAscending(ctx context.Context, f model.RecordFilter) ([]*model.TemperatureRecord, error) {
	return s.query(ctx, f, true)
}

// StatsService aggregates filtered records for the charts screen.
type StatsService struct {
	records RecordQuerier
}

// NewStatsService constructs a new StatsService.
func NewStatsService(records RecordQuerier) (*StatsService, error) {
	if records == nil {
		return nil, errors.New("RecordQuerier is required")
	}
	return &StatsService{records: records}, nil
}

// Summary queries records with f and computes per-location and per-product averages
// plus the start/middle/end variation series.
func (s *StatsService) Summary(ctx context.Context, f model.RecordFilter) (*model.StatsSummary, error) {
	recs, err := s.records.QueryAscending(ctx, f)
	if err != nil {
		return nil, err
	}
	return Summarize(recs, s.records.Location()), nil
}

// Summarize computes the stats for recs, which must be ordered by timestamp ascending.
func Summarize(recs []*model.TemperatureRecord, loc *time.Location) *model.StatsSummary {
	if loc == nil {
		loc = time.UTC
	}
	return &model.StatsSummary{
		Count:      len(recs),
		ByLocation: averageByLocation(recs),
		ByProduct:  averageByProduct(recs),
		Variation:  variation(recs, loc),
	}
}

type sums struct {
	start, middle, end float64
	n                  int
}

func averageByLocation(recs []*model.TemperatureRecord) []model.LocationAverage {
	groups := make(map[string]*sums)
	for _, r := range recs {
		key := labelOrUnknown(r.Location)
		g := groups[key]
		if g == nil {
			g = &sums{}
			groups[key] = g
		}
		g.start += r.Temperatures.Start
		g.middle += r.Temperatures.Middle
		g.end += r.Temperatures.End
		g.n++
	}

	out := make([]model.LocationAverage, 0, len(groups))
	for loc, g := range groups {
		n := float64(g.n)
		out = append(out, model.LocationAverage{
			Location: loc,
			Start:    round2(g.start / n),
			Middle:   round2(g.middle / n),
			End:      round2(g.end / n),
			Count:    g.n,
		})
	}
	slices.SortFunc(out, func(a, b model.LocationAverage) int { return strings.Compare(a.Location, b.Location) })
	return out
}

func averageByProduct(recs []*model.TemperatureRecord) []model.ProductAverage {
	groups := make(map[string]*sums)
	for _, r := range recs {
		key := labelOrUnknown(r.ProductName)
		g := groups[key]
		if g == nil {
			g = &sums{}
			groups[key] = g
		}
		g.start += r.Temperatures.Start + r.Temperatures.Middle + r.Temperatures.End
		g.n += 3
	}

	out := make([]model.ProductAverage, 0, len(groups))
	for product, g := range groups {
		out = append(out, model.ProductAverage{
			Product: product,
			Average: round2(g.start / float64(g.n)),
			Count:   g.n / 3,
		})
	}
	slices.SortFunc(out, func(a, b model.ProductAverage) int {
		if c := cmp.Compare(a.Average, b.Average); c != 0 {
			return c
		}
		return strings.Compare(a.Product, b.Product)
	})
	return out
}

func variation(recs []*model.TemperatureRecord, loc *time.Location) []model.VariationPoint {
	out := make([]model.VariationPoint, 0, len(recs))
	for _, r := range recs {
		ts := r.Timestamp.In(loc)
		out = append(out, model.VariationPoint{
			Label:     ts.Format(variationLabelLayout),
			RecordID:  r.ID,
			Location:  labelOrUnknown(r.Location),
			Product:   labelOrUnknown(r.ProductName),
			Start:     r.Temperatures.Start,
			Middle:    r.Temperatures.Middle,
			End:       r.Temperatures.End,
			Timestamp: ts.Format(time.RFC3339),
		})
	}
	return out
}

func labelOrUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return model.UnknownLabel
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
