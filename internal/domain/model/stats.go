//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

// UnknownLabel replaces empty grouping keys in stats.
const UnknownLabel = "N/A"

// LocationAverage holds the mean readings for one location.
type LocationAverage struct {
	Location string  `json:"location"`
	Start    float64 `json:"start"`
	Middle   float64 `json:"middle"`
	End      float64 `json:"end"`
	Count    int     `json:"count"`
}

// ProductAverage holds the mean of all readings for one product.
type ProductAverage struct {
	Product string  `json:"product"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// VariationPoint is one record in the start/middle/end variation series.
type VariationPoint struct {
	Label     string  `json:"label"`
	RecordID  string  `json:"record_id"`
	Location  string  `json:"location"`
	Product   string  `json:"product"`
	Start     float64 `json:"start"`
	Middle    float64 `json:"middle"`
	End       float64 `json:"end"`
	Timestamp string  `json:"timestamp"`
}

// StatsSummary aggregates a filtered record set.
type StatsSummary struct {
	Count      int               `json:"count"`
	ByLocation []LocationAverage `json:"by_location"`
	ByProduct  []ProductAverage  `json:"by_product"`
	Variation  []VariationPoint  `json:"variation"`
}
