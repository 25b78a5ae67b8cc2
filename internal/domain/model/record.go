//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // facility zones must resolve on minimal images
	"unicode/utf8"

	apperrors "github.com/target/tempguard-api/internal/errors"
)

const (
	maxTextFieldLen = 200

	// ManualDateLayout is the layout of the manually entered record date.
	ManualDateLayout = "2006-01-02"
	// ManualTimeLayout is the layout of the manually entered record time.
	ManualTimeLayout = "15:04"
)

// Shift is the production shift a reading was taken in.
type Shift string

const (
	ShiftFirst  Shift = "1"
	ShiftSecond Shift = "2"
)

// Valid reports whether the shift is supported.
func (s Shift) Valid() bool { return s == ShiftFirst || s == ShiftSecond }

// UnmarshalJSON accepts both 1 and "1".
func (s *Shift) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = Shift(strings.TrimSpace(v))
		return nil
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return apperrors.ValidationField("shift", "shift must be 1 or 2")
	}
	*s = Shift(strconv.Itoa(n))
	return nil
}

// MarketType is the destination market of the product.
type MarketType string

const (
	MarketInternal MarketType = "MI"
	MarketExternal MarketType = "ME"
)

// Valid reports whether the market type is supported.
func (m MarketType) Valid() bool { return m == MarketInternal || m == MarketExternal }

// ProductState is the storage state of the product.
type ProductState string

const (
	StateFrozen  ProductState = "Congelado"
	StateChilled ProductState = "Resfriado"
)

// Valid reports whether the product state is supported.
func (p ProductState) Valid() bool { return p == StateFrozen || p == StateChilled }

// Temperatures holds the three independent readings in °C.
type Temperatures struct {
	Start  float64 `json:"start"`
	Middle float64 `json:"middle"`
	End    float64 `json:"end"`
}

// Average returns the mean of the three readings.
func (t Temperatures) Average() float64 { return (t.Start + t.Middle + t.End) / 3 }

// TemperatureRecord is one registered reading triple.
type TemperatureRecord struct {
	ID           string       `json:"id"`
	Shift        Shift        `json:"shift"`
	Location     string       `json:"location"`
	ProductCode  string       `json:"product_code,omitempty"`
	ProductName  string       `json:"product_name"`
	MarketType   MarketType   `json:"market_type"`
	State        ProductState `json:"state"`
	Temperatures Temperatures `json:"temperatures"`
	// Timestamp is derived from ManualDate and ManualTime in the facility zone.
	Timestamp  time.Time `json:"timestamp"`
	ManualDate string    `json:"manual_date"`
	ManualTime string    `json:"manual_time"`
	CreatedBy  string    `json:"created_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// TemperatureInput carries the readings as submitted; nil means missing.
type TemperatureInput struct {
	Start  *float64 `json:"start"`
	Middle *float64 `json:"middle"`
	End    *float64 `json:"end"`
}

// CreateRecordRequest represents parameters to register a TemperatureRecord.
type CreateRecordRequest struct {
	Shift        Shift            `json:"shift"`
	Location     string           `json:"location"`
	ProductCode  string           `json:"product_code,omitempty"`
	ProductName  string           `json:"product_name"`
	MarketType   MarketType       `json:"market_type"`
	State        ProductState     `json:"state"`
	ManualDate   string           `json:"manual_date"`
	ManualTime   string           `json:"manual_time"`
	Temperatures TemperatureInput `json:"temperatures"`

	// CreatedBy is set from the session, never from the body.
	CreatedBy string `json:"-"`
}

// Normalize trims text fields and upper-cases the market type.
func (r *CreateRecordRequest) Normalize() {
	r.Shift = Shift(strings.TrimSpace(string(r.Shift)))
	r.Location = strings.TrimSpace(r.Location)
	r.ProductCode = strings.TrimSpace(r.ProductCode)
	r.ProductName = strings.TrimSpace(r.ProductName)
	r.MarketType = MarketType(strings.ToUpper(strings.TrimSpace(string(r.MarketType))))
	r.State = ProductState(strings.TrimSpace(string(r.State)))
	r.ManualDate = strings.TrimSpace(r.ManualDate)
	r.ManualTime = strings.TrimSpace(r.ManualTime)
}

// Validate checks required fields and returns a validation error naming the first bad field.
func (r *CreateRecordRequest) Validate() error {
	if !r.Shift.Valid() {
		return apperrors.ValidationField("shift", "shift must be 1 or 2")
	}
	if err := requireText("location", r.Location); err != nil {
		return err
	}
	if err := requireText("product_name", r.ProductName); err != nil {
		return err
	}
	if utf8.RuneCountInString(r.ProductCode) > maxTextFieldLen {
		return apperrors.ValidationField("product_code", "product_code cannot exceed 200 characters")
	}
	if !r.MarketType.Valid() {
		return apperrors.ValidationField("market_type", "market_type must be MI or ME")
	}
	if !r.State.Valid() {
		return apperrors.ValidationField("state", "state must be Congelado or Resfriado")
	}
	if _, err := time.Parse(ManualDateLayout, r.ManualDate); err != nil {
		return apperrors.ValidationField("manual_date", "manual_date must be YYYY-MM-DD")
	}
	if len(r.ManualTime) != len(ManualTimeLayout) {
		return apperrors.ValidationField("manual_time", "manual_time must be HH:MM")
	}
	if _, err := time.Parse(ManualTimeLayout, r.ManualTime); err != nil {
		return apperrors.ValidationField("manual_time", "manual_time must be HH:MM")
	}
	readings := []struct {
		field string
		v     *float64
	}{
		{"temperatures.start", r.Temperatures.Start},
		{"temperatures.middle", r.Temperatures.Middle},
		{"temperatures.end", r.Temperatures.End},
	}
	for _, rd := range readings {
		if rd.v == nil {
			return apperrors.ValidationField(rd.field, rd.field+" is required")
		}
		if math.IsNaN(*rd.v) || math.IsInf(*rd.v, 0) {
			return apperrors.ValidationField(rd.field, rd.field+" must be a number")
		}
	}
	return nil
}

// Timestamp parses ManualDate+"T"+ManualTime+":00" in loc.
func (r *CreateRecordRequest) Timestamp(loc *time.Location) (time.Time, error) {
	return CanonicalTimestamp(r.ManualDate, r.ManualTime, loc)
}

// CanonicalTimestamp derives the record timestamp from its manual date and time.
func CanonicalTimestamp(manualDate, manualTime string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	ts, err := time.ParseInLocation("2006-01-02T15:04:05", manualDate+"T"+manualTime+":00", loc)
	if err != nil {
		return time.Time{}, apperrors.ValidationField("manual_date", "manual date and time do not form a valid timestamp")
	}
	return ts, nil
}

// Readings returns the validated temperatures. Call Validate first.
func (r *CreateRecordRequest) Readings() Temperatures {
	var t Temperatures
	if r.Temperatures.Start != nil {
		t.Start = *r.Temperatures.Start
	}
	if r.Temperatures.Middle != nil {
		t.Middle = *r.Temperatures.Middle
	}
	if r.Temperatures.End != nil {
		t.End = *r.Temperatures.End
	}
	return t
}

func requireText(field, v string) error {
	if v == "" {
		return apperrors.ValidationField(field, field+" is required")
	}
	if utf8.RuneCountInString(v) > maxTextFieldLen {
		return apperrors.ValidationField(field, field+" cannot exceed 200 characters")
	}
	return nil
}

// RecordFilter selects records for listing, stats and export.
// StartDate and EndDate are inclusive calendar days in the facility zone.
type RecordFilter struct {
	StartDate   string
	EndDate     string
	Location    string
	Shift       Shift
	MarketType  MarketType
	ProductCode string
	Limit       int
}

// RecordRange is a resolved half-open [From, To) timestamp interval.
type RecordRange struct {
	From time.Time
	To   time.Time
}

// Resolve validates the filter and converts the day range into timestamps in loc.
// The upper bound is the start of the day after EndDate, so the full end day is included.
func (f *RecordFilter) Resolve(loc *time.Location) (RecordRange, error) {
	if loc == nil {
		loc = time.UTC
	}
	start, err := time.ParseInLocation(ManualDateLayout, strings.TrimSpace(f.StartDate), loc)
	if err != nil {
		return RecordRange{}, apperrors.ValidationField("start_date", "start_date must be YYYY-MM-DD")
	}
	end, err := time.ParseInLocation(ManualDateLayout, strings.TrimSpace(f.EndDate), loc)
	if err != nil {
		return RecordRange{}, apperrors.ValidationField("end_date", "end_date must be YYYY-MM-DD")
	}
	if start.After(end) {
		return RecordRange{}, apperrors.ValidationField("start_date", "start_date must not be after end_date")
	}
	if f.Shift != "" && !f.Shift.Valid() {
		return RecordRange{}, apperrors.ValidationField("shift", "shift must be 1 or 2")
	}
	if f.MarketType != "" && !f.MarketType.Valid() {
		return RecordRange{}, apperrors.ValidationField("market_type", "market_type must be MI or ME")
	}
	if f.Limit < 0 {
		f.Limit = 0
	}
	return RecordRange{From: start, To: end.AddDate(0, 0, 1)}, nil
}
