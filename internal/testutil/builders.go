// Package testutil provides testing utilities and helpers for the TempGuard API.
package testutil

import (
	"github.com/target/tempguard-api/internal/domain/model"
)

// RecordRequestBuilder provides a fluent interface for building CreateRecordRequest objects for testing.
type RecordRequestBuilder struct {
	req *model.CreateRecordRequest
}

// NewRecordRequest creates a RecordRequestBuilder with a valid first-shift reading at Túnel 3.
func NewRecordRequest() *RecordRequestBuilder {
	return &RecordRequestBuilder{
		req: &model.CreateRecordRequest{
			Shift:       model.ShiftFirst,
			Location:    "Túnel 3",
			ProductCode: "12345",
			ProductName: "Peito de Frango",
			MarketType:  model.MarketInternal,
			State:       model.StateFrozen,
			ManualDate:  "2024-05-10",
			ManualTime:  "08:30",
			Temperatures: model.TemperatureInput{
				Start:  FloatPtr(-18.5),
				Middle: FloatPtr(-18),
				End:    FloatPtr(-17.5),
			},
		},
	}
}

// WithShift sets the shift.
func (b *RecordRequestBuilder) WithShift(s model.Shift) *RecordRequestBuilder {
	b.req.Shift = s
	return b
}

// WithLocation sets the location.
func (b *RecordRequestBuilder) WithLocation(loc string) *RecordRequestBuilder {
	b.req.Location = loc
	return b
}

// WithProduct sets the product code and name.
func (b *RecordRequestBuilder) WithProduct(code, name string) *RecordRequestBuilder {
	b.req.ProductCode = code
	b.req.ProductName = name
	return b
}

// WithMarket sets the market type.
func (b *RecordRequestBuilder) WithMarket(m model.MarketType) *RecordRequestBuilder {
	b.req.MarketType = m
	return b
}

// At sets the manual date and time.
func (b *RecordRequestBuilder) At(date, clock string) *RecordRequestBuilder {
	b.req.ManualDate = date
	b.req.ManualTime = clock
	return b
}

// WithTemperatures sets all three readings.
func (b *RecordRequestBuilder) WithTemperatures(start, middle, end float64) *RecordRequestBuilder {
	b.req.Temperatures = model.TemperatureInput{Start: FloatPtr(start), Middle: FloatPtr(middle), End: FloatPtr(end)}
	return b
}

// Build returns a copy of the request.
func (b *RecordRequestBuilder) Build() model.CreateRecordRequest {
	return *b.req
}
