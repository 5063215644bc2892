package finance

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRecordFromDocument_Defaults(t *testing.T) {
	r := RecordFromDocument(map[string]interface{}{})

	assert.True(t, r.Amount.IsZero())
	assert.Equal(t, DefaultCategory, r.Category)
	assert.Equal(t, DefaultUnknown, r.Type)
	assert.Equal(t, DefaultUnknown, r.UserID)
	assert.Equal(t, DefaultUnknown, r.Date)
}

func TestRecordFromDocument_EmptyStringsTakeDefaults(t *testing.T) {
	// SQL rows carry NULL text columns as "", so blank and missing are the same.
	r := RecordFromDocument(map[string]interface{}{
		"amount": 30, "category": "", "type": "", "userId": "", "date": "",
	})

	assert.Equal(t, DefaultCategory, r.Category)
	assert.Equal(t, DefaultUnknown, r.Type)
	assert.Equal(t, DefaultUnknown, r.UserID)
	assert.Equal(t, DefaultUnknown, r.Date)
	assert.Equal(t, "30", r.Amount.String())
}

func TestRecordFromDocument_AmountTypes(t *testing.T) {
	tests := []struct {
		name   string
		amount interface{}
		want   string
	}{
		{"int", 12, "12"},
		{"int64", int64(5000), "5000"},
		{"float64", 12.5, "12.5"},
		{"json number", json.Number("99.99"), "99.99"},
		{"numeric string", " 42 ", "42"},
		{"driver bytes", []byte("120.50"), "120.5"},
		{"garbage string", "abc", "0"},
		{"bool", true, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := RecordFromDocument(map[string]interface{}{"amount": tt.amount})
			assert.True(t, r.Amount.Equal(decimal.RequireFromString(tt.want)), "got %s", r.Amount)
		})
	}
}

func TestRecordFromDocument_Fields(t *testing.T) {
	r := RecordFromDocument(map[string]interface{}{
		"amount":   int64(120),
		"category": "Food",
		"type":     "Expense",
		"userId":   "u9",
		"date":     time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC),
	})

	assert.Equal(t, "Food", r.Category)
	assert.Equal(t, "Expense", r.Type)
	assert.Equal(t, "u9", r.UserID)
	assert.Equal(t, "2025-03-04", r.Date)
	assert.False(t, r.IsIncome())
}

func TestSampleRecords_FreshSlice(t *testing.T) {
	a := SampleRecords()
	a[0].Category = "changed"

	assert.Equal(t, "Salary", SampleRecords()[0].Category)
	assert.Len(t, SampleRecords(), 3)
}

func TestInsights(t *testing.T) {
	insights := Insights(Aggregate(SampleRecords()))

	if assert.Len(t, insights, 2) {
		assert.Equal(t, InsightSpending, insights[0].Type)
		assert.Contains(t, insights[0].Description, "Utilities at $200.00")
		assert.Equal(t, InsightRecommendation, insights[1].Type)
	}

	onlyIncome := Insights(Aggregate([]Record{{Amount: decimal.NewFromInt(10), Type: "Income", Category: "Salary"}}))
	if assert.Len(t, onlyIncome, 1) {
		assert.Equal(t, InsightRecommendation, onlyIncome[0].Type)
	}
}
