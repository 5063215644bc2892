package finance

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Field defaults applied when a transaction document omits a value.
const (
	DefaultCategory = "uncategorized"
	DefaultUnknown  = "unknown"
)

// TypeIncome is the (case-insensitive) type marking a record as income.
// Every other type counts as an expense.
const TypeIncome = "income"

// Record is a read-only snapshot of one transaction document.
type Record struct {
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Type     string          `json:"type"`
	UserID   string          `json:"userId"`
	Date     string          `json:"date"` // YYYY-MM-DD
}

// IsIncome reports whether the record's type is "income", ignoring case.
func (r Record) IsIncome() bool {
	return strings.EqualFold(r.Type, TypeIncome)
}

// WithDefaults fills empty string fields with their documented defaults.
func (r Record) WithDefaults() Record {
	if r.Category == "" {
		r.Category = DefaultCategory
	}
	if r.Type == "" {
		r.Type = DefaultUnknown
	}
	if r.UserID == "" {
		r.UserID = DefaultUnknown
	}
	if r.Date == "" {
		r.Date = DefaultUnknown
	}
	return r
}

// RecordFromDocument builds a Record from a loosely typed document such as a
// Firestore map or a decoded JSON object. Missing or unusable fields take the
// record defaults.
func RecordFromDocument(doc map[string]interface{}) Record {
	r := Record{
		Amount:   toDecimal(doc["amount"]),
		Category: toString(doc["category"]),
		Type:     toString(doc["type"]),
		UserID:   toString(doc["userId"]),
		Date:     toString(doc["date"]),
	}
	return r.WithDefaults()
}

func toDecimal(v interface{}) decimal.Decimal {
	switch n := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return n
	case int:
		return decimal.NewFromInt(int64(n))
	case int32:
		return decimal.NewFromInt32(n)
	case int64:
		return decimal.NewFromInt(n)
	case float32:
		return decimal.NewFromFloat32(n)
	case float64:
		return decimal.NewFromFloat(n)
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero
		}
		return d
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Zero
		}
		return d
	case []byte:
		return toDecimal(string(n))
	default:
		return decimal.Zero
	}
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case time.Time:
		return s.Format("2006-01-02")
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}

// SampleRecords returns the fixed data set substituted when no record store
// can be reached. A fresh slice is returned on every call.
func SampleRecords() []Record {
	return []Record{
		{Amount: decimal.NewFromInt(5000), Category: "Salary", Type: "Income", UserID: "u1", Date: "2025-01-01"},
		{Amount: decimal.NewFromInt(120), Category: "Food", Type: "Expense", UserID: "u1", Date: "2025-01-02"},
		{Amount: decimal.NewFromInt(200), Category: "Utilities", Type: "Expense", UserID: "u1", Date: "2025-01-03"},
	}
}
