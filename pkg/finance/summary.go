package finance

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RecentLimit is the number of leading records copied into Summary.Recent.
const RecentLimit = 5

// RecentEntry is the trimmed view of a record listed in a summary.
type RecentEntry struct {
	Date     string
	Amount   decimal.Decimal
	Category string
	Type     string
}

// Summary is the aggregate view of a transaction buffer.
type Summary struct {
	TotalIncome   decimal.Decimal
	TotalExpenses decimal.Decimal
	NetBalance    decimal.Decimal

	// Categories sums amounts per category regardless of type.
	Categories map[string]decimal.Decimal

	// ExpensesByCategory sums only non-income amounts per category.
	ExpensesByCategory map[string]decimal.Decimal

	ActiveUsers int
	Recent      []RecentEntry
}

// Aggregate folds records into a Summary. Records are visited in input
// order; nothing is sorted or filtered.
func Aggregate(records []Record) Summary {
	s := Summary{
		TotalIncome:        decimal.Zero,
		TotalExpenses:      decimal.Zero,
		Categories:         make(map[string]decimal.Decimal),
		ExpensesByCategory: make(map[string]decimal.Decimal),
		Recent:             make([]RecentEntry, 0, min(RecentLimit, len(records))),
	}
	users := make(map[string]struct{})

	for _, r := range records {
		if r.IsIncome() {
			s.TotalIncome = s.TotalIncome.Add(r.Amount)
		} else {
			s.TotalExpenses = s.TotalExpenses.Add(r.Amount)
			s.ExpensesByCategory[r.Category] = s.ExpensesByCategory[r.Category].Add(r.Amount)
		}

		s.Categories[r.Category] = s.Categories[r.Category].Add(r.Amount)
		users[r.UserID] = struct{}{}

		if len(s.Recent) < RecentLimit {
			s.Recent = append(s.Recent, RecentEntry{
				Date:     r.Date,
				Amount:   r.Amount,
				Category: r.Category,
				Type:     r.Type,
			})
		}
	}

	s.NetBalance = s.TotalIncome.Sub(s.TotalExpenses)
	s.ActiveUsers = len(users)
	return s
}

// SavingsRate returns net balance as a percentage of income, or 0 when there
// is no income.
func (s Summary) SavingsRate() float64 {
	if s.TotalIncome.IsZero() {
		return 0
	}
	rate, _ := s.NetBalance.Div(s.TotalIncome).Mul(decimal.NewFromInt(100)).Float64()
	return rate
}

// Render formats the summary as the text block embedded in prompts.
func (s Summary) Render() string {
	var b strings.Builder
	b.WriteString("Financial Snapshot:\n")
	fmt.Fprintf(&b, "- Total Income: $%s\n", s.TotalIncome.String())
	fmt.Fprintf(&b, "- Total Expenses: $%s\n", s.TotalExpenses.String())
	fmt.Fprintf(&b, "- Net Balance: $%s\n", s.NetBalance.String())
	fmt.Fprintf(&b, "- Top Categories: %s\n", indentJSON(amountMap(s.Categories)))
	fmt.Fprintf(&b, "- Active Users: %d\n", s.ActiveUsers)
	fmt.Fprintf(&b, "- Recent Transactions: %s\n", indentJSON(s.Recent))
	return b.String()
}

// MarshalJSON encodes amounts as JSON numbers rather than decimal strings.
func (e RecentEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date     string      `json:"date"`
		Amount   json.Number `json:"amount"`
		Category string      `json:"category"`
		Type     string      `json:"type"`
	}{e.Date, json.Number(e.Amount.String()), e.Category, e.Type})
}

// MarshalJSON encodes the summary with snake_case keys and numeric amounts.
func (s Summary) MarshalJSON() ([]byte, error) {
	recent := s.Recent
	if recent == nil {
		recent = []RecentEntry{}
	}
	return json.Marshal(struct {
		TotalIncome        json.Number            `json:"total_income"`
		TotalExpenses      json.Number            `json:"total_expenses"`
		NetBalance         json.Number            `json:"net_balance"`
		Categories         map[string]json.Number `json:"categories"`
		ExpensesByCategory map[string]json.Number `json:"expenses_by_category"`
		ActiveUsers        int                    `json:"active_users"`
		Recent             []RecentEntry          `json:"recent"`
	}{
		TotalIncome:        json.Number(s.TotalIncome.String()),
		TotalExpenses:      json.Number(s.TotalExpenses.String()),
		NetBalance:         json.Number(s.NetBalance.String()),
		Categories:         amountMap(s.Categories),
		ExpensesByCategory: amountMap(s.ExpensesByCategory),
		ActiveUsers:        s.ActiveUsers,
		Recent:             recent,
	})
}

func amountMap(m map[string]decimal.Decimal) map[string]json.Number {
	out := make(map[string]json.Number, len(m))
	for k, v := range m {
		out[k] = json.Number(v.String())
	}
	return out
}

// indentJSON renders v with two-space indentation; encoding/json sorts map
// keys, which keeps the rendering deterministic.
func indentJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
