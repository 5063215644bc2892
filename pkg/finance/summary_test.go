package finance

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(amount int64, typ, category, user string) Record {
	return Record{
		Amount:   decimal.NewFromInt(amount),
		Type:     typ,
		Category: category,
		UserID:   user,
		Date:     "2025-01-01",
	}
}

func TestAggregate_WorkedExample(t *testing.T) {
	s := Aggregate([]Record{
		rec(5000, "Income", "Salary", "u1"),
		rec(120, "Expense", "Food", "u1"),
		rec(200, "Expense", "Utilities", "u1"),
	})

	assert.True(t, s.TotalIncome.Equal(decimal.NewFromInt(5000)), "income %s", s.TotalIncome)
	assert.True(t, s.TotalExpenses.Equal(decimal.NewFromInt(320)), "expenses %s", s.TotalExpenses)
	assert.True(t, s.NetBalance.Equal(decimal.NewFromInt(4680)), "net %s", s.NetBalance)
	assert.Equal(t, 1, s.ActiveUsers)

	require.Len(t, s.Categories, 3)
	assert.True(t, s.Categories["Salary"].Equal(decimal.NewFromInt(5000)))
	assert.True(t, s.Categories["Food"].Equal(decimal.NewFromInt(120)))
	assert.True(t, s.Categories["Utilities"].Equal(decimal.NewFromInt(200)))
}

func TestAggregate_Empty(t *testing.T) {
	s := Aggregate(nil)

	assert.True(t, s.TotalIncome.IsZero())
	assert.True(t, s.TotalExpenses.IsZero())
	assert.True(t, s.NetBalance.IsZero())
	assert.NotNil(t, s.Categories)
	assert.Empty(t, s.Categories)
	assert.NotNil(t, s.Recent)
	assert.Empty(t, s.Recent)
	assert.Equal(t, 0, s.ActiveUsers)
}

func TestAggregate_IncomeTypeIsCaseInsensitive(t *testing.T) {
	s := Aggregate([]Record{
		rec(10, "INCOME", "a", "u1"),
		rec(20, "income", "a", "u1"),
		rec(30, "InCoMe", "a", "u1"),
		rec(5, "unknown", "a", "u1"),
		rec(7, "expense", "a", "u1"),
	})

	assert.True(t, s.TotalIncome.Equal(decimal.NewFromInt(60)))
	assert.True(t, s.TotalExpenses.Equal(decimal.NewFromInt(12)))
	assert.True(t, s.Categories["a"].Equal(decimal.NewFromInt(72)))
}

func TestAggregate_RecentKeepsFirstFiveInOrder(t *testing.T) {
	for n := 0; n <= 8; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			records := make([]Record, n)
			for i := range records {
				records[i] = rec(int64(i), "Expense", "c", "u")
				records[i].Date = fmt.Sprintf("2025-01-%02d", i+1)
			}

			s := Aggregate(records)

			require.Len(t, s.Recent, min(RecentLimit, n))
			for i, entry := range s.Recent {
				assert.Equal(t, records[i].Date, entry.Date)
				assert.True(t, entry.Amount.Equal(records[i].Amount))
			}
		})
	}
}

// randomRecords builds a deterministic pseudo-random record set.
func randomRecords(r *rand.Rand, n int) []Record {
	types := []string{"Income", "Expense", "income", "EXPENSE", "unknown"}
	categories := []string{"Food", "Rent", "Salary", "Travel", "uncategorized"}
	records := make([]Record, n)
	for i := range records {
		records[i] = Record{
			Amount:   decimal.New(r.Int63n(1_000_000), -int32(r.Intn(3))),
			Type:     types[r.Intn(len(types))],
			Category: categories[r.Intn(len(categories))],
			UserID:   fmt.Sprintf("u%d", r.Intn(7)),
			Date:     "2025-02-01",
		}
	}
	return records
}

func TestAggregate_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for iter := 0; iter < 200; iter++ {
		records := randomRecords(r, r.Intn(40))
		s := Aggregate(records)

		// Net balance is exact.
		if !s.NetBalance.Equal(s.TotalIncome.Sub(s.TotalExpenses)) {
			t.Fatalf("net %s != %s - %s", s.NetBalance, s.TotalIncome, s.TotalExpenses)
		}

		// Category sums match per-category totals.
		want := make(map[string]decimal.Decimal)
		users := make(map[string]bool)
		for _, rec := range records {
			want[rec.Category] = want[rec.Category].Add(rec.Amount)
			users[rec.UserID] = true
		}
		require.Len(t, s.Categories, len(want))
		for category, amount := range want {
			if !s.Categories[category].Equal(amount) {
				t.Fatalf("category %s: got %s want %s", category, s.Categories[category], amount)
			}
		}

		// Distinct users.
		assert.Equal(t, len(users), s.ActiveUsers)
		assert.LessOrEqual(t, s.ActiveUsers, len(records))

		// Category totals add up to income plus expenses.
		total := decimal.Zero
		for _, amount := range s.Categories {
			total = total.Add(amount)
		}
		if !total.Equal(s.TotalIncome.Add(s.TotalExpenses)) {
			t.Fatalf("category total %s != income+expenses %s", total, s.TotalIncome.Add(s.TotalExpenses))
		}
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	records := randomRecords(rand.New(rand.NewSource(7)), 25)

	first := Aggregate(records)
	second := Aggregate(records)

	assert.Equal(t, first.Render(), second.Render())

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestSummary_Render(t *testing.T) {
	s := Aggregate(SampleRecords())
	out := s.Render()

	assert.True(t, strings.HasPrefix(out, "Financial Snapshot:\n"))
	assert.Contains(t, out, "- Total Income: $5000\n")
	assert.Contains(t, out, "- Total Expenses: $320\n")
	assert.Contains(t, out, "- Net Balance: $4680\n")
	assert.Contains(t, out, "- Active Users: 1\n")
	assert.Contains(t, out, "\"Food\": 120")
	assert.Contains(t, out, "\"date\": \"2025-01-03\"")
}

func TestSummary_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Aggregate(SampleRecords()))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, float64(5000), decoded["total_income"])
	assert.Equal(t, float64(320), decoded["total_expenses"])
	assert.Equal(t, float64(4680), decoded["net_balance"])
	assert.Equal(t, float64(1), decoded["active_users"])
	assert.Len(t, decoded["recent"], 3)
}

func TestSummary_SavingsRate(t *testing.T) {
	assert.Equal(t, float64(0), Aggregate(nil).SavingsRate())
	assert.InDelta(t, 93.6, Aggregate(SampleRecords()).SavingsRate(), 0.0001)
}
