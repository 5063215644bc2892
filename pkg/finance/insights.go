package finance

import (
	"fmt"
	"sort"
)

// Insight kinds.
const (
	InsightSpending       = "spending"
	InsightRecommendation = "recommendation"
)

// Insight is a short observation derived from a Summary.
type Insight struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Insights derives the top spending category (if any expenses exist) and a
// savings recommendation from s.
func Insights(s Summary) []Insight {
	insights := make([]Insight, 0, 2)

	if category, ok := topExpenseCategory(s); ok {
		insights = append(insights, Insight{
			Type:  InsightSpending,
			Title: "Top Spending Category",
			Description: fmt.Sprintf("Your highest spending category is %s at $%s.",
				category, s.ExpensesByCategory[category].StringFixed(2)),
		})
	}

	insights = append(insights, Insight{
		Type:        InsightRecommendation,
		Title:       "Savings Opportunity",
		Description: fmt.Sprintf("Your current savings rate is %.1f%%. Consider setting aside 20%% of your income for long-term savings goals.", s.SavingsRate()),
	})

	return insights
}

// topExpenseCategory returns the category with the largest positive expense
// total. Ties go to the alphabetically first category.
func topExpenseCategory(s Summary) (string, bool) {
	names := make([]string, 0, len(s.ExpensesByCategory))
	for name := range s.ExpensesByCategory {
		names = append(names, name)
	}
	sort.Strings(names)

	var top string
	found := false
	for _, name := range names {
		amount := s.ExpensesByCategory[name]
		if !amount.IsPositive() {
			continue
		}
		if !found || amount.GreaterThan(s.ExpensesByCategory[top]) {
			top = name
			found = true
		}
	}
	return top, found
}
