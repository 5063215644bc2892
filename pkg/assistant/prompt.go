// Package assistant assembles prompts from the transaction summary and
// conversation history and dispatches them to a generator.
package assistant

import (
	"strings"

	"finance-agent/pkg/finance"
	"finance-agent/pkg/session"
)

// DefaultPersona names the assistant in the instruction prefix.
const DefaultPersona = "Advanced Financial Analyst"

const schemaInstructions = `analyzing financial transactions with this schema:
- amount: Integer value of transaction
- category: Spending category (e.g., Food, Utilities)
- type: Transaction type (Income/Expense)
- userId: Unique user identifier
- date: Transaction date (YYYY-MM-DD)

Response guidelines:
1. Start with relevant emoji (💰,📊,🛒,💸)
2. Highlight amounts and categories
3. Compare income vs expenses
4. Keep responses under 3 sentences`

const formatInstructions = `Required Format:
answer correctly on the basis of present data and finance also about the similar topics`

// BuildPrompt assembles the single text payload sent to the generator:
// instruction prefix, rendered summary, prior turns, and the new query.
// An empty history omits the conversation section.
func BuildPrompt(persona string, summary finance.Summary, history []session.Turn, message string) string {
	if persona == "" {
		persona = DefaultPersona
	}

	var b strings.Builder
	b.WriteString("You are ")
	b.WriteString(persona)
	b.WriteString(", ")
	b.WriteString(schemaInstructions)
	b.WriteString("\n\n")

	b.WriteString(summary.Render())
	b.WriteString("\n")

	if len(history) > 0 {
		b.WriteString("Recent Conversation:\n")
		for _, t := range history {
			b.WriteString(t.Role)
			b.WriteString(": ")
			b.WriteString(t.Content)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("User Query: ")
	b.WriteString(message)
	b.WriteString("\n\n")
	b.WriteString(formatInstructions)
	b.WriteString("\n")

	return b.String()
}
