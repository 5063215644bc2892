package sqlstore

import (
	"fmt"
	"strings"
)

type dialect struct {
	driver string
	// numbered placeholders ($1, $2) instead of ?
	numbered bool
	schema   []string
}

var dialects = map[string]dialect{
	"postgres": {
		driver:   "postgres",
		numbered: true,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS transactions (
				id BIGSERIAL PRIMARY KEY,
				amount NUMERIC(15,2),
				category TEXT,
				type TEXT,
				user_id TEXT,
				date TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS conversations (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				role TEXT NOT NULL,
				content TEXT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_conversations_user_created ON conversations(user_id, created_at)`,
		},
	},
	"mysql": {
		driver: "mysql",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS transactions (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				amount DECIMAL(15,2) NULL,
				category VARCHAR(255) NULL,
				type VARCHAR(64) NULL,
				user_id VARCHAR(255) NULL,
				date VARCHAR(32) NULL
			)`,
			`CREATE TABLE IF NOT EXISTS conversations (
				id VARCHAR(64) PRIMARY KEY,
				user_id VARCHAR(255) NOT NULL,
				role VARCHAR(16) NOT NULL,
				content TEXT NOT NULL,
				created_at DATETIME(6) NOT NULL,
				INDEX idx_conversations_user_created (user_id, created_at)
			)`,
		},
	},
	"sqlite3": {
		driver: "sqlite3",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS transactions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				amount NUMERIC,
				category TEXT,
				type TEXT,
				user_id TEXT,
				date TEXT
			)`,
			`CREATE TABLE IF NOT EXISTS conversations (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				role TEXT NOT NULL,
				content TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_conversations_user_created ON conversations(user_id, created_at)`,
		},
	},
}

// placeholders returns n comma-separated bind parameters.
func (d dialect) placeholders(n int) string {
	parts := make([]string, n)
	for i := range parts {
		if d.numbered {
			parts[i] = fmt.Sprintf("$%d", i+1)
		} else {
			parts[i] = "?"
		}
	}
	return strings.Join(parts, ", ")
}
