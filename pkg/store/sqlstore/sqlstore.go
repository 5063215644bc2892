// Package sqlstore reads transactions from and writes conversations to a SQL
// database (PostgreSQL, MySQL or SQLite).
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"finance-agent/pkg/finance"
	"finance-agent/pkg/logging"
	"finance-agent/pkg/store"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Store implements store.Source and store.ConversationSink over database/sql.
type Store struct {
	db      *sql.DB
	dialect dialect
	logger  *logging.Logger
}

var (
	_ store.Source           = (*Store)(nil)
	_ store.ConversationSink = (*Store)(nil)
)

// Open connects to the database, verifies the connection and creates the
// tables if they do not exist. driver is one of postgres, mysql or sqlite3.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driver, err)
	}

	if driver == "sqlite3" {
		// Every connection to an in-memory SQLite database is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w: %v", driver, store.ErrUnavailable, err)
	}

	s := &Store{
		db:      db,
		dialect: d,
		logger:  logging.L().Named("sqlstore").With(zap.String("driver", driver)),
	}

	if err := s.initTables(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init tables: %w", err)
	}

	s.logger.Info("SQL store ready")
	return s, nil
}

func (s *Store) initTables(ctx context.Context) error {
	for _, query := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

// Name implements store.Source.
func (s *Store) Name() string {
	return s.dialect.driver
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// FetchAll reads every row of the transactions table in insertion order.
// NULL columns take the record defaults.
func (s *Store) FetchAll(ctx context.Context) ([]finance.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT amount, category, type, user_id, date FROM transactions ORDER BY id`)
	if err != nil {
		return nil, store.WrapError(err, s.Name(), "fetch")
	}
	defer rows.Close()

	records := make([]finance.Record, 0)
	for rows.Next() {
		var amount, category, typ, userID, date interface{}
		if err := rows.Scan(&amount, &category, &typ, &userID, &date); err != nil {
			return nil, store.WrapError(fmt.Errorf("scan transaction: %w", err), s.Name(), "fetch")
		}

		records = append(records, finance.RecordFromDocument(map[string]interface{}{
			"amount":   amount,
			"category": category,
			"type":     typ,
			"userId":   userID,
			"date":     date,
		}))
	}
	if err := rows.Err(); err != nil {
		return nil, store.WrapError(err, s.Name(), "fetch")
	}

	return records, nil
}

// SaveConversation implements store.ConversationSink.
func (s *Store) SaveConversation(ctx context.Context, rec store.ConversationRecord) error {
	query := fmt.Sprintf(
		`INSERT INTO conversations (id, user_id, role, content, created_at) VALUES (%s)`,
		s.dialect.placeholders(5),
	)

	_, err := s.db.ExecContext(ctx, query, rec.ID, rec.UserID, rec.Role, rec.Content, rec.CreatedAt.UTC())
	if err != nil {
		return store.WrapError(fmt.Errorf("save conversation: %w", err), s.Name(), "save")
	}
	return nil
}
