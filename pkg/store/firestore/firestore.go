// Package firestore reads the transactions collection and writes the
// conversations collection of a Cloud Firestore database.
package firestore

import (
	"context"
	"errors"
	"fmt"

	"finance-agent/pkg/finance"
	"finance-agent/pkg/logging"
	"finance-agent/pkg/store"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Collection names.
const (
	TransactionsCollection  = "transactions"
	ConversationsCollection = "conversations"
)

// Config holds the connection settings.
type Config struct {
	// ProjectID defaults to firestore.DetectProjectID
	ProjectID string
	// CredentialsFile is a service account key; empty uses application
	// default credentials (or FIRESTORE_EMULATOR_HOST)
	CredentialsFile string
}

// Store implements store.Source and store.ConversationSink.
type Store struct {
	client *firestore.Client
	logger *logging.Logger
}

var (
	_ store.Source           = (*Store)(nil)
	_ store.ConversationSink = (*Store)(nil)
)

// Open creates a Firestore client.
func Open(ctx context.Context, config Config) (*Store, error) {
	projectID := config.ProjectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}

	var opts []option.ClientOption
	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w: %v", store.ErrUnavailable, err)
	}

	logger := logging.L().Named("firestore")
	logger.Info("Firestore store ready", zap.String("project", projectID))

	return &Store{client: client, logger: logger}, nil
}

// Name implements store.Source.
func (s *Store) Name() string {
	return "firestore"
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// FetchAll streams the transactions collection.
func (s *Store) FetchAll(ctx context.Context) ([]finance.Record, error) {
	iter := s.client.Collection(TransactionsCollection).Documents(ctx)
	defer iter.Stop()

	records := make([]finance.Record, 0)
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, store.WrapError(err, s.Name(), "fetch")
		}
		records = append(records, finance.RecordFromDocument(doc.Data()))
	}

	s.logger.Debug("Loaded transactions", zap.Int("count", len(records)))
	return records, nil
}

// SaveConversation implements store.ConversationSink.
func (s *Store) SaveConversation(ctx context.Context, rec store.ConversationRecord) error {
	_, err := s.client.Collection(ConversationsCollection).Doc(rec.ID).Set(ctx, conversationDoc(rec))
	if err != nil {
		return store.WrapError(err, s.Name(), "save")
	}
	return nil
}

func conversationDoc(rec store.ConversationRecord) map[string]interface{} {
	return map[string]interface{}{
		"userId":    rec.UserID,
		"role":      rec.Role,
		"content":   rec.Content,
		"createdAt": rec.CreatedAt.UTC(),
	}
}
