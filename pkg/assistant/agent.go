package assistant

import (
	"context"
	"time"

	"finance-agent/pkg/finance"
	"finance-agent/pkg/generator"
	"finance-agent/pkg/logging"
	"finance-agent/pkg/session"
	"finance-agent/pkg/snapshot"
	"finance-agent/pkg/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WarningMarker prefixes every reply produced by a failed generation.
const WarningMarker = "⚠️ Error: "

// DefaultUserID is used when a request names no user.
const DefaultUserID = "anonymous"

// Reply statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Snapshots provides the current transaction buffer.
type Snapshots interface {
	Current(ctx context.Context) snapshot.Snapshot
}

// Recorder persists conversation turns. writer.ConversationWriter implements it.
type Recorder interface {
	Write(ctx context.Context, rec store.ConversationRecord) error
}

// Request is one chat message.
type Request struct {
	Message string
	UserID  string
}

// Reply is the outcome of one chat message. Generation failures are reported
// inline with StatusError, never as an error return.
type Reply struct {
	Query       string
	Response    string
	UserID      string
	LastUpdated time.Time
	Status      string
	Fallback    bool
}

// Config configures an Agent.
type Config struct {
	// Persona defaults to DefaultPersona
	Persona string
	// HistoryWindow is the number of prior turns put in a prompt (default: 10)
	HistoryWindow int
	// Recorder, if set, receives every appended turn
	Recorder Recorder
}

// Agent is the prompt assembler and dispatcher.
type Agent struct {
	generator generator.Generator
	snapshots Snapshots
	persona   string
	window    int
	recorder  Recorder
	logger    *logging.Logger
}

// NewAgent creates an agent.
func NewAgent(gen generator.Generator, snapshots Snapshots, config Config) *Agent {
	if config.Persona == "" {
		config.Persona = DefaultPersona
	}
	if config.HistoryWindow <= 0 {
		config.HistoryWindow = session.DefaultWindow
	}

	return &Agent{
		generator: gen,
		snapshots: snapshots,
		persona:   config.Persona,
		window:    config.HistoryWindow,
		recorder:  config.Recorder,
		logger:    logging.L().Named("agent"),
	}
}

// Respond answers req within sess. The user message is appended to the
// history before dispatch; the reply is appended only on success.
func (a *Agent) Respond(ctx context.Context, sess *session.Session, req Request) Reply {
	userID := req.UserID
	if userID == "" {
		userID = DefaultUserID
	}
	logger := logging.FromContext(ctx).With(zap.String("user_id", userID))

	snap := a.snapshots.Current(ctx)
	summary := finance.Aggregate(snap.Records)

	prompt := BuildPrompt(a.persona, summary, sess.Window(a.window), req.Message)

	a.record(ctx, userID, sess.Append(session.RoleUser, req.Message))

	reply := Reply{
		Query:       req.Message,
		UserID:      userID,
		LastUpdated: snap.RefreshedAt,
		Fallback:    snap.Fallback,
	}

	start := time.Now()
	text, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		fields := []zap.Field{
			zap.String("provider", a.generator.Name()),
			zap.String("error_type", generator.ClassifyError(err)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		}
		if generator.IsCircuitOpen(err) || generator.IsTimeout(err) {
			// Already reported by the resilience layer.
			logger.Debug("Generation unavailable", fields...)
		} else {
			logger.Warn("Generation failed", fields...)
		}
		reply.Response = WarningMarker + err.Error()
		reply.Status = StatusError
		return reply
	}

	a.record(ctx, userID, sess.Append(session.RoleAgent, text))

	logger.Debug("Generated reply",
		zap.Int("prompt_bytes", len(prompt)),
		zap.Duration("duration", time.Since(start)),
	)
	reply.Response = text
	reply.Status = StatusSuccess
	return reply
}

func (a *Agent) record(ctx context.Context, userID string, turn session.Turn) {
	if a.recorder == nil {
		return
	}
	err := a.recorder.Write(ctx, store.ConversationRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      turn.Role,
		Content:   turn.Content,
		CreatedAt: turn.At,
	})
	if err != nil {
		a.logger.Debug("Conversation turn not persisted", zap.Error(err))
	}
}
