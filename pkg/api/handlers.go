package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"finance-agent/pkg/assistant"
	"finance-agent/pkg/finance"
	"finance-agent/pkg/logging"
	"finance-agent/pkg/session"

	"go.uber.org/zap"
)

const rootMessage = "Financial Analyst API - POST /chat with {'message': 'your query'}"

type chatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

type chatResponse struct {
	Query       string    `json:"query"`
	Response    string    `json:"response"`
	LastUpdated time.Time `json:"last_updated"`
	Status      string    `json:"status"`
	UserID      string    `json:"user_id"`
	Fallback    bool      `json:"fallback"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, rootMessage)
}

// handleChat answers a chat message. Generation failures still return 200;
// the reply text carries the warning.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing message parameter"})
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = assistant.DefaultUserID
	}
	sess := s.sessions.GetOrCreate(userID)

	reply := s.agent.Respond(r.Context(), sess, assistant.Request{Message: req.Message, UserID: userID})

	writeJSON(w, http.StatusOK, chatResponse{
		Query:       reply.Query,
		Response:    reply.Response,
		LastUpdated: reply.LastUpdated,
		Status:      reply.Status,
		UserID:      reply.UserID,
		Fallback:    reply.Fallback,
	})
}

// handleSummary returns the aggregate of the current buffer.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshots.Current(r.Context())
	summary := finance.Aggregate(snap.Records)

	raw, err := json.Marshal(summary)
	if err != nil {
		panic(err)
	}
	body := make(map[string]interface{})
	if err := json.Unmarshal(raw, &body); err != nil {
		panic(err)
	}
	body["savings_rate"] = summary.SavingsRate()
	body["last_updated"] = snap.RefreshedAt
	body["fallback"] = snap.Fallback

	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshots.Current(r.Context())

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"insights": finance.Insights(finance.Aggregate(snap.Records)),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = assistant.DefaultUserID
	}

	sess, ok := s.sessions.Get(userID)
	if !ok {
		if turns := s.archivedHistory(r.Context(), userID); len(turns) > 0 {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"user_id":  userID,
				"history":  turns,
				"archived": true,
			})
			return
		}
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "No conversation history"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":    userID,
		"session_id": sess.ID,
		"history":    sess.History(),
	})
}

// archivedHistory reads the user's persisted turns. Archive errors are
// logged and treated as an empty history.
func (s *Server) archivedHistory(ctx context.Context, userID string) []session.Turn {
	if s.config.Archive == nil {
		return nil
	}
	limit := s.config.ArchiveLimit
	if limit <= 0 {
		limit = session.DefaultWindow
	}

	records, err := s.config.Archive.Recent(ctx, userID, limit)
	if err != nil {
		logging.FromContext(ctx).Warn("Failed to read conversation archive",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil
	}

	turns := make([]session.Turn, 0, len(records))
	for _, rec := range records {
		turns = append(turns, session.Turn{Role: rec.Role, Content: rec.Content, At: rec.CreatedAt})
	}
	return turns
}

// handleRefresh drops the buffered transactions and refetches them.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshots.Refresh(r.Context())

	logging.FromContext(r.Context()).Info("Transaction buffer refreshed",
		zap.Int("records", len(snap.Records)),
		zap.Bool("fallback", snap.Fallback),
	)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "refreshed",
		"records":      len(snap.Records),
		"last_updated": snap.RefreshedAt,
		"fallback":     snap.Fallback,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
