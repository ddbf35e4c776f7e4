package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/abhisek/algotutor/internal/agent"
)

// wsMessage is a client frame. Type is "message", "reset" or "ping".
type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	UserID  string `json:"user_id,omitempty"`
}

// wsEvent is a server frame. Type is "reply", "reset", "pong" or "error".
type wsEvent struct {
	Type  string       `json:"type"`
	Reply *agent.Reply `json:"reply,omitempty"`
	Error string       `json:"error,omitempty"`
}

// handleWebSocket runs a chat session over one websocket. Messages are
// processed in order; each produces exactly one event.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.origins})
	if err != nil {
		slog.Error("accept websocket failed", "session_id", sessionID, "error", err)
		return
	}
	defer func() {
		if err := ws.Close(websocket.StatusNormalClosure, "session ended"); err != nil {
			slog.Debug("close websocket failed", "session_id", sessionID, "error", err)
		}
	}()
	ws.SetReadLimit(maxMessageBytes)

	ctx := r.Context()
	slog.Info("websocket connected", "session_id", sessionID)
	for {
		var msg wsMessage
		if err := wsjson.Read(ctx, ws, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("websocket closed by client", "session_id", sessionID)
			} else {
				slog.Warn("websocket read failed", "session_id", sessionID, "error", err)
			}
			return
		}

		ev := s.dispatch(ctx, sessionID, msg)
		if err := wsjson.Write(ctx, ws, ev); err != nil {
			slog.Warn("websocket write failed", "session_id", sessionID, "error", err)
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, sessionID string, msg wsMessage) wsEvent {
	switch msg.Type {
	case "ping":
		return wsEvent{Type: "pong"}
	case "reset":
		if err := s.tutor.Reset(ctx, sessionID); err != nil {
			return wsEvent{Type: "error", Error: err.Error()}
		}
		return wsEvent{Type: "reset"}
	case "message", "":
		if msg.Content == "" {
			return wsEvent{Type: "error", Error: "content is required"}
		}
		userID := msg.UserID
		if userID == "" {
			userID = sessionID
		}
		reply, err := s.tutor.Chat(ctx, sessionID, userID, msg.Content)
		if err != nil {
			slog.ErrorContext(ctx, "chat failed", "session_id", sessionID, "error", err)
			return wsEvent{Type: "error", Error: err.Error()}
		}
		return wsEvent{Type: "reply", Reply: &reply}
	default:
		return wsEvent{Type: "error", Error: "unknown message type " + msg.Type}
	}
}
