package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// askTimeout bounds a single WebSocket question; the connection itself
// has no deadline.
const askTimeout = 60 * time.Second

// newUpgrader builds the WebSocket upgrader. Dev mode mirrors the
// permissive CORS setting; otherwise only local origins may connect.
func newUpgrader(allowAll bool) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return strings.HasPrefix(origin, "http://localhost") ||
				strings.HasPrefix(origin, "http://127.0.0.1")
		},
	}
}

// wsMessage is an inbound WebSocket frame.
type wsMessage struct {
	Type           string `json:"type"`
	Content        string `json:"content"`
	Language       string `json:"language"`
	TopK           int    `json:"top_k"`
	ConversationID string `json:"conversation_id"`
	Layer          string `json:"layer"`
}

// wsResponse is an outbound WebSocket frame.
type wsResponse struct {
	Type           string   `json:"type"`
	Answer         string   `json:"answer,omitempty"`
	Sources        []string `json:"sources,omitempty"`
	ConversationID string   `json:"conversation_id,omitempty"`
	TurnID         string   `json:"turn_id,omitempty"`
	Language       string   `json:"language,omitempty"`
	Cached         bool     `json:"cached,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// handleChatWS upgrades to a WebSocket and answers "ask" frames until the
// client disconnects. Each question reuses the same pipeline as the plain
// chat endpoint, so turns and query events are recorded identically.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer conn.Close()

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.WithError(err).Debug("websocket read failed")
			}
			return
		}

		if msg.Type != "ask" {
			s.writeWS(conn, wsResponse{Type: "error", Error: "unknown message type: " + msg.Type})
			continue
		}
		if strings.TrimSpace(msg.Content) == "" {
			s.writeWS(conn, wsResponse{Type: "error", Error: "content is required"})
			continue
		}

		ctx, cancel := context.WithTimeout(r.Context(), askTimeout)
		resp, err := s.ask(ctx, chatRequest{
			Query:          msg.Content,
			Language:       msg.Language,
			TopK:           msg.TopK,
			ConversationID: msg.ConversationID,
			Layer:          msg.Layer,
		})
		cancel()
		if err != nil {
			s.log.WithError(err).Error("answering websocket question")
			s.writeWS(conn, wsResponse{Type: "error", Error: err.Error()})
			continue
		}

		s.writeWS(conn, wsResponse{
			Type:           "answer",
			Answer:         resp.Answer,
			Sources:        resp.Sources,
			ConversationID: resp.ConversationID,
			TurnID:         resp.TurnID,
			Language:       resp.Language,
			Cached:         resp.Cached,
		})
	}
}

func (s *Server) writeWS(conn *websocket.Conn, resp wsResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		s.log.WithError(err).Debug("websocket write failed")
	}
}
