package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"trivia-session-service/internal/realtime"
)

const (
	writeWait    = 10 * time.Second
	maxFrameSize = 64 << 10
)

type WSHandler struct {
	registry *realtime.Registry
	upgrader websocket.Upgrader
}

func NewWSHandler(registry *realtime.Registry) *WSHandler {
	return &WSHandler{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	UserID  string          `json:"userId"`
	GameID  string          `json:"gameId"`
	Payload json.RawMessage `json:"payload"`
}

type connectedMessage struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connectionId"`
}

type boundMessage struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
	GameID string `json:"gameId"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type pongMessage struct {
	Type string `json:"type"`
}

// ServeWS upgrades the request, registers the connection and relays frames
// until the client disconnects. Game events reach the socket through the
// registry; this handler is the only writer on the underlying connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameSize)

	c := h.registry.Register()
	logger := log.With().Str("connId", c.ID()).Logger()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for data := range c.Outbound() {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debug().Err(err).Msg("ws write failed")
				c.MarkClosed()
				_ = conn.Close()
				return
			}
		}
		// queue closed by Unregister or registry shutdown
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		_ = conn.Close()
	}()

	if err := h.registry.Send(c.ID(), connectedMessage{Type: "connected", ConnectionID: c.ID()}); err != nil {
		logger.Warn().Err(err).Msg("connection refused")
		h.registry.Unregister(c.ID())
		<-writerDone
		return
	}
	logger.Debug().Msg("ws connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		h.handleFrame(c.ID(), data)
	}

	h.registry.Unregister(c.ID())
	<-writerDone
	logger.Debug().Msg("ws disconnected")
}

func (h *WSHandler) handleFrame(connID string, data []byte) {
	var in inboundMessage
	if err := json.Unmarshal(data, &in); err != nil {
		log.Debug().Err(err).Str("connId", connID).Msg("malformed frame")
		h.reply(connID, errorMessage{Type: "error", Message: "malformed message"})
		return
	}

	switch in.Type {
	case "join_game":
		if in.UserID == "" || in.GameID == "" {
			h.reply(connID, errorMessage{Type: "error", Message: "userId and gameId are required"})
			return
		}
		if err := h.registry.Bind(connID, in.UserID, in.GameID); err != nil {
			h.reply(connID, errorMessage{Type: "error", Message: err.Error()})
			return
		}
		log.Debug().Str("connId", connID).Str("userId", in.UserID).Str("gameId", in.GameID).Msg("connection bound")
		h.reply(connID, boundMessage{Type: "bound", UserID: in.UserID, GameID: in.GameID})
	case "game_update":
		_, gameID, ok := h.registry.Binding(connID)
		if !ok {
			h.reply(connID, errorMessage{Type: "error", Message: "join_game required before game_update"})
			return
		}
		if len(in.Payload) == 0 {
			h.reply(connID, errorMessage{Type: "error", Message: "payload is required"})
			return
		}
		h.registry.Broadcast(gameID, in.Payload, connID)
	case "ping":
		h.reply(connID, pongMessage{Type: "pong"})
	default:
		h.reply(connID, errorMessage{Type: "error", Message: "unsupported message type"})
	}
}

func (h *WSHandler) reply(connID string, msg any) {
	if err := h.registry.Send(connID, msg); err != nil {
		log.Debug().Err(err).Str("connId", connID).Msg("reply dropped")
	}
}
