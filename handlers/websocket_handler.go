package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Dosada05/pong-arena/game"
	"github.com/Dosada05/pong-arena/services"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler upgrades match spectator/player connections and routes
// their frames into the match service.
type WebSocketHandler struct {
	hub          *game.Hub
	registry     *game.Registry
	matchService services.MatchService
	logger       *slog.Logger
}

func NewWebSocketHandler(
	hub *game.Hub,
	registry *game.Registry,
	matchService services.MatchService,
	logger *slog.Logger,
) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:          hub,
		registry:     registry,
		matchService: matchService,
		logger:       logger,
	}
	hub.SetInboundHandler(h.handleInbound)
	return h
}

// ServeMatch handles GET /ws/matches/{matchID}. The connection subscribes
// to the match room immediately; taking a seat happens with a "join"
// frame afterwards.
func (h *WebSocketHandler) ServeMatch(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")

	session, ok := h.registry.Get(matchID)
	if !ok {
		notFoundResponse(w, r, services.ErrMatchNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed",
			slog.String("match_id", matchID), slog.Any("error", err))
		return
	}

	client := &game.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: matchID,
	}
	h.hub.Register <- client
	session.Attach()

	go client.WritePump()
	go func() {
		client.ReadPump()
		if session.Detach() == 0 {
			h.matchService.HandleDisconnect(matchID)
		}
	}()
}

// ServeTournament handles GET /ws/tournaments/{tournamentID}: a read-only
// feed of bracket events (match settlements, completion).
func (h *WebSocketHandler) ServeTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID := chi.URLParam(r, "tournamentID")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed",
			slog.String("tournament_id", tournamentID), slog.Any("error", err))
		return
	}

	client := &game.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: "tournament_" + tournamentID,
	}
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

func (h *WebSocketHandler) handleInbound(c *game.Client, msg game.Message) error {
	switch msg.Type {
	case game.MsgJoin:
		var payload game.JoinPayload
		if err := decodePayload(msg.Payload, &payload); err != nil {
			return err
		}
		return h.handleJoin(c, payload)

	case game.MsgInput:
		var payload game.InputPayload
		if err := decodePayload(msg.Payload, &payload); err != nil {
			return err
		}
		return h.handleInput(c, payload)

	case game.MsgPing:
		c.SendMessage(game.Message{Type: game.MsgPong, RoomID: c.Room})
		return nil

	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

func (h *WebSocketHandler) handleJoin(c *game.Client, payload game.JoinPayload) error {
	matchID := payload.MatchID
	if matchID == "" {
		matchID = c.Room
	}
	if matchID != c.Room {
		return fmt.Errorf("connection is subscribed to a different match")
	}

	_, err := h.matchService.JoinMatch(context.Background(), matchID, services.JoinMatchInput{
		PlayerID:    payload.PlayerID,
		DisplayName: payload.PlayerID,
		Side:        payload.Side,
	})
	if err != nil {
		return err
	}

	c.PlayerID = payload.PlayerID
	c.SendMessage(game.Message{
		Type:   game.MsgJoined,
		RoomID: c.Room,
		Payload: game.JoinedPayload{
			MatchID:  matchID,
			PlayerID: payload.PlayerID,
			Side:     payload.Side,
		},
	})
	return nil
}

func (h *WebSocketHandler) handleInput(c *game.Client, payload game.InputPayload) error {
	matchID := payload.MatchID
	if matchID == "" {
		matchID = c.Room
	}
	playerID := payload.PlayerID
	if playerID == "" {
		playerID = c.PlayerID
	}
	if playerID == "" {
		return fmt.Errorf("input before join")
	}
	return h.matchService.SubmitIntent(context.Background(), matchID, playerID, payload.Intent)
}

// decodePayload reshapes the generic envelope payload into its typed form.
func decodePayload(raw interface{}, dst interface{}) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}
