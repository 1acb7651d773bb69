package game

// Message is the envelope for every frame on the realtime channel.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	RoomID  string      `json:"room_id,omitempty"`
}

// Client → server message types.
const (
	MsgJoin  = "join"
	MsgInput = "input"
	MsgPing  = "ping"
)

// Server → client message types.
const (
	MsgJoined    = "joined"
	MsgGameState = "game/state"
	MsgGameEnd   = "game/end"
	MsgError     = "error"
	MsgPong      = "pong"
)

type JoinPayload struct {
	MatchID  string `json:"match_id"`
	PlayerID string `json:"player_id"`
	Side     Side   `json:"side"`
}

type InputPayload struct {
	MatchID  string       `json:"match_id"`
	PlayerID string       `json:"player_id"`
	Intent   IntentUpdate `json:"intent"`
}

type JoinedPayload struct {
	MatchID  string `json:"match_id"`
	PlayerID string `json:"player_id"`
	Side     Side   `json:"side"`
}

type GameEndPayload struct {
	Winner string `json:"winner"`
	Side   Side   `json:"side"`
	Score  Score  `json:"score"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
