package ws

import "encoding/json"

// MessageType constants for the quiz WebSocket protocol.
const (
	// Client -> Server
	TypeStartGame    = "start_game"
	TypeBuzz         = "buzz"
	TypeSubmitAnswer = "submit_answer"
	TypeSaveScore    = "save_score"
	TypeRestart      = "restart"
	TypePing         = "ping"

	// Server -> Client
	TypeSessionState      = "session_state"
	TypeQuestion          = "question"
	TypeResult            = "result"
	TypeLeaderboardUpdate = "leaderboard_update"
	TypeError             = "error"
	TypePong              = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// Client Messages (incoming)

type StartGamePayload struct {
	PlayerCount int `json:"player_count"`
}

type BuzzPayload struct {
	Player int `json:"player"`
}

type SubmitAnswerPayload struct {
	Answer string `json:"answer"`
}

type SaveScorePayload struct {
	Name string `json:"name"`
}

// Server Messages (outgoing)

type SessionStatePayload struct {
	SessionID     string           `json:"session_id"`
	State         string           `json:"state"`
	PlayerCount   int              `json:"player_count"`
	QuestionIndex int              `json:"question_index"`
	QuestionTotal int              `json:"question_total"`
	Scores        []int            `json:"scores"`
	ActivePlayer  int              `json:"active_player"`
	LockedPlayers []int            `json:"locked_players,omitempty"`
	Answered      bool             `json:"answered"`
	Feedback      *FeedbackPayload `json:"feedback,omitempty"`
}

type FeedbackPayload struct {
	Type   string `json:"type"`
	Player int    `json:"player"`
}

type QuestionPayload struct {
	Index   int      `json:"index"`
	Total   int      `json:"total"`
	Kind    string   `json:"kind"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

type ResultPayload struct {
	Scores       []int              `json:"scores"`
	Total        int                `json:"total"`
	Tier         string             `json:"tier,omitempty"`
	Celebration  string             `json:"celebration"`
	Winners      []int              `json:"winners,omitempty"`
	NewHighScore bool               `json:"new_high_score"`
	Saved        bool               `json:"saved"`
	Leaderboard  []LeaderboardEntry `json:"leaderboard,omitempty"`
}

type LeaderboardUpdatePayload struct {
	Entries []LeaderboardEntry `json:"entries"`
}

type LeaderboardEntry struct {
	Rank  int    `json:"rank"`
	Name  string `json:"name"`
	Score int    `json:"score"`
	Date  string `json:"date"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
