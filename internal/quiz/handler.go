package quiz

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mkhara/regionmaster/internal/catalog"
	"github.com/mkhara/regionmaster/internal/leaderboard"
	httperrors "github.com/mkhara/regionmaster/pkg/http/errors"
	ws "github.com/mkhara/regionmaster/pkg/http/ws"
)

// Upgrader handles WebSocket upgrades for quiz connections.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The service binds to the local environment only; the map widget is
		// served from the same origin or a dev server.
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler manages WebSocket connections and routes quiz session messages.
// One session lives per connection; closing the socket tears the session
// down and cancels pending transitions.
type Handler struct {
	catalog *catalog.Catalog
	store   ScoreStore
	hub     *ws.Hub
	sched   Scheduler
	cfg     SessionConfig
	genCfg  GeneratorConfig
	logger  zerolog.Logger
}

// NewHandler creates a quiz WebSocket handler.
func NewHandler(cat *catalog.Catalog, store ScoreStore, hub *ws.Hub, cfg SessionConfig, genCfg GeneratorConfig, logger zerolog.Logger) *Handler {
	return &Handler{
		catalog: cat,
		store:   store,
		hub:     hub,
		sched:   NewScheduler(),
		cfg:     cfg,
		genCfg:  genCfg,
		logger:  logger,
	}
}

// HandleWebSocket upgrades the HTTP connection and runs the session loop.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.HandleConnection(conn)
}

// HandleConnection wires a session to a WebSocket connection and pumps
// messages until the peer disconnects.
func (h *Handler) HandleConnection(conn *websocket.Conn) {
	wsConn := ws.NewConnection(conn, h.logger)

	session := NewSession(SessionParams{
		Regions:   h.catalog.All(),
		Store:     h.store,
		Scheduler: h.sched,
		Config:    h.cfg,
		Generator: h.genCfg,
		Logger:    h.logger,
		OnChange: func(snap Snapshot) {
			h.broadcast(wsConn, snap)
		},
	})

	h.hub.Register(session.ID(), wsConn)
	go wsConn.WritePump()

	wsConn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(session, wsConn, msg)
	})

	// Cleanup on disconnect: abandon pending timers without further mutation.
	session.Close()
	h.hub.Unregister(session.ID())
}

func (h *Handler) handleMessage(session *Session, conn *ws.Connection, msg ws.Message) error {
	switch msg.Type {
	case ws.TypeStartGame:
		var req ws.StartGamePayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return h.sendError(conn, httperrors.ErrCodeInvalidPayload, "Invalid start_game payload")
		}
		if err := session.Start(req.PlayerCount); err != nil {
			return h.sendError(conn, httperrors.ErrCodeInvalidPlayers, err.Error())
		}
		return nil

	case ws.TypeBuzz:
		var req ws.BuzzPayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return h.sendError(conn, httperrors.ErrCodeInvalidPayload, "Invalid buzz payload")
		}
		session.Buzz(req.Player)
		return nil

	case ws.TypeSubmitAnswer:
		var req ws.SubmitAnswerPayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return h.sendError(conn, httperrors.ErrCodeInvalidPayload, "Invalid submit_answer payload")
		}
		session.SubmitAnswer(req.Answer)
		return nil

	case ws.TypeSaveScore:
		var req ws.SaveScorePayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return h.sendError(conn, httperrors.ErrCodeInvalidPayload, "Invalid save_score payload")
		}
		if err := session.SaveScore(strings.TrimSpace(req.Name)); err != nil {
			return h.sendError(conn, httperrors.ErrCodeInvalidName, err.Error())
		}
		return nil

	case ws.TypeRestart:
		if err := session.Restart(); err != nil {
			return h.sendError(conn, httperrors.ErrCodeNotStarted, err.Error())
		}
		return nil

	case ws.TypePing:
		return conn.Send(ws.Message{Type: ws.TypePong, RequestID: msg.RequestID})

	default:
		return h.sendError(conn, httperrors.ErrCodeUnknownMessage, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

// broadcast pushes the snapshot to the client: always the session state,
// plus the current question while playing and the result once finished.
func (h *Handler) broadcast(conn *ws.Connection, snap Snapshot) {
	h.send(conn, ws.TypeSessionState, ws.SessionStatePayload{
		SessionID:     snap.SessionID,
		State:         snap.State,
		PlayerCount:   snap.PlayerCount,
		QuestionIndex: snap.Index,
		QuestionTotal: snap.Total,
		Scores:        snap.Scores,
		ActivePlayer:  snap.Active,
		LockedPlayers: snap.Locked,
		Answered:      snap.Answered,
		Feedback:      feedbackPayload(snap.Feedback),
	})

	if snap.Question != nil {
		h.send(conn, ws.TypeQuestion, ws.QuestionPayload{
			Index:   snap.Index,
			Total:   snap.Total,
			Kind:    snap.Question.Kind,
			Prompt:  snap.Question.Prompt,
			Options: snap.Question.Options,
		})
	}

	if snap.Result != nil {
		h.send(conn, ws.TypeResult, resultPayload(snap.Result))
		if snap.Result.Saved {
			h.send(conn, ws.TypeLeaderboardUpdate, ws.LeaderboardUpdatePayload{
				Entries: leaderboardEntries(snap.Result.Leaderboard),
			})
		}
	}
}

func (h *Handler) send(conn *ws.Connection, msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn().Err(err).Str("type", msgType).Msg("failed to marshal payload")
		return
	}
	if err := conn.Send(ws.Message{Type: msgType, Payload: data}); err != nil {
		h.logger.Warn().Err(err).Str("type", msgType).Msg("failed to send message")
	}
}

func (h *Handler) sendError(conn *ws.Connection, code, message string) error {
	data, err := json.Marshal(ws.ErrorPayload{Code: code, Message: message})
	if err != nil {
		return err
	}
	return conn.Send(ws.Message{Type: ws.TypeError, Payload: data})
}

func feedbackPayload(fb *Feedback) *ws.FeedbackPayload {
	if fb == nil {
		return nil
	}
	return &ws.FeedbackPayload{Type: fb.Type, Player: fb.Player}
}

func resultPayload(r *Result) ws.ResultPayload {
	return ws.ResultPayload{
		Scores:       r.Scores,
		Total:        r.Total,
		Tier:         r.Tier,
		Celebration:  r.Celebration,
		Winners:      r.Winners,
		NewHighScore: r.NewHighScore,
		Saved:        r.Saved,
		Leaderboard:  leaderboardEntries(r.Leaderboard),
	}
}

func leaderboardEntries(entries []leaderboard.Entry) []ws.LeaderboardEntry {
	out := make([]ws.LeaderboardEntry, 0, len(entries))
	for i, e := range entries {
		out = append(out, ws.LeaderboardEntry{
			Rank:  i + 1,
			Name:  e.Name,
			Score: e.Score,
			Date:  e.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}
