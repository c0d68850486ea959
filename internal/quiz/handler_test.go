package quiz

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkhara/regionmaster/internal/catalog"
	httperrors "github.com/mkhara/regionmaster/pkg/http/errors"
	ws "github.com/mkhara/regionmaster/pkg/http/ws"
)

func dialTestHandler(t *testing.T, store ScoreStore, targetCount int) *websocket.Conn {
	t.Helper()

	cat := catalog.New(generatorRegions(10), zerolog.Nop())
	h := NewHandler(cat, store, ws.NewHub(zerolog.Nop()), SessionConfig{
		CorrectAdvanceDelay: 10 * time.Millisecond,
		WrongAdvanceDelay:   10 * time.Millisecond,
	}, GeneratorConfig{TargetCount: targetCount}, zerolog.Nop())

	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendMessage(t *testing.T, conn *websocket.Conn, msgType string, payload interface{}) {
	t.Helper()
	msg := ws.Message{Type: msgType}
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		msg.Payload = data
	}
	require.NoError(t, conn.WriteJSON(msg))
}

// readUntil drains messages until one of the wanted type satisfies the
// predicate. Everything else in between is ignored.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string, match func(ws.Message) bool) ws.Message {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		var msg ws.Message
		require.NoError(t, conn.ReadJSON(&msg), "waiting for %s", msgType)
		if msg.Type == msgType && (match == nil || match(msg)) {
			return msg
		}
	}
}

func TestHandlerSinglePlayerFlow(t *testing.T) {
	conn := dialTestHandler(t, nil, 0)

	sendMessage(t, conn, ws.TypeStartGame, ws.StartGamePayload{PlayerCount: 1})

	msg := readUntil(t, conn, ws.TypeSessionState, nil)
	var state ws.SessionStatePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &state))
	assert.Equal(t, StatePlaying, state.State)
	assert.Equal(t, 1, state.PlayerCount)
	assert.Equal(t, 20, state.QuestionTotal)
	assert.Equal(t, 0, state.ActivePlayer)
	assert.Equal(t, []int{0}, state.Scores)

	msg = readUntil(t, conn, ws.TypeQuestion, nil)
	var question ws.QuestionPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &question))
	assert.Equal(t, 0, question.Index)
	assert.NotEmpty(t, question.Prompt)
	assert.Len(t, question.Options, OptionCount)

	sendMessage(t, conn, ws.TypeSubmitAnswer, ws.SubmitAnswerPayload{Answer: "nope"})

	msg = readUntil(t, conn, ws.TypeSessionState, func(m ws.Message) bool {
		var s ws.SessionStatePayload
		return json.Unmarshal(m.Payload, &s) == nil && s.Feedback != nil
	})
	require.NoError(t, json.Unmarshal(msg.Payload, &state))
	assert.Equal(t, FeedbackWrong, state.Feedback.Type)
	assert.Equal(t, 0, state.Feedback.Player)

	// The wrong-answer delay elapses and the next question arrives.
	readUntil(t, conn, ws.TypeSessionState, func(m ws.Message) bool {
		var s ws.SessionStatePayload
		return json.Unmarshal(m.Payload, &s) == nil && s.QuestionIndex == 1
	})
}

func TestHandlerSaveScoreFlow(t *testing.T) {
	store := &stubStore{newHigh: true}
	conn := dialTestHandler(t, store, 3)

	sendMessage(t, conn, ws.TypeStartGame, ws.StartGamePayload{PlayerCount: 1})

	for i := 0; i < 3; i++ {
		readUntil(t, conn, ws.TypeQuestion, func(m ws.Message) bool {
			var q ws.QuestionPayload
			return json.Unmarshal(m.Payload, &q) == nil && q.Index == i
		})
		sendMessage(t, conn, ws.TypeSubmitAnswer, ws.SubmitAnswerPayload{Answer: "nope"})
	}

	msg := readUntil(t, conn, ws.TypeResult, nil)
	var result ws.ResultPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &result))
	assert.Equal(t, []int{0}, result.Scores)
	assert.True(t, result.NewHighScore)
	assert.False(t, result.Saved)

	sendMessage(t, conn, ws.TypeSaveScore, ws.SaveScorePayload{Name: "テスト"})

	msg = readUntil(t, conn, ws.TypeResult, func(m ws.Message) bool {
		var r ws.ResultPayload
		return json.Unmarshal(m.Payload, &r) == nil && r.Saved
	})
	require.NoError(t, json.Unmarshal(msg.Payload, &result))
	assert.False(t, result.NewHighScore)

	msg = readUntil(t, conn, ws.TypeLeaderboardUpdate, nil)
	var update ws.LeaderboardUpdatePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &update))
	require.Len(t, update.Entries, 1)
	assert.Equal(t, 1, update.Entries[0].Rank)
	assert.Equal(t, "テスト", update.Entries[0].Name)
	assert.Equal(t, 0, update.Entries[0].Score)
}

func TestHandlerPing(t *testing.T) {
	conn := dialTestHandler(t, nil, 0)

	require.NoError(t, conn.WriteJSON(ws.Message{Type: ws.TypePing, RequestID: "req-1"}))
	msg := readUntil(t, conn, ws.TypePong, nil)
	assert.Equal(t, "req-1", msg.RequestID)
}

func readError(t *testing.T, conn *websocket.Conn) ws.ErrorPayload {
	t.Helper()
	msg := readUntil(t, conn, ws.TypeError, nil)
	var payload ws.ErrorPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	return payload
}

func TestHandlerErrors(t *testing.T) {
	conn := dialTestHandler(t, nil, 0)

	sendMessage(t, conn, ws.TypeStartGame, ws.StartGamePayload{PlayerCount: 9})
	assert.Equal(t, httperrors.ErrCodeInvalidPlayers, readError(t, conn).Code)

	sendMessage(t, conn, ws.TypeRestart, nil)
	assert.Equal(t, httperrors.ErrCodeNotStarted, readError(t, conn).Code)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":    ws.TypeSaveScore,
		"payload": 5,
	}))
	assert.Equal(t, httperrors.ErrCodeInvalidPayload, readError(t, conn).Code)

	sendMessage(t, conn, "teleport", nil)
	assert.Equal(t, httperrors.ErrCodeUnknownMessage, readError(t, conn).Code)
}
