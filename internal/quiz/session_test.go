package quiz

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkhara/regionmaster/internal/leaderboard"
)

// manualScheduler queues callbacks so tests fire delayed transitions
// deterministically instead of sleeping.
type manualScheduler struct {
	mu      sync.Mutex
	pending []*manualTimer
}

type manualTimer struct {
	fn      func()
	stopped bool
}

func (m *manualScheduler) AfterFunc(d time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{fn: fn}
	m.pending = append(m.pending, t)
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		t.stopped = true
	}
}

// fire runs the oldest pending callback that was not cancelled.
func (m *manualScheduler) fire() bool {
	m.mu.Lock()
	var fn func()
	for len(m.pending) > 0 {
		t := m.pending[0]
		m.pending = m.pending[1:]
		if !t.stopped {
			fn = t.fn
			break
		}
	}
	m.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

type stubStore struct {
	entries []leaderboard.Entry
	newHigh bool
	saves   int
}

func (s *stubStore) TopScores(ctx context.Context) []leaderboard.Entry {
	return s.entries
}

func (s *stubStore) SaveScore(ctx context.Context, name string, score int) []leaderboard.Entry {
	s.saves++
	s.entries = append(s.entries, leaderboard.Entry{Name: name, Score: score})
	return s.entries
}

func (s *stubStore) IsNewHighScore(ctx context.Context, score int) bool {
	return s.newHigh
}

func newTestSession(t *testing.T, players int, store ScoreStore) (*Session, *manualScheduler) {
	t.Helper()
	sched := &manualScheduler{}
	s := NewSession(SessionParams{
		Regions:   generatorRegions(10),
		Store:     store,
		Scheduler: sched,
		Rand:      rand.New(rand.NewSource(42)),
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, s.Start(players))
	return s, sched
}

func currentAnswer(s *Session) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions[s.index].Answer
}

const wrongAnswer = "definitely not it"

func TestStartPlayerCountValidation(t *testing.T) {
	sched := &manualScheduler{}
	s := NewSession(SessionParams{
		Regions:   generatorRegions(10),
		Scheduler: sched,
		Rand:      rand.New(rand.NewSource(1)),
		Logger:    zerolog.Nop(),
	})

	assert.Error(t, s.Start(0))
	assert.Error(t, s.Start(4))
	assert.NoError(t, s.Start(1))

	snap := s.Snapshot()
	assert.Equal(t, StatePlaying, snap.State)
	assert.Equal(t, 20, snap.Total)
	assert.Equal(t, 0, snap.Active)
	assert.NotNil(t, snap.Question)
	assert.Len(t, snap.Question.Options, OptionCount)
}

func TestStartWithoutQuestionsFinishes(t *testing.T) {
	// Three regions cannot supply enough distractors, so the question set is
	// empty and the game goes straight to the result.
	sched := &manualScheduler{}
	s := NewSession(SessionParams{
		Regions:   generatorRegions(3),
		Scheduler: sched,
		Generator: GeneratorConfig{TargetCount: 20, MaxAttempts: 50},
		Rand:      rand.New(rand.NewSource(1)),
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, s.Start(1))

	snap := s.Snapshot()
	assert.Equal(t, StateResult, snap.State)
	require.NotNil(t, snap.Result)
	assert.Equal(t, 0, snap.Result.Total)
	assert.Equal(t, TierStandard, snap.Result.Tier)
	assert.Equal(t, CelebrationNone, snap.Result.Celebration)
}

func TestSinglePlayerCorrectAnswer(t *testing.T) {
	s, sched := newTestSession(t, 1, nil)

	s.SubmitAnswer(currentAnswer(s))
	snap := s.Snapshot()
	require.NotNil(t, snap.Feedback)
	assert.Equal(t, FeedbackCorrect, snap.Feedback.Type)
	assert.Equal(t, []int{1}, snap.Scores)
	assert.True(t, snap.Answered)

	// A second submission during the feedback window must not score.
	s.SubmitAnswer(currentAnswer(s))
	assert.Equal(t, []int{1}, s.Snapshot().Scores)

	require.True(t, sched.fire())
	snap = s.Snapshot()
	assert.Equal(t, 1, snap.Index)
	assert.Nil(t, snap.Feedback)
	assert.False(t, snap.Answered)
}

func TestSinglePlayerWrongAnswer(t *testing.T) {
	s, sched := newTestSession(t, 1, nil)

	s.SubmitAnswer(wrongAnswer)
	snap := s.Snapshot()
	require.NotNil(t, snap.Feedback)
	assert.Equal(t, FeedbackWrong, snap.Feedback.Type)
	assert.Equal(t, []int{0}, snap.Scores)

	require.True(t, sched.fire())
	snap = s.Snapshot()
	assert.Equal(t, 1, snap.Index)
	assert.Equal(t, []int{0}, snap.Scores)
	assert.Empty(t, snap.Locked)
	assert.Equal(t, 0, snap.Active)
}

// playSingle answers the first correct questions right and the rest wrong.
func playSingle(t *testing.T, s *Session, sched *manualScheduler, correct int) Snapshot {
	t.Helper()
	for s.Snapshot().State == StatePlaying {
		if correct > 0 {
			correct--
			s.SubmitAnswer(currentAnswer(s))
		} else {
			s.SubmitAnswer(wrongAnswer)
		}
		require.True(t, sched.fire())
	}
	return s.Snapshot()
}

func TestSinglePlayerResultTiers(t *testing.T) {
	cases := []struct {
		name        string
		correct     int
		tier        string
		celebration string
	}{
		{"perfect", 20, TierPerfect, CelebrationGrand},
		{"close at threshold", 15, TierClose, CelebrationGrand},
		{"just below threshold", 14, TierStandard, CelebrationNone},
		{"zero", 0, TierStandard, CelebrationNone},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, sched := newTestSession(t, 1, nil)
			snap := playSingle(t, s, sched, tc.correct)

			require.NotNil(t, snap.Result)
			assert.Equal(t, tc.correct, snap.Result.Scores[0])
			assert.Equal(t, 20, snap.Result.Total)
			assert.Equal(t, tc.tier, snap.Result.Tier)
			assert.Equal(t, tc.celebration, snap.Result.Celebration)
		})
	}
}

func TestSinglePlayerResultReadsLeaderboard(t *testing.T) {
	store := &stubStore{
		entries: []leaderboard.Entry{{Name: "あおい", Score: 18}},
		newHigh: true,
	}
	s, sched := newTestSession(t, 1, store)
	snap := playSingle(t, s, sched, 12)

	require.NotNil(t, snap.Result)
	assert.True(t, snap.Result.NewHighScore)
	assert.False(t, snap.Result.Saved)
	assert.Equal(t, store.entries, snap.Result.Leaderboard)
}

func TestSaveScore(t *testing.T) {
	store := &stubStore{newHigh: true}
	s, sched := newTestSession(t, 1, store)

	assert.Error(t, s.SaveScore("early")) // still playing

	playSingle(t, s, sched, 10)

	assert.Error(t, s.SaveScore("  "))
	assert.Error(t, s.SaveScore("this name is far too long"))

	require.NoError(t, s.SaveScore("  ひなた  "))
	assert.Equal(t, 1, store.saves)

	snap := s.Snapshot()
	require.NotNil(t, snap.Result)
	assert.True(t, snap.Result.Saved)
	assert.False(t, snap.Result.NewHighScore)
	require.Len(t, snap.Result.Leaderboard, 1)
	assert.Equal(t, "ひなた", snap.Result.Leaderboard[0].Name)
	assert.Equal(t, 10, snap.Result.Leaderboard[0].Score)

	// Double submission is a silent no-op.
	require.NoError(t, s.SaveScore("ひなた"))
	assert.Equal(t, 1, store.saves)
}

func TestSaveScoreMultiplayerRejected(t *testing.T) {
	store := &stubStore{}
	s, sched := newTestSession(t, 2, store)

	for s.Snapshot().State == StatePlaying {
		s.Buzz(0)
		s.SubmitAnswer(currentAnswer(s))
		require.True(t, sched.fire())
	}

	assert.Error(t, s.SaveScore("player"))
	assert.Equal(t, 0, store.saves)
}

func TestMultiplayerBuzzArbitration(t *testing.T) {
	s, sched := newTestSession(t, 3, nil)

	// Nobody buzzed yet, so answers are ignored.
	s.SubmitAnswer(currentAnswer(s))
	assert.Equal(t, []int{0, 0, 0}, s.Snapshot().Scores)
	assert.Equal(t, NoActivePlayer, s.Snapshot().Active)

	// First buzz wins; later buzzes are ignored until the next reset point.
	s.Buzz(0)
	s.Buzz(1)
	assert.Equal(t, 0, s.Snapshot().Active)

	s.SubmitAnswer(wrongAnswer)
	s.Buzz(2) // feedback pending, rejected
	assert.Equal(t, 0, s.Snapshot().Active)

	require.True(t, sched.fire())
	snap := s.Snapshot()
	assert.Equal(t, NoActivePlayer, snap.Active)
	assert.Equal(t, []int{0}, snap.Locked)
	assert.Nil(t, snap.Feedback)
	assert.False(t, snap.Answered)

	// A locked player cannot re-buzz on the same question.
	s.Buzz(0)
	assert.Equal(t, NoActivePlayer, s.Snapshot().Active)

	s.Buzz(1)
	s.SubmitAnswer(currentAnswer(s))
	assert.Equal(t, []int{0, 1, 0}, s.Snapshot().Scores)

	require.True(t, sched.fire())
	snap = s.Snapshot()
	assert.Equal(t, 1, snap.Index)
	assert.Equal(t, []int{0}, snap.Locked, "penalty carries over for exactly one question")
	assert.Equal(t, NoActivePlayer, snap.Active)
}

func TestMultiplayerInvalidBuzzIgnored(t *testing.T) {
	s, _ := newTestSession(t, 2, nil)

	s.Buzz(-1)
	s.Buzz(2) // slot beyond player count
	assert.Equal(t, NoActivePlayer, s.Snapshot().Active)
}

func TestMultiplayerAllWrongForcesAdvance(t *testing.T) {
	s, sched := newTestSession(t, 3, nil)

	for player := 0; player < 3; player++ {
		s.Buzz(player)
		s.SubmitAnswer(wrongAnswer)
		require.True(t, sched.fire())
	}

	// Everyone is locked, so the current question is abandoned, and the
	// carried penalties would lock everyone out of the next one too, so it is
	// skipped as well.
	snap := s.Snapshot()
	assert.Equal(t, 2, snap.Index)
	assert.Equal(t, []int{0, 0, 0}, snap.Scores)
	assert.Empty(t, snap.Locked)
	assert.Equal(t, NoActivePlayer, snap.Active)
}

func TestMultiplayerWinners(t *testing.T) {
	s, sched := newTestSession(t, 2, nil)

	scorer := 0
	for s.Snapshot().State == StatePlaying {
		s.Buzz(scorer)
		s.SubmitAnswer(currentAnswer(s))
		require.True(t, sched.fire())
		scorer = 1 - scorer
	}

	snap := s.Snapshot()
	require.NotNil(t, snap.Result)
	assert.Equal(t, []int{10, 10}, snap.Result.Scores)
	assert.Equal(t, []int{0, 1}, snap.Result.Winners, "tied players are co-winners")
	assert.Equal(t, CelebrationBig, snap.Result.Celebration)
	assert.Empty(t, snap.Result.Tier)
}

func TestRestart(t *testing.T) {
	s, sched := newTestSession(t, 2, nil)

	s.Buzz(0)
	s.SubmitAnswer(currentAnswer(s))
	require.True(t, sched.fire())

	require.NoError(t, s.Restart())
	snap := s.Snapshot()
	assert.Equal(t, StatePlaying, snap.State)
	assert.Equal(t, 2, snap.PlayerCount)
	assert.Equal(t, 0, snap.Index)
	assert.Equal(t, []int{0, 0}, snap.Scores)
	assert.Empty(t, snap.Locked)
}

func TestRestartBeforeStart(t *testing.T) {
	s := NewSession(SessionParams{
		Regions:   generatorRegions(10),
		Scheduler: &manualScheduler{},
		Rand:      rand.New(rand.NewSource(1)),
		Logger:    zerolog.Nop(),
	})
	assert.Error(t, s.Restart())
}

func TestRestartCancelsPendingAdvance(t *testing.T) {
	s, sched := newTestSession(t, 1, nil)

	s.SubmitAnswer(currentAnswer(s))
	require.NoError(t, s.Restart())

	// The stale timer from before the restart must not touch the new game.
	sched.fire()
	snap := s.Snapshot()
	assert.Equal(t, 0, snap.Index)
	assert.Equal(t, []int{0}, snap.Scores)
}

func TestCloseAbandonsPendingTimer(t *testing.T) {
	s, sched := newTestSession(t, 1, nil)

	s.SubmitAnswer(currentAnswer(s))
	s.Close()

	assert.False(t, sched.fire(), "pending timer should be cancelled on close")
	assert.Error(t, s.Start(1))
}

func TestOnChangeReceivesSnapshots(t *testing.T) {
	var snaps []Snapshot
	sched := &manualScheduler{}
	s := NewSession(SessionParams{
		Regions:   generatorRegions(10),
		Scheduler: sched,
		Rand:      rand.New(rand.NewSource(9)),
		Logger:    zerolog.Nop(),
		OnChange:  func(snap Snapshot) { snaps = append(snaps, snap) },
	})

	require.NoError(t, s.Start(1))
	s.SubmitAnswer(wrongAnswer)
	require.True(t, sched.fire())

	require.Len(t, snaps, 3)
	assert.Equal(t, StatePlaying, snaps[0].State)
	assert.NotNil(t, snaps[1].Feedback)
	assert.Equal(t, 1, snaps[2].Index)
}

func TestMeetsHighThreshold(t *testing.T) {
	assert.True(t, meetsHighThreshold(15, 20))
	assert.False(t, meetsHighThreshold(14, 20))
	assert.True(t, meetsHighThreshold(6, 7)) // ceil(5.25) = 6
	assert.False(t, meetsHighThreshold(5, 7))
	assert.False(t, meetsHighThreshold(0, 0))
}
