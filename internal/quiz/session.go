package quiz

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mkhara/regionmaster/internal/catalog"
	"github.com/mkhara/regionmaster/internal/leaderboard"
)

// MaxPlayers is the number of supported player slots.
const MaxPlayers = 3

// NoActivePlayer means nobody holds the right to answer (multiplayer,
// awaiting buzz-in).
const NoActivePlayer = -1

// MaxNameLength caps leaderboard names, matching the input widget.
const MaxNameLength = 10

// highScoreTierRatio is the share of questions a single player must answer
// correctly to reach the close tier and the grand celebration.
const highScoreTierRatio = 0.75

// SessionConfig tunes transition delays. Zero values fall back to defaults.
type SessionConfig struct {
	// CorrectAdvanceDelay keeps correct feedback visible before advancing.
	CorrectAdvanceDelay time.Duration
	// WrongAdvanceDelay keeps wrong feedback visible before the lockout (or
	// single-player advance) applies.
	WrongAdvanceDelay time.Duration
}

// DefaultSessionConfig returns production defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		CorrectAdvanceDelay: 1500 * time.Millisecond,
		WrongAdvanceDelay:   time.Second,
	}
}

// SessionParams wires a session's collaborators.
type SessionParams struct {
	Regions   []catalog.Region
	Store     ScoreStore // nil disables leaderboard integration
	Scheduler Scheduler
	Config    SessionConfig
	Generator GeneratorConfig
	Rand      *rand.Rand
	Logger    zerolog.Logger
	// OnChange receives a snapshot after every state transition. It must not
	// call back into the session.
	OnChange func(Snapshot)
}

// Session drives one quiz invocation through setup, playing and result.
// All state transitions happen under a single mutex; delayed transitions
// re-enter through the same mutex and are generation-checked so a stale
// timer after teardown or restart is a no-op.
type Session struct {
	id       uuid.UUID
	gen      *Generator
	regions  []catalog.Region
	store    ScoreStore
	sched    Scheduler
	cfg      SessionConfig
	logger   zerolog.Logger
	onChange func(Snapshot)

	mu          sync.Mutex
	state       string
	playerCount int
	questions   []Question
	index       int
	scores      [MaxPlayers]int
	active      int
	locked      map[int]bool
	penalty     map[int]bool
	answered    bool
	feedback    *Feedback
	result      *Result
	closed      bool

	timerGen    uint64
	cancelTimer func()
}

// NewSession creates a session in the setup state.
func NewSession(p SessionParams) *Session {
	if p.Scheduler == nil {
		p.Scheduler = NewScheduler()
	}
	if p.Rand == nil {
		p.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if p.Config.CorrectAdvanceDelay <= 0 {
		p.Config.CorrectAdvanceDelay = DefaultSessionConfig().CorrectAdvanceDelay
	}
	if p.Config.WrongAdvanceDelay <= 0 {
		p.Config.WrongAdvanceDelay = DefaultSessionConfig().WrongAdvanceDelay
	}

	id := uuid.New()
	return &Session{
		id:       id,
		gen:      NewGenerator(p.Generator, p.Rand),
		regions:  p.Regions,
		store:    p.Store,
		sched:    p.Scheduler,
		cfg:      p.Config,
		logger:   p.Logger.With().Str("component", "session").Str("session_id", id.String()).Logger(),
		onChange: p.OnChange,
		state:    StateSetup,
		active:   NoActivePlayer,
		locked:   make(map[int]bool),
		penalty:  make(map[int]bool),
	}
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Start begins (or restarts) a game for playerCount players. It resets all
// scores and lockouts, generates a fresh question set, and cancels any
// transition still pending from a previous round.
func (s *Session) Start(playerCount int) error {
	if playerCount < 1 || playerCount > MaxPlayers {
		return fmt.Errorf("player count %d out of range 1-%d", playerCount, MaxPlayers)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("session closed")
	}
	s.cancelPendingLocked()

	s.playerCount = playerCount
	s.scores = [MaxPlayers]int{}
	s.locked = make(map[int]bool)
	s.penalty = make(map[int]bool)
	s.answered = false
	s.feedback = nil
	s.result = nil
	s.index = 0
	s.questions = s.gen.Generate(s.regions)
	s.state = StatePlaying
	if playerCount == 1 {
		s.active = 0
	} else {
		s.active = NoActivePlayer
	}

	mode := "multi"
	if playerCount == 1 {
		mode = "single"
	}
	sessionsStarted.WithLabelValues(mode).Inc()
	questionsGenerated.Add(float64(len(s.questions)))
	if len(s.questions) < s.gen.cfg.TargetCount {
		generationShortfalls.Inc()
		s.logger.Warn().
			Int("generated", len(s.questions)).
			Int("target", s.gen.cfg.TargetCount).
			Msg("question generation fell short of target")
	}

	s.logger.Info().
		Int("players", playerCount).
		Int("questions", len(s.questions)).
		Msg("game started")

	if len(s.questions) == 0 {
		s.finishLocked()
	}
	s.emitUnlock()
	return nil
}

// Restart replays with the same player count.
func (s *Session) Restart() error {
	s.mu.Lock()
	count := s.playerCount
	s.mu.Unlock()
	if count == 0 {
		return fmt.Errorf("session never started")
	}
	return s.Start(count)
}

// Buzz claims the right to answer for a player slot. Accepted only while
// playing in multiplayer, with nobody active, no feedback pending, and the
// player not locked out. Everything else is a silent no-op; first accepted
// signal wins, later ones are ignored until the next reset point.
func (s *Session) Buzz(player int) {
	s.mu.Lock()
	if s.closed || s.state != StatePlaying || s.playerCount < 2 ||
		player < 0 || player >= s.playerCount ||
		s.active != NoActivePlayer || s.answered || s.feedback != nil ||
		s.locked[player] {
		s.mu.Unlock()
		buzzSignals.WithLabelValues("rejected").Inc()
		return
	}

	s.active = player
	buzzSignals.WithLabelValues("accepted").Inc()
	s.logger.Debug().Int("player", player).Int("question", s.index).Msg("buzz accepted")
	s.emitUnlock()
}

// SubmitAnswer evaluates an answer for the active player. Rejections (no
// active player in multiplayer, or a transition already in flight) are
// no-ops, never errors.
func (s *Session) SubmitAnswer(answer string) {
	s.mu.Lock()
	if s.closed || s.state != StatePlaying || s.answered || len(s.questions) == 0 {
		s.mu.Unlock()
		return
	}
	if s.playerCount > 1 && s.active == NoActivePlayer {
		s.mu.Unlock()
		return
	}

	player := s.active
	question := s.questions[s.index]
	s.answered = true

	if answer == question.Answer {
		s.feedback = &Feedback{Type: FeedbackCorrect, Player: player}
		s.scores[player]++
		answersTotal.WithLabelValues("correct").Inc()
		s.scheduleLocked(s.cfg.CorrectAdvanceDelay, func() {
			s.advanceLocked()
		})
	} else {
		s.feedback = &Feedback{Type: FeedbackWrong, Player: player}
		answersTotal.WithLabelValues("wrong").Inc()
		s.scheduleLocked(s.cfg.WrongAdvanceDelay, func() {
			s.resolveWrongLocked(player)
		})
	}

	s.logger.Info().
		Int("player", player).
		Int("question", s.index).
		Bool("correct", answer == question.Answer).
		Msg("answer submitted")
	s.emitUnlock()
}

// SaveScore commits the single-player final score to the leaderboard exactly
// once. The name must be caller-trimmed, non-empty, and at most
// MaxNameLength runes.
func (s *Session) SaveScore(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is empty")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("name exceeds %d characters", MaxNameLength)
	}

	s.mu.Lock()
	if s.closed || s.state != StateResult || s.playerCount != 1 || s.store == nil {
		s.mu.Unlock()
		return fmt.Errorf("no score to save")
	}
	if s.result == nil || s.result.Saved {
		s.mu.Unlock()
		return nil // already saved; duplicate submission is a no-op
	}

	entries := s.store.SaveScore(context.Background(), name, s.scores[0])
	s.result.Saved = true
	s.result.NewHighScore = false
	s.result.Leaderboard = entries
	scoresSaved.Inc()
	s.logger.Info().Str("name", name).Int("score", s.scores[0]).Msg("high score saved")
	s.emitUnlock()
	return nil
}

// Close tears the session down, abandoning any pending transition without
// further mutation.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancelPendingLocked()
	s.logger.Debug().Msg("session closed")
}

// Snapshot returns the current client-visible state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// scheduleLocked registers a delayed transition. The callback re-acquires
// the session mutex and is dropped when the timer generation moved on
// (restart or teardown happened in between).
func (s *Session) scheduleLocked(d time.Duration, fn func()) {
	gen := s.timerGen
	s.cancelTimer = s.sched.AfterFunc(d, func() {
		s.mu.Lock()
		if s.closed || s.timerGen != gen {
			s.mu.Unlock()
			return
		}
		s.timerGen++
		s.cancelTimer = nil
		fn()
		s.emitUnlock()
	})
}

func (s *Session) cancelPendingLocked() {
	s.timerGen++
	if s.cancelTimer != nil {
		s.cancelTimer()
		s.cancelTimer = nil
	}
}

// resolveWrongLocked applies the delayed consequences of a wrong answer.
func (s *Session) resolveWrongLocked(player int) {
	if s.state != StatePlaying {
		return
	}
	if s.playerCount == 1 {
		s.advanceLocked()
		return
	}

	// Lock the player for this question and penalize the next one.
	s.locked[player] = true
	s.penalty[player] = true
	s.active = NoActivePlayer
	s.feedback = nil
	s.answered = false

	if len(s.locked) >= s.playerCount {
		s.logger.Info().Int("question", s.index).Msg("all players locked out, forcing advance")
		s.advanceLocked()
	}
}

// advanceLocked moves to the next question or finishes the game. The penalty
// set accumulated during the finished question becomes the new lockout set:
// a wrong answer costs exactly one subsequent question.
func (s *Session) advanceLocked() {
	if s.state != StatePlaying {
		return
	}
	if s.index >= len(s.questions)-1 {
		s.finishLocked()
		return
	}

	s.index++
	s.locked = s.penalty
	s.penalty = make(map[int]bool)
	s.feedback = nil
	s.answered = false
	if s.playerCount == 1 {
		s.active = 0
		return
	}
	s.active = NoActivePlayer
	if len(s.locked) >= s.playerCount {
		// Every player carried a penalty in; nobody can buzz, so the
		// question is skipped the same way a full lockout forces an advance.
		s.logger.Info().Int("question", s.index).Msg("all players penalized, skipping question")
		s.advanceLocked()
	}
}

// finishLocked freezes scores and computes the result payload.
func (s *Session) finishLocked() {
	s.state = StateResult
	s.feedback = nil
	total := len(s.questions)

	result := &Result{
		Scores:      append([]int{}, s.scores[:s.playerCount]...),
		Total:       total,
		Celebration: CelebrationNone,
	}

	if s.playerCount == 1 {
		score := s.scores[0]
		switch {
		case total > 0 && score == total:
			result.Tier = TierPerfect
		case meetsHighThreshold(score, total):
			result.Tier = TierClose
		default:
			result.Tier = TierStandard
		}
		if meetsHighThreshold(score, total) {
			result.Celebration = CelebrationGrand
		}
		if s.store != nil {
			ctx := context.Background()
			result.Leaderboard = s.store.TopScores(ctx)
			result.NewHighScore = s.store.IsNewHighScore(ctx, score)
		}
	} else {
		result.Celebration = CelebrationBig
		best := 0
		for p := 0; p < s.playerCount; p++ {
			if s.scores[p] > best {
				best = s.scores[p]
			}
		}
		for p := 0; p < s.playerCount; p++ {
			if s.scores[p] == best {
				result.Winners = append(result.Winners, p)
			}
		}
	}

	s.result = result
	s.logger.Info().
		Ints("scores", result.Scores).
		Int("total", total).
		Msg("game finished")
}

// meetsHighThreshold reports whether score reaches 75% of the generated
// question count, rounded up.
func meetsHighThreshold(score, total int) bool {
	if total == 0 {
		return false
	}
	return score >= int(math.Ceil(float64(total)*highScoreTierRatio))
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:   s.id.String(),
		State:       s.state,
		PlayerCount: s.playerCount,
		Index:       s.index,
		Total:       len(s.questions),
		Active:      s.active,
		Answered:    s.answered,
	}
	if s.playerCount > 0 {
		snap.Scores = append([]int{}, s.scores[:s.playerCount]...)
	}
	for p := 0; p < s.playerCount; p++ {
		if s.locked[p] {
			snap.Locked = append(snap.Locked, p)
		}
	}
	if s.feedback != nil {
		fb := *s.feedback
		snap.Feedback = &fb
	}
	if s.state == StatePlaying && s.index < len(s.questions) {
		q := s.questions[s.index]
		snap.Question = &QuestionView{
			Kind:    q.Kind,
			Prompt:  q.Prompt,
			Options: append([]string{}, q.Options...),
		}
	}
	if s.result != nil {
		r := *s.result
		r.Scores = append([]int{}, s.result.Scores...)
		r.Leaderboard = append([]leaderboard.Entry{}, s.result.Leaderboard...)
		snap.Result = &r
	}
	return snap
}

// emitUnlock snapshots under the held mutex, releases it, and notifies the
// listener. Callers must hold s.mu and must not touch state afterwards.
func (s *Session) emitUnlock() {
	snap := s.snapshotLocked()
	s.mu.Unlock()
	if s.onChange != nil {
		s.onChange(snap)
	}
}
