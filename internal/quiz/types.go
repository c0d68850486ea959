package quiz

import (
	"context"

	"github.com/mkhara/regionmaster/internal/leaderboard"
)

// Question kinds.
const (
	KindFact    = "fact"
	KindCapital = "capital"
	KindProduct = "product"
)

// OptionCount is the fixed number of choices per question: the correct
// answer plus three distractors.
const OptionCount = 4

// Question is generated per session and never persisted.
type Question struct {
	Kind     string
	Prompt   string
	Answer   string // server-side only
	RegionID string
	Options  []string
}

// Session lifecycle states.
const (
	StateSetup   = "setup"
	StatePlaying = "playing"
	StateResult  = "result"
)

// Feedback outcome types.
const (
	FeedbackCorrect = "correct"
	FeedbackWrong   = "wrong"
)

// Feedback marks the outcome of the most recent answer for one player.
type Feedback struct {
	Type   string `json:"type"`
	Player int    `json:"player"`
}

// Result tiers for single-player sessions.
const (
	TierPerfect  = "perfect"
	TierClose    = "close"
	TierStandard = "standard"
)

// Celebration levels carried in the result payload. The presentation layer
// decides what each level looks like.
const (
	CelebrationGrand = "grand"
	CelebrationBig   = "big"
	CelebrationNone  = "none"
)

// ScoreStore is the leaderboard surface the session needs. All methods fail
// soft; see the leaderboard package.
type ScoreStore interface {
	TopScores(ctx context.Context) []leaderboard.Entry
	SaveScore(ctx context.Context, name string, score int) []leaderboard.Entry
	IsNewHighScore(ctx context.Context, score int) bool
}

// QuestionView is the client-visible slice of the current question.
type QuestionView struct {
	Kind    string   `json:"kind"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// Result summarizes a finished session.
type Result struct {
	Scores       []int               `json:"scores"`
	Total        int                 `json:"total"`
	Tier         string              `json:"tier,omitempty"`
	Celebration  string              `json:"celebration"`
	Winners      []int               `json:"winners,omitempty"`
	NewHighScore bool                `json:"new_high_score"`
	Saved        bool                `json:"saved"`
	Leaderboard  []leaderboard.Entry `json:"leaderboard,omitempty"`
}

// Snapshot is an immutable view of session state emitted after every
// transition. Question is set while playing, Result once finished.
type Snapshot struct {
	SessionID   string
	State       string
	PlayerCount int
	Index       int
	Total       int
	Scores      []int
	Active      int
	Locked      []int
	Answered    bool
	Feedback    *Feedback
	Question    *QuestionView
	Result      *Result
}
