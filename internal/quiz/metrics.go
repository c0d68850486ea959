package quiz

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "regionmaster",
		Subsystem: "quiz",
		Name:      "sessions_started_total",
		Help:      "Quiz sessions started, by mode.",
	}, []string{"mode"})

	questionsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "regionmaster",
		Subsystem: "quiz",
		Name:      "questions_generated_total",
		Help:      "Questions produced by the generator.",
	})

	generationShortfalls = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "regionmaster",
		Subsystem: "quiz",
		Name:      "generation_shortfalls_total",
		Help:      "Sessions that generated fewer questions than the target.",
	})

	answersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "regionmaster",
		Subsystem: "quiz",
		Name:      "answers_total",
		Help:      "Answers evaluated, by outcome.",
	}, []string{"outcome"})

	buzzSignals = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "regionmaster",
		Subsystem: "quiz",
		Name:      "buzz_signals_total",
		Help:      "Buzz-in signals, by arbitration result.",
	}, []string{"result"})

	scoresSaved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "regionmaster",
		Subsystem: "quiz",
		Name:      "scores_saved_total",
		Help:      "High scores committed to the leaderboard.",
	})
)
