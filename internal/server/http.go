package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mkhara/regionmaster/internal/catalog"
	"github.com/mkhara/regionmaster/internal/config"
	"github.com/mkhara/regionmaster/internal/leaderboard"
	"github.com/mkhara/regionmaster/internal/logging"
	httperrors "github.com/mkhara/regionmaster/pkg/http/errors"
)

// NewHTTPServer wires base routes (health, metrics), the region lookup used
// by the map widget, the leaderboard read, and the quiz WebSocket endpoint.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, cat *catalog.Catalog, store *leaderboard.Store, quizWSHandler http.HandlerFunc) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/regions/", func(w http.ResponseWriter, r *http.Request) {
		handleRegionLookup(w, r.WithContext(logging.IntoContext(r.Context(), logger)), cat)
	})

	mux.HandleFunc("/v1/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		handleLeaderboard(w, r.WithContext(logging.IntoContext(r.Context(), logger)), store)
	})

	if quizWSHandler != nil {
		mux.HandleFunc("/ws/quiz", quizWSHandler)
	}

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}
}

// handleRegionLookup resolves a selection identifier from the map widget and
// returns the region-facts record the detail panel consumes. Misses are
// logged by the catalog and answered with 404; the selection stays unchanged
// on the client.
func handleRegionLookup(w http.ResponseWriter, r *http.Request, cat *catalog.Catalog) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/regions/")
	if id == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidPayload, "Missing region identifier")
		return
	}

	region, ok := cat.Lookup(id)
	if !ok {
		httperrors.RespondNotFound(w, httperrors.ErrCodeRegionNotFound, "Region not found")
		return
	}
	logger := logging.FromContext(r.Context())
	logger.Debug().Str("region", region.ID).Msg("region lookup served")

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(region)
}

func handleLeaderboard(w http.ResponseWriter, r *http.Request, store *leaderboard.Store) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries := store.TopScores(r.Context())
	if entries == nil {
		entries = []leaderboard.Entry{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}
