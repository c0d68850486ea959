package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mkhara/regionmaster/internal/catalog"
)

// catalogcheck loads a region catalog file and reports entries that the
// question generator would have to skip. Malformed data is the catalog
// owner's responsibility; this is their tool for finding it.
func main() {
	var (
		path = flag.String("catalog", "configs/regions.json", "Path to the region catalog JSON file")
	)
	flag.Parse()

	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	cat, err := catalog.Load(*path, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Str("path", *path).Msg("failed to load catalog")
	}

	problems := cat.Validate()
	if len(problems) == 0 {
		log.Info().Int("regions", cat.Len()).Str("path", *path).Msg("catalog is clean")
		return
	}

	for _, p := range problems {
		log.Warn().Msg(p)
	}
	log.Error().
		Int("regions", cat.Len()).
		Int("problems", len(problems)).
		Msg("catalog has problems")
	os.Exit(1)
}
