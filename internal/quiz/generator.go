package quiz

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/mkhara/regionmaster/internal/catalog"
)

// GeneratorConfig tunes question generation. Zero values fall back to
// production defaults.
type GeneratorConfig struct {
	TargetCount int
	MaxAttempts int
	// SameNameCapitalOdds is the chance a capital question is still used when
	// the capital name restates the region name. A product decision, not an
	// invariant; tune freely.
	SameNameCapitalOdds float64
}

// DefaultGeneratorConfig returns production defaults.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		TargetCount:         20,
		MaxAttempts:         2000,
		SameNameCapitalOdds: 0.5,
	}
}

// Generator builds a session's question set from the catalog.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// NewGenerator creates a generator. rng may be seeded for deterministic tests.
func NewGenerator(cfg GeneratorConfig, rng *rand.Rand) *Generator {
	if cfg.TargetCount <= 0 {
		cfg.TargetCount = 20
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 2000
	}
	if cfg.SameNameCapitalOdds <= 0 {
		cfg.SameNameCapitalOdds = 0.5
	}
	return &Generator{cfg: cfg, rng: rng}
}

// Generate draws up to TargetCount questions with a bounded retry loop.
// Kind weights: 60% fact, 20% capital, 20% product. A short set is a valid
// outcome; callers must size displays off the returned length.
func (g *Generator) Generate(regions []catalog.Region) []Question {
	questions := make([]Question, 0, g.cfg.TargetCount)
	usedFacts := make(map[string]bool)

	for attempts := 0; len(questions) < g.cfg.TargetCount && attempts < g.cfg.MaxAttempts; attempts++ {
		region := regions[g.rng.Intn(len(regions))]

		var q Question
		var ok bool
		switch roll := g.rng.Float64(); {
		case roll < 0.6:
			q, ok = g.factQuestion(region, regions, usedFacts)
		case roll < 0.8:
			q, ok = g.capitalQuestion(region, regions)
		default:
			q, ok = g.productQuestion(region, regions)
		}
		if !ok {
			continue
		}
		questions = append(questions, q)
	}

	return questions
}

func (g *Generator) factQuestion(region catalog.Region, regions []catalog.Region, usedFacts map[string]bool) (Question, bool) {
	if len(region.Facts) == 0 {
		return Question{}, false
	}
	fact := region.Facts[g.rng.Intn(len(region.Facts))]
	if usedFacts[fact] {
		return Question{}, false
	}

	options, ok := g.buildOptions(region.Name, regionNames(regions))
	if !ok {
		return Question{}, false
	}
	usedFacts[fact] = true
	return Question{
		Kind:     KindFact,
		Prompt:   fmt.Sprintf("%q\nWhich region is this about?", fact),
		Answer:   region.Name,
		RegionID: region.ID,
		Options:  options,
	}, true
}

func (g *Generator) capitalQuestion(region catalog.Region, regions []catalog.Region) (Question, bool) {
	if strings.TrimSpace(region.Capital) == "" {
		return Question{}, false
	}
	if !capitalDistinct(region) && g.rng.Float64() >= g.cfg.SameNameCapitalOdds {
		return Question{}, false
	}

	capitals := make([]string, 0, len(regions))
	for _, r := range regions {
		if strings.TrimSpace(r.Capital) != "" {
			capitals = append(capitals, r.Capital)
		}
	}
	options, ok := g.buildOptions(region.Capital, capitals)
	if !ok {
		return Question{}, false
	}
	return Question{
		Kind:     KindCapital,
		Prompt:   fmt.Sprintf("What is the capital of %s?", region.Name),
		Answer:   region.Capital,
		RegionID: region.ID,
		Options:  options,
	}, true
}

func (g *Generator) productQuestion(region catalog.Region, regions []catalog.Region) (Question, bool) {
	items := catalog.SplitProducts(region.Products)
	if len(items) == 0 {
		return Question{}, false
	}
	item := items[g.rng.Intn(len(items))]

	options, ok := g.buildOptions(region.Name, regionNames(regions))
	if !ok {
		return Question{}, false
	}
	return Question{
		Kind:     KindProduct,
		Prompt:   fmt.Sprintf("%q is a famous product of which region?", item),
		Answer:   region.Name,
		RegionID: region.ID,
		Options:  options,
	}, true
}

// buildOptions samples three distinct distractors from pool, never the
// correct value, and shuffles them in with the answer. Reports false when
// fewer than three valid distractors exist.
func (g *Generator) buildOptions(correct string, pool []string) ([]string, bool) {
	seen := map[string]bool{correct: true}
	candidates := make([]string, 0, len(pool))
	for _, v := range pool {
		if seen[v] {
			continue
		}
		seen[v] = true
		candidates = append(candidates, v)
	}
	if len(candidates) < OptionCount-1 {
		return nil, false
	}

	g.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	options := append([]string{correct}, candidates[:OptionCount-1]...)
	g.rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	return options, true
}

func regionNames(regions []catalog.Region) []string {
	names := make([]string, len(regions))
	for i, r := range regions {
		names[i] = r.Name
	}
	return names
}

// adminSuffixes are trailing tokens stripped from a region name before the
// capital-distinctness comparison.
var adminSuffixes = []string{"県", "府", "都", "道", " prefecture", " province", " state"}

// capitalDistinct reports whether the capital name is textually distinct
// from the region name once administrative suffixes are stripped.
func capitalDistinct(region catalog.Region) bool {
	return !strings.Contains(region.Capital, stripAdminSuffix(region.Name))
}

func stripAdminSuffix(name string) string {
	lower := strings.ToLower(name)
	for _, suffix := range adminSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return name[:len(name)-len(suffix)]
		}
	}
	return name
}
