// Package catalog holds the read-only region data set the quiz runs against.
// The data is supplied externally at process start and never mutated.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
)

// Region describes a single geographic area. Facts drive fact questions;
// Products is a delimited list of notable goods.
type Region struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Capital  string   `json:"capital"`
	Terrain  string   `json:"terrain"`
	Products string   `json:"products"`
	Facts    []string `json:"facts"`
}

// Catalog is an immutable lookup over the supplied regions.
type Catalog struct {
	regions []Region
	byID    map[string]Region
	logger  zerolog.Logger
}

// New builds a catalog from an in-memory region list.
func New(regions []Region, logger zerolog.Logger) *Catalog {
	byID := make(map[string]Region, len(regions))
	for _, r := range regions {
		byID[Normalize(r.ID)] = r
	}
	return &Catalog{
		regions: regions,
		byID:    byID,
		logger:  logger.With().Str("component", "catalog").Logger(),
	}
}

// Load reads a JSON region file from disk.
func Load(path string, logger zerolog.Logger) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var regions []Region
	if err := json.Unmarshal(data, &regions); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("catalog %s contains no regions", path)
	}
	return New(regions, logger), nil
}

// All returns a copy of every region for random sampling.
func (c *Catalog) All() []Region {
	out := make([]Region, len(c.regions))
	copy(out, c.regions)
	return out
}

// Len reports the number of regions.
func (c *Catalog) Len() int {
	return len(c.regions)
}

// Get returns the region with the exact (normalized) identifier.
func (c *Catalog) Get(id string) (Region, bool) {
	r, ok := c.byID[Normalize(id)]
	return r, ok
}

// Lookup resolves a raw selection identifier from the map widget. The input
// is normalized, matched exactly, and then matched as a substring of known
// identifiers before giving up. A miss is logged and leaves selection unchanged.
func (c *Catalog) Lookup(raw string) (Region, bool) {
	clean := Normalize(raw)
	if clean == "" {
		c.logger.Warn().Str("input", raw).Msg("empty selection identifier")
		return Region{}, false
	}
	if r, ok := c.byID[clean]; ok {
		return r, true
	}
	for id, r := range c.byID {
		if strings.Contains(id, clean) {
			return r, true
		}
	}
	c.logger.Warn().Str("input", raw).Msg("region not found for selection")
	return Region{}, false
}

// Normalize lowercases an identifier and strips non-alphanumeric runes.
func Normalize(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Validate reports data problems that would make regions ineligible for
// question generation. Malformed entries are the catalog owner's
// responsibility; this exists so the owner can find them.
func (c *Catalog) Validate() []string {
	var problems []string
	seen := make(map[string]bool, len(c.regions))
	for _, r := range c.regions {
		id := Normalize(r.ID)
		switch {
		case id == "":
			problems = append(problems, fmt.Sprintf("region %q: empty identifier", r.Name))
		case seen[id]:
			problems = append(problems, fmt.Sprintf("region %q: duplicate identifier %q", r.Name, r.ID))
		}
		seen[id] = true

		if strings.TrimSpace(r.Name) == "" {
			problems = append(problems, fmt.Sprintf("region %q: empty name", r.ID))
		}
		if strings.TrimSpace(r.Capital) == "" {
			problems = append(problems, fmt.Sprintf("region %q: empty capital, capital questions skipped", r.ID))
		}
		if len(r.Facts) == 0 {
			problems = append(problems, fmt.Sprintf("region %q: no facts, fact questions skipped", r.ID))
		}
		if len(SplitProducts(r.Products)) == 0 {
			problems = append(problems, fmt.Sprintf("region %q: no products, product questions skipped", r.ID))
		}
	}
	return problems
}

// SplitProducts breaks the delimited product field into discrete items.
func SplitProducts(products string) []string {
	fields := strings.FieldsFunc(products, func(r rune) bool {
		return r == '・' || r == '、' || r == ','
	})
	items := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			items = append(items, f)
		}
	}
	return items
}
