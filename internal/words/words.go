// Package words holds the category/word content the orchestrator draws from
// when a round starts. The default dataset is embedded; a deployment can
// point WORDS_FILE at a replacement with the same layout.
package words

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

//go:embed data/words.json
var defaultData []byte

// Library is an immutable lookup over regions, categories and word lists.
// Category lookup is case and accent insensitive so a client echoing
// "futbol" still matches "Fútbol" from the dataset.
type Library struct {
	regions map[string]region // normalized region name -> region
	names   []string          // display names, sorted
}

type region struct {
	name       string
	categories map[string]category // normalized category name -> category
	order      []string            // display names, sorted
}

type category struct {
	name  string
	words []string
}

// Load builds a library from the file at path, or from the embedded default
// dataset when path is empty.
func Load(path string) (*Library, error) {
	data := defaultData
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read words file: %w", err)
		}
		data = b
	}
	return New(data)
}

// New parses a dataset of the shape {region: {category: [word, ...]}}.
func New(data []byte) (*Library, error) {
	var raw map[string]map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse words data: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("words data has no regions")
	}

	lib := &Library{regions: make(map[string]region, len(raw))}
	for rName, cats := range raw {
		reg := region{name: rName, categories: make(map[string]category, len(cats))}
		for cName, ws := range cats {
			if len(ws) == 0 {
				return nil, fmt.Errorf("category %q in region %q has no words", cName, rName)
			}
			reg.categories[fold(cName)] = category{name: cName, words: ws}
			reg.order = append(reg.order, cName)
		}
		sort.Strings(reg.order)
		lib.regions[fold(rName)] = reg
		lib.names = append(lib.names, rName)
	}
	sort.Strings(lib.names)
	return lib, nil
}

// Regions returns the display names of every region, sorted.
func (l *Library) Regions() []string {
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

// Categories returns the category display names for a region, sorted, or
// nil for an unknown region.
func (l *Library) Categories(regionName string) []string {
	reg, ok := l.regions[fold(regionName)]
	if !ok {
		return nil
	}
	out := make([]string, len(reg.order))
	copy(out, reg.order)
	return out
}

// Words returns the word list for a category, or nil when either the region
// or the category is unknown.
func (l *Library) Words(regionName, categoryName string) []string {
	reg, ok := l.regions[fold(regionName)]
	if !ok {
		return nil
	}
	cat, ok := reg.categories[fold(categoryName)]
	if !ok {
		return nil
	}
	out := make([]string, len(cat.words))
	copy(out, cat.words)
	return out
}

// fold lowercases and strips combining marks, so "Fútbol" and "futbol"
// collide on the same key.
func fold(s string) string {
	decomposed := norm.NFD.String(strings.ToLower(s))
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return norm.NFC.String(b.String())
}
