package recipes

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/fdg312/nutriplan/internal/detect"
)

//go:embed data/filters.yaml
var filtersYAML []byte

// Filters holds the keyword tables of the selector. Every keyword is stored folded.
type Filters struct {
	Expansions       map[string][]string
	Expensive        map[string][]string
	Economical       []string
	ConstrainedTiers []string
	PregnancyUnsafe  []string
}

type filtersFile struct {
	Expansions       map[string][]string `yaml:"expansions"`
	Expensive        map[string][]string `yaml:"expensive"`
	Economical       []string            `yaml:"economical"`
	ConstrainedTiers []string            `yaml:"constrained_tiers"`
	PregnancyUnsafe  []string            `yaml:"pregnancy_unsafe"`
}

var (
	filtersOnce    sync.Once
	defaultFilters *Filters
	filtersErr     error
)

func DefaultFilters() (*Filters, error) {
	filtersOnce.Do(func() {
		defaultFilters, filtersErr = LoadFilters(bytes.NewReader(filtersYAML))
	})
	return defaultFilters, filtersErr
}

func LoadFilters(r io.Reader) (*Filters, error) {
	var f filtersFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode recipe filters: %w", err)
	}
	out := &Filters{
		Expansions:       make(map[string][]string, len(f.Expansions)),
		Expensive:        make(map[string][]string, len(f.Expensive)),
		Economical:       foldList(f.Economical),
		ConstrainedTiers: foldList(f.ConstrainedTiers),
		PregnancyUnsafe:  foldList(f.PregnancyUnsafe),
	}
	for k, v := range f.Expansions {
		key := strings.TrimSpace(detect.Fold(k))
		out.Expansions[key] = append(out.Expansions[key], foldList(v)...)
	}
	for k, v := range f.Expensive {
		out.Expensive[k] = foldList(v)
	}
	return out, nil
}

// Constrained reports whether a budget tier rejects expensive ingredients.
func (f *Filters) Constrained(tier string) bool {
	t := strings.TrimSpace(detect.Fold(tier))
	for _, c := range f.ConstrainedTiers {
		if t == c {
			return true
		}
	}
	return false
}

// ExpandRestrictions splits comma-separated restriction text and expands
// known labels into ingredient keywords. Unknown labels are kept as-is.
func (f *Filters) ExpandRestrictions(terms ...string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		if _, dup := seen[s]; dup || s == "" {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, text := range terms {
		for _, part := range strings.Split(text, ",") {
			label := strings.TrimSpace(detect.Fold(part))
			if label == "" {
				continue
			}
			if kws, ok := f.Expansions[label]; ok {
				for _, kw := range kws {
					add(kw)
				}
				continue
			}
			add(label)
		}
	}
	return out
}

// ExpensiveMatch returns the group and keyword of the first expensive ingredient found.
func (f *Filters) ExpensiveMatch(ingredients string) (group, keyword string, ok bool) {
	groups := make([]string, 0, len(f.Expensive))
	for g := range f.Expensive {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	for _, g := range groups {
		for _, kw := range f.Expensive[g] {
			if strings.Contains(ingredients, kw) {
				return g, kw, true
			}
		}
	}
	return "", "", false
}

func foldList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(detect.Fold(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
