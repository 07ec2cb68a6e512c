// Package detect maps free-text pathology descriptions to condition ids.
// Detection is best-effort: callers must not assume completeness.
package detect

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed data/keywords.yaml
var keywordsYAML []byte

var ErrInvalidTable = errors.New("invalid keyword table")

// Known is satisfied by *conditions.Catalog.
type Known interface {
	Has(id string) bool
}

type rule struct {
	ID       string   `yaml:"id"`
	Keywords []string `yaml:"keywords"`
	Unless   []string `yaml:"unless"`
}

type choice struct {
	ID    string   `yaml:"id"`
	Hints []string `yaml:"hints"`
}

type phase struct {
	Trigger []string `yaml:"trigger"`
	Default string   `yaml:"default"`
	Choices []choice `yaml:"choices"`
}

type table struct {
	Rules     []rule  `yaml:"rules"`
	Fallbacks []rule  `yaml:"fallbacks"`
	Phases    []phase `yaml:"phases"`
}

type Classifier struct {
	t table
}

// NewDefault builds a classifier from the embedded table and checks every id against known.
func NewDefault(known Known) (*Classifier, error) {
	return New(bytes.NewReader(keywordsYAML), known)
}

func New(r io.Reader, known Known) (*Classifier, error) {
	var t table
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}

	check := func(id string) error {
		if id == "" {
			return fmt.Errorf("%w: empty id", ErrInvalidTable)
		}
		if known != nil && !known.Has(id) {
			return fmt.Errorf("%w: unknown condition %q", ErrInvalidTable, id)
		}
		return nil
	}
	for i := range t.Rules {
		if err := check(t.Rules[i].ID); err != nil {
			return nil, err
		}
		t.Rules[i].Keywords = foldAll(t.Rules[i].Keywords)
	}
	for i := range t.Fallbacks {
		if err := check(t.Fallbacks[i].ID); err != nil {
			return nil, err
		}
		t.Fallbacks[i].Keywords = foldAll(t.Fallbacks[i].Keywords)
	}
	for i := range t.Phases {
		p := &t.Phases[i]
		if err := check(p.Default); err != nil {
			return nil, err
		}
		p.Trigger = foldAll(p.Trigger)
		for j := range p.Choices {
			if err := check(p.Choices[j].ID); err != nil {
				return nil, err
			}
			p.Choices[j].Hints = foldAll(p.Choices[j].Hints)
		}
	}
	return &Classifier{t: t}, nil
}

// Detect returns condition ids mentioned in text, de-duplicated, in table order.
func (c *Classifier) Detect(text string) []string {
	s := Fold(text)
	out := make([]string, 0)
	if strings.TrimSpace(s) == "" {
		return out
	}
	seen := make(map[string]struct{})
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	for _, r := range c.t.Rules {
		if containsAny(s, r.Keywords) {
			add(r.ID)
		}
	}
	for _, r := range c.t.Fallbacks {
		if !containsAny(s, r.Keywords) {
			continue
		}
		blocked := false
		for _, id := range r.Unless {
			if _, ok := seen[id]; ok {
				blocked = true
				break
			}
		}
		if !blocked {
			add(r.ID)
		}
	}
	for _, p := range c.t.Phases {
		if !containsAny(s, p.Trigger) {
			continue
		}
		picked := p.Default
		for _, ch := range p.Choices {
			if containsAny(s, ch.Hints) {
				picked = ch.ID
				break
			}
		}
		add(picked)
	}
	return out
}

var folder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases s and strips diacritics.
func Fold(s string) string {
	out, _, err := transform.String(folder, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

func foldAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(Fold(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if containsWord(s, kw) {
			return true
		}
	}
	return false
}

// containsWord reports whether kw occurs in s with no letter or digit on either side.
func containsWord(s, kw string) bool {
	for from := 0; from <= len(s)-len(kw); {
		i := strings.Index(s[from:], kw)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(kw)
		if boundaryBefore(s, start) && boundaryAfter(s, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		from = start + size
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
