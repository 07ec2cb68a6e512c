package recipes

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Plans reference recipes as [REC_####] tokens.
var refPattern = regexp.MustCompile(`\bREC_(\d{4})\b`)

// maxRepairDistance bounds the numeric distance of a repaired reference.
const maxRepairDistance = 10

// ExtractRefs returns the distinct recipe ids referenced in text, in order of appearance.
func ExtractRefs(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range refPattern.FindAllStringSubmatch(text, -1) {
		id := "REC_" + m[1]
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// RepairReport lists what RepairRefs changed.
type RepairReport struct {
	Replaced   map[string]string `json:"replaced,omitempty"`
	Unresolved []string          `json:"unresolved,omitempty"`
}

func (r RepairReport) Clean() bool {
	return len(r.Replaced) == 0 && len(r.Unresolved) == 0
}

// RepairRefs rewrites references to unknown ids with the nearest known id
// whose number is within maxRepairDistance. Ties prefer the lower id.
func RepairRefs(text string, c *Catalog) (string, RepairReport) {
	report := RepairReport{}
	known := c.numbers()
	unresolved := make(map[string]struct{})

	fixed := refPattern.ReplaceAllStringFunc(text, func(tok string) string {
		m := refPattern.FindStringSubmatch(tok)
		id := "REC_" + m[1]
		if c.Has(id) {
			return tok
		}
		n, _ := strconv.Atoi(m[1])
		best, ok := nearest(n, known)
		if !ok {
			if _, dup := unresolved[id]; !dup {
				unresolved[id] = struct{}{}
				report.Unresolved = append(report.Unresolved, id)
			}
			return tok
		}
		repl := fmt.Sprintf("REC_%04d", best)
		if report.Replaced == nil {
			report.Replaced = make(map[string]string)
		}
		report.Replaced[id] = repl
		return strings.Replace(tok, id, repl, 1)
	})
	return fixed, report
}

func nearest(n int, known []int) (int, bool) {
	best, bestDist := 0, maxRepairDistance+1
	for _, k := range known {
		d := k - n
		if d < 0 {
			d = -d
		}
		if d < bestDist || (d == bestDist && k < best) {
			best, bestDist = k, d
		}
	}
	return best, bestDist <= maxRepairDistance
}

func (c *Catalog) numbers() []int {
	out := make([]int, 0, len(c.byID))
	for _, id := range c.IDs() {
		n, err := strconv.Atoi(strings.TrimPrefix(id, "REC_"))
		if err == nil {
			out = append(out, n)
		}
	}
	return out
}

// Appendix renders full recipe details for the given ids. Unknown ids are skipped.
func Appendix(ids []string, c *Catalog) string {
	var b strings.Builder
	for _, id := range ids {
		r, ok := c.Get(id)
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%s] %s\n", r.ID, r.Name)
		for _, ing := range r.Ingredients {
			fmt.Fprintf(&b, "  - %s: %s\n", ing.Item, ing.Quantity)
		}
		if r.Preparation != "" {
			fmt.Fprintf(&b, "  Preparación: %s\n", r.Preparation)
		}
		fmt.Fprintf(&b, "  %.0f kcal | P %.0f g | C %.0f g | G %.0f g\n", r.Calories, r.ProteinG, r.CarbsG, r.FatG)
	}
	return b.String()
}

// Summary is the one-line form used in prompts.
func Summary(r Recipe) string {
	return fmt.Sprintf("[%s] %s | %.0f kcal | P %.0f g | C %.0f g | G %.0f g",
		r.ID, r.Name, r.Calories, r.ProteinG, r.CarbsG, r.FatG)
}
