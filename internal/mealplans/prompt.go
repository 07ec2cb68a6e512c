package mealplans

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/fdg312/nutriplan/internal/ai"
	"github.com/fdg312/nutriplan/internal/nutrition"
	"github.com/fdg312/nutriplan/internal/planvalidator"
	"github.com/fdg312/nutriplan/internal/requirements"
)

const systemPrompt = `Sos un asistente de nutrición clínica. Armás planes de comidas con opciones
intercambiables por comida. Todas las opciones de una misma comida deben aportar las mismas
calorías, proteínas, carbohidratos y grasas (±5%). Usá solo recetas del listado, citadas como
[REC_####]. Al final devolvé el plan en JSON dentro de <plan>...</plan> con la forma
{"slots":{"<comida>":[{"name":"","description":"","recipe_ids":[],"calories":0,"protein_g":0,"carbs_g":0,"fat_g":0}]}}.
No agregues campos extra al JSON.`

var planBlock = regexp.MustCompile(`(?s)<plan>\s*(.*?)\s*</plan>`)

// extractPlan returns the JSON inside the last <plan> block.
func extractPlan(text string) ([]byte, bool) {
	all := planBlock.FindAllStringSubmatch(text, -1)
	if len(all) == 0 {
		return nil, false
	}
	body := strings.TrimSpace(all[len(all)-1][1])
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")
	return []byte(strings.TrimSpace(body)), true
}

func buildPrompt(report *nutrition.RequirementsReport, hint *ai.PlanHint, notes string) string {
	var b strings.Builder
	t := report.Targets

	fmt.Fprintf(&b, "Requerimiento diario: %.0f kcal, proteínas %.0f g, carbohidratos %.0f g, grasas %.0f g.\n",
		t.DailyCalories, t.ProteinG, t.CarbsG, t.FatG)
	if t.MinCarbsG > 0 {
		fmt.Fprintf(&b, "Carbohidratos mínimos por día: %.0f g.\n", t.MinCarbsG)
	}
	if t.SodiumMaxMg != nil {
		fmt.Fprintf(&b, "Sodio máximo: %.0f mg/día.\n", *t.SodiumMaxMg)
	}
	if len(t.Conditions) > 0 {
		fmt.Fprintf(&b, "Condiciones: %s.\n", strings.Join(t.Conditions, ", "))
	}
	if r := strings.TrimSpace(report.Profile.Restrictions); r != "" {
		fmt.Fprintf(&b, "Restricciones del paciente: %s.\n", r)
	}
	if len(report.Restrictions) > 0 {
		fmt.Fprintf(&b, "Evitar: %s.\n", strings.Join(report.Restrictions, ", "))
	}
	for _, c := range report.Considerations {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	for _, n := range report.MedicationNotes {
		if n.Considerations != "" {
			fmt.Fprintf(&b, "- %s: %s\n", n.Medication, n.Considerations)
		}
	}

	fmt.Fprintf(&b, "\nArmá exactamente %d opciones para cada una de estas comidas.\n", hint.OptionsPerSlot)
	for _, s := range hint.Slots {
		fmt.Fprintf(&b, "\n## %s: %.0f kcal, P %.1f g, C %.1f g, G %.1f g\n", s.Name, s.Calories, s.ProteinG, s.CarbsG, s.FatG)
		for _, r := range s.Recipes {
			fmt.Fprintf(&b, "- [%s] %s (%.0f kcal)\n", r.ID, r.Name, r.Calories)
		}
	}
	if notes = strings.TrimSpace(notes); notes != "" {
		fmt.Fprintf(&b, "\nIndicaciones adicionales: %s\n", notes)
	}
	return b.String()
}

// feedbackPrompt asks the model to fix the listed problems.
func feedbackPrompt(violations []planvalidator.Violation, unresolved []string) string {
	var b strings.Builder
	b.WriteString("El plan anterior no cumple con las reglas. Corregí lo siguiente y devolvé el plan completo:\n")
	for _, v := range violations {
		fmt.Fprintf(&b, "- %s\n", v.Message)
	}
	if len(unresolved) > 0 {
		fmt.Fprintf(&b, "- Recetas inexistentes: %s. Usá solo recetas del listado.\n", strings.Join(unresolved, ", "))
	}
	return b.String()
}

// progress is what changed since the previous plan.
type progress struct {
	previousWeightKg float64
	currentWeightKg  float64
	previousTargets  requirements.Result
	add              string
	remove           string
	keep             string
}

// controlPrompt extends a full plan prompt with the follow-up context.
func controlPrompt(pr progress, previousPlan string) string {
	var b strings.Builder
	b.WriteString("\n# Control del paciente\n")
	b.WriteString("Reformulá el plan completo según la evolución y los nuevos requerimientos.\n")
	fmt.Fprintf(&b, "Peso anterior: %.1f kg. Peso actual: %.1f kg. Diferencia: %+.1f kg.\n",
		pr.previousWeightKg, pr.currentWeightKg, pr.currentWeightKg-pr.previousWeightKg)
	if t := pr.previousTargets; t.DailyCalories > 0 {
		fmt.Fprintf(&b, "Requerimiento anterior: %.0f kcal, proteínas %.0f g, carbohidratos %.0f g, grasas %.0f g.\n",
			t.DailyCalories, t.ProteinG, t.CarbsG, t.FatG)
	}
	if s := strings.TrimSpace(pr.add); s != "" {
		fmt.Fprintf(&b, "Agregar: %s.\n", s)
	}
	if s := strings.TrimSpace(pr.remove); s != "" {
		fmt.Fprintf(&b, "Sacar: %s.\n", s)
	}
	if s := strings.TrimSpace(pr.keep); s != "" {
		fmt.Fprintf(&b, "Dejar: %s.\n", s)
	}
	if previousPlan != "" {
		fmt.Fprintf(&b, "\nPlan anterior:\n%s", previousPlan)
	}
	b.WriteString("\nAntes del bloque <plan> listá los cambios implementados y comparalos con los macros anteriores.\n")
	return b.String()
}

// describePlan renders stored options one per line, slots in the given order first.
func describePlan(c planvalidator.Candidate, order []string) string {
	names := make([]string, 0, len(c.Slots))
	seen := make(map[string]bool, len(c.Slots))
	for _, name := range order {
		if _, ok := c.Slots[name]; ok && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range c.Slots {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	names = append(names, rest...)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "## %s\n", name)
		for i, o := range c.Slots[name] {
			fmt.Fprintf(&b, "%d. %s: %s\n", i+1, optionLabel(o), macroLine(o))
		}
	}
	return b.String()
}

// replacementPrompt asks for a single option equivalent to current.
func replacementPrompt(slot string, option int, current planvalidator.Option, desired string, conditions []string, hint *ai.PlanHint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Reemplazá la opción %d de la comida %q manteniendo calorías y macros (±5%%).\n", option, slot)
	fmt.Fprintf(&b, "Comida actual: %s: %s\n", optionLabel(current), macroLine(current))
	if d := strings.TrimSpace(current.Description); d != "" {
		fmt.Fprintf(&b, "Descripción: %s\n", d)
	}
	if desired = strings.TrimSpace(desired); desired != "" {
		fmt.Fprintf(&b, "Nueva comida deseada: %s\n", desired)
	}
	if len(conditions) > 0 {
		fmt.Fprintf(&b, "Condiciones: %s.\n", strings.Join(conditions, ", "))
	}
	fmt.Fprintf(&b, "Devolvé exactamente 1 opción para %q en el bloque <plan> e incluí la comparación nutricional con la comida actual.\n", slot)
	for _, s := range hint.Slots {
		fmt.Fprintf(&b, "\n## %s: %.0f kcal, P %.1f g, C %.1f g, G %.1f g\n", s.Name, s.Calories, s.ProteinG, s.CarbsG, s.FatG)
		for _, r := range s.Recipes {
			fmt.Fprintf(&b, "- [%s] %s (%.0f kcal)\n", r.ID, r.Name, r.Calories)
		}
	}
	return b.String()
}

func optionLabel(o planvalidator.Option) string {
	label := strings.TrimSpace(o.Name)
	if label == "" {
		label = "Opción"
	}
	if len(o.RecipeIDs) > 0 {
		label += " [" + strings.Join(o.RecipeIDs, "] [") + "]"
	}
	return label
}

func macroLine(o planvalidator.Option) string {
	return fmt.Sprintf("%.0f kcal, P %.1f g, C %.1f g, G %.1f g", o.Calories, o.ProteinG, o.CarbsG, o.FatG)
}
