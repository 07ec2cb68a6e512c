package reports

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/fdg312/nutriplan/internal/mealplans"
	"github.com/fdg312/nutriplan/internal/nutrition"
	"github.com/fdg312/nutriplan/internal/planvalidator"
)

// Generator renders stored meal plans as PDF or CSV.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Render returns the report bytes for a plan in the given format.
func (g *Generator) Render(plan *mealplans.MealPlanDTO, format string) ([]byte, error) {
	var req *nutrition.RequirementsReport
	if len(plan.Requirements) > 0 {
		req = &nutrition.RequirementsReport{}
		if err := json.Unmarshal(plan.Requirements, req); err != nil {
			return nil, fmt.Errorf("decode requirements: %w", err)
		}
	}

	switch format {
	case FormatPDF:
		return g.renderPDF(plan, req)
	case FormatCSV:
		return g.renderCSV(plan, req)
	default:
		return nil, ErrInvalidFormat
	}
}

// slotOrder follows the distribution order; slots it does not know come last, sorted.
func slotOrder(plan *planvalidator.Candidate, req *nutrition.RequirementsReport) []string {
	seen := make(map[string]bool, len(plan.Slots))
	var out []string
	if req != nil {
		for _, s := range req.Distribution.Slots {
			if _, ok := plan.Slots[s.Name]; ok && !seen[s.Name] {
				seen[s.Name] = true
				out = append(out, s.Name)
			}
		}
	}
	var rest []string
	for name := range plan.Slots {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func (g *Generator) renderCSV(plan *mealplans.MealPlanDTO, req *nutrition.RequirementsReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"slot", "option", "name", "recipe_ids", "calories", "protein_g", "carbs_g", "fat_g", "description"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	if plan.Plan != nil {
		for _, slot := range slotOrder(plan.Plan, req) {
			for i, o := range plan.Plan.Slots[slot] {
				row := []string{
					slot,
					strconv.Itoa(i + 1),
					o.Name,
					strings.Join(o.RecipeIDs, " "),
					formatNum(o.Calories),
					formatNum(o.ProteinG),
					formatNum(o.CarbsG),
					formatNum(o.FatG),
					o.Description,
				}
				if err := w.Write(row); err != nil {
					return nil, err
				}
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) renderPDF(plan *mealplans.MealPlanDTO, req *nutrition.RequirementsReport) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	// core fonts are cp1252; the translator keeps Spanish accents readable
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	font := "Helvetica"

	pdf.SetTitle("Plan de alimentación", true)
	pdf.AddPage()

	pdf.SetFont(font, "B", 16)
	pdf.Cell(0, 10, tr("Plan de alimentación"))
	pdf.Ln(10)

	pdf.SetFont(font, "", 10)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Generado: %s   Estado: %s   Intentos: %d",
		plan.CreatedAt.Format("2006-01-02"), plan.Status, plan.Attempts)))
	pdf.Ln(8)

	if req != nil {
		t := req.Targets
		pdf.SetFont(font, "B", 12)
		pdf.Cell(0, 8, tr("Requerimientos diarios"))
		pdf.Ln(7)
		pdf.SetFont(font, "", 10)
		pdf.Cell(0, 6, tr(fmt.Sprintf("%.0f kcal   Proteínas %.0f g   Carbohidratos %.0f g   Grasas %.0f g",
			t.DailyCalories, t.ProteinG, t.CarbsG, t.FatG)))
		pdf.Ln(6)
		if len(t.Conditions) > 0 {
			pdf.MultiCell(0, 5, tr("Condiciones: "+strings.Join(t.Conditions, ", ")), "", "L", false)
		}
		for _, c := range req.Considerations {
			pdf.MultiCell(0, 5, tr("- "+c), "", "L", false)
		}
		pdf.Ln(4)
	}

	if plan.Plan != nil {
		for _, slot := range slotOrder(plan.Plan, req) {
			g.drawSlotTable(pdf, tr, font, slot, plan.Plan.Slots[slot])
		}
	} else {
		pdf.SetFont(font, "I", 10)
		pdf.Cell(0, 6, tr("No se pudo obtener un plan válido."))
		pdf.Ln(8)
	}

	if len(plan.Violations) > 0 {
		pdf.SetFont(font, "B", 12)
		pdf.Cell(0, 8, tr("Observaciones"))
		pdf.Ln(7)
		pdf.SetFont(font, "", 9)
		for _, v := range plan.Violations {
			pdf.MultiCell(0, 5, tr("- "+v.Message), "", "L", false)
		}
		pdf.Ln(4)
	}

	if len(plan.Recipes) > 0 {
		pdf.AddPage()
		pdf.SetFont(font, "B", 12)
		pdf.Cell(0, 8, tr("Recetas"))
		pdf.Ln(8)
		for _, r := range plan.Recipes {
			pdf.SetFont(font, "B", 10)
			pdf.MultiCell(0, 5, tr(fmt.Sprintf("[%s] %s (%.0f kcal)", r.ID, r.Name, r.Calories)), "", "L", false)
			pdf.SetFont(font, "", 9)
			items := make([]string, 0, len(r.Ingredients))
			for _, ing := range r.Ingredients {
				items = append(items, strings.TrimSpace(ing.Quantity+" "+ing.Item))
			}
			pdf.MultiCell(0, 5, tr("Ingredientes: "+strings.Join(items, ", ")), "", "L", false)
			if r.Preparation != "" {
				pdf.MultiCell(0, 5, tr("Preparación: "+r.Preparation), "", "L", false)
			}
			pdf.Ln(3)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) drawSlotTable(pdf *gofpdf.Fpdf, tr func(string) string, font, slot string, opts []planvalidator.Option) {
	pdf.SetFont(font, "B", 12)
	pdf.Cell(0, 8, tr(capitalize(slot)))
	pdf.Ln(8)

	pdf.SetFont(font, "B", 8)
	pdf.CellFormat(10, 6, "#", "1", 0, "C", false, 0, "")
	pdf.CellFormat(80, 6, tr("Opción"), "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "kcal", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "P (g)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "C (g)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "G (g)", "1", 1, "C", false, 0, "")

	pdf.SetFont(font, "", 8)
	for i, o := range opts {
		name := o.Name
		if len(o.RecipeIDs) > 0 {
			name += " [" + strings.Join(o.RecipeIDs, ", ") + "]"
		}
		if r := []rune(name); len(r) > 60 {
			name = string(r[:57]) + "..."
		}
		pdf.CellFormat(10, 6, strconv.Itoa(i+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(80, 6, tr(name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, formatNum(o.Calories), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, formatNum(o.ProteinG), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, formatNum(o.CarbsG), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, formatNum(o.FatG), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(4)
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
