// Package report renders run summaries as Markdown and HTML generational
// account tables.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"generational_accounting/pkg/core/utils"
	"generational_accounting/pkg/models"

	"github.com/shopspring/decimal"
)

// Format prints a value with the given number of decimals. NaN and
// infinities print as "n/a".
func Format(v models.Number, places int32) string {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(f).StringFixed(places)
}

// Markdown renders one run: the liability indicators and the per-capita
// generational accounts by age band.
func Markdown(s *models.RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Generational accounts: %s\n\n", s.Scenario)
	fmt.Fprintf(&b, "Column `%s`, years %d to %d, g = %s, r = %s.\n\n",
		s.Column, s.YearMin, s.YearMax, Format(s.GrowthRate, 4), Format(s.DiscountRate, 4))

	b.WriteString("## Liability\n\n")
	b.WriteString(utils.MarkdownTable([]string{"Indicator", "Value"}, [][]string{
		{"IPL", Format(s.IPL.Value, 2)},
		{"Past generations", Format(s.IPL.Past, 2)},
		{"Future generations", Format(s.IPL.Future, 2)},
		{"Double counted", Format(s.IPL.DoubleCounted, 2)},
		{"Net wealth", Format(s.IPL.Wealth, 2)},
		{"Net spendings", Format(s.IPL.Spendings, 2)},
		{"Horizon precision", Format(s.IPL.Precision, 6)},
		{"N1 (future generations)", Format(s.Imbalance.N1, 2)},
		{"N0 (newborns)", Format(s.Imbalance.N0, 2)},
		{"N1 - N0", Format(s.Imbalance.Difference, 2)},
		{"N1 / N0", Format(s.Imbalance.Ratio, 4)},
	}))

	if len(s.AgeClasses) > 0 {
		fmt.Fprintf(&b, "\n## Per-capita accounts in %d\n\n", s.AgeClasses[0].Year)
		b.WriteString(utils.MarkdownTable([]string{"Age", "Male", "Female"}, ageRows(s)))
	}
	return b.String()
}

func ageRows(s *models.RunSummary) [][]string {
	type pair struct{ male, female models.Number }
	byAge := map[int]*pair{}
	nan := models.Number(math.NaN())
	for _, r := range s.AgeClasses {
		p, ok := byAge[r.Age]
		if !ok {
			p = &pair{male: nan, female: nan}
			byAge[r.Age] = p
		}
		if r.Sex == 0 {
			p.male = r.Value
		} else {
			p.female = r.Value
		}
	}
	ages := make([]int, 0, len(byAge))
	for a := range byAge {
		ages = append(ages, a)
	}
	sort.Ints(ages)

	rows := make([][]string, 0, len(ages))
	for _, a := range ages {
		rows = append(rows, []string{bandLabel(a, s.AgeStep), Format(byAge[a].male, 2), Format(byAge[a].female, 2)})
	}
	return rows
}

func bandLabel(age, step int) string {
	switch {
	case age >= 100:
		return "100+"
	case step <= 1:
		return fmt.Sprint(age)
	}
	return fmt.Sprintf("%d-%d", age, min(age+step-1, 99))
}

// ComparisonMarkdown renders a baseline and an alternate run side by side.
func ComparisonMarkdown(c *models.Comparison) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s vs %s\n\n", c.Alternate.Scenario, c.Baseline.Scenario)
	b.WriteString(utils.MarkdownTable([]string{"Indicator", c.Baseline.Scenario, c.Alternate.Scenario, "Change"}, [][]string{
		{"IPL", Format(c.Baseline.IPL.Value, 2), Format(c.Alternate.IPL.Value, 2), Format(c.IPLDelta, 2)},
		{"N1", Format(c.Baseline.Imbalance.N1, 2), Format(c.Alternate.Imbalance.N1, 2), Format(c.N1Delta, 2)},
	}))
	b.WriteString("\n")
	b.WriteString(Markdown(c.Baseline))
	b.WriteString("\n")
	b.WriteString(Markdown(c.Alternate))
	return b.String()
}

// HTML renders a Markdown report.
func HTML(markdown string) (string, error) {
	return utils.RenderHTML(markdown)
}
