package report

import (
	"fmt"
	"strings"

	"hdmed/models"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// RenderMarkdown formats an estimation report as a markdown document with
// one effect table per exposure category.
func RenderMarkdown(report *models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Mediation estimation report\n\n")
	fmt.Fprintf(&b, "- Run: `%s`\n", report.RunID)
	fmt.Fprintf(&b, "- Created: %s\n", report.CreatedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "- Sample size: %d\n", report.SampleSize)
	fmt.Fprintf(&b, "- Outcome: %s\n", report.OutcomeKind)
	fmt.Fprintf(&b, "- Trim threshold: %g, normalized: %v, few-splits: %v\n\n",
		report.Config.Trim, report.Config.Normalized, report.Config.FewSplits)

	for _, category := range report.Categories {
		fmt.Fprintf(&b, "## Category %d vs 0\n\n", category.Category)
		fmt.Fprintf(&b, "Retained %d rows, trimmed %d.\n\n", category.Retained, category.Trimmed)
		b.WriteString("| Effect | Estimate | Std. err. | p-value | 95% CI |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, effect := range category.Effects {
			fmt.Fprintf(&b, "| %s | %.4f | %.4f | %.4g | [%.4f, %.4f] |\n",
				effect.Contrast, effect.Estimate, effect.StdErr, effect.PValue,
				effect.CILower, effect.CIUpper)
		}
		b.WriteString("\n")

		if category.Diagnostics != nil {
			d := category.Diagnostics
			fmt.Fprintf(&b, "Propensity P(Z=%d|X): median %.3f, range [%.3f, %.3f]; trim rate %.1f%%.\n\n",
				category.Category, d.MarginalTreated.Median, d.MarginalTreated.Min,
				d.MarginalTreated.Max, 100*d.TrimRate)
		}
	}
	return b.String()
}

// RenderHTML converts the markdown report to an HTML fragment for the
// web surface.
func RenderHTML(report *models.Report) []byte {
	md := []byte(RenderMarkdown(report))
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.ToHTML(md, p, renderer)
}
