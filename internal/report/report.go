// Package report renders a finished run as Markdown and HTML.
package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"mcsim/domain/run"
	"mcsim/internal/compiler"
)

const histogramWidth = 40

// Markdown returns the run report as Markdown.
func Markdown(result *run.Result) []byte {
	m := result.Manifest
	var b strings.Builder

	title := m.Name
	if title == "" {
		title = "Run " + m.RunID.String()
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Run | `%s` |\n", m.RunID)
	fmt.Fprintf(&b, "| Fingerprint | `%s` |\n", m.Fingerprint.Short())
	fmt.Fprintf(&b, "| Lanes | %d |\n", m.Lanes)
	fmt.Fprintf(&b, "| Trials per lane | %d |\n", m.TrialsPerLane)
	fmt.Fprintf(&b, "| Seed | %d |\n", m.Seed)
	fmt.Fprintf(&b, "| Code version | %s |\n", m.CodeVersion)
	if result.Duration > 0 {
		fmt.Fprintf(&b, "| Duration | %v |\n", result.Duration)
	}
	b.WriteString("\n## Model\n\n")
	fmt.Fprintf(&b, "```\n%s\n```\n\n", m.Formula)

	b.WriteString("| Input | Family | Param 1 | Param 2 | Param 3 |\n|---|---|---|---|---|\n")
	names := make([]string, len(m.Inputs))
	for i, in := range m.Inputs {
		names[i] = in.Name
		fmt.Fprintf(&b, "| %s | %s | %g | %g | %g |\n",
			in.Name, in.Family, in.Params.Param1, in.Params.Param2, in.Params.Param3)
	}

	if program, err := compiler.Compile(m.Formula, names); err == nil {
		fmt.Fprintf(&b, "\n### Program (%d instructions, stack depth %d)\n\n```\n", program.Len(), program.MaxDepth())
		b.WriteString(strings.Join(program.Disassemble(), "\n"))
		b.WriteString("\n```\n")
	}

	if s := result.Summary; s != nil {
		b.WriteString("\n## Outputs\n\n| Statistic | Value |\n|---|---|\n")
		rows := []struct {
			name  string
			value float64
		}{
			{"Mean", s.Mean}, {"Std dev", s.StdDev}, {"Min", s.Min},
			{"P1", s.Percentiles.P1}, {"P5", s.Percentiles.P5}, {"P25", s.Percentiles.P25},
			{"Median", s.Median},
			{"P75", s.Percentiles.P75}, {"P95", s.Percentiles.P95}, {"P99", s.Percentiles.P99},
			{"Max", s.Max}, {"Skewness", s.Skewness}, {"Excess kurtosis", s.Kurtosis},
		}
		fmt.Fprintf(&b, "| Trials | %d |\n", s.Count)
		for _, r := range rows {
			fmt.Fprintf(&b, "| %s | %s |\n", r.name, formatFloat(r.value))
		}
		fmt.Fprintf(&b, "| Mean 95%% CI | [%s, %s] |\n", formatFloat(s.MeanCI95.Lower), formatFloat(s.MeanCI95.Upper))

		if s.Finite < s.Count {
			fmt.Fprintf(&b, "\n> %d of %d outputs were not finite (NaN %d, +Inf %d, -Inf %d) and are excluded above.\n",
				s.Count-s.Finite, s.Count, s.NaN, s.PosInf, s.NegInf)
		}

		if h := s.Histogram; h.Total() > 0 {
			b.WriteString("\n## Distribution\n\n```\n")
			peak := h.Counts[h.Mode()]
			for i, c := range h.Counts {
				bar := strings.Repeat("#", c*histogramWidth/peak)
				fmt.Fprintf(&b, "%12s | %-*s %d\n", formatFloat(h.BinCenter(i)), histogramWidth, bar, c)
			}
			b.WriteString("```\n")
		}
	}
	return []byte(b.String())
}

// HTML renders the Markdown report as a complete HTML page.
func HTML(result *run.Result) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: "Simulation " + result.Manifest.RunID.String(),
	})
	return markdown.ToHTML(Markdown(result), p, renderer)
}

// WriteFiles writes <run id>.md and <run id>.html into dir and returns their paths.
func WriteFiles(dir string, result *run.Result) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create report directory: %w", err)
	}
	base := filepath.Join(dir, result.Manifest.RunID.String())
	mdPath, htmlPath := base+".md", base+".html"
	if err := os.WriteFile(mdPath, Markdown(result), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write markdown report: %w", err)
	}
	if err := os.WriteFile(htmlPath, HTML(result), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write html report: %w", err)
	}
	return mdPath, htmlPath, nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.6g", v)
}
