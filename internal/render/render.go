// Package render writes audit reports, metrics tables and diversity profiles
// as JSON, YAML, Markdown or HTML.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"rankfair/domain/classification"
	"rankfair/domain/ranking"
	"rankfair/domain/verdict"
	"rankfair/internal/errors"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"gopkg.in/yaml.v3"
)

// Format selects an output encoding
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat accepts json, yaml/yml, markdown/md and html
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", errors.InvalidInput("unknown output format %q", s)
	}
}

// MetricsView is a metrics table together with its bias counts
type MetricsView struct {
	Table      *classification.MetricsTable `json:"table" yaml:"table"`
	BiasCounts map[string]int               `json:"bias_counts" yaml:"bias_counts"`
}

// Report writes an audit report
func Report(w io.Writer, report *verdict.Report, format Format) error {
	return write(w, report, format, "Fairness audit", func(b *strings.Builder) { reportMarkdown(b, report) })
}

// Metrics writes a classification fairness table
func Metrics(w io.Writer, view MetricsView, format Format) error {
	return write(w, view, format, "Classification fairness", func(b *strings.Builder) { metricsMarkdown(b, view) })
}

// Diversity writes a diversity profile
func Diversity(w io.Writer, profile *ranking.DiversityProfile, format Format) error {
	return write(w, profile, format, "Diversity", func(b *strings.Builder) { diversityMarkdown(b, profile) })
}

// Stability writes a stability result
func Stability(w io.Writer, res *verdict.StabilityResult, thresholds verdict.Thresholds, format Format) error {
	return write(w, res, format, "Stability", func(b *strings.Builder) {
		fmt.Fprintf(b, "# Stability\n\n| Records | Slope | Stable |\n|---|---|---|\n| %d | %s | %s |\n",
			res.N, num(res.Slope), yesNo(thresholds.IsStable(res.Slope)))
	})
}

func write(w io.Writer, v interface{}, format Format, title string, md func(*strings.Builder)) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case FormatMarkdown:
		var b strings.Builder
		md(&b)
		_, err := io.WriteString(w, b.String())
		return err
	case FormatHTML:
		var b strings.Builder
		md(&b)
		_, err := w.Write(toHTML(b.String(), title))
		return err
	default:
		return errors.InvalidInput("unknown output format %q", format)
	}
}

func toHTML(md, title string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	// dataset names and group values come from callers; raw HTML in them is dropped
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage | html.SkipHTML | html.Safelink,
		Title: title,
	})
	return markdown.ToHTML([]byte(md), p, renderer)
}

func reportMarkdown(b *strings.Builder, r *verdict.Report) {
	name := r.DatasetName
	if name == "" {
		name = r.DatasetHash.Short()
	}
	fmt.Fprintf(b, "# Fairness audit: %s\n\n", name)
	fmt.Fprintf(b, "- Report: `%s`\n", r.ID)
	fmt.Fprintf(b, "- Score column: `%s`\n", r.ScoreColumn)
	fmt.Fprintf(b, "- Protected group: `%s = %s` (%d of %d, base rate %s)\n",
		r.Group.Attribute, r.Group.Value, r.Rates.ProN, r.Rates.TotalN, num(r.Rates.ProProb))
	fmt.Fprintf(b, "- Alternative: protected group %s\n", r.Alternative)
	fmt.Fprintf(b, "- Seed: %d\n\n", r.Seed)

	b.WriteString("## Diagnostics\n\n| Test | Statistic | p-value | Fair |\n|---|---|---|---|\n")
	if rp := r.RankProbability; rp != nil {
		stat := fmt.Sprintf("top-%d, alpha %s", rp.TopK, num(rp.AdjustedAlpha))
		if rp.FailPosition != nil {
			stat += fmt.Sprintf(", fails at %d", *rp.FailPosition)
		}
		fmt.Fprintf(b, "| Rank probability | %s | %s | %s |\n", stat, num(rp.PValue), yesNo(r.Summary.RankFair))
	}
	if pw := r.Pairwise; pw != nil {
		fmt.Fprintf(b, "| Pairwise simulation | %d pairs, null mean %s over %d runs | %s | %s |\n",
			pw.ObservedPairs, num(pw.Null.Mean), pw.Runs, num(pw.PValue), yesNo(r.Summary.PairwiseFair))
	}
	if pr := r.Proportion; pr != nil {
		fmt.Fprintf(b, "| Two-proportion z-test | z = %s (%d/%d in top-%d) | %s | %s |\n",
			num(pr.Z), pr.ProK, pr.UnproK, pr.TopK, num(pr.PValue), yesNo(r.Summary.ProportionFair))
	}
	if st := r.Stability; st != nil {
		fmt.Fprintf(b, "\n## Stability\n\nScore slope %s over %d records: %s.\n", num(st.Slope), st.N, stableWord(r.Summary.Stable))
	}
	if r.Diversity != nil {
		b.WriteString("\n")
		diversityMarkdown(b, r.Diversity)
	}
}

func diversityMarkdown(b *strings.Builder, p *ranking.DiversityProfile) {
	fmt.Fprintf(b, "## Diversity of `%s` in the top %d\n\n| Value | Top count | Top share | Overall count | Overall share |\n|---|---|---|---|---|\n",
		p.Attribute, p.TopN)
	for _, s := range p.Shares {
		fmt.Fprintf(b, "| %s | %d | %s | %d | %s |\n", s.Value, s.TopCount, num(s.TopShare), s.AllCount, num(s.AllShare))
	}
}

func metricsMarkdown(b *strings.Builder, view MetricsView) {
	b.WriteString("# Classification fairness\n\n| Attribute |")
	for _, c := range classification.Columns {
		fmt.Fprintf(b, " %s |", c)
	}
	b.WriteString(" Biased metrics |\n|---|---|---|---|---|---|---|\n")
	for _, row := range view.Table.Rows {
		fmt.Fprintf(b, "| %s |", row.Name)
		for _, v := range row.Values {
			fmt.Fprintf(b, " %s |", num(v))
		}
		if count, ok := view.BiasCounts[row.Name]; ok {
			fmt.Fprintf(b, " %d |\n", count)
		} else {
			b.WriteString(" - |\n")
		}
	}
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4g", v)
}

func yesNo(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}

func stableWord(ok bool) string {
	if ok {
		return "stable"
	}
	return "flat"
}
