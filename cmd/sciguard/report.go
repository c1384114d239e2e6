package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/YuminosukeSato/sciguard/checks"
	"github.com/YuminosukeSato/sciguard/checks/weaksegments"
	"github.com/YuminosukeSato/sciguard/partition"
)

// printReport writes the ranked segments, the condition results and the saved
// panel files. Colors are used only when out is a terminal.
func printReport(out io.Writer, result *checks.Result[weaksegments.Value], saved []string) error {
	r := lipgloss.NewRenderer(out)
	bold := r.NewStyle().Bold(true)
	muted := r.NewStyle().Foreground(lipgloss.Color("241"))
	cell := r.NewStyle().Padding(0, 1)

	v := result.Value
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", bold.Render(result.CheckName), muted.Render("run "+result.RunID.String()))
	fmt.Fprintf(&b, "Average %s score on sampled data: %.3f\n\n", v.ScorerName, v.AvgScore)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(muted).
		StyleFunc(func(_, _ int) lipgloss.Style { return cell }).
		Headers("#", "Feature 1", "Segment 1", "Feature 2", "Segment 2", "Score", "Data")
	for i, s := range v.Segments {
		t.Row(
			fmt.Sprint(i+1),
			s.Feature1, describeSegment(s.Feature1Range, s.Feature1Categories),
			s.Feature2, describeSegment(s.Feature2Range, s.Feature2Categories),
			fmt.Sprintf("%.3f", s.Score),
			fmt.Sprintf("%.1f%%", 100*s.DataFraction),
		)
	}
	b.WriteString(t.String())
	b.WriteString("\n")

	if len(result.Conditions) > 0 {
		b.WriteString("\n" + bold.Render("Conditions") + "\n")
	}
	for _, c := range result.Conditions {
		fmt.Fprintf(&b, "%s %s\n", categoryStyle(r, c.Category).Render("["+string(c.Category)+"]"), c.Name)
		if c.Details != "" {
			fmt.Fprintf(&b, "    %s\n", c.Details)
		}
	}

	if len(saved) > 0 {
		b.WriteString("\n" + bold.Render("Heatmaps") + "\n")
		for _, p := range saved {
			fmt.Fprintf(&b, "  %s\n", p)
		}
	}

	_, err := io.WriteString(out, b.String())
	return err
}

func categoryStyle(r *lipgloss.Renderer, c checks.ConditionCategory) lipgloss.Style {
	s := r.NewStyle().Bold(true)
	switch c {
	case checks.CategoryPass:
		return s.Foreground(lipgloss.Color("2"))
	case checks.CategoryWarn:
		return s.Foreground(lipgloss.Color("3"))
	default:
		return s.Foreground(lipgloss.Color("1"))
	}
}

// describeSegment lists the categories of a categorical segment, or the range
// of a numeric one. An unconstrained feature is "any".
func describeSegment(rng partition.Range, categories []string) string {
	if len(categories) > 0 {
		return strings.Join(categories, ", ")
	}
	if rng.IsUnbounded() {
		return "any"
	}
	return fmt.Sprintf("(%.4g, %.4g]", rng.Lower, rng.Upper)
}
