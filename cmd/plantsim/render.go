package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/talgya/tokamak-sim/internal/display"
	"github.com/talgya/tokamak-sim/internal/engine"
	"github.com/talgya/tokamak-sim/internal/plant"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F25D94"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle = lipgloss.NewStyle().Bold(true)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)

	levelStyles = map[display.Level]lipgloss.Style{
		display.LevelOK:      lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E")),
		display.LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("#EAB308")),
		display.LevelOver:    lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")),
	}
)

const barWidth = 24

func bar(fill float64) string {
	n := int(fill*barWidth + 0.5)
	return strings.Repeat("█", n) + strings.Repeat("░", barWidth-n)
}

// renderResult draws the output panel, gauges and plasma limits.
func renderResult(pt plant.Type, r engine.Result) string {
	d := display.Build(r)

	groups := make([]string, 0, len(d.Panel))
	for _, g := range d.Panel {
		var b strings.Builder
		for i, row := range g {
			if i > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "%s %s", labelStyle.Render(fmt.Sprintf("%-20s", row.Label+":")), valueStyle.Render(row.Text))
		}
		groups = append(groups, boxStyle.Render(b.String()))
	}
	panel := lipgloss.JoinHorizontal(lipgloss.Top, groups...)

	var gauges strings.Builder
	for _, g := range d.Gauges {
		fmt.Fprintf(&gauges, "%-16s %s %s\n", g.Label, bar(g.Fraction), valueStyle.Render(g.Text))
	}

	var limits strings.Builder
	for _, l := range d.Limits {
		style := levelStyles[l.Level]
		fmt.Fprintf(&limits, "%-16s %s %s\n", l.Label, style.Render(bar(l.Fill())), style.Render(fmt.Sprintf("%.2f%%", l.Percent)))
	}

	plasma := lipgloss.NewStyle().Foreground(lipgloss.Color(d.Color)).Render("●")
	header := titleStyle.Render(fmt.Sprintf("PLANT OUTPUT INFO  %s", pt)) + "  " +
		plasma + " " + strings.Join(d.Shape, "  ")

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		panel,
		titleStyle.Render("GAUGES"),
		strings.TrimRight(gauges.String(), "\n"),
		titleStyle.Render("PLASMA LIMITS")+"  "+labelStyle.Render("boundary: Diverted → Limited"),
		strings.TrimRight(limits.String(), "\n"),
	)
}

// mw formats a power figure with thousands separators.
func mw(v float64) string {
	return humanize.CommafWithDigits(v, 1) + " MW"
}

// renderSweep draws one line per sweep point.
func renderSweep(param string, points []sweepPoint) string {
	var b strings.Builder
	fmt.Fprintln(&b, titleStyle.Render(fmt.Sprintf("%-10s %14s %14s %14s %8s %8s %6s", param, "Pfus", "P_e", "P_e_in", "n/n_GW", "Q", "color")))
	for _, p := range points {
		fmt.Fprintf(&b, "%-10.4g %14s %14s %14s %8.3f %8.2f %6d\n",
			p.Value, mw(p.Result.Fusion), mw(p.Result.ElecNet), mw(p.Result.ElecIn),
			p.Result.Greenwald, display.Gain(p.Result), p.Result.ColorIndex)
	}
	fmt.Fprintf(&b, "%s points", humanize.Comma(int64(len(points))))
	return b.String()
}
