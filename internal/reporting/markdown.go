package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders the report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Groundwater Trend Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Wells: %d analyzed | %d valid | %d excluded\n\n",
		r.WellCount, r.ValidWells, r.InvalidWells))

	// National summary
	sb.WriteString("## National Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Declining Wells | %d (%.1f%%) |\n",
		r.National.DecliningWells, 100*r.National.FractionDeclining))
	sb.WriteString(fmt.Sprintf("| Mean Decline Rate | %.3f m/yr |\n", r.National.MeanDeclineRate))
	sb.WriteString(fmt.Sprintf("| Mean Projected Depth 2030 | %.2f m |\n", r.National.MeanProjected2030))
	sb.WriteString(fmt.Sprintf("| Wells With 2030 Projection | %d |\n", r.National.ProjectedWells))
	sb.WriteString(fmt.Sprintf("| Critical Groups | %d |\n", r.National.CriticalGroupCount))
	sb.WriteString("\n")

	// Group summaries per level
	for _, section := range r.LevelSummaries {
		sb.WriteString(fmt.Sprintf("## Summary by %s\n\n", section.Level))
		sb.WriteString("| Group | Wells | Declining | Fraction | Rate (m/yr) | 2030 Depth (m) | Excluded | Critical |\n")
		sb.WriteString("|-------|-------|-----------|----------|-------------|----------------|----------|----------|\n")
		for _, s := range section.Summaries {
			critical := ""
			if s.Critical {
				critical = "CRITICAL"
			}
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.2f | %.3f | %.2f | %d | %s |\n",
				s.GroupKey, s.WellCount, s.DecliningCount, s.FractionDeclining,
				s.MeanDeclineRate, s.ProjectedLevel2030, s.ExcludedWells, critical))
		}
		sb.WriteString("\n")
	}

	// Per-well table
	sb.WriteString("## Wells\n\n")
	if len(r.Wells) > 0 {
		sb.WriteString("| Well | Region | Cuenca | Direction | Sen Slope (m/yr) | p-value | Current (m) | 2030 (m) |\n")
		sb.WriteString("|------|--------|--------|-----------|------------------|---------|-------------|----------|\n")
		for _, w := range r.Wells {
			projected := "n/a"
			if w.HasProjection {
				projected = fmt.Sprintf("%.2f", w.Projected2030)
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %.3f | %.3g | %.2f | %s |\n",
				w.WellID, w.Region, w.Cuenca, w.Direction, w.SenSlope, w.PValue,
				w.CurrentLevel, projected))
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("No valid wells.\n\n")
	}

	// Exclusions
	if len(r.Excluded) > 0 {
		sb.WriteString("## Excluded Wells\n\n")
		for _, e := range r.Excluded {
			sb.WriteString(fmt.Sprintf("- %s (%s): %s\n", e.WellID, e.Region, e.Reason))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
