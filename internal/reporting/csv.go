package reporting

import (
	"fmt"
	"strings"
)

// RenderWellsCSV renders the per-well results table as a CSV string.
func RenderWellsCSV(rows []WellRow) string {
	var sb strings.Builder

	sb.WriteString("well_id,region,cuenca,direction,sen_slope_m_yr,p_value,current_level_m,projected_2030_m\n")

	for _, r := range rows {
		projected := ""
		if r.HasProjection {
			projected = fmt.Sprintf("%.6f", r.Projected2030)
		}
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%.6f,%.6g,%.6f,%s\n",
			r.WellID,
			r.Region,
			r.Cuenca,
			r.Direction,
			r.SenSlope,
			r.PValue,
			r.CurrentLevel,
			projected,
		))
	}

	return sb.String()
}

// RenderSummariesCSV renders the grouped summaries as a CSV string.
func RenderSummariesCSV(sections []LevelSection) string {
	var sb strings.Builder

	sb.WriteString("group_level,group_key,well_count,declining_count,fraction_declining,")
	sb.WriteString("mean_decline_rate_m_yr,projected_level_2030_m,projected_well_count,excluded_wells,critical\n")

	for _, section := range sections {
		for _, s := range section.Summaries {
			sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%.6f,%.6f,%.6f,%d,%d,%t\n",
				s.GroupLevel,
				s.GroupKey,
				s.WellCount,
				s.DecliningCount,
				s.FractionDeclining,
				s.MeanDeclineRate,
				s.ProjectedLevel2030,
				s.ProjectedWellCount,
				s.ExcludedWells,
				s.Critical,
			))
		}
	}

	return sb.String()
}
