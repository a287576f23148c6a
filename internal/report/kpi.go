package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"reportbot/internal/domain"
	"reportbot/internal/util"
)

// Source column names of the KPI tables.
const (
	ColCountry   = "country"
	ColMonth     = "month"
	ColGMV       = "gmv"
	ColRealSales = "realsales"
)

// Display column names of the achievement table.
const (
	DisplayCountry        = " Country "
	DisplayGMVAchievement = " %GMV vs KPI "
	DisplayGMVActual      = " GMV Actual "
	DisplayGMVGap         = " GMV Gap "
	DisplayRSAchievement  = " %RS vs KPI "
	DisplayRSActual       = " RS Actual "
	DisplayRSGap          = "  RS Gap  "
)

// TotalLabel labels the summary row.
const TotalLabel = "Total"

// PivotKPI sums realsales and gmv per country over the rows whose month
// column falls in month. Countries are sorted by name.
func PivotKPI(table domain.Table, month time.Time) (domain.Table, error) {
	if err := requireColumns(table, ColMonth, ColCountry, ColRealSales, ColGMV); err != nil {
		return domain.Table{}, err
	}

	key := util.MonthKey(month)
	type sums struct{ realsales, gmv float64 }
	byCountry := make(map[string]*sums)

	for i := range table.Rows {
		if !strings.HasPrefix(table.String(i, ColMonth), key) {
			continue
		}
		country := table.String(i, ColCountry)
		s, ok := byCountry[country]
		if !ok {
			s = &sums{}
			byCountry[country] = s
		}
		if v, ok := table.Float(i, ColRealSales); ok {
			s.realsales += v
		}
		if v, ok := table.Float(i, ColGMV); ok {
			s.gmv += v
		}
	}

	countries := make([]string, 0, len(byCountry))
	for c := range byCountry {
		countries = append(countries, c)
	}
	sort.Strings(countries)

	out := domain.Table{Columns: []string{ColCountry, ColRealSales, ColGMV}}
	for _, c := range countries {
		s := byCountry[c]
		out.Rows = append(out.Rows, []any{c, s.realsales, s.gmv})
	}
	return out, nil
}

// AchievementVsTarget joins actual and target on country, computes the
// achievement percentage and gap of gmv and realsales, appends a Total row
// and returns the formatted display table. Countries without a target get
// zero achievement and gap.
func AchievementVsTarget(actual, target domain.Table) (domain.Table, error) {
	if err := requireColumns(actual, ColCountry, ColRealSales, ColGMV); err != nil {
		return domain.Table{}, fmt.Errorf("actual: %w", err)
	}
	if err := requireColumns(target, ColCountry, ColRealSales, ColGMV); err != nil {
		return domain.Table{}, fmt.Errorf("target: %w", err)
	}

	type kpi struct{ realsales, gmv float64 }
	targets := make(map[string]kpi, target.Len())
	for i := range target.Rows {
		rs, _ := target.Float(i, ColRealSales)
		gmv, _ := target.Float(i, ColGMV)
		targets[target.String(i, ColCountry)] = kpi{realsales: rs, gmv: gmv}
	}

	out := domain.Table{Columns: []string{
		DisplayCountry, DisplayGMVAchievement, DisplayGMVActual, DisplayGMVGap,
		DisplayRSAchievement, DisplayRSActual, DisplayRSGap,
	}}

	var total struct{ gmv, gmvTarget, gmvGap, rs, rsTarget, rsGap float64 }
	for i := range actual.Rows {
		country := actual.String(i, ColCountry)
		gmv, _ := actual.Float(i, ColGMV)
		rs, _ := actual.Float(i, ColRealSales)
		t := targets[country]

		gmvAch, gmvGap := achievement(gmv, t.gmv)
		rsAch, rsGap := achievement(rs, t.realsales)

		out.Rows = append(out.Rows, []any{country, gmvAch, gmv, gmvGap, rsAch, rs, rsGap})

		total.gmv += gmv
		total.gmvTarget += t.gmv
		total.gmvGap += gmvGap
		total.rs += rs
		total.rsTarget += t.realsales
		total.rsGap += rsGap
	}

	out.Rows = append(out.Rows, []any{
		TotalLabel,
		ratio(total.gmv, total.gmvTarget), total.gmv, total.gmvGap,
		ratio(total.rs, total.rsTarget), total.rs, total.rsGap,
	})
	return Format(out), nil
}

// achievement returns actual as a percentage of target, rounded to two
// decimals, and the gap to target. Both are zero when target is zero.
func achievement(actual, target float64) (pct, gap float64) {
	if target == 0 {
		return 0, 0
	}
	return round2(actual / target * 100), actual - target
}

// ratio is achievement for the total row: nil instead of zero without target.
func ratio(actual, target float64) any {
	if target == 0 {
		return nil
	}
	return round2(actual / target * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func requireColumns(t domain.Table, cols ...string) error {
	var missing []string
	for _, c := range cols {
		if t.Index(c) < 0 {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing columns %s (have %s)", strings.Join(missing, ", "), strings.Join(t.Columns, ", "))
	}
	return nil
}
