package report

import (
	"math"
	"testing"
	"time"

	"reportbot/internal/domain"
)

func TestFormatInt(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567.4, "1,234,567"},
		{-1500, "-1,500"},
		{2.5, "2"},
		{3.5, "4"},
		{math.NaN(), ""},
	}
	for _, tt := range tests {
		if got := FormatInt(tt.in); got != tt.want {
			t.Errorf("FormatInt(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.0%"},
		{12, "12.0%"},
		{98.76, "98.8%"},
		{1234.5, "1,234.5%"},
		{-2.25, "-2.2%"},
		{math.Inf(1), ""},
	}
	for _, tt := range tests {
		if got := FormatPercent(tt.in); got != tt.want {
			t.Errorf("FormatPercent(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatSelectsColumns(t *testing.T) {
	tbl := domain.Table{
		Columns: []string{"Manager", "GMV Actual", "%GMV vs KPI", "Note"},
		Rows: [][]any{
			{"An", float64(1500000), 87.25, "ok"},
			{"Binh", nil, "", "1000"},
			{"Chi", "n/a", "95", nil},
		},
	}

	got := Format(tbl)

	want := [][]any{
		{"An", "1,500,000", "87.2%", "ok"},
		{"Binh", "", "", "1000"},
		{"Chi", "n/a", "95.0%", nil},
	}
	for i := range want {
		for j := range want[i] {
			if got.Rows[i][j] != want[i][j] {
				t.Errorf("cell (%d,%d) = %#v, want %#v", i, j, got.Rows[i][j], want[i][j])
			}
		}
	}
	if tbl.Rows[0][1] != float64(1500000) {
		t.Error("Format modified its input")
	}
}

func TestPivotKPI(t *testing.T) {
	raw := domain.Table{
		Columns: []string{"month", "country", "realsales", "gmv"},
		Rows: [][]any{
			{"2025-09-01", "VN", float64(100), float64(200)},
			{"2025-09-01", "TH", "50", "70"},
			{"2025-09-01", "VN", float64(10), float64(20)},
			{"2025-08-01", "VN", float64(999), float64(999)},
		},
	}

	got, err := PivotKPI(raw, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("PivotKPI: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("rows = %d, want 2", got.Len())
	}
	if got.String(0, ColCountry) != "TH" || got.String(1, ColCountry) != "VN" {
		t.Errorf("countries not sorted: %v", got.Rows)
	}
	if v, _ := got.Float(1, ColRealSales); v != 110 {
		t.Errorf("VN realsales = %v, want 110", v)
	}
	if v, _ := got.Float(1, ColGMV); v != 220 {
		t.Errorf("VN gmv = %v, want 220", v)
	}

	if _, err := PivotKPI(domain.Table{Columns: []string{"country"}}, time.Now()); err == nil {
		t.Error("expected error for missing columns")
	}
}

func TestAchievementVsTarget(t *testing.T) {
	actual := domain.Table{
		Columns: []string{"country", "realsales", "gmv"},
		Rows: [][]any{
			{"TH", float64(400), float64(900)},
			{"VN", float64(500), float64(1200)},
			{"SG", float64(10), float64(10)},
		},
	}
	target := domain.Table{
		Columns: []string{"country", "realsales", "gmv"},
		Rows: [][]any{
			{"TH", "800", "1,000"},
			{"VN", "500", "1,000"},
		},
	}

	got, err := AchievementVsTarget(actual, target)
	if err != nil {
		t.Fatalf("AchievementVsTarget: %v", err)
	}
	if got.Len() != 4 {
		t.Fatalf("rows = %d, want 4 (3 countries + total)", got.Len())
	}

	checks := []struct {
		row  int
		col  string
		want string
	}{
		{0, DisplayGMVAchievement, "90.0%"},
		{0, DisplayGMVGap, "-100"},
		{0, DisplayRSAchievement, "50.0%"},
		{0, DisplayRSGap, "-400"},
		{1, DisplayGMVAchievement, "120.0%"},
		{1, DisplayGMVActual, "1,200"},
		{2, DisplayGMVAchievement, "0.0%"},
		{2, DisplayGMVGap, "0"},
		{3, DisplayCountry, TotalLabel},
		{3, DisplayGMVActual, "2,110"},
		{3, DisplayGMVAchievement, "105.5%"},
		{3, DisplayGMVGap, "100"},
		{3, DisplayRSActual, "910"},
		{3, DisplayRSAchievement, "70.0%"},
	}
	for _, c := range checks {
		if s := got.String(c.row, c.col); s != c.want {
			t.Errorf("row %d %q = %q, want %q", c.row, c.col, s, c.want)
		}
	}
}

func TestAchievementTotalWithoutTargets(t *testing.T) {
	actual := domain.Table{Columns: []string{"country", "realsales", "gmv"}, Rows: [][]any{{"VN", float64(1), float64(2)}}}
	target := domain.Table{Columns: []string{"country", "realsales", "gmv"}}

	got, err := AchievementVsTarget(actual, target)
	if err != nil {
		t.Fatalf("AchievementVsTarget: %v", err)
	}
	if s := got.String(1, DisplayGMVAchievement); s != "" {
		t.Errorf("total achievement without target = %q, want empty", s)
	}
}

func TestProcessor(t *testing.T) {
	raw := map[domain.Dimension]domain.Table{
		domain.DimensionCountry: {
			Columns: []string{"month", "country", "realsales", "gmv"},
			Rows:    [][]any{{"2025-09-01", "VN", float64(50), float64(100)}},
		},
		domain.DimensionManager: {
			Columns: []string{"Manager", "GMV Actual"},
			Rows:    [][]any{{"An", float64(12345)}},
		},
		domain.DimensionProductLine: {
			Columns: []string{"product_line", "gmv"},
			Rows:    [][]any{{"Beauty", float64(7)}},
		},
	}
	runDate := time.Date(2025, 9, 15, 9, 0, 0, 0, time.UTC)
	p := NewProcessor(nil)

	out, err := p.Process(raw, nil, runDate)
	if err != nil {
		t.Fatalf("Process without targets: %v", err)
	}
	if got := out[domain.DimensionManager].String(0, "GMV Actual"); got != "12,345" {
		t.Errorf("manager GMV Actual = %q, want 12,345", got)
	}
	if got := out[domain.DimensionProductLine].Rows[0][1]; got != float64(7) {
		t.Errorf("product line should pass through raw, got %#v", got)
	}
	if out[domain.DimensionCountry].Index("month") < 0 {
		t.Error("country table without targets should keep its columns")
	}

	targets := domain.Table{Columns: []string{"country", "realsales", "gmv"}, Rows: [][]any{{"VN", "100", "200"}}}
	out, err = p.Process(raw, &targets, runDate)
	if err != nil {
		t.Fatalf("Process with targets: %v", err)
	}
	if got := out[domain.DimensionCountry].String(0, DisplayGMVAchievement); got != "50.0%" {
		t.Errorf("country achievement = %q, want 50.0%%", got)
	}

	delete(raw, domain.DimensionManager)
	if _, err := p.Process(raw, nil, runDate); err == nil {
		t.Error("expected error when manager data is missing")
	}
}
