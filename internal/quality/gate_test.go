package quality

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"reportbot/internal/domain"
	"reportbot/internal/store"
)

// memStore is an in-memory QualityStore with optional injected failures.
type memStore struct {
	records map[string]domain.QualityRecord
	history []domain.QualityRecord
	swapErr error
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]domain.QualityRecord)}
}

func (m *memStore) Get(_ context.Context, month string) (*domain.QualityRecord, error) {
	rec, ok := m.records[month]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memStore) Put(ctx context.Context, rec domain.QualityRecord) error {
	_, err := m.Swap(ctx, rec)
	return err
}

func (m *memStore) Swap(ctx context.Context, rec domain.QualityRecord) (*domain.QualityRecord, error) {
	if m.swapErr != nil {
		return nil, m.swapErr
	}
	prev, _ := m.Get(ctx, rec.MonthKey)
	m.records[rec.MonthKey] = rec
	m.history = append(m.history, rec)
	return prev, nil
}

func (m *memStore) History(context.Context, string) ([]domain.QualityRecord, error) {
	return m.history, nil
}

func (m *memStore) Clear(context.Context) (int64, error) {
	n := int64(len(m.records))
	m.records = make(map[string]domain.QualityRecord)
	m.history = nil
	return n, nil
}

func (m *memStore) Close() error { return nil }

func day(y int, mo time.Month, d int) time.Time {
	return time.Date(y, mo, d, 9, 0, 0, 0, time.UTC)
}

func baseline(t *testing.T, s store.QualityStore, month string) float64 {
	t.Helper()
	rec, err := s.Get(context.Background(), month)
	if err != nil {
		t.Fatalf("Get(%s): %v", month, err)
	}
	if rec == nil {
		t.Fatalf("no baseline recorded for %s", month)
	}
	return rec.MetricValue
}

func TestEvaluatePolicy(t *testing.T) {
	tests := []struct {
		name     string
		seed     *float64
		current  float64
		runDate  time.Time
		wantKind domain.OutcomeKind
	}{
		{"no baseline", nil, 500, day(2025, 9, 15), domain.Passed},
		{"growth", ptr(1_000_000), 1_200_000, day(2025, 9, 15), domain.Passed},
		{"decrease mid-month", ptr(1_200_000), 1_100_000, day(2025, 9, 20), domain.Failed},
		{"equal mid-month", ptr(1_200_000), 1_200_000, day(2025, 9, 20), domain.Failed},
		{"decrease on day one", ptr(1_200_000), 10, day(2025, 9, 1), domain.Passed},
		{"equal on day one", ptr(7), 7, day(2025, 9, 1), domain.Passed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMemStore()
			month := tt.runDate.Format("2006-01")
			if tt.seed != nil {
				s.records[month] = domain.QualityRecord{MonthKey: month, MetricValue: *tt.seed}
			}

			res := NewGate(s, nil).Evaluate(context.Background(), tt.current, tt.runDate)

			if res.Outcome.Kind != tt.wantKind {
				t.Errorf("outcome = %s, want %s", res.Outcome, tt.wantKind)
			}
			if tt.wantKind == domain.Failed && res.Outcome.Reason != FailureReason {
				t.Errorf("reason = %q, want %q", res.Outcome.Reason, FailureReason)
			}
			if res.HasBaseline != (tt.seed != nil) {
				t.Errorf("HasBaseline = %v, want %v", res.HasBaseline, tt.seed != nil)
			}
			if got := baseline(t, s, month); got != tt.current {
				t.Errorf("baseline after evaluate = %v, want %v", got, tt.current)
			}
		})
	}
}

func TestEvaluateIdempotenceOfOverwrite(t *testing.T) {
	s := newMemStore()
	g := NewGate(s, nil)
	ctx := context.Background()

	first := g.Evaluate(ctx, 300, day(2025, 9, 10))
	if !first.Outcome.Passed() {
		t.Fatalf("first evaluate = %s, want passed", first.Outcome)
	}
	second := g.Evaluate(ctx, 300, day(2025, 9, 10))
	if !second.Outcome.Failed() {
		t.Errorf("second identical evaluate = %s, want failed", second.Outcome)
	}
	if second.Baseline != 300 {
		t.Errorf("second compared against %v, want 300", second.Baseline)
	}

	// On day one the same repetition passes.
	s2 := newMemStore()
	g2 := NewGate(s2, nil)
	g2.Evaluate(ctx, 300, day(2025, 9, 1))
	if res := g2.Evaluate(ctx, 300, day(2025, 9, 1)); !res.Outcome.Passed() {
		t.Errorf("repeat on day one = %s, want passed", res.Outcome)
	}
}

func TestEvaluateScenarios(t *testing.T) {
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "quality.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	ctx := context.Background()
	g := NewGate(s, nil)

	if err := s.Put(ctx, domain.QualityRecord{MonthKey: "2025-09", MetricValue: 1_000_000}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// A: growth passes.
	a := g.Evaluate(ctx, 1_200_000, day(2025, 9, 15))
	if !a.Outcome.Passed() {
		t.Errorf("scenario A = %s, want passed", a.Outcome)
	}
	if got := baseline(t, s, "2025-09"); got != 1_200_000 {
		t.Errorf("scenario A baseline = %v, want 1200000", got)
	}

	// B: decrease fails and still advances the baseline.
	b := g.Evaluate(ctx, 1_100_000, day(2025, 9, 20))
	if !b.Outcome.Failed() {
		t.Errorf("scenario B = %s, want failed", b.Outcome)
	}
	if b.Baseline != 1_200_000 || b.Current != 1_100_000 {
		t.Errorf("scenario B compared %v against %v", b.Current, b.Baseline)
	}
	if got := baseline(t, s, "2025-09"); got != 1_100_000 {
		t.Errorf("scenario B baseline = %v, want 1100000", got)
	}

	// C: a new month has no baseline even if the previous month was higher.
	if err := s.Put(ctx, domain.QualityRecord{MonthKey: "2025-09", MetricValue: 5_000_000}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	c := g.Evaluate(ctx, 10_000, day(2025, 10, 1))
	if !c.Outcome.Passed() || c.HasBaseline {
		t.Errorf("scenario C = %s (has baseline %v), want passed without baseline", c.Outcome, c.HasBaseline)
	}
	if got := baseline(t, s, "2025-10"); got != 10_000 {
		t.Errorf("scenario C baseline = %v, want 10000", got)
	}
	if got := baseline(t, s, "2025-09"); got != 5_000_000 {
		t.Errorf("September baseline changed to %v", got)
	}

	history, err := s.History(ctx, "2025-09")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 4 {
		t.Errorf("September history len = %d, want 4", len(history))
	}
}

func TestEvaluateStoreFailureAborts(t *testing.T) {
	s := newMemStore()
	s.swapErr = errors.New("disk I/O error")

	res := NewGate(s, nil).Evaluate(context.Background(), 1, day(2025, 9, 15))

	if !res.Outcome.Aborted() {
		t.Fatalf("outcome = %s, want aborted", res.Outcome)
	}
	if res.Outcome.Stage != domain.StageQualityCheck {
		t.Errorf("stage = %q, want %q", res.Outcome.Stage, domain.StageQualityCheck)
	}
	if !errors.Is(res.Outcome.Cause, s.swapErr) {
		t.Errorf("cause = %v, want wrapped %v", res.Outcome.Cause, s.swapErr)
	}
}

func TestEvaluateStampsRecordTime(t *testing.T) {
	s := newMemStore()
	g := NewGate(s, nil)
	fixed := time.Date(2025, 9, 15, 7, 30, 0, 0, time.UTC)
	g.now = func() time.Time { return fixed }

	g.Evaluate(context.Background(), 1, day(2025, 9, 15))

	if got := s.records["2025-09"].RecordedAt; !got.Equal(fixed) {
		t.Errorf("RecordedAt = %v, want %v", got, fixed)
	}
}

func ptr(v float64) *float64 { return &v }
