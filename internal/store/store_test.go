package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/flashread/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "flashread.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func sampleResult(id string, end time.Time, missed ...string) model.Result {
	return model.Result{
		SessionID:   id,
		TotalWords:  4,
		Correct:     4 - len(missed),
		Incorrect:   len(missed),
		Accuracy:    float64(4-len(missed)) / 4 * 100,
		Duration:    6 * time.Second,
		MissedWords: missed,
		Settings: model.Settings{
			Exposure:     150 * time.Millisecond,
			IntervalBase: 800 * time.Millisecond,
			MaskEnabled:  true,
			MaskDuration: 100 * time.Millisecond,
			TextCase:     model.CaseUppercase,
		},
		StartedAt: end.Add(-6 * time.Second),
		EndedAt:   end,
	}
}

func TestInsertAndListSessions(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"s1", "s2", "s3"} {
		if err := st.InsertSession(ctx, sampleResult(id, base.Add(time.Duration(i)*time.Hour), "casa"), nil); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	sessions, err := st.ListSessions(ctx, model.StatsConfig{})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 3 || sessions[0].SessionID != "s1" || sessions[2].SessionID != "s3" {
		t.Fatalf("unexpected sessions %+v", sessions)
	}
	if sessions[0].Correct != 3 || sessions[0].DurationMs != 6000 || sessions[0].ExposureMs != 150 {
		t.Fatalf("unexpected session row %+v", sessions[0])
	}

	since := base.Add(90 * time.Minute)
	recent, err := st.ListSessions(ctx, model.StatsConfig{Since: &since})
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 1 || recent[0].SessionID != "s3" {
		t.Fatalf("unexpected filtered sessions %+v", recent)
	}
}

func TestDuplicateSessionRollsBack(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	res := sampleResult("dup", time.Now().UTC(), "mare")
	if err := st.InsertSession(ctx, res, nil); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := st.InsertSession(ctx, res, nil); err == nil {
		t.Fatalf("expected duplicate id to fail")
	}
	words, err := st.TopMissedWords(ctx, []string{"dup"}, 10)
	if err != nil {
		t.Fatalf("top missed: %v", err)
	}
	if len(words) != 1 || words[0].Misses != 1 {
		t.Fatalf("failed insert leaked rows: %+v", words)
	}
}

func TestTopMissedWords(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	end := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	inserts := map[string][]string{
		"a": {"casa", "mare"},
		"b": {"mare", "sole"},
		"c": {"mare"},
	}
	for id, missed := range inserts {
		if err := st.InsertSession(ctx, sampleResult(id, end, missed...), nil); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	top, err := st.TopMissedWords(ctx, []string{"a", "b", "c"}, 2)
	if err != nil {
		t.Fatalf("top missed: %v", err)
	}
	if len(top) != 2 || top[0].Word != "mare" || top[0].Misses != 3 || top[1].Word != "casa" {
		t.Fatalf("unexpected top missed %+v", top)
	}
	none, err := st.TopMissedWords(ctx, nil, 5)
	if err != nil || none != nil {
		t.Fatalf("expected nothing for no sessions, got %v %v", none, err)
	}
}

func TestPhaseDrift(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	metrics := []model.PhaseMetric{
		{WordIndex: 0, Phase: "alert", Target: 300 * time.Millisecond, Actual: 304 * time.Millisecond, Error: 4 * time.Millisecond},
		{WordIndex: 0, Phase: "word", Target: 150 * time.Millisecond, Actual: 160 * time.Millisecond, Error: 10 * time.Millisecond},
		{WordIndex: 1, Phase: "alert", Target: 300 * time.Millisecond, Actual: 312 * time.Millisecond, Error: 12 * time.Millisecond},
		{WordIndex: 1, Phase: "word", Target: 150 * time.Millisecond, Actual: 152 * time.Millisecond, Error: 2 * time.Millisecond},
	}
	if err := st.InsertSession(ctx, sampleResult("m", time.Now().UTC()), metrics); err != nil {
		t.Fatalf("insert: %v", err)
	}
	drift, err := st.PhaseDrift(ctx, "m")
	if err != nil {
		t.Fatalf("phase drift: %v", err)
	}
	if len(drift) != 2 || drift[0].Phase != "alert" || drift[1].Phase != "word" {
		t.Fatalf("unexpected drift rows %+v", drift)
	}
	if drift[0].Count != 2 || drift[0].MeanErrorMs != 8 || drift[0].MaxErrorMs != 12 {
		t.Fatalf("unexpected alert drift %+v", drift[0])
	}
	if drift[1].MeanErrorMs != 6 || drift[1].MaxErrorMs != 10 {
		t.Fatalf("unexpected word drift %+v", drift[1])
	}
}

func TestListSessionsOrdersSubSecondAndZonedTimes(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	whole := time.Date(2026, 4, 3, 12, 0, 5, 0, time.UTC)
	half := whole.Add(500 * time.Millisecond)
	zoned := whole.Add(time.Second).In(time.FixedZone("CEST", 2*60*60))
	for id, end := range map[string]time.Time{"half": half, "whole": whole, "zoned": zoned} {
		if err := st.InsertSession(ctx, sampleResult(id, end), nil); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	sessions, err := st.ListSessions(ctx, model.StatsConfig{})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 3 || sessions[0].SessionID != "whole" || sessions[1].SessionID != "half" || sessions[2].SessionID != "zoned" {
		t.Fatalf("unexpected order %+v", sessions)
	}
	if !sessions[1].EndedAt.Equal(half) {
		t.Fatalf("end time lost precision: %v", sessions[1].EndedAt)
	}

	since := whole.Add(200 * time.Millisecond)
	recent, err := st.ListSessions(ctx, model.StatsConfig{Since: &since})
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 2 || recent[0].SessionID != "half" {
		t.Fatalf("since filter matched %+v", recent)
	}
}
