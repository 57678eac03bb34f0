package stats

import (
	"context"
	"io"

	"github.com/verte-zerg/flashread/internal/model"
	"github.com/verte-zerg/flashread/internal/store"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Sessions    []model.SessionAggregate
	MissedWords []model.MissedWordAggregate
	// Drift covers the most recent session only.
	Drift []model.PhaseDrift
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig) (Report, error) {
	sessions, err := st.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}
	if len(sessions) == 0 {
		return Report{}, nil
	}

	missed, err := st.TopMissedWords(ctx, sessionIDs(sessions), cfg.TopMissed)
	if err != nil {
		return Report{}, err
	}
	drift, err := st.PhaseDrift(ctx, sessions[len(sessions)-1].SessionID)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Sessions:    sessions,
		MissedWords: missed,
		Drift:       drift,
	}, nil
}

// Render writes the whole report.
func (r Report) Render(w io.Writer, window, width int) error {
	if err := RenderSummary(w, r.Sessions); err != nil {
		return err
	}
	if len(r.Sessions) == 0 {
		return nil
	}
	if err := RenderCurve(w, r.Sessions, window, width); err != nil {
		return err
	}
	if err := RenderMissedWords(w, r.MissedWords); err != nil {
		return err
	}
	return RenderDrift(w, r.Drift)
}

func sessionIDs(sessions []model.SessionAggregate) []string {
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.SessionID
	}
	return ids
}
