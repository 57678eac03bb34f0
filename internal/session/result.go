package session

import (
	"time"

	"github.com/verte-zerg/flashread/internal/model"
)

// BuildResult derives the session summary. Missed words are resolved from
// the incorrect indices against the word list as it is now.
func BuildResult(p model.Progress, settings model.Settings, duration time.Duration, endedAt time.Time) model.Result {
	total := len(p.Words)
	missed := make([]string, 0, len(p.Incorrect))
	for _, idx := range p.Incorrect {
		if idx >= 0 && idx < total {
			missed = append(missed, p.Words[idx])
		}
	}
	incorrect := len(missed)
	correct := total - incorrect
	return model.Result{
		SessionID:   p.SessionID,
		TotalWords:  total,
		Correct:     correct,
		Incorrect:   incorrect,
		Accuracy:    Accuracy(correct, total),
		Duration:    duration,
		MissedWords: missed,
		Settings:    settings,
		StartedAt:   endedAt.Add(-duration),
		EndedAt:     endedAt,
	}
}

// Accuracy returns correct/total as a percentage, or 0 for an empty session.
func Accuracy(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}
