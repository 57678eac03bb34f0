package session

import (
	"errors"
	"fmt"

	"github.com/verte-zerg/flashread/internal/model"
)

var (
	ErrNoWords         = errors.New("word list is empty")
	ErrInvalidSettings = errors.New("invalid settings")
)

// Validate checks a word list and settings before a session starts. The
// engine itself assumes valid input.
func Validate(words []string, s model.Settings) error {
	if len(words) == 0 {
		return ErrNoWords
	}
	if s.Exposure <= 0 {
		return fmt.Errorf("%w: exposure must be > 0", ErrInvalidSettings)
	}
	if s.IntervalBase < 0 {
		return fmt.Errorf("%w: interval must be >= 0", ErrInvalidSettings)
	}
	if s.IntervalVariability < 0 {
		return fmt.Errorf("%w: variability must be >= 0", ErrInvalidSettings)
	}
	if s.MaskEnabled && s.MaskDuration <= 0 {
		return fmt.Errorf("%w: mask duration must be > 0 when masking is enabled", ErrInvalidSettings)
	}
	if _, err := model.ParseTextCase(string(s.TextCase)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return nil
}
