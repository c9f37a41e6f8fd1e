package domain

// Bounds of a performance rating reported after an attempt.
const (
	MinPerformance = 0
	MaxPerformance = 5
)

// ValidatePerformance returns ErrInvalidPerformance when p is outside [0,5].
func ValidatePerformance(p int) error {
	if p < MinPerformance || p > MaxPerformance {
		return ErrInvalidPerformance
	}
	return nil
}
