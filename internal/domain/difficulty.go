package domain

// Difficulty is the content tier of a learnable item.
type Difficulty int

// Known difficulty tiers.
const (
	DifficultyEasy   Difficulty = 1
	DifficultyMedium Difficulty = 2
	DifficultyHard   Difficulty = 3
)

// Difficulties lists every tier in ascending order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Valid reports whether d is one of the known tiers.
func (d Difficulty) Valid() bool {
	return d >= DifficultyEasy && d <= DifficultyHard
}

// Clamp returns d limited to the known tier range.
func (d Difficulty) Clamp() Difficulty {
	if d < DifficultyEasy {
		return DifficultyEasy
	}
	if d > DifficultyHard {
		return DifficultyHard
	}
	return d
}
