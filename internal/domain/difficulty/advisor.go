// Package difficulty recommends a content tier from recent performance and
// samples practice sets weighted across the three tiers.
package difficulty

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/nepalijets/nepalijets-api/internal/domain"
)

// Performance bands, as a percentage.
const (
	IncreaseThreshold = 90
	HoldThreshold     = 70
	SteadyThreshold   = 50
)

// RandomSource is the part of *rand.Rand used for sampling.
type RandomSource interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// distribution is the share of a mixed set drawn from each tier, keyed by
// the recommended tier.
var distribution = map[domain.Difficulty]map[domain.Difficulty]float64{
	domain.DifficultyEasy:   {domain.DifficultyEasy: 0.8, domain.DifficultyMedium: 0.2, domain.DifficultyHard: 0},
	domain.DifficultyMedium: {domain.DifficultyEasy: 0.2, domain.DifficultyMedium: 0.6, domain.DifficultyHard: 0.2},
	domain.DifficultyHard:   {domain.DifficultyEasy: 0.1, domain.DifficultyMedium: 0.3, domain.DifficultyHard: 0.6},
}

// Advisor builds difficulty-balanced item sets. It is not safe for
// concurrent use when constructed with a *rand.Rand.
type Advisor struct {
	rng RandomSource
}

// NewAdvisor creates an Advisor drawing from rng. A nil rng uses the
// process-wide generator of math/rand/v2.
func NewAdvisor(rng RandomSource) *Advisor {
	if rng == nil {
		rng = globalSource{}
	}
	return &Advisor{rng: rng}
}

// RecommendedDifficulty maps the current tier and a performance percentage
// to the tier to practice next: 90 and above moves up one tier, below 50
// moves down one, anything between keeps the tier. The result is always a
// valid tier.
func RecommendedDifficulty(current domain.Difficulty, performancePercentage int) domain.Difficulty {
	current = current.Clamp()

	switch {
	case performancePercentage >= IncreaseThreshold:
		return (current + 1).Clamp()
	case performancePercentage >= HoldThreshold:
		return current
	case performancePercentage >= SteadyThreshold:
		return current
	default:
		return (current - 1).Clamp()
	}
}

// RecommendedDifficulty is RecommendedDifficulty bound to the advisor.
func (a *Advisor) RecommendedDifficulty(current domain.Difficulty, performancePercentage int) domain.Difficulty {
	return RecommendedDifficulty(current, performancePercentage)
}

// FilterByDifficulty keeps items at or below d when includeEasier is set,
// otherwise only items exactly at d. Input order is kept.
func FilterByDifficulty(items []domain.LearnableItem, d domain.Difficulty, includeEasier bool) []domain.LearnableItem {
	out := make([]domain.LearnableItem, 0, len(items))
	for _, item := range items {
		if item.Difficulty == d || (includeEasier && item.Difficulty < d) {
			out = append(out, item)
		}
	}
	return out
}

// FilterByDifficulty is FilterByDifficulty bound to the advisor.
func (a *Advisor) FilterByDifficulty(items []domain.LearnableItem, d domain.Difficulty, includeEasier bool) []domain.LearnableItem {
	return FilterByDifficulty(items, d, includeEasier)
}

// MixedDifficultySet samples up to setSize items without replacement,
// taking round(setSize*share) from each tier according to the distribution
// for d. Tiers that cannot supply their share are backfilled from any
// unselected item. The result has exactly min(setSize, len(items))
// elements, each a copy of an input item.
func (a *Advisor) MixedDifficultySet(items []domain.LearnableItem, d domain.Difficulty, setSize int) []domain.LearnableItem {
	if setSize <= 0 || len(items) == 0 {
		return []domain.LearnableItem{}
	}
	if setSize > len(items) {
		setSize = len(items)
	}

	shares := distribution[d.Clamp()]

	tiers := make(map[domain.Difficulty][]int, len(domain.Difficulties))
	for idx, item := range items {
		tiers[item.Difficulty] = append(tiers[item.Difficulty], idx)
	}

	selected := make([]int, 0, setSize)
	taken := make([]bool, len(items))

	// largest share first, so rounding overshoot is absorbed by minor tiers
	order := slices.Clone(domain.Difficulties)
	slices.SortStableFunc(order, func(x, y domain.Difficulty) int {
		switch {
		case shares[x] > shares[y]:
			return -1
		case shares[x] < shares[y]:
			return 1
		default:
			return 0
		}
	})

	for _, tier := range order {
		want := int(math.Round(float64(setSize) * shares[tier]))
		want = min(want, setSize-len(selected))
		for _, idx := range a.sample(tiers[tier], want) {
			taken[idx] = true
			selected = append(selected, idx)
		}
	}

	if len(selected) < setSize {
		rest := make([]int, 0, len(items)-len(selected))
		for idx := range items {
			if !taken[idx] {
				rest = append(rest, idx)
			}
		}
		selected = append(selected, a.sample(rest, setSize-len(selected))...)
	}

	out := make([]domain.LearnableItem, 0, len(selected))
	for _, idx := range selected {
		out = append(out, items[idx].Clone())
	}
	return out
}

// sample returns up to n elements of pool chosen uniformly without
// replacement. pool is reordered in place.
func (a *Advisor) sample(pool []int, n int) []int {
	n = min(n, len(pool))
	for i := 0; i < n; i++ {
		j := i + a.rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}
