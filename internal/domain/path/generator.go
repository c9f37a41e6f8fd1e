// Package path composes due reviews and fresh items into a bounded,
// personalized practice queue and keeps it current as results arrive.
package path

import (
	"fmt"
	"time"

	"github.com/nepalijets/nepalijets-api/internal/domain"
	"github.com/nepalijets/nepalijets-api/internal/domain/difficulty"
	"github.com/nepalijets/nepalijets-api/internal/domain/mastery"
	"github.com/nepalijets/nepalijets-api/internal/domain/srs"
)

// Per-tier mastery needed to advance the current difficulty.
const (
	easyTierAdvance   = 70
	mediumTierAdvance = 50
)

// CompletedItem is one practised item with the rating it received.
type CompletedItem struct {
	ItemID      string `json:"itemId"`
	Performance int    `json:"performance"`
}

// ItemFailure describes a completed item that could not be applied.
type ItemFailure struct {
	ItemID string
	Err    error
}

// Error implements the error interface.
func (f ItemFailure) Error() string {
	return fmt.Sprintf("item %q: %v", f.ItemID, f.Err)
}

// Unwrap returns the underlying error.
func (f ItemFailure) Unwrap() error {
	return f.Err
}

// UpdateResult is the outcome of UpdatePath.
type UpdateResult struct {
	// Path is the regenerated queue.
	Path []domain.LearnableItem
	// Updated holds the new state of every item that was applied, in input order.
	Updated []domain.LearnableItem
	// Failures holds the items that were skipped.
	Failures []ItemFailure
}

// Metrics is a read-only summary of the pool.
type Metrics struct {
	OverallMastery    int               `json:"overallMastery"`
	CategoryMastery   map[string]int    `json:"categoryMastery"`
	TotalItems        int               `json:"totalItems"`
	MasteredItems     int               `json:"masteredItems"`
	CurrentDifficulty domain.Difficulty `json:"currentDifficulty"`
}

// Generator owns one learner's item pool and current path. It is not safe
// for concurrent use; callers serialize access per learner.
type Generator struct {
	scheduler srs.Scheduler
	advisor   *difficulty.Advisor
	tracker   *mastery.Tracker

	pool    []domain.LearnableItem
	index   map[string]int
	current []domain.LearnableItem
}

// Option configures a Generator.
type Option func(*Generator)

// WithScheduler sets the scheduler used for due items and rescheduling.
func WithScheduler(s srs.Scheduler) Option {
	return func(g *Generator) {
		if s != nil {
			g.scheduler = s
		}
	}
}

// WithAdvisor sets the advisor used to sample fresh items.
func WithAdvisor(a *difficulty.Advisor) Option {
	return func(g *Generator) {
		if a != nil {
			g.advisor = a
		}
	}
}

// WithMasteryTracker makes UpdatePath also update mastery labels.
func WithMasteryTracker(t *mastery.Tracker) Option {
	return func(g *Generator) {
		g.tracker = t
	}
}

// NewGenerator creates a Generator over a copy of pool. When pool holds
// several items with the same id, the first one wins on write-back.
func NewGenerator(pool []domain.LearnableItem, opts ...Option) *Generator {
	g := &Generator{
		scheduler: srs.NewDefaultScheduler(),
		advisor:   difficulty.NewAdvisor(nil),
		pool:      domain.CloneItems(pool),
		current:   []domain.LearnableItem{},
	}
	if g.pool == nil {
		g.pool = []domain.LearnableItem{}
	}

	g.index = make(map[string]int, len(g.pool))
	for idx, item := range g.pool {
		if _, exists := g.index[item.ID]; !exists {
			g.index[item.ID] = idx
		}
	}

	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Pool returns a copy of the current item pool.
func (g *Generator) Pool() []domain.LearnableItem {
	return domain.CloneItems(g.pool)
}

// Item returns the pool entry with the given id.
func (g *Generator) Item(id string) (domain.LearnableItem, bool) {
	idx, ok := g.index[id]
	if !ok {
		return domain.LearnableItem{}, false
	}
	return g.pool[idx].Clone(), true
}

// CurrentPath returns a copy of the most recently generated path.
func (g *Generator) CurrentPath() []domain.LearnableItem {
	return domain.CloneItems(g.current)
}

// RestorePath sets the current path to the pool items with the given ids,
// in order. Unknown ids are ignored.
func (g *Generator) RestorePath(ids []string) {
	g.current = make([]domain.LearnableItem, 0, len(ids))
	for _, id := range ids {
		if idx, ok := g.index[id]; ok {
			g.current = append(g.current, g.pool[idx].Clone())
		}
	}
}

// GeneratePersonalizedPath builds a path of at most pathLength items and
// makes it the current path.
//
// Due items come first. Remaining slots are filled with unmastered items
// not already on the path, sampled across tiers around the difficulty
// recommended for the learner's current tier and overall mastery. The
// result is then trimmed to pathLength.
func (g *Generator) GeneratePersonalizedPath(pathLength int, now time.Time) ([]domain.LearnableItem, error) {
	if pathLength < 1 {
		return nil, domain.ErrInvalidPathLength
	}

	due := g.scheduler.DueItems(g.pool, now)
	overall := g.scheduler.MasteryPercentage(g.pool)
	recommended := difficulty.RecommendedDifficulty(g.CurrentDifficulty(), overall)

	result := domain.CloneItems(due)

	if len(result) < pathLength {
		inPath := make(map[string]struct{}, len(result))
		for _, item := range result {
			inPath[item.ID] = struct{}{}
		}

		candidates := make([]domain.LearnableItem, 0, len(g.pool))
		for _, item := range g.pool {
			if _, ok := inPath[item.ID]; ok || item.Mastered {
				continue
			}
			candidates = append(candidates, item)
		}

		result = append(result, g.advisor.MixedDifficultySet(candidates, recommended, pathLength-len(result))...)
	}

	if len(result) > pathLength {
		result = result[:pathLength]
	}

	g.current = result
	return domain.CloneItems(result), nil
}

// UpdatePath applies a batch of results and regenerates the path.
//
// Each completed item is rescheduled, and relabelled when a mastery
// tracker is attached, written back to the pool and removed from the
// current path. Items with an unknown id or an invalid rating are reported
// in Failures and the rest of the batch still applies. The new path has
// the length of the remaining path plus the number of completed items. An
// empty batch returns the current path unchanged.
func (g *Generator) UpdatePath(completed []CompletedItem, now time.Time) (UpdateResult, error) {
	if len(completed) == 0 {
		return UpdateResult{Path: g.CurrentPath()}, nil
	}

	result := UpdateResult{}
	for _, c := range completed {
		updated, err := g.apply(c, now)
		if err != nil {
			result.Failures = append(result.Failures, ItemFailure{ItemID: c.ItemID, Err: err})
			continue
		}
		result.Updated = append(result.Updated, updated.Clone())
		g.removeFromPath(c.ItemID)
	}

	path, err := g.GeneratePersonalizedPath(len(g.current)+len(completed), now)
	if err != nil {
		return result, err
	}
	result.Path = path

	return result, nil
}

func (g *Generator) apply(c CompletedItem, now time.Time) (domain.LearnableItem, error) {
	if c.ItemID == "" {
		return domain.LearnableItem{}, domain.ErrMissingItemID
	}
	if err := domain.ValidatePerformance(c.Performance); err != nil {
		return domain.LearnableItem{}, err
	}

	idx, ok := g.index[c.ItemID]
	if !ok {
		return domain.LearnableItem{}, domain.ErrItemNotFound
	}

	updated, err := g.scheduler.ScheduleNextReview(g.pool[idx], c.Performance, now)
	if err != nil {
		return domain.LearnableItem{}, err
	}

	if g.tracker != nil {
		updated, err = g.tracker.UpdateMasteryLevel(updated, c.Performance, now)
		if err != nil {
			return domain.LearnableItem{}, err
		}
	}

	g.pool[idx] = updated
	return updated, nil
}

func (g *Generator) removeFromPath(id string) {
	for i, item := range g.current {
		if item.ID == id {
			g.current = append(g.current[:i], g.current[i+1:]...)
			return
		}
	}
}

// CurrentDifficulty derives the learner's tier from per-tier mastery:
// hard once at least 70% of easy and 50% of medium items are mastered,
// medium once 70% of easy items are, easy otherwise. A tier without items
// counts as 0% mastered.
func (g *Generator) CurrentDifficulty() domain.Difficulty {
	totals := make(map[domain.Difficulty]int, len(domain.Difficulties))
	mastered := make(map[domain.Difficulty]int, len(domain.Difficulties))
	for _, item := range g.pool {
		tier := item.Difficulty
		if !tier.Valid() {
			tier = domain.DifficultyEasy
		}
		totals[tier]++
		if item.Mastered {
			mastered[tier]++
		}
	}

	tierMastery := func(d domain.Difficulty) float64 {
		if totals[d] == 0 {
			return 0
		}
		return float64(mastered[d]) / float64(totals[d]) * 100
	}

	easy := tierMastery(domain.DifficultyEasy)
	medium := tierMastery(domain.DifficultyMedium)

	switch {
	case easy >= easyTierAdvance && medium >= mediumTierAdvance:
		return domain.DifficultyHard
	case easy >= easyTierAdvance:
		return domain.DifficultyMedium
	default:
		return domain.DifficultyEasy
	}
}

// LearningMetrics summarizes the pool.
func (g *Generator) LearningMetrics() Metrics {
	mastered := 0
	for _, item := range g.pool {
		if item.Mastered {
			mastered++
		}
	}

	return Metrics{
		OverallMastery:    g.scheduler.MasteryPercentage(g.pool),
		CategoryMastery:   mastery.CategoryMastery(g.pool),
		TotalItems:        len(g.pool),
		MasteredItems:     mastered,
		CurrentDifficulty: g.CurrentDifficulty(),
	}
}
