package mastery

import (
	"sort"
	"time"

	"github.com/nepalijets/nepalijets-api/internal/domain"
	"github.com/nepalijets/nepalijets-api/internal/domain/srs"
)

// SessionSummary is one entry of a report's recent performance list.
type SessionSummary struct {
	Date         time.Time `json:"date"`
	Score        int       `json:"score"`
	ItemsStudied int       `json:"itemsStudied"`
	Duration     int       `json:"duration"`
}

// ProgressReport aggregates a learner's items and sessions.
type ProgressReport struct {
	MasteryDistribution Distribution     `json:"masteryDistribution"`
	Streak              Streak           `json:"streak"`
	TotalLearningTime   int              `json:"totalLearningTime"`  // minutes
	AverageSessionTime  float64          `json:"averageSessionTime"` // minutes
	ItemsPerCategory    map[string]int   `json:"itemsPerCategory"`
	MasteryPerCategory  map[string]int   `json:"masteryPerCategory"`
	RecentPerformance   []SessionSummary `json:"recentPerformance"`
}

func emptyReport() ProgressReport {
	return ProgressReport{
		ItemsPerCategory:   map[string]int{},
		MasteryPerCategory: map[string]int{},
		RecentPerformance:  []SessionSummary{},
	}
}

// ProgressReport combines the mastery distribution, streak, learning time,
// per-category counts and mastery percentages, and summaries of the most
// recent sessions, newest first. No items yields a zeroed report.
func (t *Tracker) ProgressReport(items []domain.LearnableItem, sessions []domain.Session, now time.Time) ProgressReport {
	if len(items) == 0 {
		return emptyReport()
	}

	report := emptyReport()
	report.MasteryDistribution = t.MasteryDistribution(items)
	report.Streak = t.CalculateStreak(sessions, now)

	for _, s := range sessions {
		report.TotalLearningTime += s.Duration
	}
	if len(sessions) > 0 {
		report.AverageSessionTime = float64(report.TotalLearningTime) / float64(len(sessions))
	}

	for _, item := range items {
		report.ItemsPerCategory[item.CategoryOrDefault()]++
	}
	report.MasteryPerCategory = CategoryMastery(items)

	report.RecentPerformance = t.recentSummaries(sessions)

	return report
}

func (t *Tracker) recentSummaries(sessions []domain.Session) []SessionSummary {
	sorted := make([]domain.Session, len(sessions))
	copy(sorted, sessions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime.After(sorted[j].StartTime)
	})

	if len(sorted) > t.recentSessions {
		sorted = sorted[:t.recentSessions]
	}

	out := make([]SessionSummary, 0, len(sorted))
	for _, s := range sorted {
		out = append(out, SessionSummary{
			Date:         s.StartTime,
			Score:        s.Metrics.Score,
			ItemsStudied: s.Metrics.ItemsStudied,
			Duration:     s.Duration,
		})
	}
	return out
}

// CategoryMastery returns the mastery percentage of each category.
func CategoryMastery(items []domain.LearnableItem) map[string]int {
	totals := make(map[string]int)
	mastered := make(map[string]int)
	for _, item := range items {
		category := item.CategoryOrDefault()
		totals[category]++
		if item.Mastered {
			mastered[category]++
		}
	}

	out := make(map[string]int, len(totals))
	for category, total := range totals {
		out[category] = srs.Percentage(mastered[category], total)
	}
	return out
}
