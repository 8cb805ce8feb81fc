package services

import (
	"sort"

	"github.com/atina-inc/atina-engine/pkg/config"
	"github.com/atina-inc/atina-engine/pkg/models"
)

// Similarity scores how well a stored keyword set matches an incoming one,
// in [0,100]. Two empty sets are a perfect merchant-only match; exactly one
// empty set is a partial match; otherwise the score is the Jaccard index of
// the two sets scaled to 100.
func Similarity(stored, incoming []string, cfg *config.PatternConfig) int {
	if len(stored) == 0 && len(incoming) == 0 {
		return cfg.PerfectScore
	}
	if len(stored) == 0 || len(incoming) == 0 {
		return cfg.PartialScore
	}

	storedSet := make(map[string]struct{}, len(stored))
	for _, k := range stored {
		storedSet[k] = struct{}{}
	}

	intersection := 0
	incomingSet := make(map[string]struct{}, len(incoming))
	for _, k := range incoming {
		if _, dup := incomingSet[k]; dup {
			continue
		}
		incomingSet[k] = struct{}{}
		if _, ok := storedSet[k]; ok {
			intersection++
		}
	}

	union := len(storedSet) + len(incomingSet) - intersection
	if union == 0 {
		return cfg.PerfectScore
	}
	return intersection * 100 / union
}

// RankMatches scores patterns against the incoming keywords and orders them
// by similarity. The sort is stable, so among equal similarities the
// repository's frequency-then-recency order is preserved.
func RankMatches(patterns []*models.Pattern, incoming []string, cfg *config.PatternConfig) []*models.PatternMatch {
	matches := make([]*models.PatternMatch, 0, len(patterns))
	for _, p := range patterns {
		matches = append(matches, &models.PatternMatch{
			Pattern:    p,
			Similarity: Similarity(p.ItemKeywords, incoming, cfg),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches
}

// BestSuggestion returns the top match as a suggestion when it clears the
// confirmation threshold, or nil when nothing is worth surfacing.
func BestSuggestion(matches []*models.PatternMatch, threshold int) *models.PatternSuggestion {
	if len(matches) == 0 {
		return nil
	}
	top := matches[0]
	if top.Similarity < threshold {
		return nil
	}
	return &models.PatternSuggestion{
		Category:   top.Pattern.Category,
		CostCenter: top.Pattern.CostCenter,
		Similarity: top.Similarity,
		Frequency:  top.Pattern.Frequency,
	}
}
