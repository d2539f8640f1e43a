package domain

import "strings"

// Expert is a subject-matter expert who can claim support tickets.
type Expert struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	ExpertiseTags []string       `json:"expertise_tags"`
	SkillRatings  map[string]int `json:"skill_ratings"`
	Available     bool           `json:"available"`
	CurrentLoad   int            `json:"current_load"`
	MaxConcurrent int            `json:"max_concurrent"`
}

// NormalizeTag folds a tag for case-insensitive comparison.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// NormalizeTags folds and deduplicates a tag set.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		n := NormalizeTag(tag)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// HasTag reports whether the expert holds the given expertise tag.
func (e *Expert) HasTag(tag string) bool {
	n := NormalizeTag(tag)
	for _, t := range e.ExpertiseTags {
		if NormalizeTag(t) == n {
			return true
		}
	}
	return false
}

// HasAnyTag reports whether the expert holds at least one of the tags.
func (e *Expert) HasAnyTag(tags []string) bool {
	for _, tag := range tags {
		if e.HasTag(tag) {
			return true
		}
	}
	return false
}

// RatingFor returns the expert's skill rating for a tag, zero when unrated.
func (e *Expert) RatingFor(tag string) int {
	if e.SkillRatings == nil {
		return 0
	}
	return e.SkillRatings[NormalizeTag(tag)]
}

// ScoreFor sums the expert's ratings over the tags they actually hold.
func (e *Expert) ScoreFor(tags []string) int {
	score := 0
	for _, tag := range tags {
		if e.HasTag(tag) {
			score += e.RatingFor(tag)
		}
	}
	return score
}

// AtCapacity reports whether the expert carries their maximum concurrent load.
func (e *Expert) AtCapacity() bool {
	return e.CurrentLoad >= e.MaxConcurrent
}

// CanAccept reports whether the expert is eligible for a new assignment.
func (e *Expert) CanAccept() bool {
	return e.Available && !e.AtCapacity()
}
