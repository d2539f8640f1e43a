// Package matcher ranks experts for a support request. Pure functions only;
// snapshots go in, ordered candidate ids come out.
package matcher

import (
	"sort"

	"github.com/spec-kit/sme-router/internal/domain"
)

type scored struct {
	id    string
	score int
	load  int
}

// Rank filters the expert snapshot to candidates for the required tags and
// orders them best-first: highest summed skill rating, then least loaded,
// then lowest id. VIP requesters additionally get experts at full capacity
// appended as a last-resort tier, so a VIP request is never left without
// candidates while anyone holds a required tag.
//
// An empty result is a valid outcome meaning nobody holds any required tag;
// the caller falls back to a broadcast channel.
func Rank(requiredTags []string, experts []domain.Expert, level domain.PriorityLevel) []string {
	tags := domain.NormalizeTags(requiredTags)
	if len(tags) == 0 {
		return nil
	}

	var eligible, lastResort []scored
	for i := range experts {
		e := &experts[i]
		if !e.HasAnyTag(tags) {
			continue
		}
		s := scored{id: e.ID, score: e.ScoreFor(tags), load: e.CurrentLoad}
		switch {
		case e.CanAccept():
			eligible = append(eligible, s)
		case level == domain.PriorityVIP && e.Available:
			lastResort = append(lastResort, s)
		}
	}

	sortCandidates(eligible)
	sortCandidates(lastResort)

	ids := make([]string, 0, len(eligible)+len(lastResort))
	for _, s := range eligible {
		ids = append(ids, s.id)
	}
	for _, s := range lastResort {
		ids = append(ids, s.id)
	}
	return ids
}

func sortCandidates(candidates []scored) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].load != candidates[j].load {
			return candidates[i].load < candidates[j].load
		}
		return candidates[i].id < candidates[j].id
	})
}
