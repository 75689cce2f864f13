package engine

import (
	"sort"
	"strings"

	"github.com/namelens/handlescan/internal/core"
)

// RankProvider resolves a popularity rank for a target name.
type RankProvider interface {
	Rank(name string) (int, bool)
}

// AnnotateAndSort sets each outcome's rank and orders outcomes by rank,
// then case-insensitive name, then name. Unranked targets sort last.
func AnnotateAndSort(outcomes []core.ProbeOutcome, ranks RankProvider) []core.ProbeOutcome {
	for i := range outcomes {
		outcomes[i].Rank = core.UnrankedRank
		if ranks == nil {
			continue
		}
		if rank, ok := ranks.Rank(outcomes[i].Target); ok {
			outcomes[i].Rank = rank
		}
	}

	sort.SliceStable(outcomes, func(i, j int) bool {
		a, b := outcomes[i], outcomes[j]
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		la, lb := strings.ToLower(a.Target), strings.ToLower(b.Target)
		if la != lb {
			return la < lb
		}
		return a.Target < b.Target
	})

	return outcomes
}
