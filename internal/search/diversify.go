package search

import (
	"slices"
	"sort"

	"github.com/sells-group/product-compare/internal/model"
)

// Diversify selects up to n candidates spread across source domains.
// Candidates are grouped by normalized domain, each group is ordered by
// source priority, and groups are visited in preferred-domain order: one
// pick per group first, then round-robin passes until n is reached or a
// full pass finds no unvisited candidate.
func Diversify(pool []model.URLCandidate, n int) []model.URLCandidate {
	if len(pool) == 0 || n <= 0 {
		return nil
	}

	groups := make(map[string][]model.URLCandidate)
	var domains []string
	for _, c := range pool {
		d := NormalizeDomain(c.SourceDomain)
		if _, ok := groups[d]; !ok {
			domains = append(domains, d)
		}
		groups[d] = append(groups[d], c)
	}
	for _, d := range domains {
		sort.SliceStable(groups[d], func(i, j int) bool {
			return SourcePriority(groups[d][i].SourceDomain) < SourcePriority(groups[d][j].SourceDomain)
		})
	}
	sort.SliceStable(domains, func(i, j int) bool {
		return preferredRank(domains[i]) < preferredRank(domains[j])
	})

	out := make([]model.URLCandidate, 0, n)
	seen := make(map[string]bool, n)
	next := make(map[string]int, len(domains))
	take := func(c model.URLCandidate) {
		if seen[c.URL] {
			return
		}
		seen[c.URL] = true
		out = append(out, c)
	}

	for _, d := range domains {
		if len(out) >= n {
			break
		}
		take(groups[d][0])
		next[d] = 1
	}

	for advanced := true; advanced && len(out) < n; {
		advanced = false
		for _, d := range domains {
			if len(out) >= n {
				break
			}
			if idx := next[d]; idx < len(groups[d]) {
				take(groups[d][idx])
				next[d]++
				advanced = true
			}
		}
	}
	return slices.Clip(out)
}
