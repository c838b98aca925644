package roster

import (
	"cmp"
	"slices"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/muktadirmaashif/itcf-2026/internal/auction"
)

// typoThreshold is the name similarity above which a misspelt query still
// matches.
const typoThreshold = 0.7

// Match is one search hit. Lower Distance is a better match.
type Match struct {
	Player   auction.Player `json:"player"`
	Field    string         `json:"field"`
	Distance int            `json:"distance"`
}

// Search finds players whose id, name or role contains the query's letters
// in order, case-insensitively. Names that are a close misspelling of the
// query are returned after those. At most limit matches are returned; limit
// <= 0 means no limit.
func Search(s *auction.Snapshot, query string, limit int) []Match {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	best := make(map[int]Match)
	consider := func(i int, m Match) {
		if cur, ok := best[i]; !ok || m.Distance < cur.Distance {
			best[i] = m
		}
	}

	fields := []struct {
		name string
		get  func(auction.Player) string
	}{
		{"id", func(p auction.Player) string { return p.ID }},
		{"name", func(p auction.Player) string { return p.Name }},
		{"role", func(p auction.Player) string { return p.Role }},
	}
	for _, f := range fields {
		targets := make([]string, len(s.Players))
		for i, p := range s.Players {
			targets[i] = f.get(p)
		}
		for _, r := range fuzzy.RankFindNormalizedFold(query, targets) {
			consider(r.OriginalIndex, Match{Player: s.Players[r.OriginalIndex], Field: f.name, Distance: r.Distance})
		}
	}

	// Typo tolerance on names. The length penalty ranks these behind any
	// subsequence match of the same name.
	q := strings.ToLower(query)
	for i, p := range s.Players {
		if _, ok := best[i]; ok {
			continue
		}
		name := strings.ToLower(p.Name)
		distance := fuzzy.LevenshteinDistance(q, name)
		maxLen := float64(max(len(q), len(name)))
		if maxLen == 0 {
			continue
		}
		if similarity := 1 - float64(distance)/maxLen; similarity > typoThreshold {
			consider(i, Match{Player: p, Field: "name", Distance: len(name) + 1 + distance})
		}
	}

	matches := make([]Match, 0, len(best))
	for _, m := range best {
		matches = append(matches, m)
	}
	slices.SortFunc(matches, func(a, b Match) int {
		return cmp.Or(cmp.Compare(a.Distance, b.Distance), cmp.Compare(a.Player.Name, b.Player.Name), cmp.Compare(a.Player.ID, b.Player.ID))
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
