// Package suggest ranks known names against a mistyped one, for
// "did you mean" hints on grammar names.
package suggest

import (
	"sort"
	"strings"
)

// Match is a ranked candidate name.
type Match struct {
	Name      string  `json:"name"`
	Score     float32 `json:"score"`      // 0-1, higher is better
	MatchType string  `json:"match_type"` // exact, prefix, contains, fuzzy
}

// threshold is the minimum score of a reported match.
const threshold = 0.3

// Rank scores every name against query and returns the matches above the
// threshold, best first. Ties keep the order of names.
func Rank(query string, names []string, limit int) []Match {
	if limit == 0 {
		limit = 5
	}
	queryLower := strings.ToLower(strings.TrimSpace(query))
	if queryLower == "" {
		return nil
	}

	var matches []Match
	for _, name := range names {
		nameLower := strings.ToLower(name)

		var score float32
		var matchType string

		if nameLower == queryLower {
			score = 1.0
			matchType = "exact"
		} else if strings.HasPrefix(nameLower, queryLower) {
			score = 0.9
			matchType = "prefix"
		} else if strings.Contains(nameLower, queryLower) {
			score = 0.7
			matchType = "contains"
		} else if fuzzyScore := fuzzyMatch(queryLower, nameLower); fuzzyScore > threshold {
			score = fuzzyScore * 0.6 // fuzzy matches are capped at 0.6
			matchType = "fuzzy"
		}

		if score > threshold {
			matches = append(matches, Match{Name: name, Score: score, MatchType: matchType})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Closest returns the best match for query, or "" when nothing scores above
// the threshold.
func Closest(query string, names []string) string {
	if m := Rank(query, names, 1); len(m) > 0 {
		return m[0].Name
	}
	return ""
}

// fuzzyMatch scores the longest common subsequence of query and target.
func fuzzyMatch(query, target string) float32 {
	if len(query) == 0 || len(target) == 0 {
		return 0
	}

	indices := longestCommonSubsequence(query, target)
	if len(indices) == 0 {
		return 0
	}

	// Weighted by coverage of the query, coverage of the target and runs of
	// consecutive matches.
	matchRatio := float32(len(indices)) / float32(len(query))
	targetRatio := float32(len(indices)) / float32(len(target))

	consecutiveBonus := float32(0)
	for i := 1; i < len(indices); i++ {
		if indices[i] == indices[i-1]+1 {
			consecutiveBonus += 0.05
		}
	}

	return min(matchRatio*0.6+targetRatio*0.3+consecutiveBonus*0.1, 1.0)
}

// longestCommonSubsequence returns the indices in s2 of an LCS of s1 and s2.
func longestCommonSubsequence(s1, s2 string) []int {
	m, n := len(s1), len(s2)
	if m == 0 || n == 0 {
		return nil
	}

	dp := make([][]int, m+1)
	for i := range dp {
		dp[i] = make([]int, n+1)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			if s1[i-1] == s2[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else {
				dp[i][j] = max(dp[i-1][j], dp[i][j-1])
			}
		}
	}

	indices := make([]int, dp[m][n])
	k := len(indices) - 1
	i, j := m, n
	for i > 0 && j > 0 {
		if s1[i-1] == s2[j-1] {
			indices[k] = j - 1
			k--
			i--
			j--
		} else if dp[i-1][j] > dp[i][j-1] {
			i--
		} else {
			j--
		}
	}
	return indices
}
