package grading

import (
	"fmt"
	"math"
	"strings"
)

type keywordStrategy struct{}

func (keywordStrategy) Grade(p Problem, a Answer) Result {
	return GradeOpenEnded(p, a.Text)
}

// GradeOpenEnded scores raw by case-insensitive keyword presence.
func GradeOpenEnded(p Problem, raw string) Result {
	keywords := cleanKeywords(p.Keywords)
	if strings.TrimSpace(raw) == "" || len(keywords) == 0 {
		return Result{}
	}

	low := strings.ToLower(raw)
	matched := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if strings.Contains(low, strings.ToLower(k)) {
			matched = append(matched, k)
		}
	}
	res := Result{
		MatchedKeywords: matched,
		Feedback:        []string{fmt.Sprintf("keyword hits: %d/%d", len(matched), len(keywords))},
	}
	switch {
	case len(matched) == 0:
		return res
	case len(matched) == len(keywords):
		res.Score = p.Points
	case p.AllowPartialCredit:
		res.Score = math.Min(math.Round(float64(len(matched))/float64(len(keywords))*p.Points), p.Points)
	}
	res.Correct = res.Score == p.Points
	return res
}

// cleanKeywords trims keywords and drops blanks, which would match anything.
func cleanKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, k := range in {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
