package grading

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// mathStrategy accepts an exact normalized match or, when both sides are
// numbers, a value within the problem's tolerance.
type mathStrategy struct{ defaultTol float64 }

func (s mathStrategy) Grade(p Problem, a Answer) Result {
	return gradeMath(p, a.Text, s.defaultTol)
}

// GradeMathExpression grades raw against every acceptable answer of p.
func GradeMathExpression(p Problem, raw string) Result {
	return gradeMath(p, raw, DefaultTolerance)
}

func gradeMath(p Problem, raw string, defaultTol float64) Result {
	cand := normalizeExpr(raw)
	if cand == "" {
		return Result{}
	}
	tol := defaultTol
	if p.Tolerance != nil {
		tol = math.Max(*p.Tolerance, 0)
	}

	cv, cOK := parseFloatStrict(cand)
	for _, k := range p.AcceptableAnswers() {
		nk := normalizeExpr(k)
		if nk == "" {
			continue
		}
		if nk == cand {
			return Result{Correct: true, Score: p.Points}
		}
		if !cOK {
			continue
		}
		if kv, ok := parseFloatStrict(nk); ok && math.Abs(cv-kv) <= tol {
			return Result{Correct: true, Score: p.Points}
		}
	}
	return Result{}
}

// normalizeExpr lowercases and drops every whitespace rune, so "2x + 3"
// and "2X+3" compare equal.
func normalizeExpr(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func parseFloatStrict(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
