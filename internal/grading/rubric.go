package grading

import "fmt"

type Rubric struct {
	Criteria []Criterion `json:"criteria"`
	Max      float64     `json:"max_points"`
}

type Criterion struct {
	Key       string  `json:"key"`
	Desc      string  `json:"desc"`
	MaxPoints float64 `json:"max_points"`
}

func ScoreRubric(r Rubric, awarded map[string]float64) (float64, []string) {
	total := 0.0
	notes := make([]string, 0, len(r.Criteria))
	for _, c := range r.Criteria {
		v := clamp(awarded[c.Key], 0, c.MaxPoints)
		total += v
		notes = append(notes, fmt.Sprintf("%s:%.2f", c.Key, v))
	}
	if r.Max > 0 && total > r.Max {
		total = r.Max
	}
	return total, notes
}

// ScoreManual turns a teacher-awarded score into a Result. The score is
// clamped into [0, p.Points]; only full points count as correct.
func ScoreManual(p Problem, awarded float64, comment string) Result {
	res := Result{Score: clamp(awarded, 0, p.Points)}
	res.Correct = res.Score == p.Points
	if comment != "" {
		res.Feedback = []string{comment}
	}
	return res
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
