package grading

type choiceStrategy struct{}

func (choiceStrategy) Grade(p Problem, a Answer) Result {
	if a.Index == nil {
		return Result{Feedback: []string{"no option selected"}}
	}
	return GradeMultipleChoice(p, *a.Index)
}

// GradeMultipleChoice awards full points when selected is the correct option.
func GradeMultipleChoice(p Problem, selected int) Result {
	if selected == p.CorrectAnswerIndex {
		return Result{Correct: true, Score: p.Points}
	}
	return Result{}
}
