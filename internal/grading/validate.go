package grading

import (
	"fmt"
	"strings"
)

// ValidateProblem checks authoring-time integrity. Grading itself assumes
// problems passed this check and does not re-validate them.
func ValidateProblem(p Problem) error {
	if p.Points <= 0 {
		return fmt.Errorf("%w: points must be positive", ErrInvalidProblem)
	}
	if p.MaxAttempts < 0 {
		return fmt.Errorf("%w: max_attempts must not be negative", ErrInvalidProblem)
	}
	switch p.Kind {
	case KindMultipleChoice:
		if len(p.Options) == 0 {
			return fmt.Errorf("%w: multiple-choice needs at least one option", ErrInvalidProblem)
		}
		if p.CorrectAnswerIndex < 0 || p.CorrectAnswerIndex >= len(p.Options) {
			return fmt.Errorf("%w: correct_answer_index %d out of range [0,%d)", ErrInvalidProblem, p.CorrectAnswerIndex, len(p.Options))
		}
	case KindMathExpression:
		ok := false
		for _, a := range p.AcceptableAnswers() {
			if strings.TrimSpace(a) != "" {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("%w: math-expression needs an acceptable answer", ErrInvalidProblem)
		}
		if p.Tolerance != nil && *p.Tolerance < 0 {
			return fmt.Errorf("%w: tolerance must not be negative", ErrInvalidProblem)
		}
	case KindOpenEnded:
		if len(cleanKeywords(p.Keywords)) == 0 {
			return fmt.Errorf("%w: open-ended needs at least one keyword", ErrInvalidProblem)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidProblem, p.Kind)
	}
	return nil
}

// CheckComplete rejects answers that are missing altogether. Present but
// malformed answers pass and simply grade as incorrect.
func CheckComplete(p Problem, a Answer) error {
	switch p.Kind {
	case KindMultipleChoice:
		if a.Index == nil {
			return fmt.Errorf("%w: select an option", ErrIncompleteSubmission)
		}
		if *a.Index < 0 || *a.Index >= len(p.Options) {
			return fmt.Errorf("%w: option %d does not exist", ErrIncompleteSubmission, *a.Index)
		}
	default:
		if strings.TrimSpace(a.Text) == "" {
			return fmt.Errorf("%w: answer is empty", ErrIncompleteSubmission)
		}
	}
	return nil
}
