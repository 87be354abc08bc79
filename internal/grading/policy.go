package grading

// ApplyAttemptPolicy caps the reward of a correct answer submitted after the
// attempt limit at half the problem's points. It never lowers an incorrect
// result further.
func ApplyAttemptPolicy(p Problem, priorAttempts int, base Result) Result {
	base.IsHalfCredit = false
	if p.MaxAttempts <= 0 || !base.Correct {
		return base
	}
	if priorAttempts+1 > p.MaxAttempts {
		base.Score = p.Points / 2
		base.IsHalfCredit = true
		base.Feedback = append(base.Feedback, "attempt limit exceeded: half credit")
	}
	return base
}

// State is where a (student, problem) pair stands.
type State string

const (
	StateUnattempted         State = "unattempted"
	StateInProgress          State = "in-progress"
	StateCompletedFullCredit State = "completed-full-credit"
	StateCompletedHalfCredit State = "completed-half-credit"
)

// Terminal reports whether no further submissions are accepted.
func (s State) Terminal() bool {
	return s == StateCompletedFullCredit || s == StateCompletedHalfCredit
}

// ProgressState derives the state from the attempt count and the latest
// recorded result (nil when nothing was recorded yet).
func ProgressState(p Problem, attempts int, latest *Result) State {
	switch {
	case latest != nil && latest.IsHalfCredit:
		return StateCompletedHalfCredit
	case latest != nil && latest.Score >= p.Points:
		return StateCompletedFullCredit
	case attempts <= 0 && latest == nil:
		return StateUnattempted
	default:
		return StateInProgress
	}
}

// Locked reports whether latest closes the problem for further submissions.
func Locked(p Problem, latest *Result) bool {
	return ProgressState(p, 1, latest).Terminal()
}

// AttemptsLeft returns the remaining attempts at full credit, or -1 when the
// problem has no limit.
func AttemptsLeft(p Problem, attempts int) int {
	if p.MaxAttempts <= 0 {
		return -1
	}
	if left := p.MaxAttempts - attempts; left > 0 {
		return left
	}
	return 0
}
