package app

import "trivia-session-service/internal/domain"

// Score grades one answer: exact, case-sensitive match earns the question's
// points, anything else earns nothing. Time spent never affects points.
func Score(q domain.Question, selectedAnswer string) (bool, int) {
	if selectedAnswer == q.CorrectAnswer {
		return true, q.Points
	}
	return false, 0
}

// Tally recomputes a participant's totals from their answer log.
func Tally(answers []domain.Answer) (score, correct, answered int) {
	for _, a := range answers {
		score += a.PointsEarned
		if a.IsCorrect {
			correct++
		}
	}
	return score, correct, len(answers)
}
