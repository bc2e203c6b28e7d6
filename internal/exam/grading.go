package exam

import (
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/motoquiz-backend/internal/model"
)

// Score counts the slots whose answer equals the question's correct option.
// Unanswered slots and answers beyond the question set never count.
func Score(questions []model.Question, answers []int) int {
	score := 0
	for i, q := range questions {
		if i < len(answers) && answers[i] != Unanswered && answers[i] == q.CorrectAnswer {
			score++
		}
	}
	return score
}

// Percentage returns round(score/total*100) with halves rounded up, computed
// in integers. A zero total yields 0.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return (score*200 + total) / (2 * total)
}

// Passed applies the pass threshold.
func Passed(percentage int) bool {
	return percentage >= PassPercentage
}

// Grade builds the result record for a finished attempt.
func Grade(attemptID uuid.UUID, userID int, questions []model.Question, answers []int, at time.Time) *model.ExamResult {
	correct := make([]int, len(questions))
	ids := make([]uuid.UUID, len(questions))
	for i, q := range questions {
		correct[i] = q.CorrectAnswer
		ids[i] = q.ID
	}

	recorded := make([]int, len(questions))
	for i := range recorded {
		recorded[i] = Unanswered
		if i < len(answers) {
			recorded[i] = answers[i]
		}
	}

	score := Score(questions, recorded)
	pct := Percentage(score, len(questions))

	return &model.ExamResult{
		AttemptID:      attemptID,
		UserID:         userID,
		Score:          score,
		TotalQuestions: len(questions),
		Answers:        recorded,
		CorrectAnswers: correct,
		QuestionIDs:    ids,
		Passed:         Passed(pct),
		Percentage:     pct,
		Date:           at.UTC(),
	}
}
