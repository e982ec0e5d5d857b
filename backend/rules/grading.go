package rules

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/userpeaseonly/basirat-course/backend/models"
	"gorm.io/gorm"
)

// AutoGrade scores a submission against its material's correct answer.
// Returns true when the submission was graded. Free-response materials are
// never auto-graded and stay pending_review for manual grading.
func AutoGrade(material *models.Material, submission *models.TaskSubmission) (bool, error) {
	if material.QuestionType == models.FreeResponse {
		return false, nil
	}

	var payload models.QuestionPayloadData
	if err := json.Unmarshal(material.QuestionPayload, &payload); err != nil {
		return false, fmt.Errorf("invalid question payload: %w", err)
	}

	var answer models.AnswerPayloadData
	if err := json.Unmarshal(submission.AnswerPayload, &answer); err != nil {
		return false, fmt.Errorf("invalid answer payload: %w", err)
	}

	var score float64
	switch material.QuestionType {
	case models.SingleChoice:
		expected, _ := payload.CorrectAnswer.(string)
		got, _ := answer.Answer.(string)
		if expected != "" && got == expected {
			score = 100
		}
	case models.MultiChoice:
		if sameChoiceSet(toStringSlice(payload.CorrectAnswer), toStringSlice(answer.Answer)) {
			score = 100
		}
	default:
		return false, fmt.Errorf("unknown question type %q", material.QuestionType)
	}

	now := time.Now()
	submission.Score = &score
	submission.Status = models.SubmissionGraded
	submission.GradedAt = &now
	return true, nil
}

// IsPassing reports whether a submission clears the passing bar.
func IsPassing(submission *models.TaskSubmission) bool {
	return submission.Score != nil && *submission.Score >= PassingScore
}

// ApplyGrade records a manual grade and creates the material completion when
// the score is passing.
func ApplyGrade(db *gorm.DB, submission *models.TaskSubmission, score float64, feedback string) error {
	now := time.Now()
	submission.Status = models.SubmissionGraded
	submission.Score = &score
	submission.Feedback = feedback
	submission.GradedAt = &now

	if err := db.Save(submission).Error; err != nil {
		return err
	}
	if IsPassing(submission) {
		return CompleteMaterial(db, submission.MaterialID, submission.StudentID)
	}
	return nil
}

// sameChoiceSet compares two choice lists as sets, ignoring order and
// duplicates.
func sameChoiceSet(expected, got []string) bool {
	if len(expected) == 0 || len(got) == 0 {
		return false
	}
	want := make(map[string]bool, len(expected))
	for _, c := range expected {
		want[c] = true
	}
	have := make(map[string]bool, len(got))
	for _, c := range got {
		if !want[c] {
			return false
		}
		have[c] = true
	}
	return len(have) == len(want)
}

// toStringSlice converts a decoded JSON value ([]interface{} or []string)
// into a string slice.
func toStringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
