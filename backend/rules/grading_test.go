package rules

import (
	"encoding/json"
	"testing"

	"github.com/userpeaseonly/basirat-course/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func taskMaterial(t *testing.T, questionType string, payload models.QuestionPayloadData) *models.Material {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &models.Material{
		Title:           "Task",
		MaterialType:    models.MaterialTask,
		QuestionType:    questionType,
		QuestionPayload: datatypes.JSON(raw),
	}
}

func submissionWithAnswer(t *testing.T, answer any) *models.TaskSubmission {
	t.Helper()

	raw, err := json.Marshal(models.AnswerPayloadData{Answer: answer})
	require.NoError(t, err)
	return &models.TaskSubmission{
		AnswerPayload: datatypes.JSON(raw),
		Status:        models.SubmissionPending,
	}
}

func TestAutoGradeSingleChoice(t *testing.T) {
	material := taskMaterial(t, models.SingleChoice, models.QuestionPayloadData{
		Question:      "2+2?",
		Choices:       []string{"3", "4"},
		CorrectAnswer: "4",
	})

	submission := submissionWithAnswer(t, "4")
	graded, err := AutoGrade(material, submission)
	require.NoError(t, err)
	assert.True(t, graded)
	require.NotNil(t, submission.Score)
	assert.Equal(t, float64(100), *submission.Score)
	assert.Equal(t, models.SubmissionGraded, submission.Status)
	assert.NotNil(t, submission.GradedAt)

	submission = submissionWithAnswer(t, "3")
	graded, err = AutoGrade(material, submission)
	require.NoError(t, err)
	assert.True(t, graded)
	assert.Equal(t, float64(0), *submission.Score)
}

func TestAutoGradeMultiChoiceSetEquality(t *testing.T) {
	material := taskMaterial(t, models.MultiChoice, models.QuestionPayloadData{
		Question:      "Pick the primes",
		Choices:       []string{"2", "3", "4"},
		CorrectAnswer: []string{"2", "3"},
	})

	// Order does not matter
	submission := submissionWithAnswer(t, []string{"3", "2"})
	graded, err := AutoGrade(material, submission)
	require.NoError(t, err)
	assert.True(t, graded)
	assert.Equal(t, float64(100), *submission.Score)

	// Subsets fail
	submission = submissionWithAnswer(t, []string{"2"})
	_, err = AutoGrade(material, submission)
	require.NoError(t, err)
	assert.Equal(t, float64(0), *submission.Score)

	// Supersets fail
	submission = submissionWithAnswer(t, []string{"2", "3", "4"})
	_, err = AutoGrade(material, submission)
	require.NoError(t, err)
	assert.Equal(t, float64(0), *submission.Score)
}

func TestAutoGradeFreeResponseDefersToReview(t *testing.T) {
	material := taskMaterial(t, models.FreeResponse, models.QuestionPayloadData{
		Question: "Explain.",
	})

	submission := submissionWithAnswer(t, "Because.")
	graded, err := AutoGrade(material, submission)
	require.NoError(t, err)
	assert.False(t, graded)
	assert.Nil(t, submission.Score)
	assert.Equal(t, models.SubmissionPending, submission.Status)
}

func TestIsPassing(t *testing.T) {
	submission := &models.TaskSubmission{}
	assert.False(t, IsPassing(submission), "no score means not passing")

	score := 89.9
	submission.Score = &score
	assert.False(t, IsPassing(submission))

	score = 90
	assert.True(t, IsPassing(submission))

	score = 100
	assert.True(t, IsPassing(submission))
}

func TestApplyGradeCreatesCompletionWhenPassing(t *testing.T) {
	db := openTestDB(t)

	submission := &models.TaskSubmission{
		MaterialID:    3,
		StudentID:     7,
		AttemptNumber: 1,
		Status:        models.SubmissionPending,
	}
	require.NoError(t, db.Create(submission).Error)

	require.NoError(t, ApplyGrade(db, submission, 95, "good work"))
	assert.Equal(t, models.SubmissionGraded, submission.Status)
	assert.NotNil(t, submission.GradedAt)

	var count int64
	require.NoError(t, db.Model(&models.MaterialCompletion{}).
		Where("material_id = ? AND student_id = ?", 3, 7).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestApplyGradeFailingScoreNoCompletion(t *testing.T) {
	db := openTestDB(t)

	submission := &models.TaskSubmission{
		MaterialID:    3,
		StudentID:     7,
		AttemptNumber: 1,
		Status:        models.SubmissionPending,
	}
	require.NoError(t, db.Create(submission).Error)

	require.NoError(t, ApplyGrade(db, submission, 40, "try again"))

	var count int64
	require.NoError(t, db.Model(&models.MaterialCompletion{}).
		Where("material_id = ? AND student_id = ?", 3, 7).
		Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
