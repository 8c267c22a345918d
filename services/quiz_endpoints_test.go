package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireflow/backend/models"
)

func TestJobQuizViewIncludesAnswerKey(t *testing.T) {
	questions := testQuestions()
	questions[0].Explanation = "Goroutines are multiplexed onto OS threads by the runtime."
	quiz := &models.Quiz{
		ID:           "quiz-1",
		JobID:        "job-1",
		PassingScore: 70,
		TimeLimit:    30,
		EasyCount:    1,
		MediumCount:  1,
		HardCount:    1,
		Questions:    questions,
	}

	view := jobQuizView(quiz)
	require.Len(t, view.Questions, 3)
	assert.Equal(t, 0, view.Questions[0].CorrectIndex)
	assert.Equal(t, 2, view.Questions[2].CorrectIndex)
	assert.Equal(t, questions[0].Explanation, view.Questions[0].Explanation)

	// The employer payload carries the key; the model itself still hides it.
	employerJSON, err := json.Marshal(view)
	require.NoError(t, err)
	assert.Contains(t, string(employerJSON), `"correct_index"`)
	assert.Contains(t, string(employerJSON), `"explanation"`)

	candidateJSON, err := json.Marshal(quiz.Questions[0])
	require.NoError(t, err)
	assert.NotContains(t, string(candidateJSON), "correct_index")
	assert.NotContains(t, string(candidateJSON), "explanation")
}
