package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireflow/backend/models"
	"github.com/hireflow/backend/repository"
)

type fakeQuizGenerator struct {
	questions []models.QuizQuestion
	err       error
	calls     int
}

func (f *fakeQuizGenerator) GenerateQuizQuestions(ctx context.Context, job *models.Job, easy, medium, hard int) ([]models.QuizQuestion, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.questions, nil
}

func testQuestions() []models.QuizQuestion {
	return []models.QuizQuestion{
		{ID: "q1", Text: "What does a goroutine run on?", Options: []string{"A thread pool", "The GPU", "A separate process", "The kernel"}, CorrectIndex: 0, Difficulty: models.DifficultyEasy},
		{ID: "q2", Text: "Which isolation level is Postgres' default?", Options: []string{"Serializable", "Read committed", "Repeatable read", "Read uncommitted"}, CorrectIndex: 1, Difficulty: models.DifficultyMedium},
		{ID: "q3", Text: "What does a nil map lookup return?", Options: []string{"A panic", "An error", "The zero value", "Undefined behavior"}, CorrectIndex: 2, Difficulty: models.DifficultyHard},
	}
}

func newTestQuizEngine(store *fakeStore, generator *fakeQuizGenerator) *QuizEngine {
	pipeline := NewScreeningPipeline(store, nil, nil, testPolicy())
	return NewQuizEngine(store, generator, pipeline, testPolicy())
}

func TestEnsureQuizGeneratesOnce(t *testing.T) {
	store := newFakeStore()
	job := testJob(store)
	generator := &fakeQuizGenerator{questions: testQuestions()}
	engine := newTestQuizEngine(store, generator)

	quiz, err := engine.EnsureQuiz(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 70, quiz.PassingScore)
	assert.Equal(t, 30, quiz.TimeLimit)
	assert.Len(t, quiz.Questions, 3)

	// Second call reuses the stored quiz.
	again, err := engine.EnsureQuiz(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, quiz.ID, again.ID)
	assert.Equal(t, 1, generator.calls)
}

func TestEnsureQuizGenerationFailure(t *testing.T) {
	store := newFakeStore()
	job := testJob(store)
	generator := &fakeQuizGenerator{err: &ErrCollaborator{Service: "gemini", Err: errors.New("bad json")}}
	engine := newTestQuizEngine(store, generator)

	_, err := engine.EnsureQuiz(context.Background(), job)
	require.Error(t, err)
	assert.Empty(t, store.quizzes, "a failed generation must not leave a partial quiz")
}

func TestEnsureQuizLosesInsertRace(t *testing.T) {
	store := newFakeStore()
	job := testJob(store)
	store.createQuizErr = repository.ErrDuplicate
	store.quizzes[job.ID] = &models.Quiz{ID: "quiz-winner", JobID: job.ID, PassingScore: 70}
	generator := &fakeQuizGenerator{questions: testQuestions()}
	engine := newTestQuizEngine(store, generator)

	quiz, err := engine.EnsureQuiz(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "quiz-winner", quiz.ID)
}

func TestStartAttempt(t *testing.T) {
	store := newFakeStore()
	testJob(store)
	generator := &fakeQuizGenerator{questions: testQuestions()}
	engine := newTestQuizEngine(store, generator)

	app := &models.Application{ID: "app-1", JobID: "job-1", CandidateID: "cand-1", ScreeningStage: models.StageQuizPending}
	quiz, err := engine.StartAttempt(context.Background(), app)
	require.NoError(t, err)
	assert.NotNil(t, quiz)
	assert.Equal(t, models.StageQuizInProgress, app.ScreeningStage)
	assert.Equal(t, 1, app.QuizAttempts)

	// The single attempt is spent: starting again fails.
	_, err = engine.StartAttempt(context.Background(), app)
	var precondition *ErrPrecondition
	require.True(t, errors.As(err, &precondition))
}

func TestSubmitAttemptGrading(t *testing.T) {
	store := newFakeStore()
	testJob(store)
	store.quizzes["job-1"] = &models.Quiz{ID: "quiz-1", JobID: "job-1", PassingScore: 70, Questions: testQuestions()}
	engine := newTestQuizEngine(store, &fakeQuizGenerator{})

	app := &models.Application{ID: "app-1", JobID: "job-1", CandidateID: "cand-1", ScreeningStage: models.StageQuizInProgress}

	// Two correct, one wrong: 67%, below the 70 passing score.
	result, err := engine.SubmitAttempt(context.Background(), app, map[string]int{"q1": 0, "q2": 1, "q3": 0})
	require.NoError(t, err)
	assert.Equal(t, 67, result.Score)
	assert.Equal(t, 2, result.Correct)
	assert.Equal(t, 3, result.Total)
	assert.False(t, result.Passed)
	assert.Equal(t, models.StageQuizFailed, app.ScreeningStage)

	require.Len(t, store.answers, 3)
	for _, answer := range store.answers {
		require.NotNil(t, answer.SubmittedIndex)
	}
}

func TestSubmitAttemptMissingAnswersGradeIncorrect(t *testing.T) {
	store := newFakeStore()
	testJob(store)
	store.quizzes["job-1"] = &models.Quiz{ID: "quiz-1", JobID: "job-1", PassingScore: 60, Questions: testQuestions()}
	engine := newTestQuizEngine(store, &fakeQuizGenerator{})

	app := &models.Application{ID: "app-1", JobID: "job-1", CandidateID: "cand-1", ScreeningStage: models.StageQuizInProgress}

	result, err := engine.SubmitAttempt(context.Background(), app, map[string]int{"q1": 0, "q2": 1})
	require.NoError(t, err)
	assert.Equal(t, 67, result.Score)
	assert.True(t, result.Passed)
	assert.Equal(t, models.StageVideoPending, app.ScreeningStage)

	var unanswered *models.QuizAnswer
	for i := range store.answers {
		if store.answers[i].QuestionID == "q3" {
			unanswered = &store.answers[i]
		}
	}
	require.NotNil(t, unanswered)
	assert.Nil(t, unanswered.SubmittedIndex)
	assert.False(t, unanswered.IsCorrect)
}

func TestSubmitAttemptRequiresInProgress(t *testing.T) {
	store := newFakeStore()
	testJob(store)
	store.quizzes["job-1"] = &models.Quiz{ID: "quiz-1", JobID: "job-1", PassingScore: 70, Questions: testQuestions()}
	engine := newTestQuizEngine(store, &fakeQuizGenerator{})

	app := &models.Application{ID: "app-1", JobID: "job-1", CandidateID: "cand-1", ScreeningStage: models.StageVideoPending}
	_, err := engine.SubmitAttempt(context.Background(), app, map[string]int{"q1": 0})
	var precondition *ErrPrecondition
	require.True(t, errors.As(err, &precondition))
}
