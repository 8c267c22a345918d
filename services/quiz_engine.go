package services

import (
	"context"
	"log/slog"
	"math"

	"github.com/hireflow/backend/models"
	"github.com/hireflow/backend/repository"
)

// QuizGenerator produces a job's question set with exact per-difficulty counts.
type QuizGenerator interface {
	GenerateQuizQuestions(ctx context.Context, job *models.Job, easy, medium, hard int) ([]models.QuizQuestion, error)
}

// QuizStore is the persistence surface the quiz engine needs.
type QuizStore interface {
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	GetQuizByJob(ctx context.Context, jobID string) (*models.Quiz, error)
	CreateQuiz(ctx context.Context, quiz *models.Quiz) error
}

// QuizResult summarizes one graded attempt.
type QuizResult struct {
	Score   int  `json:"score"`
	Correct int  `json:"correct"`
	Total   int  `json:"total"`
	Passed  bool `json:"passed"`
}

// QuizEngine generates per-job quizzes lazily and grades the candidate's single
// scored attempt. Stage movement is delegated to the pipeline.
type QuizEngine struct {
	store     QuizStore
	generator QuizGenerator
	pipeline  *ScreeningPipeline
	policy    ScreeningConfig
}

func NewQuizEngine(store QuizStore, generator QuizGenerator, pipeline *ScreeningPipeline, policy ScreeningConfig) *QuizEngine {
	return &QuizEngine{
		store:     store,
		generator: generator,
		pipeline:  pipeline,
		policy:    policy,
	}
}

// EnsureQuiz returns the job's quiz, generating it on first use. The quiz is
// immutable once created; a concurrent double-generation resolves to whichever
// insert won.
func (q *QuizEngine) EnsureQuiz(ctx context.Context, job *models.Job) (*models.Quiz, error) {
	quiz, err := q.store.GetQuizByJob(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	if quiz != nil {
		return quiz, nil
	}

	questions, err := q.generator.GenerateQuizQuestions(ctx, job, q.policy.QuizEasyCount, q.policy.QuizMediumCount, q.policy.QuizHardCount)
	if err != nil {
		return nil, err
	}

	quiz = &models.Quiz{
		JobID:        job.ID,
		PassingScore: q.policy.QuizPassingScore,
		TimeLimit:    q.policy.QuizTimeLimit,
		EasyCount:    q.policy.QuizEasyCount,
		MediumCount:  q.policy.QuizMediumCount,
		HardCount:    q.policy.QuizHardCount,
		Questions:    questions,
	}
	if err := q.store.CreateQuiz(ctx, quiz); err != nil {
		if err == repository.ErrDuplicate {
			return q.store.GetQuizByJob(ctx, job.ID)
		}
		return nil, err
	}
	return quiz, nil
}

// StartAttempt begins the candidate's only scored attempt and returns the quiz.
// Answer keys never leave the server; QuizQuestion hides CorrectIndex and
// Explanation from serialization.
func (q *QuizEngine) StartAttempt(ctx context.Context, app *models.Application) (*models.Quiz, error) {
	job, err := q.store.GetJob(ctx, app.JobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, &ErrNotFound{Resource: "job"}
	}

	quiz, err := q.EnsureQuiz(ctx, job)
	if err != nil {
		return nil, err
	}

	if err := q.pipeline.BeginQuiz(ctx, app); err != nil {
		return nil, err
	}

	slog.Info("Quiz attempt started", "application_id", app.ID, "quiz_id", quiz.ID)
	return quiz, nil
}

// SubmitAttempt grades the attempt against the server-side answer key. Answers
// are keyed by question id; a question without an answer is graded incorrect.
// Only callable from quiz_in_progress, so a second submission is rejected.
func (q *QuizEngine) SubmitAttempt(ctx context.Context, app *models.Application, submitted map[string]int) (*QuizResult, error) {
	if app.ScreeningStage != models.StageQuizInProgress {
		return nil, &ErrPrecondition{Operation: "submit quiz", CurrentStage: app.ScreeningStage}
	}

	quiz, err := q.store.GetQuizByJob(ctx, app.JobID)
	if err != nil {
		return nil, err
	}
	if quiz == nil || len(quiz.Questions) == 0 {
		return nil, &ErrNotFound{Resource: "quiz"}
	}

	correct := 0
	answers := make([]models.QuizAnswer, 0, len(quiz.Questions))
	for _, question := range quiz.Questions {
		answer := models.QuizAnswer{
			ApplicationID: app.ID,
			QuestionID:    question.ID,
			CorrectIndex:  question.CorrectIndex,
		}
		if idx, ok := submitted[question.ID]; ok {
			submittedIdx := idx
			answer.SubmittedIndex = &submittedIdx
			answer.IsCorrect = idx == question.CorrectIndex
		}
		if answer.IsCorrect {
			correct++
		}
		answers = append(answers, answer)
	}

	total := len(quiz.Questions)
	score := int(math.Round(float64(correct) / float64(total) * 100))

	if err := q.pipeline.RecordQuizResult(ctx, app, quiz, score, answers); err != nil {
		return nil, err
	}

	slog.Info("Quiz attempt graded", "application_id", app.ID, "score", score, "correct", correct, "total", total)
	return &QuizResult{
		Score:   score,
		Correct: correct,
		Total:   total,
		Passed:  score >= quiz.PassingScore,
	}, nil
}
