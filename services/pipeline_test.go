package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireflow/backend/models"
	"github.com/hireflow/backend/repository"
)

// fakeStore is an in-memory PipelineStore, QuizStore and SessionStore used
// across the service tests.
type fakeStore struct {
	mu sync.Mutex

	jobs    map[string]*models.Job
	users   map[string]*models.User
	apps    map[string]*models.Application
	quizzes map[string]*models.Quiz

	events  []models.StageEvent
	answers []models.QuizAnswer
	reports []models.VideoReport
	turns   []models.InterviewTurn

	createAppErr  error
	createQuizErr error
	raceApp       *models.Application

	nextID int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:    make(map[string]*models.Job),
		users:   make(map[string]*models.User),
		apps:    make(map[string]*models.Application),
		quizzes: make(map[string]*models.Quiz),
	}
}

func (f *fakeStore) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs[jobID], nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id], nil
}

func (f *fakeStore) GetApplication(ctx context.Context, applicationID string) (*models.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.apps[applicationID], nil
}

func (f *fakeStore) GetApplicationByJobAndCandidate(ctx context.Context, jobID, candidateID string) (*models.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.raceApp != nil && f.raceApp.JobID == jobID && f.raceApp.CandidateID == candidateID {
		return f.raceApp, nil
	}
	for _, app := range f.apps {
		if app.JobID == jobID && app.CandidateID == candidateID {
			return app, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateApplication(ctx context.Context, app *models.Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createAppErr != nil {
		return f.createAppErr
	}
	f.nextID++
	app.ID = fmt.Sprintf("app-%d", f.nextID)
	f.apps[app.ID] = app
	return nil
}

func (f *fakeStore) Transition(ctx context.Context, app *models.Application, event *models.StageEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeStore) UpdateApplicationsStatus(ctx context.Context, jobID string, applicationIDs []string, status string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var updated []string
	for _, id := range applicationIDs {
		if app, ok := f.apps[id]; ok && app.JobID == jobID {
			app.Status = status
			updated = append(updated, id)
		}
	}
	return updated, nil
}

func (f *fakeStore) CreateQuizAnswers(ctx context.Context, answers []models.QuizAnswer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, answers...)
	return nil
}

func (f *fakeStore) CreateVideoReport(ctx context.Context, report *models.VideoReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.reports {
		if existing.ApplicationID == report.ApplicationID {
			return repository.ErrDuplicate
		}
	}
	f.reports = append(f.reports, *report)
	return nil
}

func (f *fakeStore) CreateInterviewTurns(ctx context.Context, turns []models.InterviewTurn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, turns...)
	return nil
}

func (f *fakeStore) GetQuizByJob(ctx context.Context, jobID string) (*models.Quiz, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quizzes[jobID], nil
}

func (f *fakeStore) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createQuizErr != nil {
		return f.createQuizErr
	}
	if _, ok := f.quizzes[quiz.JobID]; ok {
		return repository.ErrDuplicate
	}
	f.nextID++
	quiz.ID = fmt.Sprintf("quiz-%d", f.nextID)
	f.quizzes[quiz.JobID] = quiz
	return nil
}

type fakeScorer struct {
	score *ResumeScore
	err   error
	calls int
}

func (f *fakeScorer) ScoreResume(ctx context.Context, job *models.Job, resumeText string) (*ResumeScore, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.score, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	sends []string
}

func (f *fakeNotifier) Send(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, to+": "+subject)
	return nil
}

func testPolicy() ScreeningConfig {
	return ScreeningConfig{
		ResumeThreshold:  60,
		QuizPassingScore: 70,
		QuizTimeLimit:    30,
		QuizEasyCount:    1,
		QuizMediumCount:  1,
		QuizHardCount:    1,
		ResumeWeight:     40,
		QuizWeight:       30,
		VideoWeight:      30,
	}
}

func testJob(store *fakeStore) *models.Job {
	job := &models.Job{
		ID:                "job-1",
		PostedBy:          "employer-1",
		Title:             "Backend Engineer",
		Company:           "Acme",
		IsActive:          true,
		InterviewDuration: 15,
		RequiredSkills:    []string{"Go", "PostgreSQL"},
	}
	store.jobs[job.ID] = job
	return job
}

func testCandidate(store *fakeStore) *models.User {
	user := &models.User{
		ID:    "cand-1",
		Email: "candidate@example.com",
		Role:  models.RoleCandidate,
	}
	store.users[user.ID] = user
	return user
}

func TestSubmitApplicationPassesThreshold(t *testing.T) {
	store := newFakeStore()
	testJob(store)
	candidate := testCandidate(store)
	scorer := &fakeScorer{score: &ResumeScore{MatchScore: 85, Justification: "strong match", SkillMatchPct: 90}}
	pipeline := NewScreeningPipeline(store, scorer, nil, testPolicy())

	app, created, err := pipeline.SubmitApplication(context.Background(), candidate, "job-1", "/tmp/resume.pdf", "resume text")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.StageQuizPending, app.ScreeningStage)
	assert.Equal(t, models.StatusPending, app.Status)
	require.NotNil(t, app.AIMatchScore)
	assert.Equal(t, 85, *app.AIMatchScore)
	require.NotNil(t, app.OverallScore)
	assert.Equal(t, 85, *app.OverallScore)

	require.Len(t, store.events, 1)
	assert.Equal(t, models.StageQuizPending, store.events[0].Stage)
	assert.Equal(t, "passed", store.events[0].Outcome)
}

func TestSubmitApplicationBelowThreshold(t *testing.T) {
	store := newFakeStore()
	testJob(store)
	candidate := testCandidate(store)
	scorer := &fakeScorer{score: &ResumeScore{MatchScore: 42}}
	pipeline := NewScreeningPipeline(store, scorer, nil, testPolicy())

	app, created, err := pipeline.SubmitApplication(context.Background(), candidate, "job-1", "/tmp/resume.pdf", "resume text")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.StageResumeRejected, app.ScreeningStage)
	assert.Equal(t, models.StatusRejected, app.Status)
	assert.True(t, app.IsTerminal())

	require.Len(t, store.events, 1)
	assert.Equal(t, models.StageResumeRejected, store.events[0].Stage)
	assert.Equal(t, "failed", store.events[0].Outcome)
}

func TestSubmitApplicationCreatesJobQuiz(t *testing.T) {
	store := newFakeStore()
	testJob(store)
	candidate := testCandidate(store)
	scorer := &fakeScorer{score: &ResumeScore{MatchScore: 85}}
	generator := &fakeQuizGenerator{questions: testQuestions()}
	pipeline := NewScreeningPipeline(store, scorer, nil, testPolicy())
	pipeline.SetQuizProvisioner(NewQuizEngine(store, generator, pipeline, testPolicy()))

	app, created, err := pipeline.SubmitApplication(context.Background(), candidate, "job-1", "/tmp/resume.pdf", "resume text")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.StageQuizPending, app.ScreeningStage)

	// The quiz exists as soon as the candidate reaches quiz_pending.
	quiz := store.quizzes["job-1"]
	require.NotNil(t, quiz)
	assert.Len(t, quiz.Questions, 3)
	assert.Equal(t, 1, generator.calls)
}

func TestSubmitApplicationQuizGenerationFailureKeepsApplication(t *testing.T) {
	store := newFakeStore()
	testJob(store)
	candidate := testCandidate(store)
	scorer := &fakeScorer{score: &ResumeScore{MatchScore: 85}}
	generator := &fakeQuizGenerator{err: &ErrCollaborator{Service: "gemini", Err: errors.New("bad json")}}
	pipeline := NewScreeningPipeline(store, scorer, nil, testPolicy())
	pipeline.SetQuizProvisioner(NewQuizEngine(store, generator, pipeline, testPolicy()))

	// Generation failure is deferred to quiz start, not surfaced to the
	// candidate submitting a résumé.
	app, created, err := pipeline.SubmitApplication(context.Background(), candidate, "job-1", "/tmp/resume.pdf", "resume text")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.StageQuizPending, app.ScreeningStage)
	assert.Empty(t, store.quizzes)
}

func TestSubmitApplicationBelowThresholdSkipsQuizGeneration(t *testing.T) {
	store := newFakeStore()
	testJob(store)
	candidate := testCandidate(store)
	scorer := &fakeScorer{score: &ResumeScore{MatchScore: 42}}
	generator := &fakeQuizGenerator{questions: testQuestions()}
	pipeline := NewScreeningPipeline(store, scorer, nil, testPolicy())
	pipeline.SetQuizProvisioner(NewQuizEngine(store, generator, pipeline, testPolicy()))

	app, _, err := pipeline.SubmitApplication(context.Background(), candidate, "job-1", "/tmp/resume.pdf", "resume text")
	require.NoError(t, err)
	assert.Equal(t, models.StageResumeRejected, app.ScreeningStage)
	assert.Zero(t, generator.calls)
	assert.Empty(t, store.quizzes)
}

func TestSubmitApplicationScoringFailureFailClosed(t *testing.T) {
	store := newFakeStore()
	testJob(store)
	candidate := testCandidate(store)
	scorer := &fakeScorer{err: &ErrCollaborator{Service: "gemini", Err: errors.New("timeout")}}
	pipeline := NewScreeningPipeline(store, scorer, nil, testPolicy())

	app, created, err := pipeline.SubmitApplication(context.Background(), candidate, "job-1", "/tmp/resume.pdf", "resume text")
	require.Error(t, err)
	assert.Nil(t, app)
	assert.False(t, created)

	var collab *ErrCollaborator
	assert.True(t, errors.As(err, &collab))

	// Fail-closed: no application row, no events.
	assert.Empty(t, store.apps)
	assert.Empty(t, store.events)
}

func TestSubmitApplicationDuplicateReturnsExisting(t *testing.T) {
	store := newFakeStore()
	testJob(store)
	candidate := testCandidate(store)
	existing := &models.Application{ID: "app-existing", JobID: "job-1", CandidateID: "cand-1", ScreeningStage: models.StageQuizPending}
	store.apps[existing.ID] = existing
	scorer := &fakeScorer{score: &ResumeScore{MatchScore: 85}}
	pipeline := NewScreeningPipeline(store, scorer, nil, testPolicy())

	app, created, err := pipeline.SubmitApplication(context.Background(), candidate, "job-1", "/tmp/resume.pdf", "resume text")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "app-existing", app.ID)
	assert.Zero(t, scorer.calls, "existing application must not be re-scored")
}

func TestSubmitApplicationDuplicateInsertRace(t *testing.T) {
	store := newFakeStore()
	testJob(store)
	candidate := testCandidate(store)
	store.createAppErr = repository.ErrDuplicate
	store.raceApp = &models.Application{ID: "app-winner", JobID: "job-1", CandidateID: "cand-1", ScreeningStage: models.StageQuizPending}
	scorer := &fakeScorer{score: &ResumeScore{MatchScore: 85}}
	pipeline := NewScreeningPipeline(store, scorer, nil, testPolicy())

	app, created, err := pipeline.SubmitApplication(context.Background(), candidate, "job-1", "/tmp/resume.pdf", "resume text")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "app-winner", app.ID)
}

func TestSubmitApplicationJobChecks(t *testing.T) {
	store := newFakeStore()
	job := testJob(store)
	candidate := testCandidate(store)
	scorer := &fakeScorer{score: &ResumeScore{MatchScore: 85}}
	pipeline := NewScreeningPipeline(store, scorer, nil, testPolicy())

	_, _, err := pipeline.SubmitApplication(context.Background(), candidate, "job-missing", "/tmp/r.pdf", "text")
	var notFound *ErrNotFound
	require.True(t, errors.As(err, &notFound))

	job.IsActive = false
	_, _, err = pipeline.SubmitApplication(context.Background(), candidate, "job-1", "/tmp/r.pdf", "text")
	var validation *ErrValidation
	require.True(t, errors.As(err, &validation))
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		expected bool
	}{
		{models.StageResumeUploaded, models.StageQuizPending, true},
		{models.StageResumeUploaded, models.StageResumeRejected, true},
		{models.StageQuizPending, models.StageQuizInProgress, true},
		{models.StageQuizInProgress, models.StageVideoPending, true},
		{models.StageFinalReview, models.StageEmployerScheduled, true},
		{models.StageEmployerInterviewCompleted, models.StageHired, true},

		// Backward moves are never allowed.
		{models.StageQuizPending, models.StageResumeUploaded, false},
		{models.StageVideoCompleted, models.StageVideoInProgress, false},

		// Terminal stages have no outgoing edges.
		{models.StageResumeRejected, models.StageQuizPending, false},
		{models.StageQuizFailed, models.StageVideoPending, false},
		{models.StageHired, models.StageFinalReview, false},

		// No stage skipping.
		{models.StageQuizPending, models.StageVideoPending, false},
		{models.StageResumeUploaded, models.StageFinalReview, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanTransition(tt.from, tt.to))
		})
	}
}

func TestBeginQuiz(t *testing.T) {
	store := newFakeStore()
	pipeline := NewScreeningPipeline(store, nil, nil, testPolicy())

	app := &models.Application{ID: "app-1", ScreeningStage: models.StageQuizPending}
	require.NoError(t, pipeline.BeginQuiz(context.Background(), app))
	assert.Equal(t, models.StageQuizInProgress, app.ScreeningStage)
	assert.Equal(t, 1, app.QuizAttempts)
	assert.NotNil(t, app.QuizStartedAt)

	// A second start is a precondition failure, not a reset.
	err := pipeline.BeginQuiz(context.Background(), app)
	var precondition *ErrPrecondition
	require.True(t, errors.As(err, &precondition))
	assert.Equal(t, 1, app.QuizAttempts)
}

func TestRecordQuizResultPass(t *testing.T) {
	store := newFakeStore()
	testJob(store)
	pipeline := NewScreeningPipeline(store, nil, nil, testPolicy())

	resumeScore := 80
	app := &models.Application{
		ID:             "app-1",
		JobID:          "job-1",
		CandidateID:    "cand-1",
		ScreeningStage: models.StageQuizInProgress,
		AIMatchScore:   &resumeScore,
	}
	quiz := &models.Quiz{ID: "quiz-1", JobID: "job-1", PassingScore: 70}
	answers := []models.QuizAnswer{{ApplicationID: "app-1", QuestionID: "q1", IsCorrect: true}}

	require.NoError(t, pipeline.RecordQuizResult(context.Background(), app, quiz, 90, answers))
	assert.Equal(t, models.StageVideoPending, app.ScreeningStage)
	require.NotNil(t, app.QuizScore)
	assert.Equal(t, 90, *app.QuizScore)
	assert.NotNil(t, app.QuizCompletedAt)

	// (80*40 + 90*30) / 70 rounds to 84.
	require.NotNil(t, app.OverallScore)
	assert.Equal(t, 84, *app.OverallScore)

	require.Len(t, store.answers, 1)
	require.Len(t, store.events, 1)
	assert.Equal(t, "passed", store.events[0].Outcome)
}

func TestRecordQuizResultFail(t *testing.T) {
	store := newFakeStore()
	testJob(store)
	pipeline := NewScreeningPipeline(store, nil, nil, testPolicy())

	app := &models.Application{ID: "app-1", JobID: "job-1", CandidateID: "cand-1", ScreeningStage: models.StageQuizInProgress}
	quiz := &models.Quiz{ID: "quiz-1", JobID: "job-1", PassingScore: 70}

	require.NoError(t, pipeline.RecordQuizResult(context.Background(), app, quiz, 40, nil))
	assert.Equal(t, models.StageQuizFailed, app.ScreeningStage)
	assert.Equal(t, models.StatusRejected, app.Status)
	assert.True(t, app.IsTerminal())
}

func TestRecordVideoResultAnalyzed(t *testing.T) {
	store := newFakeStore()
	testJob(store)
	pipeline := NewScreeningPipeline(store, nil, nil, testPolicy())

	resumeScore, quizScore := 80, 90
	app := &models.Application{
		ID:             "app-1",
		JobID:          "job-1",
		CandidateID:    "cand-1",
		ScreeningStage: models.StageVideoInProgress,
		AIMatchScore:   &resumeScore,
		QuizScore:      &quizScore,
	}
	analysis := &InterviewAnalysis{OverallScore: 70, CommunicationScore: 75, TechnicalScore: 65, ConfidenceScore: 72, Feedback: "solid"}
	turns := []models.InterviewTurn{
		{ApplicationID: "app-1", TurnOrder: 1, Speaker: models.SpeakerInterviewer, Content: "Tell me about yourself", Timestamp: time.Now()},
		{ApplicationID: "app-1", TurnOrder: 2, Speaker: models.SpeakerCandidate, Content: "I build backends", Timestamp: time.Now()},
	}

	require.NoError(t, pipeline.RecordVideoResult(context.Background(), app, analysis, turns))
	assert.Equal(t, models.StageFinalReview, app.ScreeningStage)
	assert.NotNil(t, app.VideoInterviewCompletedAt)

	// (80*40 + 90*30 + 70*30) / 100 = 80.
	require.NotNil(t, app.OverallScore)
	assert.Equal(t, 80, *app.OverallScore)

	require.Len(t, store.reports, 1)
	assert.False(t, store.reports[0].Unanalyzed)
	assert.Equal(t, 70, store.reports[0].OverallScore)
	assert.Len(t, store.turns, 2)

	// video_completed then final_review, in order.
	require.Len(t, store.events, 2)
	assert.Equal(t, models.StageVideoCompleted, store.events[0].Stage)
	assert.Equal(t, models.StageFinalReview, store.events[1].Stage)
}

func TestRecordVideoResultUnanalyzed(t *testing.T) {
	store := newFakeStore()
	testJob(store)
	pipeline := NewScreeningPipeline(store, nil, nil, testPolicy())

	resumeScore := 80
	app := &models.Application{
		ID:             "app-1",
		JobID:          "job-1",
		CandidateID:    "cand-1",
		ScreeningStage: models.StageVideoInProgress,
		AIMatchScore:   &resumeScore,
	}

	require.NoError(t, pipeline.RecordVideoResult(context.Background(), app, nil, nil))
	assert.Equal(t, models.StageFinalReview, app.ScreeningStage)

	require.Len(t, store.reports, 1)
	assert.True(t, store.reports[0].Unanalyzed)

	// No video component, blend stays on the resume score alone.
	require.NotNil(t, app.OverallScore)
	assert.Equal(t, 80, *app.OverallScore)
}

func TestUpdateStatusShortlistAdvancesStage(t *testing.T) {
	store := newFakeStore()
	testJob(store)
	pipeline := NewScreeningPipeline(store, nil, nil, testPolicy())

	app := &models.Application{ID: "app-1", JobID: "job-1", CandidateID: "cand-1", ScreeningStage: models.StageFinalReview}
	require.NoError(t, pipeline.UpdateStatus(context.Background(), app, models.StatusShortlisted))
	assert.Equal(t, models.StatusShortlisted, app.Status)
	assert.Equal(t, models.StageSelectedForEmployer, app.ScreeningStage)
}

func TestUpdateStatusOutsideFinalReviewKeepsStage(t *testing.T) {
	store := newFakeStore()
	testJob(store)
	pipeline := NewScreeningPipeline(store, nil, nil, testPolicy())

	app := &models.Application{ID: "app-1", JobID: "job-1", CandidateID: "cand-1", ScreeningStage: models.StageQuizPending}
	require.NoError(t, pipeline.UpdateStatus(context.Background(), app, models.StatusReviewed))
	assert.Equal(t, models.StatusReviewed, app.Status)
	assert.Equal(t, models.StageQuizPending, app.ScreeningStage)

	require.Len(t, store.events, 1)
	assert.Equal(t, "status:reviewed", store.events[0].Outcome)
}

func TestUpdateStatusRejectsUnknown(t *testing.T) {
	pipeline := NewScreeningPipeline(newFakeStore(), nil, nil, testPolicy())
	app := &models.Application{ID: "app-1", ScreeningStage: models.StageFinalReview}

	err := pipeline.UpdateStatus(context.Background(), app, "promoted")
	var validation *ErrValidation
	require.True(t, errors.As(err, &validation))
}

func TestBulkUpdateStatusSkipsForeignApplications(t *testing.T) {
	store := newFakeStore()
	store.apps["app-1"] = &models.Application{ID: "app-1", JobID: "job-1", Status: models.StatusPending}
	store.apps["app-2"] = &models.Application{ID: "app-2", JobID: "job-other", Status: models.StatusPending}
	pipeline := NewScreeningPipeline(store, nil, nil, testPolicy())

	updated, err := pipeline.BulkUpdateStatus(context.Background(), "job-1", []string{"app-1", "app-2"}, models.StatusReviewed)
	require.NoError(t, err)
	assert.Equal(t, []string{"app-1"}, updated)
	assert.Equal(t, models.StatusReviewed, store.apps["app-1"].Status)
	assert.Equal(t, models.StatusPending, store.apps["app-2"].Status)
}

func TestScheduleEmployerInterview(t *testing.T) {
	store := newFakeStore()
	testJob(store)
	pipeline := NewScreeningPipeline(store, nil, nil, testPolicy())

	app := &models.Application{ID: "app-1", JobID: "job-1", CandidateID: "cand-1", ScreeningStage: models.StageFinalReview}
	date := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)

	require.NoError(t, pipeline.ScheduleEmployerInterview(context.Background(), app, date, "10:00", "remote", "hiring@acme.com", "https://meet.example.com/abc", ""))
	assert.Equal(t, models.StageEmployerScheduled, app.ScreeningStage)
	assert.Equal(t, "remote", app.EmployerInterviewType)
	require.NotNil(t, app.EmployerInterviewDate)
	assert.True(t, app.EmployerInterviewDate.Equal(date))
}

func TestRecordEmployerFeedbackHired(t *testing.T) {
	store := newFakeStore()
	testJob(store)
	pipeline := NewScreeningPipeline(store, nil, nil, testPolicy())

	app := &models.Application{ID: "app-1", JobID: "job-1", CandidateID: "cand-1", ScreeningStage: models.StageEmployerScheduled}
	require.NoError(t, pipeline.RecordEmployerFeedback(context.Background(), app, "great culture fit", "hired"))
	assert.Equal(t, models.StageHired, app.ScreeningStage)
	assert.Equal(t, models.StatusHired, app.Status)
	assert.True(t, app.IsTerminal())
}

func TestRecordEmployerFeedbackRejected(t *testing.T) {
	store := newFakeStore()
	testJob(store)
	pipeline := NewScreeningPipeline(store, nil, nil, testPolicy())

	app := &models.Application{ID: "app-1", JobID: "job-1", CandidateID: "cand-1", ScreeningStage: models.StageEmployerScheduled}
	require.NoError(t, pipeline.RecordEmployerFeedback(context.Background(), app, "not a fit", "rejected"))
	assert.Equal(t, models.StageEmployerInterviewCompleted, app.ScreeningStage)
	assert.Equal(t, models.StatusRejected, app.Status)
}

func TestBlendedScore(t *testing.T) {
	policy := testPolicy()
	score := func(v int) *int { return &v }

	tests := []struct {
		name                string
		resume, quiz, video *int
		expected            *int
	}{
		{"no components", nil, nil, nil, nil},
		{"resume only", score(85), nil, nil, score(85)},
		{"resume and quiz", score(80), score(90), nil, score(84)},
		{"all components", score(80), score(90), score(70), score(80)},
		{"zero scores still blend", score(0), score(0), score(0), score(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := blendedScore(policy, tt.resume, tt.quiz, tt.video)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.expected, *got)
		})
	}
}
