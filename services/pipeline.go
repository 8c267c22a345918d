package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/hireflow/backend/models"
	"github.com/hireflow/backend/repository"
)

// ResumeScorer evaluates résumé text against a job posting.
type ResumeScorer interface {
	ScoreResume(ctx context.Context, job *models.Job, resumeText string) (*ResumeScore, error)
}

// PipelineStore is the persistence surface the screening pipeline needs.
// *repository.GORMRepository satisfies it.
type PipelineStore interface {
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetApplication(ctx context.Context, applicationID string) (*models.Application, error)
	GetApplicationByJobAndCandidate(ctx context.Context, jobID, candidateID string) (*models.Application, error)
	CreateApplication(ctx context.Context, app *models.Application) error
	Transition(ctx context.Context, app *models.Application, event *models.StageEvent) error
	UpdateApplicationsStatus(ctx context.Context, jobID string, applicationIDs []string, status string) ([]string, error)
	CreateQuizAnswers(ctx context.Context, answers []models.QuizAnswer) error
	CreateVideoReport(ctx context.Context, report *models.VideoReport) error
	CreateInterviewTurns(ctx context.Context, turns []models.InterviewTurn) error
}

// QuizProvisioner creates a job's quiz on demand. *QuizEngine satisfies it.
type QuizProvisioner interface {
	EnsureQuiz(ctx context.Context, job *models.Job) (*models.Quiz, error)
}

// stageTransitions is the forward-only stage graph. A stage missing from the
// map is terminal.
var stageTransitions = map[string][]string{
	models.StageResumeUploaded:             {models.StageQuizPending, models.StageResumeRejected},
	models.StageQuizPending:                {models.StageQuizInProgress},
	models.StageQuizInProgress:             {models.StageVideoPending, models.StageQuizFailed},
	models.StageVideoPending:               {models.StageVideoInProgress},
	models.StageVideoInProgress:            {models.StageVideoCompleted},
	models.StageVideoCompleted:             {models.StageFinalReview},
	models.StageFinalReview:                {models.StageSelectedForEmployer, models.StageEmployerScheduled},
	models.StageSelectedForEmployer:        {models.StageEmployerScheduled},
	models.StageEmployerScheduled:          {models.StageEmployerInterviewCompleted},
	models.StageEmployerInterviewCompleted: {models.StageHired},
}

// CanTransition reports whether the stage graph allows moving from one stage to
// another.
func CanTransition(from, to string) bool {
	for _, next := range stageTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ScreeningPipeline owns the application state machine: it is the only place
// that moves applications between stages, always together with a stage event.
type ScreeningPipeline struct {
	store    PipelineStore
	scorer   ResumeScorer
	notifier Notifier
	quizzes  QuizProvisioner
	policy   ScreeningConfig
}

func NewScreeningPipeline(store PipelineStore, scorer ResumeScorer, notifier Notifier, policy ScreeningConfig) *ScreeningPipeline {
	return &ScreeningPipeline{
		store:    store,
		scorer:   scorer,
		notifier: notifier,
		policy:   policy,
	}
}

// SetQuizProvisioner wires the quiz engine in after construction; the engine
// itself depends on the pipeline for stage transitions.
func (p *ScreeningPipeline) SetQuizProvisioner(quizzes QuizProvisioner) {
	p.quizzes = quizzes
}

func (p *ScreeningPipeline) transition(ctx context.Context, app *models.Application, to, outcome string, score *int, notes string) error {
	if !CanTransition(app.ScreeningStage, to) {
		return &ErrPrecondition{Operation: "transition to " + to, CurrentStage: app.ScreeningStage}
	}
	app.ScreeningStage = to
	event := &models.StageEvent{
		ApplicationID: app.ID,
		Stage:         to,
		Outcome:       outcome,
		Score:         score,
		Notes:         notes,
		Timestamp:     time.Now(),
	}
	return p.store.Transition(ctx, app, event)
}

// SubmitApplication scores the résumé and creates the application in one shot.
// Scoring failures are fail-closed: no application row is written. A duplicate
// submission returns the existing application with created=false.
func (p *ScreeningPipeline) SubmitApplication(ctx context.Context, candidate *models.User, jobID, resumePath, resumeText string) (*models.Application, bool, error) {
	job, err := p.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, false, err
	}
	if job == nil {
		return nil, false, &ErrNotFound{Resource: "job"}
	}
	if !job.IsActive {
		return nil, false, &ErrValidation{Field: "job_id", Message: "job is no longer accepting applications"}
	}

	if existing, err := p.store.GetApplicationByJobAndCandidate(ctx, jobID, candidate.ID); err != nil {
		return nil, false, err
	} else if existing != nil {
		return existing, false, nil
	}

	score, err := p.scorer.ScoreResume(ctx, job, resumeText)
	if err != nil {
		return nil, false, err
	}

	now := time.Now()
	matchScore := score.MatchScore
	skillPct := score.SkillMatchPct
	app := &models.Application{
		JobID:            jobID,
		CandidateID:      candidate.ID,
		ScreeningStage:   models.StageResumeUploaded,
		Status:           models.StatusPending,
		ResumePath:       resumePath,
		ResumeText:       resumeText,
		AIMatchScore:     &matchScore,
		AIJustification:  score.Justification,
		AIAnalysisDate:   &now,
		MatchedSkills:    score.MatchedSkills,
		MissingSkills:    score.MissingSkills,
		AdditionalSkills: score.AdditionalSkills,
		SkillMatchPct:    &skillPct,
	}
	app.OverallScore = blendedScore(p.policy, app.AIMatchScore, nil, nil)

	if err := p.store.CreateApplication(ctx, app); err != nil {
		// Lost a race with a concurrent submission for the same pair.
		if err == repository.ErrDuplicate {
			existing, getErr := p.store.GetApplicationByJobAndCandidate(ctx, jobID, candidate.ID)
			if getErr != nil {
				return nil, false, getErr
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	if matchScore >= p.policy.ResumeThreshold {
		if err := p.transition(ctx, app, models.StageQuizPending, "passed", &matchScore, "resume score met threshold"); err != nil {
			return nil, false, err
		}
		// The quiz must exist by the time the stage says quiz_pending. A
		// generation failure is retried at quiz start, not surfaced here.
		if p.quizzes != nil {
			if _, err := p.quizzes.EnsureQuiz(ctx, job); err != nil {
				slog.Warn("Quiz generation at submission failed, deferring to quiz start", "error", err, "job_id", job.ID)
			}
		}
		subject, body := applicationReceivedMail(job)
		notifyAsync(p.notifier, candidate.Email, subject, body)
	} else {
		app.Status = models.StatusRejected
		if err := p.transition(ctx, app, models.StageResumeRejected, "failed", &matchScore, "resume score below threshold"); err != nil {
			return nil, false, err
		}
		subject, body := applicationRejectedMail(job)
		notifyAsync(p.notifier, candidate.Email, subject, body)
	}

	return app, true, nil
}

// BeginQuiz moves the application into the quiz and stamps the single scored
// attempt. Only callable from quiz_pending, so a second start is rejected.
func (p *ScreeningPipeline) BeginQuiz(ctx context.Context, app *models.Application) error {
	if app.ScreeningStage != models.StageQuizPending {
		return &ErrPrecondition{Operation: "start quiz", CurrentStage: app.ScreeningStage}
	}
	now := time.Now()
	app.QuizStartedAt = &now
	app.QuizAttempts++
	return p.transition(ctx, app, models.StageQuizInProgress, "started", nil, "")
}

// RecordQuizResult grades the attempt outcome: stores the per-question answers,
// stamps the score and advances to the video stage or fails the application.
func (p *ScreeningPipeline) RecordQuizResult(ctx context.Context, app *models.Application, quiz *models.Quiz, score int, answers []models.QuizAnswer) error {
	if app.ScreeningStage != models.StageQuizInProgress {
		return &ErrPrecondition{Operation: "submit quiz", CurrentStage: app.ScreeningStage}
	}

	if err := p.store.CreateQuizAnswers(ctx, answers); err != nil {
		return err
	}

	now := time.Now()
	app.QuizScore = &score
	app.QuizCompletedAt = &now
	app.OverallScore = blendedScore(p.policy, app.AIMatchScore, app.QuizScore, nil)

	job, err := p.store.GetJob(ctx, app.JobID)
	if err != nil {
		return err
	}

	if score >= quiz.PassingScore {
		if err := p.transition(ctx, app, models.StageVideoPending, "passed", &score, "quiz score met passing score"); err != nil {
			return err
		}
		p.notifyCandidate(ctx, app, func(j *models.Job) (string, string) { return quizPassedMail(j, score) }, job)
	} else {
		app.Status = models.StatusRejected
		if err := p.transition(ctx, app, models.StageQuizFailed, "failed", &score, "quiz score below passing score"); err != nil {
			return err
		}
		p.notifyCandidate(ctx, app, func(j *models.Job) (string, string) { return quizFailedMail(j, score) }, job)
	}
	return nil
}

// BeginVideo marks the interview as started when the candidate joins the room.
func (p *ScreeningPipeline) BeginVideo(ctx context.Context, app *models.Application) error {
	if app.ScreeningStage != models.StageVideoPending {
		return &ErrPrecondition{Operation: "start video interview", CurrentStage: app.ScreeningStage}
	}
	now := time.Now()
	app.VideoInterviewStartedAt = &now
	return p.transition(ctx, app, models.StageVideoInProgress, "started", nil, "")
}

// RecordVideoResult persists the transcript and the final report, then moves
// the application to final review. A nil analysis stores the report flagged
// unanalyzed, with the transcript intact for manual review.
func (p *ScreeningPipeline) RecordVideoResult(ctx context.Context, app *models.Application, analysis *InterviewAnalysis, turns []models.InterviewTurn) error {
	if app.ScreeningStage != models.StageVideoInProgress {
		return &ErrPrecondition{Operation: "complete video interview", CurrentStage: app.ScreeningStage}
	}

	if err := p.store.CreateInterviewTurns(ctx, turns); err != nil {
		return err
	}

	report := &models.VideoReport{ApplicationID: app.ID}
	var videoScore *int
	if analysis != nil {
		report.OverallScore = analysis.OverallScore
		report.CommunicationScore = analysis.CommunicationScore
		report.TechnicalScore = analysis.TechnicalScore
		report.ConfidenceScore = analysis.ConfidenceScore
		report.Feedback = analysis.Feedback
		report.RedFlags = analysis.RedFlags
		videoScore = &analysis.OverallScore
	} else {
		report.Unanalyzed = true
	}
	if err := p.store.CreateVideoReport(ctx, report); err != nil && err != repository.ErrDuplicate {
		return err
	}

	now := time.Now()
	app.VideoInterviewCompletedAt = &now
	app.OverallScore = blendedScore(p.policy, app.AIMatchScore, app.QuizScore, videoScore)

	if err := p.transition(ctx, app, models.StageVideoCompleted, "completed", videoScore, ""); err != nil {
		return err
	}
	if err := p.transition(ctx, app, models.StageFinalReview, "advanced", nil, ""); err != nil {
		return err
	}

	p.notifyCandidate(ctx, app, interviewCompletedMail, nil)
	return nil
}

// UpdateStatus sets the employer-facing status. Shortlisting a candidate in
// final review also advances the stage to selected_for_employer.
func (p *ScreeningPipeline) UpdateStatus(ctx context.Context, app *models.Application, status string) error {
	switch status {
	case models.StatusPending, models.StatusReviewed, models.StatusShortlisted, models.StatusRejected, models.StatusHired:
	default:
		return &ErrValidation{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}

	app.Status = status
	if status == models.StatusShortlisted && app.ScreeningStage == models.StageFinalReview {
		if err := p.transition(ctx, app, models.StageSelectedForEmployer, "advanced", nil, "shortlisted by employer"); err != nil {
			return err
		}
	} else {
		event := &models.StageEvent{
			ApplicationID: app.ID,
			Stage:         app.ScreeningStage,
			Outcome:       "status:" + status,
			Timestamp:     time.Now(),
		}
		if err := p.store.Transition(ctx, app, event); err != nil {
			return err
		}
	}

	if status == models.StatusRejected || status == models.StatusHired {
		p.notifyCandidate(ctx, app, func(j *models.Job) (string, string) { return statusUpdateMail(j, status) }, nil)
	}
	return nil
}

// BulkUpdateStatus applies a status to many applications of one job and returns
// the ids actually updated. Ids outside the job are silently skipped.
func (p *ScreeningPipeline) BulkUpdateStatus(ctx context.Context, jobID string, applicationIDs []string, status string) ([]string, error) {
	switch status {
	case models.StatusPending, models.StatusReviewed, models.StatusShortlisted, models.StatusRejected, models.StatusHired:
	default:
		return nil, &ErrValidation{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}
	return p.store.UpdateApplicationsStatus(ctx, jobID, applicationIDs, status)
}

// ScheduleEmployerInterview records the human interview details and moves the
// application to employer_scheduled.
func (p *ScreeningPipeline) ScheduleEmployerInterview(ctx context.Context, app *models.Application, date time.Time, timeSlot, interviewType, contact, location, notes string) error {
	if app.ScreeningStage != models.StageFinalReview && app.ScreeningStage != models.StageSelectedForEmployer {
		return &ErrPrecondition{Operation: "schedule employer interview", CurrentStage: app.ScreeningStage}
	}

	app.EmployerInterviewDate = &date
	app.EmployerInterviewTime = timeSlot
	app.EmployerInterviewType = interviewType
	app.EmployerInterviewContact = contact
	app.EmployerInterviewLocation = location
	app.EmployerInterviewNotes = notes

	if err := p.transition(ctx, app, models.StageEmployerScheduled, "scheduled", nil, ""); err != nil {
		return err
	}

	job, err := p.store.GetJob(ctx, app.JobID)
	if err == nil && job != nil {
		p.notifyCandidate(ctx, app, func(j *models.Job) (string, string) { return employerInterviewMail(j, app) }, job)
	}
	return nil
}

// RecordEmployerFeedback stores the human interview outcome. A hired decision
// runs the application to its terminal stage.
func (p *ScreeningPipeline) RecordEmployerFeedback(ctx context.Context, app *models.Application, feedback, decision string) error {
	if app.ScreeningStage != models.StageEmployerScheduled {
		return &ErrPrecondition{Operation: "record employer feedback", CurrentStage: app.ScreeningStage}
	}
	switch decision {
	case "", "hired", "rejected":
	default:
		return &ErrValidation{Field: "decision", Message: fmt.Sprintf("unknown decision %q", decision)}
	}

	app.EmployerFeedback = feedback
	app.EmployerDecision = decision

	if err := p.transition(ctx, app, models.StageEmployerInterviewCompleted, "completed", nil, ""); err != nil {
		return err
	}

	switch decision {
	case "hired":
		app.Status = models.StatusHired
		if err := p.transition(ctx, app, models.StageHired, "hired", nil, feedback); err != nil {
			return err
		}
		p.notifyCandidate(ctx, app, func(j *models.Job) (string, string) { return statusUpdateMail(j, models.StatusHired) }, nil)
	case "rejected":
		app.Status = models.StatusRejected
		event := &models.StageEvent{
			ApplicationID: app.ID,
			Stage:         app.ScreeningStage,
			Outcome:       "rejected",
			Notes:         feedback,
			Timestamp:     time.Now(),
		}
		if err := p.store.Transition(ctx, app, event); err != nil {
			return err
		}
		p.notifyCandidate(ctx, app, func(j *models.Job) (string, string) { return statusUpdateMail(j, models.StatusRejected) }, nil)
	}
	return nil
}

func (p *ScreeningPipeline) notifyCandidate(ctx context.Context, app *models.Application, template func(*models.Job) (string, string), job *models.Job) {
	if p.notifier == nil {
		return
	}
	var err error
	if job == nil {
		job, err = p.store.GetJob(ctx, app.JobID)
		if err != nil || job == nil {
			return
		}
	}
	candidate, err := p.store.GetUserByID(ctx, app.CandidateID)
	if err != nil || candidate == nil {
		slog.Warn("Skipping notification, candidate lookup failed", "application_id", app.ID)
		return
	}
	subject, body := template(job)
	notifyAsync(p.notifier, candidate.Email, subject, body)
}

// blendedScore computes the weighted overall score over the stage scores
// present so far, renormalizing the weights so missing stages do not drag the
// blend down. Returns nil when no component exists yet.
func blendedScore(policy ScreeningConfig, resume, quiz, video *int) *int {
	type component struct {
		score  *int
		weight int
	}
	var sum, weightSum float64
	for _, c := range []component{
		{resume, policy.ResumeWeight},
		{quiz, policy.QuizWeight},
		{video, policy.VideoWeight},
	} {
		if c.score != nil {
			sum += float64(*c.score) * float64(c.weight)
			weightSum += float64(c.weight)
		}
	}
	if weightSum == 0 {
		return nil
	}
	blended := int(math.Round(sum / weightSum))
	return &blended
}
