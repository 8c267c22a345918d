package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hireflow/backend/models"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrDuplicate is returned when an insert hits a uniqueness constraint, e.g. a
// second application for the same (job, candidate) pair or a second quiz for a
// job. Callers use it to implement insert-or-detect-conflict semantics.
var ErrDuplicate = errors.New("duplicate record")

type GORMRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) *GORMRepository {
	return &GORMRepository{db: db}
}

// AutoMigrate runs database migrations
func (r *GORMRepository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Job{},
		&models.Application{},
		&models.StageEvent{},
		&models.Quiz{},
		&models.QuizQuestion{},
		&models.QuizAnswer{},
		&models.VideoReport{},
		&models.InterviewTurn{},
	)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// User operations

func (r *GORMRepository) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		slog.Error("Failed to create user", "error", err)
		return err
	}
	slog.Info("User created", "user_id", user.ID, "email", user.Email, "role", user.Role)
	return nil
}

func (r *GORMRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get user by email", "error", err, "email", email)
		return nil, err
	}
	return &user, nil
}

func (r *GORMRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get user by ID", "error", err, "user_id", id)
		return nil, err
	}
	return &user, nil
}

// Token operations

func (r *GORMRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		slog.Error("Failed to create refresh token", "error", err)
		return err
	}
	return nil
}

func (r *GORMRepository) GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var refreshToken models.RefreshToken
	if err := r.db.WithContext(ctx).Where("token = ? AND expires_at > ?", token, time.Now()).First(&refreshToken).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get refresh token", "error", err)
		return nil, err
	}
	return &refreshToken, nil
}

func (r *GORMRepository) DeleteAllUserTokens(ctx context.Context, userID string) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error; err != nil {
		slog.Error("Failed to delete user refresh tokens", "error", err, "user_id", userID)
		return err
	}
	return nil
}

// Job operations

func (r *GORMRepository) CreateJob(ctx context.Context, job *models.Job) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		slog.Error("Failed to create job", "error", err)
		return err
	}
	slog.Info("Job created", "job_id", job.ID, "title", job.Title, "posted_by", job.PostedBy)
	return nil
}

func (r *GORMRepository) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := r.db.WithContext(ctx).Where("id = ?", jobID).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get job", "error", err, "job_id", jobID)
		return nil, err
	}
	return &job, nil
}

func (r *GORMRepository) GetJobsByEmployer(ctx context.Context, employerID string) ([]models.Job, error) {
	var jobs []models.Job
	if err := r.db.WithContext(ctx).Where("posted_by = ?", employerID).Order("created_at DESC").Find(&jobs).Error; err != nil {
		slog.Error("Failed to get employer jobs", "error", err, "employer_id", employerID)
		return nil, err
	}
	return jobs, nil
}

func (r *GORMRepository) ListActiveJobs(ctx context.Context) ([]models.Job, error) {
	var jobs []models.Job
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("created_at DESC").Find(&jobs).Error; err != nil {
		slog.Error("Failed to list active jobs", "error", err)
		return nil, err
	}
	return jobs, nil
}

func (r *GORMRepository) UpdateJob(ctx context.Context, job *models.Job) error {
	if err := r.db.WithContext(ctx).Save(job).Error; err != nil {
		slog.Error("Failed to update job", "error", err, "job_id", job.ID)
		return err
	}
	slog.Info("Job updated", "job_id", job.ID, "title", job.Title)
	return nil
}

func (r *GORMRepository) DeleteJob(ctx context.Context, jobID string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", jobID).Delete(&models.Job{}).Error; err != nil {
		slog.Error("Failed to delete job", "error", err, "job_id", jobID)
		return err
	}
	slog.Info("Job deleted", "job_id", jobID)
	return nil
}

// Application operations

// CreateApplication inserts atomically; the (job_id, candidate_id) unique index
// turns concurrent duplicate submissions into ErrDuplicate rather than a second
// row.
func (r *GORMRepository) CreateApplication(ctx context.Context, app *models.Application) error {
	if err := r.db.WithContext(ctx).Create(app).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		slog.Error("Failed to create application", "error", err)
		return err
	}
	slog.Info("Application created", "application_id", app.ID, "job_id", app.JobID, "candidate_id", app.CandidateID)
	return nil
}

func (r *GORMRepository) GetApplication(ctx context.Context, applicationID string) (*models.Application, error) {
	var app models.Application
	if err := r.db.WithContext(ctx).Where("id = ?", applicationID).First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get application", "error", err, "application_id", applicationID)
		return nil, err
	}
	return &app, nil
}

func (r *GORMRepository) GetApplicationWithDetails(ctx context.Context, applicationID string) (*models.Application, error) {
	var app models.Application
	err := r.db.WithContext(ctx).
		Where("id = ?", applicationID).
		Preload("Job").
		Preload("StageHistory", func(db *gorm.DB) *gorm.DB { return db.Order("timestamp") }).
		Preload("QuizAnswers").
		Preload("VideoReport").
		Preload("InterviewTurns", func(db *gorm.DB) *gorm.DB { return db.Order("turn_order") }).
		First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get application with details", "error", err, "application_id", applicationID)
		return nil, err
	}
	return &app, nil
}

func (r *GORMRepository) GetApplicationByJobAndCandidate(ctx context.Context, jobID, candidateID string) (*models.Application, error) {
	var app models.Application
	if err := r.db.WithContext(ctx).Where("job_id = ? AND candidate_id = ?", jobID, candidateID).First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get application by job and candidate", "error", err, "job_id", jobID, "candidate_id", candidateID)
		return nil, err
	}
	return &app, nil
}

func (r *GORMRepository) GetApplicationsByCandidate(ctx context.Context, candidateID string) ([]models.Application, error) {
	var apps []models.Application
	err := r.db.WithContext(ctx).Where("candidate_id = ?", candidateID).Preload("Job").Order("created_at DESC").Find(&apps).Error
	if err != nil {
		slog.Error("Failed to get candidate applications", "error", err, "candidate_id", candidateID)
		return nil, err
	}
	return apps, nil
}

func (r *GORMRepository) GetApplicationsByJob(ctx context.Context, jobID string) ([]models.Application, error) {
	var apps []models.Application
	err := r.db.WithContext(ctx).Where("job_id = ?", jobID).Preload("Candidate").Preload("VideoReport").Order("overall_score DESC NULLS LAST").Find(&apps).Error
	if err != nil {
		slog.Error("Failed to get job applications", "error", err, "job_id", jobID)
		return nil, err
	}
	return apps, nil
}

// Transition saves the application and appends its stage event in one
// transaction, so a stage change and its audit entry are a single atomic step.
func (r *GORMRepository) Transition(ctx context.Context, app *models.Application, event *models.StageEvent) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(app).Error; err != nil {
			return err
		}
		return tx.Create(event).Error
	})
	if err != nil {
		slog.Error("Failed to transition application", "error", err, "application_id", app.ID, "stage", event.Stage)
		return err
	}
	slog.Info("Application transitioned", "application_id", app.ID, "stage", event.Stage, "outcome", event.Outcome)
	return nil
}

func (r *GORMRepository) UpdateApplication(ctx context.Context, app *models.Application) error {
	if err := r.db.WithContext(ctx).Save(app).Error; err != nil {
		slog.Error("Failed to update application", "error", err, "application_id", app.ID)
		return err
	}
	return nil
}

// UpdateApplicationsStatus bulk-updates the coarse status on applications scoped
// to one job and returns the ids actually updated.
func (r *GORMRepository) UpdateApplicationsStatus(ctx context.Context, jobID string, applicationIDs []string, status string) ([]string, error) {
	var matched []models.Application
	if err := r.db.WithContext(ctx).Where("job_id = ? AND id IN ?", jobID, applicationIDs).Find(&matched).Error; err != nil {
		slog.Error("Failed to match applications for bulk update", "error", err, "job_id", jobID)
		return nil, err
	}

	ids := make([]string, 0, len(matched))
	for _, app := range matched {
		ids = append(ids, app.ID)
	}
	if len(ids) == 0 {
		return ids, nil
	}

	err := r.db.WithContext(ctx).Model(&models.Application{}).Where("id IN ?", ids).Update("status", status).Error
	if err != nil {
		slog.Error("Failed to bulk update application status", "error", err, "job_id", jobID)
		return nil, err
	}
	slog.Info("Applications bulk updated", "job_id", jobID, "count", len(ids), "status", status)
	return ids, nil
}

// Quiz operations

// CreateQuiz inserts the quiz with its questions atomically; the unique index on
// job_id turns a concurrent second generation into ErrDuplicate.
func (r *GORMRepository) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	if err := r.db.WithContext(ctx).Create(quiz).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		slog.Error("Failed to create quiz", "error", err)
		return err
	}
	slog.Info("Quiz created", "quiz_id", quiz.ID, "job_id", quiz.JobID, "questions", len(quiz.Questions))
	return nil
}

func (r *GORMRepository) GetQuizByJob(ctx context.Context, jobID string) (*models.Quiz, error) {
	var quiz models.Quiz
	err := r.db.WithContext(ctx).Where("job_id = ?", jobID).Preload("Questions").First(&quiz).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get quiz by job", "error", err, "job_id", jobID)
		return nil, err
	}
	return &quiz, nil
}

func (r *GORMRepository) CreateQuizAnswers(ctx context.Context, answers []models.QuizAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&answers).Error; err != nil {
		slog.Error("Failed to create quiz answers", "error", err, "application_id", answers[0].ApplicationID)
		return err
	}
	return nil
}

// Interview persistence

func (r *GORMRepository) CreateVideoReport(ctx context.Context, report *models.VideoReport) error {
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		slog.Error("Failed to create video report", "error", err, "application_id", report.ApplicationID)
		return err
	}
	slog.Info("Video report created", "application_id", report.ApplicationID, "overall_score", report.OverallScore, "unanalyzed", report.Unanalyzed)
	return nil
}

func (r *GORMRepository) CreateInterviewTurns(ctx context.Context, turns []models.InterviewTurn) error {
	if len(turns) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&turns).Error; err != nil {
		slog.Error("Failed to create interview turns", "error", err, "application_id", turns[0].ApplicationID)
		return err
	}
	return nil
}
