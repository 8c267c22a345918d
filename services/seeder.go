package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hireflow/backend/models"
	"github.com/hireflow/backend/repository"
	"golang.org/x/crypto/bcrypt"
)

// DatabaseSeeder handles database seeding operations
type DatabaseSeeder struct {
	repo *repository.GORMRepository
}

// NewDatabaseSeeder creates a new database seeder
func NewDatabaseSeeder(repo *repository.GORMRepository) *DatabaseSeeder {
	return &DatabaseSeeder{repo: repo}
}

// SeedDatabase seeds the database with demo accounts and postings (idempotent)
func (s *DatabaseSeeder) SeedDatabase() error {
	ctx := context.Background()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	users := []models.User{
		{
			Email:    "employer@example.com",
			Password: string(hashedPassword),
			FullName: "Erin Employer",
			Role:     models.RoleEmployer,
			Company:  "Acme Software",
		},
		{
			Email:    "candidate@example.com",
			Password: string(hashedPassword),
			FullName: "Casey Candidate",
			Role:     models.RoleCandidate,
		},
	}

	for _, user := range users {
		if err := s.seedUser(ctx, user); err != nil {
			slog.Error("Failed to seed user", "email", user.Email, "error", err)
		}
	}

	employer, err := s.repo.GetUserByEmail(ctx, "employer@example.com")
	if err != nil {
		return fmt.Errorf("failed to get demo employer: %w", err)
	}
	if employer == nil {
		return fmt.Errorf("demo employer not found")
	}

	jobs := []models.Job{
		{
			PostedBy:    employer.ID,
			Title:       "Senior Backend Engineer",
			Company:     employer.Company,
			Location:    "Remote",
			Description: "Design and operate the services behind our hiring platform. You will own APIs end to end, from schema design through deployment, working primarily in Go and PostgreSQL.",
			RequiredSkills: []string{
				"Go", "PostgreSQL", "REST APIs", "Docker", "Distributed Systems",
			},
			SalaryRange:       "$140k - $180k",
			EmploymentType:    "full-time",
			IsActive:          true,
			InterviewDuration: 15,
		},
		{
			PostedBy:    employer.ID,
			Title:       "Frontend Developer",
			Company:     employer.Company,
			Location:    "New York, NY",
			Description: "Build the candidate and employer dashboards. You will work closely with design on accessible, responsive interfaces in React and TypeScript.",
			RequiredSkills: []string{
				"React", "TypeScript", "CSS", "Testing",
			},
			SalaryRange:       "$110k - $140k",
			EmploymentType:    "full-time",
			IsActive:          true,
			InterviewDuration: 15,
		},
	}

	for _, job := range jobs {
		if err := s.seedJob(ctx, employer.ID, job); err != nil {
			slog.Error("Failed to seed job", "title", job.Title, "error", err)
		}
	}

	slog.Info("Database seeding completed successfully")
	return nil
}

// seedUser seeds a single user (idempotent)
func (s *DatabaseSeeder) seedUser(ctx context.Context, user models.User) error {
	existingUser, err := s.repo.GetUserByEmail(ctx, user.Email)
	if err != nil {
		return fmt.Errorf("error checking user %s: %w", user.Email, err)
	}

	if existingUser != nil {
		slog.Info("User already exists, skipping", "email", user.Email)
		return nil
	}

	if err := s.repo.CreateUser(ctx, &user); err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.Email, err)
	}

	slog.Info("Created user", "email", user.Email, "role", user.Role)
	return nil
}

// seedJob seeds a single job, matching on title per employer (idempotent)
func (s *DatabaseSeeder) seedJob(ctx context.Context, employerID string, job models.Job) error {
	existing, err := s.repo.GetJobsByEmployer(ctx, employerID)
	if err != nil {
		return fmt.Errorf("error checking jobs: %w", err)
	}

	for _, existingJob := range existing {
		if existingJob.Title == job.Title {
			slog.Info("Job already exists, skipping", "title", job.Title)
			return nil
		}
	}

	if err := s.repo.CreateJob(ctx, &job); err != nil {
		return fmt.Errorf("failed to create job %s: %w", job.Title, err)
	}

	slog.Info("Created job", "title", job.Title)
	return nil
}
