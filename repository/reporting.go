package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hireflow/backend/models"
)

// JobScoreAverages holds the mean stage scores over a job's applications.
// Averages are computed over non-null scores only.
type JobScoreAverages struct {
	AvgResumeScore  *float64 `json:"avg_resume_score"`
	AvgQuizScore    *float64 `json:"avg_quiz_score"`
	AvgVideoScore   *float64 `json:"avg_video_score"`
	AvgOverallScore *float64 `json:"avg_overall_score"`
}

// CountApplicationsByStage returns application counts per screening stage for a job.
func (r *GORMRepository) CountApplicationsByStage(ctx context.Context, jobID string) (map[string]int64, error) {
	type row struct {
		ScreeningStage string
		Count          int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Application{}).
		Select("screening_stage, count(*) as count").
		Where("job_id = ?", jobID).
		Group("screening_stage").
		Scan(&rows).Error
	if err != nil {
		slog.Error("Failed to count applications by stage", "error", err, "job_id", jobID)
		return nil, fmt.Errorf("failed to count applications by stage: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, rw := range rows {
		counts[rw.ScreeningStage] = rw.Count
	}
	return counts, nil
}

// CountApplicationsByStatus returns application counts per coarse status for a job.
func (r *GORMRepository) CountApplicationsByStatus(ctx context.Context, jobID string) (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Application{}).
		Select("status, count(*) as count").
		Where("job_id = ?", jobID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		slog.Error("Failed to count applications by status", "error", err, "job_id", jobID)
		return nil, fmt.Errorf("failed to count applications by status: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, rw := range rows {
		counts[rw.Status] = rw.Count
	}
	return counts, nil
}

// GetJobScoreAverages returns the mean resume/quiz/video/overall scores for a job.
func (r *GORMRepository) GetJobScoreAverages(ctx context.Context, jobID string) (*JobScoreAverages, error) {
	var averages JobScoreAverages
	err := r.db.WithContext(ctx).
		Model(&models.Application{}).
		Select(
			"AVG(applications.ai_match_score) as avg_resume_score, "+
				"AVG(applications.quiz_score) as avg_quiz_score, "+
				"AVG(video_reports.overall_score) as avg_video_score, "+
				"AVG(applications.overall_score) as avg_overall_score").
		Joins("LEFT JOIN video_reports ON video_reports.application_id = applications.id AND video_reports.deleted_at IS NULL").
		Where("applications.job_id = ?", jobID).
		Scan(&averages).Error
	if err != nil {
		slog.Error("Failed to get job score averages", "error", err, "job_id", jobID)
		return nil, fmt.Errorf("failed to get job score averages: %w", err)
	}
	return &averages, nil
}

// GetCompletedOverallScores returns the overall scores of applications that have
// finished the video stage, ordered ascending for percentile math.
func (r *GORMRepository) GetCompletedOverallScores(ctx context.Context, jobID string) ([]int, error) {
	var scores []int
	err := r.db.WithContext(ctx).
		Model(&models.Application{}).
		Where("job_id = ? AND overall_score IS NOT NULL AND screening_stage NOT IN ?",
			jobID, []string{models.StageResumeUploaded, models.StageQuizPending, models.StageQuizInProgress, models.StageVideoPending, models.StageVideoInProgress}).
		Order("overall_score").
		Pluck("overall_score", &scores).Error
	if err != nil {
		slog.Error("Failed to get completed overall scores", "error", err, "job_id", jobID)
		return nil, fmt.Errorf("failed to get completed overall scores: %w", err)
	}
	return scores, nil
}
