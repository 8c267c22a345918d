package models

// This file serves as the central export point for all database models
// Import this package to access all model types

// All models are automatically exported from their respective files:
// - User, RefreshToken from user.go
// - Job from job.go
// - Application, StageEvent, QuizAnswer, VideoReport, InterviewTurn from application.go
// - Quiz, QuizQuestion from quiz.go

// Database schema overview:
// 1. users - Candidates and employers, cookie-based authentication
// 2. jobs - Employer-owned postings
// 3. applications - One row per (job, candidate) pair, unique on that pair
// 4. stage_events - Append-only audit trail of screening stage transitions
// 5. quizzes / quiz_questions - One immutable quiz per job
// 6. quiz_answers - Per-question grading detail of the single scored attempt
// 7. video_reports - Final AI analysis of the video interview, one per application
// 8. interview_turns - Ordered transcript of the video interview
