package services

import (
	"log/slog"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	AI        AIConfig
	JWT       JWTConfig
	WebSocket WebSocketConfig
	Mail      MailConfig
	Uploads   UploadsConfig
	Screening ScreeningConfig
	Interview InterviewConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	URL          string
	Seed         bool
	LogLevel     string
	MaxIdleConns int
	MaxOpenConns int
}

type AIConfig struct {
	GeminiAPIKey string
}

type JWTConfig struct {
	Secret string
}

type WebSocketConfig struct {
	AllowedOrigins string
}

type MailConfig struct {
	APIKey   string
	Endpoint string
	From     string
}

type UploadsConfig struct {
	Dir string
}

// ScreeningConfig holds the pipeline policy knobs: pass thresholds, quiz shape
// and the weights of the overall score blend.
type ScreeningConfig struct {
	ResumeThreshold  int
	QuizPassingScore int
	QuizTimeLimit    int // minutes
	QuizEasyCount    int
	QuizMediumCount  int
	QuizHardCount    int
	ResumeWeight     int
	QuizWeight       int
	VideoWeight      int
}

func (s ScreeningConfig) QuizQuestionCount() int {
	return s.QuizEasyCount + s.QuizMediumCount + s.QuizHardCount
}

type InterviewConfig struct {
	MaxQuestions int
}

// LoadConfig loads configuration from environment variables and config files
func LoadConfig() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("websocket.allowed_origins", "")
	viper.SetDefault("gemini.api_key", "")
	viper.SetDefault("jwt.secret", "")
	viper.SetDefault("database.url", "")
	viper.SetDefault("database.seed", "true")
	viper.SetDefault("database.log_level", "silent")
	viper.SetDefault("database.max_idle_conns", "10")
	viper.SetDefault("database.max_open_conns", "100")
	viper.SetDefault("mail.api_key", "")
	viper.SetDefault("mail.endpoint", "")
	viper.SetDefault("mail.from", "noreply@hireflow.dev")
	viper.SetDefault("uploads.dir", "uploads")
	viper.SetDefault("screening.resume_threshold", "60")
	viper.SetDefault("screening.quiz_passing_score", "70")
	viper.SetDefault("screening.quiz_time_limit", "30")
	viper.SetDefault("screening.quiz_easy_count", "3")
	viper.SetDefault("screening.quiz_medium_count", "5")
	viper.SetDefault("screening.quiz_hard_count", "2")
	viper.SetDefault("screening.resume_weight", "40")
	viper.SetDefault("screening.quiz_weight", "30")
	viper.SetDefault("screening.video_weight", "30")
	viper.SetDefault("interview.max_questions", "6")

	// Map environment variables to config keys
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("websocket.allowed_origins", "WEBSOCKET_ALLOWED_ORIGINS")
	viper.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	viper.BindEnv("jwt.secret", "JWT_SECRET")
	viper.BindEnv("database.url", "DATABASE_URL")
	viper.BindEnv("database.seed", "DATABASE_SEED")
	viper.BindEnv("database.log_level", "DATABASE_LOG_LEVEL")
	viper.BindEnv("database.max_idle_conns", "DATABASE_MAX_IDLE_CONNS")
	viper.BindEnv("database.max_open_conns", "DATABASE_MAX_OPEN_CONNS")
	viper.BindEnv("mail.api_key", "MAIL_API_KEY")
	viper.BindEnv("mail.endpoint", "MAIL_ENDPOINT")
	viper.BindEnv("mail.from", "MAIL_FROM")
	viper.BindEnv("uploads.dir", "UPLOADS_DIR")
	viper.BindEnv("screening.resume_threshold", "SCREENING_RESUME_THRESHOLD")
	viper.BindEnv("screening.quiz_passing_score", "SCREENING_QUIZ_PASSING_SCORE")
	viper.BindEnv("screening.quiz_time_limit", "SCREENING_QUIZ_TIME_LIMIT")
	viper.BindEnv("screening.quiz_easy_count", "SCREENING_QUIZ_EASY_COUNT")
	viper.BindEnv("screening.quiz_medium_count", "SCREENING_QUIZ_MEDIUM_COUNT")
	viper.BindEnv("screening.quiz_hard_count", "SCREENING_QUIZ_HARD_COUNT")
	viper.BindEnv("screening.resume_weight", "SCREENING_RESUME_WEIGHT")
	viper.BindEnv("screening.quiz_weight", "SCREENING_QUIZ_WEIGHT")
	viper.BindEnv("screening.video_weight", "SCREENING_VIDEO_WEIGHT")
	viper.BindEnv("interview.max_questions", "INTERVIEW_MAX_QUESTIONS")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Warn("Config file not found, using defaults and environment variables")
		} else {
			slog.Error("Error reading config file", "error", err)
		}
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
		},
		Database: DatabaseConfig{
			URL:          viper.GetString("database.url"),
			Seed:         viper.GetBool("database.seed"),
			LogLevel:     viper.GetString("database.log_level"),
			MaxIdleConns: viper.GetInt("database.max_idle_conns"),
			MaxOpenConns: viper.GetInt("database.max_open_conns"),
		},
		AI: AIConfig{
			GeminiAPIKey: viper.GetString("gemini.api_key"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("jwt.secret"),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins: viper.GetString("websocket.allowed_origins"),
		},
		Mail: MailConfig{
			APIKey:   viper.GetString("mail.api_key"),
			Endpoint: viper.GetString("mail.endpoint"),
			From:     viper.GetString("mail.from"),
		},
		Uploads: UploadsConfig{
			Dir: viper.GetString("uploads.dir"),
		},
		Screening: ScreeningConfig{
			ResumeThreshold:  viper.GetInt("screening.resume_threshold"),
			QuizPassingScore: viper.GetInt("screening.quiz_passing_score"),
			QuizTimeLimit:    viper.GetInt("screening.quiz_time_limit"),
			QuizEasyCount:    viper.GetInt("screening.quiz_easy_count"),
			QuizMediumCount:  viper.GetInt("screening.quiz_medium_count"),
			QuizHardCount:    viper.GetInt("screening.quiz_hard_count"),
			ResumeWeight:     viper.GetInt("screening.resume_weight"),
			QuizWeight:       viper.GetInt("screening.quiz_weight"),
			VideoWeight:      viper.GetInt("screening.video_weight"),
		},
		Interview: InterviewConfig{
			MaxQuestions: viper.GetInt("interview.max_questions"),
		},
	}
}
