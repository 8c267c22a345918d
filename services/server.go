package services

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/hireflow/backend/models"
	"github.com/hireflow/backend/repository"
	ws "github.com/hireflow/backend/websocket"
	"gorm.io/gorm"
)

// Server holds all server dependencies
type Server struct {
	config *Config
	repo   *repository.GORMRepository
	rawDB  *gorm.DB

	geminiService *GeminiService
	resumeParser  *ResumeParser
	notifier      Notifier
	pipeline      *ScreeningPipeline
	quizEngine    *QuizEngine
	coordinator   *InterviewCoordinator

	authService          *AuthService
	authEndpoints        *AuthEndpoints
	jobEndpoints         *JobEndpoints
	applicationEndpoints *ApplicationEndpoints
	quizEndpoints        *QuizEndpoints
	reportEndpoints      *ReportEndpoints

	wsHub    *ws.Hub
	upgrader websocket.Upgrader
}

// NewServer creates a new server instance
func NewServer(config *Config) *Server {
	return &Server{
		config: config,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return CheckOrigin(r, config.WebSocket.AllowedOrigins)
			},
		},
	}
}

// SetDatabase sets the database connection
func (s *Server) SetDatabase(repo *repository.GORMRepository, rawDB *gorm.DB) {
	s.repo = repo
	s.rawDB = rawDB
}

// InitializeServices initializes all server services
func (s *Server) InitializeServices() error {
	if s.config.AI.GeminiAPIKey != "" {
		s.geminiService = NewGeminiService(s.config.AI.GeminiAPIKey)
		slog.Info("Gemini service initialized")
	} else {
		slog.Warn("Gemini API key not configured, AI features disabled")
	}

	parser, err := NewResumeParser(s.config.Uploads.Dir)
	if err != nil {
		return err
	}
	s.resumeParser = parser

	s.notifier = NewMailNotifier(s.config.Mail)

	if s.repo != nil && s.geminiService != nil {
		s.pipeline = NewScreeningPipeline(s.repo, s.geminiService, s.notifier, s.config.Screening)
		s.quizEngine = NewQuizEngine(s.repo, s.geminiService, s.pipeline, s.config.Screening)
		s.pipeline.SetQuizProvisioner(s.quizEngine)
		s.coordinator = NewInterviewCoordinator(s.repo, s.pipeline, s.geminiService, s.geminiService, s.config.Interview.MaxQuestions)
		slog.Info("Screening pipeline initialized",
			"resume_threshold", s.config.Screening.ResumeThreshold,
			"quiz_passing_score", s.config.Screening.QuizPassingScore,
			"max_questions", s.config.Interview.MaxQuestions)
	}

	if s.config.JWT.Secret != "" && s.repo != nil {
		s.authService = NewAuthService(s.repo, s.config.JWT.Secret)
		s.authEndpoints = NewAuthEndpoints(s.authService)
		s.jobEndpoints = NewJobEndpoints(s.repo)
		if s.pipeline != nil {
			s.applicationEndpoints = NewApplicationEndpoints(s.repo, s.pipeline, s.resumeParser)
			s.quizEndpoints = NewQuizEndpoints(s.repo, s.quizEngine)
		}
		s.reportEndpoints = NewReportEndpoints(s.repo)
		slog.Info("Authentication service initialized")
	}

	s.wsHub = ws.NewHub()
	go s.wsHub.Run()

	return nil
}

// SetupRoutes configures all HTTP routes
func (s *Server) SetupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health endpoint
	r.Get("/health", s.healthHandler)

	// API v1 route group
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.apiV1Handler)

		// Authentication routes
		if s.authEndpoints != nil {
			r.Route("/auth", func(r chi.Router) {
				// Public auth routes (no middleware)
				r.Post("/login", s.authEndpoints.LoginHandler)
				r.Post("/signup", s.authEndpoints.SignupHandler)
				r.Post("/refresh", s.authEndpoints.RefreshHandler)

				// Protected auth routes (with middleware)
				r.Group(func(r chi.Router) {
					r.Use(s.authService.Middleware)
					r.Post("/logout", s.authEndpoints.LogoutHandler)
					r.Get("/me", s.authEndpoints.MeHandler)
				})
			})
		}

		if s.authService == nil {
			return
		}

		// Interview room (protected, candidate only)
		if s.coordinator != nil {
			r.Group(func(r chi.Router) {
				r.Use(s.authService.Middleware)
				r.Use(RequireCandidate)
				r.Get("/interviews/{id}/ws", s.interviewSocketHandler)
			})
		}

		// Domain routes (protected)
		r.Group(func(r chi.Router) {
			r.Use(s.authService.Middleware)

			if s.jobEndpoints != nil {
				s.jobEndpoints.RegisterRoutes(r)
			}
			if s.applicationEndpoints != nil {
				s.applicationEndpoints.RegisterRoutes(r)
			}
			if s.quizEndpoints != nil {
				s.quizEndpoints.RegisterRoutes(r)
			}
			if s.reportEndpoints != nil {
				s.reportEndpoints.RegisterRoutes(r)
			}
		})
	})

	return r
}

// Start starts the HTTP server
func (s *Server) Start() {
	port := s.config.Server.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: s.SetupRoutes(),
	}

	// Graceful shutdown
	go func() {
		slog.Info("Starting server", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exited")
}

// CheckOrigin validates the origin of WebSocket connections to prevent CSRF attacks
func CheckOrigin(r *http.Request, allowedOriginsStr string) bool {
	origin := r.Header.Get("Origin")

	// If no allowed origins are configured, deny all requests for security
	if allowedOriginsStr == "" {
		slog.Warn("WebSocket connection rejected: no allowed origins configured", "origin", origin)
		return false
	}

	allowedOrigins := strings.Split(allowedOriginsStr, ",")
	for i := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
	}

	for _, allowed := range allowedOrigins {
		if allowed == origin {
			return true
		}
	}

	slog.Warn("WebSocket connection rejected: origin not allowed", "origin", origin, "allowed_origins", allowedOriginsStr)
	return false
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "not configured"

	if s.rawDB != nil {
		if sqlDB, err := s.rawDB.DB(); err == nil {
			if err := sqlDB.Ping(); err != nil {
				dbStatus = "down"
				status = "degraded"
			} else {
				dbStatus = "up"
			}
		} else {
			dbStatus = "down"
			status = "degraded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"` + status + `","database":"` + dbStatus + `"}`))
}

func (s *Server) apiV1Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message":"API v1","version":"1.0.0"}`))
}

// interviewSocketHandler upgrades the connection and hands it to the interview
// coordinator. Stage preconditions are checked before the upgrade so a bad
// request still gets a proper HTTP status.
func (s *Server) interviewSocketHandler(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	applicationID := chi.URLParam(r, "id")

	app, err := authorizeApplication(r.Context(), s.repo, applicationID, user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	switch app.ScreeningStage {
	case models.StageVideoPending, models.StageVideoInProgress:
	default:
		writeError(w, r, &ErrPrecondition{Operation: "join interview", CurrentStage: app.ScreeningStage})
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	slog.Info("WebSocket connection established", "user_id", user.ID, "application_id", applicationID)

	client := s.wsHub.RegisterClient(conn, user.ID, applicationID)

	if err := s.coordinator.StartSession(r.Context(), client, app); err != nil {
		slog.Error("Failed to start interview session", "error", err, "application_id", applicationID)
		client.SendMessage(ws.Message{Type: ws.TypeError, Content: "Could not start the interview, please try again later."})
		go client.WritePump()
		time.Sleep(200 * time.Millisecond)
		conn.Close()
		return
	}

	go client.WritePump()
	client.ReadPump()
}
