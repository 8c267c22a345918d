package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/hireflow/backend/models"
	ws "github.com/hireflow/backend/websocket"
)

// InterviewAI drives the interviewer side of a video interview.
type InterviewAI interface {
	OpeningQuestion(ctx context.Context, job *models.Job, resumeText string) (string, error)
	FollowUpQuestion(ctx context.Context, job *models.Job, history []models.InterviewTurn) (string, error)
	AnalyzeInterview(ctx context.Context, job *models.Job, history []models.InterviewTurn) (*InterviewAnalysis, error)
}

// Transcriber converts a candidate utterance to text.
type Transcriber interface {
	TranscribeAudio(ctx context.Context, audioData []byte, mimeType string) (string, error)
}

// SessionStore is the persistence surface the interview coordinator needs.
type SessionStore interface {
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
}

// Question generation failures degrade to canned questions so a flaky
// collaborator cannot strand a live interview. Analysis failures are different:
// the result is persisted flagged unanalyzed instead.
const (
	fallbackOpeningQuestion  = "Thanks for joining. To get us started, could you walk me through your background and what drew you to this role?"
	fallbackFollowUpQuestion = "Understood. Could you tell me about a challenging project you worked on recently and the part you played in it?"
)

// Session states.
const (
	stateThinking       = "thinking"
	stateAwaitingAnswer = "awaiting_answer"
	stateComplete       = "complete"
)

// InterviewSession is the in-memory state of one live interview room.
type InterviewSession struct {
	app           *models.Application
	job           *models.Job
	client        *ws.Client
	state         string
	turns         []models.InterviewTurn
	questionCount int
	audioBuf      bytes.Buffer
	audioMime     string
	deadline      time.Time
	mu            sync.Mutex
}

// InterviewCoordinator runs live interview sessions: it asks the questions,
// transcribes answers, terminates the conversation at the turn budget and
// hands the finished transcript to the pipeline.
type InterviewCoordinator struct {
	store        SessionStore
	pipeline     *ScreeningPipeline
	ai           InterviewAI
	transcriber  Transcriber
	maxQuestions int

	sessions map[string]*InterviewSession
	mu       sync.RWMutex
}

func NewInterviewCoordinator(store SessionStore, pipeline *ScreeningPipeline, ai InterviewAI, transcriber Transcriber, maxQuestions int) *InterviewCoordinator {
	coordinator := &InterviewCoordinator{
		store:        store,
		pipeline:     pipeline,
		ai:           ai,
		transcriber:  transcriber,
		maxQuestions: maxQuestions,
		sessions:     make(map[string]*InterviewSession),
	}

	go coordinator.enforceDeadlines()

	return coordinator
}

// enforceDeadlines finishes sessions that run past the job's interview
// duration, so a candidate cannot hold a room open indefinitely.
func (c *InterviewCoordinator) enforceDeadlines() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()

		c.mu.RLock()
		var overdue []*InterviewSession
		for _, session := range c.sessions {
			if now.After(session.deadline) {
				overdue = append(overdue, session)
			}
		}
		c.mu.RUnlock()

		for _, session := range overdue {
			slog.Info("Interview duration limit reached, finishing session", "application_id", session.app.ID)
			c.finish(session)
		}
	}
}

// StartSession binds a freshly registered client to a new interview session.
// A candidate who disconnected mid-interview and rejoins restarts from the
// opening question; partial transcripts from the dropped session are not kept.
func (c *InterviewCoordinator) StartSession(ctx context.Context, client *ws.Client, app *models.Application) error {
	switch app.ScreeningStage {
	case models.StageVideoPending:
		if err := c.pipeline.BeginVideo(ctx, app); err != nil {
			return err
		}
	case models.StageVideoInProgress:
		// Rejoin after a disconnect, restart the interview.
	default:
		return &ErrPrecondition{Operation: "join interview", CurrentStage: app.ScreeningStage}
	}

	job, err := c.store.GetJob(ctx, app.JobID)
	if err != nil {
		return err
	}
	if job == nil {
		return &ErrNotFound{Resource: "job"}
	}

	duration := time.Duration(job.InterviewDuration) * time.Minute
	if duration <= 0 {
		duration = 15 * time.Minute
	}

	session := &InterviewSession{
		app:      app,
		job:      job,
		client:   client,
		state:    stateThinking,
		deadline: time.Now().Add(duration),
	}

	c.mu.Lock()
	c.sessions[app.ID] = session
	c.mu.Unlock()

	client.MessageHandler = c.handleMessage
	client.CloseHandler = c.handleClose

	client.SendMessage(ws.Message{
		Type:           ws.TypeJoined,
		TotalQuestions: c.maxQuestions,
	})

	go c.askQuestion(session, true)

	slog.Info("Interview session started", "application_id", app.ID, "job_id", job.ID)
	return nil
}

func (c *InterviewCoordinator) sessionFor(client *ws.Client) *InterviewSession {
	c.mu.RLock()
	defer c.mu.RUnlock()
	session := c.sessions[client.ApplicationID]
	if session == nil || session.client != client {
		return nil
	}
	return session
}

func (c *InterviewCoordinator) handleMessage(client *ws.Client, raw []byte) {
	session := c.sessionFor(client)
	if session == nil {
		return
	}

	var msg ws.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		slog.Error("Failed to unmarshal interview message", "error", err, "application_id", client.ApplicationID)
		return
	}

	switch msg.Type {
	case ws.TypeAudioChunk:
		c.handleAudioChunk(session, msg)
	case ws.TypeDoneSpeaking:
		c.handleDoneSpeaking(session)
	case ws.TypeEndInterview:
		c.finish(session)
	default:
		slog.Warn("Unknown message type", "type", msg.Type, "application_id", client.ApplicationID)
	}
}

func (c *InterviewCoordinator) handleAudioChunk(s *InterviewSession, msg ws.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateAwaitingAnswer {
		return
	}
	if msg.AudioDataBase64 == "" {
		return
	}

	decoded, err := base64.StdEncoding.DecodeString(msg.AudioDataBase64)
	if err != nil {
		slog.Error("Failed to decode audio chunk", "error", err, "application_id", s.app.ID)
		return
	}
	s.audioBuf.Write(decoded)
	if msg.MimeType != "" {
		s.audioMime = msg.MimeType
	}
}

func (c *InterviewCoordinator) handleDoneSpeaking(s *InterviewSession) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateAwaitingAnswer {
		return
	}
	s.state = stateThinking

	audio := make([]byte, s.audioBuf.Len())
	copy(audio, s.audioBuf.Bytes())
	s.audioBuf.Reset()

	if len(audio) == 0 {
		s.client.SendMessage(ws.Message{Type: ws.TypeError, Content: "No audio was received, please answer again."})
		s.state = stateAwaitingAnswer
		return
	}

	transcript, err := c.transcriber.TranscribeAudio(context.Background(), audio, s.audioMime)
	if err != nil || transcript == "" {
		slog.Error("Transcription failed", "error", err, "application_id", s.app.ID)
		s.client.SendMessage(ws.Message{Type: ws.TypeError, Content: "We could not process your audio, please answer again."})
		s.state = stateAwaitingAnswer
		return
	}

	s.turns = append(s.turns, models.InterviewTurn{
		ApplicationID: s.app.ID,
		Speaker:       models.SpeakerCandidate,
		Content:       transcript,
		Timestamp:     time.Now(),
	})
	s.client.SendMessage(ws.Message{Type: ws.TypeTranscript, Content: transcript})

	if s.questionCount >= c.maxQuestions {
		c.finishLocked(s)
		return
	}
	c.askQuestionLocked(s, false)
}

// askQuestion generates and sends the next interviewer question. A generation
// failure degrades to a canned question so the interview keeps moving.
func (c *InterviewCoordinator) askQuestion(s *InterviewSession, opening bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.askQuestionLocked(s, opening)
}

func (c *InterviewCoordinator) askQuestionLocked(s *InterviewSession, opening bool) {
	if s.state == stateComplete {
		return
	}
	s.state = stateThinking

	var question string
	var err error
	if opening {
		question, err = c.ai.OpeningQuestion(context.Background(), s.job, s.app.ResumeText)
		if err != nil || question == "" {
			slog.Error("Opening question generation failed, using fallback", "error", err, "application_id", s.app.ID)
			question = fallbackOpeningQuestion
		}
	} else {
		question, err = c.ai.FollowUpQuestion(context.Background(), s.job, s.turns)
		if err != nil || question == "" {
			slog.Error("Follow-up question generation failed, using fallback", "error", err, "application_id", s.app.ID)
			question = fallbackFollowUpQuestion
		}
	}

	s.questionCount++
	s.turns = append(s.turns, models.InterviewTurn{
		ApplicationID: s.app.ID,
		Speaker:       models.SpeakerInterviewer,
		Content:       question,
		Timestamp:     time.Now(),
	})

	s.client.SendMessage(ws.Message{
		Type:           ws.TypeQuestion,
		Content:        question,
		QuestionNumber: s.questionCount,
		TotalQuestions: c.maxQuestions,
	})
	s.state = stateAwaitingAnswer
}

func (c *InterviewCoordinator) finish(s *InterviewSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.finishLocked(s)
}

// finishLocked analyzes the transcript and persists the outcome. Analysis
// failure is surfaced, not masked: the report is stored flagged unanalyzed and
// the candidate still completes normally.
func (c *InterviewCoordinator) finishLocked(s *InterviewSession) {
	if s.state == stateComplete {
		return
	}
	s.state = stateComplete

	ctx := context.Background()

	analysis, err := c.ai.AnalyzeInterview(ctx, s.job, s.turns)
	if err != nil {
		slog.Error("Interview analysis failed, storing unanalyzed transcript", "error", err, "application_id", s.app.ID)
		analysis = nil
	}

	for i := range s.turns {
		s.turns[i].TurnOrder = i + 1
	}

	if err := c.pipeline.RecordVideoResult(ctx, s.app, analysis, s.turns); err != nil {
		slog.Error("Failed to record video result", "error", err, "application_id", s.app.ID)
		s.client.SendMessage(ws.Message{Type: ws.TypeError, Content: "We could not save your interview, please contact support."})
	} else {
		s.client.SendMessage(ws.Message{
			Type:       ws.TypeComplete,
			Content:    "Thank you for completing the interview. The hiring team will review your results and be in touch.",
			Unanalyzed: analysis == nil,
		})
	}

	c.mu.Lock()
	if c.sessions[s.app.ID] == s {
		delete(c.sessions, s.app.ID)
	}
	c.mu.Unlock()

	client := s.client
	go func() {
		// Give the write pump a moment to flush the final frame.
		<-time.After(200 * time.Millisecond)
		if client.Conn != nil {
			client.Conn.Close()
		}
	}()

	slog.Info("Interview session finished", "application_id", s.app.ID, "turns", len(s.turns), "analyzed", analysis != nil)
}

// handleClose abandons an in-flight session on disconnect. The application
// stays in video_in_progress and the candidate restarts on rejoin.
func (c *InterviewCoordinator) handleClose(client *ws.Client) {
	c.mu.Lock()
	session := c.sessions[client.ApplicationID]
	if session != nil && session.client == client {
		delete(c.sessions, client.ApplicationID)
	} else {
		session = nil
	}
	c.mu.Unlock()

	if session == nil {
		return
	}

	session.mu.Lock()
	abandoned := session.state != stateComplete
	session.state = stateComplete
	session.mu.Unlock()

	if abandoned {
		slog.Info("Interview session abandoned on disconnect", "application_id", client.ApplicationID)
	}
}
