package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hireflow/backend/models"
)

// Notifier delivers candidate-facing notifications. Pipeline callers treat
// delivery as best effort and never fail an operation on a send error.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// MailNotifier sends email through an HTTP mail API.
type MailNotifier struct {
	apiKey   string
	endpoint string
	from     string
	client   *http.Client
}

type mailRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

func NewMailNotifier(cfg MailConfig) *MailNotifier {
	return &MailNotifier{
		apiKey:   cfg.APIKey,
		endpoint: cfg.Endpoint,
		from:     cfg.From,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (m *MailNotifier) Send(ctx context.Context, to, subject, body string) error {
	if m.endpoint == "" {
		slog.Debug("Mail endpoint not configured, dropping notification", "to", to, "subject", subject)
		return nil
	}

	jsonData, err := json.Marshal(mailRequest{
		From:    m.from,
		To:      to,
		Subject: subject,
		Text:    body,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", m.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mail API error: %d - %s", resp.StatusCode, string(respBody))
	}

	slog.Info("Notification sent", "to", to, "subject", subject)
	return nil
}

// notifyAsync fires a notification in the background with its own timeout so a
// slow mail API never blocks the request path.
func notifyAsync(notifier Notifier, to, subject, body string) {
	if notifier == nil || to == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := notifier.Send(ctx, to, subject, body); err != nil {
			slog.Error("Failed to send notification", "error", err, "to", to, "subject", subject)
		}
	}()
}

// Notification templates used by the screening pipeline.

func applicationReceivedMail(job *models.Job) (string, string) {
	return fmt.Sprintf("Application received: %s", job.Title),
		fmt.Sprintf("Thanks for applying to %s at %s. Your resume passed our initial screening and a short skills quiz is now available in your dashboard.", job.Title, job.Company)
}

func applicationRejectedMail(job *models.Job) (string, string) {
	return fmt.Sprintf("Update on your application: %s", job.Title),
		fmt.Sprintf("Thank you for your interest in %s at %s. After reviewing your resume we have decided not to move forward at this time.", job.Title, job.Company)
}

func quizPassedMail(job *models.Job, score int) (string, string) {
	return fmt.Sprintf("Quiz passed: %s", job.Title),
		fmt.Sprintf("You scored %d%% on the skills quiz for %s at %s. The next step is a short AI video interview, available in your dashboard.", score, job.Title, job.Company)
}

func quizFailedMail(job *models.Job, score int) (string, string) {
	return fmt.Sprintf("Update on your application: %s", job.Title),
		fmt.Sprintf("You scored %d%% on the skills quiz for %s at %s, below the passing score. We will not be moving forward with your application.", score, job.Title, job.Company)
}

func interviewCompletedMail(job *models.Job) (string, string) {
	return fmt.Sprintf("Interview complete: %s", job.Title),
		fmt.Sprintf("Thanks for completing the video interview for %s at %s. The hiring team is reviewing your results and will be in touch.", job.Title, job.Company)
}

func employerInterviewMail(job *models.Job, app *models.Application) (string, string) {
	body := fmt.Sprintf("Good news! The hiring team for %s at %s would like to interview you.", job.Title, job.Company)
	if app.EmployerInterviewDate != nil {
		body += fmt.Sprintf(" Scheduled for %s %s (%s).",
			app.EmployerInterviewDate.Format("Jan 2, 2006"), app.EmployerInterviewTime, app.EmployerInterviewType)
	}
	if app.EmployerInterviewLocation != "" {
		body += fmt.Sprintf(" Location: %s.", app.EmployerInterviewLocation)
	}
	return fmt.Sprintf("Interview invitation: %s", job.Title), body
}

func statusUpdateMail(job *models.Job, status string) (string, string) {
	switch status {
	case models.StatusHired:
		return fmt.Sprintf("Congratulations: %s", job.Title),
			fmt.Sprintf("Congratulations! You have been selected for %s at %s. The hiring team will contact you with next steps.", job.Title, job.Company)
	case models.StatusRejected:
		return fmt.Sprintf("Update on your application: %s", job.Title),
			fmt.Sprintf("Thank you for your time interviewing for %s at %s. We have decided not to move forward with your application.", job.Title, job.Company)
	default:
		return fmt.Sprintf("Update on your application: %s", job.Title),
			fmt.Sprintf("Your application for %s at %s has been marked %s by the hiring team.", job.Title, job.Company, status)
	}
}
