// Package notifications delivers run summaries over Discord webhooks and
// email.
package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"github.com/postveille/curator/internal/config"
	"github.com/postveille/curator/internal/models"
)

const discordUsername = "Veille Curator"

// Service sends notifications via every configured channel.
type Service struct {
	cfg    *config.Config
	client *resty.Client
}

var _ Notifier = (*Service)(nil)

// discordPayload is the webhook message body.
type discordPayload struct {
	Content  string `json:"content"`
	Username string `json:"username"`
}

// NewService creates a notification service.
func NewService(cfg *config.Config) *Service {
	return &Service{
		cfg:    cfg,
		client: resty.New().SetTimeout(10 * time.Second),
	}
}

// Configured reports whether at least one channel is set up.
func (s *Service) Configured() bool {
	return s.cfg.DiscordWebhookURL != "" || s.cfg.NotificationEmail != ""
}

// SendReport sends the run summary via all configured channels.
func (s *Service) SendReport(report *models.Report) error {
	var failures []string

	if s.cfg.DiscordWebhookURL != "" {
		if err := s.sendToDiscord(buildSummary(report)); err != nil {
			logrus.Errorf("Failed to send Discord notification: %v", err)
			failures = append(failures, fmt.Sprintf("Discord: %v", err))
		} else {
			logrus.Info("Successfully sent report to Discord")
		}
	}

	if s.cfg.NotificationEmail != "" {
		if err := s.sendEmail(report); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			failures = append(failures, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Successfully sent report via email")
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(failures, "; "))
	}
	return nil
}

// SendError pushes a short failure message, Discord only.
func (s *Service) SendError(message string) error {
	if s.cfg.DiscordWebhookURL == "" {
		logrus.Warn("DISCORD_WEBHOOK_URL not configured - error notification skipped")
		return nil
	}
	return s.sendToDiscord(fmt.Sprintf("⚠️ **Curation error**\n%s", message))
}

func (s *Service) sendToDiscord(message string) error {
	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(discordPayload{Content: message, Username: discordUsername}).
		Post(s.cfg.DiscordWebhookURL)
	if err != nil {
		return fmt.Errorf("failed to send Discord message: %w", err)
	}
	if resp.StatusCode() >= 300 {
		return fmt.Errorf("Discord webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}

func buildSummary(report *models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📰 **Curation report — %s**\n", report.Date)
	fmt.Fprintf(&b, "Collected: %d | Analyzed: %d | Above %.1f: %d\n",
		report.TotalArticles, report.Analyzed, report.ThresholdUsed, report.AboveThreshold)

	limit := 5
	if len(report.TopArticles) < limit {
		limit = len(report.TopArticles)
	}
	for i := 0; i < limit; i++ {
		item := report.TopArticles[i]
		title := item.Title
		if len(title) > 80 {
			title = title[:80] + "..."
		}
		fmt.Fprintf(&b, "%d. [%.1f] %s\n   <%s>\n", i+1, item.FinalScore, title, item.URL)
	}

	return b.String()
}

func (s *Service) sendEmail(report *models.Report) error {
	subject := fmt.Sprintf("Curation report %s (%d above threshold)", report.Date, report.AboveThreshold)

	var body strings.Builder
	body.WriteString(fmt.Sprintf("Curation report — %s\n\n", report.Date))
	body.WriteString(fmt.Sprintf("Collected: %d\nAnalyzed: %d\nAbove threshold (%.1f): %d\n\n",
		report.TotalArticles, report.Analyzed, report.ThresholdUsed, report.AboveThreshold))

	if len(report.TopArticles) > 0 {
		body.WriteString("TOP ARTICLES\n============\n")
		for i, item := range report.TopArticles {
			body.WriteString(fmt.Sprintf("\n%d. [%.1f/10] %s\n", i+1, item.FinalScore, item.Title))
			body.WriteString(fmt.Sprintf("   Source: %s | Categories: %s\n",
				item.SourceName, strings.Join(item.Categories, ", ")))
			body.WriteString(fmt.Sprintf("   URL: %s\n", item.URL))
			if len(item.SuggestedHashtags) > 0 {
				body.WriteString(fmt.Sprintf("   Hashtags: %s\n", strings.Join(item.SuggestedHashtags, " ")))
			}
		}
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.SMTPUsername)
	m.SetHeader("To", s.cfg.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body.String())

	d := gomail.NewDialer(s.cfg.SMTPHost, s.cfg.SMTPPort, s.cfg.SMTPUsername, s.cfg.SMTPPassword)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
