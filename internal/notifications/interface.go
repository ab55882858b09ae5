package notifications

import "github.com/postveille/curator/internal/models"

// Notifier delivers run reports to the configured channels.
type Notifier interface {
	SendReport(report *models.Report) error
	SendError(message string) error
}
