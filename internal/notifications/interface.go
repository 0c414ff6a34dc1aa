package notifications

import "github.com/utcc/social-mentions/internal/models"

// NotificationInterface defines the contract for digest delivery
type NotificationInterface interface {
	SendReport(report *models.Report) error
	Enabled() bool
}
