package events

import "time"

const NotificationEmailTopic = "hr.notification.email.v1"

// Notification events fan out to a single recipient each.
const (
	NotifySubmitted    = "application.submitted"
	NotifyStageAdvance = "stage.advanced"
	NotifyApproved     = "application.approved"
	NotifyRejected     = "application.rejected"
	NotifyCommented    = "application.commented"
	NotifyCancelled    = "application.cancelled"
)

// ApplicationNotification is what the workflow hands to the dispatcher once a
// transition has committed.
type ApplicationNotification struct {
	Event           string
	ApplicationID   string
	ApplicationType string
	Title           string
	Status          string
	RecipientID     string
	ActorID         string
	Message         string
	OccurredAt      time.Time
}

// NotificationEmail is the rendered message published for the mailer.
type NotificationEmail struct {
	Event         string    `json:"event"`
	ApplicationID string    `json:"application_id"`
	To            string    `json:"to"`
	ToName        string    `json:"to_name"`
	Subject       string    `json:"subject"`
	HTML          string    `json:"html"`
	Text          string    `json:"text"`
	OccurredAt    time.Time `json:"occurred_at"`
}
