package events

import "time"

const ApplicationLifecycleTopic = "hr.application.lifecycle.v1"

const (
	ApplicationSubmitted     = "application.submitted"
	ApplicationStageApproved = "application.stage_approved"
	ApplicationApproved      = "application.approved"
	ApplicationRejected      = "application.rejected"
	ApplicationCommented     = "application.commented"
	ApplicationCancelled     = "application.cancelled"
)

type ApplicationLifecycleEvent struct {
	EventType       string    `json:"event_type"`
	ApplicationID   string    `json:"application_id"`
	OrgID           string    `json:"org_id"`
	ApplicationType string    `json:"application_type"`
	ApplicantID     string    `json:"applicant_id"`
	ActorID         string    `json:"actor_id"`
	Status          string    `json:"status"`
	StageIndex      *int      `json:"stage_index,omitempty"`
	Message         string    `json:"message,omitempty"`
	Version         int       `json:"version"`
	OccurredAt      time.Time `json:"occurred_at"`
}
