package application

import (
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionSubmitted Action = "submitted"
	ActionApproved  Action = "approved"
	ActionRejected  Action = "rejected"
	ActionCommented Action = "commented"
	ActionCancelled Action = "cancelled"
)

// Event is one row of the append-only application log. History and the status
// timeline are both read from it.
type Event struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	ApplicationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_application_event_seq"`
	Seq           int       `gorm:"not null;uniqueIndex:uq_application_event_seq"`
	Action        Action    `gorm:"type:varchar(20);not null"`
	Status        Status    `gorm:"type:varchar(20);not null"`
	ActorID       uuid.UUID `gorm:"type:uuid;not null"`
	StageIndex    *int
	Message       string `gorm:"type:text"`
	CreatedAt     time.Time
}

func (Event) TableName() string { return "application_events" }

type HistoryEntry struct {
	Action     Action    `json:"action"`
	ActorID    string    `json:"actor_id"`
	StageIndex *int      `json:"stage_index,omitempty"`
	Message    string    `json:"message,omitempty"`
	At         time.Time `json:"at"`
}

type TimelineEntry struct {
	Status    Status    `json:"status"`
	ChangedBy string    `json:"changed_by"`
	At        time.Time `json:"at"`
	Note      string    `json:"note,omitempty"`
}

// History lists every event in order.
func History(events []Event) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(events))
	for _, e := range events {
		out = append(out, HistoryEntry{
			Action:     e.Action,
			ActorID:    e.ActorID.String(),
			StageIndex: e.StageIndex,
			Message:    e.Message,
			At:         e.CreatedAt,
		})
	}
	return out
}

// StatusTimeline keeps only events that changed the application status.
func StatusTimeline(events []Event) []TimelineEntry {
	out := make([]TimelineEntry, 0, len(events))
	for _, e := range events {
		if n := len(out); n > 0 && out[n-1].Status == e.Status {
			continue
		}
		out = append(out, TimelineEntry{
			Status:    e.Status,
			ChangedBy: e.ActorID.String(),
			At:        e.CreatedAt,
			Note:      e.Message,
		})
	}
	return out
}
